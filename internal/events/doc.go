// Package events provides task lifecycle events and an in-process emitter.
//
// The task service emits an event after every successful write. Handlers are
// registered on the emitter and run synchronously in registration order; the
// service never fails a request because a handler failed.
package events
