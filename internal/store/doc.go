// Package store defines the task repository contract and the errors every
// storage backend reports through it. Implementations live under
// internal/platform.
package store
