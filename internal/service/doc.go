// Package service contains the task use cases. TaskService validates input,
// delegates persistence to a store.TaskStore, stamps execution times and
// publishes lifecycle events. It depends on the store interfaces only, never
// on a concrete backend.
package service
