// Package domain contains the task entity, its partial-update type and the
// validation errors shared by the storage backends and the API layer. It has
// no knowledge of persistence or transport.
package domain
