// Package api handles incoming HTTP requests for tasks: routing, request
// validation and response formatting. It adapts HTTP to the task service and
// maps service errors to status codes without leaking internal details.
package api
