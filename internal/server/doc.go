// Package server implements the core room-based messaging hub for Parley.
//
// The implementation is organized into specialized files for the hub run
// loop, clients, rooms, routing, presence, rate limiting, and HTTP
// handlers to keep the codebase maintainable and testable as the project
// grows. All mutable tables are owned by the hub's single Run goroutine.
package server
