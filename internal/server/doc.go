// Package server implements the HTTP and WebSocket transport for GoChat rooms.
//
// The implementation is organized into specialized files for configuration, hub
// management, clients, routing, middleware, and HTTP handlers. Room semantics
// live in the coordinator and registry packages; this package only moves
// bytes between connections and the coordinator.
package server
