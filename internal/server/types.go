// Package server defines the contracts shared by the hub and clients plus
// small utility helpers.
package server

import (
	"strings"

	"github.com/Tyrowin/gochat-rooms/internal/registry"
)

// ChatHandler is the part of the coordinator a client drives. Calls for one
// connection are made sequentially from its read pump.
type ChatHandler interface {
	Join(connID, username, room string) (registry.Session, error)
	Message(connID, text string) error
	Leave(connID string) (registry.Session, bool)
	Disconnect(connID string)
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
