// Package server implements the WinChat presence-and-delivery engine: the
// WebSocket transport, connection registry, pending-delivery queue, room
// router, presence broadcaster, and voice-call signaling relay.
//
// The implementation is organized into specialized files for configuration,
// hub coordination, clients, routing, and HTTP handlers to keep the
// codebase maintainable and testable as the project grows.
package server
