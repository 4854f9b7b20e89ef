// Package transport provides the transport layer implementations for the MCP protocol.
//
// This package contains the Transport interface and implementations for the
// communication methods the syntax helper serves: unary HTTP, SSE with a
// POST side-channel, WebSocket, and NATS.
package transport

import (
	"errors"
	"log/slog"
	"os"
)

// MessageHandler represents a function that handles incoming messages.
// It receives a raw JSON-RPC payload (single object or batch array) and
// returns the serialized response payload, or nil when the input consisted
// solely of notifications.
type MessageHandler func(message []byte) ([]byte, error)

// Transport represents a communication transport for MCP messages.
type Transport interface {
	// Initialize initializes the transport
	Initialize() error

	// Start starts the transport
	Start() error

	// Stop stops the transport
	Stop() error

	// Send pushes a server-initiated message to connected clients.
	Send(message []byte) error

	// SetMessageHandler sets the message handler
	SetMessageHandler(handler MessageHandler)

	// SetLogger sets the structured logger
	SetLogger(logger *slog.Logger)

	// GetLogger returns the current logger
	GetLogger() *slog.Logger
}

// BaseTransport provides common transport functionality
type BaseTransport struct {
	handler MessageHandler
	logger  *slog.Logger
}

// SetMessageHandler sets the message handler
func (t *BaseTransport) SetMessageHandler(handler MessageHandler) {
	t.handler = handler
}

// SetLogger sets the structured logger
func (t *BaseTransport) SetLogger(logger *slog.Logger) {
	t.logger = logger
}

// GetLogger returns the current logger, creating a default one if none is set
func (t *BaseTransport) GetLogger() *slog.Logger {
	if t.logger == nil {
		t.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}
	return t.logger
}

// HandleMessage handles an incoming message
func (t *BaseTransport) HandleMessage(message []byte) ([]byte, error) {
	if t.handler == nil {
		return nil, errors.New("no message handler set")
	}
	return t.handler(message)
}
