// Package ws provides a WebSocket implementation of the MCP transport.
//
// Each connection is its own full-duplex JSON-RPC channel: every text
// frame carries one payload and the dispatcher's reply, if any, is written
// back as a frame on the same connection. The transport can listen on its
// own address or be mounted as a handler on an existing HTTP server.
package ws

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/onecsuite/syntaxhelper/transport"
)

// Option is a function that configures a Transport
type Option func(*Transport)

// WithPath sets the upgrade endpoint path used in standalone mode.
func WithPath(path string) Option {
	return func(t *Transport) {
		t.path = path
	}
}

// DefaultPath is the default WebSocket upgrade endpoint
const DefaultPath = "/mcp/ws"

// DefaultShutdownTimeout is the default timeout for graceful shutdown
const DefaultShutdownTimeout = 10 * time.Second

// Transport implements the transport.Transport interface for WebSocket.
type Transport struct {
	transport.BaseTransport

	addr   string
	path   string
	server *http.Server

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// NewTransport creates a new WebSocket server transport listening on addr.
func NewTransport(addr string, options ...Option) *Transport {
	t := &Transport{
		addr:  addr,
		path:  DefaultPath,
		conns: make(map[net.Conn]struct{}),
	}

	for _, option := range options {
		option(t)
	}

	return t
}

// NewHandlerTransport creates a WebSocket transport without its own
// listener, for mounting onto another server's mux via Handler.
func NewHandlerTransport(options ...Option) *Transport {
	return NewTransport("", options...)
}

// Handler returns the HTTP handler that upgrades requests to WebSocket.
func (t *Transport) Handler() http.Handler {
	return http.HandlerFunc(t.handleUpgrade)
}

// Path returns the upgrade endpoint path.
func (t *Transport) Path() string {
	return t.path
}

// Initialize initializes the transport
func (t *Transport) Initialize() error {
	return nil
}

// Start starts the standalone HTTP server. In handler mode it is a no-op
// since the owning server accepts the connections.
func (t *Transport) Start() error {
	if t.addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc(t.path, t.handleUpgrade)

	t.mu.Lock()
	t.server = &http.Server{Addr: t.addr, Handler: mux}
	t.mu.Unlock()

	go func() {
		if err := t.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.GetLogger().Error("WebSocket server error", "error", err)
		}
	}()

	t.GetLogger().Info("WebSocket transport listening", "addr", t.addr, "path", t.path)
	return nil
}

// Stop closes open connections and shuts down the standalone server.
func (t *Transport) Stop() error {
	t.mu.Lock()
	for conn := range t.conns {
		conn.Close()
	}
	t.conns = make(map[net.Conn]struct{})
	server := t.server
	t.mu.Unlock()

	if server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	return server.Shutdown(ctx)
}

// Send writes a server-initiated message to every open connection.
func (t *Transport) Send(message []byte) error {
	t.mu.Lock()
	conns := make([]net.Conn, 0, len(t.conns))
	for conn := range t.conns {
		conns = append(conns, conn)
	}
	t.mu.Unlock()

	for _, conn := range conns {
		if err := wsutil.WriteServerMessage(conn, ws.OpText, message); err != nil {
			t.GetLogger().Debug("failed to push to connection", "error", err)
		}
	}
	return nil
}

// handleUpgrade upgrades an HTTP request and services the connection.
func (t *Transport) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		t.GetLogger().Debug("WebSocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	t.mu.Lock()
	t.conns[conn] = struct{}{}
	t.mu.Unlock()

	t.GetLogger().Info("WebSocket connection opened", "remote_addr", r.RemoteAddr)

	go t.serveConn(conn)
}

// serveConn runs the read loop for one connection. A malformed frame gets
// an error response but does not end the connection; only a transport
// failure does.
func (t *Transport) serveConn(conn net.Conn) {
	defer func() {
		t.mu.Lock()
		delete(t.conns, conn)
		t.mu.Unlock()
		conn.Close()
		t.GetLogger().Info("WebSocket connection closed")
	}()

	greeting := fmt.Sprintf(`{"type": "connection", "status": "connected", "timestamp": %d}`, time.Now().Unix())
	if err := wsutil.WriteServerMessage(conn, ws.OpText, []byte(greeting)); err != nil {
		t.GetLogger().Debug("failed to send connection greeting", "error", err)
		return
	}

	for {
		msg, op, err := wsutil.ReadClientData(conn)
		if err != nil {
			// Includes normal close frames from the client.
			t.GetLogger().Debug("read loop ended", "error", err)
			return
		}
		if op != ws.OpText && op != ws.OpBinary {
			continue
		}

		response, err := t.HandleMessage(msg)
		if err != nil {
			t.GetLogger().Error("message handler failed", "error", err)
			continue
		}
		if response == nil {
			continue
		}

		if err := wsutil.WriteServerMessage(conn, ws.OpText, response); err != nil {
			t.GetLogger().Debug("failed to write response", "error", err)
			return
		}
	}
}
