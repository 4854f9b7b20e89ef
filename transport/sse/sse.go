// Package sse provides a Server-Sent Events implementation of the MCP transport.
//
// Clients open a long-lived GET stream on the MCP endpoint and submit
// requests on the same path via POST, correlating the two with the
// session_id query parameter announced in the stream's endpoint event.
// Responses travel back over the stream as message events, interleaved
// with periodic ping events that keep the session alive.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/onecsuite/syntaxhelper/session"
	"github.com/onecsuite/syntaxhelper/transport"
)

// Option is a function that configures a Transport
type Option func(*Transport)

// WithMCPEndpoint sets the path serving both the GET stream and the POST
// side-channel.
func WithMCPEndpoint(path string) Option {
	return func(t *Transport) {
		t.mcpEndpoint = path
	}
}

// WithHeartbeatInterval sets the spacing of ping events on open streams.
func WithHeartbeatInterval(interval time.Duration) Option {
	return func(t *Transport) {
		if interval > 0 {
			t.heartbeat = interval
		}
	}
}

// WithSessionRegistry sets the registry correlating streams with POSTs.
func WithSessionRegistry(registry *session.Registry) Option {
	return func(t *Transport) {
		t.sessions = registry
	}
}

// WithServerInfo sets the JSON document served to plain GET requests that
// do not ask for an event stream.
func WithServerInfo(info map[string]interface{}) Option {
	return func(t *Transport) {
		t.serverInfo = info
	}
}

// DefaultShutdownTimeout is the default timeout for graceful shutdown
const DefaultShutdownTimeout = 10 * time.Second

// DefaultMCPEndpoint is the default MCP endpoint path
const DefaultMCPEndpoint = "/mcp"

// DefaultHeartbeatInterval is the default spacing of ping events
const DefaultHeartbeatInterval = 30 * time.Second

// Transport implements the transport.Transport interface for SSE with a
// POST side-channel.
type Transport struct {
	transport.BaseTransport

	addr        string
	server      *http.Server
	mux         *http.ServeMux
	mcpEndpoint string
	heartbeat   time.Duration
	sessions    *session.Registry
	serverInfo  map[string]interface{}

	mu      sync.Mutex
	started bool
}

// NewTransport creates a new SSE server transport listening on addr.
func NewTransport(addr string, options ...Option) *Transport {
	t := &Transport{
		addr:        addr,
		mux:         http.NewServeMux(),
		mcpEndpoint: DefaultMCPEndpoint,
		heartbeat:   DefaultHeartbeatInterval,
		sessions:    session.NewRegistry(),
	}

	for _, option := range options {
		option(t)
	}

	return t
}

// Handle mounts an additional HTTP handler on the transport's mux. It must
// be called before Start.
func (t *Transport) Handle(pattern string, handler http.Handler) {
	t.mux.Handle(pattern, handler)
}

// HandleFunc mounts an additional HTTP handler function on the transport's
// mux. It must be called before Start.
func (t *Transport) HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	t.mux.HandleFunc(pattern, handler)
}

// Sessions returns the transport's session registry.
func (t *Transport) Sessions() *session.Registry {
	return t.sessions
}

// Initialize initializes the transport
func (t *Transport) Initialize() error {
	t.mux.HandleFunc(t.mcpEndpoint, t.handleMCPRequest)
	return nil
}

// Start starts the HTTP server in the background.
func (t *Transport) Start() error {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return nil
	}
	t.started = true
	t.server = &http.Server{
		Addr:    t.addr,
		Handler: t.mux,
	}
	t.mu.Unlock()

	go func() {
		if err := t.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.GetLogger().Error("SSE server error", "error", err)
		}
	}()

	t.GetLogger().Info("SSE transport listening", "addr", t.addr, "endpoint", t.mcpEndpoint)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (t *Transport) Stop() error {
	t.mu.Lock()
	server := t.server
	t.mu.Unlock()

	if server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	return server.Shutdown(ctx)
}

// Send enqueues a server-initiated message onto every open session.
func (t *Transport) Send(message []byte) error {
	for _, s := range t.sessions.All() {
		if err := t.sessions.Enqueue(s.ID, message); err != nil {
			t.GetLogger().Debug("failed to push to session", "session_id", s.ID, "error", err)
		}
	}
	return nil
}

// handleMCPRequest routes the unified MCP endpoint: GET opens a stream or
// serves server info, POST carries JSON-RPC payloads.
func (t *Transport) handleMCPRequest(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if acceptsEventStream(r) {
			t.handleSSEConnection(w, r)
			return
		}
		t.handleServerInfo(w, r)
	case http.MethodPost:
		t.handleClientMessage(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// acceptsEventStream reports whether the request negotiates an SSE stream.
// Only an explicit text/event-stream opens one; wildcard accepts such as
// curl's default get the server info JSON instead of a hung stream.
func acceptsEventStream(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

// handleServerInfo answers plain GET requests with a static description of
// the server, for clients probing the endpoint before connecting.
func (t *Transport) handleServerInfo(w http.ResponseWriter, r *http.Request) {
	info := t.serverInfo
	if info == nil {
		info = map[string]interface{}{"endpoint": t.mcpEndpoint}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(info); err != nil {
		t.GetLogger().Debug("failed to write server info", "error", err)
	}
}

// handleSSEConnection services one GET stream for its entire lifetime. The
// session exists exactly as long as this handler runs.
func (t *Transport) handleSSEConnection(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	sess := t.sessions.Create()
	defer t.sessions.Remove(sess.ID)

	t.GetLogger().Info("SSE stream opened", "session_id", sess.ID, "remote_addr", r.RemoteAddr)

	greeting := fmt.Sprintf(`{"session_id": "%s", "timestamp": %d}`, sess.ID, time.Now().Unix())
	if _, err := fmt.Fprintf(w, "event: connection\ndata: %s\n\n", greeting); err != nil {
		return
	}

	// The endpoint event tells the client where to POST its requests.
	endpoint := fmt.Sprintf("%s?session_id=%s", t.mcpEndpoint, sess.ID)
	if _, err := fmt.Fprintf(w, "event: endpoint\ndata: %s\n\n", endpoint); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(t.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case msg, open := <-sess.Messages():
			if !open {
				// Session was reaped from under the stream.
				t.GetLogger().Debug("session queue closed", "session_id", sess.ID)
				return
			}
			if _, err := fmt.Fprintf(w, "event: message\ndata: %s\n\n", msg); err != nil {
				t.GetLogger().Debug("failed to write SSE message", "session_id", sess.ID, "error", err)
				return
			}
			flusher.Flush()

		case <-ticker.C:
			ping := fmt.Sprintf(`{"timestamp": %d, "session_id": "%s"}`, time.Now().Unix(), sess.ID)
			if _, err := fmt.Fprintf(w, "event: ping\ndata: %s\n\n", ping); err != nil {
				return
			}
			flusher.Flush()
			t.sessions.Touch(sess.ID)

		case <-r.Context().Done():
			t.GetLogger().Info("SSE stream closed", "session_id", sess.ID)
			return
		}
	}
}

// handleClientMessage services the POST side of the MCP endpoint. With a
// session_id the response is queued onto the stream and the POST itself is
// acknowledged immediately; without one the exchange is unary.
func (t *Transport) handleClientMessage(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, 4<<20)
	defer body.Close()

	payload, err := io.ReadAll(body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		t.handleUnaryMessage(w, payload)
		return
	}

	if _, err := t.sessions.Get(sessionID); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "Session not found"})
		return
	}
	t.sessions.Touch(sessionID)

	response, err := t.HandleMessage(payload)
	if err != nil {
		t.GetLogger().Error("message handler failed", "session_id", sessionID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Notifications produce nothing to queue but are still acknowledged.
	if response != nil {
		if err := t.sessions.Enqueue(sessionID, response); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "Session not found"})
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "queued"})
}

// handleUnaryMessage dispatches a sessionless POST and writes the response
// directly into the HTTP reply.
func (t *Transport) handleUnaryMessage(w http.ResponseWriter, payload []byte) {
	response, err := t.HandleMessage(payload)
	if err != nil {
		t.GetLogger().Error("message handler failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if response == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(response)
}
