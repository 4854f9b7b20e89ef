// Package server provides the server-side implementation of the MCP protocol.
// It offers an API for building and running the syntax helper MCP server:
// registering tools and resources, dispatching JSON-RPC messages, and
// configuring the transports that carry them.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/onecsuite/syntaxhelper/mcp"
	"github.com/onecsuite/syntaxhelper/session"
	"github.com/onecsuite/syntaxhelper/transport"
	"github.com/onecsuite/syntaxhelper/transport/nats"
	"github.com/onecsuite/syntaxhelper/transport/sse"
	"github.com/onecsuite/syntaxhelper/transport/ws"
)

// Server represents an MCP server with fluent configuration methods.
type Server interface {
	// Run starts the configured transports and blocks until Shutdown.
	Run() error

	// Shutdown gracefully stops all transports and the session reaper.
	Shutdown() error

	// Tool registers a tool with the server. The schema describes the
	// tool's arguments as a JSON Schema object; the handler receives the
	// raw argument map from tools/call.
	Tool(name, description string, schema map[string]interface{}, handler ToolHandler) Server

	// Resource registers a resource with the server. The path may contain
	// {parameter} template segments.
	Resource(path, description, mimeType string, handler ResourceHandler) Server

	// Prompt registers a prompt template with the server.
	Prompt(name, description string, arguments ...mcp.PromptArgument) Server

	// AsSSE configures the server with the SSE transport on the given
	// address, e.g. server.AsSSE(":8000").
	AsSSE(address string, options ...sse.Option) Server

	// AsWebsocket configures the server with the WebSocket transport.
	// An empty address mounts it onto the SSE server's mux.
	AsWebsocket(address string, options ...ws.Option) Server

	// AsNATS configures the server with the NATS transport.
	AsNATS(url string, options ...nats.Option) Server

	// Mount attaches an additional HTTP handler to the SSE server's mux.
	Mount(pattern string, handler http.HandlerFunc) Server

	// Logger returns the server's logger.
	Logger() *slog.Logger

	// Sessions returns the SSE session registry.
	Sessions() *session.Registry

	// ListTools returns all registered tools in registration order.
	ListTools() []mcp.Tool

	// Metrics returns a snapshot of the request counters since startup.
	Metrics() Metrics

	// GetServer returns the underlying server implementation.
	// This is primarily for internal use and testing.
	GetServer() *serverImpl
}

// Option represents a server configuration option.
type Option func(*serverImpl)

// serverImpl is the concrete implementation of the Server interface.
type serverImpl struct {
	// name identifies this server instance in logs and initialize responses.
	name string

	// version is reported in the initialize serverInfo block.
	version string

	// tools maps tool name to its descriptor; toolOrder preserves
	// registration order for tools/list.
	tools     map[string]*Tool
	toolOrder []string

	// resources maps URI pattern to its descriptor.
	resources     map[string]*Resource
	resourceOrder []string

	// prompts maps prompt name to its descriptor.
	prompts     map[string]*mcp.Prompt
	promptOrder []string

	// sessions is the registry shared with the SSE transport.
	sessions *session.Registry

	// transports carries every configured transport; all of them share
	// the same message handler.
	transports []transport.Transport

	// sseTransport is the SSE transport, kept separately so WebSocket
	// handlers and service endpoints can mount onto its mux.
	sseTransport *sse.Transport

	// logger is the structured logger used for server logs.
	logger *slog.Logger

	// mu protects concurrent access to the registries above.
	mu sync.RWMutex

	// started anchors the uptime counter.
	started time.Time

	// requests and toolCalls count dispatched methods and tool
	// invocations, guarded by metricsMu.
	metricsMu sync.Mutex
	requests  map[string]int64
	toolCalls map[string]int64

	// initialized is set once the client sends notifications/initialized.
	initialized bool

	// sessionIdleLimit is how long a session may sit idle before the
	// reaper removes it.
	sessionIdleLimit time.Duration

	// stopReaper terminates the session reaper, set by Run.
	stopReaper func()

	// done is closed by Shutdown to unblock Run.
	done chan struct{}
}

// NewServer creates a new MCP server with the given name and options.
func NewServer(name string, options ...Option) Server {
	s := &serverImpl{
		name:             name,
		version:          "1.0.0",
		tools:            make(map[string]*Tool),
		resources:        make(map[string]*Resource),
		prompts:          make(map[string]*mcp.Prompt),
		sessions:         session.NewRegistry(),
		sessionIdleLimit: DefaultSessionIdleLimit,
		logger:           slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})),
		started:          time.Now(),
		requests:         make(map[string]int64),
		toolCalls:        make(map[string]int64),
		done:             make(chan struct{}),
	}

	for _, option := range options {
		option(s)
	}

	return s
}

// WithLogger sets the server's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *serverImpl) {
		s.logger = logger
	}
}

// WithVersion sets the version reported in initialize responses.
func WithVersion(version string) Option {
	return func(s *serverImpl) {
		s.version = version
	}
}

// WithSessionRegistry replaces the default session registry.
func WithSessionRegistry(registry *session.Registry) Option {
	return func(s *serverImpl) {
		s.sessions = registry
	}
}

// WithSessionIdleLimit sets how long a session may sit idle before the
// reaper removes it.
func WithSessionIdleLimit(limit time.Duration) Option {
	return func(s *serverImpl) {
		if limit > 0 {
			s.sessionIdleLimit = limit
		}
	}
}

// GetName returns the server's name.
func (s *serverImpl) GetName() string {
	return s.name
}

// Logger returns the server's logger.
func (s *serverImpl) Logger() *slog.Logger {
	return s.logger
}

// Sessions returns the SSE session registry.
func (s *serverImpl) Sessions() *session.Registry {
	return s.sessions
}

// GetServer returns the underlying server implementation.
func (s *serverImpl) GetServer() *serverImpl {
	return s
}

// initializeParams is the subset of initialize params the server reads.
type initializeParams struct {
	ProtocolVersion string `json:"protocolVersion"`
}

// ProcessInitialize processes an initialize request. It is deliberately
// session-independent: capability metadata is static and must be available
// to clients probing the server before any stream exists.
func (s *serverImpl) ProcessInitialize(req *mcp.Request) (interface{}, error) {
	var params initializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, &mcp.RPCError{Code: mcp.ErrCodeInvalidParams, Message: "Invalid params", Data: err.Error()}
		}
	}
	if params.ProtocolVersion == "" {
		params.ProtocolVersion = mcp.ProtocolVersion
	}

	s.logger.Info("client initializing", "protocolVersion", params.ProtocolVersion)

	return map[string]interface{}{
		"protocolVersion": mcp.ProtocolVersion,
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{
				"listChanged": false,
			},
			"resources": map[string]interface{}{},
			"prompts":   map[string]interface{}{},
			"roots": map[string]interface{}{
				"listChanged": false,
			},
			"sampling": map[string]interface{}{},
		},
		"serverInfo": map[string]interface{}{
			"name":    s.name,
			"version": s.version,
		},
	}, nil
}

// handleInitializedNotification records that the client finished its
// handshake. No reply is produced for the notification itself.
func (s *serverImpl) handleInitializedNotification() {
	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()

	s.logger.Debug("client initialized")
}

// AddTransport registers an additional configured transport. All
// transports share the server's message handler.
func (s *serverImpl) AddTransport(t transport.Transport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.SetLogger(s.logger)
	t.SetMessageHandler(s.handleMessage)
	s.transports = append(s.transports, t)
}

// Run starts every configured transport and the session reaper, then
// blocks until Shutdown is called.
func (s *serverImpl) Run() error {
	s.mu.RLock()
	transports := append([]transport.Transport(nil), s.transports...)
	s.mu.RUnlock()

	if len(transports) == 0 {
		return fmt.Errorf("no transport configured, use AsSSE(), AsWebsocket(), or AsNATS()")
	}

	s.stopReaper = s.sessions.StartReaper(DefaultReaperInterval, s.sessionIdleLimit)

	for _, t := range transports {
		if err := t.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize transport: %w", err)
		}
		if err := t.Start(); err != nil {
			return fmt.Errorf("failed to start transport: %w", err)
		}
		s.logger.Info("transport started", "transport", fmt.Sprintf("%T", t))
	}

	s.logger.Info("server started", "name", s.name)

	<-s.done
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *serverImpl) Shutdown() error {
	s.logger.Info("shutting down server", "name", s.name)

	var firstErr error
	s.mu.RLock()
	transports := append([]transport.Transport(nil), s.transports...)
	s.mu.RUnlock()

	for _, t := range transports {
		if err := t.Stop(); err != nil {
			s.logger.Error("error stopping transport", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if s.stopReaper != nil {
		s.stopReaper()
	}

	select {
	case <-s.done:
	default:
		close(s.done)
	}

	s.logger.Info("server shutdown complete", "name", s.name)
	return firstErr
}
