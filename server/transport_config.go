package server

import (
	"net/http"

	"github.com/onecsuite/syntaxhelper/transport/nats"
	"github.com/onecsuite/syntaxhelper/transport/sse"
	"github.com/onecsuite/syntaxhelper/transport/ws"
)

// AsSSE configures the server with the SSE transport. The transport shares
// the server's session registry so the POST side-channel and the reaper
// operate on the same sessions.
//
// Example:
//
//	server.AsSSE(":8000")
func (s *serverImpl) AsSSE(address string, options ...sse.Option) Server {
	opts := append([]sse.Option{
		sse.WithSessionRegistry(s.sessions),
		sse.WithServerInfo(map[string]interface{}{
			"name":     s.name,
			"version":  s.version,
			"protocol": "MCP",
			"endpoint": sse.DefaultMCPEndpoint,
		}),
	}, options...)

	t := sse.NewTransport(address, opts...)
	s.AddTransport(t)

	s.mu.Lock()
	s.sseTransport = t
	s.mu.Unlock()

	s.logger.Info("server configured with SSE transport", "address", address)
	return s
}

// AsWebsocket configures the server with the WebSocket transport. With an
// empty address the transport mounts onto the SSE server's mux instead of
// opening its own listener; AsSSE must be called first in that case.
func (s *serverImpl) AsWebsocket(address string, options ...ws.Option) Server {
	if address == "" {
		t := ws.NewHandlerTransport(options...)
		s.AddTransport(t)

		s.mu.Lock()
		sseTransport := s.sseTransport
		s.mu.Unlock()

		if sseTransport == nil {
			s.logger.Error("AsWebsocket with empty address requires AsSSE first")
			return s
		}
		sseTransport.Handle(t.Path(), t.Handler())

		s.logger.Info("server configured with WebSocket transport", "path", t.Path())
		return s
	}

	t := ws.NewTransport(address, options...)
	s.AddTransport(t)

	s.logger.Info("server configured with WebSocket transport", "address", address)
	return s
}

// AsNATS configures the server with the NATS transport.
func (s *serverImpl) AsNATS(url string, options ...nats.Option) Server {
	t := nats.NewTransport(url, options...)
	s.AddTransport(t)

	s.logger.Info("server configured with NATS transport", "url", url)
	return s
}

// Mount attaches an additional HTTP handler to the SSE server's mux, for
// service endpoints living next to the MCP endpoint. AsSSE must be called
// first.
func (s *serverImpl) Mount(pattern string, handler http.HandlerFunc) Server {
	s.mu.Lock()
	sseTransport := s.sseTransport
	s.mu.Unlock()

	if sseTransport == nil {
		s.logger.Error("Mount requires AsSSE first", "pattern", pattern)
		return s
	}
	sseTransport.HandleFunc(pattern, handler)
	return s
}
