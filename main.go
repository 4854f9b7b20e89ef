// Command syntaxhelper runs the 1C syntax helper MCP server. It indexes
// the platform's .hbk documentation archives and serves search tools over
// SSE, WebSocket, and plain HTTP, with an optional NATS transport.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/onecsuite/syntaxhelper/config"
	"github.com/onecsuite/syntaxhelper/hbk"
	"github.com/onecsuite/syntaxhelper/mcp"
	"github.com/onecsuite/syntaxhelper/search"
	"github.com/onecsuite/syntaxhelper/server"
	"github.com/onecsuite/syntaxhelper/session"
	"github.com/onecsuite/syntaxhelper/tools"
	"github.com/onecsuite/syntaxhelper/transport/nats"
	"github.com/onecsuite/syntaxhelper/transport/sse"
)

const serverName = "1c-syntax-helper-mcp"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	engine := search.NewEngine(search.WithMaxResults(cfg.Search.MaxResults))
	parser := hbk.NewParser(hbk.WithLogger(logger))
	indexer := search.NewIndexer(cfg.Data.HBKDirectory, parser, engine, logger)

	registry := session.NewRegistry()

	srv := server.NewServer(serverName,
		server.WithLogger(logger),
		server.WithVersion("1.0.0"),
		server.WithSessionRegistry(registry),
		server.WithSessionIdleLimit(cfg.Session.IdleTimeout),
	).
		AsSSE(cfg.Server.Addr(), sse.WithHeartbeatInterval(cfg.Session.HeartbeatInterval)).
		AsWebsocket("")

	if cfg.NATS.URL != "" {
		srv.AsNATS(cfg.NATS.URL, nats.WithSubjectPrefix(cfg.NATS.SubjectPrefix))
	}

	tools.Register(srv, engine)
	registerResources(srv, engine)
	registerPrompts(srv)
	registerServiceEndpoints(srv, engine, indexer)

	// Indexing a full archive takes a while; do it off the serving path.
	go indexer.AutoIndex()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info("signal received, shutting down")
		if err := srv.Shutdown(); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	logger.Info("starting server", "addr", cfg.Server.Addr())
	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// registerServiceEndpoints mounts the plain HTTP endpoints living next to
// the MCP endpoint: liveness, index status, and reindexing.
func registerServiceEndpoints(srv server.Server, engine *search.Engine, indexer *search.Indexer) {
	srv.Mount("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "1C syntax helper MCP server is running",
		})
	})

	srv.Mount("/health", func(w http.ResponseWriter, r *http.Request) {
		status := indexer.Status()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":          "healthy",
			"index_exists":    status.IndexExists,
			"documents_count": status.DocumentsCount,
		})
	})

	srv.Mount("/index/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, indexer.Status())
	})

	srv.Mount("/metrics", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"server": srv.Metrics(),
			"index": map[string]interface{}{
				"documents_count": engine.Count(),
			},
		})
	})

	srv.Mount("/mcp/tools", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"tools": srv.ListTools(),
		})
	})

	srv.Mount("/index/rebuild", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := indexer.Rebuild(); err != nil {
			code := http.StatusInternalServerError
			if err == search.ErrIndexingInProgress {
				code = http.StatusConflict
			}
			writeJSON(w, code, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":          "success",
			"documents_count": engine.Count(),
		})
	})
}

// registerResources exposes the indexed documentation as MCP resources.
func registerResources(srv server.Server, engine *search.Engine) {
	srv.Resource("1c://objects", "List of documented 1C objects", "application/json",
		func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			return map[string]interface{}{"objects": engine.Objects()}, nil
		})

	srv.Resource("1c://object/{object}", "Members of one 1C object", "application/json",
		func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			object, _ := params["object"].(string)
			members := engine.ListMembers(object, search.MembersAll, search.MaxLimit)
			if len(members) == 0 {
				return nil, fmt.Errorf("object not found: %s", object)
			}
			return map[string]interface{}{"object": object, "members": members}, nil
		})

	srv.Resource("1c://help/{element}", "Documentation page for a global element", "text/plain",
		func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			element, _ := params["element"].(string)
			doc, ok := engine.FindElement(element, "")
			if !ok {
				return nil, fmt.Errorf("element not found: %s", element)
			}
			return doc, nil
		})
}

// registerPrompts registers the prompt templates clients can request.
func registerPrompts(srv server.Server) {
	srv.Prompt("explain-element",
		"Explain a 1C platform element using the indexed documentation",
		mcp.PromptArgument{Name: "element", Description: "Name of the element to explain", Required: true},
		mcp.PromptArgument{Name: "object", Description: "Owning object, if any"},
	)
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Debug("failed to encode response", "error", err)
	}
}
