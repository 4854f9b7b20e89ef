package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/onecsuite/syntaxhelper/mcp"
)

// Default timings for the session reaper started by Run.
const (
	DefaultReaperInterval   = 60 * time.Second
	DefaultSessionIdleLimit = 5 * time.Minute
)

// handleMessage is the transport-facing entry point. Every transport feeds
// raw payloads here; the returned bytes are the serialized response, or nil
// when the payload consisted solely of notifications.
func (s *serverImpl) handleMessage(message []byte) ([]byte, error) {
	return s.HandleMessage(message)
}

// HandleMessage parses a raw JSON-RPC payload, dispatches it, and returns
// the serialized response. Batch requests (a JSON array) produce a JSON
// array of responses in request order, with notifications skipped.
func (s *serverImpl) HandleMessage(message []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(message)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return s.handleBatch(trimmed)
	}
	return s.handleSingle(trimmed)
}

// handleSingle processes one JSON-RPC object.
func (s *serverImpl) handleSingle(message []byte) ([]byte, error) {
	var req mcp.Request
	if err := json.Unmarshal(message, &req); err != nil {
		s.logger.Debug("failed to parse message", "error", err)
		return mcp.NewErrorResponse(nil, mcp.ErrCodeParseError, "Parse error", err.Error()).Marshal()
	}

	resp := s.dispatch(&req)
	if resp == nil {
		return nil, nil
	}
	return resp.Marshal()
}

// handleBatch processes a JSON-RPC batch. Requests are dispatched in order
// and only non-notification requests contribute to the response array. An
// empty batch is itself an invalid request.
func (s *serverImpl) handleBatch(message []byte) ([]byte, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(message, &raw); err != nil {
		return mcp.NewErrorResponse(nil, mcp.ErrCodeParseError, "Parse error", err.Error()).Marshal()
	}
	if len(raw) == 0 {
		return mcp.NewErrorResponse(nil, mcp.ErrCodeInvalidRequest, "Invalid Request", "empty batch").Marshal()
	}

	s.logger.Debug("processing batch request", "size", len(raw))

	responses := make([]*mcp.Response, 0, len(raw))
	for _, item := range raw {
		var req mcp.Request
		if err := json.Unmarshal(item, &req); err != nil {
			responses = append(responses, mcp.NewErrorResponse(nil, mcp.ErrCodeInvalidRequest, "Invalid Request", err.Error()))
			continue
		}
		if resp := s.dispatch(&req); resp != nil {
			responses = append(responses, resp)
		}
	}

	// A batch of nothing but notifications gets no reply at all.
	if len(responses) == 0 {
		return nil, nil
	}
	return json.Marshal(responses)
}

// dispatch routes a parsed request to its handler. It returns nil for
// notifications, which never receive a response.
func (s *serverImpl) dispatch(req *mcp.Request) *mcp.Response {
	if req.JSONRPC != mcp.Version || req.Method == "" {
		if req.IsNotification() && req.Method != "" {
			// Malformed notifications are dropped, not answered.
			s.logger.Debug("dropping malformed notification", "method", req.Method)
			return nil
		}
		return mcp.NewErrorResponse(req.ID, mcp.ErrCodeInvalidRequest, "Invalid Request", nil)
	}

	s.logger.Debug("dispatching request", "method", req.Method, "id", req.ID)
	s.recordRequest(req.Method)

	if req.IsNotification() {
		s.handleNotification(req)
		return nil
	}

	result, err := s.callMethod(req)
	if err != nil {
		if rpcErr, ok := err.(*mcp.RPCError); ok {
			return &mcp.Response{ID: req.ID, Err: rpcErr}
		}
		return mcp.NewErrorResponse(req.ID, mcp.ErrCodeInternalError, "Internal error", err.Error())
	}
	return mcp.NewResponse(req.ID, result)
}

// callMethod is the method table for requests that expect a response.
func (s *serverImpl) callMethod(req *mcp.Request) (interface{}, error) {
	switch req.Method {
	case "initialize":
		return s.ProcessInitialize(req)
	case "ping":
		return map[string]interface{}{}, nil
	case "tools/list":
		return s.ProcessToolList(req)
	case "tools/call":
		return s.ProcessToolCall(req)
	case "resources/list":
		return s.ProcessResourceList(req)
	case "resources/read":
		return s.ProcessResourceRead(req)
	case "prompts/list":
		return s.ProcessPromptList(req)
	case "prompts/get":
		return s.ProcessPromptGet(req)
	case "roots/list":
		// No filesystem roots are exposed; the list is always empty.
		return map[string]interface{}{"roots": []interface{}{}}, nil
	case "sampling/create", "sampling/complete":
		// Client-side capability; advertised in initialize but not served.
		return nil, &mcp.RPCError{
			Code:    mcp.ErrCodeMethodNotFound,
			Message: "Sampling not supported",
		}
	default:
		return nil, &mcp.RPCError{
			Code:    mcp.ErrCodeMethodNotFound,
			Message: fmt.Sprintf("Method not found: %s", req.Method),
		}
	}
}

// handleNotification routes a notification. Unknown notifications are
// logged and dropped.
func (s *serverImpl) handleNotification(req *mcp.Request) {
	switch req.Method {
	case "notifications/initialized":
		s.handleInitializedNotification()
	case "notifications/cancelled":
		s.logger.Debug("request cancelled by client")
	default:
		s.logger.Debug("ignoring notification", "method", req.Method)
	}
}
