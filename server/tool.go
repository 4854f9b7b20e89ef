package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/onecsuite/syntaxhelper/mcp"
)

// ToolHandler processes a tools/call invocation. The args map holds the
// decoded "arguments" member of the request.
type ToolHandler func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// Tool represents a tool registered with the server.
type Tool struct {
	Name        string
	Description string
	Schema      map[string]interface{}
	Handler     ToolHandler
}

// Tool registers a tool with the server. Registering a name twice replaces
// the earlier definition but keeps its position in tools/list.
func (s *serverImpl) Tool(name, description string, schema map[string]interface{}, handler ToolHandler) Server {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tools[name]; !exists {
		s.toolOrder = append(s.toolOrder, name)
	}
	s.tools[name] = &Tool{
		Name:        name,
		Description: description,
		Schema:      schema,
		Handler:     handler,
	}

	s.logger.Debug("registered tool", "name", name)
	return s
}

// ListTools returns all registered tools in registration order.
func (s *serverImpl) ListTools() []mcp.Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tools := make([]mcp.Tool, 0, len(s.toolOrder))
	for _, name := range s.toolOrder {
		t := s.tools[name]
		tools = append(tools, mcp.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Schema,
		})
	}
	return tools
}

// ProcessToolList processes a tools/list request.
func (s *serverImpl) ProcessToolList(req *mcp.Request) (interface{}, error) {
	return map[string]interface{}{
		"tools": s.ListTools(),
	}, nil
}

// toolCallParams are the params of a tools/call request.
type toolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ProcessToolCall processes a tools/call request. Handler failures are
// reported inside the result with isError set, not as protocol errors;
// only an unknown tool name is a protocol-level failure.
func (s *serverImpl) ProcessToolCall(req *mcp.Request) (interface{}, error) {
	var params toolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return nil, &mcp.RPCError{Code: mcp.ErrCodeInvalidParams, Message: "Invalid params", Data: err.Error()}
	}
	if params.Name == "" {
		return nil, &mcp.RPCError{Code: mcp.ErrCodeInvalidParams, Message: "Invalid params", Data: "missing tool name"}
	}

	s.mu.RLock()
	tool, ok := s.tools[params.Name]
	s.mu.RUnlock()

	if !ok {
		return nil, &mcp.RPCError{
			Code:    mcp.ErrCodeToolError,
			Message: fmt.Sprintf("tool not found: %s", params.Name),
		}
	}

	s.logger.Debug("calling tool", "name", params.Name)
	s.recordToolCall(params.Name)

	result, err := tool.Handler(context.Background(), params.Arguments)
	if err != nil {
		s.logger.Warn("tool execution failed", "name", params.Name, "error", err)
		return map[string]interface{}{
			"content": []interface{}{
				map[string]interface{}{
					"type": "text",
					"text": err.Error(),
				},
			},
			"isError": true,
		}, nil
	}

	return map[string]interface{}{
		"content": formatToolContent(result),
	}, nil
}

// formatToolContent converts a handler's return value into MCP content
// blocks. Strings pass through; everything else is serialized as JSON.
func formatToolContent(result interface{}) []interface{} {
	var text string
	switch v := result.(type) {
	case nil:
		text = ""
	case string:
		text = v
	case []byte:
		text = string(v)
	default:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			text = fmt.Sprintf("%v", v)
		} else {
			text = string(data)
		}
	}

	return []interface{}{
		map[string]interface{}{
			"type": "text",
			"text": text,
		},
	}
}

// DecodeArguments decodes a tool argument map into a typed struct. String
// numbers and similar loosely-typed client input are coerced rather than
// rejected.
func DecodeArguments(args map[string]interface{}, target interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(args); err != nil {
		return &mcp.RPCError{Code: mcp.ErrCodeInvalidParams, Message: "Invalid params", Data: err.Error()}
	}
	return nil
}
