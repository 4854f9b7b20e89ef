// Package mcp provides shared types for the MCP protocol implementation.
package mcp

import "encoding/json"

// Version is the JSON-RPC protocol version used by MCP.
const Version = "2.0"

// ProtocolVersion is the MCP protocol revision this server speaks.
const ProtocolVersion = "2024-11-05"

// JSON-RPC 2.0 error codes, plus the MCP application-level codes this
// server emits.
const (
	ErrCodeParseError     = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603

	// ErrCodeToolError reports a failure inside a tool handler.
	ErrCodeToolError = -32000

	// ErrCodeResourceNotFound reports a resources/read miss.
	ErrCodeResourceNotFound = -32004
)

// Request represents a single incoming JSON-RPC message. A request without
// an ID is a notification and never receives a response.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request carries no ID.
func (r *Request) IsNotification() bool {
	return r.ID == nil
}

// RPCError is the error member of a JSON-RPC response.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error returns the error message, implementing the error interface.
func (e *RPCError) Error() string {
	return e.Message
}

// Response represents an outgoing JSON-RPC response. Exactly one of Result
// and Err is set.
type Response struct {
	ID     interface{}
	Result interface{}
	Err    *RPCError
}

// NewResponse creates a success response echoing the request ID.
func NewResponse(id, result interface{}) *Response {
	return &Response{ID: id, Result: result}
}

// NewErrorResponse creates an error response with the given code and message.
// The id may be nil when the request ID could not be determined.
func NewErrorResponse(id interface{}, code int, message string, data interface{}) *Response {
	return &Response{ID: id, Err: &RPCError{Code: code, Message: message, Data: data}}
}

// MarshalJSON serializes the response with exactly one of result/error
// present, as JSON-RPC 2.0 requires.
func (r *Response) MarshalJSON() ([]byte, error) {
	if r.Err != nil {
		return json.Marshal(struct {
			JSONRPC string      `json:"jsonrpc"`
			ID      interface{} `json:"id"`
			Error   *RPCError   `json:"error"`
		}{Version, r.ID, r.Err})
	}
	return json.Marshal(struct {
		JSONRPC string      `json:"jsonrpc"`
		ID      interface{} `json:"id"`
		Result  interface{} `json:"result"`
	}{Version, r.ID, r.Result})
}

// Marshal serializes the response to JSON bytes.
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// Tool represents a tool available from this MCP server.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// Resource represents a resource available from this MCP server.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// Prompt represents a prompt template available from this MCP server.
type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

// PromptArgument represents an argument for a prompt template.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}
