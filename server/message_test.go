package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onecsuite/syntaxhelper/mcp"
)

func newTestServer() *serverImpl {
	s := NewServer("test-server").GetServer()
	s.Tool("echo", "Echo the input back",
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"text": map[string]interface{}{"type": "string"},
			},
		},
		func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			text, _ := args["text"].(string)
			return "echo: " + text, nil
		})
	s.Tool("fail", "Always fails", map[string]interface{}{"type": "object"},
		func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return nil, errors.New("intentional failure")
		})
	return s
}

type rpcEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *mcp.RPCError   `json:"error"`
}

func dispatchJSON(t *testing.T, s *serverImpl, payload string) *rpcEnvelope {
	t.Helper()
	raw, err := s.HandleMessage([]byte(payload))
	require.NoError(t, err)
	require.NotNil(t, raw)

	var env rpcEnvelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return &env
}

func TestHandleMessageEchoesID(t *testing.T) {
	s := newTestServer()

	env := dispatchJSON(t, s, `{"jsonrpc":"2.0","id":42,"method":"ping"}`)
	assert.Equal(t, "2.0", env.JSONRPC)
	assert.Equal(t, float64(42), env.ID)
	assert.Nil(t, env.Error)
}

func TestStringIDSurvivesRoundTrip(t *testing.T) {
	s := newTestServer()

	env := dispatchJSON(t, s, `{"jsonrpc":"2.0","id":"req-7","method":"tools/list"}`)
	assert.Equal(t, "req-7", env.ID)
}

func TestNotificationProducesNoResponse(t *testing.T) {
	s := newTestServer()

	raw, err := s.HandleMessage([]byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	require.NoError(t, err)
	assert.Nil(t, raw)
	assert.True(t, s.initialized)
}

func TestParseErrorResponse(t *testing.T) {
	s := newTestServer()

	env := dispatchJSON(t, s, `{not json`)
	require.NotNil(t, env.Error)
	assert.Equal(t, mcp.ErrCodeParseError, env.Error.Code)
	assert.Nil(t, env.ID)
}

func TestInvalidRequestMissingVersion(t *testing.T) {
	s := newTestServer()

	env := dispatchJSON(t, s, `{"id":1,"method":"ping"}`)
	require.NotNil(t, env.Error)
	assert.Equal(t, mcp.ErrCodeInvalidRequest, env.Error.Code)
	assert.Equal(t, float64(1), env.ID)
}

func TestUnknownMethodNamesTheMethod(t *testing.T) {
	s := newTestServer()

	env := dispatchJSON(t, s, `{"jsonrpc":"2.0","id":5,"method":"no/such/method"}`)
	require.NotNil(t, env.Error)
	assert.Equal(t, mcp.ErrCodeMethodNotFound, env.Error.Code)
	assert.Contains(t, env.Error.Message, "no/such/method")
	assert.Equal(t, float64(5), env.ID)
}

func TestRootsListReturnsEmptyList(t *testing.T) {
	s := newTestServer()

	env := dispatchJSON(t, s, `{"jsonrpc":"2.0","id":1,"method":"roots/list"}`)
	require.Nil(t, env.Error)

	var result struct {
		Roots []interface{} `json:"roots"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &result))
	assert.NotNil(t, result.Roots)
	assert.Empty(t, result.Roots)
}

func TestSamplingNotServed(t *testing.T) {
	s := newTestServer()

	for _, method := range []string{"sampling/create", "sampling/complete"} {
		env := dispatchJSON(t, s, fmt.Sprintf(`{"jsonrpc":"2.0","id":1,"method":"%s"}`, method))
		require.NotNil(t, env.Error, method)
		assert.Equal(t, mcp.ErrCodeMethodNotFound, env.Error.Code, method)
	}
}

func TestInitializeResult(t *testing.T) {
	s := newTestServer()

	env := dispatchJSON(t, s, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}`)
	require.Nil(t, env.Error)

	var result struct {
		ProtocolVersion string                 `json:"protocolVersion"`
		Capabilities    map[string]interface{} `json:"capabilities"`
		ServerInfo      struct {
			Name string `json:"name"`
		} `json:"serverInfo"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &result))

	assert.Equal(t, mcp.ProtocolVersion, result.ProtocolVersion)
	assert.Equal(t, "test-server", result.ServerInfo.Name)
	assert.Contains(t, result.Capabilities, "tools")
	assert.Contains(t, result.Capabilities, "resources")
	assert.Contains(t, result.Capabilities, "prompts")
}

func TestToolsListPreservesRegistrationOrder(t *testing.T) {
	s := newTestServer()

	env := dispatchJSON(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	require.Nil(t, env.Error)

	var result struct {
		Tools []mcp.Tool `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &result))
	require.Len(t, result.Tools, 2)
	assert.Equal(t, "echo", result.Tools[0].Name)
	assert.Equal(t, "fail", result.Tools[1].Name)
}

func TestToolCallReturnsContent(t *testing.T) {
	s := newTestServer()

	env := dispatchJSON(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo","arguments":{"text":"hi"}}}`)
	require.Nil(t, env.Error)

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &result))
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)
	assert.Equal(t, "echo: hi", result.Content[0].Text)
	assert.False(t, result.IsError)
}

func TestToolHandlerFailureIsResultLevel(t *testing.T) {
	s := newTestServer()

	env := dispatchJSON(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"fail","arguments":{}}}`)
	require.Nil(t, env.Error, "handler failures are reported in the result, not as protocol errors")

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &result))
	assert.True(t, result.IsError)
	require.Len(t, result.Content, 1)
	assert.Contains(t, result.Content[0].Text, "intentional failure")
}

func TestUnknownToolIsProtocolError(t *testing.T) {
	s := newTestServer()

	env := dispatchJSON(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"missing","arguments":{}}}`)
	require.NotNil(t, env.Error)
	assert.Equal(t, mcp.ErrCodeToolError, env.Error.Code)
	assert.Contains(t, env.Error.Message, "missing")
}

func TestBatchRequest(t *testing.T) {
	s := newTestServer()

	batch := `[
		{"jsonrpc":"2.0","id":1,"method":"ping"},
		{"jsonrpc":"2.0","method":"notifications/initialized"},
		{"jsonrpc":"2.0","id":2,"method":"tools/list"},
		{"jsonrpc":"2.0","id":3,"method":"no/such"}
	]`

	raw, err := s.HandleMessage([]byte(batch))
	require.NoError(t, err)

	var envs []rpcEnvelope
	require.NoError(t, json.Unmarshal(raw, &envs))

	// Four requests, one a notification, so three responses in order.
	require.Len(t, envs, 3)
	assert.Equal(t, float64(1), envs[0].ID)
	assert.Equal(t, float64(2), envs[1].ID)
	assert.Equal(t, float64(3), envs[2].ID)
	assert.Nil(t, envs[0].Error)
	assert.Nil(t, envs[1].Error)
	require.NotNil(t, envs[2].Error)
	assert.Equal(t, mcp.ErrCodeMethodNotFound, envs[2].Error.Code)
}

func TestBatchOfOnlyNotifications(t *testing.T) {
	s := newTestServer()

	raw, err := s.HandleMessage([]byte(`[{"jsonrpc":"2.0","method":"notifications/initialized"}]`))
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestEmptyBatchIsInvalidRequest(t *testing.T) {
	s := newTestServer()

	env := dispatchJSON(t, s, `[]`)
	require.NotNil(t, env.Error)
	assert.Equal(t, mcp.ErrCodeInvalidRequest, env.Error.Code)
}

func TestResourceTemplateCapture(t *testing.T) {
	s := NewServer("test-server").GetServer()
	s.Resource("1c://help/{object}", "Help page for an object", "text/markdown",
		func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			return fmt.Sprintf("help for %v", params["object"]), nil
		})

	env := dispatchJSON(t, s, `{"jsonrpc":"2.0","id":1,"method":"resources/read","params":{"uri":"1c://help/Array"}}`)
	require.Nil(t, env.Error)

	var result struct {
		Contents []struct {
			URI  string `json:"uri"`
			Text string `json:"text"`
		} `json:"contents"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &result))
	require.Len(t, result.Contents, 1)
	assert.Equal(t, "1c://help/Array", result.Contents[0].URI)
	assert.Equal(t, "help for Array", result.Contents[0].Text)
}

func TestResourceReadUnknownURI(t *testing.T) {
	s := newTestServer()

	env := dispatchJSON(t, s, `{"jsonrpc":"2.0","id":1,"method":"resources/read","params":{"uri":"1c://nothing"}}`)
	require.NotNil(t, env.Error)
	assert.Equal(t, mcp.ErrCodeResourceNotFound, env.Error.Code)
}

func TestPromptGet(t *testing.T) {
	s := NewServer("test-server").GetServer()
	s.Prompt("explain-syntax", "Explain a 1C language construct",
		mcp.PromptArgument{Name: "construct", Required: true})

	env := dispatchJSON(t, s, `{"jsonrpc":"2.0","id":1,"method":"prompts/get","params":{"name":"explain-syntax","arguments":{"construct":"Query"}}}`)
	require.Nil(t, env.Error)

	var result struct {
		Description string `json:"description"`
		Messages    []struct {
			Role string `json:"role"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &result))
	assert.Equal(t, "Explain a 1C language construct", result.Description)
	require.Len(t, result.Messages, 1)
	assert.Equal(t, "user", result.Messages[0].Role)
}

func TestPromptGetUnknownName(t *testing.T) {
	s := newTestServer()

	env := dispatchJSON(t, s, `{"jsonrpc":"2.0","id":1,"method":"prompts/get","params":{"name":"nope"}}`)
	require.NotNil(t, env.Error)
	assert.Equal(t, mcp.ErrCodeMethodNotFound, env.Error.Code)
}

func TestDecodeArgumentsCoercesTypes(t *testing.T) {
	var args struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	err := DecodeArguments(map[string]interface{}{"query": "Array", "limit": "10"}, &args)
	require.NoError(t, err)
	assert.Equal(t, "Array", args.Query)
	assert.Equal(t, 10, args.Limit)
}
