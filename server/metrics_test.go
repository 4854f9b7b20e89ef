package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCountRequestsAndToolCalls(t *testing.T) {
	s := newTestServer()

	dispatchJSON(t, s, `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	dispatchJSON(t, s, `{"jsonrpc":"2.0","id":2,"method":"ping"}`)
	dispatchJSON(t, s, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"echo","arguments":{"text":"hi"}}}`)

	m := s.Metrics()
	assert.Equal(t, int64(2), m.Requests["ping"])
	assert.Equal(t, int64(1), m.Requests["tools/call"])
	assert.Equal(t, int64(1), m.ToolCalls["echo"])
	assert.Equal(t, 0, m.Sessions)
}

func TestMetricsUnknownToolNotCounted(t *testing.T) {
	s := newTestServer()

	env := dispatchJSON(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"missing","arguments":{}}}`)
	require.NotNil(t, env.Error)

	m := s.Metrics()
	assert.Empty(t, m.ToolCalls)
}

func TestMetricsSnapshotIsDetached(t *testing.T) {
	s := newTestServer()

	dispatchJSON(t, s, `{"jsonrpc":"2.0","id":1,"method":"ping"}`)

	m := s.Metrics()
	m.Requests["ping"] = 99

	assert.Equal(t, int64(1), s.Metrics().Requests["ping"])
}
