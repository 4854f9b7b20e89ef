package server

import "time"

// Metrics is a snapshot of the server's request counters.
type Metrics struct {
	UptimeSeconds int64            `json:"uptime_seconds"`
	Requests      map[string]int64 `json:"requests"`
	ToolCalls     map[string]int64 `json:"tool_calls"`
	Sessions      int              `json:"sessions"`
}

// recordRequest counts one dispatched method.
func (s *serverImpl) recordRequest(method string) {
	s.metricsMu.Lock()
	s.requests[method]++
	s.metricsMu.Unlock()
}

// recordToolCall counts one invocation of a registered tool.
func (s *serverImpl) recordToolCall(name string) {
	s.metricsMu.Lock()
	s.toolCalls[name]++
	s.metricsMu.Unlock()
}

// Metrics returns a snapshot of the request counters since startup.
func (s *serverImpl) Metrics() Metrics {
	s.metricsMu.Lock()
	defer s.metricsMu.Unlock()

	requests := make(map[string]int64, len(s.requests))
	for method, n := range s.requests {
		requests[method] = n
	}
	toolCalls := make(map[string]int64, len(s.toolCalls))
	for name, n := range s.toolCalls {
		toolCalls[name] = n
	}

	return Metrics{
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Requests:      requests,
		ToolCalls:     toolCalls,
		Sessions:      s.sessions.Len(),
	}
}
