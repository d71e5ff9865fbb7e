package mediator

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
)

// Test component types used across tests

// Router collects buttons wired to it.
type Router struct {
	Name    string
	Buttons []*Button
}

func (r *Router) Add(b *Button) {
	r.Buttons = append(r.Buttons, b)
}

// Button is a typical Instance object.
type Button struct {
	Label string
}

// newTestEngine creates an engine that discards log output.
func newTestEngine(opts ...Option) *Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(append([]Option{WithLogger(logger)}, opts...)...)
}

// delivered is one ForEach callback invocation.
type delivered struct {
	Object any
	Name   string
	Mods   []any
}

// eachRecorder records ForEach deliveries.
type eachRecorder struct {
	mu    sync.Mutex
	calls []delivered
}

func (r *eachRecorder) fn(object any, name string, mods ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, delivered{Object: object, Name: name, Mods: mods})
}

func (r *eachRecorder) objects() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]any, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.Object
	}
	return out
}

func (r *eachRecorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.Name
	}
	return out
}

// connectRecorder records Connect callback invocations.
type connectRecorder struct {
	calls [][]any
}

func (r *connectRecorder) fn(mods ...any) {
	r.calls = append(r.calls, mods)
}

// testLogHandler captures log records for testing.
type testLogHandler struct {
	mu  sync.Mutex
	buf *bytes.Buffer
}

func newTestLogHandler() *testLogHandler {
	return &testLogHandler{buf: &bytes.Buffer{}}
}

func (h *testLogHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (h *testLogHandler) Handle(_ context.Context, r slog.Record) error {
	data := map[string]any{
		"level": r.Level.String(),
		"msg":   r.Message,
	}
	r.Attrs(func(a slog.Attr) bool {
		data[a.Key] = a.Value.Any()
		return true
	})
	h.mu.Lock()
	defer h.mu.Unlock()
	return json.NewEncoder(h.buf).Encode(data)
}

func (h *testLogHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *testLogHandler) WithGroup(_ string) slog.Handler {
	return h
}

func (h *testLogHandler) records() []map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	var records []map[string]any
	for _, line := range bytes.Split(h.buf.Bytes(), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(line, &m); err == nil {
			records = append(records, m)
		}
	}
	return records
}

func (h *testLogHandler) messages() []string {
	var out []string
	for _, r := range h.records() {
		msg, _ := r["msg"].(string)
		out = append(out, msg)
	}
	return out
}
