package core

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"
)

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.values))
	for key, value := range l.values {
		out[key] = value
	}
	return out, nil
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock(unix int64) *manualClock {
	return &manualClock{now: time.Unix(unix, 0).UTC()}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Set(unix int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = time.Unix(unix, 0).UTC()
}

// scriptedTransport records every request and answers with handler.
type scriptedTransport struct {
	mu       sync.Mutex
	requests []TransportRequest
	handler  func(req TransportRequest) (TransportResponse, error)
}

func (*scriptedTransport) Kind() string {
	return "scripted"
}

func (t *scriptedTransport) Do(_ context.Context, req TransportRequest) (TransportResponse, error) {
	t.mu.Lock()
	t.requests = append(t.requests, req)
	handler := t.handler
	t.mu.Unlock()
	if handler == nil {
		return TransportResponse{StatusCode: http.StatusOK, Headers: http.Header{}}, nil
	}
	return handler(req)
}

func (t *scriptedTransport) snapshot() []TransportRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TransportRequest, len(t.requests))
	copy(out, t.requests)
	return out
}

func jsonResponse(status int, body string) TransportResponse {
	return TransportResponse{
		StatusCode: status,
		Headers:    http.Header{"Content-Type": []string{"application/json;charset=UTF-8"}},
		Body:       []byte(body),
	}
}

func testCredentials() Credentials {
	return Credentials{
		ClientID:    "APPKEY",
		RedirectURI: "https://127.0.0.1/callback",
	}
}

func newTestSession(t *testing.T, transport *scriptedTransport, clock Clock, opts ...Option) *Session {
	t.Helper()
	all := append([]Option{
		WithTransport(transport),
		WithClock(clock),
		WithLogger(stubLogger{}),
		WithLoggerProvider(stubLoggerProvider{logger: stubLogger{}}),
	}, opts...)
	session, err := NewSession(testCredentials(), Config{}, all...)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return session
}

func seedState(t *testing.T, store StateStore, state SessionState) {
	t.Helper()
	if err := store.Save(context.Background(), state); err != nil {
		t.Fatalf("seed state: %v", err)
	}
}
