package core

import (
	"context"
	"net/http"
	"sync"
	"testing"
)

type capturedCounter struct {
	name  string
	value int64
	tags  map[string]string
}

type capturedHistogram struct {
	name  string
	value float64
	tags  map[string]string
}

type captureMetricsRecorder struct {
	mu         sync.Mutex
	counters   []capturedCounter
	histograms []capturedHistogram
}

func (m *captureMetricsRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, capturedCounter{name: name, value: value, tags: cloneTags(tags)})
}

func (m *captureMetricsRecorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms = append(m.histograms, capturedHistogram{name: name, value: value, tags: cloneTags(tags)})
}

type capturedLog struct {
	level  string
	msg    string
	fields map[string]any
}

type captureLogger struct {
	mu       *sync.Mutex
	records  *[]capturedLog
	defaults map[string]any
}

func newCaptureLogger() *captureLogger {
	records := []capturedLog{}
	return &captureLogger{mu: &sync.Mutex{}, records: &records, defaults: map[string]any{}}
}

func (l *captureLogger) WithFields(fields map[string]any) Logger {
	merged := cloneFields(l.defaults)
	for key, value := range fields {
		merged[key] = value
	}
	return &captureLogger{mu: l.mu, records: l.records, defaults: merged}
}

func (l *captureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *captureLogger) WithContext(context.Context) Logger {
	return &captureLogger{mu: l.mu, records: l.records, defaults: cloneFields(l.defaults)}
}

func (l *captureLogger) record(level string, msg string, args ...any) {
	fields := cloneFields(l.defaults)
	for index := 0; index+1 < len(args); index += 2 {
		key, ok := args[index].(string)
		if !ok {
			continue
		}
		fields[key] = args[index+1]
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.records = append(*l.records, capturedLog{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) snapshot() []capturedLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]capturedLog, len(*l.records))
	copy(out, *l.records)
	return out
}

func hasCounter(counters []capturedCounter, name string, status string) bool {
	for _, counter := range counters {
		if counter.name == name && counter.tags["status"] == status {
			return true
		}
	}
	return false
}

func findLog(logs []capturedLog, level string, msg string) (capturedLog, bool) {
	for _, entry := range logs {
		if entry.level == level && entry.msg == msg {
			return entry, true
		}
	}
	return capturedLog{}, false
}

func TestSessionObservability_DispatchSuccess(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	transport := &scriptedTransport{}
	session := authenticatedSession(t, transport, newManualClock(1_000), liveState(),
		WithMetricsRecorder(metrics),
		WithLoggerProvider(stubLoggerProvider{logger: logger}),
		WithLogger(logger),
	)

	if _, err := session.Dispatch(context.Background(), OutboundRequest{Method: http.MethodGet, Endpoint: "accounts"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !hasCounter(metrics.counters, "brokerage.dispatch.total", "success") {
		t.Fatalf("expected brokerage.dispatch.total success counter")
	}
	entry, ok := findLog(logger.snapshot(), "debug", "dispatch succeeded")
	if !ok {
		t.Fatalf("expected dispatch succeeded log")
	}
	if entry.fields["endpoint"] != "accounts" || entry.fields["status_code"] != http.StatusOK {
		t.Fatalf("unexpected log fields: %#v", entry.fields)
	}
}

func TestSessionObservability_DiagnosticLogOnFailure(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	transport := &scriptedTransport{handler: func(TransportRequest) (TransportResponse, error) {
		response := jsonResponse(http.StatusUnauthorized, `{"error":"expired"}`)
		response.Headers.Set("Link", `<https://api.example/next>; rel="next"`)
		return response, nil
	}}
	session := authenticatedSession(t, transport, newManualClock(1_000), liveState(),
		WithMetricsRecorder(metrics),
		WithLoggerProvider(stubLoggerProvider{logger: logger}),
		WithLogger(logger),
	)

	if _, err := session.Dispatch(context.Background(), OutboundRequest{Method: http.MethodGet, Endpoint: "accounts"}); err == nil {
		t.Fatalf("expected response error")
	}
	entry, ok := findLog(logger.snapshot(), "error", "provider request failed")
	if !ok {
		t.Fatalf("expected diagnostic log")
	}
	if entry.fields["status_code"] != http.StatusUnauthorized || entry.fields["text"] != `{"error":"expired"}` {
		t.Fatalf("unexpected diagnostic fields: %#v", entry.fields)
	}
	if links, _ := entry.fields["links"].([]string); len(links) != 1 {
		t.Fatalf("expected link relations in diagnostic log, got %#v", entry.fields["links"])
	}
	if !hasCounter(metrics.counters, "brokerage.dispatch.total", "failure") {
		t.Fatalf("expected failure counter")
	}
}
