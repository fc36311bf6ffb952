package gologger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/rs/zerolog"
)

func TestResolveDeterministicFallback(t *testing.T) {
	var buf bytes.Buffer
	providerLogger := NewZerologLogger(zerolog.New(&buf))
	provider := NewZerologProvider(providerLogger)
	loggerOnly := NewZerologLogger(zerolog.Nop())

	_, resolved := Resolve("brokerage", provider, loggerOnly)
	resolved.Info("from provider")
	if !strings.Contains(buf.String(), `"logger":"brokerage"`) {
		t.Fatalf("expected provider logger precedence, got %q", buf.String())
	}

	resolvedProvider, resolved := Resolve("brokerage", nil, loggerOnly)
	if resolved != glog.Logger(loggerOnly) {
		t.Fatalf("expected direct logger when provider is nil")
	}
	if resolvedProvider == nil {
		t.Fatalf("expected provider wrapper from logger")
	}

	if _, resolved = Resolve("brokerage", nil, nil); resolved == nil {
		t.Fatalf("expected nop logger fallback")
	}
}

func TestZerologLogger_WritesArgsAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(zerolog.New(&buf))

	withFields := logger.WithFields(map[string]any{"endpoint": "marketdata/quotes", "status_code": 200})
	withFields.WithContext(context.Background()).Warn("dispatch", "status_code", 200, "duration_ms", 12)

	entry := decodeLine(t, buf.String())
	if entry["level"] != "warn" || entry["message"] != "dispatch" {
		t.Fatalf("unexpected entry %#v", entry)
	}
	if entry["endpoint"] != "marketdata/quotes" {
		t.Fatalf("expected field from WithFields, got %#v", entry)
	}
	if entry["duration_ms"] != float64(12) {
		t.Fatalf("expected arg pair, got %#v", entry)
	}
	if strings.Count(buf.String(), `"status_code"`) != 1 {
		t.Fatalf("expected duplicate keys to be collapsed, got %q", buf.String())
	}
}

func TestZerologLogger_OddArgsAreKept(t *testing.T) {
	var buf bytes.Buffer
	NewZerologLogger(zerolog.New(&buf)).Info("odd", "dangling")

	entry := decodeLine(t, buf.String())
	if entry["arg"] != "dangling" {
		t.Fatalf("expected dangling arg to be logged, got %#v", entry)
	}
}

func TestZerologLogger_WithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewZerologLogger(zerolog.New(&buf))
	_ = parent.WithFields(map[string]any{"account_id": "123"})

	parent.Info("plain")
	if strings.Contains(buf.String(), "account_id") {
		t.Fatalf("expected parent logger to stay field free, got %q", buf.String())
	}
}

func TestNewConsoleLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger(&buf, "warn")
	logger.Info("hidden")
	logger.Error("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected console output %q", out)
	}
}

func decodeLine(t *testing.T, raw string) map[string]any {
	t.Helper()
	line := strings.TrimSpace(raw)
	entry := map[string]any{}
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", line, err)
	}
	return entry
}
