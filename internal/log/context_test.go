package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestContextCorrelationFields(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithRunID(ctx, "run-9")

	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Fatalf("request id: got %q", got)
	}
	if got := RunIDFromContext(ctx); got != "run-9" {
		t.Fatalf("run id: got %q", got)
	}

	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "test"})
	logger := WithComponentFromContext(ctx, "pipeline")
	logger.Info().Str("event", "test.event").Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	for k, want := range map[string]string{
		"request_id": "req-1",
		"run_id":     "run-9",
		"component":  "pipeline",
		"event":      "test.event",
	} {
		if entry[k] != want {
			t.Errorf("field %s: got %v, want %s", k, entry[k], want)
		}
	}
}

func TestFromContextNilSafe(t *testing.T) {
	if l := FromContext(nil); l == nil {
		t.Fatal("FromContext(nil) returned nil logger")
	}
	if id := RequestIDFromContext(nil); id != "" {
		t.Fatalf("expected empty id, got %q", id)
	}
}
