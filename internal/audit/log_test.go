package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/mc855/authenticator/internal/auth"
	"github.com/mc855/authenticator/internal/obs"
)

func TestLogEvent(t *testing.T) {
	logger := obs.Logger()
	original := logger.Out
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(original)

	ctx := WithRequestID(context.Background(), "req-123")
	ctx = auth.ContextWithCurrentUser(ctx, auth.CurrentUser{Username: "ra123456"})

	if err := LogEvent(ctx, "auth.token.issued", map[string]any{"roles": 2}); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	line := buf.Bytes()
	if len(line) == 0 {
		t.Fatal("expected log output")
	}
	var entry map[string]any
	if err := json.Unmarshal(line, &entry); err != nil {
		t.Fatalf("log not valid JSON: %v", err)
	}
	if entry["type"] != "audit" {
		t.Fatalf("unexpected type: %v", entry["type"])
	}
	if entry["event"] != "auth.token.issued" {
		t.Fatalf("unexpected event: %v", entry["event"])
	}
	if entry["request_id"] != "req-123" {
		t.Fatalf("unexpected request id: %v", entry["request_id"])
	}
	if entry["username"] != "ra123456" {
		t.Fatalf("unexpected username: %v", entry["username"])
	}
	if entry["roles"] != float64(2) {
		t.Fatalf("unexpected roles field: %v", entry["roles"])
	}
}

func TestLogEventRequiresName(t *testing.T) {
	if err := LogEvent(context.Background(), "  ", nil); err == nil {
		t.Fatal("expected error for blank event name")
	}
}
