package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerAttachesComponentOnce(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Format: "json", Component: ComponentBoard, Output: &buf})
	l.WithComponent(ComponentPersist).Info("saved", FieldSlot, "tasks")

	out := buf.String()
	if strings.Count(out, `"component"`) != 1 || !strings.Contains(out, `"component":"persist"`) {
		t.Fatalf("unexpected output %s", out)
	}
	if !strings.Contains(out, `"slot":"tasks"`) {
		t.Fatalf("missing attribute in %s", out)
	}
}

func TestStructuredLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Level: slog.LevelDebug, Output: &buf}))
	r := httptest.NewRequest(http.MethodPost, "/tasks", nil)

	sl.LogHTTPEnd(context.Background(), r, 422, 3, "10.0.0.1")
	if !strings.Contains(buf.String(), "level=WARN") {
		t.Fatalf("4xx should log at warn: %s", buf.String())
	}
	buf.Reset()
	sl.LogError(context.Background(), "save failed", errors.New("disk full"), ComponentPersist, OpSave, nil)
	if !strings.Contains(buf.String(), "disk full") || !strings.Contains(buf.String(), "operation=save") {
		t.Fatalf("unexpected error log: %s", buf.String())
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatal("expected fallback logger")
	}
}

func TestNewContextRoundTrip(t *testing.T) {
	l := WithComponent(ComponentHTTP)
	if got := FromContext(NewContext(context.Background(), l)); got != l {
		t.Fatal("FromContext did not return the installed logger")
	}
}
