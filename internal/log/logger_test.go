package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerTagsComponentOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Format: "json", Component: ComponentApp, Output: &buf})

	logger.WithComponent(ComponentBudget).InfoContext(context.Background(), "limits saved", FieldUserID, "u1")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if line[FieldComponent] != ComponentBudget {
		t.Errorf("component = %v, want %q", line[FieldComponent], ComponentBudget)
	}
	if strings.Count(buf.String(), `"component"`) != 1 {
		t.Errorf("component should appear once: %s", buf.String())
	}
}

func TestExplicitComponentWins(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "json", Component: ComponentApp, Output: &buf})

	fields := NewFields().WithComponent(ComponentHTTP).WithError(errors.New("boom"))
	logger.Error("failed", fields.ToSlice()...)

	if strings.Count(buf.String(), `"component"`) != 1 || !strings.Contains(buf.String(), `"component":"http"`) {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "text", Output: &buf})
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug line should be filtered, got %q", buf.String())
	}
}

func TestLogFieldsBuilder(t *testing.T) {
	f := NewFields().
		WithUser("u1").
		WithEntity("transaction", "t1").
		WithTransaction("expense", "Food", "12.50").
		WithError(nil)

	if _, ok := f[FieldError]; ok {
		t.Error("nil error should not add a field")
	}
	if f[FieldEntityID] != "t1" || f[FieldAmount] != "12.50" || f[FieldUserID] != "u1" {
		t.Errorf("unexpected fields: %v", f)
	}
	if len(f.ToSlice()) != 2*len(f) {
		t.Errorf("ToSlice length mismatch")
	}
	if _, ok := NewFields().WithEntity("budget", "")[FieldEntityID]; ok {
		t.Error("empty id should be omitted")
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Fatalf("unexpected fallback logger: %+v", l)
	}
}
