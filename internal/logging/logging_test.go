package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// captureLogOutput captures log output for testing by temporarily
// redirecting the logger to write to a buffer
func captureLogOutput(f func()) string {
	var buf bytes.Buffer

	oldLogger := defaultLogger
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	defaultLogger = slog.New(handler)

	f()

	defaultLogger = oldLogger
	return buf.String()
}

// captureLogOutputWithInit captures output by reinitializing the logger
// to write to a buffer. This tests the actual InitLoggerTo ReplaceAttr logic.
func captureLogOutputWithInit(level Level, format Format, f func()) string {
	var buf bytes.Buffer
	InitLoggerTo(&buf, level, format)
	f()
	InitLogger(LevelInfo, FormatJSON)
	return buf.String()
}

func decodeLine(t *testing.T, output string) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	line := strings.TrimSpace(strings.Split(strings.TrimSpace(output), "\n")[0])
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("log line is not JSON: %v: %q", err, line)
	}
	return m
}

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name   string
		level  Level
		format Format
	}{
		{"Debug level JSON format", LevelDebug, FormatJSON},
		{"Info level JSON format", LevelInfo, FormatJSON},
		{"Warn level JSON format", LevelWarn, FormatJSON},
		{"Error level JSON format", LevelError, FormatJSON},
		{"Info level Text format", LevelInfo, FormatText},
		{"Default level (invalid value)", Level(999), FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			InitLogger(tt.level, tt.format)
			if GetLogger() == nil {
				t.Error("Expected logger to be initialized, got nil")
			}
		})
	}
	InitLogger(LevelInfo, FormatJSON)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{" warn ", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"verbose", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if ParseFormat("text") != FormatText {
		t.Error("ParseFormat(text) should be FormatText")
	}
	if ParseFormat("TEXT") != FormatText {
		t.Error("ParseFormat(TEXT) should be FormatText")
	}
	if ParseFormat("json") != FormatJSON || ParseFormat("xml") != FormatJSON {
		t.Error("ParseFormat should default to FormatJSON")
	}
}

func TestLevelFiltering(t *testing.T) {
	output := captureLogOutputWithInit(LevelWarn, FormatJSON, func() {
		Info("hidden")
		Warn("shown")
	})
	if strings.Contains(output, "hidden") {
		t.Error("Info message should be filtered at warn level")
	}
	if !strings.Contains(output, "shown") {
		t.Error("Warn message should be logged at warn level")
	}
}

func TestRunID(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-123")
	if got := GetRunID(ctx); got != "run-123" {
		t.Errorf("GetRunID() = %q, want %q", got, "run-123")
	}
	if got := GetRunID(context.Background()); got != "" {
		t.Errorf("GetRunID(empty) = %q, want empty", got)
	}

	output := captureLogOutput(func() {
		InfoContext(ctx, "with run")
	})
	m := decodeLine(t, output)
	if m["run_id"] != "run-123" {
		t.Errorf("run_id = %v, want run-123", m["run_id"])
	}
}

func TestLoggingFunctions(t *testing.T) {
	tests := []struct {
		name  string
		fn    func(string, ...any)
		level string
	}{
		{"Debug", Debug, "DEBUG"},
		{"Info", Info, "INFO"},
		{"Warn", Warn, "WARN"},
		{"Error", Error, "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := captureLogOutput(func() {
				tt.fn("test message", "key", "value")
			})
			m := decodeLine(t, output)
			if m["level"] != tt.level {
				t.Errorf("level = %v, want %s", m["level"], tt.level)
			}
			if m["key"] != "value" {
				t.Errorf("key = %v, want value", m["key"])
			}
		})
	}
}

func TestContextLoggingFunctions(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		fn    func(context.Context, string, ...any)
		level string
	}{
		{"DebugContext", DebugContext, "DEBUG"},
		{"InfoContext", InfoContext, "INFO"},
		{"WarnContext", WarnContext, "WARN"},
		{"ErrorContext", ErrorContext, "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := captureLogOutput(func() {
				tt.fn(ctx, "ctx message")
			})
			if m := decodeLine(t, output); m["level"] != tt.level {
				t.Errorf("level = %v, want %s", m["level"], tt.level)
			}
		})
	}
}

func TestLayerEvent(t *testing.T) {
	output := captureLogOutput(func() {
		LayerEvent(context.Background(), "attach", "words", 12, "text_id", "t1")
	})
	m := decodeLine(t, output)
	if m["msg"] != "layer_event" || m["layer"] != "words" || m["spans"] != float64(12) || m["text_id"] != "t1" {
		t.Errorf("LayerEvent logged %v", m)
	}
}

func TestTaggerRun(t *testing.T) {
	output := captureLogOutput(func() {
		TaggerRun(context.Background(), "SentenceTagger", "sentences", 3, 1500*time.Millisecond)
	})
	m := decodeLine(t, output)
	if m["msg"] != "tagger_run" || m["tagger"] != "SentenceTagger" || m["duration_ms"] != float64(1500) {
		t.Errorf("TaggerRun logged %v", m)
	}
}

func TestTaggerError(t *testing.T) {
	output := captureLogOutput(func() {
		TaggerError(context.Background(), "RegexTagger", "dates", errors.New("bad pattern"))
	})
	m := decodeLine(t, output)
	if m["level"] != "ERROR" || m["error"] != "bad pattern" {
		t.Errorf("TaggerError logged %v", m)
	}
}

func TestStorageEvent(t *testing.T) {
	output := captureLogOutput(func() {
		StorageEvent(context.Background(), "insert", "texts", "id", 7)
	})
	m := decodeLine(t, output)
	if m["level"] != "DEBUG" || m["operation"] != "insert" || m["id"] != float64(7) {
		t.Errorf("StorageEvent logged %v", m)
	}
}

func TestCollectionEvent(t *testing.T) {
	output := captureLogOutput(func() {
		CollectionEvent("pack", "/tmp/c.tar.xz", 4)
	})
	m := decodeLine(t, output)
	if m["msg"] != "collection_event" || m["entries"] != float64(4) {
		t.Errorf("CollectionEvent logged %v", m)
	}
}

func TestReplaceAttrTimestamp(t *testing.T) {
	output := captureLogOutputWithInit(LevelInfo, FormatJSON, func() {
		Info("timestamp test")
	})
	m := decodeLine(t, output)
	ts, ok := m["time"].(string)
	if !ok {
		t.Fatalf("time = %v, want string", m["time"])
	}
	if _, err := time.Parse(time.RFC3339, ts); err != nil {
		t.Errorf("time %q is not RFC3339: %v", ts, err)
	}
}

func TestTextFormat(t *testing.T) {
	output := captureLogOutputWithInit(LevelInfo, FormatText, func() {
		Info("test message text", "key", "value")
	})
	if !strings.Contains(output, "test message text") || !strings.Contains(output, "key=value") {
		t.Errorf("text output = %q", output)
	}
}

func TestInit(t *testing.T) {
	if defaultLogger == nil {
		t.Error("Expected defaultLogger to be initialized by init()")
	}
}

func TestContextKeyType(t *testing.T) {
	if RunIDKey != "run_id" {
		t.Errorf("Expected RunIDKey to be 'run_id', got '%s'", RunIDKey)
	}
}
