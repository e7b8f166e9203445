package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("evaluation complete", "mode", "EXECUTE", "matched", 3)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["msg"] != "evaluation complete" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["mode"] != "EXECUTE" {
		t.Errorf("mode = %v", entry["mode"])
	}
}

func TestNewTextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "debug", Format: "text", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Debug("reloading snapshot", "version", 7)

	if !strings.Contains(buf.String(), "reloading snapshot") {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("should be dropped")
	if buf.Len() != 0 {
		t.Fatalf("info leaked through warn level: %q", buf.String())
	}
	logger.Warn("should appear")
	if buf.Len() == 0 {
		t.Fatal("warn entry missing")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"ERROR", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		level, err := parseLevel(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLevel(%q) error = %v", tt.input, err)
			continue
		}
		if !tt.wantErr && level != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, level, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if _, err := parseFormat("xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
	for _, input := range []string{"json", "text", "console", ""} {
		if _, err := parseFormat(input); err != nil {
			t.Errorf("parseFormat(%q) failed: %v", input, err)
		}
	}
}
