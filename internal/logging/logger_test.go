// Package logging tests for structured JSON logging.
package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("Output is not valid JSON: %v (%q)", err, line)
		}
		entries = append(entries, entry)
	}
	return entries
}

// TestInit_idempotent verifies Init is idempotent.
func TestInit_idempotent(t *testing.T) {
	global = nil
	once = *new(sync.Once)

	var buf1, buf2 bytes.Buffer
	Init(&buf1, LevelInfo)
	first := Get()

	Init(&buf2, LevelDebug)
	if Get() != first {
		t.Error("Second Init() should be ignored, different logger returned")
	}
	if Get().Level() != LevelInfo {
		t.Errorf("Level() = %v, want LevelInfo", Get().Level())
	}
}

// TestParseLevel verifies config strings map to levels.
func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{" error ", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

// TestLogger_Info verifies message and context fields are emitted as JSON.
func TestLogger_Info(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelInfo)

	logger.Info("entry synced", map[string]interface{}{"ticket": "OFF-1"})

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0]["message"] != "entry synced" {
		t.Errorf("message = %v, want 'entry synced'", entries[0]["message"])
	}
	if entries[0]["level"] != "info" {
		t.Errorf("level = %v, want 'info'", entries[0]["level"])
	}
	if entries[0]["ticket"] != "OFF-1" {
		t.Errorf("ticket = %v, want 'OFF-1'", entries[0]["ticket"])
	}
	if _, ok := entries[0]["timestamp"]; !ok {
		t.Error("timestamp field missing")
	}
}

// TestLogger_levelFiltering verifies messages below the minimum are dropped.
func TestLogger_levelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelWarn)

	logger.Debug("dropped")
	logger.Info("dropped")
	logger.Warn("kept")

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0]["message"] != "kept" {
		t.Errorf("message = %v, want 'kept'", entries[0]["message"])
	}
}

// TestLogger_ErrorWithCode verifies error logging with code.
func TestLogger_ErrorWithCode(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelInfo)

	logger.ErrorWithCode("upload failed", "UPLOAD_ERROR", errors.New("timeout"),
		map[string]interface{}{"photo_id": 7}, map[string]interface{}{"zone": "Z1"})

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	entry := entries[0]
	if entry["error"] != "timeout" {
		t.Errorf("error = %v, want 'timeout'", entry["error"])
	}
	if entry["error_code"] != "UPLOAD_ERROR" {
		t.Errorf("error_code = %v, want 'UPLOAD_ERROR'", entry["error_code"])
	}
	if entry["zone"] != "Z1" || entry["photo_id"] != float64(7) {
		t.Errorf("merged context missing: %v", entry)
	}
}
