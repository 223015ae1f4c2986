package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestNewWriterEmitsFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "debug").With(String("ticker", "ACME"))

	l.Info("analysis complete",
		String("verdict", "PROCEED"),
		Int("count_a", 0),
		Float64("size", 0.125),
		Bool("veto", false),
		Error(errors.New("boom")),
	)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if entry["message"] != "analysis complete" {
		t.Fatalf("message = %v", entry["message"])
	}
	if entry["ticker"] != "ACME" || entry["verdict"] != "PROCEED" {
		t.Fatalf("missing string fields: %v", entry)
	}
	if entry["size"] != 0.125 {
		t.Fatalf("size = %v", entry["size"])
	}
	if entry["error"] != "boom" {
		t.Fatalf("error = %v", entry["error"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "warn")

	l.Debug("hidden")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn, got %q", buf.String())
	}
	l.Warn("shown")
	if buf.Len() == 0 {
		t.Fatalf("expected warn output")
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(&Config{Level: "loud", Output: "stdout"}); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}
