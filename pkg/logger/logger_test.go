package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"litegram/pkg/config"
)

func decodeEntry(t *testing.T, out *bytes.Buffer) LogEntry {
	t.Helper()

	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("expected log output")
	}

	var entry LogEntry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("unmarshal log entry: %v", err)
	}
	return entry
}

func TestLoggerJSONEntryShape(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "info"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.With("component", "gateway", "update_id", int64(1001), "cycle_id", "c-1").
		Info("Update handled", "fired", true, "error", errors.New("none"))

	entry := decodeEntry(t, &out)
	if entry.Level != "info" {
		t.Fatalf("level = %q, want %q", entry.Level, "info")
	}
	if entry.Message != "Update handled" {
		t.Fatalf("message = %q, want %q", entry.Message, "Update handled")
	}
	if entry.Component != "gateway" {
		t.Fatalf("component = %q, want %q", entry.Component, "gateway")
	}
	if entry.UpdateID != 1001 {
		t.Fatalf("update_id = %d, want 1001", entry.UpdateID)
	}
	if entry.CycleID != "c-1" {
		t.Fatalf("cycle_id = %q, want c-1", entry.CycleID)
	}
	if entry.Timestamp == "" {
		t.Fatal("expected timestamp")
	}
	if got := entry.Fields["fired"]; got != true {
		t.Fatalf("fields.fired = %v, want true", got)
	}
	if got := entry.Fields["error"]; got != "none" {
		t.Fatalf("fields.error = %v, want %q", got, "none")
	}
	if _, ok := entry.Fields["update_id"]; ok {
		t.Fatal("update_id should not be duplicated into fields")
	}
}

func TestLoggerGroupsPrefixFields(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.WithGroup("webhook").Info("Rejected", "component", "nested", "status", 401)

	entry := decodeEntry(t, &out)
	if entry.Component != "" {
		t.Fatalf("component = %q, want grouped attr left in fields", entry.Component)
	}
	if got := entry.Fields["webhook.status"]; got != float64(401) {
		t.Fatalf("fields[webhook.status] = %v, want 401", got)
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "error"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.Info("Ignored")
	if got := strings.TrimSpace(out.String()); got != "" {
		t.Fatalf("expected no output for info, got %q", got)
	}

	log.Error("Kept")
	if got := strings.TrimSpace(out.String()); got == "" {
		t.Fatal("expected output for error")
	}
}

func TestLoggerEnvironmentOverrides(t *testing.T) {
	t.Setenv(envLevel, "debug")
	t.Setenv(envFormat, "text")
	t.Setenv(envAddSource, "")

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "error"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.Debug("Debug enabled", "component", "test")
	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("expected debug output with env override")
	}
	if strings.HasPrefix(line, "{") {
		t.Fatalf("expected text format override, got %q", line)
	}
}

func TestLoggerRejectsUnknownSettings(t *testing.T) {
	unsetLoggingEnv(t)

	if _, err := newWithWriter(config.LoggingConfig{Format: "xml"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unknown format")
	}
	if _, err := newWithWriter(config.LoggingConfig{Level: "loud"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestLoggerDefaultsToTextFormat(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.Info("Default format")
	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("expected log output")
	}
	if strings.HasPrefix(line, "{") {
		t.Fatalf("expected text format by default, got %q", line)
	}
}

func unsetLoggingEnv(t *testing.T) {
	t.Helper()
	t.Setenv(envLevel, "")
	t.Setenv(envFormat, "")
	t.Setenv(envAddSource, "")
}
