package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// jsonLogger builds a Logger writing JSON to buf for assertions.
func jsonLogger(buf *bytes.Buffer, level zerolog.Level) *Logger {
	return &Logger{logger: zerolog.New(buf).Level(level)}
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Level != "info" || cfg.Format != "console" || cfg.Output != "stderr" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	log := jsonLogger(&buf, zerolog.DebugLevel).WithComponent("executor")
	log.Debug("query issued", Fields(FieldProvider, "todos"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if entry[FieldComponent] != "executor" {
		t.Errorf("component = %v", entry[FieldComponent])
	}
	if entry[FieldProvider] != "todos" {
		t.Errorf("provider = %v", entry[FieldProvider])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := jsonLogger(&buf, zerolog.InfoLevel)
	log.Debug("suppressed")
	if buf.Len() != 0 {
		t.Errorf("debug output not suppressed: %s", buf.String())
	}
	log.Info("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Errorf("info output missing: %s", buf.String())
	}
}

func TestFieldsHelper(t *testing.T) {
	m := Fields("a", 1, "b", "two")
	if m["a"] != 1 || m["b"] != "two" {
		t.Errorf("Fields = %v", m)
	}

	// Odd trailing value is ignored.
	m = Fields("a", 1, "dangling")
	if len(m) != 1 {
		t.Errorf("Fields with dangling key = %v", m)
	}
}

func TestNopDiscards(t *testing.T) {
	// Must not panic and must not write anywhere.
	Nop().Error("ignored", Fields(FieldError, "x"))
}
