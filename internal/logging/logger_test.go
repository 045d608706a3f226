package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/Lpint02/iot-predictive-maintenance/internal/config"
)

func TestNew_JSONCarriesRunAttributes(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{AppEnv: "prod", LogLevel: slog.LevelInfo, Seed: 42}

	logger := New(&buf, cfg, "1.2.3", "motor-simulator")
	logger.Debug("hidden")
	logger.Info("hello", "topic", "sector_1/line_1/engine_1/current")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d records, want 1:\n%s", len(lines), buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("record is not JSON: %v", err)
	}
	want := map[string]any{
		"msg":     "hello",
		"app":     "motor-simulator",
		"version": "1.2.3",
		"env":     "prod",
		"seed":    float64(42),
		"topic":   "sector_1/line_1/engine_1/current",
	}
	for k, v := range want {
		if rec[k] != v {
			t.Errorf("%s = %v, want %v", k, rec[k], v)
		}
	}
}

func TestNew_DevUsesTextHandler(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{AppEnv: "dev", LogLevel: slog.LevelInfo}

	New(&buf, cfg, "dev", "motor-simulator").Info("hello")

	out := buf.String()
	if !strings.Contains(out, "hello") || !strings.Contains(out, "motor-simulator") {
		t.Errorf("dev output = %q, want message and app name", out)
	}
	if json.Valid(bytes.TrimSpace(buf.Bytes())) {
		t.Errorf("dev output is JSON, want tint text: %q", out)
	}
}
