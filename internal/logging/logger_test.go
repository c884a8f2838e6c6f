package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"ffbuild/internal/config"
	"ffbuild/internal/logging"
)

func TestNewFromConfigWritesRotatingFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Level = "warn"

	var console bytes.Buffer
	logger, closer, err := logging.NewFromConfig(&cfg, &console)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger instance")
	}
	logger.Debug("configure output", logging.String(logging.FieldStep, "configure"))
	logger.Warn("slow download")
	if err := closer.Close(); err != nil {
		t.Fatalf("close log file: %v", err)
	}
	if strings.Contains(console.String(), "configure output") || !strings.Contains(console.String(), "slow download") {
		t.Fatalf("console should honour the configured level, got %q", console.String())
	}

	data, err := os.ReadFile(cfg.LogPath())
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := strings.SplitN(strings.TrimSpace(string(data)), "\n", 2)[0]
	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		t.Fatalf("log file line is not JSON: %v\n%s", err, line)
	}
	if record["msg"] != "configure output" || record["level"] != "debug" {
		t.Fatalf("unexpected record: %v", record)
	}
	if record[logging.FieldStep] != "configure" {
		t.Fatalf("expected step field, got %v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestConsoleFormatIncludesComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "console", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger = logging.NewComponentLogger(logger, "pipeline")
	logger.Info("target complete", logging.String(logging.FieldABI, "arm64-v8a"), logging.String("note", "two words"))
	logger.Debug("hidden")

	out := buf.String()
	if strings.Count(out, "\n") != 1 {
		t.Fatalf("expected exactly one line, got %q", out)
	}
	for _, want := range []string{"INFO ", "pipeline: target complete", "abi=arm64-v8a", `note="two words"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output %q", want, out)
		}
	}
	if strings.Contains(out, "component=") {
		t.Fatalf("component should be rendered as a prefix, got %q", out)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Format: "json", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("slow step", logging.Int("exit_code", 2))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if record["level"] != "warn" {
		t.Fatalf("expected lowercase level, got %v", record["level"])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", record)
	}
}

func TestWithContextAddsRunFields(t *testing.T) {
	var buf bytes.Buffer
	base, err := logging.New(logging.Options{Level: "info", Format: "json", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := logging.WithRunID(context.Background(), "run-1")
	ctx = logging.WithABI(ctx, "x86")
	ctx = logging.WithStep(ctx, "install")

	if id, ok := logging.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id %q ok=%v", id, ok)
	}

	logging.WithContext(ctx, base).Info("done")
	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if record[logging.FieldRunID] != "run-1" || record[logging.FieldABI] != "x86" || record[logging.FieldStep] != "install" {
		t.Fatalf("missing context fields: %v", record)
	}
}

func TestWithContextWithoutFieldsReturnsLogger(t *testing.T) {
	logger := logging.NewNop()
	if got := logging.WithContext(context.Background(), logger); got != logger {
		t.Fatal("expected same logger when context carries no fields")
	}
	if logging.WithContext(context.Background(), nil) == nil {
		t.Fatal("expected nop logger for nil input")
	}
}
