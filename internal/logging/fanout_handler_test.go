package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func jsonAt(buf *bytes.Buffer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: level})
}

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every sink is nil")
	}
	var buf bytes.Buffer
	only := jsonAt(&buf, slog.LevelInfo)
	if h := newFanoutHandler(nil, only, nil); h != only {
		t.Fatalf("expected lone sink returned unwrapped, got %T", h)
	}
}

func TestFanoutConsoleAndFileLevels(t *testing.T) {
	var console, file bytes.Buffer
	logger := slog.New(newFanoutHandler(jsonAt(&console, slog.LevelInfo), jsonAt(&file, slog.LevelDebug)))

	logger.Debug("checking for config.h")
	logger.Info("running step", slog.String("step", "configure"))

	if strings.Contains(console.String(), "config.h") {
		t.Fatalf("console received debug line: %s", console.String())
	}
	if !strings.Contains(file.String(), "config.h") {
		t.Fatalf("file missing debug line: %s", file.String())
	}
	for name, buf := range map[string]*bytes.Buffer{"console": &console, "file": &file} {
		if !strings.Contains(buf.String(), `"step":"configure"`) {
			t.Fatalf("%s missing info record: %s", name, buf.String())
		}
	}
	if newFanoutHandler(jsonAt(&console, slog.LevelWarn), jsonAt(&file, slog.LevelError)).Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("expected info disabled when no sink admits it")
	}
}

func TestFanoutDerivedHandlersKeepFields(t *testing.T) {
	var a, b bytes.Buffer
	h := newFanoutHandler(jsonAt(&a, slog.LevelInfo), jsonAt(&b, slog.LevelInfo)).
		WithAttrs([]slog.Attr{slog.String(FieldABI, "x86")}).
		WithGroup("relocs")
	slog.New(h).Info("scan", slog.Int("flagged", 1))

	for _, buf := range []*bytes.Buffer{&a, &b} {
		out := buf.String()
		if !strings.Contains(out, `"abi":"x86"`) || !strings.Contains(out, `"relocs":{"flagged":1}`) {
			t.Fatalf("derived handler lost fields: %s", out)
		}
	}
}

func TestFanoutJoinsSinkErrors(t *testing.T) {
	var ok bytes.Buffer
	h := newFanoutHandler(slog.NewJSONHandler(failingWriter{}, nil), jsonAt(&ok, slog.LevelInfo))
	record := slog.NewRecord(time.Now(), slog.LevelInfo, "install", 0)

	err := h.Handle(context.Background(), record)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected joined write error, got %v", err)
	}
	if ok.Len() == 0 {
		t.Fatal("expected healthy sink to still receive the record")
	}
}
