package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if _, err := New(Options{Level: "DEBUG", Format: "console"}); err != nil {
		t.Fatalf("new: %v", err)
	}
}

func TestObjEntriesCarryEventAndFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core))

	log.WarnObj("source failed", "source_failed", map[string]any{"source": "cnbc", "attempt": 2})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Level != zapcore.WarnLevel || e.Message != "source failed" {
		t.Fatalf("unexpected entry: %+v", e.Entry)
	}
	ctx := e.ContextMap()
	if ctx["event"] != "source_failed" || ctx["source"] != "cnbc" {
		t.Fatalf("unexpected fields: %v", ctx)
	}
}

func TestFromZapNilIsNop(t *testing.T) {
	t.Parallel()

	log := FromZap(nil)
	if _, ok := log.(NopLogger); !ok {
		t.Fatalf("expected NopLogger, got %T", log)
	}
	if err := log.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}
}
