package logging

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"chatty", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestInitOnceUnderConcurrency(t *testing.T) {
	var wg sync.WaitGroup
	got := make([]*zap.Logger, 16)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = Init(Config{Level: "error", Format: "json"})
		}(i)
	}
	wg.Wait()

	for _, l := range got {
		assert.Same(t, got[0], l)
	}
	assert.Same(t, got[0], L())
	// A later Init with a different config does not replace the logger.
	assert.Same(t, got[0], Init(Config{Level: "debug"}))
}

func TestNewWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idphoto.log")
	l := New(Config{Level: "info", Format: "console", File: path, MaxSizeMB: 1})
	l.Info("hello", zap.String("k", "v"))
	l.Debug("dropped")
	_ = l.Sync() // stderr sync fails on pipes; the file write is synchronous

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.NotContains(t, string(data), "dropped")
}

func TestWithOperation(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	WithOperation(zap.New(core), "process", "req-1").Info("done")
	WithOperation(zap.New(core), "batch", "").Info("done")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "process", entries[0].ContextMap()["operation"])
	assert.Equal(t, "req-1", entries[0].ContextMap()["request_id"])
	_, has := entries[1].ContextMap()["request_id"]
	assert.False(t, has)
}
