package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		" warn": slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestComponent(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := Component(New(&buf, slog.LevelInfo), "pipeline")
	l.Info("hello", slog.String("kind", "generate"))
	l.Debug("dropped")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "pipeline", rec["component"])
	assert.Equal(t, "generate", rec["kind"])
	assert.Equal(t, "hello", rec["msg"])
}

func TestOpen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	l, closer, err := Open(path, "info")
	require.NoError(t, err)
	l.Info("written")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"written"`)
}

func TestOrDiscard(t *testing.T) {
	t.Parallel()
	assert.NotPanics(t, func() { OrDiscard(nil).Info("nothing") })
}
