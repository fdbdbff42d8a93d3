package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	for _, cfg := range []Config{
		{},
		{Level: "debug", Format: "console", Output: "stderr", TimeFormat: "2006-01-02 15:04:05"},
		{Level: "info", Format: "json", Output: "stdout", Service: "enrollment"},
	} {
		l, err := New(cfg)
		require.NoError(t, err)
		assert.NotNil(t, l)
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(Config{Level: "info", Format: "json", Output: path, Service: "enrollment"})
	require.NoError(t, err)

	l.Debug("dropped below level")
	l.Info("application submitted", zap.String("confirmation_code", "ENR-2026-0000ABCD"))
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry), "exactly one JSON line")
	assert.Equal(t, "application submitted", entry["msg"])
	assert.Equal(t, "enrollment", entry["service"])
	assert.Equal(t, "ENR-2026-0000ABCD", entry["confirmation_code"])
	assert.Contains(t, entry, "time")
}

func TestNew_UnwritableOutput(t *testing.T) {
	_, err := New(Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "app.log")})
	require.Error(t, err)
}

func TestNew_TeesExtraCores(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	l, err := New(Config{Level: "error", Format: "json", Output: "stderr"}, core)
	require.NoError(t, err)

	l.Info("dropped")
	l.Warn("payment gate overridden")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "payment gate overridden", logs.All()[0].Message)
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":    zapcore.DebugLevel,
		"INFO":     zapcore.InfoLevel,
		" Warning": zapcore.WarnLevel,
		"error":    zapcore.ErrorLevel,
		"fatal":    zapcore.FatalLevel,
		"bogus":    zapcore.InfoLevel,
		"":         zapcore.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}
