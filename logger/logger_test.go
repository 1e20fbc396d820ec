package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/donecollectively/stellar-contracts-sub001/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"", zapcore.InfoLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{"Error", zapcore.ErrorLevel},
	}
	for _, tc := range tests {
		got, err := ParseLevel(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Network = "mainnet"
	cfg.LogLevel = "warn"
	cfg.LogFile = "/tmp/x.log"

	opts := FromConfig(cfg)
	assert.True(t, opts.JSON)
	assert.False(t, opts.Color)
	assert.Equal(t, "warn", opts.Level)
	assert.Equal(t, "/tmp/x.log", opts.OutputPath)
	assert.Equal(t, "mainnet", opts.Network)

	cfg.Network = "emulator"
	opts = FromConfig(cfg)
	assert.False(t, opts.JSON)
	assert.True(t, opts.Color)
}

func TestNewJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sdk.log")

	l, err := New(Options{Level: "info", JSON: true, OutputPath: path, Network: "preview"})
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("submitted", zap.String("txid", "abcd"))
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "submitted", entry["message"])
	assert.Equal(t, "abcd", entry["txid"])
	assert.Equal(t, "preview", entry["network"])
	assert.Contains(t, entry, "timestamp")
}

func TestNewConsoleToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sdk.log")

	l, err := New(Options{Level: "debug", OutputPath: path})
	require.NoError(t, err)
	l.Debug("building", zap.Int("inputs", 2))
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "DEBUG")
	assert.Contains(t, string(data), "building")
}

func TestNewBadLevel(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	l := zap.NewExample()
	assert.Same(t, l, OrNop(l))
}
