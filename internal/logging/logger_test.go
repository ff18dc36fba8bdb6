package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qepting91/misinfo-collector/internal/domain"
)

func TestLoggerWritesRunFile(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2022, 11, 20, 14, 30, 5, 0, time.UTC)
	l, err := New(Options{Level: "info", Format: "json", Dir: filepath.Join(dir, "logs"), Name: "reddit", Now: now})
	require.NoError(t, err)

	l.Info("hello", "subreddit", "news")
	l.Debug("hidden")
	require.NoError(t, l.Close())

	assert.Equal(t, filepath.Join(dir, "logs", "reddit_2022_11_20-14_30_05.log"), l.Path)
	data, err := os.ReadFile(l.Path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry), "exactly one json line")
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "news", entry["subreddit"])
	assert.Equal(t, "reddit", entry["cmd"])
}

func TestLoggerTextFormatHasNoColorInFile(t *testing.T) {
	dir := t.TempDir()
	l, err := New(Options{Level: "debug", Dir: dir, Name: "stream"})
	require.NoError(t, err)
	l.Debug("tick", "n", 1)
	require.NoError(t, l.Close())

	data, err := os.ReadFile(l.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tick")
	assert.NotContains(t, string(data), "\x1b[")
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
