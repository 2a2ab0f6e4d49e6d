package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(""))
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	log := New(slog.LevelInfo, &buf)

	log.Debug("hidden")
	log.Info("api request", "method", "GET", "empty", "", "status", 200)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "api request")
	assert.Contains(t, out, "method=GET")
	assert.Contains(t, out, "status=200")
	assert.NotContains(t, out, "empty=")
	assert.NotContains(t, out, "\x1b[", "a buffer is not a terminal")
}

func TestInit(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	Init(slog.LevelDebug, &buf)
	slog.Debug("debug line")
	assert.Contains(t, buf.String(), "debug line")
}
