package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FormatByEnvironment(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		wantJSON    bool
	}{
		{name: "production uses json", environment: "production", wantJSON: true},
		{name: "development uses pretty", environment: "development", wantJSON: false},
		{name: "staging uses pretty", environment: "staging", wantJSON: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(Config{Level: slog.LevelInfo, Environment: tt.environment, Writer: &buf})
			log.Info("shelf changed")

			if tt.wantJSON {
				assert.Contains(t, buf.String(), `"msg":"shelf changed"`)
			} else {
				assert.Contains(t, buf.String(), "INF")
				assert.Contains(t, buf.String(), "shelf changed")
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestPrettyHandler_GroupsAndQuoting(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, nil))

	log.WithGroup("req").Info("done", "path", "/api/v1/me", "note", "two words")

	out := buf.String()
	assert.Contains(t, out, "req.path=/api/v1/me")
	assert.Contains(t, out, `req.note="two words"`)
}

func TestPrettyHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	log.Info("hidden")
	log.Warn("visible")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "WRN")
}

func TestLogger_WithHelpers(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Format: "json", Writer: &buf})

	log.WithError(errors.New("boom")).
		WithField("user_id", "u-1").
		WithFields(map[string]any{"book_id": 42}).
		Info("favorite rejected")

	out := buf.String()
	assert.Contains(t, out, `"error":"boom"`)
	assert.Contains(t, out, `"user_id":"u-1"`)
	assert.Contains(t, out, `"book_id":42`)
}

func TestNew_RotatingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "readup.log")

	var console bytes.Buffer
	log := New(Config{Writer: &console, Format: "pretty", File: &FileConfig{Path: path, MaxSizeMB: 1}})
	log.Info("written twice", "book_id", 7)
	require.NoError(t, log.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"written twice"`)
	assert.Contains(t, console.String(), "written twice")
}
