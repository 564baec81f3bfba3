package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewFallbackWriter(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(Options{Level: "info", Fallback: &buf})
	require.NoError(t, err)
	defer closer.Close()

	logger.Debug("hidden")
	logger.Info("poll failed", Source("snapshot"), Error(errors.New("boom")))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "source=snapshot")
	assert.Contains(t, out, "error=boom")
}

func TestNewVerboseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "startify.log")
	logger, closer, err := New(Options{Level: "error", File: path, Verbose: true})
	require.NoError(t, err)

	logger.Debug("tick", Interval(2*time.Second), DurationMS(1500*time.Millisecond))
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "duration_ms=1500"), string(data))
	assert.Contains(t, string(data), "interval=2s")
}

func TestErrorField(t *testing.T) {
	assert.Equal(t, "", Error(nil).Value.String())
	assert.Equal(t, KeyError, Error(errors.New("x")).Key)
}
