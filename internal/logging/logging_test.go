package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{"TRACE", zapcore.DebugLevel},
		{" Warn ", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNew_Formats(t *testing.T) {
	for _, format := range []string{"", FormatConsole, FormatJSON} {
		log, err := New(Config{Level: "info", Format: format})
		require.NoError(t, err, format)
		assert.NotNil(t, log)
	}

	_, err := New(Config{Format: "xml"})
	assert.Error(t, err)
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gochat.log")

	log, err := New(Config{Level: "info", Format: FormatJSON, File: path})
	require.NoError(t, err)
	log.Info("hello file")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello file")
}

func TestNew_RejectsDirectoryAsFile(t *testing.T) {
	_, err := New(Config{File: t.TempDir()})

	assert.Error(t, err)
}
