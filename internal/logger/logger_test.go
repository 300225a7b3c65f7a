package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture swaps in a JSON logger writing to a buffer for the duration of the test
func capture(t *testing.T, level logrus.Level) *bytes.Buffer {
	t.Helper()
	prev := GetLogger()
	buf := &bytes.Buffer{}
	l := logrus.New()
	l.SetOutput(buf)
	l.SetLevel(level)
	l.SetFormatter(&logrus.JSONFormatter{})
	SetLogger(l)
	t.Cleanup(func() { SetLogger(prev) })
	return buf
}

func entries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestInitLogger(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name   string
		config Config
	}{
		{"file only", Config{Level: "info", File: filepath.Join(dir, "a.log"), MaxSize: 1, MaxBackups: 1, MaxAge: 1}},
		{"stdout only", Config{Level: "debug", EnableStdout: true}},
		{"file and stdout", Config{Level: "warn", File: filepath.Join(dir, "b.log"), EnableStdout: true}},
		{"no output", Config{Level: "info"}},
		{"invalid level", Config{Level: "invalid"}},
	}

	prev := GetLogger()
	t.Cleanup(func() { SetLogger(prev) })
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, InitLogger(tt.config))
			assert.NotNil(t, GetLogger())
		})
	}
}

func TestInitLogger_CreatesLogDirectoryAndWrites(t *testing.T) {
	prev := GetLogger()
	t.Cleanup(func() { SetLogger(prev) })

	logFile := filepath.Join(t.TempDir(), "nested", "slashkit.log")
	require.NoError(t, InitLogger(Config{Level: "info", File: logFile, MaxSize: 1}))

	Info("written-to-file")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written-to-file")
}

func TestLogLevelSetting(t *testing.T) {
	prev := GetLogger()
	t.Cleanup(func() { SetLogger(prev) })

	tests := []struct {
		level    string
		expected logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"invalid", logrus.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			require.NoError(t, InitLogger(Config{Level: tt.level}))
			assert.Equal(t, tt.expected, GetLogger().GetLevel())
		})
	}
}

func TestFormatterSetting(t *testing.T) {
	prev := GetLogger()
	t.Cleanup(func() { SetLogger(prev) })

	require.NoError(t, InitLogger(Config{Level: "debug"}))
	assert.IsType(t, &logrus.TextFormatter{}, GetLogger().Formatter)

	require.NoError(t, InitLogger(Config{Level: "info"}))
	assert.IsType(t, &logrus.JSONFormatter{}, GetLogger().Formatter)

	require.NoError(t, InitLogger(Config{Level: "info", Format: "text"}))
	assert.IsType(t, &logrus.TextFormatter{}, GetLogger().Formatter)
}

func TestGetLogger_ReturnsSameInstance(t *testing.T) {
	assert.Same(t, GetLogger(), GetLogger())
}

func TestLogFunctions(t *testing.T) {
	buf := capture(t, logrus.InfoLevel)

	Debug("hidden")
	Info("info-message")
	Warn("warn-message")
	Error("error-message")
	Infof("info %s", "formatted")
	Warnf("warn %d", 2)
	Errorf("error %v", true)

	got := entries(t, buf)
	require.Len(t, got, 6)
	assert.Equal(t, "info-message", got[0]["msg"])
	assert.Equal(t, "warning", got[1]["level"])
	assert.Equal(t, "error", got[2]["level"])
	assert.Equal(t, "info formatted", got[3]["msg"])
	assert.Equal(t, "warn 2", got[4]["msg"])
	assert.Equal(t, "error true", got[5]["msg"])
}

func TestWithFields(t *testing.T) {
	buf := capture(t, logrus.DebugLevel)

	WithFields(logrus.Fields{"command": "math add", "actor": "alice"}).Info("slash-command-executed")
	WithField("scope", "global").Debug("slash-scope-registered")
	WithError(errors.New("boom")).Warn("session-cleanup-failed")

	got := entries(t, buf)
	require.Len(t, got, 3)
	assert.Equal(t, "math add", got[0]["command"])
	assert.Equal(t, "alice", got[0]["actor"])
	assert.Equal(t, "global", got[1]["scope"])
	assert.Equal(t, "boom", got[2]["error"])
}
