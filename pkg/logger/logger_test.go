package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(cfg Config) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return &Logger{config: cfg, logger: log.New(&buf, "", 0)}, &buf
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "TRACE", TraceLevel.String())
	assert.Equal(t, "WARN", WarnLevel.String())
	assert.Equal(t, "UNKNOWN", Level(999).String())
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"trace":   TraceLevel,
		"DEBUG":   DebugLevel,
		"":        InfoLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
	}
	for in, want := range tests {
		got, ok := ParseLevel(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	got, ok := ParseLevel("loud")
	assert.False(t, ok)
	assert.Equal(t, InfoLevel, got)
}

func TestInitialize_RejectsBadLevel(t *testing.T) {
	assert.Error(t, Initialize(Config{Level: Level(42)}))
	require.NoError(t, Initialize(Config{Level: InfoLevel, Component: "test"}))
	assert.Equal(t, "test", defaultLogger.config.Component)
}

func TestPrettyFormatting_SortedFields(t *testing.T) {
	l, _ := newBufferLogger(Config{Level: InfoLevel, Component: "pyreview"})
	entry := LogEntry{
		Time:      time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		Level:     "INFO",
		Message:   "Checks completed",
		Component: "pyreview",
		Fields:    map[string]interface{}{"score": "9.50", "file": "a.py", "issues": 2},
	}
	out := l.formatPretty(InfoLevel, entry)
	assert.Equal(t, "2025-01-01 12:00:00 [INFO] pyreview: Checks completed {file=a.py, issues=2, score=9.50}", out)
}

func TestJSONFormatting(t *testing.T) {
	l, buf := newBufferLogger(Config{Level: InfoLevel, JSON: true, Component: "pyreview"})
	l.Log(InfoLevel, "Running checks", String("file", "a.py"), Duration("took", 1500*time.Millisecond))

	var parsed LogEntry
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &parsed))
	assert.Equal(t, "Running checks", parsed.Message)
	assert.Equal(t, "INFO", parsed.Level)
	assert.Equal(t, "a.py", parsed.Fields["file"])
	assert.Equal(t, "1.5s", parsed.Fields["took"])
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(Config{Level: WarnLevel})
	l.Log(InfoLevel, "info message")
	l.Log(DebugLevel, "debug message")
	l.Log(WarnLevel, "warn message")
	l.Log(ErrorLevel, "error message")

	out := buf.String()
	assert.NotContains(t, out, "info message")
	assert.NotContains(t, out, "debug message")
	assert.Contains(t, out, "warn message")
	assert.Contains(t, out, "error message")
}

func TestDebugIncludesCaller(t *testing.T) {
	require.NoError(t, Initialize(Config{Level: DebugLevel}))
	var buf bytes.Buffer
	SetOutput(&buf)
	Debug("where am I")
	assert.Contains(t, buf.String(), "logger_test.go:")
}

func TestFieldConstructors(t *testing.T) {
	assert.Equal(t, Field{Key: "k", Value: "v"}, String("k", "v"))
	assert.Equal(t, Field{Key: "n", Value: 42}, Int("n", 42))
	assert.Equal(t, Field{Key: "b", Value: true}, Bool("b", true))
	assert.Equal(t, Field{Key: "error", Value: "boom"}, Err(errors.New("boom")))
	assert.Equal(t, Field{Key: "error", Value: "<nil>"}, Err(nil))
}

func TestSetOutputAndFallback(t *testing.T) {
	require.NoError(t, Initialize(Config{Level: InfoLevel}))
	var buf bytes.Buffer
	SetOutput(&buf)
	Info("output test message")
	assert.Contains(t, buf.String(), "output test message")

	original := defaultLogger
	defaultLogger = nil
	defer func() { defaultLogger = original }()
	assert.NotPanics(t, func() {
		Info("dropped")
		Warn("fallback warn")
		SetOutput(&buf)
	})
}
