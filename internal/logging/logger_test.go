package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func consoleLogger(t *testing.T, buf *bytes.Buffer) *Logger {
	t.Helper()
	l, err := New(Config{Level: INFO, Output: buf, Component: "parser", Version: "test"})
	require.NoError(t, err)
	return l
}

func TestLoggerConsole(t *testing.T) {
	var buf bytes.Buffer
	l := consoleLogger(t, &buf)

	l.Info("parsed %d inputs", 3)
	l.Debug("hidden")
	require.NoError(t, l.Close())

	out := buf.String()
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "parsed 3 inputs")
	assert.Contains(t, out, "parser")
	assert.Contains(t, out, "logger_test.go")
	assert.NotContains(t, out, "hidden")
}

func TestLoggerSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := consoleLogger(t, &buf)

	l.SetLevel(DEBUG)
	l.Debug("now visible")
	l.SetLevel(ERROR)
	l.Warn("suppressed")
	l.Error("failed: %v", "boom")

	out := buf.String()
	assert.Contains(t, out, "now visible")
	assert.NotContains(t, out, "suppressed")
	assert.Contains(t, out, "failed: boom")
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	l := consoleLogger(t, &buf)

	l.WithFields(Fields{"request_id": "abc-123"}).Warn("slow request")
	out := buf.String()
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "slow request")
	assert.Contains(t, out, "abc-123")
}

func TestLoggerJSONFile(t *testing.T) {
	dir := t.TempDir()
	l, err := New(Config{
		Level:      INFO,
		LogDir:     dir,
		EnableFile: true,
		EnableJSON: true,
		Output:     &bytes.Buffer{},
		Component:  "web",
	})
	require.NoError(t, err)

	l.Info("server started on %d", 8000)
	require.NoError(t, l.Close())

	files := GetLogFiles(dir)
	require.Len(t, files, 1)
	assert.True(t, strings.HasSuffix(files[0].Name, ".jsonl"))

	data, err := os.ReadFile(files[0].Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"server started on 8000"`)
	assert.Contains(t, string(data), `"component":"web"`)
}

func TestRollingWriterRotatesOnSize(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultRollingConfig()
	cfg.LogDir = dir
	cfg.MaxSize = 16
	cfg.Compress = false

	rw, err := NewRollingWriter(cfg, false)
	require.NoError(t, err)

	_, err = rw.Write([]byte("first line 1234\n"))
	require.NoError(t, err)
	_, err = rw.Write([]byte("second line\n"))
	require.NoError(t, err)
	require.NoError(t, rw.Close())

	date := time.Now().Format(cfg.TimePattern)
	current, err := os.ReadFile(filepath.Join(dir, cfg.BaseName+"-"+date+".log"))
	require.NoError(t, err)
	assert.Equal(t, "second line\n", string(current))

	backup, err := os.ReadFile(filepath.Join(dir, cfg.BaseName+"-"+date+".1.log"))
	require.NoError(t, err)
	assert.Equal(t, "first line 1234\n", string(backup))

	_, err = rw.Write([]byte("after close"))
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestRollingWriterRotatesOnDate(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultRollingConfig()
	cfg.LogDir = dir
	cfg.Compress = true

	rw, err := NewRollingWriter(cfg, true)
	require.NoError(t, err)

	_, err = rw.Write([]byte(`{"n":1}` + "\n"))
	require.NoError(t, err)

	rw.mu.Lock()
	rw.now = func() time.Time { return time.Now().AddDate(0, 0, 1) }
	rw.mu.Unlock()

	_, err = rw.Write([]byte(`{"n":2}` + "\n"))
	require.NoError(t, err)
	require.NoError(t, rw.Close())

	tomorrow := time.Now().AddDate(0, 0, 1).Format(cfg.TimePattern)
	_, err = os.Stat(filepath.Join(dir, cfg.BaseName+"-"+tomorrow+".jsonl"))
	assert.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(dir, "*.gz"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   DEBUG,
		"INFO":    INFO,
		"warning": WARN,
		" error ": ERROR,
		"":        INFO,
		"verbose": INFO,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSize(tt.bytes))
	}
}
