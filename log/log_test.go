package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"":      slog.LevelInfo,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, slog.LevelInfo)

	l.Debugf("hidden %d", 1)
	l.Infof("ingest %s", "PK301")
	l.With("flight_id", "PK301").Warnf("slow store")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	rec := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "ingest PK301", rec["msg"])
	assert.Equal(t, "INFO", rec["level"])

	rec = map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	assert.Equal(t, "PK301", rec["flight_id"])
}

func TestNilLogger(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Debugf("x")
		l.Infof("x")
		l.Warnf("x")
		l.Errorf("x")
		assert.Nil(t, l.With("a", 1))
	})
}

func TestRotatingFile(t *testing.T) {
	dir := t.TempDir()
	l := New("debug", dir)
	l.Debugf("archived %s", "PK301")

	assert.Equal(t, filepath.Join(dir, "flightlog.slog"), l.LogFile)
	data, err := os.ReadFile(l.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "archived PK301")
}
