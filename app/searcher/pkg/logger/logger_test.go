package logger

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomFormatter(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(logrus.DebugLevel, &buf)

	l.WithField("backend", "searxng").WithField("count", 3).Warn("后端返回结果")

	line := buf.String()
	assert.Contains(t, line, "[WARN]")
	assert.Contains(t, line, "logger_test.go:")
	assert.Contains(t, line, "后端返回结果 backend=searxng count=3\n")
}

func TestInitLoggerWithFile(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	file := filepath.Join(t.TempDir(), "logs", "searcher.log")
	require.NoError(t, InitLogger(Options{Level: "debug", File: file, MaxSizeMB: 1}))
	assert.Equal(t, logrus.DebugLevel, Log.GetLevel())
	assert.DirExists(t, filepath.Dir(file))
}

func TestInitLoggerBadLevelFallsBackToInfo(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	require.NoError(t, InitLogger(Options{Level: "loud"}))
	assert.Equal(t, logrus.InfoLevel, Log.GetLevel())
}
