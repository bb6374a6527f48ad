package logger_test

import (
	"bytes"
	"testing"

	"codeberg.org/mutker/usagemon/internal/errors"
	"codeberg.org/mutker/usagemon/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	level, ok := logger.ParseLevel("debug")
	assert.True(t, ok)
	assert.Equal(t, logger.DebugLevel, level)

	level, ok = logger.ParseLevel("warning")
	assert.True(t, ok)
	assert.Equal(t, logger.WarnLevel, level)

	_, ok = logger.ParseLevel("verbose")
	assert.False(t, ok)
}

func TestErrorWithCode(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWriter(&buf, logger.DebugLevel)
	t.Cleanup(func() { logger.SetLogLevel(logger.InfoLevel) })

	err := errors.New().New(errors.ErrStoreWrite)
	logger.Default().ErrorWithCode(err).Str("entity", "chrome").Msg("append failed")

	out := buf.String()
	assert.Contains(t, out, `"error_code":"store_write_failed"`)
	assert.Contains(t, out, `"entity":"chrome"`)
	assert.Contains(t, out, "append failed")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWriter(&buf, logger.WarnLevel)
	t.Cleanup(func() { logger.SetLogLevel(logger.InfoLevel) })

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
