package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerLevel(t *testing.T) {
	logger := NewLogger("debug")
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())

	logger = NewLogger("invalid")
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())

	logger = NewLogger("")
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestComponentField(t *testing.T) {
	var buf bytes.Buffer
	log := Component(New(&buf, "info"), "controller")
	log.Info().Msg("tick")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "controller", line["component"])
	assert.Equal(t, "tick", line["message"])
}
