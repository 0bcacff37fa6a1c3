package applog

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONByDefault(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: LevelInfo, Service: "flowmeshd", Out: &buf})
	log.Info().Str("k", "v").Msg("hello")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "hello", decoded["message"])
	assert.Equal(t, "flowmeshd", decoded["service"])
	assert.Equal(t, "v", decoded["k"])
}

func TestLevelFiltersBelowThreshold(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: LevelWarn, Out: &buf})
	log.Info().Msg("should be dropped")
	assert.Empty(t, buf.Bytes())

	log.Warn().Msg("should appear")
	assert.NotEmpty(t, buf.Bytes())
}

func TestPrettyUsesConsoleWriter(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: LevelInfo, Pretty: true, Out: &buf})
	log.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.NotContains(t, buf.String(), `"message"`)
}
