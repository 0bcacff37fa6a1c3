package wfcontext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/engine/pkg/value"
)

func TestGetSetRoundTrip(t *testing.T) {
	c := New()
	c.Set("k", value.String("v"))
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v.AsString())
}

func TestClearOnlyClearsData(t *testing.T) {
	c := New()
	c.Set("k", value.Number(1))
	c.AppendChatMessage(RoleUser, "hello")

	c.Clear()
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Len(t, c.ChatHistory(), 1)
}

func TestClearChatHistoryOnlyClearsHistory(t *testing.T) {
	c := New()
	c.Set("k", value.Number(1))
	c.AppendChatMessage(RoleUser, "hello")

	c.ClearChatHistory()
	assert.Empty(t, c.ChatHistory())
	_, ok := c.Get("k")
	assert.True(t, ok)
}

func TestChatHistoryBound(t *testing.T) {
	c := NewWithHistoryMax(3)
	for i := 0; i < 10; i++ {
		c.AppendChatMessage(RoleUser, "m")
	}
	assert.Len(t, c.ChatHistory(), 3)
}

func TestSerializeRoundTrip(t *testing.T) {
	c := New()
	c.Set("k", value.Number(42))
	c.AppendChatMessage(RoleAssistant, "hi")

	data, err := c.Serialize()
	require.NoError(t, err)

	restored, err := Deserialize(data)
	require.NoError(t, err)

	v, ok := restored.Get("k")
	require.True(t, ok)
	assert.Equal(t, float64(42), v.AsNumber())
	assert.Len(t, restored.ChatHistory(), 1)
	assert.Equal(t, "hi", restored.ChatHistory()[0].Content)
}
