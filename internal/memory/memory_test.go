package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecentSlidesOverFullWindow(t *testing.T) {
	s := New(3)
	for i := 1; i <= 5; i++ {
		s.Append("t", "w", "s1", Message{Role: "user", Content: itoaSmall(i)})
	}
	got := s.Recent("t", "w", "s1", 3)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"3", "4", "5"}, contents(got))
}

func TestRecentPartialWindow(t *testing.T) {
	s := New(5)
	s.Append("t", "w", "s2", Message{Role: "user", Content: "a"})
	s.Append("t", "w", "s2", Message{Role: "assistant", Content: "b"})
	got := s.Recent("t", "w", "s2", 2)
	assert.Equal(t, []string{"a", "b"}, contents(got))
}

func TestRecentClampsNAboveCount(t *testing.T) {
	s := New(5)
	s.Append("t", "w", "s3", Message{Role: "user", Content: "only"})
	got := s.Recent("t", "w", "s3", 10)
	require.Len(t, got, 1)
	assert.Equal(t, "only", got[0].Content)
}

func TestScenarioS6Window(t *testing.T) {
	s := New(5)
	s.Append("tenant", "wf", "s1", Message{Role: "user", Content: "hello"})
	s.Append("tenant", "wf", "s1", Message{Role: "assistant", Content: "hi"})
	got := s.Recent("tenant", "wf", "s1", 2)
	assert.Equal(t, "hello", got[0].Content)
	assert.Equal(t, "hi", got[1].Content)
}

func TestRecentUnknownSessionIsNil(t *testing.T) {
	s := New(3)
	assert.Nil(t, s.Recent("t", "w", "nope", 3))
}

func TestClearRemovesSessionOnly(t *testing.T) {
	s := New(3)
	s.Append("t", "w", "s1", Message{Role: "user", Content: "x"})
	s.Append("t", "w", "s2", Message{Role: "user", Content: "y"})
	s.Clear("t", "w", "s1")
	assert.Nil(t, s.Recent("t", "w", "s1", 3))
	assert.Len(t, s.Recent("t", "w", "s2", 3), 1)
}

func TestSessionsAreIsolated(t *testing.T) {
	s := New(3)
	s.Append("tenantA", "w", "s1", Message{Role: "user", Content: "a-msg"})
	s.Append("tenantB", "w", "s1", Message{Role: "user", Content: "b-msg"})
	assert.Equal(t, []string{"a-msg"}, contents(s.Recent("tenantA", "w", "s1", 3)))
	assert.Equal(t, []string{"b-msg"}, contents(s.Recent("tenantB", "w", "s1", 3)))
}

func contents(msgs []Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}

func itoaSmall(i int) string {
	return string(rune('0' + i))
}
