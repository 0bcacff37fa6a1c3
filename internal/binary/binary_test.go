package binary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ref, err := s.Store([]byte("hello"))
	require.NoError(t, err)
	assert.NotEmpty(t, ref.FileKey)

	data, err := s.GetData(ref.FileKey)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestMemoryStoreMissingHandle(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.GetData("nope")
	require.Error(t, err)
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestDiskStoreRoundTrip(t *testing.T) {
	s, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	ref, err := s.Store([]byte("on disk"))
	require.NoError(t, err)

	data, err := s.GetData(ref.FileKey)
	require.NoError(t, err)
	assert.Equal(t, "on disk", string(data))
}

func TestContentAddressingDedupes(t *testing.T) {
	s := NewMemoryStore()
	a, err := s.Store([]byte("same"))
	require.NoError(t, err)
	b, err := s.Store([]byte("same"))
	require.NoError(t, err)
	assert.Equal(t, a.FileKey, b.FileKey)
}
