package binary

import (
	"sync"

	"github.com/flowmesh/engine/pkg/value"
)

// MemoryStore is the default backend: content-addressed blobs held for the
// lifetime of the owning process, behind an RWMutex (writers are brief,
// matching the spec §5 resource-policy texture used throughout this
// module).
type MemoryStore struct {
	mu   sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (m *MemoryStore) Store(data []byte) (value.BinaryRef, error) {
	key, err := handleFor(data)
	if err != nil {
		return value.BinaryRef{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.blobs[key]; !exists {
		cp := make([]byte, len(data))
		copy(cp, data)
		m.blobs[key] = cp
	}
	return value.BinaryRef{FileKey: key}, nil
}

func (m *MemoryStore) GetData(fileKey string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[fileKey]
	if !ok {
		return nil, &NotFoundError{FileKey: fileKey}
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
