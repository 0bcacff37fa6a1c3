package binary

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/flowmesh/engine/pkg/value"
)

// envelope is the on-disk msgpack-encoded record for one blob: the raw
// bytes plus the handle they hash to, so a corrupted or hand-placed file
// can be validated on read.
type envelope struct {
	FileKey string `msgpack:"file_key"`
	Data    []byte `msgpack:"data"`
}

// DiskStore persists each blob as one msgpack envelope file under Dir,
// named by its content-addressed handle. Concurrent writers are serialized
// per spec §5's general "writers are brief" resource policy.
type DiskStore struct {
	mu  sync.Mutex
	Dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskStore{Dir: dir}, nil
}

func (d *DiskStore) path(key string) string {
	return filepath.Join(d.Dir, key+".msgpack")
}

func (d *DiskStore) Store(data []byte) (value.BinaryRef, error) {
	key, err := handleFor(data)
	if err != nil {
		return value.BinaryRef{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	path := d.path(key)
	if _, err := os.Stat(path); err == nil {
		return value.BinaryRef{FileKey: key}, nil
	}

	encoded, err := msgpack.Marshal(envelope{FileKey: key, Data: data})
	if err != nil {
		return value.BinaryRef{}, err
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return value.BinaryRef{}, err
	}
	return value.BinaryRef{FileKey: key}, nil
}

func (d *DiskStore) GetData(fileKey string) ([]byte, error) {
	raw, err := os.ReadFile(d.path(fileKey))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{FileKey: fileKey}
		}
		return nil, err
	}
	var env envelope
	if err := msgpack.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	if key, err := handleFor(env.Data); err != nil || key != fileKey || env.FileKey != fileKey {
		return nil, fmt.Errorf("binary: envelope for %q failed validation", fileKey)
	}
	return env.Data, nil
}

var _ Store = (*DiskStore)(nil)
