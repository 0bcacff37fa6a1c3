// Package binary implements the value-addressed blob store (C12): nodes
// call Store to hand the engine large byte payloads and get back a
// BinaryReference; bytes are fetched later via GetData, never materialized
// by the engine itself (spec §4.7).
//
// Grounded on the teacher's file-storage resource pattern
// (pkg/models file storage config), generalized from a named node resource
// into an engine-level content-addressed store with pluggable backends.
package binary

import (
	"fmt"

	"github.com/tmthrgd/go-hex"
	"golang.org/x/crypto/blake2b"

	"github.com/flowmesh/engine/pkg/value"
)

// Store is the pluggable backend interface; in-memory and on-disk
// implementations both satisfy it (spec: "Storage backend is pluggable").
type Store interface {
	Store(data []byte) (value.BinaryRef, error)
	GetData(fileKey string) ([]byte, error)
}

// handleFor derives a content-addressed handle string from data using
// blake2b-256, hex-encoded — shared by both backends so references are
// stable regardless of which backend produced them.
func handleFor(data []byte) (string, error) {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// NotFoundError is returned by GetData when the handle is unknown.
type NotFoundError struct{ FileKey string }

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("binary: no data for handle %q", e.FileKey)
}
