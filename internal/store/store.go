// Package store persists small JSON documents by name.
//
// Load never fails: a missing, unreadable or malformed document yields the
// caller's default. Save overwrites the whole document.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ryosukesatoh/discord-digest/internal/observability"
)

// ErrNotFound is returned by a Backend when no document with the name exists.
var ErrNotFound = errors.New("store: not found")

// Backend reads and writes raw documents.
type Backend interface {
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
}

// Load decodes the named document over a copy of def, so fields missing from
// the document keep their defaults. Any failure is logged and def is
// returned instead.
func Load[T any](ctx context.Context, b Backend, name string, def T) T {
	log := observability.LoggerFromContext(ctx).With("store", name)

	data, err := b.Read(ctx, name)
	if errors.Is(err, ErrNotFound) {
		log.Info("no persisted data, using defaults")
		return def
	}
	if err != nil {
		log.Error("failed to read store, using defaults", "error", err)
		return def
	}

	v := def
	if err := json.Unmarshal(data, &v); err != nil {
		log.Error("malformed store content, using defaults", "error", err)
		return def
	}
	return v
}

// Save encodes v and overwrites the named document. Failures are logged and
// returned; they are never fatal to the caller.
func Save(ctx context.Context, b Backend, name string, v any) error {
	data, err := json.Marshal(v)
	if err == nil {
		err = b.Write(ctx, name, data)
	}
	if err != nil {
		err = fmt.Errorf("store: failed to save %s: %w", name, err)
		observability.LoggerFromContext(ctx).Error("failed to save store", "store", name, "error", err)
		return err
	}
	return nil
}

// MemoryBackend keeps documents in process memory.
type MemoryBackend struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{docs: make(map[string][]byte)}
}

func (m *MemoryBackend) Read(_ context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[name]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryBackend) Write(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[name] = append([]byte(nil), data...)
	return nil
}
