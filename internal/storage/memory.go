package storage

import (
	"bytes"
	"context"
	"sort"
	"sync"
)

// MemoryBackend keeps every namespace in process memory. Update buffers
// writes in an overlay and applies them only when the event succeeds.
type MemoryBackend struct {
	mu     sync.Mutex
	spaces map[string]map[string][]byte
	closed bool
}

// NewMemoryBackend returns an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{spaces: make(map[string]map[string][]byte)}
}

// Update implements Backend.
func (m *MemoryBackend) Update(ctx context.Context, ns string, fn func(KV) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	tx := &memoryTxn{base: m.spaces[ns], writes: make(map[string][]byte)}
	if err := fn(tx); err != nil {
		return err
	}
	if len(tx.writes) == 0 {
		return nil
	}
	space := m.spaces[ns]
	if space == nil {
		space = make(map[string][]byte)
		m.spaces[ns] = space
	}
	for k, v := range tx.writes {
		space[k] = v
	}
	return nil
}

// View implements Backend.
func (m *MemoryBackend) View(ctx context.Context, ns string, fn func(KV) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	return fn(&memoryTxn{base: m.spaces[ns], readOnly: true})
}

// Namespaces returns every namespace that has been written, sorted.
func (m *MemoryBackend) Namespaces() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.spaces))
	for ns := range m.spaces {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Close implements Backend.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type memoryTxn struct {
	base     map[string][]byte
	writes   map[string][]byte
	readOnly bool
}

func (t *memoryTxn) Get(key string) ([]byte, bool, error) {
	if v, ok := t.writes[key]; ok {
		return bytes.Clone(v), true, nil
	}
	v, ok := t.base[key]
	return bytes.Clone(v), ok, nil
}

func (t *memoryTxn) Put(key string, value []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	t.writes[key] = bytes.Clone(value)
	return nil
}

func (t *memoryTxn) Keys() ([]string, error) {
	keys := make([]string, 0, len(t.base)+len(t.writes))
	for k := range t.base {
		keys = append(keys, k)
	}
	for k := range t.writes {
		if _, ok := t.base[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
