package framework

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/lexcodex/gitagent/persistence"
)

// MemoryFileName is the consolidated document holding every namespace.
const MemoryFileName = "centralized_memory.json"

// MemoryStore is a namespaced key/value store flushed to a single JSON
// document after every write. Values are held in their decoded JSON form
// (maps, slices, strings, numbers) so that what a later stage reads is
// exactly what a restarted process would read from disk.
type MemoryStore struct {
	mu   sync.RWMutex
	path string
	data map[string]map[string]any
}

// NewMemoryStore loads the store kept in dir, creating the directory when
// needed.
func NewMemoryStore(dir string) (*MemoryStore, error) {
	if dir == "" {
		return nil, errors.New("memory store directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	store := &MemoryStore{
		path: filepath.Join(dir, MemoryFileName),
		data: make(map[string]map[string]any),
	}
	if _, err := persistence.ReadJSON(store.path, &store.data); err != nil {
		return nil, err
	}
	if store.data == nil {
		store.data = make(map[string]map[string]any)
	}
	return store, nil
}

// Path returns the backing file.
func (m *MemoryStore) Path() string { return m.path }

// Get returns the value stored under (namespace, key) or def.
func (m *MemoryStore) Get(namespace, key string, def any) any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if ns, ok := m.data[namespace]; ok {
		if v, ok := ns[key]; ok {
			return v
		}
	}
	return def
}

// Decode copies the value under (namespace, key) into out. It reports false
// when the key is absent or the value does not fit out's shape.
func (m *MemoryStore) Decode(namespace, key string, out any) bool {
	v := m.Get(namespace, key, nil)
	if v == nil {
		return false
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

// Strings is a convenience for values that are lists of strings.
func (m *MemoryStore) Strings(namespace, key string) []string {
	var out []string
	if !m.Decode(namespace, key, &out) {
		return nil
	}
	return out
}

// Set stores value and persists the whole document before returning.
func (m *MemoryStore) Set(namespace, key string, value any) error {
	normalized, err := normalize(value)
	if err != nil {
		return fmt.Errorf("memory %s/%s: %w", namespace, key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.namespace(namespace)[key] = normalized
	return m.persist()
}

// Update shallow-merges value into the existing entry when both are
// mappings and overwrites otherwise.
func (m *MemoryStore) Update(namespace, key string, value any) error {
	normalized, err := normalize(value)
	if err != nil {
		return fmt.Errorf("memory %s/%s: %w", namespace, key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ns := m.namespace(namespace)
	existing, okExisting := ns[key].(map[string]any)
	incoming, okIncoming := normalized.(map[string]any)
	if okExisting && okIncoming {
		merged := make(map[string]any, len(existing)+len(incoming))
		for k, v := range existing {
			merged[k] = v
		}
		for k, v := range incoming {
			merged[k] = v
		}
		ns[key] = merged
	} else {
		ns[key] = normalized
	}
	return m.persist()
}

// Namespaces lists every namespace currently stored.
func (m *MemoryStore) Namespaces() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.data))
	for ns := range m.data {
		out = append(out, ns)
	}
	return out
}

func (m *MemoryStore) namespace(name string) map[string]any {
	ns, ok := m.data[name]
	if !ok {
		ns = make(map[string]any)
		m.data[name] = ns
	}
	return ns
}

func (m *MemoryStore) persist() error {
	return persistence.WriteJSON(m.path, m.data)
}

// normalize converts value to its decoded JSON representation.
func normalize(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
