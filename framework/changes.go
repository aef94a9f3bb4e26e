package framework

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lexcodex/gitagent/persistence"
)

// ChangeLogFileName is the change tracker's backing document.
const ChangeLogFileName = "change_log.json"

// ChangeTracker is the append-only log of file writes consumed by undo.
type ChangeTracker struct {
	mu      sync.Mutex
	path    string
	entries []ChangeEntry
	clock   func() time.Time
}

// NewChangeTracker loads the change log kept in dir.
func NewChangeTracker(dir string) (*ChangeTracker, error) {
	if dir == "" {
		return nil, errors.New("change tracker directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	t := &ChangeTracker{path: filepath.Join(dir, ChangeLogFileName), clock: time.Now}
	if _, err := persistence.ReadJSON(t.path, &t.entries); err != nil {
		return nil, err
	}
	return t, nil
}

// LogChange appends one entry and persists the whole log. The entry is not
// kept in memory if the write fails.
func (t *ChangeTracker) LogChange(agent, action, file, before, after string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry := ChangeEntry{
		Timestamp:     t.clock().UTC(),
		Agent:         agent,
		Action:        action,
		File:          file,
		ContentBefore: before,
		ContentAfter:  after,
	}
	next := append(append([]ChangeEntry(nil), t.entries...), entry)
	if err := persistence.WriteJSON(t.path, next); err != nil {
		return err
	}
	t.entries = next
	return nil
}

// Changes returns a copy of the log in chronological order.
func (t *ChangeTracker) Changes() []ChangeEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]ChangeEntry(nil), t.entries...)
}

// Since returns the entries recorded at or after ts.
func (t *ChangeTracker) Since(ts time.Time) []ChangeEntry {
	var out []ChangeEntry
	for _, e := range t.Changes() {
		if !e.Timestamp.Before(ts) {
			out = append(out, e)
		}
	}
	return out
}

// Clear resets the log to empty.
func (t *ChangeTracker) Clear() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := persistence.WriteJSON(t.path, []ChangeEntry{}); err != nil {
		return err
	}
	t.entries = nil
	return nil
}
