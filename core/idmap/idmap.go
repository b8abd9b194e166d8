// Package idmap translates snapshot-space ids into target-space ids.
//
// A Translator lives for exactly one replay run. It is filled as roles,
// categories and channels are created or matched and consulted by every later
// step that references an earlier entity. It is not safe for concurrent use;
// a run has a single thread of control.
package idmap

import (
	"errors"
	"fmt"
)

// ErrConflict is returned when a source id is recorded twice with different targets.
var ErrConflict = errors.New("idmap: source id already mapped")

// Translator maps source ids to target ids. Each key is write-once.
type Translator struct {
	ids map[string]string
}

// New returns an empty Translator.
func New() *Translator {
	return &Translator{ids: make(map[string]string)}
}

// Record maps sourceID to targetID. Recording the same pair again is a no-op.
func (t *Translator) Record(sourceID, targetID string) error {
	if sourceID == "" || targetID == "" {
		return fmt.Errorf("idmap: empty id (source=%q target=%q)", sourceID, targetID)
	}
	if prev, ok := t.ids[sourceID]; ok {
		if prev == targetID {
			return nil
		}
		return fmt.Errorf("%w: %s -> %s (have %s)", ErrConflict, sourceID, targetID, prev)
	}
	t.ids[sourceID] = targetID
	return nil
}

// Lookup returns the target id recorded for sourceID.
func (t *Translator) Lookup(sourceID string) (string, bool) {
	id, ok := t.ids[sourceID]
	return id, ok
}

// Resolve returns the target id for sourceID, or "" when none is recorded.
func (t *Translator) Resolve(sourceID string) string {
	return t.ids[sourceID]
}

// Len returns the number of recorded mappings.
func (t *Translator) Len() int {
	return len(t.ids)
}

// Map returns a copy of all recorded mappings.
func (t *Translator) Map() map[string]string {
	out := make(map[string]string, len(t.ids))
	for k, v := range t.ids {
		out[k] = v
	}
	return out
}
