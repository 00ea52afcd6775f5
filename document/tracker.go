package document

import "sync"

// Tracker records whether the tree changed since the last successful render.
//
// Every mutation bumps a generation counter. A render remembers the generation of
// its snapshot and MarkClean only clears the flag if nothing changed since, so a
// mutation that lands while a render is in flight keeps the tree dirty.
type Tracker struct {
	mu    sync.Mutex
	dirty bool
	gen   uint64
}

// NewTracker returns a tracker in the dirty state.
func NewTracker() *Tracker { return &Tracker{dirty: true} }

// IsDirty reports the staleness flag. It has no side effects.
func (t *Tracker) IsDirty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dirty
}

// MarkDirty flags a mutation.
func (t *Tracker) MarkDirty() {
	t.mu.Lock()
	t.gen++
	t.dirty = true
	t.mu.Unlock()
}

// Generation returns the current mutation generation.
func (t *Tracker) Generation() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen
}

// MarkClean clears the flag if no mutation happened after gen. It reports whether it did.
func (t *Tracker) MarkClean(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gen != gen {
		return false
	}
	t.dirty = false
	return true
}
