package engine

import (
	"sync"

	"git.home.luguber.info/inful/groovybuild/internal/buildctx"
	"git.home.luguber.info/inful/groovybuild/internal/projectmodel"
)

type dirtyFile struct {
	target projectmodel.Target
	path   string
}

// roundSet is the dirty-file view the drivers compile from: a current set
// visited in insertion order and a next set accumulating marks until
// Advance promotes it.
type roundSet struct {
	mu        sync.Mutex
	current   []dirtyFile
	next      []dirtyFile
	inCurrent map[string]bool
	inNext    map[string]bool
}

func newRoundSet() *roundSet {
	return &roundSet{
		inCurrent: make(map[string]bool),
		inNext:    make(map[string]bool),
	}
}

// Reset drops both rounds ahead of a fresh chunk scan.
func (r *roundSet) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current, r.next = nil, nil
	r.inCurrent = make(map[string]bool)
	r.inNext = make(map[string]bool)
}

// ForEachDirty visits the current round's files in insertion order. The
// snapshot is taken up front so callbacks may mark files for the next
// round while iterating.
func (r *roundSet) ForEachDirty(fn func(target projectmodel.Target, path string) error) error {
	r.mu.Lock()
	snapshot := make([]dirtyFile, len(r.current))
	copy(snapshot, r.current)
	r.mu.Unlock()

	for _, f := range snapshot {
		if err := fn(f.target, f.path); err != nil {
			return err
		}
	}
	return nil
}

// IsDirty reports whether the file is scheduled in the current round or
// already queued for the next one.
func (r *roundSet) IsDirty(path string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inCurrent[path] || r.inNext[path], nil
}

// MarkDirty queues the file once per round.
func (r *roundSet) MarkDirty(round buildctx.Round, target projectmodel.Target, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch round {
	case buildctx.RoundNext:
		if !r.inNext[path] {
			r.inNext[path] = true
			r.next = append(r.next, dirtyFile{target: target, path: path})
		}
	default:
		if !r.inCurrent[path] {
			r.inCurrent[path] = true
			r.current = append(r.current, dirtyFile{target: target, path: path})
		}
	}
	return nil
}

// Advance promotes the next round to current and returns how many files
// the new round holds.
func (r *roundSet) Advance() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current, r.next = r.next, nil
	r.inCurrent, r.inNext = r.inNext, make(map[string]bool)
	return len(r.current)
}

// Count returns the current round's size.
func (r *roundSet) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.current)
}

var _ buildctx.DirtyFiles = (*roundSet)(nil)
