package location

import "sync"

// DefaultStableAfter is how many consecutive nearby updates must be
// exceeded before a location counts as stable.
const DefaultStableAfter = 3

// Filter tracks the latest location and whether it has settled.
type Filter struct {
	mu          sync.RWMutex
	stableAfter int
	updates     uint64
	stable      int
	current     Location
}

// NewFilter returns a filter that becomes stable after more than
// stableAfter consecutive updates within 10 m of the previous one.
func NewFilter(stableAfter int) *Filter {
	return &Filter{stableAfter: stableAfter}
}

// OnLocationChanged records a new fix.
func (f *Filter) OnLocationChanged(l Location) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current.IsNearTo(l) {
		f.stable++
	} else {
		f.stable = 0
	}
	f.current = l
	f.updates++
}

// Current returns the latest location, the zero location before any update.
func (f *Filter) Current() Location {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current
}

// IsActive reports whether any update arrived.
func (f *Filter) IsActive() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.updates > 0
}

// IsStable reports whether the last updates stayed in place.
func (f *Filter) IsStable() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.stable > f.stableAfter
}

// Updates returns the number of recorded fixes.
func (f *Filter) Updates() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.updates
}
