package invite

import (
	"sync"

	"github.com/m3rciful/invitebot/internal/gateway"
)

// Tracker hands out a monotonically increasing issuance version per message.
// An expiry task only acts while its version is still the latest one.
type Tracker struct {
	mu       sync.Mutex
	versions map[gateway.MessageRef]uint64
	seq      uint64
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{versions: make(map[gateway.MessageRef]uint64)}
}

// Next records a new issuance for ref and returns its version.
func (t *Tracker) Next(ref gateway.MessageRef) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	t.versions[ref] = t.seq
	return t.seq
}

// Current returns the latest version issued for ref.
func (t *Tracker) Current(ref gateway.MessageRef) (uint64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.versions[ref]
	return v, ok
}

// Release drops ref if version is still current and reports whether it was.
// A false result means a newer issuance superseded version.
func (t *Tracker) Release(ref gateway.MessageRef, version uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.versions[ref]; !ok || cur != version {
		return false
	}
	delete(t.versions, ref)
	return true
}

// Len returns the number of messages with an outstanding issuance.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.versions)
}
