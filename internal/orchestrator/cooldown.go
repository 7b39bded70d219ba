package orchestrator

import (
	"sync"
	"time"
)

// cooldownTable tracks per-venue backoff deadlines after a rate-limit signal.
// A venue on cooldown is skipped wholesale until its deadline passes.
type cooldownTable struct {
	mu     sync.Mutex
	until  map[string]time.Time
	nowFns func() time.Time
}

func newCooldownTable() *cooldownTable {
	return &cooldownTable{
		until:  make(map[string]time.Time),
		nowFns: time.Now,
	}
}

// Set places venue on cooldown for d from now. A shorter new cooldown never
// truncates a longer one already in place.
func (t *cooldownTable) Set(venue string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	deadline := t.nowFns().Add(d)
	if existing, ok := t.until[venue]; ok && existing.After(deadline) {
		return
	}
	t.until[venue] = deadline
}

// Remaining returns how long venue stays on cooldown, zero when it is clear.
func (t *cooldownTable) Remaining(venue string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	deadline, ok := t.until[venue]
	if !ok {
		return 0
	}
	now := t.nowFns()
	if !deadline.After(now) {
		delete(t.until, venue)
		return 0
	}
	return deadline.Sub(now)
}
