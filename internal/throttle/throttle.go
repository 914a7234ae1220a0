// Package throttle gates repeated notifications for the same error.
//
// Entries are keyed on "KIND:message". A key seen less than the window ago is
// suppressed; otherwise its timestamp is overwritten and the caller may notify.
// Suppressed calls do not refresh the timestamp.
//
// Entries are never evicted unless Evict or Run is used explicitly.
package throttle

import (
	"context"
	"sync"
	"time"

	"github.com/alto9/kube9-vscode-sub011/internal/types"
)

// DefaultWindow is the fixed deduplication interval.
const DefaultWindow = 5 * time.Second

// Key builds the throttle key for an error kind and message.
func Key(kind types.ErrorKind, message string) string {
	return string(kind) + ":" + message
}

// Throttle is a time-windowed dedup gate. Safe for concurrent use.
type Throttle struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[string]time.Time
}

// New creates a Throttle with the given window. A non-positive window falls
// back to DefaultWindow.
func New(window time.Duration) *Throttle {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Throttle{
		window:  window,
		entries: make(map[string]time.Time),
	}
}

// Window returns the dedup interval.
func (t *Throttle) Window() time.Duration { return t.window }

// Allow atomically checks key against the window and, if allowed, records now
// as its last-seen time. Returns false when the key was seen within the window.
func (t *Throttle) Allow(key string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if last, ok := t.entries[key]; ok && now.Sub(last) < t.window {
		return false
	}
	t.entries[key] = now
	return true
}

// LastSeen returns the recorded time for key.
func (t *Throttle) LastSeen(key string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	last, ok := t.entries[key]
	return last, ok
}

// Len returns the number of tracked keys.
func (t *Throttle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Evict removes keys last seen before now-maxAge and returns how many were removed.
func (t *Throttle) Evict(maxAge time.Duration, now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := now.Add(-maxAge)
	removed := 0
	for key, last := range t.entries {
		if last.Before(cutoff) {
			delete(t.entries, key)
			removed++
		}
	}
	return removed
}

// Run evicts stale keys every interval until ctx is cancelled. Blocks.
// maxAge is clamped to the window so an active key is never dropped early.
func (t *Throttle) Run(ctx context.Context, interval, maxAge time.Duration) {
	if interval <= 0 || maxAge <= 0 {
		return
	}
	if maxAge < t.window {
		maxAge = t.window
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.Evict(maxAge, now)
		}
	}
}
