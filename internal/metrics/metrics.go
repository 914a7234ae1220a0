// Package metrics counts handled errors per kind.
//
// Counting is unconditional: every error handed to the dispatcher is counted,
// whether or not its notification was throttled. Counts live for the process
// lifetime and are cleared only by Reset.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/alto9/kube9-vscode-sub011/internal/types"
)

var errorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kube9_errors_total",
		Help: "Total errors handled by the dispatcher by kind.",
	},
	[]string{"kind"},
)

// Counters holds per-kind occurrence counts.
type Counters struct {
	mu     sync.Mutex
	counts map[types.ErrorKind]int
}

// NewCounters creates an empty counter set.
func NewCounters() *Counters {
	return &Counters{counts: make(map[types.ErrorKind]int)}
}

// Record increments the counter for kind.
func (c *Counters) Record(kind types.ErrorKind) {
	c.mu.Lock()
	c.counts[kind]++
	c.mu.Unlock()
	errorsTotal.WithLabelValues(string(kind)).Inc()
}

// Count returns the current count for kind.
func (c *Counters) Count(kind types.ErrorKind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[kind]
}

// Clear zeroes every counter.
func (c *Counters) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = make(map[types.ErrorKind]int)
}

// KindCount is one row of a Summary.
type KindCount struct {
	Kind  types.ErrorKind `json:"kind"`
	Count int             `json:"count"`
}

// Summary is a point-in-time snapshot of the counters.
type Summary struct {
	Total  int         `json:"total"`
	ByKind []KindCount `json:"byKind"`
}

// Summary returns a snapshot with kinds in types.AllErrorKinds order.
// Kinds outside the known set are appended after the known ones.
func (c *Counters) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	var s Summary
	for _, k := range types.AllErrorKinds {
		n := c.counts[k]
		s.ByKind = append(s.ByKind, KindCount{Kind: k, Count: n})
		s.Total += n
	}
	for k, n := range c.counts {
		if !k.Valid() {
			s.ByKind = append(s.ByKind, KindCount{Kind: k, Count: n})
			s.Total += n
		}
	}
	return s
}

var (
	instanceMu sync.Mutex
	instance   *Counters
)

// Instance returns the process-wide counters, creating them on first use.
func Instance() *Counters {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance == nil {
		instance = NewCounters()
	}
	return instance
}

// Reset discards the process-wide counters. The next Instance call returns a
// fresh, zeroed set. The Prometheus series are reset as well.
func Reset() {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	instance = nil
	errorsTotal.Reset()
}
