// Package stats provides host-level statistics tracking for capture outcomes.
package stats

import (
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// maxHosts is the maximum number of hosts to track before eviction.
const maxHosts = 5000

// evictionBatchSize is the number of hosts to evict at once to reduce eviction overhead.
const evictionBatchSize = 50

// HostStats holds capture outcome counters for a single host.
type HostStats struct {
	Requests     int64     `json:"requests"`
	Successes    int64     `json:"successes"`
	Failures     int64     `json:"failures"`
	Challenges   int64     `json:"challenges"`
	TotalTimeMs  int64     `json:"totalTimeMs"`
	LastSeen     time.Time `json:"lastSeen"`
	LastFailure  string    `json:"lastFailure,omitempty"`
}

// AvgTimeMs returns the mean capture time for the host, zero when unseen.
func (h *HostStats) AvgTimeMs() int64 {
	if h.Requests == 0 {
		return 0
	}
	return h.TotalTimeMs / h.Requests
}

// Tracker records per-host capture outcomes. Safe for concurrent use.
type Tracker struct {
	mu    sync.RWMutex
	hosts map[string]*HostStats
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{hosts: make(map[string]*HostStats)}
}

// hostOf extracts the lowercase host portion of a URL, dropping any port.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// RecordSuccess records a successful capture for the URL's host.
func (t *Tracker) RecordSuccess(rawURL string, elapsed time.Duration) {
	t.record(rawURL, elapsed, true, "")
}

// RecordFailure records a failed capture and its error summary.
func (t *Tracker) RecordFailure(rawURL string, elapsed time.Duration, reason string) {
	t.record(rawURL, elapsed, false, reason)
}

// RecordChallenge notes that a bot challenge was encountered for the host.
func (t *Tracker) RecordChallenge(rawURL string) {
	host := hostOf(rawURL)
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.get(host)
	s.Challenges++
	s.LastSeen = time.Now()
}

func (t *Tracker) record(rawURL string, elapsed time.Duration, ok bool, reason string) {
	host := hostOf(rawURL)
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.get(host)
	s.Requests++
	s.TotalTimeMs += elapsed.Milliseconds()
	s.LastSeen = time.Now()
	if ok {
		s.Successes++
	} else {
		s.Failures++
		s.LastFailure = reason
	}
}

// get returns the stats entry for host, creating it and evicting stale hosts
// when the table is full. Caller must hold mu.
func (t *Tracker) get(host string) *HostStats {
	if s, found := t.hosts[host]; found {
		return s
	}
	if len(t.hosts) >= maxHosts {
		t.evictOldest()
	}
	s := &HostStats{}
	t.hosts[host] = s
	return s
}

// evictOldest removes the least recently seen hosts. Caller must hold mu.
func (t *Tracker) evictOldest() {
	type entry struct {
		host string
		seen time.Time
	}
	entries := make([]entry, 0, len(t.hosts))
	for h, s := range t.hosts {
		entries = append(entries, entry{h, s.LastSeen})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].seen.Before(entries[j].seen)
	})
	n := evictionBatchSize
	if n > len(entries) {
		n = len(entries)
	}
	for _, e := range entries[:n] {
		delete(t.hosts, e.host)
	}
}

// Snapshot returns a copy of all tracked host stats keyed by host.
func (t *Tracker) Snapshot() map[string]HostStats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]HostStats, len(t.hosts))
	for h, s := range t.hosts {
		out[h] = *s
	}
	return out
}

// Totals returns aggregate request, success and failure counts.
func (t *Tracker) Totals() (requests, successes, failures int64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, s := range t.hosts {
		requests += s.Requests
		successes += s.Successes
		failures += s.Failures
	}
	return
}
