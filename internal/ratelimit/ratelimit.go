package ratelimit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	CacheFileName   = "ratelimits.json"
	FilePermissions = os.FileMode(0600)

	// staleAfter is how long an entry survives without updates.
	staleAfter = 24 * time.Hour
)

// Entry tracks rate limit state for one endpoint.
type Entry struct {
	Endpoint   string    `json:"endpoint"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	RetryAfter time.Time `json:"retry_after,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Tracker records rate limit headers per endpoint and refuses requests while
// a Retry-After window is open. Safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	entries   map[string]*Entry
	cachePath string
	logger    zerolog.Logger
	now       func() time.Time
}

// NewTracker creates a tracker backed by ratelimits.json in dir. An empty dir
// keeps state in memory only. Existing cache contents are loaded.
func NewTracker(dir string, logger zerolog.Logger) *Tracker {
	t := &Tracker{
		entries: make(map[string]*Entry),
		logger:  logger,
		now:     time.Now,
	}
	if dir != "" {
		t.cachePath = filepath.Join(dir, CacheFileName)
		t.load()
	}
	return t
}

// Update records rate limit information from response headers.
func (t *Tracker) Update(endpoint string, resp *http.Response) {
	if resp == nil {
		return
	}

	remaining, limit, ok := parseRateLimitHeaders(resp)
	if !ok {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	entry := t.entry(endpoint)
	entry.Limit = limit
	entry.Remaining = remaining
	entry.UpdatedAt = t.now()

	if remaining <= 1 {
		t.logger.Warn().Str("endpoint", endpoint).Int("remaining", remaining).Msg("rate limit nearly exhausted")
	}
}

// RecordRetryAfter stores the time before which endpoint must not be called.
func (t *Tracker) RecordRetryAfter(endpoint string, retryAfter time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := t.entry(endpoint)
	entry.RetryAfter = retryAfter
	entry.UpdatedAt = t.now()
}

// Check returns an error if endpoint is inside a Retry-After window.
func (t *Tracker) Check(endpoint string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, exists := t.entries[endpoint]
	if !exists {
		return nil
	}
	if !entry.RetryAfter.IsZero() && t.now().Before(entry.RetryAfter) {
		return fmt.Errorf("rate limited on %s until %s", endpoint, entry.RetryAfter.Format(time.RFC3339))
	}
	return nil
}

// WaitTime returns how long to wait before endpoint may be called again.
func (t *Tracker) WaitTime(endpoint string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, exists := t.entries[endpoint]
	if !exists || entry.RetryAfter.IsZero() {
		return 0
	}
	if wait := entry.RetryAfter.Sub(t.now()); wait > 0 {
		return wait
	}
	return 0
}

// Snapshot returns a copy of all tracked entries.
func (t *Tracker) Snapshot() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, *e)
	}
	return out
}

// Persist writes the cache to disk, dropping stale entries. No-op for an
// in-memory tracker.
func (t *Tracker) Persist() error {
	if t.cachePath == "" {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-staleAfter)
	for k, e := range t.entries {
		if e.UpdatedAt.Before(cutoff) {
			delete(t.entries, k)
		}
	}

	if len(t.entries) == 0 {
		os.Remove(t.cachePath)
		return nil
	}

	data, err := json.MarshalIndent(t.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling rate limit cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(t.cachePath), 0700); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	return os.WriteFile(t.cachePath, data, FilePermissions)
}

func (t *Tracker) load() {
	data, err := os.ReadFile(t.cachePath)
	if err != nil {
		return
	}
	var entries map[string]*Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.logger.Debug().Err(err).Str("path", t.cachePath).Msg("ignoring unreadable rate limit cache")
		return
	}
	for k, e := range entries {
		if e != nil {
			t.entries[k] = e
		}
	}
}

// entry returns the entry for endpoint, creating it. Caller holds mu.
func (t *Tracker) entry(endpoint string) *Entry {
	e, ok := t.entries[endpoint]
	if !ok {
		e = &Entry{Endpoint: endpoint}
		t.entries[endpoint] = e
	}
	return e
}

func parseRateLimitHeaders(resp *http.Response) (remaining, limit int, ok bool) {
	rStr := resp.Header.Get("X-Ratelimit-Remaining")
	lStr := resp.Header.Get("X-Ratelimit-Limit")
	if rStr == "" && lStr == "" {
		return 0, 0, false
	}

	remaining, _ = strconv.Atoi(rStr)
	limit, _ = strconv.Atoi(lStr)
	return remaining, limit, true
}

// ParseRetryAfter parses the Retry-After header as seconds or HTTP-date.
func ParseRetryAfter(resp *http.Response) (time.Time, bool) {
	val := resp.Header.Get("Retry-After")
	if val == "" {
		return time.Time{}, false
	}

	if secs, err := strconv.Atoi(val); err == nil {
		return time.Now().Add(time.Duration(secs) * time.Second), true
	}
	if t, err := http.ParseTime(val); err == nil {
		return t, true
	}
	return time.Time{}, false
}
