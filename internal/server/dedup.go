package server

import (
	"sync"
	"time"
)

const dedupWindow = 30 * time.Second

type dedupKey struct {
	chatId          string
	clientMessageId string
}

// DedupCache is the fast-reject guard against rapid retransmission of
// the same client message id. It is bounded and never authoritative:
// the store's unique (chat_id, client_message_id) index is the single
// source of deduplication truth.
type DedupCache struct {
	mu      sync.Mutex
	entries map[dedupKey]time.Time
	cap     int
	window  time.Duration
	now     func() time.Time
}

func NewDedupCache(cap int) *DedupCache {
	return &DedupCache{
		entries: make(map[dedupKey]time.Time),
		cap:     cap,
		window:  dedupWindow,
		now:     time.Now,
	}
}

// CheckAndRecord reports whether the (chatId, clientMessageId) pair was
// seen inside the dedup window. If not, the attempt is recorded and the
// stalest entries are evicted once the cache exceeds its bound.
func (d *DedupCache) CheckAndRecord(chatId, clientMessageId string) bool {
	key := dedupKey{chatId: chatId, clientMessageId: clientMessageId}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if seen, ok := d.entries[key]; ok && now.Sub(seen) < d.window {
		return true
	}

	d.entries[key] = now
	for len(d.entries) > d.cap {
		d.evictOldest()
	}

	return false
}

// evictOldest removes the entry with the smallest last-seen timestamp,
// so eviction order follows staleness rather than insertion order.
func (d *DedupCache) evictOldest() {
	var (
		oldestKey dedupKey
		oldest    time.Time
		found     bool
	)
	for key, seen := range d.entries {
		if !found || seen.Before(oldest) {
			oldestKey, oldest, found = key, seen, true
		}
	}
	if found {
		delete(d.entries, oldestKey)
	}
}

func (d *DedupCache) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}
