package service

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// keyedLimiter hands out one token-bucket limiter per key (an email in
// the confirmation path). Stale entries are pruned lazily once the map
// grows past pruneThreshold.
type keyedLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*keyedLimiterEntry
}

type keyedLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

const (
	pruneThreshold = 10_000
	pruneAfter     = time.Hour
)

func newKeyedLimiter(limit rate.Limit, burst int) *keyedLimiter {
	return &keyedLimiter{
		limit:    limit,
		burst:    burst,
		limiters: make(map[string]*keyedLimiterEntry),
	}
}

// Allow reports whether one event for key may proceed now.
func (kl *keyedLimiter) Allow(key string) bool {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	entry, ok := kl.limiters[key]
	if !ok {
		entry = &keyedLimiterEntry{limiter: rate.NewLimiter(kl.limit, kl.burst)}
		kl.limiters[key] = entry
	}
	entry.lastAccess = time.Now()

	if len(kl.limiters) > pruneThreshold {
		kl.prune()
	}

	return entry.limiter.Allow()
}

// prune drops entries idle longer than pruneAfter. Caller holds mu.
func (kl *keyedLimiter) prune() {
	cutoff := time.Now().Add(-pruneAfter)
	for key, entry := range kl.limiters {
		if entry.lastAccess.Before(cutoff) {
			delete(kl.limiters, key)
		}
	}
}
