package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Limiter interface {
	IsRateLimited(userId, ip, op string) (bool, time.Duration)
}

type bucketKey struct {
	userId string
	op     string
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// TokenBucketLimiter keeps one token bucket per (user, operation)
// pair. Buckets idle longer than idleTTL are dropped on the next
// lookup pass to keep the table bounded.
type TokenBucketLimiter struct {
	mu      sync.Mutex
	buckets map[bucketKey]*bucket
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

func NewTokenBucketLimiter(perSecond float64, burst int) *TokenBucketLimiter {
	return &TokenBucketLimiter{
		buckets: make(map[bucketKey]*bucket),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		now:     time.Now,
	}
}

func (l *TokenBucketLimiter) IsRateLimited(userId, ip, op string) (bool, time.Duration) {
	key := bucketKey{userId: userId, op: op}
	if userId == "" {
		// unauthenticated callers are bucketed by address
		key.userId = ip
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst), lastSeen: now}
		l.buckets[key] = b
		l.evictIdle(now)
	}
	b.lastSeen = now

	res := b.limiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return true, delay
	}

	return false, 0
}

func (l *TokenBucketLimiter) evictIdle(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.idleTTL {
			delete(l.buckets, key)
		}
	}
}
