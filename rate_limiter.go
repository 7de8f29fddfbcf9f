package auth

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter is the generic counter+timeout primitive shared by every
// guarded action (login, password reset, email verification, OAuth
// linking). Counters and cooldown markers live in the cache backend and
// are manipulated with single atomic commands, never read-then-write.
type RateLimiter struct {
	cache CacheClient
}

// NewRateLimiter creates a limiter over the given cache.
func NewRateLimiter(cache CacheClient) *RateLimiter {
	return &RateLimiter{cache: cache}
}

// Reached reports whether (action, subject) is over budget. An existing
// cooldown marker short-circuits without counting. Otherwise the counter
// is incremented, carrying the window TTL from its first hit; crossing
// the limit plants the cooldown marker with its own TTL.
func (rl *RateLimiter) Reached(ctx context.Context, action, subject string, limit int64, window, timeout time.Duration) (bool, error) {
	timeoutKey := rateTimeoutKey(action, subject)

	val, err := rl.cache.Get(ctx, timeoutKey)
	if err != nil {
		return false, err
	}
	if val != "" {
		return true, nil
	}

	count, err := rl.cache.IncrWithTTL(ctx, rateCountKey(action, subject), window)
	if err != nil {
		return false, err
	}

	if count > limit {
		if _, err := rl.cache.SetNX(ctx, timeoutKey, "1", timeout); err != nil {
			return false, err
		}
		return true, nil
	}

	return false, nil
}

// Reset clears the counter and cooldown for (action, subject). Called
// after a successful login so earlier failures stop counting.
func (rl *RateLimiter) Reset(ctx context.Context, action, subject string) error {
	return rl.cache.Delete(ctx,
		rateCountKey(action, subject),
		rateTimeoutKey(action, subject),
	)
}

func rateCountKey(action, subject string) string {
	return fmt.Sprintf("users:rate:%s:count:%s", action, subject)
}

func rateTimeoutKey(action, subject string) string {
	return fmt.Sprintf("users:rate:%s:timeout:%s", action, subject)
}
