// Package ratelimit suppresses repeated expensive requests.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Debouncer lets one request per key through within a window. With a Redis
// client the window is shared by every process; otherwise it is local.
type Debouncer struct {
	redis    *redis.Client
	prefix   string
	duration time.Duration
	now      func() time.Time

	mu    sync.Mutex
	local map[string]time.Time // fallback for no redis
}

func NewDebouncer(redisClient *redis.Client, prefix string, duration time.Duration) *Debouncer {
	return &Debouncer{
		redis:    redisClient,
		prefix:   prefix,
		duration: duration,
		now:      time.Now,
		local:    make(map[string]time.Time),
	}
}

// Allow reports whether key may proceed and starts its window when it may.
// A Redis failure falls back to the local window.
func (d *Debouncer) Allow(ctx context.Context, key string) bool {
	if d.duration <= 0 {
		return true
	}

	if d.redis != nil {
		// SET NX: 키가 없을 때만 성공 → 윈도우 시작
		ok, err := d.redis.SetNX(ctx, d.prefix+key, "1", d.duration).Result()
		if err == nil {
			return ok
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, exists := d.local[key]; exists && now.Sub(last) < d.duration {
		return false
	}
	d.local[key] = now

	for k, v := range d.local {
		if now.Sub(v) > d.duration*2 {
			delete(d.local, k)
		}
	}
	return true
}
