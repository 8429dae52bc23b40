package quota

import (
	"context"
	"sync"
	"time"

	"rmg-pulse/config"
)

// ModelCallLimiter enforces per-minute pacing and a daily cap on outbound
// model calls (scoring and embedding). It is in-memory and assumes a single
// job instance; a restart resets the counters, which is acceptable for
// short-lived batch jobs.
type ModelCallLimiter struct {
	mu sync.Mutex

	dailyLimit int
	usedToday  int
	dayKey     string

	interval time.Duration
	lastCall time.Time
}

// NewModelCallLimiterFromConfig builds a limiter from the model_quota
// config section. Values of 0 or below disable the corresponding limit.
func NewModelCallLimiterFromConfig(cfg config.AppConfig) *ModelCallLimiter {
	q := cfg.ModelQuota

	requestsPerDay := q.RequestsPerDay
	if requestsPerDay < 0 {
		requestsPerDay = 0
	}

	requestsPerMinute := q.RequestsPerMinute
	if requestsPerMinute < 0 {
		requestsPerMinute = 0
	}

	var interval time.Duration
	if requestsPerMinute > 0 {
		interval = time.Minute / time.Duration(requestsPerMinute)
	}

	return &ModelCallLimiter{
		dailyLimit: requestsPerDay,
		interval:   interval,
	}
}

// WaitAndReserve applies the per-minute and daily limits before a model call.
// - daily limit exhausted: returns (false, nil); the caller must skip the call.
// - context cancelled while pacing: returns (false, error).
func (l *ModelCallLimiter) WaitAndReserve(ctx context.Context) (bool, error) {
	for {
		l.mu.Lock()

		now := time.Now().UTC()
		todayKey := now.Format("2006-01-02")
		if l.dayKey != todayKey {
			l.dayKey = todayKey
			l.usedToday = 0
		}

		if l.dailyLimit > 0 && l.usedToday >= l.dailyLimit {
			l.mu.Unlock()
			return false, nil
		}

		var delay time.Duration
		if l.interval > 0 && !l.lastCall.IsZero() {
			nextAllowed := l.lastCall.Add(l.interval)
			delay = time.Until(nextAllowed)
		}

		if delay <= 0 {
			l.usedToday++
			l.lastCall = now
			l.mu.Unlock()
			return true, nil
		}

		// release the lock while pacing, then re-evaluate
		l.mu.Unlock()
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}
