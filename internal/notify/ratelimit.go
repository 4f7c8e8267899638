package notify

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// hostLimiter keeps one token-bucket limiter per host, created on first use.
// With burst 1 and a refill rate of one token per interval, the first send for
// a host goes through immediately and further sends inside the interval are
// rejected.
type hostLimiter struct {
	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
	interval time.Duration
}

func newHostLimiter(interval time.Duration) *hostLimiter {
	return &hostLimiter{
		limiters: make(map[int64]*rate.Limiter),
		interval: interval,
	}
}

func (h *hostLimiter) allow(hostID int64) bool {
	h.mu.Lock()
	limiter, ok := h.limiters[hostID]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(h.interval), 1)
		h.limiters[hostID] = limiter
	}
	h.mu.Unlock()

	return limiter.Allow()
}
