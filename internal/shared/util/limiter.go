package util

import (
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket used to throttle repeated work such as
// watch-mode reruns.
type Limiter struct {
	inner *rate.Limiter
}

// NewLimiter creates a limiter refilling r tokens per second with burst b.
func NewLimiter(r float64, b int) *Limiter {
	return &Limiter{
		inner: rate.NewLimiter(rate.Limit(r), b),
	}
}

// NewPerMinuteLimiter allows n events per minute with a burst of one.
// n <= 0 disables throttling.
func NewPerMinuteLimiter(n int) *Limiter {
	if n <= 0 {
		return NewLimiter(float64(rate.Inf), 1)
	}
	return NewLimiter(float64(n)/time.Minute.Seconds(), 1)
}

// Allow reports whether n events may happen now.
func (l *Limiter) Allow(n int) bool {
	return l.inner.AllowN(time.Now(), n)
}
