package discord

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Discord allows roughly five messages per five seconds per channel
const (
	sendInterval = time.Second
	sendBurst    = 5
)

// ChannelLimiter throttles outbound sends per channel
type ChannelLimiter struct {
	mu       sync.Mutex
	limits   map[string]*rate.Limiter
	interval time.Duration
	burst    int
}

// NewChannelLimiter creates a limiter allowing burst sends, then one per interval
func NewChannelLimiter(interval time.Duration, burst int) *ChannelLimiter {
	return &ChannelLimiter{
		limits:   make(map[string]*rate.Limiter),
		interval: interval,
		burst:    burst,
	}
}

func (l *ChannelLimiter) limiter(channelID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, ok := l.limits[channelID]; ok {
		return limiter
	}
	limiter := rate.NewLimiter(rate.Every(l.interval), l.burst)
	l.limits[channelID] = limiter
	return limiter
}

// Allow reports whether a send may happen now without waiting
func (l *ChannelLimiter) Allow(channelID string) bool {
	return l.limiter(channelID).Allow()
}

// Wait blocks until a send is allowed or ctx is done
func (l *ChannelLimiter) Wait(ctx context.Context, channelID string) error {
	return l.limiter(channelID).Wait(ctx)
}
