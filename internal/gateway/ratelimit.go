package gateway

import (
	"sync"

	"golang.org/x/time/rate"
)

// maxTrackedSenders bounds the limiter map. When full the map is reset
// wholesale; refilling costs each sender at most one burst.
const maxTrackedSenders = 4096

// SenderLimiter rate limits inbound webhooks per sender. A zero or
// negative perMinute disables limiting.
type SenderLimiter struct {
	mu        sync.Mutex
	senders   map[string]*rate.Limiter
	perMinute int
}

func NewSenderLimiter(perMinute int) *SenderLimiter {
	return &SenderLimiter{
		senders:   make(map[string]*rate.Limiter),
		perMinute: perMinute,
	}
}

// Allow reports whether the sender may submit another message now.
func (l *SenderLimiter) Allow(sender string) bool {
	if l == nil || l.perMinute <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.senders[sender]
	if !ok {
		if len(l.senders) >= maxTrackedSenders {
			l.senders = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(rate.Limit(float64(l.perMinute)/60.0), l.perMinute)
		l.senders[sender] = lim
	}
	return lim.Allow()
}
