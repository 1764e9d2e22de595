package telegram

import (
	"sync"

	"golang.org/x/time/rate"
)

// userLimiter applies a token-bucket limit per user so one chat cannot spam
// the bot. Limiters for users gone quiet are kept; the map is small at this
// bot's scale.
type userLimiter struct {
	mu    sync.Mutex
	users map[int64]*rate.Limiter
	rps   rate.Limit
	burst int
}

func newUserLimiter(rps float64, burst int) *userLimiter {
	return &userLimiter{
		users: make(map[int64]*rate.Limiter),
		rps:   rate.Limit(rps),
		burst: burst,
	}
}

// Allow reports whether userID may make another call right now.
func (l *userLimiter) Allow(userID int64) bool {
	l.mu.Lock()
	lim, ok := l.users[userID]
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.users[userID] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
