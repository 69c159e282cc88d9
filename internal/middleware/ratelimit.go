package middleware

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/crowdshield/dashboard/backend/pkg/utils"
)

// Limiter decides whether one more request may pass.
type Limiter interface {
	Allow() bool
}

type limiterAdapter struct {
	limiter *rate.Limiter
}

// NewTokenBucket returns a token-bucket limiter. Non-positive values fall back
// to one request per second with a burst of one.
func NewTokenBucket(ratePerSecond float64, burst int) Limiter {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &limiterAdapter{limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

func (l *limiterAdapter) Allow() bool {
	if l == nil || l.limiter == nil {
		return true
	}
	return l.limiter.Allow()
}

// RateLimit rejects requests with 429 once the limiter is exhausted. A nil
// limiter disables limiting.
func RateLimit(limiter Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter.Allow() {
				next.ServeHTTP(w, r)
				return
			}
			utils.RespondError(w, http.StatusTooManyRequests, "rate limit exceeded, please retry shortly")
		})
	}
}
