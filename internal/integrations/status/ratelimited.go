package status

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BearBump/FilmTrack/internal/models"
)

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type rateLimited struct {
	next      Provider
	rl        RateLimiter
	perMinute int64
	pause     time.Duration
	now       func() time.Time
}

// RateLimited throttles calls to p to perMinute requests per wall-clock minute,
// counted in a shared limiter so every worker instance sees the same budget.
// A non-positive perMinute or nil limiter returns p unchanged.
func RateLimited(p Provider, rl RateLimiter, perMinute int64) Provider {
	if rl == nil || perMinute <= 0 {
		return p
	}
	return &rateLimited{
		next:      p,
		rl:        rl,
		perMinute: perMinute,
		pause:     500 * time.Millisecond,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (r *rateLimited) ID() string { return r.next.ID() }

func (r *rateLimited) FetchStatus(ctx context.Context, order models.FilmOrder) (models.FilmStatus, error) {
	key := fmt.Sprintf("rl:provider:%s:%s", r.next.ID(), r.now().Format("200601021504"))
	allowed, n, err := r.rl.Allow(ctx, key, r.perMinute, 70*time.Second)
	if err != nil {
		return models.FilmStatus{}, TransportError(r.next.ID(), err)
	}
	if !allowed {
		// Over budget: slow down a little to spare the vendor.
		slog.Warn("provider rate limit exceeded", "provider", r.next.ID(), "count", n)
		select {
		case <-ctx.Done():
			return models.FilmStatus{}, ctx.Err()
		case <-time.After(r.pause):
		}
	}
	return r.next.FetchStatus(ctx, order)
}
