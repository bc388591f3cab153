package lim

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"flybin/pkg/domain"
	"flybin/svc/db"
	"flybin/svc/util"
)

// Bucket is the admission-control capability handed to the HTTP service.
// It is injected rather than reached for as a singleton so tests can
// substitute a deterministic or unlimited bucket.
type Bucket interface {
	// Acquire blocks until a permit is available or the request cannot be
	// admitted, in which case it returns domain.ErrOverloaded.
	Acquire(ctx context.Context) error
}

// TokenBucket is a process-wide token bucket shared across all callers, not
// partitioned per client. Requests beyond the replenish rate queue up to a
// bounded buffer; once the buffer is full they are rejected outright.
type TokenBucket struct {
	limiter *rate.Limiter
	queue   chan struct{}
}

func NewTokenBucket(permits int, window time.Duration, queueSize int) *TokenBucket {
	if permits <= 0 {
		permits = 1
	}
	if window <= 0 {
		window = time.Second
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &TokenBucket{
		limiter: rate.NewLimiter(rate.Limit(float64(permits)/window.Seconds()), permits),
		queue:   make(chan struct{}, queueSize),
	}
}

func (b *TokenBucket) Acquire(ctx context.Context) error {
	select {
	case b.queue <- struct{}{}:
	default:
		return domain.ErrOverloaded
	}
	defer func() { <-b.queue }()
	if err := b.limiter.Wait(ctx); err != nil {
		return domain.ErrOverloaded
	}
	return nil
}

// SharedBucket enforces the same budget through a Redis fixed window so
// multiple replicas share it. Redis trouble falls back to the local bucket
// rather than letting traffic through unmetered.
type SharedBucket struct {
	rdb     *db.Redis
	local   *TokenBucket
	permits int
	window  time.Duration
}

func NewShared(rdb *db.Redis, permits int, window time.Duration, queueSize int) *SharedBucket {
	return &SharedBucket{
		rdb:     rdb,
		local:   NewTokenBucket(permits, window, queueSize),
		permits: permits,
		window:  window,
	}
}

func (b *SharedBucket) Acquire(ctx context.Context) error {
	if b.rdb == nil {
		return b.local.Acquire(ctx)
	}
	usage, err := b.rdb.AdmitWindow(ctx, "admit:global", b.permits, b.window)
	if err != nil {
		util.Warn().Err(err).Msg("redis admission window unavailable, using local bucket")
		return b.local.Acquire(ctx)
	}
	if usage > b.permits {
		return domain.ErrOverloaded
	}
	return nil
}

type unlimited struct{}

func (unlimited) Acquire(context.Context) error { return nil }

// Unlimited returns a bucket that admits everything. Test use.
func Unlimited() Bucket {
	return unlimited{}
}
