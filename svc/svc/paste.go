package svc

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"flybin/metrics"
	"flybin/pkg/domain"
	"flybin/svc/auth"
	"flybin/svc/cache"
	"flybin/svc/db"
	"flybin/svc/util"
)

// A fresh slug is drawn on every collision; past this many draws the store
// is either full beyond reason or broken.
const maxSlugRetries = 5

// Paste implements the paste lifecycle over the store. Both listeners share
// one instance; all cross-request state lives in the store and the cache.
type Paste struct {
	db  *db.SQLite
	lru *cache.LRU
}

func NewPaste(sqlDB *db.SQLite, lru *cache.LRU) *Paste {
	if sqlDB == nil || lru == nil {
		panic("paste service: nil dependency")
	}
	return &Paste{db: sqlDB, lru: lru}
}

// Create persists a new paste and returns it with the secret set. The
// secret appears in the creation response and never again.
func (p *Paste) Create(ctx context.Context, content, ipAddress string) (*domain.Paste, error) {
	secret, err := util.NewSecret()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	paste := &domain.Paste{
		Content:   content,
		CreatedAt: now,
		ExpiresAt: domain.ExpiresAt(len(content), now),
		Secret:    secret,
		IPAddress: ipAddress,
		Access:    domain.Open(),
	}
	for attempt := 0; attempt < maxSlugRetries; attempt++ {
		slug, err := util.NewSlug()
		if err != nil {
			return nil, err
		}
		paste.Slug = slug
		err = p.db.Create(ctx, paste)
		if err == nil {
			p.lru.Set(paste)
			metrics.PasteCreated.Inc()
			return paste, nil
		}
		if errors.Is(err, domain.ErrSlugConflict) {
			util.Warn().Str("slug", slug).Int("attempt", attempt+1).Msg("slug collision, regenerating")
			continue
		}
		return nil, errors.Wrap(err, "create paste")
	}
	return nil, errors.Wrap(domain.ErrInternalServer, "slug space exhausted")
}

// Get returns a paste if the caller satisfies its access predicate. A wrong
// or missing password is reported as not-found, the same as an absent slug.
func (p *Paste) Get(ctx context.Context, slug, password string) (*domain.Paste, error) {
	var digest string
	if password != "" {
		digest = auth.Digest(password)
	}
	if cached := p.lru.Get(ctx, slug); cached != nil {
		if cached.Expired(time.Now()) {
			p.lru.Delete(slug)
			return nil, domain.ErrPasteNotFound
		}
		if !cached.Access.Allows(digest) {
			return nil, domain.ErrPasteNotFound
		}
		metrics.CacheHits.Inc()
		metrics.PasteRetrieved.Inc()
		return cached, nil
	}
	metrics.CacheMisses.Inc()
	paste, err := p.db.Get(ctx, slug, digest)
	if err != nil {
		if errors.Is(err, domain.ErrPasteNotFound) {
			return nil, domain.ErrPasteNotFound
		}
		return nil, errors.Wrap(err, "get paste")
	}
	p.lru.Set(paste)
	metrics.PasteRetrieved.Inc()
	return paste, nil
}

// Lock sets a password requirement on an existing paste. Only the holder of
// the secret can lock; a re-lock overwrites the previous password.
func (p *Paste) Lock(ctx context.Context, slug, secret, password string) error {
	if err := p.db.Lock(ctx, slug, secret, auth.Digest(password)); err != nil {
		return err
	}
	p.lru.Delete(slug)
	metrics.PasteLocked.Inc()
	util.Info().Str("slug", slug).Msg("paste locked")
	return nil
}

// Delete removes a paste. Only the holder of the secret may delete;
// afterwards the slug reads as not-found.
func (p *Paste) Delete(ctx context.Context, slug, secret string) error {
	if err := p.db.Delete(ctx, slug, secret); err != nil {
		return err
	}
	p.lru.Delete(slug)
	metrics.PasteDeleted.Inc()
	util.Info().Str("slug", slug).Msg("paste deleted")
	return nil
}

var (
	sweeperOnce    sync.Once
	sweeperRunning atomic.Bool
)

// StartSweeper runs the periodic reap of expired rows. Reads already mask
// expired pastes; the sweep reclaims the storage.
func StartSweeper(ctx context.Context, store *db.SQLite, interval time.Duration) error {
	if sweeperRunning.Load() {
		return errors.New("sweeper already running")
	}
	sweeperOnce.Do(func() {
		sweeperRunning.Store(true)
		go runSweeper(ctx, store, interval)
	})
	return nil
}

func runSweeper(ctx context.Context, store *db.SQLite, interval time.Duration) {
	defer sweeperRunning.Store(false)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	util.Info().Dur("interval", interval).Msg("expiry sweeper started")
	for {
		select {
		case <-ctx.Done():
			util.Info().Msg("expiry sweeper shutting down")
			return
		case <-ticker.C:
			deleted, err := store.SweepExpired(ctx)
			metrics.SweepCycles.Inc()
			if err != nil {
				util.Error().Err(err).Msg("expiry sweep failed")
			} else if deleted > 0 {
				util.Info().Int("deleted", deleted).Msg("expiry sweep completed")
			}
		}
	}
}
