package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"flybin/pkg/domain"
)

// LRU is a read-through cache in front of the paste store. Entries carry the
// paste's access predicate, so cached reads enforce the same password gate
// as the store. Lock and delete must invalidate.
type LRU struct {
	c  *lru.Cache[string, item]
	mu sync.Mutex
}

type item struct {
	paste *domain.Paste
	exp   time.Time
}

func NewLRU(size int) (*LRU, error) {
	if size <= 0 {
		return nil, errors.New("cache size must be positive")
	}
	if size > 100000 {
		return nil, errors.New("cache size too large")
	}
	c, err := lru.New[string, item](size)
	if err != nil {
		return nil, err
	}
	return &LRU{c: c}, nil
}

func (l *LRU) Get(ctx context.Context, slug string) *domain.Paste {
	select {
	case <-ctx.Done():
		return nil
	default:
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	it, ok := l.c.Get(slug)
	if !ok {
		return nil
	}
	if time.Now().After(it.exp) {
		l.c.Remove(slug)
		return nil
	}
	return it.paste
}

func (l *LRU) Set(p *domain.Paste) {
	if time.Now().After(p.ExpiresAt) {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.c.Add(p.Slug, item{
		paste: p,
		exp:   p.ExpiresAt,
	})
}

func (l *LRU) Delete(slug string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.c.Remove(slug)
}
