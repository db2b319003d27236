package guard

import (
	"context"
	"sync"
	"time"
)

type MemoryGuard struct {
	mu    sync.Mutex
	keys  map[string]time.Time
	ttl   time.Duration
	clock func() time.Time
}

// NewMemoryGuard keeps claims for ttl; ttl <= 0 keeps them forever.
func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	return &MemoryGuard{keys: map[string]time.Time{}, ttl: ttl, clock: time.Now}
}

func (g *MemoryGuard) Claim(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.clock()
	if exp, ok := g.keys[key]; ok {
		if exp.IsZero() || now.Before(exp) {
			return false, nil
		}
	}
	var exp time.Time
	if g.ttl > 0 {
		exp = now.Add(g.ttl)
	}
	g.keys[key] = exp
	return true, nil
}

func (g *MemoryGuard) Release(ctx context.Context, key string) error {
	_ = ctx
	g.mu.Lock()
	delete(g.keys, key)
	g.mu.Unlock()
	return nil
}
