package round

import (
	"math/rand"
	"sync"
	"time"
)

const (
	DefaultCountdownBase   = 30 * time.Second
	DefaultCountdownJitter = 15 * time.Second
)

// CountdownPolicy draws each countdown uniformly from [Base, Base+Jitter).
type CountdownPolicy struct {
	Base   time.Duration
	Jitter time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewCountdownPolicy(base, jitter time.Duration, src rand.Source) *CountdownPolicy {
	if base <= 0 {
		base = DefaultCountdownBase
	}
	if jitter < 0 {
		jitter = 0
	}
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &CountdownPolicy{Base: base, Jitter: jitter, rnd: rand.New(src)}
}

func DefaultCountdownPolicy() *CountdownPolicy {
	return NewCountdownPolicy(DefaultCountdownBase, DefaultCountdownJitter, nil)
}

func (p *CountdownPolicy) Next() time.Duration {
	if p == nil {
		return DefaultCountdownBase
	}
	if p.Jitter <= 0 {
		return p.Base
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Base + time.Duration(p.rnd.Int63n(int64(p.Jitter)))
}
