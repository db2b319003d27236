package round

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HackGT12/app-view-sub000/internal/models"
)

// Fetcher loads rounds for the machine.
type Fetcher interface {
	LatestRound(ctx context.Context) (*models.Round, error)
	GetRound(ctx context.Context, id string) (*models.Round, error)
}

type MachineOptions struct {
	Countdown    *CountdownPolicy
	FetchTimeout time.Duration
	// OnChange is called from the machine goroutine after every state change.
	OnChange func(State)
	Logger   *zap.Logger
}

// Machine serializes timer ticks, feed events and fetch results through one
// queue and applies them with Transition.
type Machine struct {
	fetch Fetcher
	opts  MachineOptions

	events chan Event
	done   chan struct{}
	once   sync.Once

	mu    sync.RWMutex
	state State
}

func NewMachine(fetch Fetcher, opts MachineOptions) *Machine {
	if opts.Countdown == nil {
		opts.Countdown = DefaultCountdownPolicy()
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	return &Machine{
		fetch:  fetch,
		opts:   opts,
		events: make(chan Event, 64),
		done:   make(chan struct{}),
	}
}

// Post queues ev. It is a no-op once the machine has stopped.
func (m *Machine) Post(ev Event) {
	if m == nil || ev == nil {
		return
	}
	select {
	case <-m.done:
	case m.events <- ev:
	}
}

func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.clone()
}

// Run processes events until ctx is cancelled. Fetches still in flight at
// that point finish into a closed queue and are discarded.
func (m *Machine) Run(ctx context.Context) error {
	defer m.once.Do(func() { close(m.done) })

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	m.apply(ctx, Started{}, &timer, &timerC)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timerC:
			timerC = nil
			m.apply(ctx, TimerExpired{}, &timer, &timerC)
		case ev := <-m.events:
			m.apply(ctx, ev, &timer, &timerC)
		}
	}
}

func (m *Machine) apply(ctx context.Context, ev Event, timer **time.Timer, timerC *<-chan time.Time) {
	m.mu.Lock()
	prev := m.state
	next, effects := Transition(prev, ev)
	m.state = next
	m.mu.Unlock()

	if prev.Pending != 0 && next.Pending != prev.Pending {
		m.debug("round fetch superseded", zap.Uint64("token", prev.Pending))
	}
	for _, eff := range effects {
		switch e := eff.(type) {
		case RestartCountdown:
			if *timer != nil {
				(*timer).Stop()
			}
			d := m.opts.Countdown.Next()
			*timer = time.NewTimer(d)
			*timerC = (*timer).C
			m.debug("countdown restarted", zap.Duration("duration", d))
		case FetchLatest:
			go m.load(ctx, e.Token, "", func(c context.Context) (*models.Round, error) {
				return m.fetch.LatestRound(c)
			})
		case FetchRound:
			go m.load(ctx, e.Token, e.RoundID, func(c context.Context) (*models.Round, error) {
				return m.fetch.GetRound(c, e.RoundID)
			})
		}
	}
	if m.opts.OnChange != nil && !sameState(prev, next) {
		m.opts.OnChange(next.clone())
	}
}

func (m *Machine) load(ctx context.Context, token uint64, roundID string, get func(context.Context) (*models.Round, error)) {
	if m.fetch == nil {
		m.Post(RoundLoadFailed{Token: token})
		return
	}
	fctx, cancel := context.WithTimeout(ctx, m.opts.FetchTimeout)
	defer cancel()
	r, err := get(fctx)
	if err != nil {
		m.debug("round fetch failed", zap.String("round_id", roundID), zap.Error(err))
		m.Post(RoundLoadFailed{Token: token, Err: err})
		return
	}
	m.Post(RoundLoaded{Token: token, Round: r})
}

func sameState(a, b State) bool {
	return a.Phase == b.Phase && a.Round == b.Round && a.ActiveID == b.ActiveID &&
		a.Pending == b.Pending && a.Voted == b.Voted && a.Closed == b.Closed
}

func (m *Machine) debug(msg string, fields ...zap.Field) {
	if m.opts.Logger != nil {
		m.opts.Logger.Debug(msg, fields...)
	}
}
