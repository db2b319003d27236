// Package cronrunner schedules background jobs such as the stale round
// sweeper.
package cronrunner

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Runner struct {
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context
}

func New(logger *zap.Logger, baseCtx context.Context) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Runner{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		logger:  logger,
		baseCtx: baseCtx,
	}
}

// Add schedules job under name. A run that is still going when the next
// tick fires is skipped; timeout bounds each run when positive.
func (r *Runner) Add(name, spec string, timeout time.Duration, job func(context.Context) error) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() {
		r.run(name, timeout, job)
	})
}

func (r *Runner) run(name string, timeout time.Duration, job func(context.Context) error) {
	ctx := r.baseCtx
	if ctx.Err() != nil {
		return
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	err := job(ctx)
	if r.logger == nil {
		return
	}
	if err != nil {
		r.logger.Warn("cron job failed", zap.String("job", name), zap.Duration("took", time.Since(start)), zap.Error(err))
		return
	}
	r.logger.Debug("cron job ok", zap.String("job", name), zap.Duration("took", time.Since(start)))
}

func (r *Runner) Entries() int {
	return len(r.cron.Entries())
}

func (r *Runner) Start() {
	if r.logger != nil {
		r.logger.Info("cron started", zap.Int("jobs", r.Entries()))
	}
	r.cron.Start()
}

func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	if r.logger != nil {
		r.logger.Info("cron stopped")
	}
}
