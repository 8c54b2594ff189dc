package poller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"prmonitor/internal/domain/tracker"
	"prmonitor/internal/infrastructure/async"
)

// Poller is the periodic side of the orchestrator: every tick it
// announces newly opened PRs for each monitored repository and
// reconciles every tracked record against the forge. Per-record work
// fans out onto the worker pool; a failed fetch only skips that PR for
// the cycle.
type Poller struct {
	svc      tracker.Service
	pool     *async.WorkerPool
	interval time.Duration
	ignored  map[string]bool
	log      *zap.Logger
}

func New(
	svc tracker.Service,
	pool *async.WorkerPool,
	interval time.Duration,
	ignored []tracker.RepoRef,
	log *zap.Logger,
) *Poller {
	skip := make(map[string]bool, len(ignored))
	for _, ref := range ignored {
		skip[ref.String()] = true
	}
	return &Poller{
		svc:      svc,
		pool:     pool,
		interval: interval,
		ignored:  skip,
		log:      log,
	}
}

// Run blocks until ctx is cancelled. The first tick fires immediately
// so a restart does not wait a full interval to catch up.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	started := time.Now()

	repos, err := p.svc.Repositories(ctx)
	if err != nil {
		p.log.Error("tick aborted: repository list unavailable", zap.Error(err))
		return
	}

	var wg sync.WaitGroup
	for _, ref := range repos {
		if p.ignored[ref.String()] {
			continue
		}
		ref := ref
		wg.Add(1)
		p.pool.Submit(func(taskCtx context.Context) {
			defer wg.Done()
			n, err := p.svc.Announce(taskCtx, ref)
			if err != nil {
				p.log.Warn("announce pass skipped",
					zap.String("repo", ref.String()),
					zap.Error(err),
				)
				return
			}
			if n > 0 {
				p.log.Info("new prs announced",
					zap.String("repo", ref.String()),
					zap.Int("count", n),
				)
			}
		})
	}
	wg.Wait()

	recs, err := p.svc.ListTracked(ctx)
	if err != nil {
		p.log.Error("tick aborted: tracked list unavailable", zap.Error(err))
		return
	}

	for _, rec := range recs {
		rec := rec
		wg.Add(1)
		p.pool.Submit(func(taskCtx context.Context) {
			defer wg.Done()
			if err := p.svc.SyncRecord(taskCtx, rec); err != nil {
				p.log.Warn("sync skipped this cycle",
					zap.String("repo", rec.Repo),
					zap.Int("number", rec.Number),
					zap.Error(err),
				)
			}
		})
	}
	wg.Wait()

	p.log.Info("tick complete",
		zap.Int("repos", len(repos)),
		zap.Int("records", len(recs)),
		zap.Duration("took", time.Since(started)),
	)
}
