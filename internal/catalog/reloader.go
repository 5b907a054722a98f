package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Reloader reloads every dataset of a catalog on a fixed interval.
type Reloader struct {
	catalog  *Catalog
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReloader creates a reloader. The catalog is expected to have been loaded
// already; the first reload happens one interval after Start.
func NewReloader(c *Catalog, interval time.Duration, logger *slog.Logger) *Reloader {
	return &Reloader{
		catalog:  c,
		interval: interval,
		logger:   logger,
	}
}

// Start begins periodic reloads.
func (r *Reloader) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(ctx)
	}()
}

// Stop cancels the reloader and waits for the current reload (if any) to finish.
func (r *Reloader) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

func (r *Reloader) run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reloadOnce(ctx)
		}
	}
}

func (r *Reloader) reloadOnce(ctx context.Context) {
	if err := r.catalog.LoadAll(ctx); err != nil {
		r.logger.Error("periodic reload failed", "err", err)
		return
	}
	r.logger.Info("periodic reload completed", "datasets", len(r.catalog.Names()))
}
