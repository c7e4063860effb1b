package worker

import (
	"context"
	"log/slog"
	"time"

	"gymdesk/internal/services"
)

// Projector recomputes stored client statuses.
type Projector interface {
	ProjectAll(ctx context.Context, today time.Time) (services.ProjectionResult, error)
}

// StatusWorker re-projects client statuses on a fixed interval so clients
// turn late when a month rolls over without any payment activity.
type StatusWorker struct {
	projector Projector
	interval  time.Duration
	now       func() time.Time
}

func NewStatusWorker(projector Projector, interval time.Duration, loc *time.Location) *StatusWorker {
	if loc == nil {
		loc = time.UTC
	}
	return &StatusWorker{
		projector: projector,
		interval:  interval,
		now:       func() time.Time { return time.Now().In(loc) },
	}
}

// RunOnce projects every client once.
func (w *StatusWorker) RunOnce(ctx context.Context) error {
	start := time.Now()
	res, err := w.projector.ProjectAll(ctx, w.now())
	if err != nil {
		slog.ErrorContext(ctx, "Status projection failed", "error", err)
		return err
	}
	slog.InfoContext(ctx, "Status projection run finished",
		"checked", res.Checked,
		"changed", res.Changed,
		"duration", time.Since(start))
	return nil
}

// Run projects immediately and then on every tick until ctx is done.
func (w *StatusWorker) Run(ctx context.Context) error {
	_ = w.RunOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Status worker stopped")
			return nil
		case <-ticker.C:
			_ = w.RunOnce(ctx)
		}
	}
}
