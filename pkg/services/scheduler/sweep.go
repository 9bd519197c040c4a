package scheduler

import (
	"context"
	"time"

	"github.com/de-tools/cloud-warden/pkg/models/domain"
)

// RunSweeps issues a periodic sweep over every rule-covered resource
// type until the context is cancelled. It is the internal analogue of a
// scheduled notification from the provider's event bus.
func (r *Router) RunSweeps(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := r.Submit(ctx, domain.Trigger{
				Kind:       domain.TriggerPeriodicSweep,
				ReceivedAt: time.Now(),
			})
			if err != nil {
				r.deps.Logger.Warn().Err(err).Msg("periodic sweep incomplete")
			}
		}
	}
}
