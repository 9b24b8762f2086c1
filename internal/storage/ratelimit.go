package storage

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// gate enforces a minimum interval between storage requests. A nil
// limiter means the gate is disabled. Batch uploads skip the gate so
// a configured interval does not serialize bulk writes.
type gate struct {
	lim *rate.Limiter
}

func newGate(interval time.Duration) *gate {
	if interval <= 0 {
		return &gate{}
	}
	return &gate{lim: rate.NewLimiter(rate.Every(interval), 1)}
}

func (g *gate) wait(ctx context.Context) error {
	if g.lim == nil {
		return nil
	}
	return g.lim.Wait(ctx)
}
