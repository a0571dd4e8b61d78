package authz

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper periodically expires overdue transactions. Expiry is also enforced
// lazily by every operation that touches a record, so the sweep only bounds
// how long an abandoned transaction can hold its spending reservation.
type Sweeper struct {
	auth     *Authorizer
	interval time.Duration
	log      *zap.Logger
}

// NewSweeper returns a sweeper running one ExpireDue pass per interval.
func NewSweeper(auth *Authorizer, interval time.Duration, log *zap.Logger) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{auth: auth, interval: interval, log: log}
}

// Run blocks until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.auth.ExpireDue(ctx)
			if err != nil && ctx.Err() == nil {
				s.log.Warn("expiry sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.log.Info("expiry sweep", zap.Int("expired", n))
			}
		}
	}
}
