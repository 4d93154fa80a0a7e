package app

import (
	"context"
	"time"

	"github.com/eventseat/ticketing/internal/clock"
	"github.com/eventseat/ticketing/internal/domain"
	"github.com/sirupsen/logrus"
)

// ExpiredHoldFinder lists ACTIVE holds whose expiry is in the past.
type ExpiredHoldFinder interface {
	FindExpiredActive(ctx context.Context, now time.Time) ([]domain.Hold, error)
}

// HoldExpirer reclaims one expired hold.
type HoldExpirer interface {
	ExpireAndRelease(ctx context.Context, hold domain.Hold) error
}

// Sweeper reclaims seats from expired holds in the background. It uses a
// fixed delay between runs: the interval is measured from the end of one
// sweep to the start of the next, so a slow sweep never overlaps the
// following one.
type Sweeper struct {
	finder       ExpiredHoldFinder
	expirer      HoldExpirer
	clock        clock.Clock
	log          *logrus.Logger
	startupDelay time.Duration
	interval     time.Duration
}

func NewSweeper(finder ExpiredHoldFinder, expirer HoldExpirer, clk clock.Clock, log *logrus.Logger, startupDelay, interval time.Duration) *Sweeper {
	return &Sweeper{
		finder:       finder,
		expirer:      expirer,
		clock:        clk,
		log:          log,
		startupDelay: startupDelay,
		interval:     interval,
	}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	timer := time.NewTimer(s.startupDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		s.Sweep(ctx)
		timer.Reset(s.interval)
	}
}

// Sweep performs one pass. Each hold is reclaimed in its own transaction;
// a failure on one hold is logged and does not stop the rest.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.clock.Now()
	holds, err := s.finder.FindExpiredActive(ctx, now)
	if err != nil {
		s.log.WithError(err).Error("sweeper: list expired holds")
		return
	}
	if len(holds) == 0 {
		return
	}

	reclaimed := 0
	for _, hold := range holds {
		if err := s.expirer.ExpireAndRelease(ctx, hold); err != nil {
			s.log.WithError(err).WithField("hold_id", hold.ID).Error("sweeper: expire hold")
			continue
		}
		reclaimed++
	}
	s.log.WithFields(logrus.Fields{
		"expired":   len(holds),
		"reclaimed": reclaimed,
	}).Info("sweeper: pass complete")
}
