package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultSweepMinAge keeps just-started sessions out of the sweep.
const DefaultSweepMinAge = time.Hour

// Sweeper deletes abandoned sessions: no end time and no results.
type Sweeper struct {
	ledger  SessionLedger
	results ResultLog
	minAge  time.Duration
	opts    options
}

func NewSweeper(ledger SessionLedger, results ResultLog, minAge time.Duration, opts ...Option) *Sweeper {
	if minAge < 0 {
		minAge = 0
	}
	return &Sweeper{ledger: ledger, results: results, minAge: minAge, opts: buildOptions(opts)}
}

// Sweep removes abandoned sessions started more than minAge ago and returns
// how many were deleted.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	sessions, err := s.ledger.ListSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	cutoff := s.opts.now().Add(-s.minAge)
	deleted := 0
	for _, session := range sessions {
		if session.EndedAt != nil || session.StartedAt.After(cutoff) {
			continue
		}
		results, err := s.results.ListResultsBySession(ctx, session.ID)
		if err != nil {
			return deleted, fmt.Errorf("list results: %w", err)
		}
		if len(results) > 0 {
			continue
		}
		if err := s.ledger.DeleteSession(ctx, session.ID); err != nil {
			return deleted, fmt.Errorf("delete session %s: %w", session.ID, err)
		}
		deleted++
		s.opts.log.WithField("session_id", session.ID).Debug("abandoned session swept")
	}

	s.opts.recorder.SessionsSwept(deleted)
	s.opts.log.WithFields(logrus.Fields{"deleted": deleted, "scanned": len(sessions)}).Info("session sweep complete")
	return deleted, nil
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.opts.log.WithError(err).Warn("session sweep failed")
			}
		}
	}
}
