package services

import (
	"context"
	"fmt"
	"time"

	"filehost-backend/internal/metrics"

	"github.com/rs/zerolog/log"
)

// Sweeper deletes expired share tokens once a day at a fixed wall-clock time
type Sweeper struct {
	tokens TokenSweeper
	hour   int
	minute int
	loc    *time.Location
	now    func() time.Time
}

// NewSweeper creates a sweeper running daily at "HH:MM" in loc
func NewSweeper(tokens TokenSweeper, at string, loc *time.Location) (*Sweeper, error) {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return nil, fmt.Errorf("invalid sweep time %q: %w", at, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Sweeper{
		tokens: tokens,
		hour:   t.Hour(),
		minute: t.Minute(),
		loc:    loc,
		now:    time.Now,
	}, nil
}

// NextRun returns the first scheduled run strictly after from
func (s *Sweeper) NextRun(from time.Time) time.Time {
	local := from.In(s.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.hour, s.minute, 0, 0, s.loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, s.hour, s.minute, 0, 0, s.loc)
	}
	return next
}

// Start runs the sweep on schedule until ctx is cancelled
func (s *Sweeper) Start(ctx context.Context) {
	log.Info().
		Str("at", fmt.Sprintf("%02d:%02d", s.hour, s.minute)).
		Str("timezone", s.loc.String()).
		Msg("Share token sweeper started")

	for {
		next := s.NextRun(s.now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info().Msg("Share token sweeper stopped")
			return
		case <-timer.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce deletes the tokens expired at the current time. Failures are logged
// and never propagated, so the schedule survives them.
func (s *Sweeper) RunOnce(ctx context.Context) (deleted int64) {
	defer func() {
		if r := recover(); r != nil {
			metrics.SweepRunsTotal.WithLabelValues("panic").Inc()
			log.Error().Interface("panic", r).Msg("Share token sweep panicked")
			deleted = 0
		}
	}()

	n, err := s.tokens.DeleteExpiredTokens(ctx, s.now().UTC())
	if err != nil {
		metrics.SweepRunsTotal.WithLabelValues("error").Inc()
		log.Error().Err(err).Msg("Share token sweep failed")
		return 0
	}

	metrics.SweepRunsTotal.WithLabelValues("ok").Inc()
	metrics.ShareTokensSweptTotal.Add(float64(n))
	log.Info().Int64("deleted", n).Msg("Expired share tokens removed")
	return n
}
