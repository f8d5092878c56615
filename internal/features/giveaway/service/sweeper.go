package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"giveaway-engine-backend/internal/common/config"
	"giveaway-engine-backend/internal/features/giveaway/models"
	"giveaway-engine-backend/internal/features/giveaway/repository"
)

const (
	maxFinalizeAttempts  = 3
	finalizeRetryBackoff = time.Second
)

// Sweeper drives the time-based transitions. Each sweep re-evaluates all
// non-terminal giveaways against the current time using only their persisted
// fields, so a process restarted after start_at or end_at catches up on its
// first sweep. Every transition is gated by the store's CAS, which makes any
// number of concurrent sweeper instances safe: at most one CAS succeeds per
// transition and the rest observe failure and move on.
type Sweeper struct {
	ctx     context.Context
	cancel  context.CancelFunc
	service *giveawayService
	repo    repository.GiveawayRepository
	config  *config.Config
	logger  zerolog.Logger
	wg      sync.WaitGroup
}

func NewSweeper(svc GiveawayService, repo repository.GiveawayRepository, cfg *config.Config, logger zerolog.Logger) *Sweeper {
	ctx, cancel := context.WithCancel(context.Background())
	return &Sweeper{
		ctx:     ctx,
		cancel:  cancel,
		service: svc.(*giveawayService),
		repo:    repo,
		config:  cfg,
		logger:  logger,
	}
}

// Start launches the sweep loop. It returns immediately.
func (s *Sweeper) Start() {
	s.logger.Info().
		Dur("interval", s.config.Scheduler.SweepInterval).
		Dur("ending_grace", s.config.Scheduler.EndingGrace).
		Msg("Starting giveaway sweeper")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.config.Scheduler.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.Sweep(s.ctx)
			case <-s.ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the loop and waits for in-flight work.
func (s *Sweeper) Stop() {
	s.logger.Info().Msg("Stopping giveaway sweeper")
	s.cancel()
	s.wg.Wait()
	s.logger.Info().Msg("Giveaway sweeper stopped")
}

// Sweep runs one scan over the non-terminal giveaways. Failures on a single
// giveaway are logged and isolated; the scan always continues.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := time.Now()

	giveaways, err := s.repo.List(ctx, models.ListFilter{Statuses: []models.GiveawayStatus{
		models.GiveawayStatusScheduled,
		models.GiveawayStatusActive,
		models.GiveawayStatusEnding,
	}})
	if err != nil {
		s.logger.Error().Err(err).Msg("Sweep failed to list giveaways")
		return
	}

	for _, giveaway := range giveaways {
		select {
		case <-ctx.Done():
			return
		default:
		}

		switch {
		case giveaway.Due(now):
			s.activate(ctx, giveaway)
		case giveaway.Expired(now):
			s.finalize(ctx, giveaway)
		case giveaway.Status == models.GiveawayStatusEnding:
			s.resumeStuckFinalize(ctx, giveaway, now)
		}
	}
}

func (s *Sweeper) activate(ctx context.Context, giveaway *models.Giveaway) {
	ok, err := s.repo.CompareAndSetStatus(ctx, giveaway.ID, models.GiveawayStatusScheduled, models.GiveawayStatusActive)
	if err != nil {
		s.logger.Error().Err(err).Str("giveaway_id", giveaway.ID).Msg("Activation failed")
		return
	}
	if !ok {
		// Another sweep or replica got there first.
		return
	}

	giveaway.Status = models.GiveawayStatusActive
	if nerr := s.service.notifier.OnActivated(ctx, giveaway); nerr != nil {
		s.logger.Warn().Err(nerr).Str("giveaway_id", giveaway.ID).Msg("Activation notification failed")
	}

	s.logger.Info().Str("giveaway_id", giveaway.ID).Msg("Giveaway activated by sweep")
}

func (s *Sweeper) finalize(ctx context.Context, giveaway *models.Giveaway) {
	ok, err := s.repo.CompareAndSetStatus(ctx, giveaway.ID, models.GiveawayStatusActive, models.GiveawayStatusEnding)
	if err != nil {
		s.logger.Error().Err(err).Str("giveaway_id", giveaway.ID).Msg("Transition to ending failed")
		return
	}
	if !ok {
		// An early-end request or another sweep won the race.
		return
	}
	giveaway.Status = models.GiveawayStatusEnding

	s.commitWithRetry(ctx, giveaway)
}

// resumeStuckFinalize re-attempts selection-and-commit for a giveaway left
// in ending past the grace period, e.g. after a crash mid-finalize. The
// commit stays idempotent: CommitWinners refuses unless the status is still
// ending.
func (s *Sweeper) resumeStuckFinalize(ctx context.Context, giveaway *models.Giveaway, now time.Time) {
	since, err := s.repo.EndingSince(ctx, giveaway.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("giveaway_id", giveaway.ID).Msg("Failed to read ending timestamp")
		return
	}
	if !since.IsZero() && now.Sub(since) < s.config.Scheduler.EndingGrace {
		return
	}

	s.logger.Warn().
		Str("giveaway_id", giveaway.ID).
		Time("ending_since", since).
		Msg("Re-attempting finalize for giveaway stuck in ending")

	s.commitWithRetry(ctx, giveaway)
}

func (s *Sweeper) commitWithRetry(ctx context.Context, giveaway *models.Giveaway) {
	var lastErr error
	for attempt := 1; attempt <= maxFinalizeAttempts; attempt++ {
		if _, _, err := s.service.finalizeFromEnding(ctx, giveaway); err != nil {
			lastErr = err
			s.logger.Warn().Err(err).
				Str("giveaway_id", giveaway.ID).
				Int("attempt", attempt).
				Msg("Finalize attempt failed")
			select {
			case <-time.After(finalizeRetryBackoff * time.Duration(attempt)):
			case <-ctx.Done():
				return
			}
			continue
		}
		return
	}

	// Left in ending; the grace-period path picks it up on a later sweep.
	s.logger.Error().Err(lastErr).
		Str("giveaway_id", giveaway.ID).
		Msg("Finalize failed after retries")
}
