package service

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"giveaway-engine-backend/internal/common/config"
	apperrors "giveaway-engine-backend/internal/common/errors"
	"giveaway-engine-backend/internal/features/giveaway/models"
	"giveaway-engine-backend/internal/features/giveaway/notifier"
	"giveaway-engine-backend/internal/features/giveaway/repository"
	"giveaway-engine-backend/internal/features/giveaway/selection"
)

// GiveawayService exposes the engine's operations to calling layers.
// External layers never write status directly; every transition funnels
// through the store's compare-and-set primitive.
type GiveawayService interface {
	Create(ctx context.Context, input *models.GiveawayCreate) (*models.GiveawayResponse, error)
	GetByID(ctx context.Context, giveawayID string) (*models.GiveawayResponse, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.GiveawayResponse, error)
	Entrants(ctx context.Context, giveawayID string) ([]string, error)

	Enter(ctx context.Context, giveawayID, participantID string, participantRoles []string) (models.EntryOutcome, error)
	Withdraw(ctx context.Context, giveawayID, participantID string) (models.WithdrawOutcome, error)

	EndNow(ctx context.Context, giveawayID string) (*models.FinalizeOutcome, error)
	Cancel(ctx context.Context, giveawayID string) (*models.CancelOutcome, error)
}

type giveawayService struct {
	repo      repository.GiveawayRepository
	notifier  notifier.Notifier
	config    *config.Config
	logger    zerolog.Logger
	newSource func() rand.Source
}

// Option customizes the service.
type Option func(*giveawayService)

// WithDrawSource overrides the random source factory used for winner draws.
// Tests inject a fixed seed here; production keeps the crypto-seeded default.
func WithDrawSource(factory func() rand.Source) Option {
	return func(s *giveawayService) {
		s.newSource = factory
	}
}

func NewGiveawayService(
	repo repository.GiveawayRepository,
	notif notifier.Notifier,
	cfg *config.Config,
	logger zerolog.Logger,
	opts ...Option,
) GiveawayService {
	s := &giveawayService{
		repo:      repo,
		notifier:  notif,
		config:    cfg,
		logger:    logger,
		newSource: selection.NewDrawSource,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *giveawayService) Create(ctx context.Context, input *models.GiveawayCreate) (*models.GiveawayResponse, error) {
	now := time.Now()

	if input.Prize == "" {
		return nil, apperrors.NewValidationError("prize", "must not be empty")
	}
	if input.ChannelID == "" {
		return nil, apperrors.NewValidationError("channel_id", "must not be empty")
	}
	if input.WinnerCount < 1 {
		return nil, apperrors.NewValidationError("winner_count", "must be at least 1")
	}
	if input.WinnerCount > s.config.Giveaway.MaxWinners {
		return nil, apperrors.NewValidationError("winner_count", "exceeds the configured maximum").
			WithDetail("max", s.config.Giveaway.MaxWinners)
	}

	startAt := input.StartAt
	if startAt.IsZero() {
		startAt = now
	}
	if !input.EndAt.After(startAt) {
		return nil, apperrors.NewValidationError("end_at", "must be strictly after start_at")
	}
	duration := input.EndAt.Sub(startAt)
	if duration < s.config.Giveaway.MinDuration {
		return nil, apperrors.NewValidationError("end_at", "giveaway window is shorter than the minimum duration").
			WithDetail("min_duration", s.config.Giveaway.MinDuration.String())
	}
	if duration > s.config.Giveaway.MaxDuration {
		return nil, apperrors.NewValidationError("end_at", "giveaway window is longer than the maximum duration").
			WithDetail("max_duration", s.config.Giveaway.MaxDuration.String())
	}

	maxEntries := input.MaxEntriesPerUser
	if maxEntries == 0 {
		maxEntries = 1
	}
	if maxEntries < 1 {
		return nil, apperrors.NewValidationError("max_entries_per_user", "must be at least 1")
	}

	giveaway := &models.Giveaway{
		ID:                uuid.New().String(),
		CreatorID:         input.CreatorID,
		ChannelID:         input.ChannelID,
		Prize:             input.Prize,
		Description:       input.Description,
		WinnerCount:       input.WinnerCount,
		Status:            models.GiveawayStatusScheduled,
		StartAt:           startAt,
		EndAt:             input.EndAt,
		RequiredRoleID:    input.RequiredRoleID,
		MaxEntriesPerUser: maxEntries,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.Create(ctx, giveaway); err != nil {
		return nil, apperrors.NewPersistenceError("create giveaway", err)
	}

	s.logger.Info().
		Str("giveaway_id", giveaway.ID).
		Str("prize", giveaway.Prize).
		Int("winner_count", giveaway.WinnerCount).
		Time("start_at", giveaway.StartAt).
		Time("end_at", giveaway.EndAt).
		Msg("Giveaway created")

	return s.toResponse(ctx, giveaway)
}

func (s *giveawayService) GetByID(ctx context.Context, giveawayID string) (*models.GiveawayResponse, error) {
	giveaway, err := s.getGiveaway(ctx, giveawayID)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, giveaway)
}

func (s *giveawayService) List(ctx context.Context, filter models.ListFilter) ([]*models.GiveawayResponse, error) {
	giveaways, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewPersistenceError("list giveaways", err)
	}

	responses := make([]*models.GiveawayResponse, 0, len(giveaways))
	for _, giveaway := range giveaways {
		response, err := s.toResponse(ctx, giveaway)
		if err != nil {
			return nil, err
		}
		responses = append(responses, response)
	}
	return responses, nil
}

func (s *giveawayService) Entrants(ctx context.Context, giveawayID string) ([]string, error) {
	if _, err := s.getGiveaway(ctx, giveawayID); err != nil {
		return nil, err
	}
	ids, err := s.repo.EntrantIDs(ctx, giveawayID)
	if err != nil {
		return nil, apperrors.NewPersistenceError("get entrants", err)
	}
	return ids, nil
}

// Enter validates the preconditions in order (giveaway exists, status
// active, inside the window, role held, no prior entry) and records the
// entry. Duplicate races are resolved by the store's uniqueness constraint:
// the loser gets AlreadyEntered, not an error.
func (s *giveawayService) Enter(ctx context.Context, giveawayID, participantID string, participantRoles []string) (models.EntryOutcome, error) {
	giveaway, err := s.getGiveaway(ctx, giveawayID)
	if err != nil {
		return "", err
	}

	now := time.Now()
	if !giveaway.OpenForEntries(now) {
		return models.EntryGiveawayClosed, nil
	}

	if giveaway.RequiredRoleID != "" && !containsString(participantRoles, giveaway.RequiredRoleID) {
		return models.EntryNotEligible, nil
	}

	created, attempts, err := s.repo.RecordEntry(ctx, &models.Entry{
		GiveawayID:    giveawayID,
		ParticipantID: participantID,
		EnteredAt:     now,
	})
	if err == repository.ErrEntriesClosed {
		// The giveaway left active between the check and the write.
		return models.EntryGiveawayClosed, nil
	}
	if err != nil {
		return "", apperrors.NewPersistenceError("record entry", err)
	}

	if !created {
		if attempts > int64(giveaway.MaxEntriesPerUser) {
			s.logger.Debug().
				Str("giveaway_id", giveawayID).
				Str("participant_id", participantID).
				Int64("attempts", attempts).
				Int("max_entries_per_user", giveaway.MaxEntriesPerUser).
				Msg("Entry attempts exceeded per-user limit")
		}
		return models.EntryAlreadyEntered, nil
	}

	s.logger.Debug().
		Str("giveaway_id", giveawayID).
		Str("participant_id", participantID).
		Msg("Entry accepted")

	return models.EntryAccepted, nil
}

// Withdraw removes a participant's entry while the giveaway still accepts
// entries. Entries are frozen from ending on, so a withdrawal can never race
// a draw into an inconsistent winner set.
func (s *giveawayService) Withdraw(ctx context.Context, giveawayID, participantID string) (models.WithdrawOutcome, error) {
	giveaway, err := s.getGiveaway(ctx, giveawayID)
	if err != nil {
		return "", err
	}

	if giveaway.Status != models.GiveawayStatusActive {
		return models.WithdrawGiveawayClosed, nil
	}

	removed, err := s.repo.RemoveEntry(ctx, giveawayID, participantID)
	if err == repository.ErrEntriesClosed {
		return models.WithdrawGiveawayClosed, nil
	}
	if err != nil {
		return "", apperrors.NewPersistenceError("remove entry", err)
	}
	if !removed {
		return models.WithdrawNoEntry, nil
	}

	s.logger.Debug().
		Str("giveaway_id", giveawayID).
		Str("participant_id", participantID).
		Msg("Entry withdrawn")

	return models.WithdrawRemoved, nil
}

// EndNow drives an early finalize. The active→ending CAS is the commit
// point: it races against the sweep's natural finalize and exactly one of
// them wins; the loser receives a state conflict.
func (s *giveawayService) EndNow(ctx context.Context, giveawayID string) (*models.FinalizeOutcome, error) {
	giveaway, err := s.getGiveaway(ctx, giveawayID)
	if err != nil {
		return nil, err
	}

	ok, err := s.repo.CompareAndSetStatus(ctx, giveawayID, models.GiveawayStatusActive, models.GiveawayStatusEnding)
	if err != nil {
		return nil, apperrors.NewPersistenceError("transition to ending", err)
	}
	if !ok {
		return nil, apperrors.NewStateConflictError(giveawayID, "giveaway is not active or was already handled")
	}
	giveaway.Status = models.GiveawayStatusEnding

	winners, entrants, err := s.finalizeFromEnding(ctx, giveaway)
	if err != nil {
		return nil, err
	}

	return &models.FinalizeOutcome{
		GiveawayID: giveawayID,
		Winners:    winners,
		Entrants:   entrants,
	}, nil
}

// Cancel moves a scheduled or active giveaway to cancelled without
// selection. It uses the same CAS primitive as the sweep, so a cancel racing
// a natural finalize resolves to exactly one winner.
func (s *giveawayService) Cancel(ctx context.Context, giveawayID string) (*models.CancelOutcome, error) {
	giveaway, err := s.getGiveaway(ctx, giveawayID)
	if err != nil {
		return nil, err
	}

	for _, from := range []models.GiveawayStatus{models.GiveawayStatusScheduled, models.GiveawayStatusActive} {
		ok, err := s.repo.CompareAndSetStatus(ctx, giveawayID, from, models.GiveawayStatusCancelled)
		if err != nil {
			return nil, apperrors.NewPersistenceError("transition to cancelled", err)
		}
		if !ok {
			continue
		}

		giveaway.Status = models.GiveawayStatusCancelled
		if nerr := s.notifier.OnCancelled(ctx, giveaway); nerr != nil {
			s.logger.Warn().Err(nerr).Str("giveaway_id", giveawayID).Msg("Cancel notification failed")
		}

		s.logger.Info().
			Str("giveaway_id", giveawayID).
			Str("from", string(from)).
			Msg("Giveaway cancelled")

		return &models.CancelOutcome{GiveawayID: giveawayID, From: from}, nil
	}

	return nil, apperrors.NewStateConflictError(giveawayID, "giveaway is terminal or already finalizing")
}

// finalizeFromEnding completes a giveaway that is in ending: it draws the
// winners and commits them atomically with the ending→ended transition.
// Selection may be recomputed on retry, but the commit is gated on the
// status still being ending, so a previously committed winner set is never
// overwritten. Safe to call repeatedly for the same giveaway.
func (s *giveawayService) finalizeFromEnding(ctx context.Context, giveaway *models.Giveaway) ([]models.WinnerRecord, int, error) {
	entrantIDs, err := s.repo.EntrantIDs(ctx, giveaway.ID)
	if err != nil {
		return nil, 0, apperrors.NewPersistenceError("get entrants", err)
	}

	winnerIDs := selection.Pick(entrantIDs, giveaway.WinnerCount, s.newSource())

	announcedAt := time.Now()
	winners := make([]models.WinnerRecord, len(winnerIDs))
	for i, id := range winnerIDs {
		winners[i] = models.WinnerRecord{
			GiveawayID:    giveaway.ID,
			ParticipantID: id,
			AnnouncedAt:   announcedAt,
		}
	}

	committed, err := s.repo.CommitWinners(ctx, giveaway.ID, winners)
	if err != nil {
		return nil, 0, apperrors.NewPersistenceError("commit winners", err)
	}
	if !committed {
		// Another instance committed first; report the stored result.
		stored, err := s.repo.GetWinners(ctx, giveaway.ID)
		if err != nil {
			return nil, 0, apperrors.NewPersistenceError("get winners", err)
		}
		return stored, len(entrantIDs), nil
	}

	giveaway.Status = models.GiveawayStatusEnded
	if nerr := s.notifier.OnEnded(ctx, giveaway, winners); nerr != nil {
		s.logger.Warn().Err(nerr).Str("giveaway_id", giveaway.ID).Msg("End notification failed")
	}

	s.logger.Info().
		Str("giveaway_id", giveaway.ID).
		Int("entrants", len(entrantIDs)).
		Int("winners", len(winners)).
		Msg("Giveaway finalized")

	return winners, len(entrantIDs), nil
}

func (s *giveawayService) getGiveaway(ctx context.Context, giveawayID string) (*models.Giveaway, error) {
	giveaway, err := s.repo.GetByID(ctx, giveawayID)
	if err == repository.ErrGiveawayNotFound {
		return nil, apperrors.NewNotFoundError("giveaway", giveawayID)
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("get giveaway", err)
	}
	return giveaway, nil
}

func (s *giveawayService) toResponse(ctx context.Context, giveaway *models.Giveaway) (*models.GiveawayResponse, error) {
	count, err := s.repo.EntrantCount(ctx, giveaway.ID)
	if err != nil {
		return nil, apperrors.NewPersistenceError("get entrant count", err)
	}

	response := &models.GiveawayResponse{
		Giveaway:     *giveaway,
		EntrantCount: count,
	}

	if giveaway.Status == models.GiveawayStatusEnded {
		winners, err := s.repo.GetWinners(ctx, giveaway.ID)
		if err != nil {
			return nil, apperrors.NewPersistenceError("get winners", err)
		}
		response.Winners = winners
	}

	return response, nil
}

func containsString(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
