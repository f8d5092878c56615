package repository

import (
	"context"
	"errors"
	"time"

	"giveaway-engine-backend/internal/features/giveaway/models"
)

var (
	ErrGiveawayNotFound = errors.New("giveaway not found")
	// ErrEntriesClosed signals that the status guard inside an entry write
	// tripped: the giveaway left active between the caller's precondition
	// check and the store operation.
	ErrEntriesClosed = errors.New("giveaway is not accepting entries")
)

// GiveawayRepository is the durable store for giveaways, entries and
// winners. CompareAndSetStatus is the single primitive every transition
// uses; CommitWinners couples winner persistence with the ending→ended
// transition in one atomic unit, so a crash between selecting winners and
// persisting them cannot leave a giveaway ended with no winners or
// double-counted.
type GiveawayRepository interface {
	Create(ctx context.Context, giveaway *models.Giveaway) error
	GetByID(ctx context.Context, id string) (*models.Giveaway, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Giveaway, error)

	// CompareAndSetStatus atomically sets the status to newStatus only if
	// the persisted status equals expected. A false result with nil error
	// means another caller already performed the transition; that is a
	// race-free "someone else did this" signal, not a failure.
	CompareAndSetStatus(ctx context.Context, id string, expected, newStatus models.GiveawayStatus) (bool, error)

	// RecordEntry persists one entry, enforcing (giveaway, participant)
	// uniqueness and the active-status precondition atomically. Returns
	// (false, nil) when the participant already holds an entry, and
	// ErrEntriesClosed when the giveaway is no longer active. Attempts is
	// the participant's submission attempt count after this call.
	RecordEntry(ctx context.Context, entry *models.Entry) (created bool, attempts int64, err error)

	// RemoveEntry deletes a participant's entry while the giveaway is
	// still accepting entries. Returns (false, nil) when no entry exists
	// and ErrEntriesClosed when entries are frozen.
	RemoveEntry(ctx context.Context, giveawayID, participantID string) (bool, error)

	EntrantIDs(ctx context.Context, giveawayID string) ([]string, error)
	EntrantCount(ctx context.Context, giveawayID string) (int64, error)
	GetEntries(ctx context.Context, giveawayID string) ([]models.Entry, error)

	// CommitWinners performs the finalize commit: status ending→ended and
	// the winner records, in one atomic unit. Returns (false, nil) when
	// the status is no longer ending; a previously committed result is
	// never overwritten.
	CommitWinners(ctx context.Context, giveawayID string, winners []models.WinnerRecord) (bool, error)

	GetWinners(ctx context.Context, giveawayID string) ([]models.WinnerRecord, error)

	// EndingSince returns when the giveaway entered the ending status.
	// The zero time means it is not in ending.
	EndingSince(ctx context.Context, giveawayID string) (time.Time, error)
}
