package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"giveaway-engine-backend/internal/features/giveaway/models"
	"giveaway-engine-backend/internal/features/giveaway/repository"
)

type record struct {
	giveaway    models.Giveaway
	entries     map[string]time.Time // participant -> entered_at
	attempts    map[string]int64
	winners     map[string]time.Time // participant -> announced_at
	endingSince time.Time
}

type memoryRepository struct {
	mu      sync.Mutex
	records map[string]*record
}

// NewGiveawayRepository returns an in-process store with the same CAS and
// atomic-finalize semantics as the Redis implementation. It backs the unit
// tests and the standalone development mode.
func NewGiveawayRepository() repository.GiveawayRepository {
	return &memoryRepository{records: make(map[string]*record)}
}

func (r *memoryRepository) Create(ctx context.Context, giveaway *models.Giveaway) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[giveaway.ID]; exists {
		return fmt.Errorf("giveaway %s already exists", giveaway.ID)
	}
	r.records[giveaway.ID] = &record{
		giveaway: *giveaway,
		entries:  make(map[string]time.Time),
		attempts: make(map[string]int64),
		winners:  make(map[string]time.Time),
	}
	return nil
}

func (r *memoryRepository) GetByID(ctx context.Context, id string) (*models.Giveaway, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, repository.ErrGiveawayNotFound
	}
	giveaway := rec.giveaway
	return &giveaway, nil
}

func (r *memoryRepository) List(ctx context.Context, filter models.ListFilter) ([]*models.Giveaway, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	giveaways := make([]*models.Giveaway, 0, len(r.records))
	for _, rec := range r.records {
		giveaway := rec.giveaway
		if filter.Matches(&giveaway) {
			giveaways = append(giveaways, &giveaway)
		}
	}
	return giveaways, nil
}

func (r *memoryRepository) CompareAndSetStatus(ctx context.Context, id string, expected, newStatus models.GiveawayStatus) (bool, error) {
	if !models.CanTransition(expected, newStatus) {
		return false, fmt.Errorf("illegal transition %s -> %s", expected, newStatus)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return false, repository.ErrGiveawayNotFound
	}
	if rec.giveaway.Status != expected {
		return false, nil
	}
	rec.giveaway.Status = newStatus
	rec.giveaway.UpdatedAt = time.Now()
	if newStatus == models.GiveawayStatusEnding {
		rec.endingSince = time.Now()
	} else {
		rec.endingSince = time.Time{}
	}
	return true, nil
}

func (r *memoryRepository) RecordEntry(ctx context.Context, entry *models.Entry) (bool, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[entry.GiveawayID]
	if !ok {
		return false, 0, repository.ErrGiveawayNotFound
	}
	if rec.giveaway.Status != models.GiveawayStatusActive {
		return false, 0, repository.ErrEntriesClosed
	}

	rec.attempts[entry.ParticipantID]++
	attempts := rec.attempts[entry.ParticipantID]

	if _, exists := rec.entries[entry.ParticipantID]; exists {
		return false, attempts, nil
	}
	rec.entries[entry.ParticipantID] = entry.EnteredAt
	return true, attempts, nil
}

func (r *memoryRepository) RemoveEntry(ctx context.Context, giveawayID, participantID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[giveawayID]
	if !ok {
		return false, repository.ErrGiveawayNotFound
	}
	if rec.giveaway.Status != models.GiveawayStatusActive {
		return false, repository.ErrEntriesClosed
	}
	if _, exists := rec.entries[participantID]; !exists {
		return false, nil
	}
	delete(rec.entries, participantID)
	return true, nil
}

func (r *memoryRepository) EntrantIDs(ctx context.Context, giveawayID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[giveawayID]
	if !ok {
		return nil, repository.ErrGiveawayNotFound
	}
	ids := make([]string, 0, len(rec.entries))
	for id := range rec.entries {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *memoryRepository) EntrantCount(ctx context.Context, giveawayID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[giveawayID]
	if !ok {
		return 0, repository.ErrGiveawayNotFound
	}
	return int64(len(rec.entries)), nil
}

func (r *memoryRepository) GetEntries(ctx context.Context, giveawayID string) ([]models.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[giveawayID]
	if !ok {
		return nil, repository.ErrGiveawayNotFound
	}
	entries := make([]models.Entry, 0, len(rec.entries))
	for participantID, enteredAt := range rec.entries {
		_, isWinner := rec.winners[participantID]
		entries = append(entries, models.Entry{
			GiveawayID:    giveawayID,
			ParticipantID: participantID,
			EnteredAt:     enteredAt,
			IsWinner:      isWinner,
		})
	}
	return entries, nil
}

func (r *memoryRepository) CommitWinners(ctx context.Context, giveawayID string, winners []models.WinnerRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[giveawayID]
	if !ok {
		return false, repository.ErrGiveawayNotFound
	}
	if rec.giveaway.Status != models.GiveawayStatusEnding {
		return false, nil
	}
	rec.giveaway.Status = models.GiveawayStatusEnded
	rec.giveaway.UpdatedAt = time.Now()
	rec.endingSince = time.Time{}
	for _, w := range winners {
		rec.winners[w.ParticipantID] = w.AnnouncedAt
	}
	return true, nil
}

func (r *memoryRepository) GetWinners(ctx context.Context, giveawayID string) ([]models.WinnerRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[giveawayID]
	if !ok {
		return nil, repository.ErrGiveawayNotFound
	}
	records := make([]models.WinnerRecord, 0, len(rec.winners))
	for participantID, announcedAt := range rec.winners {
		records = append(records, models.WinnerRecord{
			GiveawayID:    giveawayID,
			ParticipantID: participantID,
			AnnouncedAt:   announcedAt,
		})
	}
	return records, nil
}

func (r *memoryRepository) EndingSince(ctx context.Context, giveawayID string) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[giveawayID]
	if !ok {
		return time.Time{}, repository.ErrGiveawayNotFound
	}
	return rec.endingSince, nil
}
