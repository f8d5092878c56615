package models

import (
	"time"
)

// GiveawayStatus represents the lifecycle state of a giveaway.
type GiveawayStatus string

const (
	GiveawayStatusScheduled GiveawayStatus = "scheduled" // Created, waiting for start_at
	GiveawayStatusActive    GiveawayStatus = "active"    // Accepting entries
	GiveawayStatusEnding    GiveawayStatus = "ending"    // Selection in progress, not yet committed
	GiveawayStatusEnded     GiveawayStatus = "ended"     // Winners committed
	GiveawayStatusCancelled GiveawayStatus = "cancelled" // Cancelled, no selection
)

// AllStatuses lists every status, in lifecycle order.
var AllStatuses = []GiveawayStatus{
	GiveawayStatusScheduled,
	GiveawayStatusActive,
	GiveawayStatusEnding,
	GiveawayStatusEnded,
	GiveawayStatusCancelled,
}

// IsTerminal reports whether no further transitions are permitted.
func (s GiveawayStatus) IsTerminal() bool {
	return s == GiveawayStatusEnded || s == GiveawayStatusCancelled
}

// Valid reports whether s is a member of the closed status enum.
func (s GiveawayStatus) Valid() bool {
	switch s {
	case GiveawayStatusScheduled, GiveawayStatusActive, GiveawayStatusEnding,
		GiveawayStatusEnded, GiveawayStatusCancelled:
		return true
	}
	return false
}

// transitions is the closed transition table. Every status change goes
// through a compare-and-set against this table, so illegal transitions are
// rejected no matter which caller issues them.
var transitions = map[GiveawayStatus][]GiveawayStatus{
	GiveawayStatusScheduled: {GiveawayStatusActive, GiveawayStatusCancelled},
	GiveawayStatusActive:    {GiveawayStatusEnding, GiveawayStatusCancelled},
	GiveawayStatusEnding:    {GiveawayStatusEnded},
}

// CanTransition reports whether from→to is a legal status transition.
func CanTransition(from, to GiveawayStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Giveaway represents a single giveaway record.
type Giveaway struct {
	ID                string         `json:"id"`
	CreatorID         string         `json:"creator_id,omitempty"`
	ChannelID         string         `json:"channel_id"`
	Prize             string         `json:"prize"`
	Description       string         `json:"description,omitempty"`
	WinnerCount       int            `json:"winner_count"`
	Status            GiveawayStatus `json:"status"`
	StartAt           time.Time      `json:"start_at"`
	EndAt             time.Time      `json:"end_at"`
	RequiredRoleID    string         `json:"required_role_id,omitempty"`
	MaxEntriesPerUser int            `json:"max_entries_per_user"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// OpenForEntries reports whether an entry submitted at now passes the
// time-window precondition. The window is [start_at, end_at).
func (g *Giveaway) OpenForEntries(now time.Time) bool {
	if g.Status != GiveawayStatusActive {
		return false
	}
	return !now.Before(g.StartAt) && now.Before(g.EndAt)
}

// Due reports whether the giveaway should be activated at now.
func (g *Giveaway) Due(now time.Time) bool {
	return g.Status == GiveawayStatusScheduled && !now.Before(g.StartAt)
}

// Expired reports whether the entry window has closed at now.
func (g *Giveaway) Expired(now time.Time) bool {
	return g.Status == GiveawayStatusActive && !now.Before(g.EndAt)
}

// Entry is one participant's entry in a giveaway. A participant holds at
// most one entry record per giveaway; MaxEntriesPerUser gates submission
// attempts, not stored rows.
type Entry struct {
	GiveawayID    string    `json:"giveaway_id"`
	ParticipantID string    `json:"participant_id"`
	EnteredAt     time.Time `json:"entered_at"`
	IsWinner      bool      `json:"is_winner"`
}

// WinnerRecord is written exactly once per finalize, in the same atomic
// unit as the status transition to ended.
type WinnerRecord struct {
	GiveawayID    string    `json:"giveaway_id"`
	ParticipantID string    `json:"participant_id"`
	AnnouncedAt   time.Time `json:"announced_at"`
}

// GiveawayCreate carries the parameters of an administrative create request.
type GiveawayCreate struct {
	Prize             string    `json:"prize" binding:"required,min=1,max=200"`
	Description       string    `json:"description" binding:"max=1000"`
	CreatorID         string    `json:"creator_id"`
	ChannelID         string    `json:"channel_id" binding:"required"`
	WinnerCount       int       `json:"winner_count" binding:"required,min=1"`
	StartAt           time.Time `json:"start_at" binding:"required"`
	EndAt             time.Time `json:"end_at" binding:"required"`
	RequiredRoleID    string    `json:"required_role_id"`
	MaxEntriesPerUser int       `json:"max_entries_per_user"`
}

// GiveawayResponse is the read model returned to calling layers.
type GiveawayResponse struct {
	Giveaway
	EntrantCount int64          `json:"entrant_count"`
	Winners      []WinnerRecord `json:"winners,omitempty"`
}

// ListFilter narrows List results. The zero value matches everything.
type ListFilter struct {
	Statuses  []GiveawayStatus
	CreatorID string
	ChannelID string
}

// Matches reports whether g passes the filter.
func (f ListFilter) Matches(g *Giveaway) bool {
	if f.CreatorID != "" && g.CreatorID != f.CreatorID {
		return false
	}
	if f.ChannelID != "" && g.ChannelID != f.ChannelID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if g.Status == s {
			return true
		}
	}
	return false
}

// EntryOutcome is the result of an entry submission. Rejections here are
// normal outcomes, not system failures.
type EntryOutcome string

const (
	EntryAccepted       EntryOutcome = "accepted"
	EntryAlreadyEntered EntryOutcome = "already_entered"
	EntryNotEligible    EntryOutcome = "not_eligible"
	EntryGiveawayClosed EntryOutcome = "giveaway_not_open"
)

// WithdrawOutcome is the result of an entry withdrawal.
type WithdrawOutcome string

const (
	WithdrawRemoved        WithdrawOutcome = "withdrawn"
	WithdrawNoEntry        WithdrawOutcome = "no_entry"
	WithdrawGiveawayClosed WithdrawOutcome = "giveaway_not_open"
)

// FinalizeOutcome is the result of an explicit early-end request.
type FinalizeOutcome struct {
	GiveawayID string         `json:"giveaway_id"`
	Winners    []WinnerRecord `json:"winners"`
	Entrants   int            `json:"entrants"`
}

// CancelOutcome is the result of a cancel request.
type CancelOutcome struct {
	GiveawayID string         `json:"giveaway_id"`
	From       GiveawayStatus `json:"from"`
}
