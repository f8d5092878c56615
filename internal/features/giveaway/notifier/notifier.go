// Package notifier is the outbound boundary the engine calls on state
// changes. Delivery (posting announcements and so on) belongs to external
// collaborators; failures here must never block or reverse a committed
// state transition.
package notifier

import (
	"context"

	"github.com/rs/zerolog"

	"giveaway-engine-backend/internal/features/giveaway/models"
)

// Notifier receives lifecycle events after a successful state commit.
type Notifier interface {
	OnActivated(ctx context.Context, giveaway *models.Giveaway) error
	OnEnded(ctx context.Context, giveaway *models.Giveaway, winners []models.WinnerRecord) error
	OnCancelled(ctx context.Context, giveaway *models.Giveaway) error
}

// LogNotifier writes lifecycle events to the log. It is the default wiring
// when no delivery integration is attached.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) OnActivated(ctx context.Context, giveaway *models.Giveaway) error {
	n.logger.Info().
		Str("giveaway_id", giveaway.ID).
		Str("channel_id", giveaway.ChannelID).
		Str("prize", giveaway.Prize).
		Msg("Giveaway activated")
	return nil
}

func (n *LogNotifier) OnEnded(ctx context.Context, giveaway *models.Giveaway, winners []models.WinnerRecord) error {
	ids := make([]string, len(winners))
	for i, w := range winners {
		ids[i] = w.ParticipantID
	}
	n.logger.Info().
		Str("giveaway_id", giveaway.ID).
		Str("channel_id", giveaway.ChannelID).
		Strs("winners", ids).
		Msg("Giveaway ended")
	return nil
}

func (n *LogNotifier) OnCancelled(ctx context.Context, giveaway *models.Giveaway) error {
	n.logger.Info().
		Str("giveaway_id", giveaway.ID).
		Str("channel_id", giveaway.ChannelID).
		Msg("Giveaway cancelled")
	return nil
}
