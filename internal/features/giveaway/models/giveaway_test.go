package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to GiveawayStatus }{
		{GiveawayStatusScheduled, GiveawayStatusActive},
		{GiveawayStatusScheduled, GiveawayStatusCancelled},
		{GiveawayStatusActive, GiveawayStatusEnding},
		{GiveawayStatusActive, GiveawayStatusCancelled},
		{GiveawayStatusEnding, GiveawayStatusEnded},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	// Everything not in the table is illegal, including self-transitions and
	// anything out of a terminal status.
	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			legal := false
			for _, tc := range allowed {
				if tc.from == from && tc.to == to {
					legal = true
				}
			}
			if !legal {
				assert.False(t, CanTransition(from, to), "%s -> %s should be rejected", from, to)
			}
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, GiveawayStatusEnded.IsTerminal())
	assert.True(t, GiveawayStatusCancelled.IsTerminal())
	assert.False(t, GiveawayStatusScheduled.IsTerminal())
	assert.False(t, GiveawayStatusActive.IsTerminal())
	assert.False(t, GiveawayStatusEnding.IsTerminal())
}

func TestStatusValid(t *testing.T) {
	for _, s := range AllStatuses {
		assert.True(t, s.Valid())
	}
	assert.False(t, GiveawayStatus("paused").Valid())
	assert.False(t, GiveawayStatus("").Valid())
}

func TestOpenForEntriesWindow(t *testing.T) {
	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	g := &Giveaway{Status: GiveawayStatusActive, StartAt: start, EndAt: end}

	assert.False(t, g.OpenForEntries(start.Add(-time.Second)), "before start")
	assert.True(t, g.OpenForEntries(start), "start boundary is inclusive")
	assert.True(t, g.OpenForEntries(start.Add(30*time.Minute)))
	assert.False(t, g.OpenForEntries(end), "end boundary is exclusive")
	assert.False(t, g.OpenForEntries(end.Add(time.Second)))

	g.Status = GiveawayStatusScheduled
	assert.False(t, g.OpenForEntries(start.Add(30*time.Minute)), "only active accepts entries")
}

func TestDueAndExpired(t *testing.T) {
	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	scheduled := &Giveaway{Status: GiveawayStatusScheduled, StartAt: start, EndAt: end}
	assert.False(t, scheduled.Due(start.Add(-time.Second)))
	assert.True(t, scheduled.Due(start))
	assert.False(t, scheduled.Expired(end), "scheduled never expires directly")

	active := &Giveaway{Status: GiveawayStatusActive, StartAt: start, EndAt: end}
	assert.False(t, active.Expired(end.Add(-time.Second)))
	assert.True(t, active.Expired(end))
	assert.False(t, active.Due(start), "active is past due")
}

func TestListFilterMatches(t *testing.T) {
	g := &Giveaway{Status: GiveawayStatusActive, CreatorID: "creator-1", ChannelID: "channel-1"}

	assert.True(t, ListFilter{}.Matches(g), "zero filter matches everything")
	assert.True(t, ListFilter{Statuses: []GiveawayStatus{GiveawayStatusActive}}.Matches(g))
	assert.False(t, ListFilter{Statuses: []GiveawayStatus{GiveawayStatusEnded}}.Matches(g))
	assert.True(t, ListFilter{CreatorID: "creator-1"}.Matches(g))
	assert.False(t, ListFilter{CreatorID: "creator-2"}.Matches(g))
	assert.False(t, ListFilter{ChannelID: "channel-2"}.Matches(g))
	assert.False(t, ListFilter{
		Statuses:  []GiveawayStatus{GiveawayStatusActive},
		CreatorID: "creator-2",
	}.Matches(g))
}
