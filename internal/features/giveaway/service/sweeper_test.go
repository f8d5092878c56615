package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giveaway-engine-backend/internal/common/config"
	"giveaway-engine-backend/internal/features/giveaway/models"
	"giveaway-engine-backend/internal/features/giveaway/repository"
	"giveaway-engine-backend/internal/features/giveaway/service"
)

func newTestSweeper(cfg *config.Config) (*service.Sweeper, service.GiveawayService, repository.GiveawayRepository, *recordingNotifier) {
	svc, repo, notif := newTestService(cfg)
	sweeper := service.NewSweeper(svc, repo, cfg, zerolog.Nop())
	return sweeper, svc, repo, notif
}

// enterDirect records an entry at the store level, bypassing the service's
// time-window check. Used to seed entrants on giveaways whose window already
// closed.
func enterDirect(t *testing.T, repo repository.GiveawayRepository, giveawayID string, participants ...string) {
	t.Helper()
	for _, id := range participants {
		created, _, err := repo.RecordEntry(context.Background(), &models.Entry{
			GiveawayID:    giveawayID,
			ParticipantID: id,
			EnteredAt:     time.Now(),
		})
		require.NoError(t, err)
		require.True(t, created)
	}
}

func TestSweepActivatesDueGiveaway(t *testing.T) {
	sweeper, svc, _, notif := newTestSweeper(testConfig())
	ctx := context.Background()

	due, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)

	future := validCreate()
	future.StartAt = time.Now().Add(time.Hour)
	future.EndAt = time.Now().Add(2 * time.Hour)
	notYet, err := svc.Create(ctx, future)
	require.NoError(t, err)

	sweeper.Sweep(ctx)

	got, err := svc.GetByID(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GiveawayStatusActive, got.Status)
	assert.Equal(t, 1, notif.activated[due.ID])

	got, err = svc.GetByID(ctx, notYet.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GiveawayStatusScheduled, got.Status)
	assert.Zero(t, notif.activated[notYet.ID])

	// Re-sweeping an already active giveaway must not re-notify.
	sweeper.Sweep(ctx)
	assert.Equal(t, 1, notif.activated[due.ID])
}

func TestSweepCatchesUpAfterRestart(t *testing.T) {
	// A giveaway whose whole window elapsed while no process was running:
	// the first sweeps after startup walk it scheduled -> active -> ended
	// from its persisted fields alone.
	sweeper, svc, _, notif := newTestSweeper(testConfig())
	ctx := context.Background()

	input := validCreate()
	input.StartAt = time.Now().Add(-2 * time.Hour)
	input.EndAt = time.Now().Add(-time.Hour)
	g, err := svc.Create(ctx, input)
	require.NoError(t, err)

	sweeper.Sweep(ctx)
	got, err := svc.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GiveawayStatusActive, got.Status)

	sweeper.Sweep(ctx)
	got, err = svc.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GiveawayStatusEnded, got.Status)
	assert.Equal(t, 1, notif.endedCount(g.ID))

	// Further sweeps leave the terminal state alone.
	sweeper.Sweep(ctx)
	assert.Equal(t, 1, notif.endedCount(g.ID))
}

func TestSweepFinalizesExpiredActive(t *testing.T) {
	sweeper, svc, repo, notif := newTestSweeper(testConfig())
	ctx := context.Background()

	g := createActive(t, svc, repo, func(in *models.GiveawayCreate) {
		in.StartAt = time.Now().Add(-2 * time.Hour)
		in.EndAt = time.Now().Add(-time.Minute)
		in.WinnerCount = 2
	})
	enterDirect(t, repo, g.ID, "alice", "bob", "carol")

	sweeper.Sweep(ctx)

	got, err := svc.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GiveawayStatusEnded, got.Status)
	require.Len(t, got.Winners, 2)
	assert.Equal(t, 1, notif.endedCount(g.ID))

	entrants := map[string]bool{"alice": true, "bob": true, "carol": true}
	for _, w := range got.Winners {
		assert.True(t, entrants[w.ParticipantID], "winner %s never entered", w.ParticipantID)
	}
}

func TestConcurrentSweepsFinalizeOnce(t *testing.T) {
	sweeper, svc, repo, notif := newTestSweeper(testConfig())
	ctx := context.Background()

	g := createActive(t, svc, repo, func(in *models.GiveawayCreate) {
		in.StartAt = time.Now().Add(-2 * time.Hour)
		in.EndAt = time.Now().Add(-time.Minute)
	})
	enterDirect(t, repo, g.ID, "alice", "bob", "carol", "dave")

	const sweeps = 8
	var wg sync.WaitGroup
	for i := 0; i < sweeps; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sweeper.Sweep(ctx)
		}()
	}
	wg.Wait()

	got, err := svc.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GiveawayStatusEnded, got.Status)
	assert.Len(t, got.Winners, 1)
	assert.Equal(t, 1, notif.endedCount(g.ID), "winners must be committed and announced exactly once")
}

func TestEndNowRacingSweep(t *testing.T) {
	// An explicit early end arriving just as the sweep finalizes the same
	// giveaway: the active -> ending CAS decides the winner and the loser
	// observes a conflict or the committed result, never a second draw.
	sweeper, svc, repo, notif := newTestSweeper(testConfig())
	ctx := context.Background()

	g := createActive(t, svc, repo, func(in *models.GiveawayCreate) {
		in.StartAt = time.Now().Add(-2 * time.Hour)
		in.EndAt = time.Now().Add(-time.Minute)
	})
	enterDirect(t, repo, g.ID, "alice", "bob", "carol")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sweeper.Sweep(ctx)
	}()
	go func() {
		defer wg.Done()
		result, err := svc.EndNow(ctx, g.ID)
		if err == nil {
			assert.Len(t, result.Winners, 1)
		}
	}()
	wg.Wait()

	got, err := svc.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GiveawayStatusEnded, got.Status)
	assert.Len(t, got.Winners, 1)
	assert.Equal(t, 1, notif.endedCount(g.ID), "the race must produce exactly one committed winner set")
}

func TestSweepResumesStuckEnding(t *testing.T) {
	// Simulates a crash after active -> ending but before the commit: the
	// giveaway sits in ending with no winners until a sweep re-attempts.
	sweeper, svc, repo, notif := newTestSweeper(testConfig())
	ctx := context.Background()

	g := createActive(t, svc, repo, nil)
	_, err := svc.Enter(ctx, g.ID, "alice", nil)
	require.NoError(t, err)

	ok, err := repo.CompareAndSetStatus(ctx, g.ID, models.GiveawayStatusActive, models.GiveawayStatusEnding)
	require.NoError(t, err)
	require.True(t, ok)

	sweeper.Sweep(ctx)

	got, err := svc.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GiveawayStatusEnded, got.Status)
	require.Len(t, got.Winners, 1)
	assert.Equal(t, "alice", got.Winners[0].ParticipantID)
	assert.Equal(t, 1, notif.endedCount(g.ID))

	sweeper.Sweep(ctx)
	assert.Equal(t, 1, notif.endedCount(g.ID))
}

func TestSweepRespectsEndingGrace(t *testing.T) {
	cfg := testConfig()
	cfg.Scheduler.EndingGrace = time.Hour
	sweeper, svc, repo, notif := newTestSweeper(cfg)
	ctx := context.Background()

	g := createActive(t, svc, repo, nil)
	ok, err := repo.CompareAndSetStatus(ctx, g.ID, models.GiveawayStatusActive, models.GiveawayStatusEnding)
	require.NoError(t, err)
	require.True(t, ok)

	sweeper.Sweep(ctx)

	// Inside the grace period the owner of the transition is presumed still
	// working; the sweep must not steal the finalize.
	got, err := svc.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GiveawayStatusEnding, got.Status)
	assert.Zero(t, notif.endedCount(g.ID))
}

func TestSweeperStartStop(t *testing.T) {
	cfg := testConfig()
	cfg.Scheduler.SweepInterval = 10 * time.Millisecond
	sweeper, svc, _, _ := newTestSweeper(cfg)

	g, err := svc.Create(context.Background(), validCreate())
	require.NoError(t, err)

	sweeper.Start()
	defer sweeper.Stop()

	require.Eventually(t, func() bool {
		got, err := svc.GetByID(context.Background(), g.ID)
		return err == nil && got.Status == models.GiveawayStatusActive
	}, time.Second, 10*time.Millisecond, "ticker sweep should activate the due giveaway")
}
