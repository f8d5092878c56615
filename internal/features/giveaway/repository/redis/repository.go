package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"giveaway-engine-backend/internal/features/giveaway/models"
	"giveaway-engine-backend/internal/features/giveaway/repository"
)

const (
	keyPrefixGiveaway = "giveaway:"
	keyPrefixStatus   = "giveaways:" // per-status index sets
	keyAllGiveaways   = "giveaways:all"
)

type redisRepository struct {
	client *redis.Client
}

// NewGiveawayRepository returns the Redis-backed store. The persisted status
// key is the single source of truth for transitions; the record blob carries
// the immutable fields and is patched with the live status on read.
func NewGiveawayRepository(client *redis.Client) repository.GiveawayRepository {
	return &redisRepository{client: client}
}

func makeGiveawayKey(id string) string {
	return keyPrefixGiveaway + id
}

func makeStatusKey(id string) string {
	return keyPrefixGiveaway + id + ":status"
}

func makeEntriesKey(id string) string {
	return keyPrefixGiveaway + id + ":entries"
}

func makeAttemptsKey(id string) string {
	return keyPrefixGiveaway + id + ":attempts"
}

func makeWinnersKey(id string) string {
	return keyPrefixGiveaway + id + ":winners"
}

func makeEndingSinceKey(id string) string {
	return keyPrefixGiveaway + id + ":ending_since"
}

func makeStatusSetKey(status models.GiveawayStatus) string {
	return keyPrefixStatus + string(status)
}

// casScript flips the status key only when it still holds the expected
// value, and moves the id between the per-status index sets in the same
// atomic step. Entering ending records the timestamp used for the grace
// check; leaving it clears the timestamp.
var casScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2])
redis.call('SMOVE', KEYS[2], KEYS[3], ARGV[3])
if ARGV[2] == 'ending' then
	redis.call('SET', KEYS[4], ARGV[4])
else
	redis.call('DEL', KEYS[4])
end
return 1
`)

// entryScript guards entry creation with the live status so an entry can
// never slip in after active→ending has committed. HSETNX is the uniqueness
// constraint; the loser of a duplicate race sees created == 0.
var entryScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) ~= 'active' then
	return {-1, 0}
end
local created = redis.call('HSETNX', KEYS[2], ARGV[1], ARGV[2])
local attempts = redis.call('HINCRBY', KEYS[3], ARGV[1], 1)
return {created, attempts}
`)

// removeEntryScript deletes an entry only while the giveaway still accepts
// them. Entries are frozen from ending on.
var removeEntryScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) ~= 'active' then
	return -1
end
return redis.call('HDEL', KEYS[2], ARGV[1])
`)

// commitWinnersScript is the finalize commit: ending→ended and the winner
// hash in one atomic unit, gated on the status still being ending so a
// previously committed result is never overwritten.
var commitWinnersScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) ~= 'ending' then
	return 0
end
redis.call('SET', KEYS[1], 'ended')
for i = 3, #ARGV do
	redis.call('HSET', KEYS[2], ARGV[i], ARGV[2])
end
redis.call('SMOVE', KEYS[3], KEYS[4], ARGV[1])
redis.call('DEL', KEYS[5])
return 1
`)

func (r *redisRepository) Create(ctx context.Context, giveaway *models.Giveaway) error {
	data, err := json.Marshal(giveaway)
	if err != nil {
		return fmt.Errorf("failed to marshal giveaway: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, makeGiveawayKey(giveaway.ID), data, 0)
	pipe.Set(ctx, makeStatusKey(giveaway.ID), string(giveaway.Status), 0)
	pipe.SAdd(ctx, keyAllGiveaways, giveaway.ID)
	pipe.SAdd(ctx, makeStatusSetKey(giveaway.Status), giveaway.ID)

	_, err = pipe.Exec(ctx)
	return err
}

func (r *redisRepository) GetByID(ctx context.Context, id string) (*models.Giveaway, error) {
	data, err := r.client.Get(ctx, makeGiveawayKey(id)).Bytes()
	if err == redis.Nil {
		return nil, repository.ErrGiveawayNotFound
	}
	if err != nil {
		return nil, err
	}

	var giveaway models.Giveaway
	if err := json.Unmarshal(data, &giveaway); err != nil {
		return nil, err
	}

	status, err := r.client.Get(ctx, makeStatusKey(id)).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	if status != "" {
		giveaway.Status = models.GiveawayStatus(status)
	}

	return &giveaway, nil
}

func (r *redisRepository) List(ctx context.Context, filter models.ListFilter) ([]*models.Giveaway, error) {
	var ids []string
	var err error

	if len(filter.Statuses) > 0 {
		keys := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			keys[i] = makeStatusSetKey(s)
		}
		ids, err = r.client.SUnion(ctx, keys...).Result()
	} else {
		ids, err = r.client.SMembers(ctx, keyAllGiveaways).Result()
	}
	if err != nil {
		return nil, err
	}

	giveaways := make([]*models.Giveaway, 0, len(ids))
	for _, id := range ids {
		giveaway, err := r.GetByID(ctx, id)
		if err == repository.ErrGiveawayNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		if filter.Matches(giveaway) {
			giveaways = append(giveaways, giveaway)
		}
	}

	return giveaways, nil
}

func (r *redisRepository) CompareAndSetStatus(ctx context.Context, id string, expected, newStatus models.GiveawayStatus) (bool, error) {
	if !models.CanTransition(expected, newStatus) {
		return false, fmt.Errorf("illegal transition %s -> %s", expected, newStatus)
	}

	exists, err := r.client.Exists(ctx, makeStatusKey(id)).Result()
	if err != nil {
		return false, err
	}
	if exists == 0 {
		return false, repository.ErrGiveawayNotFound
	}

	res, err := casScript.Run(ctx, r.client,
		[]string{
			makeStatusKey(id),
			makeStatusSetKey(expected),
			makeStatusSetKey(newStatus),
			makeEndingSinceKey(id),
		},
		string(expected),
		string(newStatus),
		id,
		time.Now().Unix(),
	).Int()
	if err != nil {
		return false, err
	}

	return res == 1, nil
}

func (r *redisRepository) RecordEntry(ctx context.Context, entry *models.Entry) (bool, int64, error) {
	res, err := entryScript.Run(ctx, r.client,
		[]string{
			makeStatusKey(entry.GiveawayID),
			makeEntriesKey(entry.GiveawayID),
			makeAttemptsKey(entry.GiveawayID),
		},
		entry.ParticipantID,
		entry.EnteredAt.UnixNano(),
	).Int64Slice()
	if err != nil {
		return false, 0, err
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("unexpected entry script result: %v", res)
	}
	if res[0] == -1 {
		return false, 0, repository.ErrEntriesClosed
	}

	return res[0] == 1, res[1], nil
}

func (r *redisRepository) RemoveEntry(ctx context.Context, giveawayID, participantID string) (bool, error) {
	res, err := removeEntryScript.Run(ctx, r.client,
		[]string{
			makeStatusKey(giveawayID),
			makeEntriesKey(giveawayID),
		},
		participantID,
	).Int()
	if err != nil {
		return false, err
	}
	if res == -1 {
		return false, repository.ErrEntriesClosed
	}
	return res == 1, nil
}

func (r *redisRepository) EntrantIDs(ctx context.Context, giveawayID string) ([]string, error) {
	return r.client.HKeys(ctx, makeEntriesKey(giveawayID)).Result()
}

func (r *redisRepository) EntrantCount(ctx context.Context, giveawayID string) (int64, error) {
	return r.client.HLen(ctx, makeEntriesKey(giveawayID)).Result()
}

func (r *redisRepository) GetEntries(ctx context.Context, giveawayID string) ([]models.Entry, error) {
	raw, err := r.client.HGetAll(ctx, makeEntriesKey(giveawayID)).Result()
	if err != nil {
		return nil, err
	}
	winners, err := r.client.HGetAll(ctx, makeWinnersKey(giveawayID)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]models.Entry, 0, len(raw))
	for participantID, enteredAt := range raw {
		nanos, err := strconv.ParseInt(enteredAt, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt entry timestamp for %s: %w", participantID, err)
		}
		_, isWinner := winners[participantID]
		entries = append(entries, models.Entry{
			GiveawayID:    giveawayID,
			ParticipantID: participantID,
			EnteredAt:     time.Unix(0, nanos),
			IsWinner:      isWinner,
		})
	}

	return entries, nil
}

func (r *redisRepository) CommitWinners(ctx context.Context, giveawayID string, winners []models.WinnerRecord) (bool, error) {
	announcedAt := time.Now()
	if len(winners) > 0 {
		announcedAt = winners[0].AnnouncedAt
	}

	args := make([]interface{}, 0, len(winners)+2)
	args = append(args, giveawayID, announcedAt.UnixNano())
	for _, w := range winners {
		args = append(args, w.ParticipantID)
	}

	res, err := commitWinnersScript.Run(ctx, r.client,
		[]string{
			makeStatusKey(giveawayID),
			makeWinnersKey(giveawayID),
			makeStatusSetKey(models.GiveawayStatusEnding),
			makeStatusSetKey(models.GiveawayStatusEnded),
			makeEndingSinceKey(giveawayID),
		},
		args...,
	).Int()
	if err != nil {
		return false, err
	}

	return res == 1, nil
}

func (r *redisRepository) GetWinners(ctx context.Context, giveawayID string) ([]models.WinnerRecord, error) {
	raw, err := r.client.HGetAll(ctx, makeWinnersKey(giveawayID)).Result()
	if err != nil {
		return nil, err
	}

	records := make([]models.WinnerRecord, 0, len(raw))
	for participantID, announcedAt := range raw {
		nanos, err := strconv.ParseInt(announcedAt, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt winner timestamp for %s: %w", participantID, err)
		}
		records = append(records, models.WinnerRecord{
			GiveawayID:    giveawayID,
			ParticipantID: participantID,
			AnnouncedAt:   time.Unix(0, nanos),
		})
	}

	return records, nil
}

func (r *redisRepository) EndingSince(ctx context.Context, giveawayID string) (time.Time, error) {
	raw, err := r.client.Get(ctx, makeEndingSinceKey(giveawayID)).Result()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt ending timestamp: %w", err)
	}
	return time.Unix(secs, 0), nil
}
