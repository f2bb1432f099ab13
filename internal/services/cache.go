package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/AnshRaj112/ura-storage-backend/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	// CacheKeyPrefix is the Redis key prefix for cached data
	CacheKeyPrefix = "cache:"
	// DefaultSnapshotTTL bounds how long an entry lives if an invalidation is lost.
	DefaultSnapshotTTL = 5 * time.Minute

	snapshotGenerationTTL = 24 * time.Hour
)

var errStaleSnapshot = errors.New("snapshot changed while loading")

// SnapshotCache keeps account snapshots in Redis between changes. Cached copies carry
// the sealed email; callers decrypt after reading.
//
// Every change bumps a per-account generation. A snapshot is only written back if the
// generation it was loaded under is still current, so a slow reader cannot restore
// data that a concurrent change already invalidated.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &SnapshotCache{client: client, ttl: ttl}
}

func snapshotKey(accountKey string) string {
	return CacheKeyPrefix + "snapshot:" + accountKey
}

func snapshotGenerationKey(accountKey string) string {
	return CacheKeyPrefix + "snapshot_gen:" + accountKey
}

// Get returns the cached snapshot. Redis errors and undecodable entries count as misses.
func (c *SnapshotCache) Get(ctx context.Context, accountKey string) (*models.AccountSnapshot, bool) {
	val, err := c.client.Get(ctx, snapshotKey(accountKey)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("account", accountKey).Msg("snapshot cache: get")
		}
		return nil, false
	}

	var snap models.AccountSnapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		log.Warn().Err(err).Str("account", accountKey).Msg("snapshot cache: decoding entry")
		return nil, false
	}
	snap.Account.Key = accountKey
	return &snap, true
}

// Generation returns the account's current change counter; 0 when it has never changed
// or Redis is unavailable.
func (c *SnapshotCache) Generation(ctx context.Context, accountKey string) int64 {
	gen, err := c.client.Get(ctx, snapshotGenerationKey(accountKey)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		log.Warn().Err(err).Str("account", accountKey).Msg("snapshot cache: reading generation")
	}
	return gen
}

// Set stores snap if no change happened since generation gen was read. It reports
// whether the entry was written.
func (c *SnapshotCache) Set(ctx context.Context, accountKey string, gen int64, snap *models.AccountSnapshot) bool {
	data, err := json.Marshal(snap)
	if err != nil {
		log.Warn().Err(err).Str("account", accountKey).Msg("snapshot cache: encoding entry")
		return false
	}

	genKey := snapshotGenerationKey(accountKey)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return errStaleSnapshot
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, snapshotKey(accountKey), data, c.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
		return true
	case errors.Is(err, errStaleSnapshot), errors.Is(err, redis.TxFailedErr):
		return false
	default:
		log.Warn().Err(err).Str("account", accountKey).Msg("snapshot cache: set")
		return false
	}
}

// Publish invalidates the cached snapshot. It runs ahead of the live notifier so
// subscribers reload from the store.
func (c *SnapshotCache) Publish(ctx context.Context, accountKey string) error {
	genKey := snapshotGenerationKey(accountKey)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, snapshotGenerationTTL)
		pipe.Del(ctx, snapshotKey(accountKey))
		return nil
	})
	return err
}

// ChangePublishers sends a change to each publisher in order.
type ChangePublishers []ChangePublisher

func (ps ChangePublishers) Publish(ctx context.Context, accountKey string) error {
	var errs []error
	for _, p := range ps {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, accountKey); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
