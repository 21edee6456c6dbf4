package redis

import (
	"brokerfront/internal/types"
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	storeKeyNameTemplate = "_brokerfront_%s"
)

// DurableStore implements ports.DurableCache as a single Redis hash: the hash key is derived from
// types.DurableStoreKey and every field is a tenant key.
type DurableStore struct {
	cli *redis.Client
	key string
}

func NewDurableStore(cli *redis.Client) *DurableStore {
	return &DurableStore{cli: cli, key: getStoreKey(types.DurableStoreKey)}
}

func (s *DurableStore) Get(ctx context.Context, tenantKey string) (types.CacheEntry, error) {
	out := s.cli.HGet(ctx, s.key, tenantKey)
	if out.Err() != nil {
		if errors.Is(out.Err(), redis.Nil) {
			return types.CacheEntry{}, types.ErrNotFound
		}
		return types.CacheEntry{}, out.Err()
	}
	b, err := out.Bytes()
	if err != nil {
		return types.CacheEntry{}, err
	}
	return decodeEntry(b)
}

func (s *DurableStore) Set(ctx context.Context, entry types.CacheEntry) error {
	if entry.BrokerKey == "" {
		return fmt.Errorf("broker key is required")
	}
	b, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	return s.cli.HSet(ctx, s.key, entry.BrokerKey, b).Err()
}

func (s *DurableStore) Clear(ctx context.Context, tenantKey string) error {
	return s.cli.HDel(ctx, s.key, tenantKey).Err()
}

// Load reads the whole hash. Undecodable fields are logged and skipped so one bad entry does not block hydration.
func (s *DurableStore) Load(ctx context.Context) ([]types.CacheEntry, error) {
	out := s.cli.HGetAll(ctx, s.key)
	if out.Err() != nil {
		if errors.Is(out.Err(), redis.Nil) {
			return nil, nil
		}
		return nil, out.Err()
	}
	m := out.Val()
	entries := make([]types.CacheEntry, 0, len(m))
	for field, v := range m {
		e, err := decodeEntry([]byte(v))
		if err != nil {
			log.WithError(err).WithField("tenant", field).Error("Skipping undecodable cache entry")
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ClearAll drops the whole store. Used in tests only.
func (s *DurableStore) ClearAll(ctx context.Context) error {
	return s.cli.Del(ctx, s.key).Err()
}

func getStoreKey(name string) string {
	return fmt.Sprintf(storeKeyNameTemplate, name)
}
