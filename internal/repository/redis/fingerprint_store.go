package redis

import (
	"context"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"fincal/pkg/errors"
)

const fingerprintPrefix = "fincal:fp:"

// FingerprintStore keeps event content fingerprints in Redis with a TTL
type FingerprintStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewFingerprintStore creates a fingerprint store; ttl <= 0 keeps keys forever
func NewFingerprintStore(client *redis.Client, ttl time.Duration) *FingerprintStore {
	return &FingerprintStore{
		client: client,
		ttl:    ttl,
	}
}

// Matching returns the ids whose stored fingerprint equals the given one
func (s *FingerprintStore) Matching(ctx context.Context, fingerprints map[string]string) (map[string]bool, error) {
	matched := make(map[string]bool)
	if len(fingerprints) == 0 {
		return matched, nil
	}

	ids := sortedIDs(fingerprints)
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.getKey(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read fingerprints from redis: count=%d", len(keys))
	}

	for i, v := range values {
		stored, ok := v.(string)
		if ok && stored == fingerprints[ids[i]] {
			matched[ids[i]] = true
		}
	}

	return matched, nil
}

// Remember stores fingerprints for written ids in one pipeline
func (s *FingerprintStore) Remember(ctx context.Context, fingerprints map[string]string) error {
	if len(fingerprints) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, id := range sortedIDs(fingerprints) {
		pipe.Set(ctx, s.getKey(id), fingerprints[id], s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrapf(err, "failed to save fingerprints to redis: count=%d", len(fingerprints))
	}

	return nil
}

func (s *FingerprintStore) getKey(id string) string {
	return fingerprintPrefix + id
}

func sortedIDs(m map[string]string) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
