package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// revocationTTL outlives the longest refresh token, after which every token
// the marker could reject has expired on its own.
const revocationTTL = 31 * 24 * time.Hour

// RevocationStore records, per user, the unix second before which issued
// tokens are rejected.
// Key format: tokens_valid_since:<user_id>
type RevocationStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRevocationStore(client redis.Cmdable) *RevocationStore {
	return &RevocationStore{client: client, ttl: revocationTTL}
}

// ValidSince returns 0 when the user has no marker.
func (s *RevocationStore) ValidSince(ctx context.Context, userID string) (int64, error) {
	v, err := s.client.Get(ctx, s.key(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("valid since: %w", err)
	}
	since, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("valid since: corrupt value %q: %w", v, err)
	}
	return since, nil
}

func (s *RevocationStore) RevokeBefore(ctx context.Context, userID string, unix int64) error {
	if err := s.client.Set(ctx, s.key(userID), strconv.FormatInt(unix, 10), s.ttl).Err(); err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}
	return nil
}

func (s *RevocationStore) key(userID string) string {
	return "tokens_valid_since:" + userID
}
