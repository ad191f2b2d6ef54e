package relay

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"ledgergate/internal/platform/redis"
	id "ledgergate/pkg/domain"
)

// RedisNonceStore keeps relay nonces in Redis so multiple gateway
// instances agree on the next expected nonce.
type RedisNonceStore struct {
	client *redis.Client
}

func NewRedisNonceStore(client *redis.Client) *RedisNonceStore {
	return &RedisNonceStore{client: client}
}

func nonceKey(investorID id.InvestorID) string {
	return "relay:nonce:" + investorID.String()
}

func (s *RedisNonceStore) Get(ctx context.Context, investorID id.InvestorID) (uint64, error) {
	n, err := s.client.Get(ctx, nonceKey(investorID)).Uint64()
	if err == goredis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get relay nonce: %w", err)
	}
	return n, nil
}

func (s *RedisNonceStore) Increment(ctx context.Context, investorID id.InvestorID) error {
	if err := s.client.Incr(ctx, nonceKey(investorID)).Err(); err != nil {
		return fmt.Errorf("increment relay nonce: %w", err)
	}
	return nil
}
