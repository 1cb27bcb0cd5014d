package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/peoplehub/portal-api/internal/domain/signup"
	apperrors "github.com/peoplehub/portal-api/internal/errors"
)

// DefaultFlowTTL bounds how long an in-progress signup can sit idle
// before the browser has to start over from the invitation link.
const DefaultFlowTTL = time.Hour

// FlowStore persists transient signup flow state in Redis, keyed by
// invitation token. Each Save refreshes the TTL so an active flow stays
// alive while the user works through the steps.
type FlowStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewFlowStore creates a Redis-backed signup flow store.
func NewFlowStore(client redis.UniversalClient, ttl time.Duration) *FlowStore {
	if ttl <= 0 {
		ttl = DefaultFlowTTL
	}
	return &FlowStore{
		client: client,
		prefix: "signup_flow:",
		ttl:    ttl,
	}
}

func (s *FlowStore) Save(ctx context.Context, f signup.Flow) error {
	if f.Token == "" {
		return errors.New("flow token cannot be empty")
	}

	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal signup flow: %w", err)
	}

	return s.client.Set(ctx, s.prefix+f.Token, data, s.ttl).Err()
}

func (s *FlowStore) Get(ctx context.Context, token string) (signup.Flow, error) {
	if token == "" {
		return signup.Flow{}, apperrors.NotFound("signup flow not found")
	}

	data, err := s.client.Get(ctx, s.prefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return signup.Flow{}, apperrors.NotFound("signup flow not found")
		}
		return signup.Flow{}, fmt.Errorf("redis get: %w", err)
	}

	var f signup.Flow
	if unmarshalErr := json.Unmarshal([]byte(data), &f); unmarshalErr != nil {
		return signup.Flow{}, fmt.Errorf("unmarshal signup flow: %w", unmarshalErr)
	}

	return f, nil
}

func (s *FlowStore) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.client.Del(ctx, s.prefix+token).Err()
}
