package intent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// intentsHash holds every active intent keyed by id
	intentsHash = "vport:intents"
	// controlChannel is where the switch controller listens for intent changes
	controlChannel = "vportctl"
)

// RedisService hands intents to a switch controller through Redis. Active
// intents live in a hash so that the controller can resync; changes are
// announced on a pub/sub channel.
type RedisService struct {
	client *redis.Client
	logger *logrus.Logger
}

// NewRedisService connects to a Redis server at addr (e.g. "127.0.0.1:6379")
func NewRedisService(addr, password string, db int) *RedisService {
	logger := logrus.New()
	logger.SetLevel(logrus.GetLevel())

	return &RedisService{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		logger: logger,
	}
}

// Ping verifies that Redis is reachable
func (s *RedisService) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return serviceError("ping", err)
	}
	return nil
}

// Submit stores and announces the intent under a freshly generated id
func (s *RedisService) Submit(ctx context.Context, in Intent) (uuid.UUID, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal intent: %w", err)
	}

	id := uuid.New()
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, intentsHash, id.String(), string(data))
	pipe.Publish(ctx, controlChannel, addMessage(id, data))
	if _, err := pipe.Exec(ctx); err != nil {
		return uuid.Nil, serviceError("submit", err)
	}

	s.logger.Infof("Intent %s published (%s)", id, in)
	return id, nil
}

// Withdraw removes the intent and announces the removal
func (s *RedisService) Withdraw(ctx context.Context, id uuid.UUID) error {
	pipe := s.client.TxPipeline()
	pipe.HDel(ctx, intentsHash, id.String())
	pipe.Publish(ctx, controlChannel, delMessage(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return serviceError("withdraw", err)
	}

	s.logger.Infof("Intent %s withdrawn", id)
	return nil
}

// Active returns the ids of the intents currently stored in Redis
func (s *RedisService) Active(ctx context.Context) ([]uuid.UUID, error) {
	keys, err := s.client.HKeys(ctx, intentsHash).Result()
	if err != nil {
		return nil, serviceError("list", err)
	}

	ids := make([]uuid.UUID, 0, len(keys))
	for _, key := range keys {
		id, err := uuid.Parse(key)
		if err != nil {
			s.logger.Warnf("Ignoring invalid intent id %q in %s", key, intentsHash)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Close closes the Redis connection
func (s *RedisService) Close() error {
	return s.client.Close()
}

func addMessage(id uuid.UUID, data []byte) string {
	return fmt.Sprintf("add,%s,%s", id, data)
}

func delMessage(id uuid.UUID) string {
	return fmt.Sprintf("del,%s", id)
}
