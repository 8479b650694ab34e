package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventTTL bounds how long a processed webhook event id is remembered.
// The processor stops retrying a delivery well before this.
const EventTTL = 72 * time.Hour

// CacheService remembers processed webhook events in redis.
type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCacheService keeps processed event ids for ttl, or EventTTL when ttl is not positive.
func NewCacheService(client *redis.Client, ttl time.Duration) *CacheService {
	if ttl <= 0 {
		ttl = EventTTL
	}
	return &CacheService{
		client: client,
		ttl:    ttl,
	}
}

func eventKey(eventID string) string {
	return fmt.Sprintf("stripe:event:%s", eventID)
}

type processedEvent struct {
	Kind        string    `json:"kind"`
	ProcessedAt time.Time `json:"processed_at"`
}

// EventProcessed reports whether a webhook event id was already handled.
func (s *CacheService) EventProcessed(ctx context.Context, eventID string) (bool, error) {
	data, err := s.client.Get(ctx, eventKey(eventID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read event record: %w", err)
	}

	var ev processedEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return false, fmt.Errorf("failed to decode event record: %w", err)
	}
	return true, nil
}

// MarkEventProcessed remembers a handled event id. It returns false when the
// id was already recorded by another worker.
func (s *CacheService) MarkEventProcessed(ctx context.Context, eventID, kind string) (bool, error) {
	data, err := json.Marshal(processedEvent{Kind: kind, ProcessedAt: time.Now().UTC()})
	if err != nil {
		return false, err
	}
	ok, err := s.client.SetNX(ctx, eventKey(eventID), data, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record event: %w", err)
	}
	return ok, nil
}

// HealthCheck pings the redis node backing the event log.
func (s *CacheService) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}
