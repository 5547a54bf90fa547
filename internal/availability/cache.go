package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ms-booking/internal/models"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "availability:"

// Cache holds the last projected availability of each event. It is a read
// accelerator only; the ledger row stays authoritative.
type Cache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{Client: client, TTL: ttl}
}

// Get returns the cached snapshot, or nil without error on a miss.
func (c *Cache) Get(ctx context.Context, eventID string) (*models.Availability, error) {
	raw, err := c.Client.Get(ctx, key(eventID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", eventID, err)
	}

	var availability models.Availability
	if err := json.Unmarshal(raw, &availability); err != nil {
		return nil, fmt.Errorf("decode availability %s: %w", eventID, err)
	}
	return &availability, nil
}

func (c *Cache) Set(ctx context.Context, availability models.Availability) error {
	raw, err := json.Marshal(availability)
	if err != nil {
		return fmt.Errorf("encode availability %s: %w", availability.EventID, err)
	}
	if err := c.Client.Set(ctx, key(availability.EventID), raw, c.TTL).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", availability.EventID, err)
	}
	return nil
}

func (c *Cache) Invalidate(ctx context.Context, eventID string) error {
	if err := c.Client.Del(ctx, key(eventID)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", eventID, err)
	}
	return nil
}

func key(eventID string) string {
	return keyPrefix + eventID
}
