package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// CachedAvoidance is the cached shape of one avoided career.
type CachedAvoidance struct {
	CareerPath string `json:"career_path"`
	Reason     string `json:"reason"`
}

// AvoidanceCache mirrors each user's latest avoid list under avoidances:<userId>.
type AvoidanceCache struct {
	store Store
}

func NewAvoidanceCache(store Store) *AvoidanceCache {
	return &AvoidanceCache{store: store}
}

func AvoidanceKey(userID uuid.UUID) string {
	return "avoidances:" + userID.String()
}

// Get returns the cached list; a miss yields (nil, nil).
func (c *AvoidanceCache) Get(ctx context.Context, userID uuid.UUID) ([]CachedAvoidance, error) {
	raw, err := c.store.Get(ctx, AvoidanceKey(userID))
	if errors.Is(err, ErrMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []CachedAvoidance
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode cached avoidances: %w", err)
	}
	return out, nil
}

func (c *AvoidanceCache) Set(ctx context.Context, userID uuid.UUID, items []CachedAvoidance) error {
	if items == nil {
		items = []CachedAvoidance{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, AvoidanceKey(userID), string(raw))
}

func (c *AvoidanceCache) Clear(ctx context.Context, userID uuid.UUID) error {
	return c.store.Delete(ctx, AvoidanceKey(userID))
}
