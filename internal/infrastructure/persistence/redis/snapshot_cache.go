package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/mektep-hub/mektep-monitor/internal/domain/analytics"
)

// DashboardSnapshot is a precomputed school dashboard.
type DashboardSnapshot = analytics.Snapshot

// SnapshotCache keeps the latest dashboard per focus size.
type SnapshotCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewSnapshotCache creates a snapshot cache.
func NewSnapshotCache(cache *Cache, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = TTLSnapshot
	}
	return &SnapshotCache{cache: cache, ttl: ttl}
}

// SnapshotKey returns the key of the dashboard for a focus size.
func SnapshotKey(focusSize int) string {
	return PrefixSnapshot + "dashboard:" + strconv.Itoa(focusSize)
}

// Get returns the snapshot for focusSize. The boolean is false on a miss.
func (c *SnapshotCache) Get(ctx context.Context, focusSize int) (*DashboardSnapshot, bool, error) {
	var snap DashboardSnapshot
	if err := c.cache.Get(ctx, SnapshotKey(focusSize), &snap); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &snap, true, nil
}

// Put stores a snapshot.
func (c *SnapshotCache) Put(ctx context.Context, snap DashboardSnapshot) error {
	return c.cache.Set(ctx, SnapshotKey(snap.FocusSize), snap, c.ttl)
}

// Invalidate drops all dashboard snapshots, e.g. after an import.
func (c *SnapshotCache) Invalidate(ctx context.Context) error {
	_, err := c.cache.DeleteByPattern(ctx, PrefixSnapshot+"*")
	return err
}
