package backup

import (
	"context"
	"strings"

	"guild-backup/core/snapshot"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// snapshotCache holds decoded snapshots by backup id. Concurrent misses for
// one id share a single fetch.
type snapshotCache struct {
	entries *lru.Cache[string, *snapshot.Snapshot]
	sf      singleflight.Group
}

// newSnapshotCache creates a cache of size entries. A non-positive size
// disables caching but keeps fetch deduplication.
func newSnapshotCache(size int) (*snapshotCache, error) {
	c := &snapshotCache{}
	if size > 0 {
		entries, err := lru.New[string, *snapshot.Snapshot](size)
		if err != nil {
			return nil, err
		}
		c.entries = entries
	}
	return c, nil
}

func (c *snapshotCache) get(id string) (*snapshot.Snapshot, bool) {
	if c.entries == nil {
		return nil, false
	}
	return c.entries.Get(id)
}

func (c *snapshotCache) put(id string, snap *snapshot.Snapshot) {
	if c.entries != nil {
		c.entries.Add(strings.Clone(id), snap)
	}
}

func (c *snapshotCache) remove(id string) {
	if c.entries != nil {
		c.entries.Remove(id)
	}
	c.sf.Forget(id)
}

// getOrLoad returns the cached snapshot for id or calls load once for all
// concurrent callers.
func (c *snapshotCache) getOrLoad(ctx context.Context, id string, load func(context.Context) (*snapshot.Snapshot, error)) (*snapshot.Snapshot, error) {
	if snap, ok := c.get(id); ok {
		return snap, nil
	}

	result, err, _ := c.sf.Do(strings.Clone(id), func() (any, error) {
		if snap, ok := c.get(id); ok {
			return snap, nil
		}
		snap, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.put(id, snap)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*snapshot.Snapshot), nil
}
