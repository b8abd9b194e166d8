package backup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"guild-backup/core/snapshot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotCache_Evicts(t *testing.T) {
	c, err := newSnapshotCache(1)
	require.NoError(t, err)

	c.put("a", &snapshot.Snapshot{ID: "1"})
	c.put("b", &snapshot.Snapshot{ID: "2"})

	_, ok := c.get("a")
	assert.False(t, ok)
	got, ok := c.get("b")
	require.True(t, ok)
	assert.Equal(t, "2", got.ID)

	c.remove("b")
	_, ok = c.get("b")
	assert.False(t, ok)
}

func TestSnapshotCache_DisabledStillLoads(t *testing.T) {
	c, err := newSnapshotCache(0)
	require.NoError(t, err)

	var loads int32
	load := func(context.Context) (*snapshot.Snapshot, error) {
		atomic.AddInt32(&loads, 1)
		return &snapshot.Snapshot{ID: "1"}, nil
	}
	for i := 0; i < 2; i++ {
		_, err := c.getOrLoad(context.Background(), "a", load)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), loads)
}

func TestSnapshotCache_CollapsesConcurrentLoads(t *testing.T) {
	c, err := newSnapshotCache(4)
	require.NoError(t, err)

	var loads int32
	gate := make(chan struct{})
	load := func(context.Context) (*snapshot.Snapshot, error) {
		atomic.AddInt32(&loads, 1)
		<-gate
		return &snapshot.Snapshot{ID: "1"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := c.getOrLoad(context.Background(), "a", load)
			assert.NoError(t, err)
			assert.Equal(t, "1", snap.ID)
		}()
	}
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), loads)
}

func TestSnapshotCache_ErrorsAreNotCached(t *testing.T) {
	c, err := newSnapshotCache(4)
	require.NoError(t, err)

	_, err = c.getOrLoad(context.Background(), "a", func(context.Context) (*snapshot.Snapshot, error) {
		return nil, errors.New("unreachable storage")
	})
	assert.Error(t, err)

	snap, err := c.getOrLoad(context.Background(), "a", func(context.Context) (*snapshot.Snapshot, error) {
		return &snapshot.Snapshot{ID: "1"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "1", snap.ID)
}
