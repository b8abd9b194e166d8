package checks

import (
	"context"
	"errors"
	"testing"

	"guild-backup/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func listing(objs ...minio.ObjectInfo) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(objs))
	for _, o := range objs {
		ch <- o
	}
	close(ch)
	return ch
}

func TestCheckObjects(t *testing.T) {
	ctx := context.Background()
	index := []IndexEntry{
		{ID: "b1", Snapshot: "backups/b1.json", Extra: []string{"backups/b1-members.txt"}},
		{ID: "b2", Snapshot: "backups/b2.json", Extra: []string{"backups/b2-members.txt"}},
	}

	t.Run("Bucket Missing", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("BucketExists", mock.Anything, "guilds").Return(false, nil)

		_, err := CheckObjects(ctx, m, "guilds", "backups", index)
		assert.ErrorContains(t, err, "does not exist")
	})

	t.Run("Missing And Orphans", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("BucketExists", mock.Anything, "guilds").Return(true, nil)
		m.On("ListObjects", mock.Anything, "guilds", minio.ListObjectsOptions{Prefix: "backups/", Recursive: true}).
			Return(listing(
				minio.ObjectInfo{Key: "backups/"},
				minio.ObjectInfo{Key: "backups/b1.json"},
				minio.ObjectInfo{Key: "backups/b1-members.txt"},
				minio.ObjectInfo{Key: "backups/zz.json"},
				minio.ObjectInfo{Key: "backups/b9-members.txt"},
			))

		report, err := CheckObjects(ctx, m, "guilds", "backups", index)
		require.NoError(t, err)
		assert.Equal(t, 4, report.Checked)
		assert.Equal(t, []string{"b2"}, report.Missing)
		assert.Equal(t, []string{"backups/b9-members.txt", "backups/zz.json"}, report.Orphans)
	})

	t.Run("Clean", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("BucketExists", mock.Anything, "guilds").Return(true, nil)
		m.On("ListObjects", mock.Anything, "guilds", mock.Anything).
			Return(listing(
				minio.ObjectInfo{Key: "backups/b1.json"},
				minio.ObjectInfo{Key: "backups/b2.json"},
			))

		report, err := CheckObjects(ctx, m, "guilds", "backups/", index)
		require.NoError(t, err)
		assert.Empty(t, report.Missing)
		assert.Empty(t, report.Orphans)
	})

	t.Run("Listing Error", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("BucketExists", mock.Anything, "guilds").Return(true, nil)
		m.On("ListObjects", mock.Anything, "guilds", mock.Anything).
			Return(listing(minio.ObjectInfo{Err: errors.New("timeout")}))

		_, err := CheckObjects(ctx, m, "guilds", "backups", index)
		assert.ErrorContains(t, err, "timeout")
	})
}

func TestRemoveOrphans(t *testing.T) {
	ctx := context.Background()

	t.Run("Nothing To Do", func(t *testing.T) {
		m := new(mocks.Client)
		assert.NoError(t, RemoveOrphans(ctx, m, "guilds", zap.NewNop(), nil))
		m.AssertNotCalled(t, "RemoveObjects", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Batch", func(t *testing.T) {
		m := new(mocks.Client)
		var keys []string
		m.On("RemoveObjects", mock.Anything, "guilds", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				for obj := range args.Get(2).(<-chan minio.ObjectInfo) {
					keys = append(keys, obj.Key)
				}
			}).
			Return(nil)

		require.NoError(t, RemoveOrphans(ctx, m, "guilds", zap.NewNop(), []string{"backups/a", "backups/b"}))
		assert.Equal(t, []string{"backups/a", "backups/b"}, keys)
	})

	t.Run("Failure", func(t *testing.T) {
		m := new(mocks.Client)
		errs := make(chan minio.RemoveObjectError, 1)
		errs <- minio.RemoveObjectError{ObjectName: "backups/a", Err: errors.New("denied")}
		close(errs)
		m.On("RemoveObjects", mock.Anything, "guilds", mock.Anything, mock.Anything).
			Return((<-chan minio.RemoveObjectError)(errs))

		err := RemoveOrphans(ctx, m, "guilds", zap.NewNop(), []string{"backups/a"})
		assert.ErrorContains(t, err, "backups/a")
	})
}
