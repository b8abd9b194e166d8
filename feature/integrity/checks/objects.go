package checks

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"guild-backup/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// IndexEntry is one indexed backup and the object keys it owns.
type IndexEntry struct {
	ID       string
	Snapshot string
	// Extra keys are owned by the backup but need not exist.
	Extra []string
}

// ObjectReport is the result of comparing the index with the bucket.
type ObjectReport struct {
	Checked int `json:"checked"`
	// Missing lists the backup ids whose snapshot object is gone.
	Missing []string `json:"missing"`
	// Orphans lists object keys no indexed backup owns.
	Orphans []string `json:"orphans"`
}

// CheckObjects lists every object under prefix and compares it with index.
func CheckObjects(ctx context.Context, client storage.Client, bucket, prefix string, index []IndexEntry) (*ObjectReport, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", bucket)
	}

	listPrefix := prefix
	if listPrefix != "" && !strings.HasSuffix(listPrefix, "/") {
		listPrefix += "/"
	}

	present := make(map[string]bool)
	opts := minio.ListObjectsOptions{Prefix: listPrefix, Recursive: true}
	for obj := range client.ListObjects(ctx, bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		present[obj.Key] = true
	}

	report := &ObjectReport{
		Checked: len(present),
		Missing: []string{},
		Orphans: []string{},
	}
	owned := make(map[string]bool, len(index)*2)
	for _, e := range index {
		owned[e.Snapshot] = true
		for _, k := range e.Extra {
			owned[k] = true
		}
		if !present[e.Snapshot] {
			report.Missing = append(report.Missing, e.ID)
		}
	}
	for key := range present {
		if !owned[key] {
			report.Orphans = append(report.Orphans, key)
		}
	}
	sort.Strings(report.Orphans)
	return report, nil
}

// RemoveOrphans deletes the given keys in one batch. The first failure is
// returned after the batch drains.
func RemoveOrphans(ctx context.Context, client storage.Client, bucket string, logger *zap.Logger, orphans []string) error {
	if len(orphans) == 0 {
		return nil
	}

	objects := make(chan minio.ObjectInfo, len(orphans))
	for _, key := range orphans {
		objects <- minio.ObjectInfo{Key: key}
	}
	close(objects)

	var first error
	for rerr := range client.RemoveObjects(ctx, bucket, objects, minio.RemoveObjectsOptions{}) {
		logger.Error("Failed to remove orphan", zap.String("key", rerr.ObjectName), zap.Error(rerr.Err))
		if first == nil {
			first = fmt.Errorf("failed to remove %s: %w", rerr.ObjectName, rerr.Err)
		}
	}
	if first != nil {
		return first
	}
	logger.Info("Removed orphan objects", zap.Int("count", len(orphans)))
	return nil
}
