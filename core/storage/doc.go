// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client behind the Client interface so snapshot
// documents and member exports can live in AWS S3 or a self-hosted MinIO
// instance, and so tests can substitute the testify mock in core/storage/mocks.
//
// # Operations
//
//   - BucketExists, MakeBucket: bucket provisioning (see EnsureBucket).
//   - PutObject, GetObject: store and fetch documents.
//   - ListObjects: lists objects under a prefix.
//   - RemoveObject, RemoveObjects: delete documents.
//
// # Usage
//
//	client, err := storage.NewClient(config)
//	err = storage.EnsureBucket(ctx, client, config.Bucket, config.Region)
package storage
