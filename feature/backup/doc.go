// Package backup stores, previews and replays guild backups.
//
// A backup is a snapshot document kept in object storage plus one row in the
// backups table. The Service owns both and layers on top of them:
//
//   - an LRU of decoded snapshots, with concurrent misses collapsed into one fetch
//   - serialization of load and copy runs per target guild (ErrTargetBusy)
//   - member list export as a text object
//
// The Handler exposes the service over HTTP under /backups.
package backup
