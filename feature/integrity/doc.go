// Package integrity audits the backup store.
//
// The backup index lives in the database and the snapshot documents live in
// the bucket; the two can drift when an upload or a delete half fails. This
// package reports that drift and can clean it up.
//
// # Checks Provided
//
//   - Objects: indexed backups whose snapshot object is gone, and objects
//     under the backup prefix that no indexed backup owns (supports fix).
//   - Schema: the live backups table against the columns the model maps to.
//
// # HTTP Endpoints
//
//   - GET /integrity : Runs all checks.
//   - GET /integrity/objects : Runs the object check (supports ?fix=true).
//   - GET /integrity/schema : Runs the schema check.
package integrity
