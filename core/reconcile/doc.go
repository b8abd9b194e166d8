// Package reconcile converges a live target guild toward a structure.
//
// Two engines share the same stage machinery:
//
//   - Reconciler replays a stored snapshot.Snapshot onto a target, either as a
//     merge (reuse matching entities, delete the rest) or as a hard load
//     (clear the target first, then create everything).
//   - Copier reads a live source guild and rebuilds it on a target in one
//     pass, always clearing the target first.
//
// # Stages
//
// A run executes its stages strictly in order and never issues concurrent
// calls on the injected guild.Client:
//
//  1. Clear: delete non-managed, non-default roles and every channel.
//  2. Roles: edit the everyone-role, then reuse or create each role, delete
//     unclaimed roles (merge only) and apply position corrections.
//  3. Channels: categories, then text channels (with chat-log replay through
//     a transient webhook), then voice channels.
//  4. Bans: best effort.
//
// Source ids are mapped to target ids by an idmap.Translator that is created
// per run and handed to every stage explicitly.
//
// # Failures
//
// Per-entity failures never abort a run; they are recorded as Outcome values
// with ActionSkipped or ActionFailed and a reason. Errors wrapping
// guild.ErrFatal, and failures of entities a whole stage depends on (the
// everyone-role edit, a category), abort the run and are returned wrapped
// with the stage name. Nothing is rolled back.
//
// Callers must serialize runs per target guild.
package reconcile
