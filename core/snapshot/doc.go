// Package snapshot captures the structure of a live server into a portable
// document and renders read-only previews of it.
//
// # Document
//
// A Snapshot records guild metadata, roles, categories, text and voice
// channels (with a bounded, oldest-first window of recent messages per text
// channel), members and bans. All ids are strings. Optional references such
// as a channel's category are pointers and encode as explicit null, so a
// loader can tell "no category" apart from a missing field. Unknown fields are
// ignored on decode.
//
// Exactly one role carries Default=true: the implicit everyone-role. It is
// stored so its permission baseline round-trips, but replay only ever edits it.
//
// # Building
//
// Builder walks a live server through a guild.Client in a fixed order
// (roles, categories, text channels, voice channels, members, bans). A record
// that cannot be read is omitted and reported as a Skip; construction only
// fails when the guild itself cannot be read or the client reports a fatal
// failure.
//
// # Views
//
// ChannelTree and RoleList render fenced text previews truncated to a
// character budget. Summary returns the scalar indicators.
package snapshot
