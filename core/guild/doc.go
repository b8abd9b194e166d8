// Package guild defines the platform-neutral view of a chat-community server
// used by the snapshot builder and the replay engines.
//
// It does not talk to any platform itself. Callers inject a Client (see
// core/discord for the production implementation and core/guild/fake for the
// in-memory one used by tests) that owns transport, pagination and rate limiting.
//
// # Identifiers
//
// Platform ids are 64-bit snowflakes that exceed the safe-integer range of
// most JSON consumers. They are carried as opaque strings everywhere in this
// module and are never used arithmetically. ValidID checks that a string is a
// well-formed snowflake before it reaches a Client.
//
// # Overwrite subjects
//
// A permission overwrite targets either a role or a member. Subject is a
// tagged variant {Kind, ID}; code dispatches on Kind instead of inspecting
// concrete types.
package guild
