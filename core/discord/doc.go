// Package discord implements guild.Client on top of discordgo.
//
// Calls are serialized and throttled with a token bucket in addition to the
// per-route rate limiting discordgo performs itself. Authorization failures
// are reported as guild.ErrFatal and unknown entities as guild.ErrNotFound.
package discord
