package guild

import "context"

// Client is the platform capability the engines depend on. Implementations
// serialize and throttle calls to the platform's rate limit; the engines never
// issue calls concurrently on one Client for one run.
type Client interface {
	Guild(ctx context.Context, guildID string) (*Guild, error)
	EditGuild(ctx context.Context, guildID string, settings GuildSettings) error

	Roles(ctx context.Context, guildID string) ([]Role, error)
	CreateRole(ctx context.Context, guildID string, params RoleParams) (*Role, error)
	EditRole(ctx context.Context, guildID, roleID string, params RoleParams) (*Role, error)
	MoveRole(ctx context.Context, guildID, roleID string, position int) error
	DeleteRole(ctx context.Context, guildID, roleID string) error

	Channels(ctx context.Context, guildID string) ([]Channel, error)
	CreateChannel(ctx context.Context, guildID string, params ChannelParams) (*Channel, error)
	EditChannel(ctx context.Context, channelID string, params ChannelParams) (*Channel, error)
	MoveChannel(ctx context.Context, guildID, channelID string, position int) error
	DeleteChannel(ctx context.Context, channelID string) error

	Members(ctx context.Context, guildID string) ([]Member, error)
	// Member returns ErrNotFound when the user is not a member of the guild.
	Member(ctx context.Context, guildID, userID string) (*Member, error)

	Bans(ctx context.Context, guildID string) ([]Ban, error)
	CreateBan(ctx context.Context, guildID, userID, reason string) error

	// Messages returns up to limit of the most recent messages, oldest first.
	Messages(ctx context.Context, channelID string, limit int) ([]Message, error)

	Webhooks(ctx context.Context, channelID string) ([]Webhook, error)
	CreateWebhook(ctx context.Context, channelID, name string) (*Webhook, error)
	ExecuteWebhook(ctx context.Context, webhook *Webhook, msg RelayMessage) error
	DeleteWebhook(ctx context.Context, webhookID string) error
}

// Sanitizer renders raw message content into safe, re-sendable text.
type Sanitizer interface {
	Sanitize(content string) string
}

// SanitizerFunc adapts a function to Sanitizer.
type SanitizerFunc func(string) string

// Sanitize calls f.
func (f SanitizerFunc) Sanitize(content string) string { return f(content) }
