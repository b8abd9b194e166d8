package guild

import "encoding/json"

// ChannelType classifies a channel.
type ChannelType int

const (
	ChannelText ChannelType = iota
	ChannelVoice
	ChannelCategory
)

// String returns the lowercase name of the channel type.
func (t ChannelType) String() string {
	switch t {
	case ChannelText:
		return "text"
	case ChannelVoice:
		return "voice"
	case ChannelCategory:
		return "category"
	default:
		return "unknown"
	}
}

// SubjectKind tags an overwrite subject.
type SubjectKind int

const (
	SubjectRole SubjectKind = iota
	SubjectMember
)

// Subject identifies the role or member an overwrite applies to.
type Subject struct {
	Kind SubjectKind
	ID   string
}

// Overwrite is a sparse allow/deny permission delta for one subject.
type Overwrite struct {
	Subject Subject
	Allow   int64
	Deny    int64
}

// Guild holds server-level metadata.
type Guild struct {
	ID                    string
	Name                  string
	Icon                  string
	OwnerID               string
	Region                string
	AFKChannelID          string
	AFKTimeout            int
	SystemChannelID       string
	VerificationLevel     int
	ExplicitContentFilter int
	MFALevel              int
	MemberCount           int
	Large                 bool
}

// GuildSettings are the guild-level fields the copy engine writes.
// Empty strings and nil pointers leave a field untouched.
type GuildSettings struct {
	Name              string
	Region            string
	AFKChannelID      string
	AFKTimeout        int
	VerificationLevel *int
	SystemChannelID   string
}

// Role is a server role.
type Role struct {
	ID          string
	Name        string
	Permissions int64
	Color       int
	Hoist       bool
	Position    int
	Mentionable bool
	Managed     bool
	// Default marks the implicit everyone-role; its id equals the guild id.
	Default bool
}

// RoleParams describes a role to create or the fields to change on edit.
// Nil pointers are left untouched on edit.
type RoleParams struct {
	Name        string
	Permissions *int64
	Color       *int
	Hoist       *bool
	Mentionable *bool
}

// Channel is a category, text or voice channel.
type Channel struct {
	ID               string
	Type             ChannelType
	Name             string
	Position         int
	ParentID         string
	Overwrites       []Overwrite
	Topic            string
	NSFW             bool
	RateLimitPerUser int
	Bitrate          int
	UserLimit        int
}

// ChannelParams describes a channel to create or the fields to change on edit.
// Nil pointers are left untouched on edit.
type ChannelParams struct {
	Name             string
	Type             ChannelType
	ParentID         *string
	Overwrites       []Overwrite
	Topic            *string
	NSFW             *bool
	RateLimitPerUser *int
	Bitrate          *int
	UserLimit        *int
}

// User is a platform account.
type User struct {
	ID            string
	Name          string
	Discriminator string
	AvatarURL     string
	Bot           bool
}

// Member is a user's membership in a guild.
type Member struct {
	User    User
	Nick    string
	RoleIDs []string
}

// Ban is a guild ban entry. User is nil when the banned account no longer
// resolves on the platform.
type Ban struct {
	User   *User
	Reason string
}

// Reaction is a single emoji reaction on a message.
type Reaction struct {
	// Emoji is the custom emoji name or the literal unicode string.
	Emoji string
}

// Message is a channel message as read from the platform.
type Message struct {
	ID            string
	Content       string
	CleanContent  string
	SystemContent string
	Author        User
	Pinned        bool
	Attachments   []string
	Embeds        []json.RawMessage
	Reactions     []Reaction
}

// Webhook is an outgoing-message relay bound to a channel.
type Webhook struct {
	ID        string
	ChannelID string
	Name      string
	AvatarURL string
	Token     string
	URL       string
}

// RelayMessage is a message sent through a webhook under a display identity.
type RelayMessage struct {
	Username  string
	AvatarURL string
	Content   string
	Embeds    []json.RawMessage
}
