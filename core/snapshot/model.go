package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"guild-backup/core/overwrite"
)

// Version is the document format version written by this package.
const Version = 1

// DefaultChatlogDepth is the number of messages captured per text channel
// when Options.ChatlogDepth is zero.
const DefaultChatlogDepth = 100

// ErrInvalid is returned when a document violates a structural invariant.
var ErrInvalid = errors.New("snapshot: invalid document")

// Snapshot is the structural capture of a server. Treat it as read-only once
// returned by Builder.Build or Unmarshal.
type Snapshot struct {
	Version               int       `json:"version"`
	ID                    string    `json:"id"`
	Name                  string    `json:"name"`
	Icon                  *string   `json:"icon"`
	Owner                 string    `json:"owner"`
	Region                string    `json:"region"`
	AFKTimeout            int       `json:"afk_timeout"`
	AFKChannel            *string   `json:"afk_channel"`
	SystemChannel         *string   `json:"system_channel"`
	MFALevel              int       `json:"mfa_level"`
	VerificationLevel     int       `json:"verification_level"`
	ExplicitContentFilter int       `json:"explicit_content_filter"`
	GuildMemberCount      int       `json:"member_count"`
	Large                 bool      `json:"large"`
	CreatedAt             time.Time `json:"created_at"`
	Creator               string    `json:"creator"`

	Roles         []Role         `json:"roles"`
	Categories    []Channel      `json:"categories"`
	TextChannels  []TextChannel  `json:"text_channels"`
	VoiceChannels []VoiceChannel `json:"voice_channels"`
	Members       []Member       `json:"members"`
	Bans          []Ban          `json:"bans"`
}

// Role is a captured role. Roles are stored in ascending position order.
type Role struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Permissions int64  `json:"permissions,string"`
	Color       int    `json:"color"`
	Hoist       bool   `json:"hoist"`
	Position    int    `json:"position"`
	Mentionable bool   `json:"mentionable"`
	Default     bool   `json:"default"`
}

// Channel holds the fields shared by categories, text and voice channels.
type Channel struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Position   int               `json:"position"`
	Category   *string           `json:"category"`
	Overwrites overwrite.Encoded `json:"overwrites"`
}

// CategoryID returns the parent category id, or "" for top-level channels.
func (c Channel) CategoryID() string {
	if c.Category == nil {
		return ""
	}
	return *c.Category
}

// TextChannel is a captured text channel.
type TextChannel struct {
	Channel
	Topic         *string   `json:"topic"`
	SlowmodeDelay int       `json:"slowmode_delay"`
	NSFW          bool      `json:"nsfw"`
	Messages      []Message `json:"messages"`
	Webhooks      []Webhook `json:"webhooks"`
}

// TopicText returns the topic, or "" when unset.
func (c TextChannel) TopicText() string {
	if c.Topic == nil {
		return ""
	}
	return *c.Topic
}

// VoiceChannel is a captured voice channel.
type VoiceChannel struct {
	Channel
	Bitrate   int `json:"bitrate"`
	UserLimit int `json:"user_limit"`
}

// Author describes who wrote a message.
type Author struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Discriminator string `json:"discriminator"`
	Avatar        string `json:"avatar"`
}

// Message is a captured message. Embeds are passed through unmodified.
type Message struct {
	ID            string            `json:"id"`
	Content       string            `json:"content"`
	SystemContent string            `json:"system_content"`
	Author        Author            `json:"author"`
	Pinned        bool              `json:"pinned"`
	Attachments   []string          `json:"attachments"`
	Embeds        []json.RawMessage `json:"embeds"`
	Reactions     []string          `json:"reactions"`
}

// Webhook describes a webhook that existed on a text channel.
type Webhook struct {
	Channel string `json:"channel"`
	Name    string `json:"name"`
	Avatar  string `json:"avatar"`
	URL     string `json:"url"`
}

// Member is a captured guild member.
type Member struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Discriminator string   `json:"discriminator"`
	Nick          *string  `json:"nick"`
	Roles         []string `json:"roles"`
}

// BanUser identifies a banned account.
type BanUser struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Discriminator string `json:"discriminator"`
}

// Ban is a captured ban.
type Ban struct {
	User   BanUser `json:"user"`
	Reason *string `json:"reason"`
}

// ReasonText returns the ban reason, or "" when none was given.
func (b Ban) ReasonText() string {
	if b.Reason == nil {
		return ""
	}
	return *b.Reason
}

// DefaultRole returns the everyone-role record.
func (s *Snapshot) DefaultRole() (Role, bool) {
	for _, r := range s.Roles {
		if r.Default {
			return r, true
		}
	}
	return Role{}, false
}

// Validate checks the invariants a loader relies on.
func (s *Snapshot) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil snapshot", ErrInvalid)
	}
	if s.ID == "" {
		return fmt.Errorf("%w: missing guild id", ErrInvalid)
	}
	defaults := 0
	for _, r := range s.Roles {
		if r.ID == "" {
			return fmt.Errorf("%w: role %q has no id", ErrInvalid, r.Name)
		}
		if r.Default {
			defaults++
		}
	}
	if defaults != 1 {
		return fmt.Errorf("%w: want exactly one default role, have %d", ErrInvalid, defaults)
	}
	categories := make(map[string]struct{}, len(s.Categories))
	for _, c := range s.Categories {
		if c.ID == "" {
			return fmt.Errorf("%w: category %q has no id", ErrInvalid, c.Name)
		}
		categories[c.ID] = struct{}{}
	}
	check := func(c Channel) error {
		if c.ID == "" {
			return fmt.Errorf("%w: channel %q has no id", ErrInvalid, c.Name)
		}
		if parent := c.CategoryID(); parent != "" {
			if _, ok := categories[parent]; !ok {
				return fmt.Errorf("%w: channel %s references unknown category %s", ErrInvalid, c.ID, parent)
			}
		}
		return nil
	}
	for _, c := range s.TextChannels {
		if err := check(c.Channel); err != nil {
			return err
		}
	}
	for _, c := range s.VoiceChannels {
		if err := check(c.Channel); err != nil {
			return err
		}
	}
	return nil
}

// Marshal encodes a snapshot as JSON.
func Marshal(s *Snapshot) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(s)
}

// Unmarshal decodes and validates a snapshot document.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if s.Version > Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalid, s.Version)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
