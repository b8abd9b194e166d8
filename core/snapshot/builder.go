package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"guild-backup/core/guild"
	"guild-backup/core/overwrite"

	"go.uber.org/zap"
)

// Options controls snapshot construction.
type Options struct {
	// ChatlogDepth is the number of most recent messages captured per text
	// channel. Zero means DefaultChatlogDepth; negative disables capture.
	ChatlogDepth int
}

func (o Options) depth() int {
	switch {
	case o.ChatlogDepth == 0:
		return DefaultChatlogDepth
	case o.ChatlogDepth < 0:
		return 0
	default:
		return o.ChatlogDepth
	}
}

// Skip records an entity that was left out of a snapshot and why.
type Skip struct {
	Kind   string `json:"kind"`
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Builder captures snapshots from a live server.
type Builder struct {
	client guild.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewBuilder creates a Builder. A nil logger disables logging.
func NewBuilder(client guild.Client, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{client: client, logger: logger, now: time.Now}
}

// draft is the in-progress document. It never escapes a failed Build.
type draft struct {
	snap    Snapshot
	skipped []Skip
}

// aborts reports whether err must stop the capture instead of skipping one
// entity.
func aborts(err error) bool {
	return guild.IsFatal(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (d *draft) skip(kind, id string, err error) {
	d.skipped = append(d.skipped, Skip{Kind: kind, ID: id, Reason: err.Error()})
}

// Build captures guildID. The returned snapshot must not be modified.
func (b *Builder) Build(ctx context.Context, guildID, creatorID string, opts Options) (*Snapshot, []Skip, error) {
	if !guild.ValidID(guildID) {
		return nil, nil, fmt.Errorf("snapshot: invalid guild id %q", guildID)
	}

	g, err := b.client.Guild(ctx, guildID)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: read guild: %w", err)
	}

	d := &draft{snap: Snapshot{
		Version:               Version,
		ID:                    g.ID,
		Name:                  g.Name,
		Icon:                  optional(g.Icon),
		Owner:                 g.OwnerID,
		Region:                g.Region,
		AFKTimeout:            g.AFKTimeout,
		AFKChannel:            optional(g.AFKChannelID),
		SystemChannel:         optional(g.SystemChannelID),
		MFALevel:              g.MFALevel,
		VerificationLevel:     g.VerificationLevel,
		ExplicitContentFilter: g.ExplicitContentFilter,
		GuildMemberCount:      g.MemberCount,
		Large:                 g.Large,
		CreatedAt:             b.now().UTC(),
		Creator:               creatorID,
		Roles:                 []Role{},
		Categories:            []Channel{},
		TextChannels:          []TextChannel{},
		VoiceChannels:         []VoiceChannel{},
		Members:               []Member{},
		Bans:                  []Ban{},
	}}

	steps := []struct {
		name string
		fn   func(context.Context, *draft, string, Options) error
	}{
		{"roles", b.captureRoles},
		{"channels", b.captureChannels},
		{"members", b.captureMembers},
		{"bans", b.captureBans},
	}
	for _, step := range steps {
		if err := step.fn(ctx, d, guildID, opts); err != nil {
			return nil, nil, fmt.Errorf("snapshot: %s: %w", step.name, err)
		}
	}

	b.logger.Info("Snapshot built",
		zap.String("guild_id", guildID),
		zap.Int("roles", len(d.snap.Roles)),
		zap.Int("categories", len(d.snap.Categories)),
		zap.Int("text_channels", len(d.snap.TextChannels)),
		zap.Int("voice_channels", len(d.snap.VoiceChannels)),
		zap.Int("members", len(d.snap.Members)),
		zap.Int("bans", len(d.snap.Bans)),
		zap.Int("skipped", len(d.skipped)),
	)

	snap := d.snap
	return &snap, d.skipped, nil
}

func (b *Builder) captureRoles(ctx context.Context, d *draft, guildID string, _ Options) error {
	roles, err := b.client.Roles(ctx, guildID)
	if err != nil {
		return err
	}
	sort.SliceStable(roles, func(i, j int) bool { return roles[i].Position < roles[j].Position })

	for _, r := range roles {
		if r.Managed {
			continue
		}
		d.snap.Roles = append(d.snap.Roles, Role{
			ID:          r.ID,
			Name:        r.Name,
			Permissions: r.Permissions,
			Color:       r.Color,
			Hoist:       r.Hoist,
			Position:    r.Position,
			Mentionable: r.Mentionable,
			Default:     r.Default || r.ID == guildID,
		})
	}
	return nil
}

func baseChannel(ch guild.Channel) Channel {
	return Channel{
		ID:         ch.ID,
		Name:       ch.Name,
		Position:   ch.Position,
		Category:   optional(ch.ParentID),
		Overwrites: overwrite.Encode(ch.Overwrites),
	}
}

func (b *Builder) captureChannels(ctx context.Context, d *draft, guildID string, opts Options) error {
	channels, err := b.client.Channels(ctx, guildID)
	if err != nil {
		return err
	}
	sort.SliceStable(channels, func(i, j int) bool { return channels[i].Position < channels[j].Position })

	for _, ch := range channels {
		if ch.Type == guild.ChannelCategory {
			d.snap.Categories = append(d.snap.Categories, baseChannel(ch))
		}
	}
	for _, ch := range channels {
		if ch.Type != guild.ChannelText {
			continue
		}
		text, err := b.captureText(ctx, d, ch, opts.depth())
		if err != nil {
			if aborts(err) {
				return err
			}
			b.logger.Warn("Skipping unreadable channel", zap.String("channel_id", ch.ID), zap.Error(err))
			d.skip("text_channel", ch.ID, err)
			continue
		}
		d.snap.TextChannels = append(d.snap.TextChannels, text)
	}
	for _, ch := range channels {
		if ch.Type != guild.ChannelVoice {
			continue
		}
		d.snap.VoiceChannels = append(d.snap.VoiceChannels, VoiceChannel{
			Channel:   baseChannel(ch),
			Bitrate:   ch.Bitrate,
			UserLimit: ch.UserLimit,
		})
	}
	return nil
}

func (b *Builder) captureText(ctx context.Context, d *draft, ch guild.Channel, depth int) (TextChannel, error) {
	text := TextChannel{
		Channel:       baseChannel(ch),
		Topic:         optional(ch.Topic),
		SlowmodeDelay: ch.RateLimitPerUser,
		NSFW:          ch.NSFW,
		Messages:      []Message{},
		Webhooks:      []Webhook{},
	}

	if depth > 0 {
		msgs, err := b.client.Messages(ctx, ch.ID, depth)
		if err != nil {
			return TextChannel{}, fmt.Errorf("read history: %w", err)
		}
		if len(msgs) > depth {
			msgs = msgs[len(msgs)-depth:]
		}
		for _, m := range msgs {
			text.Messages = append(text.Messages, NewMessage(m))
		}
	}

	hooks, err := b.client.Webhooks(ctx, ch.ID)
	if err != nil {
		if aborts(err) {
			return TextChannel{}, err
		}
		// Webhook listing needs an extra permission; the channel is still usable.
		d.skip("webhooks", ch.ID, err)
		return text, nil
	}
	for _, w := range hooks {
		text.Webhooks = append(text.Webhooks, Webhook{
			Channel: w.ChannelID,
			Name:    w.Name,
			Avatar:  w.AvatarURL,
			URL:     w.URL,
		})
	}
	return text, nil
}

// NewMessage converts a live message into its stored form.
func NewMessage(m guild.Message) Message {
	msg := Message{
		ID:            m.ID,
		Content:       m.CleanContent,
		SystemContent: m.SystemContent,
		Author: Author{
			ID:            m.Author.ID,
			Name:          m.Author.Name,
			Discriminator: m.Author.Discriminator,
			Avatar:        m.Author.AvatarURL,
		},
		Pinned:      m.Pinned,
		Attachments: append([]string{}, m.Attachments...),
		Embeds:      append([]json.RawMessage{}, m.Embeds...),
		Reactions:   make([]string, 0, len(m.Reactions)),
	}
	if msg.SystemContent == "" {
		msg.SystemContent = m.Content
	}
	for _, r := range m.Reactions {
		msg.Reactions = append(msg.Reactions, r.Emoji)
	}
	return msg
}

func (b *Builder) captureMembers(ctx context.Context, d *draft, guildID string, _ Options) error {
	members, err := b.client.Members(ctx, guildID)
	if err != nil {
		if aborts(err) {
			return err
		}
		b.logger.Warn("Member list unavailable", zap.String("guild_id", guildID), zap.Error(err))
		d.skip("members", guildID, err)
		return nil
	}
	for _, m := range members {
		if m.User.ID == "" {
			d.skip("member", "", fmt.Errorf("member without user"))
			continue
		}
		roles := make([]string, 0, len(m.RoleIDs))
		for _, id := range m.RoleIDs {
			if id != guildID {
				roles = append(roles, id)
			}
		}
		d.snap.Members = append(d.snap.Members, Member{
			ID:            m.User.ID,
			Name:          m.User.Name,
			Discriminator: m.User.Discriminator,
			Nick:          optional(m.Nick),
			Roles:         roles,
		})
	}
	return nil
}

func (b *Builder) captureBans(ctx context.Context, d *draft, guildID string, _ Options) error {
	bans, err := b.client.Bans(ctx, guildID)
	if err != nil {
		if aborts(err) {
			return err
		}
		b.logger.Warn("Ban list unavailable", zap.String("guild_id", guildID), zap.Error(err))
		d.skip("bans", guildID, err)
		return nil
	}
	for _, ban := range bans {
		if ban.User == nil || ban.User.ID == "" {
			d.skip("ban", "", fmt.Errorf("banned account no longer exists"))
			continue
		}
		d.snap.Bans = append(d.snap.Bans, Ban{
			User: BanUser{
				ID:            ban.User.ID,
				Name:          ban.User.Name,
				Discriminator: ban.User.Discriminator,
			},
			Reason: optional(ban.Reason),
		})
	}
	return nil
}
