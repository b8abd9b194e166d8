package discord

import (
	"encoding/json"

	"guild-backup/core/guild"

	"github.com/bwmarrin/discordgo"
)

func toGuild(g *discordgo.Guild) *guild.Guild {
	count := g.MemberCount
	if count == 0 {
		count = g.ApproximateMemberCount
	}
	return &guild.Guild{
		ID:                    g.ID,
		Name:                  g.Name,
		Icon:                  g.Icon,
		OwnerID:               g.OwnerID,
		Region:                g.Region,
		AFKChannelID:          g.AfkChannelID,
		AFKTimeout:            g.AfkTimeout,
		SystemChannelID:       g.SystemChannelID,
		VerificationLevel:     int(g.VerificationLevel),
		ExplicitContentFilter: int(g.ExplicitContentFilter),
		MFALevel:              int(g.MfaLevel),
		MemberCount:           count,
		Large:                 g.Large,
	}
}

func toRole(guildID string, r *discordgo.Role) guild.Role {
	return guild.Role{
		ID:          r.ID,
		Name:        r.Name,
		Permissions: r.Permissions,
		Color:       r.Color,
		Hoist:       r.Hoist,
		Position:    r.Position,
		Mentionable: r.Mentionable,
		Managed:     r.Managed,
		Default:     r.ID == guildID,
	}
}

func fromRoleParams(p guild.RoleParams) *discordgo.RoleParams {
	return &discordgo.RoleParams{
		Name:        p.Name,
		Permissions: p.Permissions,
		Color:       p.Color,
		Hoist:       p.Hoist,
		Mentionable: p.Mentionable,
	}
}

// channelType returns false for channel types the backup does not handle
// (threads, forums, stages, directory channels).
func channelType(t discordgo.ChannelType) (guild.ChannelType, bool) {
	switch t {
	case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews:
		return guild.ChannelText, true
	case discordgo.ChannelTypeGuildVoice:
		return guild.ChannelVoice, true
	case discordgo.ChannelTypeGuildCategory:
		return guild.ChannelCategory, true
	default:
		return 0, false
	}
}

func fromChannelType(t guild.ChannelType) discordgo.ChannelType {
	switch t {
	case guild.ChannelVoice:
		return discordgo.ChannelTypeGuildVoice
	case guild.ChannelCategory:
		return discordgo.ChannelTypeGuildCategory
	default:
		return discordgo.ChannelTypeGuildText
	}
}

func toChannel(ch *discordgo.Channel) (guild.Channel, bool) {
	t, ok := channelType(ch.Type)
	if !ok {
		return guild.Channel{}, false
	}
	return guild.Channel{
		ID:               ch.ID,
		Type:             t,
		Name:             ch.Name,
		Position:         ch.Position,
		ParentID:         ch.ParentID,
		Overwrites:       toOverwrites(ch.PermissionOverwrites),
		Topic:            ch.Topic,
		NSFW:             ch.NSFW,
		RateLimitPerUser: ch.RateLimitPerUser,
		Bitrate:          ch.Bitrate,
		UserLimit:        ch.UserLimit,
	}, true
}

func toOverwrites(in []*discordgo.PermissionOverwrite) []guild.Overwrite {
	out := make([]guild.Overwrite, 0, len(in))
	for _, ow := range in {
		kind := guild.SubjectRole
		if ow.Type == discordgo.PermissionOverwriteTypeMember {
			kind = guild.SubjectMember
		}
		out = append(out, guild.Overwrite{
			Subject: guild.Subject{Kind: kind, ID: ow.ID},
			Allow:   ow.Allow,
			Deny:    ow.Deny,
		})
	}
	return out
}

func fromOverwrites(in []guild.Overwrite) []*discordgo.PermissionOverwrite {
	out := make([]*discordgo.PermissionOverwrite, 0, len(in))
	for _, ow := range in {
		t := discordgo.PermissionOverwriteTypeRole
		if ow.Subject.Kind == guild.SubjectMember {
			t = discordgo.PermissionOverwriteTypeMember
		}
		out = append(out, &discordgo.PermissionOverwrite{ID: ow.Subject.ID, Type: t, Allow: ow.Allow, Deny: ow.Deny})
	}
	return out
}

func createData(p guild.ChannelParams) discordgo.GuildChannelCreateData {
	data := discordgo.GuildChannelCreateData{
		Name:                 p.Name,
		Type:                 fromChannelType(p.Type),
		PermissionOverwrites: fromOverwrites(p.Overwrites),
	}
	if p.ParentID != nil {
		data.ParentID = *p.ParentID
	}
	if p.Topic != nil {
		data.Topic = *p.Topic
	}
	if p.NSFW != nil {
		data.NSFW = *p.NSFW
	}
	if p.RateLimitPerUser != nil {
		data.RateLimitPerUser = *p.RateLimitPerUser
	}
	if p.Bitrate != nil {
		data.Bitrate = *p.Bitrate
	}
	if p.UserLimit != nil {
		data.UserLimit = *p.UserLimit
	}
	return data
}

// editData converts edit params. The platform API treats empty strings as
// absent, so a topic or parent cannot be cleared through this path.
func editData(p guild.ChannelParams) *discordgo.ChannelEdit {
	edit := &discordgo.ChannelEdit{
		Name:             p.Name,
		NSFW:             p.NSFW,
		RateLimitPerUser: p.RateLimitPerUser,
	}
	if p.Overwrites != nil {
		edit.PermissionOverwrites = fromOverwrites(p.Overwrites)
	}
	if p.ParentID != nil {
		edit.ParentID = *p.ParentID
	}
	if p.Topic != nil {
		edit.Topic = *p.Topic
	}
	if p.Bitrate != nil {
		edit.Bitrate = *p.Bitrate
	}
	if p.UserLimit != nil {
		edit.UserLimit = *p.UserLimit
	}
	return edit
}

func toUser(u *discordgo.User) guild.User {
	if u == nil {
		return guild.User{}
	}
	return guild.User{
		ID:            u.ID,
		Name:          u.Username,
		Discriminator: u.Discriminator,
		AvatarURL:     u.AvatarURL(""),
		Bot:           u.Bot,
	}
}

func toMember(m *discordgo.Member) guild.Member {
	return guild.Member{
		User:    toUser(m.User),
		Nick:    m.Nick,
		RoleIDs: append([]string(nil), m.Roles...),
	}
}

func toMessage(m *discordgo.Message) guild.Message {
	msg := guild.Message{
		ID:            m.ID,
		Content:       m.Content,
		CleanContent:  m.ContentWithMentionsReplaced(),
		SystemContent: m.Content,
		Author:        toUser(m.Author),
		Pinned:        m.Pinned,
	}
	for _, a := range m.Attachments {
		msg.Attachments = append(msg.Attachments, a.URL)
	}
	for _, e := range m.Embeds {
		raw, err := json.Marshal(e)
		if err != nil {
			continue
		}
		msg.Embeds = append(msg.Embeds, raw)
	}
	for _, r := range m.Reactions {
		if r.Emoji != nil {
			msg.Reactions = append(msg.Reactions, guild.Reaction{Emoji: r.Emoji.Name})
		}
	}
	return msg
}

func toWebhook(w *discordgo.Webhook) guild.Webhook {
	hook := guild.Webhook{
		ID:        w.ID,
		ChannelID: w.ChannelID,
		Name:      w.Name,
		Token:     w.Token,
	}
	if w.Avatar != "" {
		hook.AvatarURL = discordgo.EndpointUserAvatar(w.ID, w.Avatar)
	}
	if w.Token != "" {
		hook.URL = discordgo.EndpointWebhookToken(w.ID, w.Token)
	}
	return hook
}

func webhookParams(msg guild.RelayMessage) *discordgo.WebhookParams {
	params := &discordgo.WebhookParams{
		Content:   msg.Content,
		Username:  msg.Username,
		AvatarURL: msg.AvatarURL,
		// Replayed history must not ping anyone.
		AllowedMentions: &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}},
	}
	for _, raw := range msg.Embeds {
		var embed discordgo.MessageEmbed
		if err := json.Unmarshal(raw, &embed); err != nil {
			continue
		}
		params.Embeds = append(params.Embeds, &embed)
	}
	return params
}
