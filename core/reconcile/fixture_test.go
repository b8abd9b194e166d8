package reconcile_test

import (
	"context"
	"testing"

	"guild-backup/core/guild"
	"guild-backup/core/guild/fake"
	"guild-backup/core/reconcile"
	"guild-backup/core/snapshot"

	"github.com/stretchr/testify/require"
)

// source is a live guild with the layout used throughout the engine tests:
// roles [@everyone, Member, Mod], category Staff holding mod-chat and Lounge,
// a top-level general channel and one ban.
type source struct {
	client    *fake.Client
	guildID   string
	memberID  string
	modID     string
	staffID   string
	modChatID string
	generalID string
	loungeID  string
}

func newSource(t *testing.T) source {
	t.Helper()
	c := fake.New()
	gid := c.AddGuild("Source")
	s := source{client: c, guildID: gid}

	s.memberID = c.SeedRole(gid, guild.Role{Name: "Member", Position: 1, Color: 0x00ff00, Permissions: 1024})
	s.modID = c.SeedRole(gid, guild.Role{Name: "Mod", Position: 2, Color: 0xff0000, Permissions: 8, Hoist: true})
	c.SeedRole(gid, guild.Role{Name: "Bot", Position: 3, Managed: true})

	restricted := []guild.Overwrite{
		{Subject: guild.Subject{Kind: guild.SubjectRole, ID: gid}, Deny: 1024},
		{Subject: guild.Subject{Kind: guild.SubjectRole, ID: s.modID}, Allow: 1024},
	}
	s.staffID = c.SeedChannel(gid, guild.Channel{Type: guild.ChannelCategory, Name: "Staff", Position: 0, Overwrites: restricted})
	s.modChatID = c.SeedChannel(gid, guild.Channel{
		Type:       guild.ChannelText,
		Name:       "mod-chat",
		Position:   0,
		ParentID:   s.staffID,
		Topic:      "mods only",
		Overwrites: restricted,
	})
	s.generalID = c.SeedChannel(gid, guild.Channel{Type: guild.ChannelText, Name: "general", Position: 1, NSFW: true, RateLimitPerUser: 5})
	s.loungeID = c.SeedChannel(gid, guild.Channel{Type: guild.ChannelVoice, Name: "Lounge", Position: 0, ParentID: s.staffID, Bitrate: 96000, UserLimit: 5})

	alice := guild.User{ID: "501", Name: "alice", Discriminator: "0001", AvatarURL: "https://cdn.invalid/alice.png"}
	for _, text := range []string{"first", "second", "third"} {
		c.SeedMessages(s.modChatID, guild.Message{Content: text, CleanContent: text, Author: alice})
	}
	c.SeedMember(gid, guild.Member{User: alice, RoleIDs: []string{s.modID}})
	c.SeedUser(guild.User{ID: "777", Name: "troll", Discriminator: "6666"})
	c.SeedBan(gid, "777", guild.Ban{User: &guild.User{ID: "777", Name: "troll", Discriminator: "6666"}, Reason: "spam"})
	return s
}

func (s source) snapshot(t *testing.T) *snapshot.Snapshot {
	t.Helper()
	snap, _, err := snapshot.NewBuilder(s.client, nil).Build(context.Background(), s.guildID, "42", snapshot.Options{})
	require.NoError(t, err)
	return snap
}

func hardLoad(depth int) reconcile.Options {
	return reconcile.Options{ChatlogDepth: depth, ClearFirst: true, Sections: reconcile.AllSections()}
}

func merge(depth int) reconcile.Options {
	return reconcile.Options{ChatlogDepth: depth, Sections: reconcile.AllSections()}
}

func roles(t *testing.T, c *fake.Client, guildID string) []guild.Role {
	t.Helper()
	out, err := c.Roles(context.Background(), guildID)
	require.NoError(t, err)
	return out
}

func channels(t *testing.T, c *fake.Client, guildID string) []guild.Channel {
	t.Helper()
	out, err := c.Channels(context.Background(), guildID)
	require.NoError(t, err)
	return out
}

func roleByName(t *testing.T, c *fake.Client, guildID, name string) guild.Role {
	t.Helper()
	for _, r := range roles(t, c, guildID) {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("role %q not found", name)
	return guild.Role{}
}

func channelByName(t *testing.T, c *fake.Client, guildID, name string) guild.Channel {
	t.Helper()
	for _, ch := range channels(t, c, guildID) {
		if ch.Name == name {
			return ch
		}
	}
	t.Fatalf("channel %q not found", name)
	return guild.Channel{}
}

func countType(chs []guild.Channel, t guild.ChannelType) int {
	n := 0
	for _, ch := range chs {
		if ch.Type == t {
			n++
		}
	}
	return n
}

type countingRecorder map[string]int

func (r countingRecorder) Observe(kind, action string) {
	r[kind+"/"+action]++
}
