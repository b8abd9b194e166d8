package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"guild-backup/core/guild"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// stubSession implements the calls the tests need; anything else panics on
// the nil embedded interface.
type stubSession struct {
	session

	roles    []*discordgo.Role
	channels []*discordgo.Channel
	members  []*discordgo.Member
	bans     []*discordgo.GuildBan
	// messages are stored newest first, like the API returns them.
	messages []*discordgo.Message

	memberCalls  []string
	messageCalls []string
	rolesErr     error
}

func (s *stubSession) GuildRoles(string, ...discordgo.RequestOption) ([]*discordgo.Role, error) {
	return s.roles, s.rolesErr
}

func (s *stubSession) GuildChannels(string, ...discordgo.RequestOption) ([]*discordgo.Channel, error) {
	return s.channels, nil
}

func (s *stubSession) GuildMembers(_ string, after string, limit int, _ ...discordgo.RequestOption) ([]*discordgo.Member, error) {
	s.memberCalls = append(s.memberCalls, after)
	start := 0
	if after != "" {
		for i, m := range s.members {
			if m.User.ID == after {
				start = i + 1
			}
		}
	}
	end := min(start+limit, len(s.members))
	return s.members[start:end], nil
}

func (s *stubSession) GuildBans(_ string, limit int, _, after string, _ ...discordgo.RequestOption) ([]*discordgo.GuildBan, error) {
	start := 0
	if after != "" {
		for i, b := range s.bans {
			if b.User.ID == after {
				start = i + 1
			}
		}
	}
	end := min(start+limit, len(s.bans))
	return s.bans[start:end], nil
}

func (s *stubSession) ChannelMessages(_ string, limit int, before, _, _ string, _ ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	s.messageCalls = append(s.messageCalls, before)
	start := 0
	if before != "" {
		for i, m := range s.messages {
			if m.ID == before {
				start = i + 1
			}
		}
	}
	end := min(start+limit, len(s.messages))
	return s.messages[start:end], nil
}

func newTestClient(s session) *Client {
	return newClient(s, rate.NewLimiter(rate.Inf, 1), nil)
}

func restError(status int) error {
	return &discordgo.RESTError{Response: &http.Response{StatusCode: status}}
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify("op", nil))

	err := classify("list roles", discordgo.ErrUnauthorized)
	assert.ErrorIs(t, err, guild.ErrFatal)
	assert.ErrorIs(t, err, discordgo.ErrUnauthorized)

	assert.ErrorIs(t, classify("op", restError(http.StatusUnauthorized)), guild.ErrFatal)
	assert.ErrorIs(t, classify("op", restError(http.StatusNotFound)), guild.ErrNotFound)

	forbidden := classify("create role", restError(http.StatusForbidden))
	assert.False(t, guild.IsFatal(forbidden))
	assert.False(t, errors.Is(forbidden, guild.ErrNotFound))
	assert.Contains(t, forbidden.Error(), "create role")
}

func TestRoles_SortedAndDefaultMarked(t *testing.T) {
	s := &stubSession{roles: []*discordgo.Role{
		{ID: "2", Name: "Mod", Position: 2},
		{ID: "100", Name: "@everyone", Position: 0},
		{ID: "1", Name: "Member", Position: 1},
	}}
	roles, err := newTestClient(s).Roles(context.Background(), "100")
	require.NoError(t, err)
	require.Len(t, roles, 3)
	assert.Equal(t, "@everyone", roles[0].Name)
	assert.True(t, roles[0].Default)
	assert.Equal(t, "Member", roles[1].Name)
	assert.False(t, roles[1].Default)
	assert.Equal(t, "Mod", roles[2].Name)
}

func TestRoles_FatalError(t *testing.T) {
	s := &stubSession{rolesErr: discordgo.ErrUnauthorized}
	_, err := newTestClient(s).Roles(context.Background(), "100")
	assert.True(t, guild.IsFatal(err))
}

func TestChannels_SkipsUnsupportedTypes(t *testing.T) {
	s := &stubSession{channels: []*discordgo.Channel{
		{ID: "1", Name: "general", Type: discordgo.ChannelTypeGuildText, Position: 1},
		{ID: "2", Name: "news", Type: discordgo.ChannelTypeGuildNews, Position: 0},
		{ID: "3", Name: "stage", Type: discordgo.ChannelTypeGuildStageVoice},
		{ID: "4", Name: "Staff", Type: discordgo.ChannelTypeGuildCategory},
		{ID: "5", Name: "forum", Type: discordgo.ChannelTypeGuildForum},
		{ID: "6", Name: "Lounge", Type: discordgo.ChannelTypeGuildVoice, ParentID: "4"},
	}}
	channels, err := newTestClient(s).Channels(context.Background(), "100")
	require.NoError(t, err)

	var names []string
	for _, ch := range channels {
		names = append(names, ch.Name)
	}
	assert.Equal(t, []string{"news", "general", "Lounge", "Staff"}, names)
	assert.Equal(t, guild.ChannelText, channels[0].Type)
	assert.Equal(t, "4", channels[2].ParentID)
}

func TestMembers_Pages(t *testing.T) {
	s := &stubSession{}
	for i := 0; i < memberPage+3; i++ {
		s.members = append(s.members, &discordgo.Member{User: &discordgo.User{ID: fmt.Sprintf("u%d", i)}})
	}
	members, err := newTestClient(s).Members(context.Background(), "100")
	require.NoError(t, err)
	assert.Len(t, members, memberPage+3)
	assert.Equal(t, []string{"", fmt.Sprintf("u%d", memberPage-1)}, s.memberCalls)
}

func TestBans_KeepsUnresolvedUsers(t *testing.T) {
	s := &stubSession{bans: []*discordgo.GuildBan{
		{User: &discordgo.User{ID: "7", Username: "troll"}, Reason: "spam"},
		{User: nil, Reason: "gone"},
	}}
	bans, err := newTestClient(s).Bans(context.Background(), "100")
	require.NoError(t, err)
	require.Len(t, bans, 2)
	assert.Equal(t, "troll", bans[0].User.Name)
	assert.Equal(t, "spam", bans[0].Reason)
	assert.Nil(t, bans[1].User)
}

func TestMessages_OldestFirstAcrossPages(t *testing.T) {
	s := &stubSession{}
	// m249 is the newest.
	for i := 249; i >= 0; i-- {
		s.messages = append(s.messages, &discordgo.Message{ID: fmt.Sprintf("m%d", i), Content: "x"})
	}
	msgs, err := newTestClient(s).Messages(context.Background(), "c", 150)
	require.NoError(t, err)
	require.Len(t, msgs, 150)
	assert.Equal(t, "m100", msgs[0].ID)
	assert.Equal(t, "m249", msgs[149].ID)
	assert.Equal(t, []string{"", "m150"}, s.messageCalls)
}

func TestMessages_ShortChannel(t *testing.T) {
	s := &stubSession{messages: []*discordgo.Message{{ID: "m1"}, {ID: "m0"}}}
	msgs, err := newTestClient(s).Messages(context.Background(), "c", 20)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m0", msgs[0].ID)
	assert.Len(t, s.messageCalls, 1)
}

func TestDo_ContextCanceledWhileThrottled(t *testing.T) {
	c := newClient(&stubSession{}, rate.NewLimiter(rate.Every(1<<62), 0), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Roles(ctx, "100")
	assert.Error(t, err)
}

func TestNewClient_RequiresToken(t *testing.T) {
	_, err := NewClient(Config{}, nil)
	assert.Error(t, err)

	c, err := NewClient(Config{Token: "abc", RequestsPerSecond: 2, Burst: 3}, nil)
	require.NoError(t, err)
	assert.Equal(t, rate.Limit(2), c.limiter.Limit())
	assert.Equal(t, 3, c.limiter.Burst())
}
