package snapshot

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func viewFixture() *Snapshot {
	return &Snapshot{
		ID:        "1",
		Name:      "Guild",
		Creator:   "42",
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Roles: []Role{
			{ID: "1", Name: "@everyone", Default: true},
			{ID: "3", Name: "Mod", Position: 2},
			{ID: "2", Name: "Member", Position: 1},
		},
		Categories: []Channel{
			{ID: "20", Name: "Voice", Position: 1},
			{ID: "10", Name: "Staff", Position: 0},
		},
		TextChannels: []TextChannel{
			{Channel: Channel{ID: "11", Name: "mod-chat", Position: 0, Category: strp("10")}, Messages: make([]Message, 3)},
			{Channel: Channel{ID: "12", Name: "general", Position: 0}, Messages: make([]Message, 7)},
			{Channel: Channel{ID: "13", Name: "rules", Position: 1}},
		},
		VoiceChannels: []VoiceChannel{
			{Channel: Channel{ID: "21", Name: "Lounge", Category: strp("20")}},
			{Channel: Channel{ID: "22", Name: "AFK", Position: 0}},
		},
		Members: []Member{{ID: "501"}, {ID: "502"}},
		Bans:    []Ban{{User: BanUser{ID: "777"}}},
	}
}

func TestChannelTree(t *testing.T) {
	got := viewFixture().ChannelTree(2000)

	want := "```\n" +
		"#general\n" +
		"#rules\n" +
		"🔊AFK\n" +
		"📁 Staff\n" +
		"  #mod-chat\n" +
		"📁 Voice\n" +
		"  🔊Lounge\n" +
		"```"
	assert.Equal(t, want, got)
}

func TestRoleList_MostSeniorFirst(t *testing.T) {
	got := viewFixture().RoleList(2000)
	assert.Equal(t, "```\nMod\nMember\n@everyone\n```", got)
}

func TestSummary(t *testing.T) {
	s := viewFixture().Summary()
	assert.Equal(t, 2, s.Members)
	assert.Equal(t, 1, s.Bans)
	assert.Equal(t, 3, s.Roles)
	assert.Equal(t, 2, s.Categories)
	assert.Equal(t, 5, s.Channels)
	assert.Equal(t, 7, s.ChatlogDepth)
	assert.Equal(t, "42", s.Creator)
	assert.Equal(t, 2024, s.CreatedAt.Year())
}

func TestMemberCount_FallsBackToGuildCount(t *testing.T) {
	s := &Snapshot{GuildMemberCount: 1234}
	assert.Equal(t, 1234, s.MemberCount())
}

func TestFence_Truncation(t *testing.T) {
	body := strings.Repeat("🔊voice\n", 50)

	for _, limit := range []int{12, 13, 20, 41, 100, 255} {
		got := Fence(body, limit)
		assert.LessOrEqual(t, utf8.RuneCountInString(got), limit, "limit %d", limit)
		assert.True(t, strings.HasSuffix(got, "```"), "limit %d", limit)
		assert.True(t, utf8.ValidString(got), "limit %d", limit)
		assert.Contains(t, got, "...\n", "limit %d", limit)
	}
}

func TestFence_FitsUnchanged(t *testing.T) {
	assert.Equal(t, "```\nabc\n```", Fence("abc\n", 11))
}

func TestFence_TinyBudget(t *testing.T) {
	assert.Equal(t, "```", Fence("abcdef", 5))
	assert.Equal(t, "```", Fence("abcdef", MinFenceBudget))
	assert.Equal(t, "", Fence("abcdef", MinFenceBudget-1))
}

func TestChannelTree_RespectsBudget(t *testing.T) {
	got := viewFixture().ChannelTree(30)
	assert.LessOrEqual(t, utf8.RuneCountInString(got), 30)
	assert.True(t, strings.HasSuffix(got, "```"))
}
