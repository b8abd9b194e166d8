package snapshot

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	fenceOpen  = "```\n"
	fenceClose = "```"
	ellipsis   = "...\n"
)

// MinFenceBudget is the smallest limit for which Fence keeps the closing
// fence.
const MinFenceBudget = len(fenceClose)

// Channel glyphs used by ChannelTree.
const (
	GlyphText     = "#"
	GlyphVoice    = "🔊"
	GlyphCategory = "📁"
)

// Summary holds the scalar indicators shown next to the text previews.
type Summary struct {
	GuildID      string    `json:"guild_id"`
	GuildName    string    `json:"guild_name"`
	Members      int       `json:"members"`
	Bans         int       `json:"bans"`
	Roles        int       `json:"roles"`
	Categories   int       `json:"categories"`
	Channels     int       `json:"channels"`
	ChatlogDepth int       `json:"chatlog_depth"`
	CreatedAt    time.Time `json:"created_at"`
	Creator      string    `json:"creator"`
}

// MemberCount returns the number of captured members, falling back to the
// guild's reported count when the member list was not captured.
func (s *Snapshot) MemberCount() int {
	if len(s.Members) > 0 {
		return len(s.Members)
	}
	return s.GuildMemberCount
}

// ChatlogDepth returns the largest number of messages stored for any text channel.
func (s *Snapshot) ChatlogDepth() int {
	depth := 0
	for _, c := range s.TextChannels {
		if len(c.Messages) > depth {
			depth = len(c.Messages)
		}
	}
	return depth
}

// Summary returns the scalar indicators of s.
func (s *Snapshot) Summary() Summary {
	return Summary{
		GuildID:      s.ID,
		GuildName:    s.Name,
		Members:      s.MemberCount(),
		Bans:         len(s.Bans),
		Roles:        len(s.Roles),
		Categories:   len(s.Categories),
		Channels:     len(s.TextChannels) + len(s.VoiceChannels),
		ChatlogDepth: s.ChatlogDepth(),
		CreatedAt:    s.CreatedAt,
		Creator:      s.Creator,
	}
}

type treeEntry struct {
	glyph    string
	name     string
	position int
	voice    bool
}

func sortEntries(entries []treeEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].voice != entries[j].voice {
			return !entries[i].voice
		}
		return entries[i].position < entries[j].position
	})
}

// ChannelTree renders top-level channels followed by each category and its
// channels, one per line with a type glyph, truncated to limit characters.
func (s *Snapshot) ChannelTree(limit int) string {
	children := make(map[string][]treeEntry)
	for _, c := range s.TextChannels {
		key := c.CategoryID()
		children[key] = append(children[key], treeEntry{GlyphText, c.Name, c.Position, false})
	}
	for _, c := range s.VoiceChannels {
		key := c.CategoryID()
		children[key] = append(children[key], treeEntry{GlyphVoice, c.Name, c.Position, true})
	}

	var b strings.Builder
	top := children[""]
	sortEntries(top)
	for _, e := range top {
		b.WriteString(e.glyph + e.name + "\n")
	}

	categories := append([]Channel(nil), s.Categories...)
	sort.SliceStable(categories, func(i, j int) bool { return categories[i].Position < categories[j].Position })
	for _, cat := range categories {
		b.WriteString(GlyphCategory + " " + cat.Name + "\n")
		nested := children[cat.ID]
		sortEntries(nested)
		for _, e := range nested {
			b.WriteString("  " + e.glyph + e.name + "\n")
		}
	}
	return Fence(b.String(), limit)
}

// RoleList renders role names, most senior first, truncated to limit characters.
func (s *Snapshot) RoleList(limit int) string {
	roles := append([]Role(nil), s.Roles...)
	sort.SliceStable(roles, func(i, j int) bool { return roles[i].Position > roles[j].Position })

	var b strings.Builder
	for _, r := range roles {
		b.WriteString(r.Name + "\n")
	}
	return Fence(b.String(), limit)
}

// Fence wraps body in a code fence of at most limit characters. When body
// does not fit, it is cut on a character boundary and marked with "...";
// the closing fence is kept for any limit of at least MinFenceBudget. Smaller
// limits cannot hold the fence and yield "".
func Fence(body string, limit int) string {
	full := fenceOpen + body + fenceClose
	if utf8.RuneCountInString(full) <= limit {
		return full
	}

	overhead := utf8.RuneCountInString(fenceOpen + ellipsis + fenceClose)
	if limit < overhead {
		if limit >= len(fenceClose) {
			return fenceClose
		}
		return ""
	}

	room := limit - overhead
	return fenceOpen + truncateRunes(body, room) + ellipsis + fenceClose
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
