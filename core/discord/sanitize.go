package discord

import "strings"

// zero-width space; breaks the mention token without changing how it reads.
const zwsp = "\u200b"

var mentionReplacer = strings.NewReplacer(
	"@everyone", "@"+zwsp+"everyone",
	"@here", "@"+zwsp+"here",
)

// MentionSanitizer neutralizes broad mention tokens in relayed content.
type MentionSanitizer struct{}

// Sanitize implements guild.Sanitizer.
func (MentionSanitizer) Sanitize(content string) string {
	return mentionReplacer.Replace(content)
}
