// Package markdown converts raw model output into Telegram's MarkdownV2
// dialect: fence-aware formatting, reserved-character escaping, and
// size-limited chunking.
package markdown

import "strings"

// reserved is the MarkdownV2 reserved set. Every occurrence in prose (and in
// code bodies, which are re-fenced after escaping) must be backslash-prefixed.
const reserved = "_*[]()~`>#+-=|{}.!"

var reservedTable = func() (t [256]bool) {
	for i := 0; i < len(reserved); i++ {
		t[reserved[i]] = true
	}
	return
}()

// Escape prefixes every reserved MarkdownV2 character with a backslash.
// Single pass, left to right, non-overlapping. Escaping is not idempotent:
// escaping already-escaped text double-escapes it.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s) + len(s)/8)
	for i := 0; i < len(s); i++ {
		if reservedTable[s[i]] {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// StripEscapes removes all backslashes, producing the plain-text fallback
// used when Telegram rejects a formatted chunk.
func StripEscapes(s string) string {
	return strings.ReplaceAll(s, `\`, "")
}
