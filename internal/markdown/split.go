package markdown

import (
	"strings"
	"unicode/utf8"
)

// DefaultChunkLimit leaves headroom under Telegram's 4096-char hard cap.
const DefaultChunkLimit = 4000

// boundaries, in preference order: paragraph > line > sentence > word.
// The hard cut at max is the unconditional last resort.
var boundaries = []string{"\n\n", "\n", ". ", " "}

// Split cuts text into chunks of at most max bytes, preferring natural
// boundaries. A boundary candidate is accepted only if it sits past max/2,
// which prevents pathologically small leading chunks; the cut lands just
// after the boundary, so concatenating the chunks reproduces the input
// exactly. The result is never empty.
func Split(text string, max int) []string {
	if max < 1 {
		max = 1
	}
	if len(text) <= max {
		return []string{text}
	}

	var chunks []string
	for len(text) > max {
		cut := hardCut(text, max)
		for _, sep := range boundaries {
			if pos := strings.LastIndex(text[:max], sep); pos > max/2 {
				cut = pos + len(sep)
				break
			}
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	if len(text) > 0 {
		chunks = append(chunks, text)
	}
	return chunks
}

// hardCut returns the unconditional cut position at or just below max,
// backed up to a rune start so multibyte characters are never torn.
func hardCut(text string, max int) int {
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	if cut == 0 {
		// max is smaller than the first rune; tear it rather than loop.
		cut = max
	}
	return cut
}
