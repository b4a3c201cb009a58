package markdown

import (
	"regexp"
	"strings"
)

// SegmentKind distinguishes fenced code from prose.
type SegmentKind string

const (
	// KindText is an escaped prose segment.
	KindText SegmentKind = "text"

	// KindCode is an escaped, re-fenced code segment.
	KindCode SegmentKind = "code"
)

// Segment is one formatted piece of a model reply, already safe for a
// MarkdownV2 send. Segments are consumed immediately by Split; they are
// never persisted.
type Segment struct {
	Kind    SegmentKind
	Content string
}

// fenceRe matches a fenced code block: triple backtick, optional language
// tag, optional newline, shortest body, closing triple backtick. (?s) lets
// the body span newlines.
var fenceRe = regexp.MustCompile("(?s)```\\w*\\n?.*?```")

// fenceParts extracts the language tag and body from a fenceRe match.
var fenceParts = regexp.MustCompile("(?s)^```(\\w*)\\n?(.*?)```$")

// Format splits raw model output into alternating code and text segments.
// Code bodies lose exactly one trailing newline, are escaped, and re-wrapped
// in untagged fences. Prose spans are escaped whole; spans that are blank
// after trimming are dropped. Original order is preserved.
func Format(raw string) []Segment {
	var segments []Segment

	appendText := func(span string) {
		if strings.TrimSpace(span) == "" {
			return
		}
		segments = append(segments, Segment{Kind: KindText, Content: Escape(span)})
	}

	last := 0
	for _, loc := range fenceRe.FindAllStringIndex(raw, -1) {
		appendText(raw[last:loc[0]])

		m := fenceParts.FindStringSubmatch(raw[loc[0]:loc[1]])
		body := strings.TrimSuffix(m[2], "\n")
		segments = append(segments, Segment{
			Kind:    KindCode,
			Content: "```\n" + Escape(body) + "\n```",
		})

		last = loc[1]
	}
	appendText(raw[last:])

	return segments
}
