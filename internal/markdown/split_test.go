package markdown

import (
	"strings"
	"testing"
)

func TestSplit_ShortTextSinglePiece(t *testing.T) {
	got := Split("hello", DefaultChunkLimit)
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("Split = %q, want [hello]", got)
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	got := Split("", DefaultChunkLimit)
	if len(got) != 1 || got[0] != "" {
		t.Fatalf("Split(\"\") = %q, want one empty chunk", got)
	}
}

// Concatenating the chunks must reproduce the input byte for byte.
func TestSplit_RoundTrip(t *testing.T) {
	inputs := []string{
		strings.Repeat("a", 10001),
		strings.Repeat("word ", 3000),
		strings.Repeat("line\n", 2500),
		strings.Repeat("Sentence one. Sentence two. ", 500),
		strings.Repeat("日本語のテキスト", 1000),
		strings.Repeat("mixed 混合 content\n\n", 800),
	}
	for _, max := range []int{1, 2, 7, 100, 4000} {
		for i, in := range inputs {
			chunks := Split(in, max)
			if len(chunks) == 0 {
				t.Fatalf("input %d max %d: no chunks", i, max)
			}
			if got := strings.Join(chunks, ""); got != in {
				t.Fatalf("input %d max %d: round trip failed (len %d vs %d)", i, max, len(got), len(in))
			}
		}
	}
}

func TestSplit_ChunkLengthBound(t *testing.T) {
	in := strings.Repeat("abcdefgh ", 2000)
	for _, max := range []int{50, 1000, 4000} {
		for i, c := range Split(in, max) {
			if len(c) > max {
				t.Errorf("max %d: chunk %d has length %d", max, i, len(c))
			}
		}
	}
}

// A paragraph break after the midpoint and before the limit is chosen exactly.
func TestSplit_ParagraphBoundary(t *testing.T) {
	in := strings.Repeat("a", 3000) + "\n\n" + strings.Repeat("b", 2000)
	chunks := Split(in, 4000)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2: lengths %v", len(chunks), chunkLens(chunks))
	}
	if chunks[0] != strings.Repeat("a", 3000)+"\n\n" {
		t.Errorf("first chunk does not end at the paragraph break (len %d)", len(chunks[0]))
	}
	if chunks[1] != strings.Repeat("b", 2000) {
		t.Errorf("second chunk wrong (len %d)", len(chunks[1]))
	}
}

// Paragraph beats line beats sentence beats word, regardless of position.
func TestSplit_BoundaryPreference(t *testing.T) {
	a2500 := strings.Repeat("a", 2500)

	tests := []struct {
		name    string
		in      string
		wantCut int // length of first chunk
	}{
		{
			"paragraph over later newline",
			strings.Repeat("a", 2100) + "\n\n" + strings.Repeat("b", 1700) + "\n" + strings.Repeat("c", 1000),
			2102,
		},
		{
			"newline over later sentence",
			a2500 + "\n" + strings.Repeat("b", 1000) + ". " + strings.Repeat("c", 1000),
			2501,
		},
		{
			"sentence over later space",
			a2500 + ". " + strings.Repeat("b", 1000) + " " + strings.Repeat("c", 1000),
			2502,
		},
		{
			"space as last natural resort",
			a2500 + " " + strings.Repeat("b", 2500),
			2501,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Split(tt.in, 4000)
			if len(chunks[0]) != tt.wantCut {
				t.Errorf("first chunk length = %d, want %d", len(chunks[0]), tt.wantCut)
			}
			if strings.Join(chunks, "") != tt.in {
				t.Error("round trip failed")
			}
		})
	}
}

// Boundaries in the first half of the window are rejected; the hard cut wins.
func TestSplit_EarlyBoundaryRejected(t *testing.T) {
	in := strings.Repeat("a", 1000) + "\n\n" + strings.Repeat("b", 4000)
	chunks := Split(in, 4000)
	if len(chunks[0]) != 4000 {
		t.Errorf("first chunk length = %d, want hard cut at 4000", len(chunks[0]))
	}
}

func TestSplit_NoBoundaryHardCut(t *testing.T) {
	in := strings.Repeat("x", 9000)
	chunks := Split(in, 4000)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if len(chunks[0]) != 4000 || len(chunks[1]) != 4000 || len(chunks[2]) != 1000 {
		t.Errorf("chunk lengths = %v", chunkLens(chunks))
	}
}

// The hard cut must not tear a multibyte rune.
func TestSplit_HardCutRuneSafe(t *testing.T) {
	in := strings.Repeat("汉", 3000) // 3 bytes each, no natural boundaries
	chunks := Split(in, 4000)
	if strings.Join(chunks, "") != in {
		t.Fatal("round trip failed")
	}
	for i, c := range chunks {
		if len(c) > 4000 {
			t.Errorf("chunk %d length %d exceeds max", i, len(c))
		}
		if !strings.HasPrefix(c, "汉") {
			t.Errorf("chunk %d starts mid-rune", i)
		}
	}
}

func chunkLens(chunks []string) []int {
	lens := make([]int, len(chunks))
	for i, c := range chunks {
		lens[i] = len(c)
	}
	return lens
}
