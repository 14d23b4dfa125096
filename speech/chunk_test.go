package speech

import (
	"strings"
	"testing"
)

func TestChunkTextSmallInput(t *testing.T) {
	got := ChunkText("Hello world.", 100)
	if len(got) != 1 || got[0] != "Hello world." {
		t.Errorf("ChunkText() = %v, want single original chunk", got)
	}
}

func TestChunkTextEmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t "} {
		if got := ChunkText(input, 100); got != nil {
			t.Errorf("ChunkText(%q) = %v, want nil", input, got)
		}
	}
}

func TestChunkTextPrefersSentenceBoundary(t *testing.T) {
	got := ChunkText("One two. Three four.", 10)
	want := []string{"One two.", "Three", "four."}
	if len(got) != len(want) {
		t.Fatalf("ChunkText() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestChunkTextWordBoundaryFallback(t *testing.T) {
	// No sentence terminators at all; cuts must land on spaces.
	got := ChunkText("alpha beta gamma delta epsilon", 12)
	for i, c := range got {
		if strings.Contains(strings.TrimSpace(c), "  ") {
			t.Errorf("chunk %d contains doubled spaces: %q", i, c)
		}
		if len(c) > 12 {
			t.Errorf("chunk %d exceeds max: %q", i, c)
		}
	}
}

func TestChunkTextUnbreakableRun(t *testing.T) {
	long := strings.Repeat("x", 25)
	got := ChunkText(long, 10)
	// A single token longer than the window is cut mid-word.
	if len(got) != 3 {
		t.Fatalf("got %d chunks, want 3: %v", len(got), got)
	}
	if got[0] != strings.Repeat("x", 10) {
		t.Errorf("first chunk = %q, want 10 x's", got[0])
	}
}

func TestChunkTextRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
	}{
		{"sentences", "First sentence. Second one! Third? Fourth goes on for a while.", 20},
		{"words only", "one two three four five six seven eight nine ten", 12},
		{"mixed", strings.Repeat("Some sentences here. And more text follows without stop ", 40), 100},
		{"hard cuts", strings.Repeat("y", 95), 10},
	}

	strip := func(s string) string {
		return strings.Join(strings.Fields(s), "")
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := ChunkText(tt.text, tt.max)
			if strip(strings.Join(chunks, " ")) != strip(tt.text) {
				t.Errorf("chunks do not reconstruct input")
			}
			for i, c := range chunks {
				if len(c) > tt.max && strings.ContainsAny(c, " ") {
					t.Errorf("chunk %d longer than %d despite containing a boundary: %q", i, tt.max, c)
				}
				if strings.TrimSpace(c) == "" {
					t.Errorf("chunk %d is empty", i)
				}
			}
		})
	}
}
