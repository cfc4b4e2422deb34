package phoneme_test

import (
	"strings"
	"testing"

	"github.com/zgraper/phonemefix/internal/phoneme"
)

func TestInsertBoundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   phoneme.Sequence
		want string
	}{
		{
			name: "nasal before voiceless stop",
			in:   phoneme.Sequence{"n", "t", "ɑ"},
			want: "n | t ɑ",
		},
		{
			name: "vowel before voiceless stop",
			in:   phoneme.Sequence{"æ", "p", "l"},
			want: "æ | p l",
		},
		{
			name: "no trigger pair",
			in:   phoneme.Sequence{"s", "ʌ", "n"},
			want: "s ʌ n",
		},
		{
			name: "multiple boundaries",
			in:   phoneme.Sequence{"æ", "t", "ə", "k", "m", "p"},
			want: "æ | t ə | k m | p",
		},
		{
			name: "no boundary after final token",
			in:   phoneme.Sequence{"t", "æ"},
			want: "t æ",
		},
		{
			name: "single token unchanged",
			in:   phoneme.Sequence{"æ"},
			want: "æ",
		},
		{
			name: "empty unchanged",
			in:   phoneme.Sequence{},
			want: "",
		},
		{
			name: "obstruent before stop does not trigger",
			in:   phoneme.Sequence{"s", "t", "ɑ", "p"},
			want: "s t ɑ | p",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := phoneme.InsertBoundaries(tc.in)
			if got.String() != tc.want {
				t.Errorf("InsertBoundaries(%v): got %q, want %q", tc.in, got.String(), tc.want)
			}
		})
	}
}

// Output length must equal input length plus the number of inserted markers,
// and the final token must never be a marker the segmenter added.
func TestInsertBoundariesLengthInvariant(t *testing.T) {
	t.Parallel()

	in := phoneme.Sequence{"æ", "t", "ə", "k", "m", "p", "t"}
	got := phoneme.InsertBoundaries(in)

	inserted := strings.Count(got.String(), phoneme.Boundary)
	if len(got) != len(in)+inserted {
		t.Errorf("length: got %d, want %d + %d inserted", len(got), len(in), inserted)
	}
	if got[len(got)-1] == phoneme.Boundary {
		t.Error("segmenter inserted a boundary after the final token")
	}

	// All original tokens survive in order.
	var kept phoneme.Sequence
	for _, tok := range got {
		if tok != phoneme.Boundary {
			kept = append(kept, tok)
		}
	}
	if kept.String() != in.String() {
		t.Errorf("non-boundary tokens: got %q, want %q", kept.String(), in.String())
	}
}
