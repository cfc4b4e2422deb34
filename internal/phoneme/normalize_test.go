package phoneme_test

import (
	"testing"

	"github.com/zgraper/phonemefix/internal/phoneme"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   phoneme.Sequence
		want phoneme.Sequence
	}{
		{
			name: "aspirated stop collapses",
			in:   phoneme.Sequence{"tʰ", "ɪ", "n"},
			want: phoneme.Sequence{"t", "ɪ", "n"},
		},
		{
			name: "stress and length marks stripped",
			in:   phoneme.Sequence{"ˈs", "ʌː", "ˌn"},
			want: phoneme.Sequence{"s", "ʌ", "n"},
		},
		{
			name: "syllabic consonant collapses",
			in:   phoneme.Sequence{"b", "ʌ", "t", "n̩"},
			want: phoneme.Sequence{"b", "ʌ", "t", "n"},
		},
		{
			name: "nasalisation mark deleted",
			in:   phoneme.Sequence{"æ̃", "m"},
			want: phoneme.Sequence{"æ", "m"},
		},
		{
			name: "r-coloured schwa collapses",
			in:   phoneme.Sequence{"ɚ"},
			want: phoneme.Sequence{"ə"},
		},
		{
			name: "unknown symbols pass through",
			in:   phoneme.Sequence{"ʘ", "x", "??"},
			want: phoneme.Sequence{"ʘ", "x", "??"},
		},
		{
			name: "bare diacritic token is dropped",
			in:   phoneme.Sequence{"ˈ", "s"},
			want: phoneme.Sequence{"s"},
		},
		{
			name: "empty sequence",
			in:   phoneme.Sequence{},
			want: phoneme.Sequence{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := phoneme.Normalize(tc.in)
			if got.String() != tc.want.String() {
				t.Errorf("Normalize(%v): got %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

// Normalisation must preserve token count whenever no token strips to empty.
func TestNormalizePreservesTokenCount(t *testing.T) {
	t.Parallel()

	in := phoneme.Sequence{"tʰ", "ˈɪ", "nː", "ɚ", "k", "ʘ"}
	got := phoneme.Normalize(in)
	if len(got) != len(in) {
		t.Errorf("Normalize: got %d tokens, want %d", len(got), len(in))
	}
}

// Applying the table twice must change nothing: each replacement is
// idempotent and no output re-triggers another entry.
func TestNormalizeIdempotent(t *testing.T) {
	t.Parallel()

	in := phoneme.Sequence{"tʰ", "ˈɪ", "n̩", "ɚ", "ɫ", "æ̃"}
	once := phoneme.Normalize(in)
	twice := phoneme.Normalize(once)
	if once.String() != twice.String() {
		t.Errorf("Normalize not idempotent: once=%v twice=%v", once, twice)
	}
}

func TestNormalizePreservesOrder(t *testing.T) {
	t.Parallel()

	in := phoneme.Sequence{"s", "tʰ", "ɑ", "ˈp"}
	got := phoneme.Normalize(in)
	want := "s t ɑ p"
	if got.String() != want {
		t.Errorf("Normalize: got %q, want %q", got.String(), want)
	}
}
