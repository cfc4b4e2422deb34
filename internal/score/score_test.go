package score_test

import (
	"testing"

	"github.com/zgraper/phonemefix/internal/score"
)

func TestAttempt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		decoded  string
		expected string
		min, max float64
	}{
		{
			name:     "exact match",
			decoded:  "rabbit",
			expected: "rabbit",
			min:      1.0, max: 1.0,
		},
		{
			name:     "case insensitive",
			decoded:  "Rabbit",
			expected: "rabbit",
			min:      1.0, max: 1.0,
		},
		{
			name:     "homophone scores high",
			decoded:  "their",
			expected: "there",
			min:      0.5, max: 0.95,
		},
		{
			name:     "near miss scores above half",
			decoded:  "wabbit",
			expected: "rabbit",
			min:      0.5, max: 0.99,
		},
		{
			name:     "unrelated word scores low",
			decoded:  "xylophone",
			expected: "sun",
			min:      0.0, max: 0.4,
		},
		{
			name:     "empty expected is unscored",
			decoded:  "rabbit",
			expected: "",
			min:      0.0, max: 0.0,
		},
		{
			name:     "empty decoded scores zero",
			decoded:  "",
			expected: "rabbit",
			min:      0.0, max: 0.0,
		},
		{
			name:     "multi word exact",
			decoded:  "the rabbit",
			expected: "the rabbit",
			min:      1.0, max: 1.0,
		},
		{
			name:     "missing word halves the score",
			decoded:  "the",
			expected: "the rabbit",
			min:      0.4, max: 0.6,
		},
		{
			name:     "extra word dilutes the score",
			decoded:  "the big rabbit",
			expected: "the rabbit",
			min:      0.3, max: 0.9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := score.Attempt(tt.decoded, tt.expected)
			if got < tt.min || got > tt.max {
				t.Errorf("Attempt(%q, %q) = %v, want in [%v, %v]",
					tt.decoded, tt.expected, got, tt.min, tt.max)
			}
		})
	}
}

func TestAttemptBounded(t *testing.T) {
	t.Parallel()

	pairs := [][2]string{
		{"a", "completely different phrase with many words"},
		{"completely different phrase with many words", "a"},
		{"ʃʃʃ", "sss"},
	}
	for _, p := range pairs {
		got := score.Attempt(p[0], p[1])
		if got < 0 || got > 1 {
			t.Errorf("Attempt(%q, %q) = %v, want in [0, 1]", p[0], p[1], got)
		}
	}
}

func TestAttemptOrderIndependentForExact(t *testing.T) {
	t.Parallel()

	a := score.Attempt("sun shine", "sun shine")
	b := score.Attempt("shine sun", "sun shine")
	if a <= b {
		t.Errorf("in-order score %v should beat out-of-order score %v", a, b)
	}
}
