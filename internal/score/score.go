// Package score rates a decoded utterance against the word a therapy session
// expected the child to say.
//
// Scoring combines three signals per word pair, taking the strongest:
//
//  1. Exact match (score 1.0).
//  2. Double Metaphone overlap — the words sound alike even when spelled
//     differently (score 0.8).
//  3. Normalised Levenshtein similarity on the letters.
//
// A multi-word utterance is scored pairwise by position and averaged over the
// longer of the two word lists, so missing or extra words drag the score
// down.
package score

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// metaphoneScore is awarded when two words share a Double Metaphone code but
// are not spelled identically.
const metaphoneScore = 0.8

// Attempt rates decoded against expected and returns a value in [0, 1].
// 1.0 means every expected word was decoded exactly. Comparison is
// case-insensitive. When expected is empty the attempt is unscored and 0 is
// returned.
func Attempt(decoded, expected string) float64 {
	decodedWords := strings.Fields(strings.ToLower(decoded))
	expectedWords := strings.Fields(strings.ToLower(expected))

	if len(expectedWords) == 0 {
		return 0
	}
	if len(decodedWords) == 0 {
		return 0
	}

	n := len(expectedWords)
	if len(decodedWords) > n {
		n = len(decodedWords)
	}

	var total float64
	for i := 0; i < n; i++ {
		if i >= len(decodedWords) || i >= len(expectedWords) {
			continue
		}
		total += wordScore(decodedWords[i], expectedWords[i])
	}
	return total / float64(n)
}

// wordScore rates a single decoded word against a single expected word.
func wordScore(decoded, expected string) float64 {
	if decoded == expected {
		return 1.0
	}

	lev := levenshteinScore(decoded, expected)

	if metaphoneMatch(decoded, expected) && metaphoneScore > lev {
		return metaphoneScore
	}
	return lev
}

// metaphoneMatch reports whether any Double Metaphone code of a overlaps with
// any code of b. Empty codes (short or vowel-only words) never match.
func metaphoneMatch(a, b string) bool {
	ap, as := matchr.DoubleMetaphone(a)
	bp, bs := matchr.DoubleMetaphone(b)
	for _, x := range []string{ap, as} {
		if x == "" {
			continue
		}
		if x == bp || (bs != "" && x == bs) {
			return true
		}
	}
	return false
}

// levenshteinScore converts edit distance to a similarity in [0, 1].
func levenshteinScore(a, b string) float64 {
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1.0
	}
	d := matchr.Levenshtein(a, b)
	s := 1.0 - float64(d)/float64(longest)
	if s < 0 {
		return 0
	}
	return s
}
