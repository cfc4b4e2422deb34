// Package phoneme provides the IPA token model shared by every stage of the
// correction pipeline: tokenisation, the static symbol classification tables,
// recogniser-output normalisation, and the heuristic boundary segmenter.
//
// A phoneme sequence is an ordered list of atomic IPA symbols produced by
// splitting a whitespace-delimited recogniser string. The reserved marker
// [Boundary] denotes an approximate word/syllable edge; it partitions the
// sequence but carries no phonological content and is never transformed by
// any stage.
//
// All functions in this package are pure and all package-level tables are
// read-only after initialisation, so everything here is safe for concurrent
// use without locking.
package phoneme

import "strings"

// Boundary is the reserved token marking an approximate word/syllable edge.
const Boundary = "|"

// Sequence is an ordered sequence of IPA tokens. Order encodes temporal
// phonetic order and is always preserved by pipeline stages.
type Sequence []string

// Tokenize splits a whitespace-delimited phoneme string into a [Sequence].
// An empty or all-whitespace string yields an empty sequence.
func Tokenize(s string) Sequence {
	return Sequence(strings.Fields(s))
}

// String joins the sequence back into a whitespace-delimited phoneme string.
func (s Sequence) String() string {
	return strings.Join([]string(s), " ")
}

// Clone returns a copy of the sequence that shares no backing storage with s.
func (s Sequence) Clone() Sequence {
	out := make(Sequence, len(s))
	copy(out, s)
	return out
}

// Static symbol classification tables. The vowel inventory is the reduced
// espeak-influenced set the upstream recogniser emits after normalisation;
// ɛ and ɔ are included because the gliding rules test vowel contexts that
// contain them.
var (
	vowels = map[string]struct{}{
		"a": {}, "e": {}, "i": {}, "o": {}, "u": {},
		"æ": {}, "ɛ": {}, "ɪ": {}, "ɔ": {}, "ʊ": {}, "ʌ": {}, "ə": {},
	}

	nasals = map[string]struct{}{
		"n": {}, "m": {},
	}

	voicelessStops = map[string]struct{}{
		"p": {}, "t": {}, "k": {},
	}
)

// IsVowel reports whether tok is a vowel symbol. The boundary marker is
// never a vowel.
func IsVowel(tok string) bool {
	_, ok := vowels[tok]
	return ok
}

// IsNasal reports whether tok is a nasal consonant symbol.
func IsNasal(tok string) bool {
	_, ok := nasals[tok]
	return ok
}

// IsVoicelessStop reports whether tok is a voiceless stop symbol.
func IsVoicelessStop(tok string) bool {
	_, ok := voicelessStops[tok]
	return ok
}

// IsSonorant reports whether tok is a vowel or a nasal. This is the left-hand
// class the boundary segmenter tests.
func IsSonorant(tok string) bool {
	return IsVowel(tok) || IsNasal(tok)
}
