package phoneme

import "strings"

// replacement is a single substring substitution applied during
// normalisation. Replacements are independent and idempotent: no entry's
// output overlaps another entry's input, so the list order carries no hidden
// coupling.
type replacement struct {
	from, to string
}

// normalizations is the fixed table collapsing recogniser-specific diacritic
// noise to the canonical symbol inventory. The espeak-influenced CTC model
// emits stress marks, length marks, aspiration, syllabic and nasalisation
// diacritics that carry no information for the correction rules.
var normalizations = []replacement{
	{"ˈ", ""},  // primary stress
	{"ˌ", ""},  // secondary stress
	{"ː", ""},  // length mark
	{"ʰ", ""},  // aspiration: tʰ → t
	{"̩", ""},   // syllabic consonant: n̩ → n
	{"̃", ""},   // nasalisation: ɑ̃ → ɑ
	{"˞", ""},  // rhoticity hook
	{"̪", ""},   // dental articulation: t̪ → t
	{"ɚ", "ə"}, // r-coloured schwa → plain schwa
	{"ɫ", "l"}, // velarised lateral → plain lateral
}

// Normalize canonicalises noisy recogniser output one token at a time by
// applying the fixed replacement table. Unrecognised symbols pass through
// unchanged so the pipeline tolerates inventory drift from the acoustic
// collaborator. Token order is preserved; a token that strips to the empty
// string (a bare diacritic) is dropped.
func Normalize(seq Sequence) Sequence {
	out := make(Sequence, 0, len(seq))
	for _, tok := range seq {
		for _, r := range normalizations {
			tok = strings.ReplaceAll(tok, r.from, r.to)
		}
		if tok == "" {
			continue
		}
		out = append(out, tok)
	}
	return out
}
