package phoneme

// InsertBoundaries approximates word/syllable edges in a flat token sequence
// by inserting a [Boundary] marker after every vowel or nasal that is
// immediately followed by a voiceless stop. Voiceless stops frequently begin
// a new syllable after a sonorant, so this gives the decoder usable edge
// hints without true phonological parsing.
//
// The scan is greedy and single-pass: each insertion depends only on the
// (token[i], token[i+1]) pair, never on previously inserted boundaries. No
// boundary is ever inserted after the final token, and sequences of length
// ≤ 1 are returned unchanged.
func InsertBoundaries(seq Sequence) Sequence {
	if len(seq) <= 1 {
		return seq
	}

	out := make(Sequence, 0, len(seq)+len(seq)/4)
	for i, tok := range seq[:len(seq)-1] {
		out = append(out, tok)
		if IsSonorant(tok) && IsVoicelessStop(seq[i+1]) {
			out = append(out, Boundary)
		}
	}
	out = append(out, seq[len(seq)-1])
	return out
}
