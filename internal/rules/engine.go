package rules

import "github.com/zgraper/phonemefix/internal/phoneme"

// Apply rewrites seq according to cfg and returns the corrected sequence.
// The input is never mutated.
//
// Three phases run in order, each a single left-to-right pass:
//
//  1. Substitution: gliding then stopping checks against a single mutable
//     token slot, with one token of lookahead for the gliding vowel context.
//  2. Cluster re-insertion (only when cfg.ClusterReduction is set): an "s"
//     is inserted before every "p" whose immediately preceding emitted token
//     is neither "s" nor a boundary marker.
//  3. Repeat collapsing: immediately repeated identical tokens merge into
//     one. Boundary markers are exempt.
//
// Boundary markers are never created, deleted, reordered, or rewritten here;
// their count and relative order in the output always equal the input's.
// Output length may differ from input length through phases 2 and 3, but
// retained tokens keep their relative order.
func Apply(seq phoneme.Sequence, cfg Set) phoneme.Sequence {
	// A nil group behaves as all-disabled so a zero Set is a usable no-op.
	if cfg.Gliding == nil {
		cfg.Gliding = &Gliding{}
	}
	if cfg.Stopping == nil {
		cfg.Stopping = &Stopping{}
	}

	out := applySubstitutions(seq, cfg)
	if cfg.ClusterReduction {
		out = restoreClusters(out)
	}
	return CollapseRepeats(out)
}

// applySubstitutions runs the gliding and stopping checks over seq. The
// checks are independent per rule family but share one mutable slot per
// position: the gliding check runs first and the stopping checks apply to
// whatever symbol then occupies the slot. This evaluation order is load-
// bearing — a rewrite by one family may satisfy another family's trigger in
// the same pass, and that chained behaviour is pinned by tests rather than
// "fixed".
func applySubstitutions(seq phoneme.Sequence, cfg Set) phoneme.Sequence {
	out := make(phoneme.Sequence, 0, len(seq))
	for i, tok := range seq {
		if tok == phoneme.Boundary {
			out = append(out, tok)
			continue
		}

		cur := tok

		// Gliding: requires a vowel in the lookahead slot. A boundary in the
		// lookahead slot is not a vowel, so it blocks the rewrite.
		if cur == "w" && i+1 < len(seq) && phoneme.IsVowel(seq[i+1]) {
			switch {
			case cfg.Gliding.LToW:
				cur = "l"
			case cfg.Gliding.WToR || cfg.Gliding.RToW:
				cur = "ɹ"
			}
		}

		// Stopping: applies to the current slot content, post-gliding.
		if cur == "t" && cfg.Stopping.SToT {
			cur = "s"
		}
		if cur == "d" && cfg.Stopping.ZToD {
			cur = "z"
		}

		out = append(out, cur)
	}
	return out
}

// restoreClusters re-inserts the /s/ of a reduced /s/+stop cluster: an "s"
// is emitted before every "p" unless the previous emitted token is already
// "s", is a boundary marker, or does not exist (sequence-initial "p").
// Only "p" onsets are handled; this is a deliberately narrow heuristic, not
// general cluster restoration.
func restoreClusters(seq phoneme.Sequence) phoneme.Sequence {
	out := make(phoneme.Sequence, 0, len(seq)+2)
	for _, tok := range seq {
		if tok == "p" && len(out) > 0 {
			prev := out[len(out)-1]
			if prev != "s" && prev != phoneme.Boundary {
				out = append(out, "s")
			}
		}
		out = append(out, tok)
	}
	return out
}

// CollapseRepeats merges immediately repeated identical tokens into one.
// Boundary markers are never collapsed, even when adjacent — repeated
// boundaries are preserved rather than merged. CollapseRepeats is
// idempotent.
func CollapseRepeats(seq phoneme.Sequence) phoneme.Sequence {
	out := make(phoneme.Sequence, 0, len(seq))
	for _, tok := range seq {
		if tok != phoneme.Boundary && len(out) > 0 && out[len(out)-1] == tok {
			continue
		}
		out = append(out, tok)
	}
	return out
}
