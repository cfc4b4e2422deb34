// Package decoder defines the Provider interface for IPA-to-text decoding
// backends.
//
// A decoder wraps an external sequence-to-sequence capability that maps a
// whitespace-delimited corrected IPA token string to natural-language text.
// Two implementations ship with phonemefix: a seq2seq model server client
// (T5-style, beam search) and an LLM-prompt decoder. The correction
// pipeline treats both as black boxes.
//
// Implementations must be safe for concurrent use.
package decoder

import "context"

// Provider is the abstraction over any IPA-to-text decoding backend.
type Provider interface {
	// Decode maps a whitespace-delimited IPA token string (post-correction,
	// possibly containing "|" boundary markers) to natural-language text.
	//
	// Returns an error when the backend is unreachable or ctx is cancelled.
	Decode(ctx context.Context, ipa string) (string, error)

	// ModelID identifies the decoding model in use, echoed back to callers
	// for auditability (e.g. "zanegraper/t5-small-ipa-phoneme-to-text").
	ModelID() string
}
