// Package transcriber defines the Provider interface for phoneme
// transcription backends.
//
// A transcriber wraps an external acoustic model server (e.g. a wav2vec2
// phoneme-CTC model behind an HTTP inference endpoint) and converts one
// utterance of PCM audio into a whitespace-delimited string of espeak-style
// IPA symbols. The correction pipeline treats this as a black box: it owns
// no acoustic modeling, only the contract.
//
// Implementations must be safe for concurrent use — multiple requests may
// transcribe simultaneously.
package transcriber

import (
	"context"

	"github.com/zgraper/phonemefix/pkg/audio"
)

// Provider is the abstraction over any phoneme transcription backend.
type Provider interface {
	// Transcribe converts one utterance of mono 16-bit PCM audio into a
	// whitespace-delimited raw phoneme string in the recogniser's
	// espeak-influenced inventory. The returned string may contain
	// recogniser-specific diacritic noise; normalisation is the caller's
	// job.
	//
	// Returns an error when the backend is unreachable, rejects the audio,
	// or ctx is cancelled. An empty transcription with a nil error is a
	// valid result (silence).
	Transcribe(ctx context.Context, pcm audio.PCM) (string, error)

	// ModelID identifies the acoustic model in use, echoed back to callers
	// for auditability (e.g. "facebook/wav2vec2-lv-60-espeak-cv-ft").
	ModelID() string
}
