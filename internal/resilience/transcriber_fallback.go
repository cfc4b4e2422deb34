package resilience

import (
	"context"
	"sync/atomic"

	"github.com/zgraper/phonemefix/pkg/audio"
	"github.com/zgraper/phonemefix/pkg/provider/transcriber"
)

// TranscriberFallback implements [transcriber.Provider] with automatic
// failover across multiple transcription backends. Each backend has its own
// circuit breaker.
type TranscriberFallback struct {
	group *FallbackGroup[transcriber.Provider]

	// lastUsed holds the provider that served the most recent successful
	// call, so ModelID reports the model that actually produced output.
	lastUsed atomic.Pointer[transcriber.Provider]
}

// Compile-time interface assertion.
var _ transcriber.Provider = (*TranscriberFallback)(nil)

// NewTranscriberFallback creates a [TranscriberFallback] with primary as the
// preferred backend.
func NewTranscriberFallback(primary transcriber.Provider, primaryName string, cfg FallbackConfig) *TranscriberFallback {
	f := &TranscriberFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
	f.lastUsed.Store(&primary)
	return f
}

// AddFallback registers an additional transcription provider as a fallback.
func (f *TranscriberFallback) AddFallback(name string, provider transcriber.Provider) {
	f.group.AddFallback(name, provider)
}

// Transcribe runs against the first healthy provider. If the primary fails,
// subsequent fallbacks are tried in order.
func (f *TranscriberFallback) Transcribe(ctx context.Context, pcm audio.PCM) (string, error) {
	return ExecuteWithResult(f.group, func(p transcriber.Provider) (string, error) {
		out, err := p.Transcribe(ctx, pcm)
		if err == nil {
			f.lastUsed.Store(&p)
		}
		return out, err
	})
}

// ModelID returns the model of the provider that served the most recent
// successful call (initially the primary).
func (f *TranscriberFallback) ModelID() string {
	return (*f.lastUsed.Load()).ModelID()
}
