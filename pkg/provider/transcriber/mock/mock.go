// Package mock provides a canned [transcriber.Provider] for tests.
package mock

import (
	"context"
	"sync"

	"github.com/zgraper/phonemefix/pkg/audio"
	"github.com/zgraper/phonemefix/pkg/provider/transcriber"
)

// Compile-time interface assertion.
var _ transcriber.Provider = (*Provider)(nil)

// Provider returns a fixed phoneme string (or error) from Transcribe and
// records every call. Safe for concurrent use.
type Provider struct {
	// Phonemes is returned by every Transcribe call when Err is nil.
	Phonemes string

	// Err, when non-nil, is returned by every Transcribe call.
	Err error

	// Model is returned by ModelID. Defaults to "mock" when empty.
	Model string

	mu    sync.Mutex
	calls []audio.PCM
}

// Transcribe implements [transcriber.Provider].
func (p *Provider) Transcribe(ctx context.Context, pcm audio.PCM) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	p.calls = append(p.calls, pcm)
	p.mu.Unlock()
	if p.Err != nil {
		return "", p.Err
	}
	return p.Phonemes, nil
}

// ModelID implements [transcriber.Provider].
func (p *Provider) ModelID() string {
	if p.Model == "" {
		return "mock"
	}
	return p.Model
}

// Calls returns a copy of every PCM buffer passed to Transcribe so far.
func (p *Provider) Calls() []audio.PCM {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]audio.PCM, len(p.calls))
	copy(out, p.calls)
	return out
}
