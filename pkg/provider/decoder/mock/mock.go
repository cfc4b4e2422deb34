// Package mock provides a canned [decoder.Provider] for tests.
package mock

import (
	"context"
	"sync"

	"github.com/zgraper/phonemefix/pkg/provider/decoder"
)

// Compile-time interface assertion.
var _ decoder.Provider = (*Provider)(nil)

// Provider returns a fixed text (or error) from Decode and records every
// call. Safe for concurrent use.
type Provider struct {
	// Text is returned by every Decode call when Err is nil.
	Text string

	// Err, when non-nil, is returned by every Decode call.
	Err error

	// Model is returned by ModelID. Defaults to "mock" when empty.
	Model string

	mu    sync.Mutex
	calls []string
}

// Decode implements [decoder.Provider].
func (p *Provider) Decode(ctx context.Context, ipa string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	p.calls = append(p.calls, ipa)
	p.mu.Unlock()
	if p.Err != nil {
		return "", p.Err
	}
	return p.Text, nil
}

// ModelID implements [decoder.Provider].
func (p *Provider) ModelID() string {
	if p.Model == "" {
		return "mock"
	}
	return p.Model
}

// Calls returns a copy of every IPA string passed to Decode so far.
func (p *Provider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.calls))
	copy(out, p.calls)
	return out
}
