package resilience

import (
	"context"
	"sync/atomic"

	"github.com/zgraper/phonemefix/pkg/provider/decoder"
)

// DecoderFallback implements [decoder.Provider] with automatic failover
// across multiple IPA-to-text backends. Each backend has its own circuit
// breaker.
type DecoderFallback struct {
	group *FallbackGroup[decoder.Provider]

	lastUsed atomic.Pointer[decoder.Provider]
}

// Compile-time interface assertion.
var _ decoder.Provider = (*DecoderFallback)(nil)

// NewDecoderFallback creates a [DecoderFallback] with primary as the
// preferred backend.
func NewDecoderFallback(primary decoder.Provider, primaryName string, cfg FallbackConfig) *DecoderFallback {
	f := &DecoderFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
	f.lastUsed.Store(&primary)
	return f
}

// AddFallback registers an additional decoding provider as a fallback.
func (f *DecoderFallback) AddFallback(name string, provider decoder.Provider) {
	f.group.AddFallback(name, provider)
}

// Decode runs against the first healthy provider. If the primary fails,
// subsequent fallbacks are tried in order.
func (f *DecoderFallback) Decode(ctx context.Context, ipa string) (string, error) {
	return ExecuteWithResult(f.group, func(p decoder.Provider) (string, error) {
		out, err := p.Decode(ctx, ipa)
		if err == nil {
			f.lastUsed.Store(&p)
		}
		return out, err
	})
}

// ModelID returns the model of the provider that served the most recent
// successful call (initially the primary).
func (f *DecoderFallback) ModelID() string {
	return (*f.lastUsed.Load()).ModelID()
}
