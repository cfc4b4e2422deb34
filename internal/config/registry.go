package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zgraper/phonemefix/pkg/provider/decoder"
	"github.com/zgraper/phonemefix/pkg/provider/transcriber"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	transcriber map[string]func(ProviderEntry) (transcriber.Provider, error)
	decoder     map[string]func(ProviderEntry) (decoder.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		transcriber: make(map[string]func(ProviderEntry) (transcriber.Provider, error)),
		decoder:     make(map[string]func(ProviderEntry) (decoder.Provider, error)),
	}
}

// RegisterTranscriber registers a transcription provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterTranscriber(name string, factory func(ProviderEntry) (transcriber.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcriber[name] = factory
}

// RegisterDecoder registers a decoding provider factory under name.
func (r *Registry) RegisterDecoder(name string, factory func(ProviderEntry) (decoder.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoder[name] = factory
}

// CreateTranscriber instantiates a transcription provider using the factory
// registered under entry.Name. Returns [ErrProviderNotRegistered] if no
// factory has been registered for that name.
func (r *Registry) CreateTranscriber(entry ProviderEntry) (transcriber.Provider, error) {
	r.mu.RLock()
	factory, ok := r.transcriber[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: transcriber/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateDecoder instantiates a decoding provider using the factory registered
// under entry.Name.
func (r *Registry) CreateDecoder(entry ProviderEntry) (decoder.Provider, error) {
	r.mu.RLock()
	factory, ok := r.decoder[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: decoder/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
