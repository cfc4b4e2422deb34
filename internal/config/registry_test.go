package config_test

import (
	"errors"
	"testing"

	"github.com/zgraper/phonemefix/internal/config"
	"github.com/zgraper/phonemefix/pkg/provider/decoder"
	decodermock "github.com/zgraper/phonemefix/pkg/provider/decoder/mock"
	"github.com/zgraper/phonemefix/pkg/provider/transcriber"
	transcribermock "github.com/zgraper/phonemefix/pkg/provider/transcriber/mock"
)

func TestRegistryCreateTranscriber(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	reg.RegisterTranscriber("mock", func(entry config.ProviderEntry) (transcriber.Provider, error) {
		return &transcribermock.Provider{Model: entry.Model}, nil
	})

	p, err := reg.CreateTranscriber(config.ProviderEntry{Name: "mock", Model: "test-ctc"})
	if err != nil {
		t.Fatalf("CreateTranscriber: %v", err)
	}
	if p.ModelID() != "test-ctc" {
		t.Errorf("ModelID = %q, want test-ctc", p.ModelID())
	}
}

func TestRegistryCreateDecoder(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	reg.RegisterDecoder("mock", func(entry config.ProviderEntry) (decoder.Provider, error) {
		return &decodermock.Provider{Model: entry.Model}, nil
	})

	p, err := reg.CreateDecoder(config.ProviderEntry{Name: "mock", Model: "t5-test"})
	if err != nil {
		t.Fatalf("CreateDecoder: %v", err)
	}
	if p.ModelID() != "t5-test" {
		t.Errorf("ModelID = %q, want t5-test", p.ModelID())
	}
}

func TestRegistryUnregisteredProvider(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()

	if _, err := reg.CreateTranscriber(config.ProviderEntry{Name: "nope"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateTranscriber: got %v, want ErrProviderNotRegistered", err)
	}
	if _, err := reg.CreateDecoder(config.ProviderEntry{Name: "nope"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateDecoder: got %v, want ErrProviderNotRegistered", err)
	}
}

func TestRegistryOverwrite(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	reg.RegisterDecoder("mock", func(config.ProviderEntry) (decoder.Provider, error) {
		return &decodermock.Provider{Model: "first"}, nil
	})
	reg.RegisterDecoder("mock", func(config.ProviderEntry) (decoder.Provider, error) {
		return &decodermock.Provider{Model: "second"}, nil
	})

	p, err := reg.CreateDecoder(config.ProviderEntry{Name: "mock"})
	if err != nil {
		t.Fatalf("CreateDecoder: %v", err)
	}
	if p.ModelID() != "second" {
		t.Errorf("ModelID = %q, want second (later registration wins)", p.ModelID())
	}
}
