package resilience_test

import (
	"context"
	"errors"
	"testing"

	"github.com/zgraper/phonemefix/internal/resilience"
	decodermock "github.com/zgraper/phonemefix/pkg/provider/decoder/mock"
)

func TestDecoderFallbackUsesPrimary(t *testing.T) {
	t.Parallel()

	primary := &decodermock.Provider{Text: "rabbit", Model: "primary"}
	backup := &decodermock.Provider{Text: "unused", Model: "backup"}

	f := resilience.NewDecoderFallback(primary, "primary", resilience.FallbackConfig{})
	f.AddFallback("backup", backup)

	got, err := f.Decode(context.Background(), "l æ b ɪ t")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != "rabbit" {
		t.Errorf("Decode = %q, want %q", got, "rabbit")
	}
	if f.ModelID() != "primary" {
		t.Errorf("ModelID = %q, want primary", f.ModelID())
	}
	if len(backup.Calls()) != 0 {
		t.Error("backup must not be called while primary is healthy")
	}
}

func TestDecoderFallbackFailsOver(t *testing.T) {
	t.Parallel()

	primary := &decodermock.Provider{Err: errors.New("down"), Model: "primary"}
	backup := &decodermock.Provider{Text: "rabbit", Model: "backup"}

	f := resilience.NewDecoderFallback(primary, "primary", resilience.FallbackConfig{})
	f.AddFallback("backup", backup)

	got, err := f.Decode(context.Background(), "l æ b ɪ t")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != "rabbit" {
		t.Errorf("Decode = %q, want %q", got, "rabbit")
	}
	if f.ModelID() != "backup" {
		t.Errorf("ModelID = %q, want backup", f.ModelID())
	}
}

func TestDecoderFallbackAllFailed(t *testing.T) {
	t.Parallel()

	primary := &decodermock.Provider{Err: errors.New("down")}
	f := resilience.NewDecoderFallback(primary, "primary", resilience.FallbackConfig{})

	_, err := f.Decode(context.Background(), "s ʌ n")
	if !errors.Is(err, resilience.ErrAllFailed) {
		t.Errorf("Decode: got %v, want ErrAllFailed", err)
	}
}
