// Package history records correction attempts so therapists can review a
// child's progress across sessions.
//
// Two implementations exist: an in-memory ring ([NewMemStore]) for
// development and single-node deployments, and a PostgreSQL store
// (subpackage postgres) for anything persistent. Both satisfy [Store].
package history

import (
	"context"
	"time"

	"github.com/zgraper/phonemefix/internal/rules"
)

// Attempt is one recorded pipeline run.
type Attempt struct {
	// ID is assigned by the store on write. Zero until stored.
	ID int64 `json:"id"`

	// RawIPA is the uncorrected transcription, boundary markers included.
	RawIPA string `json:"raw_ipa"`

	// CorrectedIPA is the sequence after rule application.
	CorrectedIPA string `json:"corrected_ipa"`

	// FinalText is the decoded natural-language text.
	FinalText string `json:"final_text"`

	// Expected is the word or phrase the session targeted. Empty when the
	// caller did not supply one.
	Expected string `json:"expected,omitempty"`

	// Score rates FinalText against Expected in [0, 1]. Zero when Expected
	// is empty.
	Score float64 `json:"score"`

	// RulesApplied echoes the rule configuration that governed the run,
	// exactly as the caller supplied it.
	RulesApplied rules.Set `json:"rules_applied"`

	// EnabledRules names the switches that were enabled, in canonical order.
	EnabledRules []string `json:"enabled_rules"`

	// CreatedAt is when the attempt was recorded.
	CreatedAt time.Time `json:"created_at"`
}

// Store persists correction attempts. Implementations must be safe for
// concurrent use.
type Store interface {
	// Write records an attempt and returns it with ID and CreatedAt set.
	Write(ctx context.Context, a Attempt) (Attempt, error)

	// Recent returns up to limit attempts, newest first.
	Recent(ctx context.Context, limit int) ([]Attempt, error)

	// Ping reports whether the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close()
}
