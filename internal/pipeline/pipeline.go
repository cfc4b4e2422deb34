// Package pipeline orchestrates the full correction flow: WAV audio in,
// corrected text out.
//
// A run proceeds through fixed stages:
//
//  1. Decode the uploaded WAV, downmix to mono, and resample to the
//     transcriber's expected rate.
//  2. Transcribe audio to a raw IPA phoneme string.
//  3. Normalize the phoneme sequence and insert prosodic boundary markers.
//  4. Apply the configured phonological correction rules.
//  5. Decode the corrected IPA back into natural-language text.
//
// Every stage is timed and recorded through [observe.Metrics]. Stage failures
// map to sentinel errors so the HTTP layer can pick status codes without
// string matching.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zgraper/phonemefix/internal/observe"
	"github.com/zgraper/phonemefix/internal/phoneme"
	"github.com/zgraper/phonemefix/internal/rules"
	"github.com/zgraper/phonemefix/pkg/audio"
	"github.com/zgraper/phonemefix/pkg/provider/decoder"
	"github.com/zgraper/phonemefix/pkg/provider/transcriber"
)

// Sentinel errors returned by [Pipeline.Run]. Wrap-aware callers use
// errors.Is to map them to HTTP status codes.
var (
	// ErrBadAudio means the uploaded bytes could not be decoded as WAV audio
	// the pipeline supports.
	ErrBadAudio = errors.New("pipeline: bad audio")

	// ErrTranscriber means the transcription backend failed.
	ErrTranscriber = errors.New("pipeline: transcriber failed")

	// ErrDecoder means the IPA-to-text backend failed.
	ErrDecoder = errors.New("pipeline: decoder failed")
)

// Result is the outcome of one pipeline run.
type Result struct {
	// RawIPA is the normalized, boundary-segmented transcription before any
	// correction rules were applied.
	RawIPA string `json:"raw_ipa"`

	// CorrectedIPA is the phoneme sequence after rule application.
	CorrectedIPA string `json:"corrected_ipa"`

	// FinalText is the natural-language decoding of CorrectedIPA.
	FinalText string `json:"final_text"`

	// RulesApplied echoes the rule configuration exactly as it was received,
	// so the caller can audit what governed the run.
	RulesApplied rules.Set `json:"rules_applied"`

	// EnabledRules names the switches that were enabled, in canonical order.
	// Derived from RulesApplied; convenient for display and metrics.
	EnabledRules []string `json:"enabled_rules"`

	// TranscriberModel identifies the model that produced RawIPA.
	TranscriberModel string `json:"transcriber_model_used"`

	// DecoderModel identifies the model that produced FinalText.
	DecoderModel string `json:"decoder_model_used"`
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMetrics sets the metrics instance used for stage timing. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithTargetSampleRate overrides the sample rate audio is resampled to before
// transcription. Defaults to [audio.TargetSampleRate].
func WithTargetSampleRate(rate int) Option {
	return func(p *Pipeline) {
		p.targetRate = rate
	}
}

// Pipeline runs the correction flow against a transcriber and decoder pair.
// Safe for concurrent use.
type Pipeline struct {
	transcriber transcriber.Provider
	decoder     decoder.Provider
	metrics     *observe.Metrics
	targetRate  int
}

// New creates a Pipeline. Both providers must be non-nil.
func New(t transcriber.Provider, d decoder.Provider, opts ...Option) (*Pipeline, error) {
	if t == nil {
		return nil, errors.New("pipeline: transcriber must not be nil")
	}
	if d == nil {
		return nil, errors.New("pipeline: decoder must not be nil")
	}
	p := &Pipeline{
		transcriber: t,
		decoder:     d,
		targetRate:  audio.TargetSampleRate,
	}
	for _, o := range opts {
		o(p)
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}
	return p, nil
}

// Run executes the full correction flow on wav, a complete WAV file, using
// the given rule configuration. cfg must already be validated.
func (p *Pipeline) Run(ctx context.Context, wav []byte, cfg rules.Set) (*Result, error) {
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "pipeline.run")
	defer span.End()

	res, err := p.run(ctx, wav, cfg)

	p.metrics.PipelineDuration.Record(ctx, time.Since(start).Seconds())
	p.metrics.RecordPipelineRequest(ctx, statusOf(err))
	if err == nil {
		p.metrics.RecordRuleApplications(ctx, res.EnabledRules)
	}
	return res, err
}

func (p *Pipeline) run(ctx context.Context, wav []byte, cfg rules.Set) (*Result, error) {
	pcm, err := audio.DecodeWAV(wav)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadAudio, err)
	}
	pcm = audio.Resample(audio.Mono(pcm), p.targetRate)

	tStart := time.Now()
	raw, err := p.transcriber.Transcribe(ctx, pcm)
	p.metrics.TranscribeDuration.Record(ctx, time.Since(tStart).Seconds())
	if err != nil {
		p.metrics.RecordProviderError(ctx, p.transcriber.ModelID(), "transcriber")
		return nil, fmt.Errorf("%w: %v", ErrTranscriber, err)
	}

	cStart := time.Now()
	seq := phoneme.InsertBoundaries(phoneme.Normalize(phoneme.Tokenize(raw)))
	corrected := rules.Apply(seq, cfg)
	p.metrics.CorrectDuration.Record(ctx, time.Since(cStart).Seconds())

	observe.Logger(ctx).Debug("correction applied",
		"raw_ipa", seq.String(),
		"corrected_ipa", corrected.String(),
		"rules", cfg.Enabled(),
	)

	dStart := time.Now()
	text, err := p.decoder.Decode(ctx, corrected.String())
	p.metrics.DecodeDuration.Record(ctx, time.Since(dStart).Seconds())
	if err != nil {
		p.metrics.RecordProviderError(ctx, p.decoder.ModelID(), "decoder")
		return nil, fmt.Errorf("%w: %v", ErrDecoder, err)
	}

	enabled := cfg.Enabled()
	if enabled == nil {
		// Marshals as [] rather than null.
		enabled = []string{}
	}

	return &Result{
		RawIPA:           seq.String(),
		CorrectedIPA:     corrected.String(),
		FinalText:        text,
		RulesApplied:     cfg,
		EnabledRules:     enabled,
		TranscriberModel: p.transcriber.ModelID(),
		DecoderModel:     p.decoder.ModelID(),
	}, nil
}

// statusOf maps a run outcome to the metrics status attribute.
func statusOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrBadAudio):
		return "bad_audio"
	case errors.Is(err, ErrTranscriber):
		return "transcriber_error"
	case errors.Is(err, ErrDecoder):
		return "decoder_error"
	default:
		return "error"
	}
}
