// Package seq2seq provides a [decoder.Provider] backed by a
// sequence-to-sequence model server (e.g. a T5 IPA→text model behind a REST
// inference endpoint at POST /decode).
//
// Decoding runs beam search with a small beam width and a bounded maximum
// output length; both knobs are forwarded to the server on every request.
//
// Usage:
//
//	p, err := seq2seq.New("http://localhost:9091",
//	    seq2seq.WithModel("zanegraper/t5-small-ipa-phoneme-to-text"),
//	    seq2seq.WithBeamWidth(4),
//	    seq2seq.WithMaxLength(64),
//	)
//	text, err := p.Decode(ctx, "l æ b ɪ t")
package seq2seq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zgraper/phonemefix/pkg/provider/decoder"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultBeamWidth = 4
	defaultMaxLength = 64
)

// Compile-time assertion that Provider implements decoder.Provider.
var _ decoder.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the model identifier forwarded to the server. When empty
// the server uses whichever model it was started with — this is the default.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithBeamWidth sets the beam search width forwarded to the server.
// Defaults to 4.
func WithBeamWidth(n int) Option {
	return func(p *Provider) {
		p.beamWidth = n
	}
}

// WithMaxLength sets the maximum output length (in model tokens) forwarded
// to the server. Defaults to 64.
func WithMaxLength(n int) Option {
	return func(p *Provider) {
		p.maxLength = n
	}
}

// WithTimeout sets the HTTP client timeout for decode requests.
// Defaults to 30s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// Provider implements decoder.Provider against a seq2seq model server.
// Safe for concurrent use.
type Provider struct {
	serverURL  string
	model      string
	beamWidth  int
	maxLength  int
	httpClient *http.Client
}

// New creates a Provider for the model server at serverURL (e.g.
// "http://localhost:9091"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("seq2seq: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:  strings.TrimRight(serverURL, "/"),
		beamWidth:  defaultBeamWidth,
		maxLength:  defaultMaxLength,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// decodeRequest is the JSON body sent to the model server.
type decodeRequest struct {
	IPA       string `json:"ipa"`
	Model     string `json:"model,omitempty"`
	BeamWidth int    `json:"beam_width"`
	MaxLength int    `json:"max_length"`
}

// Decode implements [decoder.Provider].
func (p *Provider) Decode(ctx context.Context, ipa string) (string, error) {
	body, err := json.Marshal(decodeRequest{
		IPA:       ipa,
		Model:     p.model,
		BeamWidth: p.beamWidth,
		MaxLength: p.maxLength,
	})
	if err != nil {
		return "", fmt.Errorf("seq2seq: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+"/decode", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("seq2seq: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("seq2seq: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("seq2seq: server returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("seq2seq: read response body: %w", err)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("seq2seq: parse JSON response: %w", err)
	}
	return strings.TrimSpace(result.Text), nil
}

// ModelID implements [decoder.Provider].
func (p *Provider) ModelID() string {
	return p.model
}
