// Package wav2vec provides a [transcriber.Provider] backed by a phoneme-CTC
// model server (e.g. wav2vec2-lv-60-espeak-cv-ft behind a REST inference
// endpoint at POST /transcribe).
//
// The provider encodes one utterance of PCM audio as a WAV file, submits it
// as multipart/form-data, and returns the phoneme string from the JSON
// response. It performs no streaming: phoneme CTC inference is a batch
// operation over one clip.
//
// Usage:
//
//	p, err := wav2vec.New("http://localhost:9090",
//	    wav2vec.WithModel("facebook/wav2vec2-lv-60-espeak-cv-ft"),
//	)
//	phonemes, err := p.Transcribe(ctx, pcm)
package wav2vec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/zgraper/phonemefix/pkg/audio"
	"github.com/zgraper/phonemefix/pkg/provider/transcriber"
)

const defaultTimeout = 30 * time.Second

// Compile-time assertion that Provider implements transcriber.Provider.
var _ transcriber.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the model identifier forwarded to the server. When empty
// the server uses whichever model it was started with — this is the default.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithTimeout sets the HTTP client timeout for inference requests.
// Defaults to 30s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the HTTP client entirely. Useful for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements transcriber.Provider against a phoneme-CTC model
// server. Safe for concurrent use; every Transcribe call is independent.
type Provider struct {
	serverURL  string
	model      string
	httpClient *http.Client
}

// New creates a Provider for the model server at serverURL (e.g.
// "http://localhost:9090"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("wav2vec: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:  strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe implements [transcriber.Provider]. The PCM buffer is wrapped
// in a WAV container and POSTed to /transcribe as multipart/form-data; the
// response is JSON: {"phonemes": "..."}.
func (p *Provider) Transcribe(ctx context.Context, pcm audio.PCM) (string, error) {
	wav := audio.EncodeWAV(pcm)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "utterance.wav")
	if err != nil {
		return "", fmt.Errorf("wav2vec: create form file: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return "", fmt.Errorf("wav2vec: write wav data: %w", err)
	}
	if p.model != "" {
		if err := mw.WriteField("model", p.model); err != nil {
			return "", fmt.Errorf("wav2vec: write model field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("wav2vec: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+"/transcribe", &body)
	if err != nil {
		return "", fmt.Errorf("wav2vec: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("wav2vec: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("wav2vec: server returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("wav2vec: read response body: %w", err)
	}

	var result struct {
		Phonemes string `json:"phonemes"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("wav2vec: parse JSON response: %w", err)
	}
	return strings.TrimSpace(result.Phonemes), nil
}

// ModelID implements [transcriber.Provider].
func (p *Provider) ModelID() string {
	return p.model
}
