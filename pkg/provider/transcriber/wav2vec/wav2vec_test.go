package wav2vec_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zgraper/phonemefix/pkg/audio"
	"github.com/zgraper/phonemefix/pkg/provider/transcriber/wav2vec"
)

func testPCM() audio.PCM {
	return audio.PCM{
		Data:       make([]byte, 320),
		SampleRate: 16000,
		Channels:   1,
	}
}

func TestTranscribe(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcribe" {
			t.Errorf("path: got %q, want /transcribe", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method: got %q, want POST", r.Method)
		}

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()

		wav, err := io.ReadAll(f)
		if err != nil {
			t.Fatalf("read file: %v", err)
		}
		if _, err := audio.DecodeWAV(wav); err != nil {
			t.Errorf("uploaded file is not a valid WAV: %v", err)
		}
		if got := r.FormValue("model"); got != "test-ctc" {
			t.Errorf("model field: got %q, want %q", got, "test-ctc")
		}

		json.NewEncoder(w).Encode(map[string]string{"phonemes": " w æ b ɪ t "})
	}))
	defer srv.Close()

	p, err := wav2vec.New(srv.URL, wav2vec.WithModel("test-ctc"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := p.Transcribe(context.Background(), testPCM())
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "w æ b ɪ t" {
		t.Errorf("Transcribe: got %q, want %q", got, "w æ b ɪ t")
	}
	if p.ModelID() != "test-ctc" {
		t.Errorf("ModelID: got %q, want %q", p.ModelID(), "test-ctc")
	}
}

func TestTranscribeServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p, err := wav2vec.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Transcribe(context.Background(), testPCM()); err == nil {
		t.Error("Transcribe: expected error on HTTP 503, got nil")
	}
}

func TestTranscribeMalformedResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "not json")
	}))
	defer srv.Close()

	p, err := wav2vec.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Transcribe(context.Background(), testPCM()); err == nil {
		t.Error("Transcribe: expected error on malformed JSON, got nil")
	}
}

func TestTranscribeContextCancelled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	p, err := wav2vec.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Transcribe(ctx, testPCM()); err == nil {
		t.Error("Transcribe: expected error on cancelled context, got nil")
	}
}

func TestNewRequiresServerURL(t *testing.T) {
	t.Parallel()

	if _, err := wav2vec.New(""); err == nil {
		t.Error("New(\"\"): expected error, got nil")
	}
}
