// Command phonemefix is the main entry point for the phoneme correction server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/zgraper/phonemefix/internal/config"
	"github.com/zgraper/phonemefix/internal/history"
	historypg "github.com/zgraper/phonemefix/internal/history/postgres"
	"github.com/zgraper/phonemefix/internal/observe"
	"github.com/zgraper/phonemefix/internal/pipeline"
	"github.com/zgraper/phonemefix/internal/resilience"
	"github.com/zgraper/phonemefix/internal/server"
	"github.com/zgraper/phonemefix/pkg/provider/decoder"
	"github.com/zgraper/phonemefix/pkg/provider/decoder/llm"
	"github.com/zgraper/phonemefix/pkg/provider/decoder/seq2seq"
	"github.com/zgraper/phonemefix/pkg/provider/transcriber"
	"github.com/zgraper/phonemefix/pkg/provider/transcriber/wav2vec"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "phonemefix: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "phonemefix: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("phonemefix starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	tr, dec, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Attempt history ───────────────────────────────────────────────────────
	store, err := buildStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialise attempt history", "err", err)
		return 1
	}
	defer store.Close()

	// ── Pipeline and HTTP server ──────────────────────────────────────────────
	pipe, err := pipeline.New(tr, dec)
	if err != nil {
		slog.Error("failed to build pipeline", "err", err)
		return 1
	}

	srv, err := server.New(pipe, store,
		server.WithMaxUploadBytes(cfg.Server.MaxUploadBytes),
		server.WithCORSAllowedOrigins(cfg.Server.CORSAllowedOrigins),
	)
	if err != nil {
		slog.Error("failed to build server", "err", err)
		return 1
	}

	printStartupSummary(cfg)

	httpSrv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server ready — press Ctrl+C to shut down", "addr", cfg.Server.ListenAddr)
		if tls := cfg.Server.TLS; tls != nil {
			errCh <- httpSrv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			errCh <- httpSrv.ListenAndServe()
		}
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			return 1
		}
	case <-ctx.Done():
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires the provider factories that ship with
// phonemefix into reg.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterTranscriber("wav2vec", func(entry config.ProviderEntry) (transcriber.Provider, error) {
		var opts []wav2vec.Option
		if entry.Model != "" {
			opts = append(opts, wav2vec.WithModel(entry.Model))
		}
		if d := optDuration(entry.Options, "timeout"); d > 0 {
			opts = append(opts, wav2vec.WithTimeout(d))
		}
		return wav2vec.New(entry.BaseURL, opts...)
	})

	reg.RegisterDecoder("seq2seq", func(entry config.ProviderEntry) (decoder.Provider, error) {
		var opts []seq2seq.Option
		if entry.Model != "" {
			opts = append(opts, seq2seq.WithModel(entry.Model))
		}
		if n := optInt(entry.Options, "beam_width"); n > 0 {
			opts = append(opts, seq2seq.WithBeamWidth(n))
		}
		if n := optInt(entry.Options, "max_length"); n > 0 {
			opts = append(opts, seq2seq.WithMaxLength(n))
		}
		if d := optDuration(entry.Options, "timeout"); d > 0 {
			opts = append(opts, seq2seq.WithTimeout(d))
		}
		return seq2seq.New(entry.BaseURL, opts...)
	})

	// The llm decoder delegates to a hosted or local chat model; the backend
	// is named in the options block (openai, anthropic, ollama, …).
	reg.RegisterDecoder("llm", func(entry config.ProviderEntry) (decoder.Provider, error) {
		backend := optString(entry.Options, "provider")
		if backend == "" {
			backend = "openai"
		}
		var opts []anyllmlib.Option
		if entry.APIKey != "" {
			opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
		}
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return llm.New(backend, entry.Model, opts...)
	})
}

// buildProviders instantiates the transcriber and decoder named in cfg,
// wrapping each in a circuit-breaking fallback chain when a fallback block is
// configured.
func buildProviders(cfg *config.Config, reg *config.Registry) (transcriber.Provider, decoder.Provider, error) {
	tr, err := reg.CreateTranscriber(cfg.Providers.Transcriber)
	if err != nil {
		return nil, nil, fmt.Errorf("create transcriber %q: %w", cfg.Providers.Transcriber.Name, err)
	}
	slog.Info("provider created", "kind", "transcriber", "name", cfg.Providers.Transcriber.Name)

	dec, err := reg.CreateDecoder(cfg.Providers.Decoder)
	if err != nil {
		return nil, nil, fmt.Errorf("create decoder %q: %w", cfg.Providers.Decoder.Name, err)
	}
	slog.Info("provider created", "kind", "decoder", "name", cfg.Providers.Decoder.Name)

	var outTr transcriber.Provider = tr
	if fb := cfg.Providers.TranscriberFallback; fb != nil {
		backup, err := reg.CreateTranscriber(*fb)
		if err != nil {
			return nil, nil, fmt.Errorf("create transcriber fallback %q: %w", fb.Name, err)
		}
		chain := resilience.NewTranscriberFallback(tr, cfg.Providers.Transcriber.Name, resilience.FallbackConfig{
			CircuitBreaker: resilience.CircuitBreakerConfig{Name: "transcriber"},
		})
		chain.AddFallback(fb.Name, backup)
		outTr = chain
		slog.Info("fallback registered", "kind", "transcriber", "name", fb.Name)
	}

	var outDec decoder.Provider = dec
	if fb := cfg.Providers.DecoderFallback; fb != nil {
		backup, err := reg.CreateDecoder(*fb)
		if err != nil {
			return nil, nil, fmt.Errorf("create decoder fallback %q: %w", fb.Name, err)
		}
		chain := resilience.NewDecoderFallback(dec, cfg.Providers.Decoder.Name, resilience.FallbackConfig{
			CircuitBreaker: resilience.CircuitBreakerConfig{Name: "decoder"},
		})
		chain.AddFallback(fb.Name, backup)
		outDec = chain
		slog.Info("fallback registered", "kind", "decoder", "name", fb.Name)
	}

	return outTr, outDec, nil
}

// buildStore selects the attempt history backend: PostgreSQL when a DSN is
// configured, an in-memory ring otherwise.
func buildStore(ctx context.Context, cfg *config.Config) (history.Store, error) {
	if dsn := cfg.History.PostgresDSN; dsn != "" {
		store, err := historypg.NewStore(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		slog.Info("attempt history backed by postgres")
		return store, nil
	}
	slog.Info("attempt history kept in memory", "capacity", cfg.History.MemoryCapacity)
	return history.NewMemStore(cfg.History.MemoryCapacity), nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        phonemefix — startup summary   ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("Transcriber", cfg.Providers.Transcriber.Name, cfg.Providers.Transcriber.Model)
	printProvider("Decoder", cfg.Providers.Decoder.Name, cfg.Providers.Decoder.Model)
	if fb := cfg.Providers.TranscriberFallback; fb != nil {
		printProvider("Transcr. FB", fb.Name, fb.Model)
	}
	if fb := cfg.Providers.DecoderFallback; fb != nil {
		printProvider("Decoder FB", fb.Name, fb.Model)
	}
	if cfg.History.PostgresDSN != "" {
		fmt.Printf("║  History        : %-20s ║\n", "postgres")
	} else {
		fmt.Printf("║  History        : %-20s ║\n", "in-memory")
	}
	fmt.Printf("║  Listen addr    : %-20s ║\n", cfg.Server.ListenAddr)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 20 {
		value = value[:17] + "…"
	}
	fmt.Printf("║  %-13s  : %-20s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	s, _ := opts[key].(string)
	return s
}

// optInt extracts an int value from a provider Options map. YAML decodes
// integers as int.
func optInt(opts map[string]any, key string) int {
	if opts == nil {
		return 0
	}
	n, _ := opts[key].(int)
	return n
}

// optDuration parses a Go duration string (e.g. "30s") from a provider
// Options map. Returns 0 on absence or parse failure.
func optDuration(opts map[string]any, key string) time.Duration {
	s := optString(opts, key)
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		slog.Warn("invalid duration in provider options", "key", key, "value", s)
		return 0
	}
	return d
}
