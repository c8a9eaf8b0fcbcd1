// Command jerseyvox is the main entry point for the Jerseyvox voice inventory
// server.
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

	"github.com/jackc/pgx/v5/pgxpool"
	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"golang.org/x/sync/errgroup"

	"github.com/equiproom/jerseyvox/internal/config"
	"github.com/equiproom/jerseyvox/internal/grammar"
	"github.com/equiproom/jerseyvox/internal/health"
	"github.com/equiproom/jerseyvox/internal/inventory"
	"github.com/equiproom/jerseyvox/internal/nlu"
	"github.com/equiproom/jerseyvox/internal/notify"
	"github.com/equiproom/jerseyvox/internal/observe"
	"github.com/equiproom/jerseyvox/internal/resilience"
	"github.com/equiproom/jerseyvox/internal/resolver"
	"github.com/equiproom/jerseyvox/internal/server"
	"github.com/equiproom/jerseyvox/internal/session"
	"github.com/equiproom/jerseyvox/pkg/provider/llm"
	"github.com/equiproom/jerseyvox/pkg/provider/llm/anyllm"
	oanative "github.com/equiproom/jerseyvox/pkg/provider/llm/openai"
	"github.com/equiproom/jerseyvox/pkg/provider/stt"
	sttopenai "github.com/equiproom/jerseyvox/pkg/provider/stt/openai"
	"github.com/equiproom/jerseyvox/pkg/provider/stt/whisper"
	"github.com/equiproom/jerseyvox/pkg/speech"
)

const defaultListenAddr = ":8080"

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
			fmt.Fprintf(os.Stderr, "jerseyvox: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "jerseyvox: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logLevel := new(slog.LevelVar)
	logLevel.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	listenAddr := cfg.Server.ListenAddr
	if listenAddr == "" {
		listenAddr = defaultListenAddr
	}

	slog.Info("jerseyvox starting",
		"config", *configPath,
		"listen_addr", listenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "jerseyvox",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	metrics := observe.DefaultMetrics()

	// ── Inventory store ───────────────────────────────────────────────────────
	var (
		store    inventory.Store
		checkers []health.Checker
	)
	if dsn := cfg.Inventory.PostgresDSN; dsn != "" {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			slog.Error("failed to open postgres pool", "err", err)
			return 1
		}
		defer pool.Close()

		pg := inventory.NewPostgresStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			slog.Error("failed to migrate inventory schema", "err", err)
			return 1
		}
		store = pg
		checkers = append(checkers, health.DatabaseChecker(pool))
		slog.Info("inventory store ready", "backend", "postgres")
	} else {
		store = inventory.NewMemStore()
		slog.Warn("no postgres_dsn configured — inventory is in-memory and will not survive restarts")
	}

	// ── Providers ─────────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	transcriber, err := buildTranscriber(cfg, reg)
	if err != nil {
		slog.Error("failed to build stt provider", "err", err)
		return 1
	}
	model, err := buildModel(cfg, reg)
	if err != nil {
		slog.Error("failed to build nlu provider", "err", err)
		return 1
	}

	// ── Pipeline ──────────────────────────────────────────────────────────────
	interpreter := nlu.New(model, grammar.New())

	var resolverOpts []resolver.Option
	if len(cfg.Roster) > 0 {
		resolverOpts = append(resolverOpts, resolver.WithRoster(cfg.Roster))
	}
	if cfg.Inventory.DefaultSize != "" {
		resolverOpts = append(resolverOpts, resolver.WithDefaultSize(cfg.Inventory.DefaultSize))
	}

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.Notify.WebhookURL)
	}

	sess, err := session.New(session.Config{
		Store:             store,
		Transcriber:       transcriber,
		Interpreter:       interpreter,
		Resolver:          resolver.New(resolverOpts...),
		Notifier:          notifier,
		Speaker:           speech.Logger{},
		Metrics:           metrics,
		LowStockThreshold: cfg.Inventory.LowStockThreshold,
		TurnTimeout:       cfg.Session.TurnTimeout.Std(),
		ResetDelay:        cfg.Session.ResetDelay.Std(),
	})
	if err != nil {
		slog.Error("failed to create session", "err", err)
		return 1
	}

	srv, err := server.New(server.Config{
		Session:     sess,
		Store:       store,
		Interpreter: interpreter,
		Metrics:     metrics,
		Checkers:    checkers,
	})
	if err != nil {
		slog.Error("failed to create server", "err", err)
		return 1
	}

	// ── Config hot reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		applyReload(logLevel, config.Diff(old, new))
	})
	if err != nil {
		slog.Warn("config watcher disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	printStartupSummary(cfg, listenAddr)

	// ── HTTP server ───────────────────────────────────────────────────────────
	httpServer := &http.Server{
		Addr:    listenAddr,
		Handler: srv.Handler(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if tls := cfg.Server.TLS; tls != nil {
			err = httpServer.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = httpServer.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		slog.Info("shutdown signal received, stopping")
		return httpServer.Shutdown(shutdownCtx)
	})

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := g.Wait(); err != nil {
		slog.Error("run error", "err", err)
		return 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := otelShutdown(shutdownCtx); err != nil {
		slog.Warn("telemetry shutdown error", "err", err)
	}

	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// anyLLMProviders are the model backends served through the any-llm client.
// ollama is registered separately since it keys on BaseURL rather than an
// API key.
var anyLLMProviders = []string{
	"openai", "anthropic", "gemini", "deepseek", "mistral", "groq",
	"llamacpp", "llamafile",
}

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a [config.ProviderEntry] and constructs the provider
// from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("openai", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		var opts []sttopenai.Option
		if entry.Model != "" {
			opts = append(opts, sttopenai.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, sttopenai.WithBaseURL(entry.BaseURL))
		}
		return sttopenai.New(entry.APIKey, opts...)
	})

	// ── NLU models ────────────────────────────────────────────────────────────

	for _, providerName := range anyLLMProviders {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})

	// openai-native goes straight through the official SDK, bypassing any-llm.
	reg.RegisterLLM("openai-native", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []oanative.Option
		if entry.BaseURL != "" {
			opts = append(opts, oanative.WithBaseURL(entry.BaseURL))
		}
		return oanative.New(entry.APIKey, entry.Model, opts...)
	})
}

// buildTranscriber instantiates the configured STT provider plus fallbacks.
// Returns nil when no STT provider is configured; the session then accepts
// text turns only.
func buildTranscriber(cfg *config.Config, reg *config.Registry) (stt.Transcriber, error) {
	if cfg.Providers.STT.Name == "" {
		slog.Warn("no stt provider configured — audio turns are disabled")
		return nil, nil
	}
	primary, err := reg.CreateSTT(cfg.Providers.STT)
	if err != nil {
		return nil, fmt.Errorf("create stt provider %q: %w", cfg.Providers.STT.Name, err)
	}
	slog.Info("provider created", "kind", "stt", "name", cfg.Providers.STT.Name)

	if len(cfg.Providers.STTFallbacks) == 0 {
		return primary, nil
	}
	group := resilience.NewSTTFallback(primary, resilience.FallbackConfig{})
	for _, entry := range cfg.Providers.STTFallbacks {
		fb, err := reg.CreateSTT(entry)
		if err != nil {
			return nil, fmt.Errorf("create stt fallback %q: %w", entry.Name, err)
		}
		group.AddFallback(fb)
		slog.Info("provider created", "kind", "stt", "name", entry.Name, "role", "fallback")
	}
	return group, nil
}

// buildModel instantiates the configured NLU model plus fallbacks. Returns
// nil when no model is configured; interpretation then runs on the grammar
// alone.
func buildModel(cfg *config.Config, reg *config.Registry) (llm.Provider, error) {
	if cfg.Providers.NLU.Name == "" {
		slog.Warn("no nlu provider configured — interpretation uses the grammar only")
		return nil, nil
	}
	primary, err := reg.CreateLLM(cfg.Providers.NLU)
	if err != nil {
		return nil, fmt.Errorf("create nlu provider %q: %w", cfg.Providers.NLU.Name, err)
	}
	slog.Info("provider created", "kind", "nlu", "name", cfg.Providers.NLU.Name)

	if len(cfg.Providers.NLUFallbacks) == 0 {
		return primary, nil
	}
	group := resilience.NewLLMFallback(primary, resilience.FallbackConfig{})
	for _, entry := range cfg.Providers.NLUFallbacks {
		fb, err := reg.CreateLLM(entry)
		if err != nil {
			return nil, fmt.Errorf("create nlu fallback %q: %w", entry.Name, err)
		}
		group.AddFallback(fb)
		slog.Info("provider created", "kind", "nlu", "name", entry.Name, "role", "fallback")
	}
	return group, nil
}

// ── Config hot reload ─────────────────────────────────────────────────────────

// applyReload applies what can change at runtime. The log level takes effect
// immediately; threshold and roster changes are logged and need a restart,
// since the session pins them at construction.
func applyReload(logLevel *slog.LevelVar, diff config.ConfigDiff) {
	if !diff.Any() {
		return
	}
	if diff.LogLevelChanged {
		logLevel.Set(slogLevel(diff.NewLogLevel))
		slog.Info("log level changed", "level", diff.NewLogLevel)
	}
	if diff.ThresholdChanged {
		slog.Warn("low_stock_threshold changed in config — restart to apply", "new", diff.NewThreshold)
	}
	if diff.DefaultSizeChanged {
		slog.Warn("default_size changed in config — restart to apply", "new", diff.NewDefaultSize)
	}
	if diff.RosterChanged {
		slog.Warn("roster changed in config — restart to apply",
			"added", diff.RosterAdded, "removed", diff.RosterRemoved)
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, listenAddr string) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        Jerseyvox — startup summary    ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printProvider("NLU", cfg.Providers.NLU.Name, cfg.Providers.NLU.Model)
	backend := "in-memory"
	if cfg.Inventory.PostgresDSN != "" {
		backend = "postgres"
	}
	fmt.Printf("║  Inventory       : %-19s ║\n", backend)
	fmt.Printf("║  Roster names    : %-19d ║\n", len(cfg.Roster))
	fmt.Printf("║  Listen addr     : %-19s ║\n", listenAddr)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Logger ────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map. Returns ""
// if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
