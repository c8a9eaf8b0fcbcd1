package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt": {"whisper", "openai"},
	"nlu": {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile", "openai-native"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("stt", cfg.Providers.STT.Name)
	for _, e := range cfg.Providers.STTFallbacks {
		validateProviderName("stt", e.Name)
	}
	validateProviderName("nlu", cfg.Providers.NLU.Name)
	for _, e := range cfg.Providers.NLUFallbacks {
		validateProviderName("nlu", e.Name)
	}

	// Provider availability warnings
	if cfg.Providers.STT.Name == "" {
		slog.Warn("no STT provider configured; audio turns will be rejected and only text interpretation will work")
	}
	if cfg.Providers.NLU.Name == "" {
		slog.Warn("no NLU provider configured; interpretation falls back to the built-in grammar")
	}
	if len(cfg.Providers.STTFallbacks) > 0 && cfg.Providers.STT.Name == "" {
		errs = append(errs, errors.New("providers.stt_fallbacks configured without a primary providers.stt"))
	}
	if len(cfg.Providers.NLUFallbacks) > 0 && cfg.Providers.NLU.Name == "" {
		errs = append(errs, errors.New("providers.nlu_fallbacks configured without a primary providers.nlu"))
	}

	// Inventory
	if cfg.Inventory.PostgresDSN == "" {
		slog.Warn("inventory.postgres_dsn is empty; inventory will be held in memory and lost on restart")
	}
	if cfg.Inventory.LowStockThreshold < 0 {
		errs = append(errs, fmt.Errorf("inventory.low_stock_threshold %d must not be negative", cfg.Inventory.LowStockThreshold))
	}
	if s := cfg.Inventory.DefaultSize; s != "" {
		if _, err := strconv.Atoi(s); err != nil {
			errs = append(errs, fmt.Errorf("inventory.default_size %q is not a numeric size", s))
		}
	}

	// Session
	if cfg.Session.TurnTimeout < 0 {
		errs = append(errs, errors.New("session.turn_timeout must not be negative"))
	}
	if cfg.Session.ResetDelay < 0 {
		errs = append(errs, errors.New("session.reset_delay must not be negative"))
	}

	// Notify
	if cfg.Notify.WebhookURL != "" {
		u, err := url.Parse(cfg.Notify.WebhookURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("notify.webhook_url %q is not a valid absolute URL", cfg.Notify.WebhookURL))
		}
	}

	// Roster duplicate detection
	rosterSeen := make(map[string]int, len(cfg.Roster))
	for i, name := range cfg.Roster {
		if name == "" {
			errs = append(errs, fmt.Errorf("roster[%d] is empty", i))
			continue
		}
		if prev, ok := rosterSeen[name]; ok {
			errs = append(errs, fmt.Errorf("roster[%d] %q is a duplicate of roster[%d]", i, name, prev))
		}
		rosterSeen[name] = i
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
