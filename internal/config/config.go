package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"launchalert/internal/domain"

	"github.com/pelletier/go-toml/v2"
)

const (
	defaultVersion         = "0.0.0"
	defaultLanguage        = "en"
	defaultTimeoutMS       = 2000
	defaultMaxRetry        = 3
	defaultRetryInitialMS  = 2000
	defaultRetryMaxMS      = 30000
	defaultSQLitePath      = "data/launchalert.db"
	defaultNATSURL         = "nats://127.0.0.1:4222"
	defaultNATSBucket      = "launchalert"
	defaultLogMaxSizeMB    = 10
	defaultLogMaxBackups   = 3
	defaultLogMaxAgeDays   = 7
	defaultSentryFlushMS   = 2000
	defaultTelemetryEnvTag = "production"

	// StoreBackendMemory keeps last-seen id in process memory only.
	StoreBackendMemory = "memory"
	// StoreBackendSQLite keeps last-seen id in local SQLite file.
	StoreBackendSQLite = "sqlite"
	// StoreBackendNATS keeps last-seen id in JetStream KV bucket.
	StoreBackendNATS = "nats"
)

// Config holds SDK runtime settings.
// Params: TOML sections from file or merged directory snapshot.
// Returns: validated runtime configuration.
type Config struct {
	Client    ClientSection   `toml:"client"`
	Store     StoreConfig     `toml:"store"`
	Log       LogConfig       `toml:"log"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// ClientSection contains backend identity and transport policy.
// Params: identity headers, language, route, timeout, and retry policy.
// Returns: source for domain.ClientConfig.
type ClientSection struct {
	AppID      string      `toml:"app_id"`
	Version    string      `toml:"version"`
	DeviceID   string      `toml:"device_id"`
	Language   string      `toml:"language"`
	Route      string      `toml:"route"`
	SDKVersion string      `toml:"sdk_version"`
	TimeoutMS  int         `toml:"timeout_ms"`
	MaxRetry   *int        `toml:"max_retry"`
	Retry      ClientRetry `toml:"retry"`
}

// ClientRetry configures transport retry pacing.
// Params: backoff mode, initial/max delay, and logging toggle.
// Returns: retry policy for transport.
type ClientRetry struct {
	Backoff        string `toml:"backoff"`
	InitialMS      int    `toml:"initial_ms"`
	MaxMS          int    `toml:"max_ms"`
	LogEachAttempt bool   `toml:"log_each_attempt"`
}

// StoreConfig selects last-seen id persistence backend.
// Params: backend name, SQLite path, optional key override, and NATS settings.
// Returns: identifier store options.
type StoreConfig struct {
	Backend string          `toml:"backend"`
	Path    string          `toml:"path"`
	Key     string          `toml:"key"`
	NATS    NATSStoreConfig `toml:"nats"`
}

// NATSStoreConfig contains JetStream KV controls for NATS backend.
// Params: server URLs, bucket name, and bucket auto-create toggle.
// Returns: NATS backend options.
type NATSStoreConfig struct {
	URL               []string `toml:"url"`
	Bucket            string   `toml:"bucket"`
	AllowCreateBucket bool     `toml:"allow_create_bucket"`
}

// LogConfig contains console/file logging sinks.
// Params: sink settings for each output target.
// Returns: logger setup options.
type LogConfig struct {
	Console LogSinkConfig `toml:"console"`
	File    LogSinkConfig `toml:"file"`
}

// LogSinkConfig defines one logging sink.
// Params: enable flag, level, format, path, and file rotation limits.
// Returns: sink-specific behavior.
type LogSinkConfig struct {
	Enabled    bool   `toml:"enabled"`
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	Path       string `toml:"path"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// TelemetryConfig controls failure reporting to Sentry.
// Params: DSN (empty disables), environment, release, and flush timeout.
// Returns: reporter options.
type TelemetryConfig struct {
	SentryDSN   string `toml:"sentry_dsn"`
	Environment string `toml:"environment"`
	Release     string `toml:"release"`
	FlushMS     int    `toml:"flush_ms"`
}

// ConfigSource describes file or directory config source.
// Params: exactly one of file path or directory path.
// Returns: normalized source descriptor.
type ConfigSource struct {
	File string
	Dir  string
}

// FromCLI builds normalized source configuration from input paths.
// Params: optional file and directory arguments.
// Returns: source descriptor or validation error.
func FromCLI(filePath, dirPath string) (ConfigSource, error) {
	filePath = strings.TrimSpace(filePath)
	dirPath = strings.TrimSpace(dirPath)

	if filePath == "" && dirPath == "" {
		return ConfigSource{}, errors.New("either --config-file or --config-dir must be provided")
	}
	if filePath != "" && dirPath != "" {
		return ConfigSource{}, errors.New("config source must be either file or dir")
	}

	if filePath != "" {
		return ConfigSource{File: filePath}, nil
	}
	return ConfigSource{Dir: dirPath}, nil
}

// LoadSnapshot loads, overlays environment, and validates configuration.
// Params: source selects file or directory mode; env overlay reads LAUNCHALERT_* variables.
// Returns: validated config or load/validation error.
func LoadSnapshot(src ConfigSource) (Config, error) {
	return loadSnapshot(src, os.LookupEnv)
}

func loadSnapshot(src ConfigSource, lookup func(string) (string, bool)) (Config, error) {
	var cfg Config
	var err error
	if src.File != "" {
		err = loadFile(src.File, &cfg)
	} else {
		err = loadDir(src.Dir, &cfg)
	}
	if err != nil {
		return Config{}, err
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns defaults-only configuration overlaid with environment.
// Params: none.
// Returns: config for hosts without config file, or validation error.
func Default() (Config, error) {
	var cfg Config
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadFile decodes one TOML file over cfg (keys absent in file keep prior values).
// Params: file path and destination config.
// Returns: read/decode error.
func loadFile(path string, cfg *Config) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %q: %w", path, err)
	}
	decoder := toml.NewDecoder(bytes.NewReader(body))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("decode config file %q: %w", path, err)
	}
	return nil
}

// loadDir decodes TOML fragments from one directory in lexical order.
// Params: directory containing config fragments and destination config.
// Returns: merged config side-effect or load/decode error.
func loadDir(dir string, cfg *Config) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read config dir %q: %w", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.ToLower(filepath.Ext(entry.Name())) != ".toml" {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	if len(files) == 0 {
		return fmt.Errorf("no .toml files found in %q", dir)
	}
	sort.Strings(files)

	for _, file := range files {
		if err := loadFile(file, cfg); err != nil {
			return err
		}
	}
	return nil
}

// applyDefaults fills unset fields.
// Params: cfg pointer.
// Returns: defaults applied in place.
func applyDefaults(cfg *Config) {
	client := &cfg.Client
	client.AppID = strings.TrimSpace(client.AppID)
	client.Route = strings.TrimSpace(client.Route)
	if strings.TrimSpace(client.Version) == "" {
		client.Version = defaultVersion
	}
	if strings.TrimSpace(client.Language) == "" {
		client.Language = defaultLanguage
	}
	if client.TimeoutMS <= 0 {
		client.TimeoutMS = defaultTimeoutMS
	}
	if client.MaxRetry == nil {
		retries := defaultMaxRetry
		client.MaxRetry = &retries
	}
	if *client.MaxRetry < 0 {
		*client.MaxRetry = 0
	}
	if client.Retry.Backoff == "" {
		client.Retry.Backoff = string(domain.BackoffFixed)
	}
	client.Retry.Backoff = strings.ToLower(strings.TrimSpace(client.Retry.Backoff))
	if client.Retry.InitialMS <= 0 {
		client.Retry.InitialMS = defaultRetryInitialMS
	}
	if client.Retry.MaxMS <= 0 {
		client.Retry.MaxMS = defaultRetryMaxMS
	}

	cfg.Store.Backend = NormalizeStoreBackend(cfg.Store.Backend)
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = StoreBackendSQLite
	}
	if cfg.Store.Backend == StoreBackendSQLite && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = defaultSQLitePath
	}
	cfg.Store.NATS.URL = normalizeNATSURLs(cfg.Store.NATS.URL)
	if len(cfg.Store.NATS.URL) == 0 {
		cfg.Store.NATS.URL = []string{defaultNATSURL}
	}
	if strings.TrimSpace(cfg.Store.NATS.Bucket) == "" {
		cfg.Store.NATS.Bucket = defaultNATSBucket
	}

	if cfg.Log.Console.Level == "" {
		cfg.Log.Console.Level = "info"
	}
	if cfg.Log.Console.Format == "" {
		cfg.Log.Console.Format = "line"
	}
	if cfg.Log.File.Level == "" {
		cfg.Log.File.Level = "info"
	}
	if cfg.Log.File.Format == "" {
		cfg.Log.File.Format = "json"
	}
	if cfg.Log.File.MaxSizeMB <= 0 {
		cfg.Log.File.MaxSizeMB = defaultLogMaxSizeMB
	}
	if cfg.Log.File.MaxBackups <= 0 {
		cfg.Log.File.MaxBackups = defaultLogMaxBackups
	}
	if cfg.Log.File.MaxAgeDays <= 0 {
		cfg.Log.File.MaxAgeDays = defaultLogMaxAgeDays
	}
	if !cfg.Log.Console.Enabled && !cfg.Log.File.Enabled {
		cfg.Log.Console.Enabled = true
	}

	if cfg.Telemetry.FlushMS <= 0 {
		cfg.Telemetry.FlushMS = defaultSentryFlushMS
	}
	if strings.TrimSpace(cfg.Telemetry.Environment) == "" {
		cfg.Telemetry.Environment = defaultTelemetryEnvTag
	}
}

// validateConfig validates full runtime configuration.
// Params: cfg snapshot to validate.
// Returns: first failing rule.
func validateConfig(cfg Config) error {
	if cfg.Client.AppID == "" {
		return errors.New("client.app_id is required")
	}
	if cfg.Client.Route == "" {
		return errors.New("client.route is required")
	}
	if !strings.HasPrefix(cfg.Client.Route, "http://") && !strings.HasPrefix(cfg.Client.Route, "https://") {
		return fmt.Errorf("client.route must be http(s) URL, got %q", cfg.Client.Route)
	}
	switch domain.BackoffMode(cfg.Client.Retry.Backoff) {
	case domain.BackoffFixed, domain.BackoffExponential:
	default:
		return fmt.Errorf("client.retry.backoff has unsupported value %q", cfg.Client.Retry.Backoff)
	}
	if cfg.Client.Retry.MaxMS < cfg.Client.Retry.InitialMS {
		return errors.New("client.retry.max_ms must be >= client.retry.initial_ms")
	}

	switch cfg.Store.Backend {
	case StoreBackendMemory, StoreBackendSQLite, StoreBackendNATS:
	default:
		return fmt.Errorf("store.backend has unsupported value %q", cfg.Store.Backend)
	}

	if err := validateLogSink("log.console", cfg.Log.Console, false); err != nil {
		return err
	}
	if err := validateLogSink("log.file", cfg.Log.File, true); err != nil {
		return err
	}
	return nil
}

// validateLogSink validates one log sink configuration.
// Params: sink name, sink values, and whether path is required.
// Returns: sink validation error.
func validateLogSink(name string, sink LogSinkConfig, requirePath bool) error {
	if !sink.Enabled {
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(sink.Level)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%s.level has unsupported value %q", name, sink.Level)
	}

	switch strings.ToLower(strings.TrimSpace(sink.Format)) {
	case "line", "json":
	default:
		return fmt.Errorf("%s.format has unsupported value %q", name, sink.Format)
	}

	if requirePath && strings.TrimSpace(sink.Path) == "" {
		return fmt.Errorf("%s.path is required", name)
	}

	return nil
}

// NormalizeStoreBackend lower-cases and trims backend name.
// Params: raw backend value.
// Returns: normalized backend name.
func NormalizeStoreBackend(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// normalizeNATSURLs trims and drops empty URL entries.
// Params: raw URL list.
// Returns: cleaned list.
func normalizeNATSURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, url := range urls {
		trimmed := strings.TrimSpace(url)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

// ClientConfig converts client section into engine session config.
// Params: none (uses validated snapshot).
// Returns: immutable domain session config.
func (c Config) ClientConfig() domain.ClientConfig {
	return domain.ClientConfig{
		AppID:        c.Client.AppID,
		Version:      c.Client.Version,
		DeviceID:     strings.TrimSpace(c.Client.DeviceID),
		LanguageTag:  c.Client.Language,
		Route:        c.Client.Route,
		SDKVersion:   c.Client.SDKVersion,
		Timeout:      time.Duration(c.Client.TimeoutMS) * time.Millisecond,
		MaxRetry:     c.Client.MaxRetryValue(),
		RetryBackoff: time.Duration(c.Client.Retry.InitialMS) * time.Millisecond,
		BackoffMode:  domain.BackoffMode(c.Client.Retry.Backoff),
		MaxBackoff:   time.Duration(c.Client.Retry.MaxMS) * time.Millisecond,
	}
}

// MaxRetryValue returns retry count with unset treated as default.
// Params: none.
// Returns: retries after first attempt.
func (c ClientSection) MaxRetryValue() int {
	if c.MaxRetry == nil {
		return defaultMaxRetry
	}
	return *c.MaxRetry
}
