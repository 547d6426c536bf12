package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override key.
const EnvPrefix = "LAUNCHALERT_"

// LoadEnvFiles loads dotenv files into process environment without overriding set variables.
// Params: optional file list (".env" when empty); missing files are ignored.
// Returns: parse error for malformed files.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %q: %w", file, err)
		}
	}
	return nil
}

// applyEnv overlays LAUNCHALERT_* variables on decoded config.
// Params: cfg pointer and variable lookup function.
// Returns: parse error for numeric/bool variables.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		value, ok := lookup(EnvPrefix + name)
		if !ok {
			return "", false
		}
		return strings.TrimSpace(value), true
	}
	setString := func(name string, dst *string) {
		if value, ok := get(name); ok && value != "" {
			*dst = value
		}
	}
	setInt := func(name string, dst *int) error {
		value, ok := get(name)
		if !ok || value == "" {
			return nil
		}
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s%s must be integer: %w", EnvPrefix, name, err)
		}
		*dst = parsed
		return nil
	}

	setString("APP_ID", &cfg.Client.AppID)
	setString("VERSION", &cfg.Client.Version)
	setString("DEVICE_ID", &cfg.Client.DeviceID)
	setString("LANGUAGE", &cfg.Client.Language)
	setString("ROUTE", &cfg.Client.Route)
	setString("SDK_VERSION", &cfg.Client.SDKVersion)
	setString("RETRY_BACKOFF", &cfg.Client.Retry.Backoff)
	setString("STORE_BACKEND", &cfg.Store.Backend)
	setString("STORE_PATH", &cfg.Store.Path)
	setString("STORE_KEY", &cfg.Store.Key)
	setString("SENTRY_DSN", &cfg.Telemetry.SentryDSN)
	setString("SENTRY_ENVIRONMENT", &cfg.Telemetry.Environment)
	setString("LOG_LEVEL", &cfg.Log.Console.Level)

	if err := setInt("TIMEOUT_MS", &cfg.Client.TimeoutMS); err != nil {
		return err
	}
	if err := setInt("RETRY_INITIAL_MS", &cfg.Client.Retry.InitialMS); err != nil {
		return err
	}
	if value, ok := get("MAX_RETRY"); ok && value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%sMAX_RETRY must be integer: %w", EnvPrefix, err)
		}
		cfg.Client.MaxRetry = &parsed
	}
	if value, ok := get("NATS_URL"); ok && value != "" {
		cfg.Store.NATS.URL = strings.Split(value, ",")
	}
	return nil
}
