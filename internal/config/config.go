package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Anthropic AnthropicConfig
	Search    SearchConfig
	Convex    ConvexConfig
	Storage   StorageConfig
	Server    ServerConfig
	Log       LogConfig
	Safety    SafetyConfig
}

type AnthropicConfig struct {
	APIKey   string
	Model    string
	MaxTurns int
}

type SearchConfig struct {
	BraveAPIKey string
}

type ConvexConfig struct {
	DeploymentURL string
}

type StorageConfig struct {
	DataDir     string
	ProjectRoot string
}

type ServerConfig struct {
	Port int
}

type LogConfig struct {
	Level string
}

type SafetyConfig struct {
	// DenyExtra is a comma-separated list of additional denylist entries
	// for execute_command.
	DenyExtra string
}

func defaults() Config {
	return Config{
		Anthropic: AnthropicConfig{
			Model:    "claude-sonnet-4-5-20250929",
			MaxTurns: 15,
		},
		Convex: ConvexConfig{
			DeploymentURL: "https://next-frog-231.convex.cloud",
		},
		Storage: StorageConfig{
			DataDir:     defaultDataDir(),
			ProjectRoot: ".",
		},
		Server: ServerConfig{
			Port: 4620,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.pluginradar.radar) and
// secrets fall back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/radar/config.json
// and secrets fall back to $XDG_DATA_HOME/radar/secrets.json.
//
// Environment variables (RADAR_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), NewKeychain())
}

// Keychain abstracts the platform secret store.
type Keychain interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
}

const keychainService = "radar"

func loadWith(b ConfigBackend, kc Keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// Try the platform secret store for keys still empty.
	if cfg.Anthropic.APIKey == "" {
		if key, err := kc.Get(keychainService, "anthropic_api_key"); err == nil && key != "" {
			cfg.Anthropic.APIKey = key
		}
	}
	if cfg.Search.BraveAPIKey == "" {
		if key, err := kc.Get(keychainService, "brave_api_key"); err == nil && key != "" {
			cfg.Search.BraveAPIKey = key
		}
	}

	if cfg.Anthropic.APIKey == "" {
		msg := "missing required config: Anthropic API key. " +
			"Set it via environment variable RADAR_ANTHROPIC_API_KEY" +
			apiKeyHint()
		return Config{}, fmt.Errorf("%s", msg)
	}

	return cfg, nil
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		v := os.Getenv(s.env)
		if v == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, v)
		case kInt:
			if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				s.apply(cfg, i)
			}
		}
	}
}

// keychainReader implements Keychain on the platform secret store.
type keychainReader struct{}

// NewKeychain returns the platform Keychain.
func NewKeychain() Keychain {
	return keychainReader{}
}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (keychainReader) Set(service, account, value string) error {
	return keychainSet(service, account, value)
}
