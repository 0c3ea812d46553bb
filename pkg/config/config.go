package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const (
	envConfigPath        = "LITEGRAM_CONFIG"
	envTelegramBotToken  = "TELEGRAM_BOT_TOKEN"
	envTelegramAllowFrom = "TELEGRAM_ALLOW_FROM"
	envWebhookSecret     = "LITEGRAM_WEBHOOK_SECRET"

	ModePolling = "polling"
	ModeWebhook = "webhook"

	defaultHost        = "127.0.0.1"
	defaultPort        = 18790
	defaultWebhookPath = "/telegram/webhook"
	defaultStoreDriver = "memory"
	defaultStorePath   = "data/store.json"
)

var (
	// ErrNotFound is returned when no config file exists at any candidate path.
	ErrNotFound = errors.New("config.json not found")
	ErrNoToken  = errors.New("bot token is not configured")
)

// Config is the root runtime configuration loaded from config.json.
type Config struct {
	Bot     BotConfig     `json:"bot"`
	Gateway GatewayConfig `json:"gateway"`
	Storage StorageConfig `json:"storage"`
	Logging LoggingConfig `json:"logging,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

// BotConfig holds the bot identity and routing defaults.
type BotConfig struct {
	Token string `json:"token"`
	// TokenKeyring names the keychain account holding the token when Token is empty.
	TokenKeyring string   `json:"token_keyring,omitempty"`
	Prefixes     []string `json:"prefixes,omitempty"`
	AllowFrom    []string `json:"allow_from,omitempty"`
}

// GatewayConfig selects how updates arrive and where the HTTP server binds.
type GatewayConfig struct {
	Mode        string `json:"mode"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
	WebhookPath string `json:"webhook_path,omitempty"`
	SecretToken string `json:"secret_token,omitempty"`
	// PublicURL, when set in webhook mode, is registered with Telegram at startup.
	PublicURL string `json:"public_url,omitempty"`
}

type StorageConfig struct {
	Driver string `json:"driver"`
	Path   string `json:"path,omitempty"`
}

// Default returns a configuration usable without a config file.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	applyEnvOverrides(cfg)
	return cfg
}

// LoadConfig resolves config.json, unmarshals it, and applies defaults and environment overrides.
func LoadConfig() (*Config, error) {
	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	return LoadFile(configPath)
}

func LoadFile(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the gateway cannot run with.
func (c *Config) Validate() error {
	switch c.Gateway.Mode {
	case ModePolling, ModeWebhook:
	default:
		return fmt.Errorf("gateway.mode must be %q or %q, got %q", ModePolling, ModeWebhook, c.Gateway.Mode)
	}

	if c.Gateway.Port <= 0 || c.Gateway.Port > 65535 {
		return fmt.Errorf("gateway.port out of range: %d", c.Gateway.Port)
	}
	if c.Gateway.Mode == ModeWebhook && !strings.HasPrefix(c.Gateway.WebhookPath, "/") {
		return fmt.Errorf("gateway.webhook_path must start with /: %q", c.Gateway.WebhookPath)
	}

	for _, prefix := range c.Bot.Prefixes {
		if len([]rune(prefix)) != 1 {
			return fmt.Errorf("bot.prefixes entries must be a single character: %q", prefix)
		}
	}

	return nil
}

// ResolveToken returns the configured token, falling back to the keychain
// account named by bot.token_keyring.
func (c *Config) ResolveToken(lookup func(account string) (string, error)) (string, error) {
	if token := strings.TrimSpace(c.Bot.Token); token != "" {
		return token, nil
	}

	account := strings.TrimSpace(c.Bot.TokenKeyring)
	if account == "" || lookup == nil {
		return "", ErrNoToken
	}

	token, err := lookup(account)
	if err != nil {
		return "", fmt.Errorf("resolve bot token: %w", err)
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func (c GatewayConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func applyDefaults(cfg *Config) {
	cfg.Gateway.Mode = strings.ToLower(strings.TrimSpace(cfg.Gateway.Mode))
	if cfg.Gateway.Mode == "" {
		cfg.Gateway.Mode = ModePolling
	}
	if cfg.Gateway.Host == "" {
		cfg.Gateway.Host = defaultHost
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = defaultPort
	}
	if cfg.Gateway.WebhookPath == "" {
		cfg.Gateway.WebhookPath = defaultWebhookPath
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = defaultStoreDriver
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = defaultStorePath
	}
}

// applyEnvOverrides injects selected env-driven settings on top of file config.
func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if token := strings.TrimSpace(os.Getenv(envTelegramBotToken)); token != "" {
		cfg.Bot.Token = token
	}

	if rawAllowFrom := strings.TrimSpace(os.Getenv(envTelegramAllowFrom)); rawAllowFrom != "" {
		cfg.Bot.AllowFrom = parseCSV(rawAllowFrom)
	}

	if secret := strings.TrimSpace(os.Getenv(envWebhookSecret)); secret != "" {
		cfg.Gateway.SecretToken = secret
	}
}

// parseCSV splits comma-separated values and returns a trimmed compact slice.
func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		clean = append(clean, trimmed)
	}

	return slices.Clip(clean)
}

// findConfigPath resolves the active config file location.
//
// Precedence is LITEGRAM_CONFIG first, then cwd-local fallback paths.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv(envConfigPath)); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("%s does not point to a file: %s", envConfigPath, value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w (checked %s and %s)", ErrNotFound, candidates[0], candidates[1])
}
