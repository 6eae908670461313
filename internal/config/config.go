package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

const appConfigDir = "otpwatch"

const (
	TokenStoreFile    = "file"
	TokenStoreKeyring = "keyring"
)

// Config represents the otpwatch configuration
type Config struct {
	Auth  AuthConfig  `toml:"auth"`
	Fetch FetchConfig `toml:"fetch"`
	Codes CodesConfig `toml:"codes"`
	UI    UIConfig    `toml:"ui"`
	Keys  KeyMap      `toml:"keys"`
}

// AuthConfig controls where OAuth material lives and how often the
// background refresher renews the access token.
type AuthConfig struct {
	ClientSecretFile       string `toml:"client_secret_file"`
	TokenFile              string `toml:"token_file"`
	TokenStore             string `toml:"token_store"`
	KeyringAccount         string `toml:"keyring_account"`
	RefreshIntervalMinutes int    `toml:"refresh_interval_minutes"`
}

type FetchConfig struct {
	Query             string `toml:"query"`
	Limit             int    `toml:"limit"`
	Content           string `toml:"content"`
	RequestsPerSecond int    `toml:"requests_per_second"`
}

type CodesConfig struct {
	Query   string   `toml:"query"`
	Limit   int      `toml:"limit"`
	Phrases []string `toml:"phrases,omitempty"`
}

// Default returns a config with every field populated.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Auth.TokenStore == "" {
		c.Auth.TokenStore = TokenStoreFile
	}
	if c.Auth.KeyringAccount == "" {
		c.Auth.KeyringAccount = "default"
	}
	if c.Auth.RefreshIntervalMinutes <= 0 {
		c.Auth.RefreshIntervalMinutes = 30
	}
	if c.Fetch.Limit <= 0 {
		c.Fetch.Limit = 20
	}
	if c.Fetch.Content == "" {
		c.Fetch.Content = "clean"
	}
	if c.Fetch.RequestsPerSecond == 0 {
		c.Fetch.RequestsPerSecond = 5
	}
	if c.Codes.Query == "" {
		c.Codes.Query = "from:noreply@poe.com"
	}
	if c.Codes.Limit <= 0 {
		c.Codes.Limit = 20
	}
	c.UI = c.UI.WithDefaults()
	c.Keys = c.Keys.WithDefaults()
}

// Validate rejects settings that cannot work at runtime.
func (c *Config) Validate() error {
	switch c.Auth.TokenStore {
	case TokenStoreFile, TokenStoreKeyring:
	default:
		return fmt.Errorf("unknown token_store %q (want %q or %q)",
			c.Auth.TokenStore, TokenStoreFile, TokenStoreKeyring)
	}
	if c.Fetch.Limit > 500 || c.Codes.Limit > 500 {
		return fmt.Errorf("limit must be at most 500")
	}
	return nil
}

// ConfigDir returns the directory where config files are stored
func ConfigDir() (string, error) {
	path, err := ConfigPath()
	if err != nil {
		return "", err
	}
	return filepath.Dir(path), nil
}

// ConfigPath returns the path to the config file
func ConfigPath() (string, error) {
	return xdg.ConfigFile(filepath.Join(appConfigDir, "config.toml"))
}

// TokenPath returns the credential file path, honoring an override.
func (c *Config) TokenPath() (string, error) {
	if c.Auth.TokenFile != "" {
		return expandPath(c.Auth.TokenFile)
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "token.json"), nil
}

// ClientSecretPath returns the OAuth client identity file path.
func (c *Config) ClientSecretPath() (string, error) {
	if c.Auth.ClientSecretFile != "" {
		return expandPath(c.Auth.ClientSecretFile)
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "credentials.json"), nil
}

// Load reads the config file from disk
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, nil
}

// Save writes the config to disk
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func expandPath(path string) (string, error) {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}
	return filepath.Abs(path)
}
