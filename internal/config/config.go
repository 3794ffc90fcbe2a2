// Package config loads tsmm settings from defaults, an optional TOML file,
// TSMM_* environment variables and command-line flags, in increasing order
// of precedence.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// AppName names the platform cache and config subdirectories.
	AppName = "tsmm"
	// ConfigFileName is the config file looked up in the config directory.
	ConfigFileName = "config.toml"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "TSMM"
)

var (
	// ErrNoManagedGame is returned when a command needs a game and none is configured.
	ErrNoManagedGame = errors.New("no managed game configured")
	// ErrNoModsDir is returned when a command needs the mods directory and none is configured.
	ErrNoModsDir = errors.New("no mods directory configured")
)

// Config holds the application configuration.
type Config struct {
	ManagedGame string        `mapstructure:"managed_game"`
	ModsDir     string        `mapstructure:"mods_dir"`
	CacheDir    string        `mapstructure:"cache_dir"`
	ConfigDir   string        `mapstructure:"config_dir"`
	Registry    string        `mapstructure:"registry"`
	RegistryURL string        `mapstructure:"registry_url"`
	UserAgent   string        `mapstructure:"user_agent"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
}

// DefaultConfig returns the built-in defaults. Directories are left empty
// and resolved at load time.
func DefaultConfig() *Config {
	return &Config{
		Registry:   "thunderstore",
		UserAgent:  "tsmm",
		Timeout:    2 * time.Minute,
		MaxRetries: 3,
	}
}

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// ConfigFilePath forces loading from a specific config file when set.
	ConfigFilePath string
	// ConfigDirPath overrides the config directory lookup when set.
	ConfigDirPath string
	// Flags are bound to their matching keys when set.
	Flags *pflag.FlagSet
}

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"managed-game": "managed_game",
	"mods-dir":     "mods_dir",
	"cache-dir":    "cache_dir",
	"config-dir":   "config_dir",
	"registry":     "registry",
	"registry-url": "registry_url",
}

// Load builds the effective configuration.
func Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load config canceled: %w", err)
	}

	v := viper.New()
	defaults := DefaultConfig()
	v.SetDefault("managed_game", defaults.ManagedGame)
	v.SetDefault("mods_dir", defaults.ModsDir)
	v.SetDefault("cache_dir", defaults.CacheDir)
	v.SetDefault("config_dir", defaults.ConfigDir)
	v.SetDefault("registry", defaults.Registry)
	v.SetDefault("registry_url", defaults.RegistryURL)
	v.SetDefault("user_agent", defaults.UserAgent)
	v.SetDefault("timeout", defaults.Timeout)
	v.SetDefault("max_retries", defaults.MaxRetries)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		for flagName, key := range flagKeys {
			if f := opts.Flags.Lookup(flagName); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", flagName, err)
				}
			}
		}
	}

	cfgDir, err := configDir(opts.ConfigDirPath)
	if err != nil {
		return nil, err
	}

	path := opts.ConfigFilePath
	if path == "" {
		candidate := filepath.Join(cfgDir, ConfigFileName)
		if fileExists(candidate) {
			path = candidate
		}
	} else if !fileExists(path) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.ConfigDir == "" {
		cfg.ConfigDir = cfgDir
	}
	if cfg.CacheDir == "" {
		dir, err := DefaultCacheDir()
		if err != nil {
			return nil, err
		}
		cfg.CacheDir = dir
	}
	if cfg.Registry == "" {
		cfg.Registry = defaults.Registry
	}

	return &cfg, nil
}

// configDir resolves the directory holding config.toml and the requirements
// documents. An explicit path wins over TSMM_CONFIG_DIR, which wins over the
// platform default.
func configDir(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if env := os.Getenv(EnvPrefix + "_CONFIG_DIR"); env != "" {
		return env, nil
	}
	return DefaultConfigDir()
}

// DefaultConfigDir returns the platform config directory for tsmm.
func DefaultConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine config directory: %w", err)
	}
	return filepath.Join(dir, AppName), nil
}

// DefaultCacheDir returns the platform cache directory for tsmm.
func DefaultCacheDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine cache directory: %w", err)
	}
	return filepath.Join(dir, AppName), nil
}

// RequireGame returns the managed game, or ErrNoManagedGame. Game
// identifiers become part of file names, so path separators are rejected.
func (c *Config) RequireGame() (string, error) {
	if c.ManagedGame == "" {
		return "", ErrNoManagedGame
	}
	if strings.ContainsAny(c.ManagedGame, `/\`) || c.ManagedGame == "." || c.ManagedGame == ".." {
		return "", fmt.Errorf("invalid managed game %q", c.ManagedGame)
	}
	return c.ManagedGame, nil
}

// RequireModsDir returns the mods directory, or ErrNoModsDir.
func (c *Config) RequireModsDir() (string, error) {
	if c.ModsDir == "" {
		return "", ErrNoModsDir
	}
	return c.ModsDir, nil
}

// tomlView is the rendered form of Config. Durations are written as text.
type tomlView struct {
	ManagedGame string `toml:"managed_game"`
	ModsDir     string `toml:"mods_dir"`
	CacheDir    string `toml:"cache_dir"`
	ConfigDir   string `toml:"config_dir"`
	Registry    string `toml:"registry"`
	RegistryURL string `toml:"registry_url"`
	UserAgent   string `toml:"user_agent"`
	Timeout     string `toml:"timeout"`
	MaxRetries  int    `toml:"max_retries"`
}

// TOML renders the configuration in config file syntax.
func (c *Config) TOML() ([]byte, error) {
	return toml.Marshal(tomlView{
		ManagedGame: c.ManagedGame,
		ModsDir:     c.ModsDir,
		CacheDir:    c.CacheDir,
		ConfigDir:   c.ConfigDir,
		Registry:    c.Registry,
		RegistryURL: c.RegistryURL,
		UserAgent:   c.UserAgent,
		Timeout:     c.Timeout.String(),
		MaxRetries:  c.MaxRetries,
	})
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
