package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is where the config file is looked for when COMIC_CONFIG is unset
	DefaultPath = "./comic.yaml"

	defaultRefreshIntervalHours = 3
	defaultConfigDir            = "."
	defaultListenAddr           = ":8080"
	defaultLogLevel             = "info"
)

// Config is the host-level configuration of the comic service.
type Config struct {
	// RefreshIntervalHours is how often the comic is refreshed.
	RefreshIntervalHours int `yaml:"refresh_interval"`
	// ConfigDir is the host configuration directory; the image is cached under its www/ folder.
	ConfigDir  string `yaml:"config_dir"`
	ListenAddr string `yaml:"listen_addr"`
	LogLevel   string `yaml:"log_level"`
}

func defaults() *Config {
	return &Config{
		RefreshIntervalHours: defaultRefreshIntervalHours,
		ConfigDir:            defaultConfigDir,
		ListenAddr:           defaultListenAddr,
		LogLevel:             defaultLogLevel,
	}
}

// Path returns the config file path from COMIC_CONFIG, or DefaultPath.
func Path() string {
	path := os.Getenv("COMIC_CONFIG")
	if path == "" {
		path = DefaultPath
	}
	return path
}

// Load builds a Config from defaults, then the YAML file at path (which may be missing),
// then COMIC_* environment variables.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

var overrideKeys = []string{"COMIC_REFRESH_INTERVAL", "COMIC_CONFIG_DIR", "COMIC_LISTEN_ADDR", "COMIC_LOG_LEVEL"}

// EnvOverrides returns the set environment variables that take precedence over the config file.
func EnvOverrides() []string {
	var set []string
	for _, key := range overrideKeys {
		if os.Getenv(key) != "" {
			set = append(set, key)
		}
	}
	return set
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("COMIC_REFRESH_INTERVAL"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid COMIC_REFRESH_INTERVAL %q: %w", v, err)
		}
		cfg.RefreshIntervalHours = hours
	}
	if v := os.Getenv("COMIC_CONFIG_DIR"); v != "" {
		cfg.ConfigDir = v
	}
	if v := os.Getenv("COMIC_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("COMIC_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return nil
}

func (c *Config) Validate() error {
	if c.RefreshIntervalHours < 1 {
		return fmt.Errorf("refresh_interval must be at least 1 hour, got %d", c.RefreshIntervalHours)
	}
	if c.ConfigDir == "" {
		return fmt.Errorf("config_dir cannot be empty")
	}
	return nil
}

func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalHours) * time.Hour
}

// ImageDir is the directory holding the cached comic.
func (c *Config) ImageDir() string {
	return filepath.Join(c.ConfigDir, "www")
}
