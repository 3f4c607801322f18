package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	xdgAppName = "tasktrack"
	configFile = "config.toml"
	storeFile  = "tasks.json"
	sqliteFile = "tasks.db"

	DefaultBackend  = "json"
	DefaultCalendar = "Tasks"
	DefaultLogLevel = "info"
)

type Config struct {
	Backend   string `toml:"backend"`
	StorePath string `toml:"store_path,omitempty"`
	DSN       string `toml:"dsn,omitempty"`
	Calendar  string `toml:"calendar"`
	LogLevel  string `toml:"log_level"`
}

// AppDir returns ~/.config/tasktrack.
func AppDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName), nil
}

func GetConfigPath() (string, error) {
	if p := os.Getenv("TASKTRACK_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Default returns the configuration used when no file or environment
// override is present.
func Default() *Config {
	return &Config{
		Backend:  DefaultBackend,
		Calendar: DefaultCalendar,
		LogLevel: DefaultLogLevel,
	}
}

// Load resolves configuration from defaults, then the config file, then
// TASKTRACK_* environment variables.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile is Load with an explicit config file path. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	loadFromEnv(cfg)
	finalize(cfg)
	return cfg, nil
}

func loadFromEnv(cfg *Config) {
	if v := os.Getenv("TASKTRACK_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("TASKTRACK_STORE"); v != "" {
		cfg.StorePath = v
	}
	if v := os.Getenv("TASKTRACK_DSN"); v != "" {
		cfg.DSN = v
	}
	if v := os.Getenv("TASKTRACK_CALENDAR"); v != "" {
		cfg.Calendar = v
	}
	if v := os.Getenv("TASKTRACK_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

func finalize(cfg *Config) {
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if cfg.Backend == "" {
		cfg.Backend = DefaultBackend
	}
	if cfg.Calendar == "" {
		cfg.Calendar = DefaultCalendar
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	cfg.StorePath = expandPath(cfg.StorePath)
}

// Location returns what the storage backend should open: the DSN for
// mysql, otherwise a file path (defaulting under AppDir).
func (c *Config) Location() (string, error) {
	if c.Backend == "mysql" {
		if c.DSN == "" {
			return "", fmt.Errorf("mysql backend requires dsn (config key dsn or TASKTRACK_DSN)")
		}
		return c.DSN, nil
	}
	if c.StorePath != "" {
		return c.StorePath, nil
	}
	dir, err := AppDir()
	if err != nil {
		return "", err
	}
	if c.Backend == "sqlite" {
		return filepath.Join(dir, sqliteFile), nil
	}
	return filepath.Join(dir, storeFile), nil
}

func Save(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveFile(path, cfg)
}

func SaveFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// expandPath replaces a leading ~ with the home directory.
func expandPath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return p
}
