// Package config loads tada settings from defaults, TOML files, .env and the
// environment, in that order of increasing priority. CLI flags are applied by
// the caller on top.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	dirName         = ".tada"
	userFileName    = "config.toml"
	projectFileName = ".tada.toml"
	dotEnvFileName  = ".env"
	logFileName     = "tada.log"

	DefaultAPIURL = "http://localhost:8080"
)

// Config holds every tunable setting.
type Config struct {
	APIURL    string    `toml:"api_url" env:"TADA_API_URL"`
	Theme     string    `toml:"theme" env:"TADA_THEME"`
	Reconcile bool      `toml:"reconcile" env:"TADA_RECONCILE"`
	Log       LogConfig `toml:"log"`
}

// LogConfig controls the charmbracelet/log logger.
type LogConfig struct {
	Level  string `toml:"level" env:"TADA_LOG_LEVEL"`
	Format string `toml:"format" env:"TADA_LOG_FORMAT"`
	File   string `toml:"file" env:"TADA_LOG_FILE"`
}

// Paths lists the files Load reads. Empty entries are skipped.
type Paths struct {
	User    string
	Project string
	DotEnv  string
}

// Dir returns ~/.tada.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// DefaultPaths returns ~/.tada/config.toml, ./.tada.toml and ./.env.
func DefaultPaths() Paths {
	var p Paths
	if dir, err := Dir(); err == nil {
		p.User = filepath.Join(dir, userFileName)
	}
	if wd, err := os.Getwd(); err == nil {
		p.Project = filepath.Join(wd, projectFileName)
		p.DotEnv = filepath.Join(wd, dotEnvFileName)
	}
	return p
}

// Default returns the built-in settings.
func Default() *Config {
	cfg := &Config{
		APIURL:    DefaultAPIURL,
		Theme:     "classic",
		Reconcile: true,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
	if dir, err := Dir(); err == nil {
		cfg.Log.File = filepath.Join(dir, logFileName)
	}
	return cfg
}

// Load builds the configuration: defaults, user file, project file, .env,
// then environment variables.
func Load(paths Paths) (*Config, error) {
	cfg := Default()

	for _, path := range []string{paths.User, paths.Project} {
		if path == "" {
			continue
		}
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if paths.DotEnv != "" {
		// Existing environment variables win over .env entries.
		if err := godotenv.Load(paths.DotEnv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", paths.DotEnv, err)
		}
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat config file %s: %w", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("loading config file %s: %w", path, err)
	}
	return nil
}

// Validate checks values that would otherwise fail later and less clearly.
func (c *Config) Validate() error {
	c.APIURL = strings.TrimSpace(c.APIURL)
	if c.APIURL == "" {
		return fmt.Errorf("api_url is empty")
	}
	switch strings.ToLower(c.Theme) {
	case "classic", "neon", "mono":
	default:
		return fmt.Errorf("unknown theme %q (want classic, neon or mono)", c.Theme)
	}
	return nil
}

// Write encodes cfg as TOML.
func (c *Config) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// WriteFile writes cfg to path unless the file exists and force is false.
func (c *Config) WriteFile(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if err := c.Write(f); err != nil {
		f.Close()
		return fmt.Errorf("encode config: %w", err)
	}
	return f.Close()
}
