package pnba

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the module configuration, loaded from a YAML file. Only
// Credentials.Path is required; everything else has a usable default.
type Config struct {
	Credentials struct {
		// Path to the JSON credentials file. A leading ~ is expanded;
		// relative paths resolve against the config file's directory.
		Path string `yaml:"path"`
	} `yaml:"credentials"`

	Sessions struct {
		// Root directory for per-phone-number session directories.
		Dir string `yaml:"dir"`
	} `yaml:"sessions"`

	Server struct {
		Addr      string `yaml:"addr"`
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"server"`

	Telegram struct {
		Debug bool `yaml:"debug"`
	} `yaml:"telegram"`

	// Directory the config file was loaded from; used to resolve relative
	// paths. Not part of the YAML document.
	baseDir string
}

// EnsureDefaults fills in defaults for optional fields.
func (c *Config) EnsureDefaults() *Config {
	if c.Sessions.Dir == "" {
		c.Sessions.Dir = DefaultSessionsDir()
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8550"
	}
	return c
}

// LoadConfig reads and parses the YAML configuration at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	cfg.baseDir = filepath.Dir(abs)

	return cfg.EnsureDefaults(), nil
}

// DefaultSessionsDir returns the fixed sessions root used when the
// configuration does not override it: a "sessions" directory under the
// current working directory.
func DefaultSessionsDir() string {
	wd, err := os.Getwd()
	if err != nil {
		return "sessions"
	}
	return filepath.Join(wd, "sessions")
}

// resolvePath expands a leading ~ or ~/ to the current user's home and
// anchors relative paths at baseDir. ~user forms are not supported.
func (c *Config) resolvePath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not expand %q: %w", path, err)
		}
		path = filepath.Join(home, path[1:])
	} else if strings.HasPrefix(path, "~") {
		return "", fmt.Errorf("unsupported home-relative path %q: only ~ and ~/ are expanded", path)
	}
	if !filepath.IsAbs(path) && c.baseDir != "" {
		path = filepath.Join(c.baseDir, path)
	}
	return path, nil
}
