// Package config loads the gitvcs settings from
// $XDG_CONFIG_HOME/gitvcs/config.yml, a .env file and GITVCS_* environment
// variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// Dir is the directory name under XDG_CONFIG_HOME.
	Dir = "gitvcs"
	// File is the config file name.
	File = "config.yml"

	EnvGit         = "GITVCS_GIT"
	EnvMaxCount    = "GITVCS_MAX_COUNT"
	EnvMaxDiffSize = "GITVCS_MAX_DIFF_SIZE"
	EnvTheme       = "GITVCS_THEME"
	EnvColor       = "GITVCS_COLOR"
	EnvRemote      = "GITVCS_REMOTE"
)

var (
	themes = []string{"auto", "light", "dark"}
	colors = []string{"auto", "always", "never"}
)

// Size is a byte count that can be written as a plain integer or a human
// readable string such as "64KiB" or "1 MB".
type Size int64

func ParseSize(s string) (Size, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Size(n), nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return Size(n), nil
}

func (s *Size) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParseSize(node.Value)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s Size) String() string {
	if s <= 0 {
		return strconv.FormatInt(int64(s), 10)
	}
	return humanize.IBytes(uint64(s))
}

type Config struct {
	// Git is the git executable. Empty means looking it up in PATH.
	Git string `yaml:"git,omitempty"`
	// MaxCount is the default number of commits written by "log".
	MaxCount int `yaml:"max_count"`
	// MaxDiffSize enables diff capture in "parse-log" when positive.
	MaxDiffSize Size `yaml:"max_diff_size"`
	// ReviewNotes makes "log" include the review notes by default.
	ReviewNotes bool `yaml:"review_notes"`
	// Remote names the remote "init" adds for its url.
	Remote string `yaml:"remote,omitempty"`
	Theme  string `yaml:"theme,omitempty"`
	Color  string `yaml:"color,omitempty"`
}

func Default() Config {
	return Config{
		MaxCount: 50,
		Remote:   "origin",
		Theme:    "auto",
		Color:    "auto",
	}
}

// Path returns the config file location, honouring XDG_CONFIG_HOME.
func Path(getenv func(string) string) string {
	configHome := getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, Dir, File)
}

// LoadDotEnv copies the variables of the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotEnv(files ...string) error {
	for _, name := range files {
		if err := godotenv.Load(name); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", name, err)
		}
	}
	return nil
}

// Load reads path on top of Default and applies the environment overrides
// read through getenv. A missing file is not an error; an empty path skips
// the file entirely.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("reading config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv(EnvGit); v != "" {
		c.Git = v
	}
	if v := getenv(EnvMaxCount); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxCount, err)
		}
		c.MaxCount = n
	}
	if v := getenv(EnvMaxDiffSize); v != "" {
		n, err := ParseSize(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxDiffSize, err)
		}
		c.MaxDiffSize = n
	}
	if v := getenv(EnvTheme); v != "" {
		c.Theme = v
	}
	if v := getenv(EnvColor); v != "" {
		c.Color = v
	}
	if v := getenv(EnvRemote); v != "" {
		c.Remote = v
	}
	return nil
}

func (c Config) Validate() error {
	if c.MaxCount < 0 {
		return fmt.Errorf("max_count must not be negative, got %d", c.MaxCount)
	}
	if !slices.Contains(themes, c.Theme) {
		return fmt.Errorf("theme must be one of %v, got %q", themes, c.Theme)
	}
	if !slices.Contains(colors, c.Color) {
		return fmt.Errorf("color must be one of %v, got %q", colors, c.Color)
	}
	return nil
}
