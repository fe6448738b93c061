// Package config loads texlsp.toml and supplies defaults for everything it
// leaves out.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the project config file searched for from the working directory
// upwards.
const FileName = "texlsp.toml"

// Config is the merged project configuration.
type Config struct {
	// Path is the file the config was read from, empty for defaults.
	Path    string        `toml:"-"`
	Build   BuildConfig   `toml:"build"`
	Lint    LintConfig    `toml:"lint"`
	Cache   CacheConfig   `toml:"cache"`
	Metrics MetricsConfig `toml:"metrics"`
	Log     LogConfig     `toml:"log"`
}

type BuildConfig struct {
	Executable  string   `toml:"executable"`
	Args        []string `toml:"args"`
	TokenPrefix string   `toml:"token_prefix"`
}

type LintConfig struct {
	Chktex   ToolConfig `toml:"chktex"`
	Hunspell ToolConfig `toml:"hunspell"`
}

// ToolConfig overrides one linter. Zero fields keep the tool defaults.
type ToolConfig struct {
	Executable string   `toml:"executable"`
	Args       []string `toml:"args"`
	Interval   Duration `toml:"interval"`
	Enabled    *bool    `toml:"enabled"`
}

// IsEnabled reports whether the linter should run; linters are on by default.
func (t ToolConfig) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

type CacheConfig struct {
	// Dir holds persisted diagnostics; the user cache dir when empty.
	Dir      string `toml:"dir"`
	Disabled bool   `toml:"disabled"`
}

type MetricsConfig struct {
	// Addr enables the Prometheus endpoint, e.g. "127.0.0.1:9464".
	Addr string `toml:"addr"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Duration decodes TOML strings such as "30s".
type Duration struct {
	time.Duration
	set bool
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	d.set = true
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// IsSet reports whether the duration was given explicitly.
func (d Duration) IsSet() bool { return d.set }

// Default returns the configuration used when no texlsp.toml exists.
func Default() Config {
	return Config{
		Build: BuildConfig{
			Executable:  "latexmk",
			Args:        []string{"-pdf", "-interaction=nonstopmode", "-synctex=1"},
			TokenPrefix: "texlab-build",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Find walks from startDir up to the file system root looking for texlsp.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load reads path over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	if meta.IsDefined("build", "executable") && strings.TrimSpace(cfg.Build.Executable) == "" {
		return Config{}, fmt.Errorf("%s: [build].executable must not be empty", path)
	}
	if cfg.Build.TokenPrefix == "" {
		cfg.Build.TokenPrefix = Default().Build.TokenPrefix
	}
	for name, tool := range map[string]ToolConfig{"chktex": cfg.Lint.Chktex, "hunspell": cfg.Lint.Hunspell} {
		if tool.Interval.Duration < 0 {
			return Config{}, fmt.Errorf("%s: [lint.%s].interval must not be negative", path, name)
		}
	}
	cfg.Path = path
	return cfg, nil
}

// Resolve loads an explicit path when given, else the nearest texlsp.toml
// above startDir, else the defaults.
func Resolve(explicit, startDir string) (Config, error) {
	if explicit != "" {
		return Load(explicit)
	}
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}
