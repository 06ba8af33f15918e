// Package config loads the optional nativerender.yaml configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/nativerender/pkg/mutation"
)

// FileName is the configuration file LoadOptional looks for.
const FileName = "nativerender.yaml"

// SupportedMajor is the renderer protocol major version this module speaks.
const SupportedMajor = "v1"

// DefaultProtocol is used when the file does not name a protocol.
const DefaultProtocol = "v1.0.0"

// ErrUnsupportedProtocol is returned by Validate for a protocol whose major
// version differs from SupportedMajor.
var ErrUnsupportedProtocol = errors.New("unsupported renderer protocol")

// Config represents nativerender.yaml.
type Config struct {
	Protocol string      `yaml:"protocol,omitempty"`
	Log      LogConfig   `yaml:"log"`
	Views    ViewsConfig `yaml:"views"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string `yaml:"level,omitempty"`
	Format  string `yaml:"format,omitempty"`
	Verbose bool   `yaml:"verbose,omitempty"`
}

// ViewsConfig contains per view kind settings.
type ViewsConfig struct {
	// Defaults are props merged under the initial props of every created
	// node of the named view kind.
	Defaults map[string]mutation.Props `yaml:"defaults,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Protocol: DefaultProtocol,
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	return Parse(data)
}

// LoadOptional reads nativerender.yaml from dir if present.
func LoadOptional(dir string) (*Config, error) {
	cfg, err := Load(filepath.Join(dir, FileName))
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Parse decodes and validates a configuration document. Missing fields
// take their defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}
	cfg.resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) resolve() {
	c.Protocol = strings.TrimSpace(c.Protocol)
	if c.Protocol == "" {
		c.Protocol = DefaultProtocol
	}
	if !strings.HasPrefix(c.Protocol, "v") {
		c.Protocol = "v" + c.Protocol
	}
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks the protocol version and log settings.
func (c *Config) Validate() error {
	if !semver.IsValid(c.Protocol) {
		return fmt.Errorf("protocol must be a semantic version (got %q)", c.Protocol)
	}
	if major := semver.Major(c.Protocol); major != SupportedMajor {
		return fmt.Errorf("%w %s: this renderer speaks %s", ErrUnsupportedProtocol, c.Protocol, SupportedMajor)
	}
	if _, err := c.level(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json (got %q)", c.Log.Format)
	}
	for view := range c.Views.Defaults {
		if view == "" {
			return fmt.Errorf("views.defaults contains an empty view name")
		}
	}
	return nil
}

func (c *Config) level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}

// Logger returns a logger writing to w at the configured level and format.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := c.level()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ViewDefaults returns a copy of the per view kind default props.
func (c *Config) ViewDefaults() map[string]mutation.Props {
	if len(c.Views.Defaults) == 0 {
		return nil
	}
	out := make(map[string]mutation.Props, len(c.Views.Defaults))
	for view, props := range c.Views.Defaults {
		out[view] = props.Clone()
	}
	return out
}
