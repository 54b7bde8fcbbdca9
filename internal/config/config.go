// Package config loads the shell configuration from YAML with strict key
// checking. Unknown keys are errors so typos surface at startup instead of
// silently falling back to defaults.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// WindowConfig is the initial logical window size.
type WindowConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Config is the effective shell configuration.
type Config struct {
	// Site selects the active reading site by registry id.
	Site string `yaml:"site"`

	Window WindowConfig `yaml:"window"`

	// WindowClass is the WM_CLASS the shell window is created with; the
	// X11 backend attaches to it.
	WindowClass string `yaml:"window_class"`

	// PollIntervalMS is the window-position sampling interval.
	PollIntervalMS int `yaml:"poll_interval_ms"`
	// SettleDelayMS is how long a monitor transition must settle before
	// the menu is rebuilt, so mid-drag positions don't churn the menu.
	SettleDelayMS int `yaml:"settle_delay_ms"`

	// BridgeAddr is the listen address for the UI event bridge.
	BridgeAddr string `yaml:"bridge_addr"`

	// ScaleOverrides maps RandR output names to fixed scale factors,
	// overriding the DPI-derived guess.
	ScaleOverrides map[string]float64 `yaml:"scale_overrides"`

	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Site:           "weread",
		Window:         WindowConfig{Width: 1280, Height: 800},
		WindowClass:    "readershell",
		PollIntervalMS: 200,
		SettleDelayMS:  100,
		BridgeAddr:     "127.0.0.1:17923",
		ScaleOverrides: map[string]float64{},
		LogLevel:       "info",
	}
}

// PollInterval returns the poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// SettleDelay returns the settle delay as a duration.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMS) * time.Millisecond
}

// Validate checks the configuration for values the shell cannot run with.
func (c *Config) Validate() error {
	if c.Site == "" {
		return fmt.Errorf("site must not be empty")
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.WindowClass == "" {
		return fmt.Errorf("window_class must not be empty")
	}
	if c.PollIntervalMS < 50 {
		return fmt.Errorf("poll_interval_ms must be at least 50, got %d", c.PollIntervalMS)
	}
	if c.SettleDelayMS < 0 {
		return fmt.Errorf("settle_delay_ms must not be negative, got %d", c.SettleDelayMS)
	}
	if c.BridgeAddr == "" {
		return fmt.Errorf("bridge_addr must not be empty")
	}
	for name, scale := range c.ScaleOverrides {
		if scale <= 0 {
			return fmt.Errorf("scale_overrides[%s] must be positive, got %v", name, scale)
		}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug/info/warn/error, got %q", c.LogLevel)
	}
	return nil
}

// DefaultConfigPath returns the standard config file location.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "readershell", "config.yaml"), nil
}

// Load reads the configuration from the standard location. A missing file
// yields the defaults.
func Load() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the configuration from path, applying defaults for any
// keys the file omits.
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("%s: failed to read: %w", path, err)
	}

	if err := decodeStrictYAML(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.ScaleOverrides == nil {
		cfg.ScaleOverrides = map[string]float64{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func decodeStrictYAML(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	return nil
}
