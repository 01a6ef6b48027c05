package cameracapture

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config contains capturer settings. Durations are written as strings
// in YAML ("500ms", "10s").
type Config struct {
	// DeviceName is the device opened by Start. Empty selects the first
	// enumerated device.
	DeviceName string `yaml:"device"`
	// Format is the format used by the demo CLI and by callers that do
	// not pick one
	Format Format `yaml:"format"`

	MaxOpenAttempts int           `yaml:"max_open_attempts"` // attempts per Start (default: 3)
	OpenRetryDelay  time.Duration `yaml:"open_retry_delay"`  // delay before a retry (default: 500ms)
	OpenTimeout     time.Duration `yaml:"open_timeout"`      // watchdog beyond the attempt delay (default: 10s)

	StatsInterval time.Duration `yaml:"stats_interval"` // frame-rate log period (default: 2s)
	FreezeTimeout time.Duration `yaml:"freeze_timeout"` // silence before a freeze report (default: 4s)

	// Devices is a fixed device list used instead of scanning /dev
	Devices []DeviceConfig `yaml:"devices,omitempty"`

	GStreamer GStreamerConfig `yaml:"gstreamer"`

	// Logger overrides slog.Default()
	Logger *slog.Logger `yaml:"-"`
}

// DeviceConfig declares one statically configured device.
type DeviceConfig struct {
	Name        string `yaml:"name"`
	FrontFacing bool   `yaml:"front_facing"`
}

// GStreamerConfig contains settings of the bundled session factory.
type GStreamerConfig struct {
	Source       string        `yaml:"source"`        // source element (default: v4l2src)
	StartTimeout time.Duration `yaml:"start_timeout"` // wait for PLAYING (default: 5s)
}

// DefaultConfig returns the default capturer configuration.
func DefaultConfig() Config {
	return Config{
		Format:          Format{Width: 1280, Height: 720, FrameRate: 30},
		MaxOpenAttempts: 3,
		OpenRetryDelay:  500 * time.Millisecond,
		OpenTimeout:     10 * time.Second,
		StatsInterval:   2 * time.Second,
		FreezeTimeout:   4 * time.Second,
		GStreamer: GStreamerConfig{
			Source:       "v4l2src",
			StartTimeout: 5 * time.Second,
		},
	}
}

// LoadConfig reads a YAML file over DefaultConfig and validates it.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error

	if err := c.Format.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.MaxOpenAttempts < 1 {
		errs = append(errs, fmt.Errorf("max_open_attempts must be >= 1, got %d", c.MaxOpenAttempts))
	}
	if c.OpenRetryDelay < 0 {
		errs = append(errs, fmt.Errorf("open_retry_delay must not be negative, got %s", c.OpenRetryDelay))
	}
	if c.OpenTimeout <= 0 {
		errs = append(errs, fmt.Errorf("open_timeout must be positive, got %s", c.OpenTimeout))
	}
	if c.StatsInterval <= 0 {
		errs = append(errs, fmt.Errorf("stats_interval must be positive, got %s", c.StatsInterval))
	}
	if c.FreezeTimeout < c.StatsInterval {
		errs = append(errs, fmt.Errorf("freeze_timeout (%s) must be >= stats_interval (%s)", c.FreezeTimeout, c.StatsInterval))
	}

	seen := make(map[string]bool, len(c.Devices))
	for i, d := range c.Devices {
		switch {
		case d.Name == "":
			errs = append(errs, fmt.Errorf("devices[%d]: name is required", i))
		case seen[d.Name]:
			errs = append(errs, fmt.Errorf("devices[%d]: duplicate name %q", i, d.Name))
		}
		seen[d.Name] = true
	}

	return errors.Join(errs...)
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
