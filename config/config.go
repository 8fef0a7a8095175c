// Package config loads the database configuration from TOML.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/tarantool/go-typedkv/namer"
	"github.com/tarantool/go-typedkv/watch"
)

// DriverType selects the storage backend.
type DriverType string

const (
	DriverMemory    DriverType = "memory"    // In-process storage, lost on exit
	DriverEtcd      DriverType = "etcd"      // etcd cluster
	DriverTarantool DriverType = "tarantool" // Tarantool config storage
)

// StorageConfiguration selects and configures the storage driver.
type StorageConfiguration struct {
	Driver        DriverType `toml:"driver"`
	Prefix        string     `toml:"prefix"`
	Endpoints     []string   `toml:"endpoints"`
	Username      string     `toml:"username"`
	Password      string     `toml:"password"`
	DialTimeoutMS int        `toml:"dial_timeout_ms"`
}

// DialTimeout returns the connection timeout of remote drivers.
func (s StorageConfiguration) DialTimeout() time.Duration {
	return time.Duration(s.DialTimeoutMS) * time.Millisecond
}

// WatchConfiguration controls change notification delivery.
type WatchConfiguration struct {
	ChannelCapacity int `toml:"channel_capacity"`
}

// LoggingConfiguration controls the logger built by Logger.
type LoggingConfiguration struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // console or json
}

// MetricsConfiguration controls prometheus metrics.
type MetricsConfiguration struct {
	Enabled   bool   `toml:"enabled"`
	Namespace string `toml:"namespace"`
}

// Configuration is the complete database configuration.
type Configuration struct {
	Storage StorageConfiguration `toml:"storage"`
	Watch   WatchConfiguration   `toml:"watch"`
	Logging LoggingConfiguration `toml:"logging"`
	Metrics MetricsConfiguration `toml:"metrics"`
}

// Default returns the configuration used for every key missing from a file.
func Default() Configuration {
	return Configuration{
		Storage: StorageConfiguration{
			Driver:        DriverMemory,
			Prefix:        namer.DefaultPrefix,
			Endpoints:     nil,
			Username:      "",
			Password:      "",
			DialTimeoutMS: 5000,
		},
		Watch: WatchConfiguration{
			ChannelCapacity: watch.DefaultChannelCapacity,
		},
		Logging: LoggingConfiguration{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfiguration{
			Enabled:   false,
			Namespace: "typedkv",
		},
	}
}

var (
	// ErrInvalidConfig is wrapped by every validation error.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrUnknownKey is returned when the document contains keys no setting uses.
	ErrUnknownKey = errors.New("unknown configuration key")
)

// Parse decodes a TOML document over the defaults and validates the result.
func Parse(data string) (Configuration, error) {
	cfg := Default()

	meta, err := toml.Decode(data, &cfg)
	if err != nil {
		return Configuration{}, fmt.Errorf("failed to decode config: %w", err)
	}

	return finish(cfg, meta)
}

// Load reads the TOML file at path over the defaults and validates the result.
func Load(path string) (Configuration, error) {
	cfg := Default()

	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Configuration{}, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	return finish(cfg, meta)
}

func finish(cfg Configuration, meta toml.MetaData) (Configuration, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}

		return Configuration{}, fmt.Errorf("%w: %s", ErrUnknownKey, strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return Configuration{}, err
	}

	return cfg, nil
}

// Validate checks configuration for errors.
func (c Configuration) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverEtcd, DriverTarantool:
		if len(c.Storage.Endpoints) == 0 {
			return fmt.Errorf("%w: driver %s needs at least one endpoint", ErrInvalidConfig, c.Storage.Driver)
		}
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, c.Storage.Driver)
	}

	if c.Storage.Prefix == "" || !strings.HasPrefix(c.Storage.Prefix, "/") {
		return fmt.Errorf("%w: storage prefix must start with '/'", ErrInvalidConfig)
	}

	if c.Storage.DialTimeoutMS < 0 {
		return fmt.Errorf("%w: dial timeout must be >= 0", ErrInvalidConfig)
	}

	if c.Watch.ChannelCapacity < 1 {
		return fmt.Errorf("%w: watch channel capacity must be >= 1", ErrInvalidConfig)
	}

	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: log level: %w", ErrInvalidConfig, err)
	}

	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("%w: invalid log format %q", ErrInvalidConfig, c.Logging.Format)
	}

	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return fmt.Errorf("%w: metrics namespace is empty", ErrInvalidConfig)
	}

	return nil
}

// Logger builds the logger described by the logging section, writing to w.
func (c Configuration) Logger(w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(c.Logging.Level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("%w: log level: %w", ErrInvalidConfig, err)
	}

	if c.Logging.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339} //nolint:exhaustruct
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}
