package config

import (
	"errors"
	"fmt"
	"time"
)

// CurrentVersion is the config file schema version
const CurrentVersion = 1

// Config represents the entire user configuration file
type Config struct {
	Version  int             `yaml:"version" toml:"version"`
	Serial   SerialConfig    `yaml:"serial" toml:"serial"`
	Retry    RetryConfig     `yaml:"retry" toml:"retry"`
	Defaults CommandDefaults `yaml:"defaults" toml:"defaults"`
	Log      LogConfig       `yaml:"log" toml:"log"`
}

// SerialConfig describes the link to the unit.
// Port is a serial device path or a ws:// bridge URL.
type SerialConfig struct {
	Port         string        `yaml:"port" toml:"port"`
	Baud         int           `yaml:"baud" toml:"baud"`
	ReadTimeout  time.Duration `yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" toml:"write_timeout"`
}

// RetryConfig is the exchange retry policy
type RetryConfig struct {
	Attempts int           `yaml:"attempts" toml:"attempts"`
	Delay    time.Duration `yaml:"delay" toml:"delay"`
}

// CommandDefaults holds values used when a command argument is omitted.
// Speeds are in mm/s and temperatures in Celsius.
type CommandDefaults struct {
	FeedSpeed           int `yaml:"feed_speed" toml:"feed_speed"`
	RetractSpeed        int `yaml:"retract_speed" toml:"retract_speed"`
	ParkHitCount        int `yaml:"park_hit_count" toml:"park_hit_count"`
	MaxDryerTemperature int `yaml:"max_dryer_temperature" toml:"max_dryer_temperature"`
}

// LogConfig selects the log level ("" keeps logging off)
type LogConfig struct {
	Level string `yaml:"level,omitempty" toml:"level"`
}

// Default returns a Config populated with the stock values for a USB-attached unit
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Serial: SerialConfig{
			Port:         "/dev/serial/by-id/usb-1a86_USB_Serial-if00-port0",
			Baud:         115200,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 2 * time.Second,
		},
		Retry: RetryConfig{
			Attempts: 3,
			Delay:    2 * time.Second,
		},
		Defaults: CommandDefaults{
			FeedSpeed:           20,
			RetractSpeed:        30,
			ParkHitCount:        2,
			MaxDryerTemperature: 55,
		},
	}
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	var errs []error

	if c.Version != CurrentVersion {
		errs = append(errs, fmt.Errorf("unsupported config version: %d (expected %d)", c.Version, CurrentVersion))
	}
	if c.Serial.Port == "" {
		errs = append(errs, errors.New("serial.port must not be empty"))
	}
	if c.Serial.Baud <= 0 {
		errs = append(errs, fmt.Errorf("serial.baud must be positive, got %d", c.Serial.Baud))
	}
	if c.Serial.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("serial.read_timeout must be positive, got %s", c.Serial.ReadTimeout))
	}
	if c.Serial.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("serial.write_timeout must be positive, got %s", c.Serial.WriteTimeout))
	}
	if c.Retry.Attempts < 1 {
		errs = append(errs, fmt.Errorf("retry.attempts must be at least 1, got %d", c.Retry.Attempts))
	}
	if c.Retry.Delay < 0 {
		errs = append(errs, fmt.Errorf("retry.delay must not be negative, got %s", c.Retry.Delay))
	}
	if c.Defaults.FeedSpeed <= 0 {
		errs = append(errs, fmt.Errorf("defaults.feed_speed must be positive, got %d", c.Defaults.FeedSpeed))
	}
	if c.Defaults.RetractSpeed <= 0 {
		errs = append(errs, fmt.Errorf("defaults.retract_speed must be positive, got %d", c.Defaults.RetractSpeed))
	}
	if c.Defaults.MaxDryerTemperature <= 0 {
		errs = append(errs, fmt.Errorf("defaults.max_dryer_temperature must be positive, got %d", c.Defaults.MaxDryerTemperature))
	}

	return errors.Join(errs...)
}
