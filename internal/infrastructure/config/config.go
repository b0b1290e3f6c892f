package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the inventory tool.
// All configuration is loaded from YAML and can be overridden by environment
// variables.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Events   EventsConfig   `yaml:"events"`
	Vault    VaultConfig    `yaml:"vault"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// EventsConfig contains settings for the optional MQTT event feed.
// When disabled (the default), mutating operations do not publish events.
type EventsConfig struct {
	Enabled bool             `yaml:"enabled"`
	Broker  MQTTBrokerConfig `yaml:"broker"`
	Auth    MQTTAuthConfig   `yaml:"auth"`
	QoS     int              `yaml:"qos"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// VaultConfig contains settings for the KeePass secrets vault used by
// gen-secrets. The vault location and password are deliberately environment
// only (KEEPASS_DATABASE, KEEPASS_PASSWORD) so credentials never land in a
// config file; this section carries the non-secret knobs.
type VaultConfig struct {
	DeviceGroup  string         `yaml:"device_group"`
	NetworkGroup string         `yaml:"network_group"`
	Networks     map[int]string `yaml:"networks"`
}

// Load reads configuration from a YAML file and applies environment variable
// overrides.
//
// The loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// A missing config file is not an error: the tool is usable with defaults
// plus flags alone. Any other read failure, or a parse failure, is reported.
//
// Environment variables follow the pattern INVENTORY_SECTION_KEY, for
// example INVENTORY_DATABASE_PATH.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case os.IsNotExist(err):
		// Defaults only.
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "./data/inventory.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
		Events: EventsConfig{
			Enabled: false,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "inventory-core",
			},
			QoS: 1,
		},
		Vault: VaultConfig{
			DeviceGroup:  "esphome-devices",
			NetworkGroup: "esphome-networks",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Pattern: INVENTORY_SECTION_KEY.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("INVENTORY_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("INVENTORY_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("INVENTORY_EVENTS_HOST"); v != "" {
		cfg.Events.Broker.Host = v
	}
	if v := os.Getenv("INVENTORY_EVENTS_USERNAME"); v != "" {
		cfg.Events.Auth.Username = v
	}
	if v := os.Getenv("INVENTORY_EVENTS_PASSWORD"); v != "" {
		cfg.Events.Auth.Password = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.Database.BusyTimeout < 0 {
		errs = append(errs, "database.busy_timeout must not be negative")
	}
	if c.Events.QoS < 0 || c.Events.QoS > 2 {
		errs = append(errs, "events.qos must be 0, 1, or 2")
	}
	if c.Events.Enabled {
		if c.Events.Broker.Host == "" {
			errs = append(errs, "events.broker.host is required when events are enabled")
		}
		if c.Events.Broker.Port < 1 || c.Events.Broker.Port > 65535 {
			errs = append(errs, "events.broker.port must be between 1 and 65535")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
