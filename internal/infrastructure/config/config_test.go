package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing test config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	// A missing file is not an error; defaults apply.
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "./data/inventory.db" {
		t.Errorf("Database.Path = %q, want default", cfg.Database.Path)
	}
	if !cfg.Database.WALMode {
		t.Error("Database.WALMode = false, want true by default")
	}
	if cfg.Events.Enabled {
		t.Error("Events.Enabled = true, want disabled by default")
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("Logging.Output = %q, want stderr (stdout carries command output)", cfg.Logging.Output)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /tmp/test-inventory.db
  wal_mode: false
  busy_timeout: 10

logging:
  level: debug
  format: text

vault:
  device_group: lab-devices
  networks:
    1: "Lab Main"
    2: "Lab Guest"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/test-inventory.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Database.WALMode {
		t.Error("Database.WALMode = true, want false from file")
	}
	if cfg.Database.BusyTimeout != 10 {
		t.Errorf("Database.BusyTimeout = %d, want 10", cfg.Database.BusyTimeout)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Vault.DeviceGroup != "lab-devices" {
		t.Errorf("Vault.DeviceGroup = %q", cfg.Vault.DeviceGroup)
	}
	if got := cfg.Vault.Networks[2]; got != "Lab Guest" {
		t.Errorf("Vault.Networks[2] = %q, want %q", got, "Lab Guest")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /tmp/from-file.db
`)

	t.Setenv("INVENTORY_DATABASE_PATH", "/tmp/from-env.db")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != "/tmp/from-env.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "database: [not a mapping")

	if _, err := Load(path); err == nil {
		t.Error("Load() should fail on malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "empty database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "negative busy timeout",
			mutate:  func(c *Config) { c.Database.BusyTimeout = -1 },
			wantErr: true,
		},
		{
			name:    "qos out of range",
			mutate:  func(c *Config) { c.Events.QoS = 3 },
			wantErr: true,
		},
		{
			name: "events enabled without broker host",
			mutate: func(c *Config) {
				c.Events.Enabled = true
				c.Events.Broker.Host = ""
			},
			wantErr: true,
		},
		{
			name: "events enabled with valid broker",
			mutate: func(c *Config) {
				c.Events.Enabled = true
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
