package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marmos91/cipherdrop/internal/bytesize"
	"github.com/marmos91/cipherdrop/pkg/state/store"
)

// yamlSafePath converts a filesystem path to a YAML-safe representation.
// On Windows, backslashes in double-quoted YAML strings are interpreted as
// escape sequences (e.g. \U -> Unicode escape), causing parse errors.
func yamlSafePath(p string) string {
	return filepath.ToSlash(p)
}

func TestLoad_DefaultsApplied(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// Write minimal config; everything else comes from defaults
	configContent := `
server:
  port: 2256

storage:
  root: "` + yamlSafePath(tmpDir) + `/files"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 2256 {
		t.Errorf("Expected port 2256, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "localhost" {
		t.Errorf("Expected default host 'localhost', got %q", cfg.Server.Host)
	}
	if cfg.Server.MaxConnections != 256 {
		t.Errorf("Expected default max_connections 256, got %d", cfg.Server.MaxConnections)
	}
	if cfg.Server.MaxPayload != 16*bytesize.MB {
		t.Errorf("Expected default max_payload 16MB, got %v", cfg.Server.MaxPayload)
	}
	if cfg.Server.IdleTimeout != 10*time.Minute {
		t.Errorf("Expected default idle_timeout 10m, got %v", cfg.Server.IdleTimeout)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default output 'stdout', got %q", cfg.Logging.Output)
	}
	if cfg.Database.Driver != store.DriverSQLite {
		t.Errorf("Expected default driver 'sqlite', got %q", cfg.Database.Driver)
	}
	if cfg.Database.Path != "cipherdrop.db" {
		t.Errorf("Expected default database path 'cipherdrop.db', got %q", cfg.Database.Path)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	// Loading with no config file returns a valid default config.
	// This matches the original deployment mode: the server can run
	// with just a port file next to the binary, or nothing at all.
	tmpDir := t.TempDir()
	nonExistentPath := filepath.Join(tmpDir, "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error when loading default config, got: %v", err)
	}

	if cfg == nil {
		t.Fatal("Expected default config to be returned")
	}
	if cfg.Server.Port != 0 {
		t.Errorf("Expected unset port 0 (resolved later via port file), got %d", cfg.Server.Port)
	}
	if cfg.Server.PortFile != "port.info" {
		t.Errorf("Expected default port_file 'port.info', got %q", cfg.Server.PortFile)
	}
	if cfg.Storage.Root != "transferred_files" {
		t.Errorf("Expected default storage root 'transferred_files', got %q", cfg.Storage.Root)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	configContent := `
logging:
  level: INFO
  invalid yaml here [[[
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_ByteSizeStrings(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  max_payload: 8MB
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.MaxPayload != 8*bytesize.MB {
		t.Errorf("Expected max_payload 8MB, got %d", cfg.Server.MaxPayload)
	}
}

func TestLoad_TOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	configContent := `
[server]
port = 3256

[logging]
level = "WARN"
format = "json"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}

	if cfg.Server.Port != 3256 {
		t.Errorf("Expected port 3256, got %d", cfg.Server.Port)
	}
	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected level 'WARN', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected format 'json', got %q", cfg.Logging.Format)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("CIPHERDROP_LOGGING_LEVEL", "ERROR")
	t.Setenv("CIPHERDROP_SERVER_PORT", "4256")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 2256

logging:
  level: "INFO"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Environment variables override the config file
	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level 'ERROR' from env var, got %q", cfg.Logging.Level)
	}
	if cfg.Server.Port != 4256 {
		t.Errorf("Expected port 4256 from env var, got %d", cfg.Server.Port)
	}
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Server.Host != "localhost" {
		t.Errorf("Expected default host 'localhost', got %q", cfg.Server.Host)
	}
	if cfg.Server.Port != 0 {
		t.Errorf("Expected default port 0 (unset), got %d", cfg.Server.Port)
	}
	if cfg.API.Enabled {
		t.Error("Expected API disabled by default")
	}
	if cfg.Metrics.Enabled {
		t.Error("Expected metrics disabled by default")
	}
	if cfg.Backup.Prefix != "cipherdrop" {
		t.Errorf("Expected default backup prefix 'cipherdrop', got %q", cfg.Backup.Prefix)
	}

	// The default config must itself validate
	if err := Validate(cfg); err != nil {
		t.Errorf("Default config failed validation: %v", err)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "saved", "config.yaml")

	original := GetDefaultConfig()
	original.Server.Port = 5256
	original.Database.Driver = store.DriverBadger
	original.Database.Path = "state"

	if err := SaveConfig(original, configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	// File permissions must be owner-only
	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("Failed to stat saved config: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected mode 0600, got %v", info.Mode().Perm())
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to reload saved config: %v", err)
	}

	if loaded.Server.Port != 5256 {
		t.Errorf("Expected reloaded port 5256, got %d", loaded.Server.Port)
	}
	if loaded.Database.Driver != store.DriverBadger {
		t.Errorf("Expected reloaded driver 'badger', got %q", loaded.Database.Driver)
	}
	if loaded.Database.Path != "state" {
		t.Errorf("Expected reloaded path 'state', got %q", loaded.Database.Path)
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	path := GetDefaultConfigPath()

	if filepath.Base(path) != "config.yaml" {
		t.Errorf("Expected filename 'config.yaml', got %q", filepath.Base(path))
	}
}

func TestGetConfigDir(t *testing.T) {
	dir := GetConfigDir()

	if filepath.Base(dir) != "cipherdrop" {
		t.Errorf("Expected directory name 'cipherdrop', got %q", filepath.Base(dir))
	}
}

func TestGetConfigDir_XDG(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	dir := GetConfigDir()
	if dir != filepath.Join(tmpDir, "cipherdrop") {
		t.Errorf("Expected %q, got %q", filepath.Join(tmpDir, "cipherdrop"), dir)
	}
}
