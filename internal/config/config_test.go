package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
server:
  host: "0.0.0.0"
  port: 8080
database:
  driver: "postgres"
  host: "localhost"
  port: 5432
  name: "liftlog"
  user: "liftlog"
  password: "secret"
  sslmode: "disable"
auth:
  api_key: "test-key-123"
`

const sqliteYAML = `
server:
  host: "127.0.0.1"
  port: 8080
database:
  driver: "sqlite"
  path: "/tmp/liftlog-data"
auth:
  api_key: "test-key-123"
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestLoadValid verifies that a well-formed YAML config loads with all fields populated.
func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("server.host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("database.driver = %q, want %q", cfg.Database.Driver, "postgres")
	}
	if cfg.Database.Name != "liftlog" {
		t.Errorf("database.name = %q, want %q", cfg.Database.Name, "liftlog")
	}
	if cfg.Auth.APIKey != "test-key-123" {
		t.Errorf("auth.api_key = %q, want %q", cfg.Auth.APIKey, "test-key-123")
	}
}

// TestEngineDefaults verifies that omitted engine timings fall back to their
// defaults.
func TestEngineDefaults(t *testing.T) {
	cfg, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Engine.DebounceMs != 300 {
		t.Errorf("engine.debounce_ms = %d, want 300", cfg.Engine.DebounceMs)
	}
	if cfg.Engine.SettleMs != 100 {
		t.Errorf("engine.settle_ms = %d, want 100", cfg.Engine.SettleMs)
	}
	if cfg.Engine.SyncTimeoutSec != 0 {
		t.Errorf("engine.sync_timeout_sec = %d, want 0 (disabled)", cfg.Engine.SyncTimeoutSec)
	}
	if cfg.Engine.RestTimerDefaultSec != 90 {
		t.Errorf("engine.rest_timer_default_sec = %d, want 90", cfg.Engine.RestTimerDefaultSec)
	}
}

// TestLoadSQLite verifies the single-user sqlite driver configuration.
func TestLoadSQLite(t *testing.T) {
	cfg, err := Load(writeTemp(t, sqliteYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("database.driver = %q, want %q", cfg.Database.Driver, "sqlite")
	}
	if cfg.Database.Path != "/tmp/liftlog-data" {
		t.Errorf("database.path = %q, want %q", cfg.Database.Path, "/tmp/liftlog-data")
	}
}

// TestSQLiteRequiresPath verifies that the sqlite driver rejects a missing
// data directory.
func TestSQLiteRequiresPath(t *testing.T) {
	yaml := `
server:
  port: 8080
database:
  driver: "sqlite"
auth:
  api_key: "k"
`
	if _, err := Load(writeTemp(t, yaml)); err == nil {
		t.Fatal("expected error for sqlite without path")
	}
}

// TestEnvOverride verifies that LIFTLOG_ env vars take precedence over YAML values.
func TestEnvOverride(t *testing.T) {
	t.Setenv("LIFTLOG_SERVER_PORT", "9999")
	t.Setenv("LIFTLOG_DB_PASSWORD", "env-secret")
	t.Setenv("LIFTLOG_AUTH_API_KEY", "env-key")

	cfg, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("server.port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Database.Password != "env-secret" {
		t.Errorf("database.password = %q, want %q", cfg.Database.Password, "env-secret")
	}
	if cfg.Auth.APIKey != "env-key" {
		t.Errorf("auth.api_key = %q, want %q", cfg.Auth.APIKey, "env-key")
	}
}

// TestMissingAPIKey verifies that validation rejects a config without an API key.
func TestMissingAPIKey(t *testing.T) {
	yaml := `
server:
  port: 8080
database:
  driver: "postgres"
  host: "localhost"
  port: 5432
  name: "liftlog"
  user: "liftlog"
`
	if _, err := Load(writeTemp(t, yaml)); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

// TestUnknownDriver verifies that validation rejects unsupported drivers.
func TestUnknownDriver(t *testing.T) {
	yaml := `
server:
  port: 8080
database:
  driver: "mysql"
auth:
  api_key: "k"
`
	if _, err := Load(writeTemp(t, yaml)); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

// TestMissingFile verifies the error path for a nonexistent config file.
func TestMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

// TestDSN verifies the PostgreSQL connection string format.
func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db.example.com", Port: 5432, Name: "liftlog", User: "app", Password: "pw"}
	want := "postgres://app:pw@db.example.com:5432/liftlog?sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}

// TestNegativeTimings verifies that negative engine timings are rejected.
func TestNegativeTimings(t *testing.T) {
	yaml := validYAML + `
engine:
  debounce_ms: -5
`
	if _, err := Load(writeTemp(t, yaml)); err == nil {
		t.Fatal("expected error for negative debounce")
	}
}
