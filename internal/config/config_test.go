package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadConfigSheets(t *testing.T) {
	path := writeConfig(t, `
server:
  address: ":8080"
sheets:
  spreadsheet_id: "abc"
  credentials_file: "/etc/tripbot/sa.json"
redis:
  addr: "localhost:6379"
  db: 2
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":8080" || cfg.Store.Backend != BackendSheets || cfg.Sheets.Tab != "viagens" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Redis.DB != 2 {
		t.Fatalf("redis section not parsed: %+v", cfg.Redis)
	}
}

func TestLoadConfigPostgresDriverDefault(t *testing.T) {
	path := writeConfig(t, `
store:
  backend: postgres
database:
  url: "postgres://bot@localhost/trips"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Driver != "pgx" {
		t.Fatalf("expected pgx driver, got %q", cfg.Database.Driver)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("defaults without a spreadsheet id must fail validation")
	}
	if _, err := LoadConfig(writeConfig(t, "store: [")); err == nil {
		t.Fatalf("expected yaml error")
	}
	if _, err := LoadConfig(writeConfig(t, "store:\n  backend: mongo\n")); err == nil {
		t.Fatalf("expected unknown backend error")
	}
}
