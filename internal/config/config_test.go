package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if cfg.Database.Driver != "pgx" {
		t.Errorf("unexpected default driver: %s", cfg.Database.Driver)
	}
	if len(cfg.Crawl.Platforms) != 3 {
		t.Errorf("expected 3 default platforms, got %v", cfg.Crawl.Platforms)
	}
	if cfg.Crawl.PageSize != 500 {
		t.Errorf("unexpected default page size: %d", cfg.Crawl.PageSize)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
database:
  driver: sqlite3
  url: ./local.db
s3:
  bucket: methylation-raw
  endpoint: https://nyc3.digitaloceanspaces.com
crawl:
  platforms: [GPL13534]
  page_size: 50
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Database.Driver != "sqlite3" || cfg.Database.URL != "./local.db" {
		t.Errorf("unexpected database config: %+v", cfg.Database)
	}
	if cfg.S3.Bucket != "methylation-raw" {
		t.Errorf("unexpected s3 config: %+v", cfg.S3)
	}
	if !reflect.DeepEqual(cfg.Crawl.Platforms, []string{"GPL13534"}) {
		t.Errorf("unexpected platforms: %v", cfg.Crawl.Platforms)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("database:\n  url: from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DATABASE_URL", "postgres://env-wins/db")
	t.Setenv("CRAWL_PLATFORMS", "GPL21145, GPL16304")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Database.URL != "postgres://env-wins/db" {
		t.Errorf("environment should win over file, got %q", cfg.Database.URL)
	}
	if !reflect.DeepEqual(cfg.Crawl.Platforms, []string{"GPL21145", "GPL16304"}) {
		t.Errorf("unexpected platforms: %v", cfg.Crawl.Platforms)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("unexpected log level: %v", cfg.LogLevel)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadDefaultLocation(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MICROARRAYDB_CONFIG_HOME", dir)

	// Nothing at the default location is fine.
	if _, err := Load(""); err != nil {
		t.Fatalf("Load without a config file: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "config.yml"), []byte("database:\n  driver: sqlite3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver != "sqlite3" {
		t.Errorf("default-location config not applied, driver = %q", cfg.Database.Driver)
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"Warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
