package paths

import (
	"strings"
	"testing"
)

func TestGetPaths(t *testing.T) {
	p := GetPaths()

	if p.ConfigDir == "" {
		t.Error("ConfigDir should not be empty")
	}
	if p.CacheDir == "" {
		t.Error("CacheDir should not be empty")
	}

	// All paths should contain "microarraydb"
	if !strings.Contains(p.ConfigDir, "microarraydb") {
		t.Errorf("ConfigDir should contain 'microarraydb', got %q", p.ConfigDir)
	}
	if !strings.Contains(p.CacheDir, "microarraydb") {
		t.Errorf("CacheDir should contain 'microarraydb', got %q", p.CacheDir)
	}
}

func TestGetPathsWithAppEnv(t *testing.T) {
	t.Setenv("MICROARRAYDB_CONFIG_HOME", "/custom/config")
	t.Setenv("MICROARRAYDB_CACHE_HOME", "/custom/cache")

	p := GetPaths()

	if p.ConfigDir != "/custom/config" {
		t.Errorf("expected ConfigDir '/custom/config', got %q", p.ConfigDir)
	}
	if p.CacheDir != "/custom/cache" {
		t.Errorf("expected CacheDir '/custom/cache', got %q", p.CacheDir)
	}
}

func TestGetPathsWithXDGEnv(t *testing.T) {
	// Clear app-specific vars to test XDG fallback
	t.Setenv("MICROARRAYDB_CONFIG_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")

	p := GetPaths()
	if p.ConfigDir != "/xdg/config/microarraydb" {
		t.Errorf("expected ConfigDir '/xdg/config/microarraydb', got %q", p.ConfigDir)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("MICROARRAYDB_CONFIG_HOME", "/etc/microarraydb")

	path := GetConfigPath()
	if path != "/etc/microarraydb/config.yml" {
		t.Errorf("expected '/etc/microarraydb/config.yml', got %q", path)
	}
}

func TestGetDownloadsPath(t *testing.T) {
	path := GetDownloadsPath()
	if path == "" {
		t.Error("GetDownloadsPath should not return empty string")
	}
	if !strings.HasSuffix(path, "downloads") {
		t.Errorf("expected path to end with 'downloads', got %q", path)
	}
}
