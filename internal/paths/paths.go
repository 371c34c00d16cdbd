package paths

import (
	"os"
	"path/filepath"
)

type Paths struct {
	ConfigDir string
	CacheDir  string
}

// GetPaths returns the base directories respecting environment variables
func GetPaths() Paths {
	return Paths{
		ConfigDir: getDir("MICROARRAYDB_CONFIG_HOME", "XDG_CONFIG_HOME", ".config", "microarraydb"),
		CacheDir:  getDir("MICROARRAYDB_CACHE_HOME", "XDG_CACHE_HOME", ".cache", "microarraydb"),
	}
}

func getDir(appEnv, xdgEnv, defaultBase, appName string) string {
	// 1. Check app-specific env
	if dir := os.Getenv(appEnv); dir != "" {
		return dir
	}

	// 2. Check XDG env
	if xdgBase := os.Getenv(xdgEnv); xdgBase != "" {
		return filepath.Join(xdgBase, appName)
	}

	// 3. Use default
	home, _ := os.UserHomeDir()
	return filepath.Join(home, defaultBase, appName)
}

// GetConfigPath returns the default config file location.
func GetConfigPath() string {
	return filepath.Join(GetPaths().ConfigDir, "config.yml")
}

// GetDownloadsPath returns the directory used for in-flight downloads.
func GetDownloadsPath() string {
	return filepath.Join(GetPaths().CacheDir, "downloads")
}
