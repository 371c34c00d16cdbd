// Package config assembles runtime configuration for the crawlers.
// Values come from the environment (optionally seeded from a .env
// file), with an optional YAML file underneath for the settings that
// rarely change per deployment. Environment always wins.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pinealan/dna-microarray-db/internal/errors"
	"github.com/pinealan/dna-microarray-db/internal/paths"
)

// Config holds everything the crawlers need to run.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	S3       S3Config       `yaml:"s3"`
	Crawl    CrawlConfig    `yaml:"crawl"`

	LogLevel slog.Level `yaml:"-"`
	LogFile  string     `yaml:"log_file"`
}

// DatabaseConfig selects the relational store.
type DatabaseConfig struct {
	// Driver is a database/sql driver name: pgx or sqlite3.
	Driver string `yaml:"driver"`
	URL    string `yaml:"url"`
}

// S3Config points at the blob store bucket.
type S3Config struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	AccessKeyID     string `yaml:"-"`
	SecretAccessKey string `yaml:"-"`
	PathStyle       bool   `yaml:"path_style"`
}

// CrawlConfig tunes discovery.
type CrawlConfig struct {
	// Platforms lists the instrument platform accessions whose
	// samples are collected.
	Platforms []string `yaml:"platforms"`
	PageSize  int      `yaml:"page_size"`
}

// Default returns the built-in configuration: the three human
// methylation array platforms GEO hosts at scale.
func Default() Config {
	return Config{
		Database: DatabaseConfig{Driver: "pgx"},
		S3:       S3Config{Region: "us-east-1"},
		Crawl: CrawlConfig{
			Platforms: []string{
				"GPL13534", // HumanMethylation450
				"GPL16304", // HumanMethylation450 BeadChip
				"GPL21145", // MethylationEPIC
			},
			PageSize: 500,
		},
		LogLevel: slog.LevelInfo,
	}
}

// Load builds the configuration: defaults, then the YAML file at path,
// then environment variables. When path is empty the default location
// under the user config dir is read if it exists. A .env file in the
// working directory is folded into the environment first.
func Load(path string) (Config, error) {
	const op = errors.Op("config.Load")

	// Missing .env is the normal case outside development.
	_ = godotenv.Load()

	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = paths.GetConfigPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.E(op, errors.KindConfig, err, "malformed config file")
		}
	case explicit:
		return cfg, errors.E(op, errors.KindConfig, err)
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Database.Driver, "DATABASE_DRIVER")
	setString(&c.S3.Endpoint, "S3_ENDPOINT_URL")
	setString(&c.S3.Region, "S3_REGION")
	setString(&c.S3.Bucket, "S3_BUCKET")
	setString(&c.S3.AccessKeyID, "AWS_ACCESS_KEY_ID")
	setString(&c.S3.SecretAccessKey, "AWS_SECRET_ACCESS_KEY")
	setString(&c.LogFile, "LOG_FILE")

	if v := os.Getenv("S3_PATH_STYLE"); v != "" {
		c.S3.PathStyle, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("CRAWL_PLATFORMS"); v != "" {
		c.Crawl.Platforms = splitList(v)
	}
	if v := os.Getenv("CRAWL_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Crawl.PageSize = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = parseLogLevel(v)
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseLogLevel(v string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
