// Package cli builds the crawler subcommands.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pinealan/dna-microarray-db/internal/arrayexpress"
	"github.com/pinealan/dna-microarray-db/internal/blob"
	"github.com/pinealan/dna-microarray-db/internal/config"
	"github.com/pinealan/dna-microarray-db/internal/download"
	"github.com/pinealan/dna-microarray-db/internal/entrez"
	"github.com/pinealan/dna-microarray-db/internal/geo"
	"github.com/pinealan/dna-microarray-db/internal/ingest"
	"github.com/pinealan/dna-microarray-db/internal/paths"
	"github.com/pinealan/dna-microarray-db/internal/store"
)

var (
	// Crawl flags, shared by all subcommands.
	crawlDryRun     bool
	crawlLimit      int
	crawlConfigPath string
)

func addCrawlFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&crawlDryRun, "dry-run", false, "Log actions without writing to the database or blob store")
	cmd.Flags().IntVarP(&crawlLimit, "limit", "n", 0, "Max samples to process (0 = unlimited)")
	cmd.Flags().StringVarP(&crawlConfigPath, "config", "c", "", "Path to a YAML config file")
}

// NewGeoCmd creates the geo subcommand.
func NewGeoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "geo",
		Short: "Crawl GEO for methylation IDAT files",
		Long: `Crawl the Gene Expression Omnibus for samples run on the configured
methylation array platforms, and ingest their raw IDAT files and
metadata into the database and blob store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawl(crawlGEO)
		},
	}
	addCrawlFlags(cmd)
	return cmd
}

// NewArrayExpressCmd creates the arrayexpress subcommand.
func NewArrayExpressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "arrayexpress",
		Short: "Crawl ArrayExpress for methylation IDAT files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawl(crawlArrayExpress)
		},
	}
	addCrawlFlags(cmd)
	return cmd
}

// NewAllCmd creates the all subcommand, crawling both repositories.
func NewAllCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "all",
		Short: "Crawl both GEO and ArrayExpress",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawl(crawlGEO, crawlArrayExpress)
		},
	}
	addCrawlFlags(cmd)
	return cmd
}

// env bundles everything a crawl needs, built once per invocation.
type env struct {
	cfg   config.Config
	log   *slog.Logger
	db    *store.DB
	blob  blob.Store
	fetch *download.Client
}

type crawlFunc func(ctx context.Context, e *env) error

func runCrawl(crawls ...crawlFunc) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "interrupted, stopping after current operation")
		cancel()
	}()

	cfg, err := config.Load(crawlConfigPath)
	if err != nil {
		return err
	}
	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer closeLog()

	fetch := download.NewClient()
	fetch.Dir = paths.GetDownloadsPath()
	e := &env{cfg: cfg, log: logger, fetch: fetch}

	// Dry runs make every decision without touching either sink, so
	// neither needs to be reachable.
	if !crawlDryRun {
		db, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer db.Close()
		e.db = db

		s3Store, err := blob.NewS3(ctx, blob.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			PathStyle:       cfg.S3.PathStyle,
		})
		if err != nil {
			return err
		}
		e.blob = s3Store
	}

	for _, crawl := range crawls {
		if err := crawl(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (e *env) coordinator(repository string) *ingest.Coordinator {
	return &ingest.Coordinator{
		Repository: repository,
		Store:      e.db,
		Blob:       e.blob,
		Fetcher:    e.fetch,
		DryRun:     crawlDryRun,
		Log:        e.log,
	}
}

func crawlGEO(ctx context.Context, e *env) error {
	client := entrez.NewClient()
	coordinator := e.coordinator(geo.Repository)
	coordinator.Resolver = client

	crawler := &geo.Crawler{
		Client:      client,
		Coordinator: coordinator,
		Platforms:   e.cfg.Crawl.Platforms,
		PageSize:    e.cfg.Crawl.PageSize,
		Limit:       crawlLimit,
		Log:         e.log,
	}
	_, err := crawler.Run(ctx)
	return err
}

func crawlArrayExpress(ctx context.Context, e *env) error {
	crawler := &arrayexpress.Crawler{
		Client:      arrayexpress.NewClient(),
		Coordinator: e.coordinator(arrayexpress.Repository),
		PageSize:    e.cfg.Crawl.PageSize,
		Limit:       crawlLimit,
		Log:         e.log,
	}
	_, err := crawler.Run(ctx)
	return err
}
