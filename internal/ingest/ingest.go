// Package ingest coordinates the per-sample ingestion pipeline:
// resolve, candidacy check, enrichment, metadata upsert, and per-file
// download and upload. Every write is idempotent or keyed by
// (sample, filename), so re-running a crawl after a mid-sample crash is
// safe; there is no rollback.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/pinealan/dna-microarray-db/internal/blob"
	"github.com/pinealan/dna-microarray-db/internal/enrich"
	"github.com/pinealan/dna-microarray-db/internal/entrez"
	"github.com/pinealan/dna-microarray-db/internal/errors"
	"github.com/pinealan/dna-microarray-db/internal/soft"
	"github.com/pinealan/dna-microarray-db/internal/store"
)

// Channel markers in supplementary file names. Methylation arrays scan
// each physical sample twice, once per fluorescent dye.
const (
	ChannelGreen = "Grn"
	ChannelRed   = "Red"
)

// OutcomeKind classifies what Process did with a sample.
type OutcomeKind int

const (
	// OutcomeNoDataFiles means the sample failed the candidacy
	// pre-filter and was skipped with no side effects.
	OutcomeNoDataFiles OutcomeKind = iota
	// OutcomeDryRun means all decisions were made and logged but no
	// writes were performed.
	OutcomeDryRun
	// OutcomeIngested means metadata and files were persisted.
	OutcomeIngested
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeNoDataFiles:
		return "no-data-files"
	case OutcomeDryRun:
		return "dry-run-logged"
	case OutcomeIngested:
		return "ingested"
	default:
		return "unknown"
	}
}

// Outcome reports the result of processing one sample.
type Outcome struct {
	Kind  OutcomeKind
	Files int
}

// Resolver fetches a sample record by accession.
type Resolver interface {
	FetchEntity(ctx context.Context, accession string, view entrez.View) (*soft.Entity, error)
}

// Fetcher downloads a file to a temporary path.
type Fetcher interface {
	FetchTemp(ctx context.Context, url string) (string, func(), error)
}

// Coordinator owns all writes to the relational and blob sinks. Store
// and Blob may be nil in dry-run mode; they are never touched then.
type Coordinator struct {
	Repository string
	Resolver   Resolver
	Store      *store.DB
	Blob       blob.Store
	Fetcher    Fetcher
	DryRun     bool
	Log        *slog.Logger
}

// Process resolves, filters, enriches and ingests one sample by its
// repository accession. Failures are returned to the caller, which
// decides between skipping the sample and aborting the crawl.
func (c *Coordinator) Process(ctx context.Context, accession string) (Outcome, error) {
	entity, err := c.Resolver.FetchEntity(ctx, accession, entrez.ViewFull)
	if err != nil {
		return Outcome{}, err
	}

	files := enrich.CandidateFiles(entity)
	if len(files) == 0 {
		c.Log.Info("no data files, skipping sample",
			"repository", c.Repository, "sample", entity.ID)
		return Outcome{Kind: OutcomeNoDataFiles}, nil
	}

	return c.IngestSample(ctx, entity.ID, enrich.Enrich(entity), files)
}

// IngestSample performs the write side of the pipeline for an already
// enriched sample. The secondary crawler enters here with records it
// enriched itself. Within one sample the ordering is fixed: sample
// upsert, then per file register, download, upload, mark uploaded, so
// a crash leaves pending rows, never an uploaded mark without a blob.
func (c *Coordinator) IngestSample(ctx context.Context, sampleID string, sample enrich.Sample, filePaths []string) (Outcome, error) {
	const op = errors.Op("ingest.IngestSample")

	c.Log.Info("upsert sample",
		"repository", c.Repository,
		"sample", sampleID,
		"series", sample.SeriesID,
		"platform", sample.PlatformID,
		"files", len(filePaths))

	var rowID int64
	if !c.DryRun {
		extras, err := store.MarshalExtras(sample.Extras)
		if err != nil {
			return Outcome{}, errors.WrapMsg(op, sampleID, err)
		}
		rowID, err = c.Store.UpsertSample(ctx, &store.Sample{
			RepositoryID:       c.Repository,
			RepositorySampleID: sampleID,
			RepositorySeriesID: store.NullString(sample.SeriesID),
			PlatformID:         store.NullString(sample.PlatformID),
			Gender:             store.NullString(sample.Gender),
			Age:                store.NullString(sample.Age),
			Tissue:             store.NullString(sample.Tissue),
			Disease:            store.NullString(sample.Disease),
			ExtractionProtocol: store.NullString(sample.ExtractionProtocol),
			Extras:             extras,
		})
		if err != nil {
			return Outcome{}, err
		}
	}

	for _, rawPath := range filePaths {
		if err := c.ingestFile(ctx, rowID, sampleID, rawPath); err != nil {
			return Outcome{}, err
		}
	}

	if c.DryRun {
		return Outcome{Kind: OutcomeDryRun, Files: len(filePaths)}, nil
	}
	return Outcome{Kind: OutcomeIngested, Files: len(filePaths)}, nil
}

// ingestFile registers, downloads and uploads a single supplementary
// file. The temp file is removed on every exit path.
func (c *Coordinator) ingestFile(ctx context.Context, sampleRowID int64, sampleID, rawPath string) error {
	sourceURL := RewriteFTP(rawPath)
	filename := path.Base(sourceURL)

	channel, err := ChannelFromFilename(filename)
	if err != nil {
		return err
	}
	key := c.Repository + "/" + sampleID + "/" + filename

	c.Log.Info("upload file",
		"repository", c.Repository,
		"sample", sampleID,
		"source", sourceURL,
		"channel", channel,
		"key", key)

	if c.DryRun {
		return nil
	}

	fileID, err := c.Store.InsertIDATFile(ctx, &store.IDATFile{
		SampleID:  sampleRowID,
		SourceURL: sourceURL,
		Channel:   store.NullString(channel),
	})
	if err != nil {
		return err
	}

	local, cleanup, err := c.Fetcher.FetchTemp(ctx, sourceURL)
	if err != nil {
		return err
	}
	defer cleanup()

	f, err := os.Open(local)
	if err != nil {
		return errors.E(errors.Op("ingest.ingestFile"), errors.KindStorage, err)
	}
	defer f.Close()

	if err := c.Blob.Put(ctx, key, f); err != nil {
		return err
	}
	return c.Store.MarkUploaded(ctx, fileID, key)
}

// RewriteFTP swaps an ftp:// prefix for https://. The GEO mirror serves
// the same paths over both and the FTP face drops connections under
// load.
func RewriteFTP(url string) string {
	if rest, ok := strings.CutPrefix(url, "ftp://"); ok {
		return "https://" + rest
	}
	return url
}

// ChannelFromFilename derives the channel from the _Grn/_Red marker in
// a supplementary file name.
func ChannelFromFilename(filename string) (string, error) {
	const op = errors.Op("ingest.ChannelFromFilename")

	switch {
	case strings.Contains(filename, "_"+ChannelGreen):
		return ChannelGreen, nil
	case strings.Contains(filename, "_"+ChannelRed):
		return ChannelRed, nil
	default:
		return "", errors.E(op, errors.KindChannel,
			fmt.Sprintf("no channel marker in filename %s", filename))
	}
}
