// Package geo drives the crawl of the Gene Expression Omnibus: discover
// candidate series for the configured platforms, resolve each series to
// its samples and hand every sample to the ingestion coordinator.
//
// GEO identifier shapes, for orientation:
//
//	GPLxxx  platform (e.g. GPL13534 HumanMethylation450)
//	GSMxxx  sample run on a platform
//	GSExxx  series of samples
package geo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pinealan/dna-microarray-db/internal/entrez"
	"github.com/pinealan/dna-microarray-db/internal/errors"
	"github.com/pinealan/dna-microarray-db/internal/ingest"
)

// Repository is the namespace GEO rows are stored under.
const Repository = "GEO"

// attribute on a SERIES entity listing its child samples, after prefix
// stripping.
const attrSampleID = "sample_id"

// Stats counts what a crawl did.
type Stats struct {
	Series    int
	Samples   int
	Ingested  int
	Skipped   int
	Failed    int
	FilesDone int
}

// Crawler walks the discovery results and processes every sample once.
type Crawler struct {
	Client      *entrez.Client
	Coordinator *ingest.Coordinator
	Platforms   []string
	PageSize    int
	// Limit caps the number of samples processed; 0 means no cap.
	Limit int
	Log   *slog.Logger
}

/// SearchTerm builds the discovery query: any of the configured platform
// accessions, restricted to records with idat supplementary files.
func SearchTerm(platforms []string) string {
	clauses := make([]string, len(platforms))
	for i, p := range platforms {
		clauses[i] = p + "[accn]"
	}
	return "(" + strings.Join(clauses, " OR ") + ") AND idat[suppFile]"
}

// Run crawls until discovery is exhausted or the sample limit is hit.
// Discovery and series-resolution failures abort the crawl; per-sample
// failures are logged and skipped.
func (c *Crawler) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	term := SearchTerm(c.Platforms)
	c.Log.Info("starting GEO crawl", "term", term, "page_size", c.PageSize, "limit", c.Limit)

	pager := c.Client.Search(term, c.PageSize)
	for {
		page, err := pager.Next(ctx)
		if err != nil {
			return stats, err
		}
		if page == nil {
			break
		}
		for _, id := range page {
			done, err := c.crawlSeries(ctx, id, &stats)
			if err != nil {
				return stats, err
			}
			if done {
				c.Log.Info("sample limit reached", "limit", c.Limit)
				return stats, nil
			}
		}
	}

	c.Log.Info("GEO crawl finished",
		"series", stats.Series,
		"samples", stats.Samples,
		"ingested", stats.Ingested,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"files", stats.FilesDone)
	return stats, nil
}

// crawlSeries resolves one discovery id to a series record and
// processes its samples. Returns done=true once the limit is reached.
// Errors during series resolution are crawl-fatal by policy; there is
// no partial platform skip.
func (c *Crawler) crawlSeries(ctx context.Context, id string, stats *Stats) (bool, error) {
	summary, err := c.Client.FetchSummary(ctx, id)
	if err != nil {
		return false, err
	}
	if summary.Accession == "" {
		return false, errors.E(errors.Op("geo.crawlSeries"), errors.KindSummary,
			fmt.Sprintf("summary for id %s has no accession", id))
	}

	series, err := c.Client.FetchEntity(ctx, summary.Accession, entrez.ViewBrief)
	if err != nil {
		return false, err
	}
	stats.Series++

	samples, ok := series.Attr(attrSampleID)
	if !ok {
		c.Log.Info("series lists no samples", "series", series.ID)
		return false, nil
	}

	for _, sampleAcc := range samples.Strings() {
		if c.Limit > 0 && stats.Samples >= c.Limit {
			return true, nil
		}
		stats.Samples++

		outcome, err := c.Coordinator.Process(ctx, sampleAcc)
		if err != nil {
			if errors.Fatal(err) {
				return false, err
			}
			stats.Failed++
			c.Log.Error("sample failed, continuing",
				"sample", sampleAcc, "kind", errors.GetKind(err).String(), "err", err)
			continue
		}

		switch outcome.Kind {
		case ingest.OutcomeNoDataFiles:
			stats.Skipped++
		case ingest.OutcomeIngested, ingest.OutcomeDryRun:
			stats.Ingested++
			stats.FilesDone += outcome.Files
		}
	}
	return false, nil
}
