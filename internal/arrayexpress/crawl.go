package arrayexpress

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pinealan/dna-microarray-db/internal/enrich"
	"github.com/pinealan/dna-microarray-db/internal/errors"
	"github.com/pinealan/dna-microarray-db/internal/ingest"
)

// dataFileMarker identifies raw intensity files among SDRF data files.
const dataFileMarker = "idat"

// Stats counts what a crawl did.
type Stats struct {
	Studies  int
	Samples  int
	Ingested int
	Skipped  int
	Failed   int
}

// Crawler walks ArrayExpress discovery results and ingests every
// qualifying sample through the shared coordinator.
type Crawler struct {
	Client      *Client
	Coordinator *ingest.Coordinator
	PageSize    int
	// Limit caps the number of samples processed; 0 means no cap.
	Limit int
	Log   *slog.Logger
}

// Run crawls until discovery is exhausted or the sample limit is hit.
// Discovery failures abort the crawl; a study whose SDRF cannot be
// fetched or parsed is logged and skipped, as are individual samples.
func (c *Crawler) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	c.Log.Info("starting ArrayExpress crawl", "page_size", c.PageSize, "limit", c.Limit)

	for page := 1; ; page++ {
		studies, err := c.Client.ListStudies(ctx, page, c.PageSize)
		if err != nil {
			return stats, err
		}
		if len(studies) == 0 {
			break
		}
		for _, study := range studies {
			done, err := c.crawlStudy(ctx, study, &stats)
			if err != nil {
				return stats, err
			}
			if done {
				c.Log.Info("sample limit reached", "limit", c.Limit)
				return stats, nil
			}
		}
	}

	c.Log.Info("ArrayExpress crawl finished",
		"studies", stats.Studies,
		"samples", stats.Samples,
		"ingested", stats.Ingested,
		"skipped", stats.Skipped,
		"failed", stats.Failed)
	return stats, nil
}

func (c *Crawler) crawlStudy(ctx context.Context, study Study, stats *Stats) (bool, error) {
	rows, err := c.Client.FetchSDRF(ctx, study.Accession)
	if err != nil {
		stats.Failed++
		c.Log.Error("study failed, continuing",
			"study", study.Accession, "kind", errors.GetKind(err).String(), "err", err)
		return false, nil
	}
	stats.Studies++

	filesBase := c.Client.FilesBase(study.Accession)
	for _, group := range groupBySample(rows) {
		if c.Limit > 0 && stats.Samples >= c.Limit {
			return true, nil
		}
		stats.Samples++

		files := candidateFiles(group.files, filesBase)
		if len(files) == 0 {
			c.Log.Info("no data files, skipping sample",
				"repository", Repository, "sample", group.sampleID)
			stats.Skipped++
			continue
		}

		sample := enrichRow(study.Accession, group.characteristics)
		outcome, err := c.Coordinator.IngestSample(ctx, group.sampleID, sample, files)
		if err != nil {
			if errors.Fatal(err) {
				return false, err
			}
			stats.Failed++
			c.Log.Error("sample failed, continuing",
				"sample", group.sampleID, "kind", errors.GetKind(err).String(), "err", err)
			continue
		}
		if outcome.Kind == ingest.OutcomeIngested || outcome.Kind == ingest.OutcomeDryRun {
			stats.Ingested++
		}
	}
	return false, nil
}

type sampleGroup struct {
	sampleID        string
	files           []string
	characteristics map[string]string
}

// groupBySample collapses the per-(sample, file) SDRF rows into one
// group per sample, preserving first-seen sample order.
func groupBySample(rows []SDRFRow) []*sampleGroup {
	var (
		order  []*sampleGroup
		byName = map[string]*sampleGroup{}
	)
	for _, row := range rows {
		g, ok := byName[row.SampleID]
		if !ok {
			g = &sampleGroup{
				sampleID:        row.SampleID,
				characteristics: row.Characteristics,
			}
			byName[row.SampleID] = g
			order = append(order, g)
		}
		if row.DataFile != "" {
			g.files = append(g.files, row.DataFile)
		}
	}
	return order
}

func candidateFiles(filenames []string, base string) []string {
	var files []string
	for _, name := range filenames {
		if strings.Contains(strings.ToLower(name), dataFileMarker) {
			files = append(files, base+name)
		}
	}
	return files
}

// enrichRow maps SDRF characteristics onto the structured sample
// fields, mirroring the GEO enrichment vocabulary.
func enrichRow(seriesID string, characteristics map[string]string) enrich.Sample {
	s := enrich.Sample{SeriesID: seriesID}

	extras := map[string]any{}
	for label, value := range characteristics {
		switch label {
		case "organism part", "tissue":
			if s.Tissue == "" {
				s.Tissue = value
				continue
			}
		case "disease", "diagnosis":
			if s.Disease == "" {
				s.Disease = value
				continue
			}
		case "sex", "gender":
			if s.Gender == "" {
				s.Gender = enrich.NormalizeGender(value)
				continue
			}
		case "age":
			if s.Age == "" {
				s.Age = value
				continue
			}
		}
		extras[label] = value
	}
	if len(extras) > 0 {
		s.Extras = extras
	}
	return s
}
