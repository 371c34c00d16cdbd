package geo

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/pinealan/dna-microarray-db/internal/blob"
	"github.com/pinealan/dna-microarray-db/internal/download"
	"github.com/pinealan/dna-microarray-db/internal/entrez"
	"github.com/pinealan/dna-microarray-db/internal/ingest"
	"github.com/pinealan/dna-microarray-db/internal/store"
)

func TestSearchTerm(t *testing.T) {
	got := SearchTerm([]string{"GPL13534", "GPL21145"})
	want := "(GPL13534[accn] OR GPL21145[accn]) AND idat[suppFile]"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

// crawlServer simulates the discovery, summary, accession and file
// endpoints for a single series with two samples.
func crawlServer(t *testing.T) *httptest.Server {
	t.Helper()

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/esearch.fcgi":
			if r.URL.Query().Get("retstart") == "0" {
				fmt.Fprint(w, `{"esearchresult": {"idlist": ["200001"]}}`)
			} else {
				fmt.Fprint(w, `{"esearchresult": {"idlist": []}}`)
			}

		case "/esummary.fcgi":
			fmt.Fprint(w, `{"result": {"200001": {"uid": "200001", "accession": "GSE1"}}}`)

		case "/acc.cgi":
			switch r.URL.Query().Get("acc") {
			case "GSE1":
				fmt.Fprint(w, "^SERIES = GSE1\n"+
					"!Series_title = methylation study\n"+
					"!Series_sample_id = GSM100\n"+
					"!Series_sample_id = GSM200\n")
			case "GSM100":
				fmt.Fprintf(w, "^SAMPLE = GSM100\n"+
					"!Sample_series_id = GSE1\n"+
					"!Sample_platform_id = GPL13534\n"+
					"!Sample_characteristics_ch1 = tissue: whole blood\n"+
					"!Sample_characteristics_ch1 = sex: F\n"+
					"!Sample_supplementary_file = %s/files/GSM100_Grn.idat.gz\n"+
					"!Sample_supplementary_file = %s/files/GSM100_Red.idat.gz\n",
					server.URL, server.URL)
			case "GSM200":
				// Not an ingestion candidate.
				fmt.Fprint(w, "^SAMPLE = GSM200\n"+
					"!Sample_series_id = GSE1\n"+
					"!Sample_supplementary_file = NONE\n")
			default:
				http.NotFound(w, r)
			}

		case "/files/GSM100_Grn.idat.gz", "/files/GSM100_Red.idat.gz":
			w.Write([]byte("binary intensities"))

		default:
			http.NotFound(w, r)
		}
	}))
	return server
}

func newTestCrawler(t *testing.T, server *httptest.Server, dryRun bool) (*Crawler, *store.DB, *blob.Mock) {
	t.Helper()

	client := entrez.NewClient()
	client.EUtilsBase = server.URL
	client.AccessionBase = server.URL + "/acc.cgi"
	client.FTPBase = server.URL + "/geo"

	db, err := store.Open(context.Background(), store.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	mock := blob.NewMock()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	return &Crawler{
		Client: client,
		Coordinator: &ingest.Coordinator{
			Repository: Repository,
			Resolver:   client,
			Store:      db,
			Blob:       mock,
			Fetcher:    download.NewClient(),
			DryRun:     dryRun,
			Log:        logger,
		},
		Platforms: []string{"GPL13534"},
		PageSize:  10,
		Log:       logger,
	}, db, mock
}

func TestCrawlEndToEnd(t *testing.T) {
	server := crawlServer(t)
	defer server.Close()

	crawler, db, mock := newTestCrawler(t, server, false)
	stats, err := crawler.Run(context.Background())
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	if stats.Series != 1 || stats.Samples != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.Ingested != 1 || stats.Skipped != 1 || stats.Failed != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.FilesDone != 2 {
		t.Errorf("expected 2 files, got %d", stats.FilesDone)
	}

	ctx := context.Background()
	row, err := db.GetSample(ctx, "GEO", "GSM100")
	if err != nil {
		t.Fatalf("sample missing: %v", err)
	}
	if row.Gender.String != "female" || row.RepositorySeriesID.String != "GSE1" {
		t.Errorf("unexpected row: %+v", row)
	}

	if _, err := db.GetSample(ctx, "GEO", "GSM200"); err == nil {
		t.Error("non-candidate sample must not be persisted")
	}

	if mock.Len() != 2 {
		t.Errorf("expected 2 blobs, got %d", mock.Len())
	}
	if data, ok := mock.Object("GEO/GSM100/GSM100_Grn.idat.gz"); !ok || string(data) != "binary intensities" {
		t.Error("blob content mismatch")
	}
}

func TestCrawlDryRun(t *testing.T) {
	server := crawlServer(t)
	defer server.Close()

	crawler, db, mock := newTestCrawler(t, server, true)
	stats, err := crawler.Run(context.Background())
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	// Same decisions as live mode.
	if stats.Ingested != 1 || stats.Skipped != 1 || stats.FilesDone != 2 {
		t.Errorf("dry run decisions should match live mode: %+v", stats)
	}

	if n, _ := db.CountSamples(context.Background(), "GEO"); n != 0 {
		t.Errorf("dry run must not write rows, got %d", n)
	}
	if mock.Len() != 0 {
		t.Errorf("dry run must not upload blobs, got %d", mock.Len())
	}
}

func TestCrawlLimit(t *testing.T) {
	server := crawlServer(t)
	defer server.Close()

	crawler, _, _ := newTestCrawler(t, server, true)
	crawler.Limit = 1

	stats, err := crawler.Run(context.Background())
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}
	if stats.Samples != 1 {
		t.Errorf("limit should cap samples processed, got %d", stats.Samples)
	}
}

func TestCrawlDiscoveryFailureIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	crawler, _, _ := newTestCrawler(t, server, true)
	if _, err := crawler.Run(context.Background()); err == nil {
		t.Fatal("discovery failure must abort the crawl")
	}
}

func TestCrawlSeriesResolutionFailureIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/esearch.fcgi":
			if r.URL.Query().Get("retstart") == "0" {
				fmt.Fprint(w, `{"esearchresult": {"idlist": ["200001"]}}`)
			} else {
				fmt.Fprint(w, `{"esearchresult": {"idlist": []}}`)
			}
		case "/esummary.fcgi":
			fmt.Fprint(w, `{"result": {"200001": {"uid": "200001", "accession": "GSE1"}}}`)
		default:
			// Series lookup returns nothing.
			fmt.Fprint(w, "\n")
		}
	}))
	defer server.Close()

	crawler, _, _ := newTestCrawler(t, server, true)
	if _, err := crawler.Run(context.Background()); err == nil {
		t.Fatal("series resolution failure must abort the crawl")
	}
}

func TestCrawlSampleFailureContinues(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/esearch.fcgi":
			if r.URL.Query().Get("retstart") == "0" {
				fmt.Fprint(w, `{"esearchresult": {"idlist": ["200001"]}}`)
			} else {
				fmt.Fprint(w, `{"esearchresult": {"idlist": []}}`)
			}
		case "/esummary.fcgi":
			fmt.Fprint(w, `{"result": {"200001": {"uid": "200001", "accession": "GSE1"}}}`)
		case "/acc.cgi":
			switch r.URL.Query().Get("acc") {
			case "GSE1":
				fmt.Fprint(w, "^SERIES = GSE1\n"+
					"!Series_sample_id = GSM100\n"+
					"!Series_sample_id = GSM200\n")
			case "GSM100":
				// Sample lookup comes back empty: per-sample failure.
				fmt.Fprint(w, "\n")
			case "GSM200":
				fmt.Fprint(w, "^SAMPLE = GSM200\n"+
					"!Sample_supplementary_file = NONE\n")
			}
		}
	}))
	defer server.Close()

	crawler, _, _ := newTestCrawler(t, server, true)
	stats, err := crawler.Run(context.Background())
	if err != nil {
		t.Fatalf("per-sample failure must not abort the crawl: %v", err)
	}
	if stats.Failed != 1 || stats.Skipped != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
