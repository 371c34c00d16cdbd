package arrayexpress

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pinealan/dna-microarray-db/internal/blob"
	"github.com/pinealan/dna-microarray-db/internal/download"
	"github.com/pinealan/dna-microarray-db/internal/ingest"
	"github.com/pinealan/dna-microarray-db/internal/store"
)

func TestFilesBase(t *testing.T) {
	c := NewClient()
	got := c.FilesBase("E-MTAB-12345")
	want := DefaultFTPBase + "/E-MTAB-/345/E-MTAB-12345/Files/"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

const testSDRF = "Source Name\tCharacteristics[organism part]\tCharacteristics[sex]\tCharacteristics[age]\tArray Data File\n" +
	"sample1\twhole blood\tfemale\t41\tsample1_Grn.idat\n" +
	"sample1\twhole blood\tfemale\t41\tsample1_Red.idat\n" +
	"sample2\tsaliva\tunknown\t\tsample2.txt\n"

func TestParseSDRF(t *testing.T) {
	rows, err := parseSDRF(strings.NewReader(testSDRF))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].SampleID != "sample1" || rows[0].DataFile != "sample1_Grn.idat" {
		t.Errorf("unexpected row: %+v", rows[0])
	}
	if rows[0].Characteristics["organism part"] != "whole blood" {
		t.Errorf("unexpected characteristics: %v", rows[0].Characteristics)
	}
	if _, ok := rows[2].Characteristics["age"]; ok {
		t.Error("empty characteristic cells should be dropped")
	}
}

func TestParseSDRFMissingColumns(t *testing.T) {
	_, err := parseSDRF(strings.NewReader("Foo\tBar\nx\ty\n"))
	if err == nil {
		t.Fatal("expected error for missing required columns")
	}
}

func TestGroupBySample(t *testing.T) {
	rows, _ := parseSDRF(strings.NewReader(testSDRF))
	groups := groupBySample(rows)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].sampleID != "sample1" || len(groups[0].files) != 2 {
		t.Errorf("unexpected group: %+v", groups[0])
	}
}

func TestEnrichRow(t *testing.T) {
	s := enrichRow("E-MTAB-1", map[string]string{
		"organism part": "whole blood",
		"sex":           "F",
		"age":           "41",
		"genotype":      "wild type",
	})
	if s.SeriesID != "E-MTAB-1" || s.Tissue != "whole blood" || s.Gender != "female" || s.Age != "41" {
		t.Errorf("unexpected sample: %+v", s)
	}
	if s.Extras["genotype"] != "wild type" {
		t.Errorf("unmapped characteristic should land in extras: %v", s.Extras)
	}

	s = enrichRow("E-MTAB-1", map[string]string{"sex": "not specified"})
	if s.Gender != "" {
		t.Errorf("unrecognized gender should be absent, got %q", s.Gender)
	}
}

func TestCrawlEndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/search":
			if r.URL.Query().Get("page") == "1" {
				fmt.Fprint(w, `{"hits": [{"accession": "E-MTAB-100", "title": "methylation study"}]}`)
			} else {
				fmt.Fprint(w, `{"hits": []}`)
			}
		case strings.HasSuffix(r.URL.Path, "E-MTAB-100.sdrf.txt"):
			fmt.Fprint(w, testSDRF)
		case strings.HasSuffix(r.URL.Path, ".idat"):
			w.Write([]byte("binary intensities"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient()
	client.SearchBase = server.URL + "/search"
	client.FTPBase = server.URL + "/fire"

	db, err := store.Open(context.Background(), store.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer db.Close()

	mock := blob.NewMock()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	crawler := &Crawler{
		Client: client,
		Coordinator: &ingest.Coordinator{
			Repository: Repository,
			Store:      db,
			Blob:       mock,
			Fetcher:    download.NewClient(),
			Log:        logger,
		},
		PageSize: 10,
		Log:      logger,
	}

	stats, err := crawler.Run(context.Background())
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}
	if stats.Studies != 1 || stats.Samples != 2 || stats.Ingested != 1 || stats.Skipped != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	ctx := context.Background()
	row, err := db.GetSample(ctx, Repository, "sample1")
	if err != nil {
		t.Fatalf("sample missing: %v", err)
	}
	if row.Tissue.String != "whole blood" || row.Gender.String != "female" {
		t.Errorf("unexpected row: %+v", row)
	}

	if mock.Len() != 2 {
		t.Errorf("expected 2 blobs, got %d", mock.Len())
	}
	if _, ok := mock.Object("ArrayExpress/sample1/sample1_Grn.idat"); !ok {
		t.Error("blob missing under deterministic key")
	}
}
