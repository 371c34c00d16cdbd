// Package arrayexpress crawls the ArrayExpress collection of the EBI
// BioStudies repository, the secondary source of methylation array
// samples. It is a structurally simpler sibling of the GEO crawler:
// study discovery is a JSON search API and per-sample metadata comes
// from the study's SDRF table instead of a SOFT record.
package arrayexpress

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pinealan/dna-microarray-db/internal/errors"
)

// Repository is the namespace ArrayExpress rows are stored under.
const Repository = "ArrayExpress"

const (
	// DefaultSearchBase is the BioStudies search API for the
	// ArrayExpress collection.
	DefaultSearchBase = "https://www.ebi.ac.uk/biostudies/api/v1/arrayexpress/search"
	// DefaultFTPBase is the HTTPS face of the BioStudies file store.
	DefaultFTPBase = "https://ftp.ebi.ac.uk/biostudies/fire"
)

// Search facets narrowing discovery to methylation array studies with
// raw intensity files.
const (
	facetStudyType = "methylation profiling by array"
	facetFileType  = "idat"
)

// Client issues read-only requests against the BioStudies endpoints.
type Client struct {
	SearchBase string
	FTPBase    string

	httpClient *http.Client
}

// NewClient returns a Client against the production endpoints.
func NewClient() *Client {
	return &Client{
		SearchBase: DefaultSearchBase,
		FTPBase:    DefaultFTPBase,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Study is one discovery hit.
type Study struct {
	Accession string `json:"accession"`
	Title     string `json:"title"`
}

// ListStudies fetches one page of matching studies. Pages are
// 1-indexed; an empty slice means discovery is exhausted.
func (c *Client) ListStudies(ctx context.Context, page, pageSize int) ([]Study, error) {
	const op = errors.Op("arrayexpress.ListStudies")

	params := url.Values{
		"facet.study_type": {facetStudyType},
		"facet.file_type":  {facetFileType},
		"page":             {strconv.Itoa(page)},
		"pageSize":         {strconv.Itoa(pageSize)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.SearchBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.E(op, errors.KindDiscovery, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.E(op, errors.KindNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.E(op, errors.KindDiscovery,
			fmt.Sprintf("search failed with status %s", resp.Status))
	}

	var envelope struct {
		Hits []Study `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, errors.E(op, errors.KindDiscovery, err, "malformed search response")
	}
	return envelope.Hits, nil
}

// FilesBase returns the file directory of a study in the BioStudies
// store. Accessions shard by collection prefix and the last three
// characters: E-MTAB-12345 lives under fire/E-MTAB-/345/E-MTAB-12345/Files/.
func (c *Client) FilesBase(accession string) string {
	parts := strings.SplitN(accession, "-", 3)
	prefix := accession
	if len(parts) == 3 {
		prefix = parts[0] + "-" + parts[1] + "-"
	}
	suffix := accession
	if len(accession) > 3 {
		suffix = accession[len(accession)-3:]
	}
	return c.FTPBase + "/" + prefix + "/" + suffix + "/" + accession + "/Files/"
}

// SDRFRow is one row of a study's sample-and-data-relationship table.
type SDRFRow struct {
	SampleID        string
	DataFile        string
	Characteristics map[string]string
}

// FetchSDRF downloads and parses a study's SDRF table, a tab-separated
// file with one row per (sample, data file) pair. Characteristics
// columns are collected under their bracketed label, lower-cased.
func (c *Client) FetchSDRF(ctx context.Context, accession string) ([]SDRFRow, error) {
	const op = errors.Op("arrayexpress.FetchSDRF")

	sdrfURL := c.FilesBase(accession) + accession + ".sdrf.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sdrfURL, nil)
	if err != nil {
		return nil, errors.E(op, errors.KindNetwork, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.E(op, errors.KindNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.E(op, errors.KindNetwork,
			fmt.Sprintf("sdrf fetch for %s failed with status %s", accession, resp.Status))
	}
	rows, err := parseSDRF(resp.Body)
	if err != nil {
		return nil, errors.WrapMsg(op, accession, err)
	}
	return rows, nil
}

func parseSDRF(r io.Reader) ([]SDRFRow, error) {
	const op = errors.Op("arrayexpress.parseSDRF")

	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, errors.E(op, errors.KindFormat, err)
	}

	var (
		sourceCol = -1
		fileCol   = -1
		charCols  = map[int]string{}
	)
	for i, name := range header {
		switch {
		case name == "Source Name":
			sourceCol = i
		case name == "Array Data File":
			fileCol = i
		case strings.HasPrefix(name, "Characteristics[") && strings.HasSuffix(name, "]"):
			label := name[len("Characteristics[") : len(name)-1]
			charCols[i] = strings.ToLower(label)
		}
	}
	if sourceCol < 0 || fileCol < 0 {
		return nil, errors.E(op, errors.KindFormat,
			"sdrf missing Source Name or Array Data File column")
	}

	var rows []SDRFRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.E(op, errors.KindFormat, err)
		}
		if sourceCol >= len(record) || fileCol >= len(record) {
			continue
		}
		row := SDRFRow{
			SampleID:        record[sourceCol],
			DataFile:        record[fileCol],
			Characteristics: map[string]string{},
		}
		for i, label := range charCols {
			if i < len(record) && record[i] != "" {
				row.Characteristics[label] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
