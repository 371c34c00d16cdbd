// Package entrez talks to the NCBI discovery and record endpoints used
// by the GEO crawler: esearch for paginated discovery, esummary for
// summary lookups, the accession display endpoint for SOFT records and
// the GEO FTP mirror for supplementary file listings.
package entrez

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pinealan/dna-microarray-db/internal/errors"
)

const (
	// DefaultEUtilsBase is the production Entrez E-utilities endpoint.
	DefaultEUtilsBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	// DefaultAccessionBase is the GEO accession display endpoint.
	DefaultAccessionBase = "https://www.ncbi.nlm.nih.gov/geo/query/acc.cgi"
	// DefaultFTPBase is the HTTPS face of the GEO FTP mirror.
	DefaultFTPBase = "https://ftp.ncbi.nlm.nih.gov/geo"

	// Database is the Entrez database holding GEO DataSets records.
	Database = "gds"
)

// Client issues read-only requests against the GEO endpoints. All
// methods are plain network reads with no retries; callers decide
// whether a failure aborts the crawl or skips the item.
type Client struct {
	EUtilsBase    string
	AccessionBase string
	FTPBase       string

	httpClient *http.Client
}

// NewClient returns a Client against the production endpoints.
func NewClient() *Client {
	return &Client{
		EUtilsBase:    DefaultEUtilsBase,
		AccessionBase: DefaultAccessionBase,
		FTPBase:       DefaultFTPBase,
		httpClient:    &http.Client{Timeout: 60 * time.Second},
	}
}

// get fetches url+params and returns the body. Non-2xx responses are
// returned as errors of the given kind.
func (c *Client) get(ctx context.Context, kind errors.Kind, op errors.Op, rawURL string, params url.Values) ([]byte, error) {
	u := rawURL
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.E(op, kind, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.E(op, errors.KindNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.E(op, kind,
			fmt.Sprintf("request failed with status %s", resp.Status))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.E(op, errors.KindNetwork, err)
	}
	return body, nil
}
