// Package download fetches remote files to scoped temporary locations.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/pinealan/dna-microarray-db/internal/errors"
)

// Client streams remote files to disk. The zero timeout is deliberate:
// raw intensity files can be large and slow to serve.
type Client struct {
	httpClient *http.Client

	// Dir is where in-flight files land. Empty means the system
	// temp directory.
	Dir string
}

// NewClient returns a download client.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 0},
	}
}

// FetchTemp downloads url into a temporary file and returns its path
// together with a cleanup function that removes the file. The cleanup
// function is non-nil on every return, error or not, so callers can
// defer it unconditionally.
func (c *Client) FetchTemp(ctx context.Context, url string) (string, func(), error) {
	const op = errors.Op("download.FetchTemp")

	if c.Dir != "" {
		if err := os.MkdirAll(c.Dir, 0o755); err != nil {
			return "", func() {}, errors.E(op, errors.KindNetwork, err)
		}
	}
	tmp, err := os.CreateTemp(c.Dir, "microarraydb-*.download")
	if err != nil {
		return "", func() {}, errors.E(op, errors.KindNetwork, err)
	}
	path := tmp.Name()
	cleanup := func() { os.Remove(path) }

	if err := c.fetchInto(ctx, url, tmp); err != nil {
		tmp.Close()
		cleanup()
		return "", func() {}, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", func() {}, errors.E(op, errors.KindNetwork, err)
	}
	return path, cleanup, nil
}

func (c *Client) fetchInto(ctx context.Context, url string, w io.Writer) error {
	const op = errors.Op("download.fetchInto")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.E(op, errors.KindNetwork, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.E(op, errors.KindNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.E(op, errors.KindNetwork,
			fmt.Sprintf("download of %s failed with status %s", url, resp.Status))
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return errors.E(op, errors.KindNetwork, err)
	}
	return nil
}
