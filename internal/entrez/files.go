package entrez

import (
	"context"
	"regexp"
	"strings"

	"github.com/pinealan/dna-microarray-db/internal/errors"
)

// SuppFile is one supplementary file discovered in a GEO FTP directory
// listing.
type SuppFile struct {
	Accession string
	Filename  string
	URL       string
}

// archiveSuffix is the only file shape the mirror serves for
// supplementary sample data.
const archiveSuffix = ".gz"

// anchorPattern matches hrefs in the Apache-style directory index pages
// served by the GEO FTP mirror.
var anchorPattern = regexp.MustCompile(`<a href="([^"]+)"`)

// accessionDir converts an accession to its FTP directory stem: the
// last three digits are masked to "nnn" (GSM123456 -> GSM123nnn).
func accessionDir(accession string) string {
	if len(accession) <= 3 {
		return accession
	}
	return accession[:len(accession)-3] + "nnn"
}

// SampleSuppURL returns the supplementary file directory for a sample
// accession on the FTP mirror.
func (c *Client) SampleSuppURL(accession string) string {
	return c.FTPBase + "/samples/" + accessionDir(accession) + "/" + accession + "/suppl/"
}

// ListSampleFiles fetches the supplementary-file directory index for a
// sample and returns every archive it links to.
func (c *Client) ListSampleFiles(ctx context.Context, accession string) ([]SuppFile, error) {
	const op = errors.Op("entrez.ListSampleFiles")

	base := c.SampleSuppURL(accession)
	body, err := c.get(ctx, errors.KindNetwork, op, base, nil)
	if err != nil {
		return nil, err
	}

	var files []SuppFile
	for _, match := range anchorPattern.FindAllStringSubmatch(string(body), -1) {
		href := match[1]
		if !strings.HasSuffix(href, archiveSuffix) {
			continue
		}
		files = append(files, SuppFile{
			Accession: accession,
			Filename:  href,
			URL:       base + href,
		})
	}
	return files, nil
}
