package entrez

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/pinealan/dna-microarray-db/internal/errors"
	"github.com/pinealan/dna-microarray-db/internal/soft"
)

// View selects how much of a record the accession endpoint returns.
type View string

const (
	ViewBrief View = "brief"
	ViewFull  View = "full"
)

// Summary is the subset of an esummary record the crawler needs: the
// Entrez UID maps to a repository-native accession.
type Summary struct {
	UID       string `json:"uid"`
	Accession string `json:"accession"`
	Title     string `json:"title"`
	GPL       string `json:"gpl"`
	GSE       string `json:"gse"`
}

// FetchEntity resolves an accession to exactly one SOFT entity via the
// accession display endpoint. The endpoint is expected to return a
// single record for an exact accession; zero records is a not-found
// error and more than one is an ambiguous-lookup error.
func (c *Client) FetchEntity(ctx context.Context, accession string, view View) (*soft.Entity, error) {
	const op = errors.Op("entrez.FetchEntity")

	params := url.Values{
		"acc":  {accession},
		"targ": {"self"},
		"view": {string(view)},
		"form": {"text"},
	}
	body, err := c.get(ctx, errors.KindNetwork, op, c.AccessionBase, params)
	if err != nil {
		return nil, err
	}

	entities, err := soft.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, errors.WrapMsg(op, accession, err)
	}
	switch len(entities) {
	case 0:
		return nil, errors.E(op, errors.KindNotFound,
			fmt.Sprintf("no record for accession %s", accession))
	case 1:
		return entities[0], nil
	default:
		return nil, errors.E(op, errors.KindAmbiguous,
			fmt.Sprintf("accession %s resolved to %d records", accession, len(entities)))
	}
}

// FetchSummary resolves an Entrez UID to its summary record. The
// esummary envelope keys each record by its own UID under "result".
func (c *Client) FetchSummary(ctx context.Context, id string) (*Summary, error) {
	const op = errors.Op("entrez.FetchSummary")

	params := url.Values{
		"db":      {Database},
		"id":      {id},
		"retmode": {"json"},
	}
	body, err := c.get(ctx, errors.KindSummary, op, c.EUtilsBase+"/esummary.fcgi", params)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, errors.E(op, errors.KindSummary, err, "malformed esummary response")
	}
	raw, ok := envelope.Result[id]
	if !ok {
		return nil, errors.E(op, errors.KindSummary,
			fmt.Sprintf("esummary response missing record for id %s", id))
	}

	var summary Summary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, errors.E(op, errors.KindSummary, err, "malformed esummary record")
	}
	return &summary, nil
}
