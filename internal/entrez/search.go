package entrez

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/pinealan/dna-microarray-db/internal/errors"
)

// Cursor is the resumable position of a paginated search. Offset only
// ever grows; a crawl can be checkpointed by recording the cursor and
// handing it back to ResumeSearch later.
type Cursor struct {
	Term     string
	PageSize int
	Offset   int
}

// Pager walks esearch result pages lazily. It performs no
// deduplication; overlapping pages from the upstream source may yield
// repeated identifiers, which downstream ingestion treats as no-ops.
type Pager struct {
	client *Client
	cursor Cursor
	done   bool
}

// esearchEnvelope is the JSON response shape of esearch.fcgi.
type esearchEnvelope struct {
	Result *esearchResult `json:"esearchresult"`
}

type esearchResult struct {
	Count    string   `json:"count"`
	RetStart string   `json:"retstart"`
	IDList   []string `json:"idlist"`
}

// Search starts a paginated esearch over the GEO DataSets database.
func (c *Client) Search(term string, pageSize int) *Pager {
	return c.ResumeSearch(Cursor{Term: term, PageSize: pageSize})
}

// ResumeSearch continues a search from a previously recorded cursor.
func (c *Client) ResumeSearch(cursor Cursor) *Pager {
	if cursor.PageSize <= 0 {
		cursor.PageSize = 500
	}
	return &Pager{client: c, cursor: cursor}
}

// Cursor returns the position the next call to Next will query from.
func (p *Pager) Cursor() Cursor {
	return p.cursor
}

// Next fetches the next page of entity identifiers. It returns a nil
// slice once a page comes back empty; after that the pager is
// exhausted. Any transport failure or malformed envelope is a
// discovery error, which is crawl-fatal.
func (p *Pager) Next(ctx context.Context) ([]string, error) {
	const op = errors.Op("entrez.Pager.Next")

	if p.done {
		return nil, nil
	}

	params := url.Values{
		"db":       {Database},
		"term":     {p.cursor.Term},
		"retmax":   {strconv.Itoa(p.cursor.PageSize)},
		"retstart": {strconv.Itoa(p.cursor.Offset)},
		"retmode":  {"json"},
	}
	body, err := p.client.get(ctx, errors.KindDiscovery, op, p.client.EUtilsBase+"/esearch.fcgi", params)
	if err != nil {
		return nil, err
	}

	var envelope esearchEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, errors.E(op, errors.KindDiscovery, err, "malformed esearch response")
	}
	if envelope.Result == nil {
		return nil, errors.E(op, errors.KindDiscovery, "esearch response missing result envelope")
	}

	ids := envelope.Result.IDList
	if len(ids) == 0 {
		p.done = true
		return nil, nil
	}
	p.cursor.Offset += p.cursor.PageSize
	return ids, nil
}
