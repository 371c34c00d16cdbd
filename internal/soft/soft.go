// Package soft parses the GEO SOFT line-oriented record format into
// entity records. The format is a sequence of lines where '^' opens a
// new entity ("^SAMPLE = GSM123") and '!' carries an attribute of the
// currently open entity ("!Sample_title = foo"); the entity-type prefix
// on attribute names is stripped before storage.
package soft

import (
	"bufio"
	"io"
	"strings"

	"github.com/pinealan/dna-microarray-db/internal/errors"
)

const (
	entityMarker    = '^'
	attributeMarker = '!'
	separator       = " = "
)

// Entity is one parsed SOFT record: a series, sample or platform.
type Entity struct {
	Type  string
	ID    string
	Attrs map[string]Value
}

// Attr returns the named attribute and whether it was present.
func (e *Entity) Attr(name string) (Value, bool) {
	v, ok := e.Attrs[name]
	return v, ok
}

// Parse reads SOFT-formatted text and returns the entities it contains,
// in input order. Lines that are neither entity nor attribute lines, and
// attribute lines without the " = " separator, are skipped; unknown line
// shapes must not abort a crawl against a live repository. A malformed
// entity header line is an error.
func Parse(r io.Reader) ([]*Entity, error) {
	const op = errors.Op("soft.Parse")

	var (
		entities []*Entity
		current  *Entity
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		switch line[0] {
		case entityMarker:
			parts := strings.Split(strings.TrimSpace(line[1:]), separator)
			if len(parts) != 2 {
				return nil, errors.E(op, errors.KindFormat,
					"malformed entity header: "+line)
			}
			if current != nil {
				entities = append(entities, current)
			}
			current = &Entity{
				Type:  parts[0],
				ID:    parts[1],
				Attrs: make(map[string]Value),
			}

		case attributeMarker:
			if current == nil {
				continue
			}
			name, value, ok := strings.Cut(strings.TrimSpace(line[1:]), separator)
			if !ok {
				continue
			}
			// Attribute names repeat the entity type, e.g.
			// !Sample_title on a SAMPLE entity. Strip that prefix.
			prefixLen := len(current.Type) + 1
			if len(name) <= prefixLen {
				continue
			}
			name = name[prefixLen:]
			if prev, ok := current.Attrs[name]; ok {
				current.Attrs[name] = prev.append(value)
			} else {
				current.Attrs[name] = Scalar(value)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.E(op, errors.KindFormat, err)
	}

	if current != nil {
		entities = append(entities, current)
	}
	return entities, nil
}

// ParseString parses SOFT-formatted text held in a string.
func ParseString(s string) ([]*Entity, error) {
	return Parse(strings.NewReader(s))
}
