// Package enrich normalizes raw GEO sample records into the structured
// shape the relational store persists. It is a pure transformation: the
// same record always produces the same enriched sample.
package enrich

import (
	"regexp"
	"strings"

	"github.com/pinealan/dna-microarray-db/internal/soft"
)

// Attribute names on a SAMPLE entity, after the SOFT parser strips the
// "Sample_" prefix.
const (
	attrSeriesID        = "series_id"
	attrPlatformID      = "platform_id"
	attrCharacteristics = "characteristics_ch1"
	attrProtocol        = "extract_protocol_ch1"
	attrSuppFiles       = "supplementary_file"
)

// noneSentinel is GEO's way of spelling "no supplementary files".
const noneSentinel = "NONE"

// dataFileMarker identifies raw intensity files among supplementary
// paths. Matched case-insensitively.
const dataFileMarker = "idat"

// Sample holds the structured fields extracted from one sample record.
// Optional fields are empty strings when absent; Extras is nil rather
// than empty when nothing overflowed, so the store can persist a null.
type Sample struct {
	SeriesID           string
	PlatformID         string
	Tissue             string
	Disease            string
	Gender             string
	Age                string
	ExtractionProtocol string
	Extras             map[string]any
}

type field int

const (
	fieldTissue field = iota
	fieldDisease
	fieldGender
	fieldAge
)

type rule struct {
	label  *regexp.Regexp
	target field
}

// characteristicRules maps free-text characteristic labels to
// structured fields. Order is the tie-break: the first matching rule
// wins, and a field set by an earlier line is never overwritten.
var characteristicRules = []rule{
	{regexp.MustCompile(`(?i)^tissue`), fieldTissue},
	{regexp.MustCompile(`(?i)^(disease|diagnosis)`), fieldDisease},
	{regexp.MustCompile(`(?i)^(sex|gender)`), fieldGender},
	{regexp.MustCompile(`(?i)^age`), fieldAge},
}

// extrasExclude lists attributes that never land in the overflow bag:
// either consumed into structured fields or bookkeeping.
var extrasExclude = map[string]bool{
	attrSeriesID:        true,
	attrPlatformID:      true,
	attrCharacteristics: true,
	attrProtocol:        true,
	attrSuppFiles:       true,
}

// Enrich derives a Sample from a raw SAMPLE entity.
func Enrich(e *soft.Entity) Sample {
	var s Sample

	// A sample re-released under several series links them all; the
	// first listed is canonical.
	if v, ok := e.Attr(attrSeriesID); ok {
		s.SeriesID = v.First()
	}
	if v, ok := e.Attr(attrPlatformID); ok {
		s.PlatformID = v.First()
	}
	if v, ok := e.Attr(attrProtocol); ok {
		s.ExtractionProtocol = v.First()
	}

	extras := map[string]any{}
	if v, ok := e.Attr(attrCharacteristics); ok {
		var unmatched []string
		for _, line := range v.Strings() {
			if !applyCharacteristic(&s, line) {
				unmatched = append(unmatched, line)
			}
		}
		if len(unmatched) > 0 {
			extras[attrCharacteristics] = valueForExtras(unmatched)
		}
	}

	s.Gender = NormalizeGender(s.Gender)

	for name, v := range e.Attrs {
		if extrasExclude[name] {
			continue
		}
		extras[name] = valueForExtras(v.Strings())
	}
	if len(extras) > 0 {
		s.Extras = extras
	}
	return s
}

// applyCharacteristic splits a "<label>: <value>" line and assigns it
// to the first rule-matched field that is still unset. Reports whether
// the line was consumed.
func applyCharacteristic(s *Sample, line string) bool {
	label, value, ok := strings.Cut(line, ":")
	if !ok {
		return false
	}
	label = strings.TrimSpace(label)
	value = strings.TrimSpace(value)

	for _, r := range characteristicRules {
		if !r.label.MatchString(label) {
			continue
		}
		switch r.target {
		case fieldTissue:
			if s.Tissue == "" {
				s.Tissue = value
			}
		case fieldDisease:
			if s.Disease == "" {
				s.Disease = value
			}
		case fieldGender:
			if s.Gender == "" {
				s.Gender = value
			}
		case fieldAge:
			if s.Age == "" {
				s.Age = value
			}
		}
		return true
	}
	return false
}

// NormalizeGender maps free-text gender values onto the fixed
// male/female vocabulary. Anything unrecognized normalizes to absent.
func NormalizeGender(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "male", "m":
		return "male"
	case "female", "f":
		return "female"
	default:
		return ""
	}
}

// valueForExtras keeps the scalar/list distinction of the source
// attribute in the serialized overflow bag.
func valueForExtras(vals []string) any {
	if len(vals) == 1 {
		return vals[0]
	}
	return vals
}

// CandidateFiles returns the supplementary file paths that make a
// sample an ingestion candidate: entries whose name carries the raw
// data-file marker. A missing attribute, the NONE sentinel or a list
// with no matching entry yields nil, and such samples are skipped
// before enrichment.
func CandidateFiles(e *soft.Entity) []string {
	v, ok := e.Attr(attrSuppFiles)
	if !ok {
		return nil
	}
	var files []string
	for _, path := range v.Strings() {
		if path == "" || path == noneSentinel {
			continue
		}
		if strings.Contains(strings.ToLower(path), dataFileMarker) {
			files = append(files, path)
		}
	}
	return files
}
