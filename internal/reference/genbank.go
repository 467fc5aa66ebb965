package reference

import (
	"fmt"
	"io"
	"strings"

	"github.com/bebop/poly/io/genbank"
)

// GenBankLoader loads the sequence and CDS features from a GenBank flat file.
type GenBankLoader struct {
	path string
}

// NewGenBankLoader creates a new GenBank loader.
func NewGenBankLoader(path string) *GenBankLoader {
	return &GenBankLoader{path: path}
}

// Load parses the GenBank file. The sequence comes from the first record;
// CDS features are collected from every record in file order.
func (l *GenBankLoader) Load() (*Reference, error) {
	r, closeFn, err := openInput(l.path)
	if err != nil {
		return nil, &ReferenceLoadError{Path: l.path, Err: err}
	}
	defer closeFn()

	records, err := parseGenBank(r)
	if err != nil {
		return nil, &ReferenceLoadError{Path: l.path, Err: err}
	}
	if len(records) == 0 {
		return nil, &ReferenceLoadError{Path: l.path, Err: fmt.Errorf("no GenBank records found")}
	}

	ref := &Reference{
		Name:     records[0].Meta.Locus.Name,
		Sequence: strings.ToUpper(records[0].Sequence),
	}
	if ref.Sequence == "" {
		return nil, &ReferenceLoadError{Path: l.path, Err: fmt.Errorf("record %s has no sequence", ref.Name)}
	}
	for _, rec := range records {
		ref.Features = append(ref.Features, cdsFeatures(rec)...)
	}

	return ref, nil
}

// parseGenBank reads every record in r. The parser panics on some malformed
// locations and LOCUS lines; those surface as errors.
func parseGenBank(r io.Reader) (records []genbank.Genbank, err error) {
	defer func() {
		if p := recover(); p != nil {
			records, err = nil, fmt.Errorf("malformed GenBank input: %v", p)
		}
	}()
	return genbank.ParseMulti(r)
}

// cdsFeatures converts the CDS entries of one record, in table order.
func cdsFeatures(rec genbank.Genbank) []Feature {
	var out []Feature
	for _, f := range rec.Features {
		if f.Type != "CDS" {
			continue
		}
		start, end := locationSpan(f.Location)
		out = append(out, Feature{
			Start:    start,
			End:      end,
			GeneName: orNotAvailable(f.Attributes["gene"]),
			Product:  orNotAvailable(f.Attributes["product"]),
		})
	}
	return out
}

// locationSpan returns the 0-based, half-open outer span of a location,
// covering every part of a join or complement.
func locationSpan(loc genbank.Location) (start, end int64) {
	if len(loc.SubLocations) == 0 {
		s, e := int64(loc.Start), int64(loc.End)
		// single-base locations come back as Start == End == position
		if s == e && e > 0 {
			s = e - 1
		}
		return s, e
	}

	for i, sub := range loc.SubLocations {
		s, e := locationSpan(sub)
		if i == 0 || s < start {
			start = s
		}
		if i == 0 || e > end {
			end = e
		}
	}
	return start, end
}
