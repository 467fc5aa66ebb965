// Package reference loads a reference contig and its coding-region features
// and indexes the features for point lookups.
package reference

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// NotAvailable is recorded for gene names and products the source does not provide.
const NotAvailable = "N/A"

// Feature is a coding-region feature as read from an annotation source.
// Start and End are 0-based, half-open.
type Feature struct {
	Start    int64
	End      int64
	GeneName string
	Product  string
}

// Reference holds one contig's nucleotide sequence and its CDS features in
// source order.
type Reference struct {
	Name     string
	Sequence string
	Features []Feature
}

// Index builds a CDS index over the reference features.
func (r *Reference) Index() *CDSIndex {
	return BuildCDSIndex(r.Features)
}

// Source yields a reference sequence and its CDS features.
type Source interface {
	Load() (*Reference, error)
}

// ReferenceLoadError reports an unreadable or empty reference-annotation source.
type ReferenceLoadError struct {
	Path string
	Err  error
}

func (e *ReferenceLoadError) Error() string {
	return fmt.Sprintf("load reference %s: %v", e.Path, e.Err)
}

func (e *ReferenceLoadError) Unwrap() error {
	return e.Err
}

// openInput opens a possibly gzipped file. The returned closer releases both
// the gzip reader and the file.
func openInput(path string) (io.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	if !strings.HasSuffix(path, ".gz") {
		return f, f.Close, nil
	}

	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("open gzip reader: %w", err)
	}
	return gz, func() error {
		gz.Close()
		return f.Close()
	}, nil
}

// orNotAvailable substitutes NotAvailable for empty qualifier values.
func orNotAvailable(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}
