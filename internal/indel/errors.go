package indel

import "fmt"

// VariantStreamError reports a variant source that cannot be opened or read.
type VariantStreamError struct {
	Path string
	Err  error
}

func (e *VariantStreamError) Error() string {
	return fmt.Sprintf("read variants %s: %v", e.Path, e.Err)
}

func (e *VariantStreamError) Unwrap() error {
	return e.Err
}

// MissingSampleDataError reports an indel record whose sample lacks a FORMAT
// value needed to annotate it. Field is empty when the sample column itself
// is missing.
type MissingSampleDataError struct {
	Chrom  string
	Pos    int64
	Sample string
	Field  string
	Err    error // set when the value is present but malformed
}

func (e *MissingSampleDataError) Error() string {
	sample := e.Sample
	if sample == "" {
		sample = "<first>"
	}
	switch {
	case e.Field == "":
		return fmt.Sprintf("%s:%d: no data for sample %s", e.Chrom, e.Pos, sample)
	case e.Err != nil:
		return fmt.Sprintf("%s:%d: sample %s: %v", e.Chrom, e.Pos, sample, e.Err)
	default:
		return fmt.Sprintf("%s:%d: sample %s has no %s value", e.Chrom, e.Pos, sample, e.Field)
	}
}

func (e *MissingSampleDataError) Unwrap() error {
	return e.Err
}
