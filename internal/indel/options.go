package indel

import "fmt"

// RecordErrorPolicy decides what happens when a single record cannot be annotated.
type RecordErrorPolicy string

// Record error policies.
const (
	// AbortOnError fails the whole run; nothing is written.
	AbortOnError RecordErrorPolicy = "abort"
	// SkipOnError logs the record and continues without it.
	SkipOnError RecordErrorPolicy = "skip"
)

// ParseRecordErrorPolicy validates a policy name.
func ParseRecordErrorPolicy(s string) (RecordErrorPolicy, error) {
	switch p := RecordErrorPolicy(s); p {
	case AbortOnError, SkipOnError:
		return p, nil
	case "":
		return AbortOnError, nil
	}
	return "", fmt.Errorf("unknown record error policy %q (want %q or %q)", s, AbortOnError, SkipOnError)
}

// Options configures annotation and the pipeline.
type Options struct {
	MinDepth            int
	MinFrequency        float64
	StrandBiasThreshold float64
	Flank               int
	SampleName          string // VCF sample column; empty selects the first
	Workers             int    // <= 1 runs sequentially
	OnRecordError       RecordErrorPolicy
}

// DefaultOptions returns the standard af10/dp30 settings.
func DefaultOptions() Options {
	return Options{
		MinDepth:            DefaultMinDepth,
		MinFrequency:        DefaultMinFrequency,
		StrandBiasThreshold: DefaultStrandBiasThreshold,
		Flank:               DefaultFlank,
		Workers:             1,
		OnRecordError:       AbortOnError,
	}
}
