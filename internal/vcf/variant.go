// Package vcf provides VCF file parsing functionality.
package vcf

import (
	"fmt"
	"strconv"
	"strings"
)

// Variant represents a single genomic variant from a VCF file.
type Variant struct {
	Chrom   string   // Chromosome name (e.g., "NC_045512.2")
	Pos     int64    // 1-based genomic position
	ID      string   // Variant identifier
	Ref     string   // Reference allele
	Alt     string   // First alternate allele ("" when ALT is ".")
	Alts    []string // All alternate alleles in file order
	Format  []string // FORMAT keys
	Samples []Sample // Per-sample FORMAT values, in header order
}

// Sample holds the FORMAT values of one sample column.
type Sample struct {
	Name string
	Data map[string]string

	numbers map[string]string // FORMAT ID -> declared Number
	alts    int               // alternate alleles on the record
}

// FORMAT Number values that size a list by allele count.
const (
	NumberPerAllele = "R" // one value per allele, reference first
	NumberPerAlt    = "A" // one value per alternate allele
)

// HasAlt returns true if the variant carries at least one alternate allele.
func (v *Variant) HasAlt() bool {
	return len(v.Alts) > 0
}

// IsIndel returns true if the variant is an insertion or deletion.
func (v *Variant) IsIndel() bool {
	return v.HasAlt() && len(v.Ref) != len(v.Alt)
}

// IsInsertion returns true if the variant is an insertion.
func (v *Variant) IsInsertion() bool {
	return v.HasAlt() && len(v.Alt) > len(v.Ref)
}

// IsDeletion returns true if the variant is a deletion.
func (v *Variant) IsDeletion() bool {
	return v.HasAlt() && len(v.Ref) > len(v.Alt)
}

// Sample returns the named sample, or the first sample when name is empty.
func (v *Variant) Sample(name string) (*Sample, bool) {
	if name == "" {
		if len(v.Samples) == 0 {
			return nil, false
		}
		return &v.Samples[0], true
	}
	for i := range v.Samples {
		if v.Samples[i].Name == name {
			return &v.Samples[i], true
		}
	}
	return nil, false
}

// Int returns the integer value of a FORMAT field for the first alternate allele.
// Missing fields and "." values report ok=false.
//
// Comma lists pick their entry from the ##FORMAT Number of the key: Number=R
// lists ("ref,alt1,...") resolve to index 1 and Number=A lists ("alt1,...")
// to index 0. Undeclared keys read as Number=A when the list has one entry
// per alternate allele; every other list reads as Number=R.
func (s *Sample) Int(key string) (value int, ok bool, err error) {
	raw, present := s.Data[key]
	if !present || raw == "" || raw == "." {
		return 0, false, nil
	}

	if strings.Contains(raw, ",") {
		parts := strings.Split(raw, ",")
		raw = parts[s.firstAltIndex(key, len(parts))]
		if raw == "." {
			return 0, false, nil
		}
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("parse %s=%q: %w", key, s.Data[key], err)
	}
	return n, true, nil
}

// firstAltIndex returns the list index holding the first alternate allele's
// value in an n-entry list.
func (s *Sample) firstAltIndex(key string, n int) int {
	switch number := s.numbers[key]; {
	case number == NumberPerAlt:
		return 0
	case number == "" && s.alts > 0 && n == s.alts:
		return 0
	default:
		return 1
	}
}
