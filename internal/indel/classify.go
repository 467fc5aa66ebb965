// Package indel annotates insertion/deletion variants against a reference
// contig: quality gating, strand bias, CDS lookup and placement rendering.
package indel

import (
	"strconv"

	"github.com/inodb/vibe-indel/internal/vcf"
)

// ChangeType is the kind of length change an indel makes.
type ChangeType string

// Change types.
const (
	Insertion ChangeType = "insertion"
	Deletion  ChangeType = "deletion"
)

// Default quality gate thresholds (inclusive).
const (
	DefaultMinDepth     = 30
	DefaultMinFrequency = 10.0
)

// Classifier decides whether a variant is an indel that passes the quality gate.
type Classifier struct {
	MinDepth     int
	MinFrequency float64 // percent
}

// Classification is the outcome for a qualifying indel.
type Classification struct {
	Position    int64
	Ref         string
	Alt         string
	Depth       int
	AlleleDepth int
	Frequency   float64 // percent, two decimals
	ChangeType  ChangeType
	FrameValid  bool
}

// Classify applies the indel checks and the quality gate to v using the
// sample's read depth and alternate allele depth. A depth of 0 stands for an
// absent depth: the frequency is then 0 and the depth gate rejects the record.
func (c Classifier) Classify(v *vcf.Variant, depth, alleleDepth int) (Classification, bool) {
	if !v.IsIndel() {
		return Classification{}, false
	}

	freq := Frequency(alleleDepth, depth)
	if depth < c.MinDepth || freq < c.MinFrequency {
		return Classification{}, false
	}

	ct := ChangeTypeOf(v.Ref, v.Alt)
	return Classification{
		Position:    v.Pos,
		Ref:         v.Ref,
		Alt:         v.Alt,
		Depth:       depth,
		AlleleDepth: alleleDepth,
		Frequency:   freq,
		ChangeType:  ct,
		FrameValid:  FrameValid(ct, v.Ref, v.Alt),
	}, true
}

// Frequency returns the alternate allele frequency in percent rounded to two
// decimals, or 0 when depth is 0.
func Frequency(alleleDepth, depth int) float64 {
	if depth == 0 {
		return 0
	}
	return round2(float64(alleleDepth) / float64(depth) * 100)
}

// ChangeTypeOf returns Deletion when ref is longer than alt, Insertion otherwise.
func ChangeTypeOf(ref, alt string) ChangeType {
	if len(ref) > len(alt) {
		return Deletion
	}
	return Insertion
}

// FrameValid reports whether the indel shifts the sequence by whole codons.
// The first base of REF and ALT is the shared anchor and is not counted.
func FrameValid(ct ChangeType, ref, alt string) bool {
	if ct == Deletion {
		return (len(ref)-1)%3 == 0
	}
	return (len(alt)-1)%3 == 0
}

// round2 rounds half to even on the exact binary value, as decimal
// formatting does, so 0.125 -> 0.12 and 2.675 -> 2.67.
func round2(x float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 2, 64), 64)
	return r
}
