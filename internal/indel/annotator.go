package indel

import (
	"go.uber.org/zap"

	"github.com/inodb/vibe-indel/internal/reference"
	"github.com/inodb/vibe-indel/internal/vcf"
)

// FORMAT keys read from the sample column.
const (
	FieldDepth        = "DP"
	FieldAlleleDepth  = "AD"
	FieldForwardDepth = "ADF"
	FieldReverseDepth = "ADR"
)

// Annotator turns single variant records into indel annotations.
// It only reads shared state and may be used from several goroutines.
type Annotator struct {
	sequence   string
	index      *reference.CDSIndex
	sampleID   string
	sampleName string
	classifier Classifier
	threshold  float64
	flank      int
	logger     *zap.Logger
}

// NewAnnotator creates an annotator over ref for the given sample.
func NewAnnotator(ref *reference.Reference, sampleID string, opts Options) *Annotator {
	return &Annotator{
		sequence:   ref.Sequence,
		index:      ref.Index(),
		sampleID:   sampleID,
		sampleName: opts.SampleName,
		classifier: Classifier{MinDepth: opts.MinDepth, MinFrequency: opts.MinFrequency},
		threshold:  opts.StrandBiasThreshold,
		flank:      opts.Flank,
		logger:     zap.NewNop(),
	}
}

// SetLogger sets the logger for debug messages.
func (a *Annotator) SetLogger(l *zap.Logger) {
	a.logger = l
}

// Annotate annotates a single variant. It returns nil, nil when the record is
// not a qualifying indel.
func (a *Annotator) Annotate(v *vcf.Variant) (*Annotation, error) {
	if !v.IsIndel() {
		return nil, nil
	}

	sample, ok := v.Sample(a.sampleName)
	if !ok {
		return nil, &MissingSampleDataError{Chrom: v.Chrom, Pos: v.Pos, Sample: a.sampleName}
	}

	depth, _, err := a.sampleInt(v, sample, FieldDepth)
	if err != nil {
		return nil, err
	}

	alleleDepth, hasAD, err := a.sampleInt(v, sample, FieldAlleleDepth)
	if err != nil {
		return nil, err
	}
	if !hasAD && depth > 0 {
		return nil, a.missing(v, FieldAlleleDepth)
	}

	c, ok := a.classifier.Classify(v, depth, alleleDepth)
	if !ok {
		a.logger.Debug("indel below quality gate",
			zap.Int64("pos", v.Pos),
			zap.Int("depth", depth),
			zap.Float64("frequency", Frequency(alleleDepth, depth)))
		return nil, nil
	}

	adf, hasADF, err := a.sampleInt(v, sample, FieldForwardDepth)
	if err != nil {
		return nil, err
	}
	if !hasADF {
		return nil, a.missing(v, FieldForwardDepth)
	}
	adr, hasADR, err := a.sampleInt(v, sample, FieldReverseDepth)
	if err != nil {
		return nil, err
	}
	if !hasADR {
		return nil, a.missing(v, FieldReverseDepth)
	}

	sb := EvaluateStrandBias(adf, adr, a.threshold)
	if !sb.Defined {
		a.logger.Warn("no stranded allele support, marking strand bias as failed",
			zap.String("chrom", v.Chrom),
			zap.Int64("pos", v.Pos))
	}

	// CDS lookup uses the same position as classification.
	inCDS, gene, product := a.index.Lookup(c.Position)

	return &Annotation{
		SampleID:       a.sampleID,
		Position:       c.Position,
		Ref:            c.Ref,
		Alt:            c.Alt,
		Depth:          c.Depth,
		AlleleDepth:    c.AlleleDepth,
		Frequency:      c.Frequency,
		ADFRatio:       sb.ADFRatio,
		ADRRatio:       sb.ADRRatio,
		StrandBiasPass: sb.Pass,
		FrameValid:     c.FrameValid,
		ChangeType:     c.ChangeType,
		InCDS:          inCDS,
		GeneName:       gene,
		Product:        product,
		Placement:      Render(c, a.sequence, a.flank),
	}, nil
}

func (a *Annotator) sampleInt(v *vcf.Variant, s *vcf.Sample, key string) (int, bool, error) {
	n, ok, err := s.Int(key)
	if err != nil {
		return 0, false, &MissingSampleDataError{
			Chrom: v.Chrom, Pos: v.Pos, Sample: a.sampleName, Field: key, Err: err,
		}
	}
	return n, ok, nil
}

func (a *Annotator) missing(v *vcf.Variant, field string) error {
	return &MissingSampleDataError{Chrom: v.Chrom, Pos: v.Pos, Sample: a.sampleName, Field: field}
}
