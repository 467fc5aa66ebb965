package indel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/inodb/vibe-indel/internal/reference"
	"github.com/inodb/vibe-indel/internal/vcf"
)

// testSequence is a 120 bp contig with three CDS features:
// orf1 10..60, S 40..100 (overlapping orf1) and an unnamed region 105..118.
const testSequence = "GCTAAAGACAATTACATAACATACACGTCAGCACGAAACTTGTTGGCCCAGTGTGAATCG" +
	"CTTAAGGGTTAAGTAAGTGTGATGCATACGCCTTTACTTGCTGTGTCCACCCCATCGGAC"

func testReference() *reference.Reference {
	return &reference.Reference{
		Name:     "TESTREF",
		Sequence: testSequence,
		Features: []reference.Feature{
			{Start: 9, End: 60, GeneName: "orf1", Product: "polyprotein A"},
			{Start: 39, End: 100, GeneName: "S", Product: "surface glycoprotein"},
			{Start: 104, End: 118},
		},
	}
}

func sampleVariant(pos int64, ref, alt string, data map[string]string) *vcf.Variant {
	v := variant(pos, ref, alt)
	v.Samples = []vcf.Sample{{Name: "Sample1", Data: data}}
	return v
}

func counts(dp, ad, adf, adr string) map[string]string {
	return map[string]string{"DP": dp, "AD": ad, "ADF": adf, "ADR": adr}
}

func TestAnnotator_Deletion(t *testing.T) {
	a := NewAnnotator(testReference(), "S1", DefaultOptions())

	ann, err := a.Annotate(sampleVariant(45, "GGCC", "G", counts("100", "40", "25", "15")))
	require.NoError(t, err)
	require.NotNil(t, ann)

	assert.Equal(t, &Annotation{
		SampleID:       "S1",
		Position:       45,
		Ref:            "GGCC",
		Alt:            "G",
		Depth:          100,
		AlleleDepth:    40,
		Frequency:      40,
		ADFRatio:       0.62, // 0.625 rounds half to even
		ADRRatio:       0.38,
		StrandBiasPass: true,
		FrameValid:     true,
		ChangeType:     Deletion,
		InCDS:          true,
		GeneName:       "orf1",
		Product:        "polyprotein A",
		Placement:      "GCACGAAACTTGTTG*GCC*CAGTGTGAATCGCTT",
	}, ann)
}

func TestAnnotator_Insertion(t *testing.T) {
	a := NewAnnotator(testReference(), "S1", DefaultOptions())

	ann, err := a.Annotate(sampleVariant(70, "T", "TGGG", counts("50", "10", "9", "1")))
	require.NoError(t, err)
	require.NotNil(t, ann)

	assert.Equal(t, Insertion, ann.ChangeType)
	assert.True(t, ann.FrameValid)
	assert.Equal(t, 20.0, ann.Frequency)
	assert.False(t, ann.StrandBiasPass)
	assert.Equal(t, "S", ann.GeneName)
	assert.Equal(t, "surface glycoprotein", ann.Product)
	assert.Equal(t, "AATCGCTTAAGGGTT*GGG*AAGTAAGTGTGATGC", ann.Placement)
}

func TestAnnotator_OutsideCDS(t *testing.T) {
	a := NewAnnotator(testReference(), "S1", DefaultOptions())

	ann, err := a.Annotate(sampleVariant(102, "TG", "T", counts("60", "30", "15", "15")))
	require.NoError(t, err)
	require.NotNil(t, ann)

	assert.False(t, ann.InCDS)
	assert.Empty(t, ann.GeneName)
	assert.Empty(t, ann.Product)
	assert.False(t, ann.FrameValid)
	assert.Equal(t, "ACGCCTTTACTTGCT*G*TGTCCACCCCATCGG", ann.Placement)
}

func TestAnnotator_UnnamedCDS(t *testing.T) {
	a := NewAnnotator(testReference(), "S1", DefaultOptions())

	ann, err := a.Annotate(sampleVariant(110, "C", "CA", counts("60", "30", "15", "15")))
	require.NoError(t, err)
	require.NotNil(t, ann)
	assert.True(t, ann.InCDS)
	assert.Equal(t, reference.NotAvailable, ann.GeneName)
	assert.Equal(t, reference.NotAvailable, ann.Product)
}

func TestAnnotator_Skips(t *testing.T) {
	a := NewAnnotator(testReference(), "S1", DefaultOptions())

	tests := []struct {
		name string
		v    *vcf.Variant
	}{
		{"SNV without sample data", variant(20, "C", "A")},
		{"no alt", variant(20, "C")},
		{"low depth", sampleVariant(20, "CA", "C", counts("29", "20", "10", "10"))},
		{"low frequency", sampleVariant(20, "CA", "C", counts("100", "9", "5", "4"))},
		{"missing depth", sampleVariant(20, "CA", "C", map[string]string{"AD": "10"})},
		{"dot depth and allele depth", sampleVariant(20, "CA", "C", counts(".", ".", ".", "."))},
		{"failing gate without strand data", sampleVariant(20, "CA", "C", map[string]string{"DP": "10", "AD": "1"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ann, err := a.Annotate(tt.v)
			require.NoError(t, err)
			assert.Nil(t, ann)
		})
	}
}

func TestAnnotator_MissingSampleData(t *testing.T) {
	a := NewAnnotator(testReference(), "S1", DefaultOptions())

	tests := []struct {
		name  string
		v     *vcf.Variant
		field string
	}{
		{"no sample column", variant(20, "CA", "C"), ""},
		{"no allele depth", sampleVariant(20, "CA", "C", map[string]string{"DP": "100"}), FieldAlleleDepth},
		{"no ADF", sampleVariant(20, "CA", "C", map[string]string{"DP": "100", "AD": "50", "ADR": "20"}), FieldForwardDepth},
		{"no ADR", sampleVariant(20, "CA", "C", map[string]string{"DP": "100", "AD": "50", "ADF": "20"}), FieldReverseDepth},
		{"malformed depth", sampleVariant(20, "CA", "C", counts("x", "1", "1", "1")), FieldDepth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ann, err := a.Annotate(tt.v)
			require.Error(t, err)
			assert.Nil(t, ann)

			var mse *MissingSampleDataError
			require.True(t, errors.As(err, &mse))
			assert.Equal(t, tt.field, mse.Field)
			assert.Equal(t, int64(20), mse.Pos)
		})
	}
}

func TestAnnotator_NamedSample(t *testing.T) {
	opts := DefaultOptions()
	opts.SampleName = "normal"
	a := NewAnnotator(testReference(), "S1", opts)

	v := variant(45, "GGCC", "G")
	v.Samples = []vcf.Sample{
		{Name: "tumor", Data: counts("100", "90", "45", "45")},
		{Name: "normal", Data: counts("100", "5", "3", "2")},
	}

	ann, err := a.Annotate(v)
	require.NoError(t, err)
	assert.Nil(t, ann, "normal sample is below the frequency gate")

	v.Samples = v.Samples[:1]
	_, err = a.Annotate(v)
	var mse *MissingSampleDataError
	require.True(t, errors.As(err, &mse))
	assert.Equal(t, "normal", mse.Sample)
}

func TestAnnotator_NoStrandSupport(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	a := NewAnnotator(testReference(), "S1", DefaultOptions())
	a.SetLogger(zap.New(core))

	ann, err := a.Annotate(sampleVariant(45, "GGCC", "G", counts("100", "40", "0", "0")))
	require.NoError(t, err)
	require.NotNil(t, ann)

	assert.False(t, ann.StrandBiasPass)
	assert.Zero(t, ann.ADFRatio)
	assert.Zero(t, ann.ADRRatio)
	assert.Equal(t, 1, logs.Len())
}

func TestAnnotator_CustomOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.MinDepth = 10
	opts.MinFrequency = 50
	opts.Flank = 3
	opts.StrandBiasThreshold = 0.95
	a := NewAnnotator(testReference(), "S1", opts)

	ann, err := a.Annotate(sampleVariant(70, "T", "TGGG", counts("10", "5", "9", "1")))
	require.NoError(t, err)
	require.NotNil(t, ann)
	assert.Equal(t, "GTT*GGG*AAG", ann.Placement)
	assert.True(t, ann.StrandBiasPass, "0.9 is below 0.95")

	ann, err = a.Annotate(sampleVariant(70, "T", "TGGG", counts("10", "4", "9", "1")))
	require.NoError(t, err)
	assert.Nil(t, ann)
}
