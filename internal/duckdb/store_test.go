package duckdb

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-indel/internal/indel"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func row(sample string, pos int64, product string) *indel.Annotation {
	return &indel.Annotation{
		SampleID:       sample,
		Position:       pos,
		Ref:            "GGCC",
		Alt:            "G",
		Depth:          100,
		AlleleDepth:    40,
		Frequency:      40,
		ADFRatio:       0.62,
		ADRRatio:       0.38,
		StrandBiasPass: true,
		FrameValid:     true,
		ChangeType:     indel.Deletion,
		InCDS:          product != "",
		GeneName:       "orf1",
		Product:        product,
		Placement:      "GCACGAAACTTGTTG*GCC*CAGTGTGAATCGCTT",
	}
}

// --- Indel rows ---

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
	assert.Equal(t, "", s.Path())
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "indels.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = os.Stat(filepath.Dir(path))
	assert.NoError(t, err)
}

func TestWriteAndQueryBySample(t *testing.T) {
	s := openInMemory(t)

	rows := []*indel.Annotation{
		row("S1", 70, "surface glycoprotein"),
		row("S1", 45, "polyprotein A"),
		row("S1", 45, "polyprotein A"),
	}
	require.NoError(t, s.WriteAll("S1", rows))

	got, err := s.IndelsBySample("S1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, rows, got, "rows round-trip in written order")

	got, err = s.IndelsBySample("S2")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriteAllReplacesSample(t *testing.T) {
	s := openInMemory(t)

	require.NoError(t, s.WriteAll("S1", []*indel.Annotation{row("S1", 45, "p"), row("S1", 46, "p")}))
	require.NoError(t, s.WriteAll("S2", []*indel.Annotation{row("S2", 45, "p")}))
	require.NoError(t, s.WriteAll("S1", []*indel.Annotation{row("S1", 99, "p")}))

	got, err := s.IndelsBySample("S1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(99), got[0].Position)

	require.NoError(t, s.WriteAll("S1", nil))
	got, err = s.IndelsBySample("S1")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.IndelsBySample("S2")
	require.NoError(t, err)
	assert.Len(t, got, 1, "other samples untouched")
}

func TestIndelsByProduct(t *testing.T) {
	s := openInMemory(t)

	require.NoError(t, s.WriteAll("S2", []*indel.Annotation{
		row("S2", 45, "polyprotein A"),
		row("S2", 70, "surface glycoprotein"),
	}))
	require.NoError(t, s.WriteAll("S1", []*indel.Annotation{
		row("S1", 50, "polyprotein A"),
		row("S1", 110, ""),
	}))

	got, err := s.IndelsByProduct("polyprotein A")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "S1", got[0].SampleID, "ordered by sample")
	assert.Equal(t, "S2", got[1].SampleID)

	got, err = s.Indels(Query{SampleID: "S2", Product: "surface glycoprotein"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(70), got[0].Position)

	all, err := s.Indels(Query{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	byGene, err := s.Indels(Query{GeneName: "orf1"})
	require.NoError(t, err)
	assert.Len(t, byGene, 4)
}

func TestDeleteSample(t *testing.T) {
	s := openInMemory(t)

	require.NoError(t, s.WriteAll("S1", []*indel.Annotation{row("S1", 45, "p")}))
	_, err := s.RecordRun(Run{SampleID: "S1", Rows: 1})
	require.NoError(t, err)
	require.NoError(t, s.DeleteSample("S1"))

	got, err := s.IndelsBySample("S1")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, ok, err := s.LookupRun("S1")
	require.NoError(t, err)
	assert.False(t, ok)
}

// --- Run records ---

func TestRecordAndLookupRun(t *testing.T) {
	s := openInMemory(t)
	now := time.Date(2024, 5, 1, 12, 30, 0, 123456789, time.UTC)

	run := Run{
		SampleID:  "S1",
		VCF:       FileFingerprint{Path: "S1.vcf", Size: 1000, ModTime: now},
		Reference: FileFingerprint{Path: "ref.gb", Size: 2000, ModTime: now},
		Rows:      3,
		CreatedAt: now,
	}
	id, err := s.RecordRun(run)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	got, ok, err := s.LookupRun("S1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "S1.vcf", got.VCF.Path)
	assert.Equal(t, int64(2000), got.Reference.Size)
	assert.True(t, got.VCF.ModTime.Equal(now))
	assert.Equal(t, 3, got.Rows)
	assert.True(t, got.CreatedAt.Equal(now.Truncate(time.Second)))

	_, ok, err = s.LookupRun("S9")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordRunReplaces(t *testing.T) {
	s := openInMemory(t)

	first, err := s.RecordRun(Run{SampleID: "S1", Rows: 1})
	require.NoError(t, err)
	fixed := uuid.MustParse("6f1c2d7e-8a9b-4c3d-9e0f-112233445566")
	second, err := s.RecordRun(Run{ID: fixed, SampleID: "S1", Rows: 7})
	require.NoError(t, err)
	assert.Equal(t, fixed, second)
	assert.NotEqual(t, first, second)
	_, err = s.RecordRun(Run{SampleID: "S0", Rows: 2})
	require.NoError(t, err)

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "S0", runs[0].SampleID)
	assert.Equal(t, 7, runs[1].Rows)
	assert.Equal(t, fixed, runs[1].ID)
	assert.False(t, runs[1].CreatedAt.IsZero())
}

func TestRunUpToDate(t *testing.T) {
	s := openInMemory(t)
	now := time.Now()

	vcf := FileFingerprint{Path: "S1.vcf", Size: 1000, ModTime: now}
	ref := FileFingerprint{Path: "ref.gb", Size: 2000, ModTime: now}

	ok, err := s.RunUpToDate("S1", vcf, ref)
	require.NoError(t, err)
	assert.False(t, ok, "no run yet")

	_, err = s.RecordRun(Run{SampleID: "S1", VCF: vcf, Reference: ref})
	require.NoError(t, err)

	ok, err = s.RunUpToDate("S1", vcf, ref)
	require.NoError(t, err)
	assert.True(t, ok)

	changed := vcf
	changed.Size = 1001
	ok, err = s.RunUpToDate("S1", changed, ref)
	require.NoError(t, err)
	assert.False(t, ok)

	touched := ref
	touched.ModTime = now.Add(time.Second)
	ok, err = s.RunUpToDate("S1", vcf, touched)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.vcf")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	fp, err := StatFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, fp.Path)
	assert.Equal(t, int64(3), fp.Size)
	assert.False(t, fp.ModTime.IsZero())

	_, err = StatFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestRunSink(t *testing.T) {
	s := openInMemory(t)
	vcf := FileFingerprint{Path: "S1.vcf", Size: 10, ModTime: time.Now()}
	ref := FileFingerprint{Path: "ref.gb", Size: 20, ModTime: time.Now()}

	var sink indel.Sink = NewRunSink(s, vcf, ref)
	require.NoError(t, sink.WriteAll("S1", []*indel.Annotation{row("S1", 45, "p"), row("S1", 46, "p")}))

	got, err := s.IndelsBySample("S1")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	run, ok, err := s.LookupRun("S1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, run.Rows)
	assert.Equal(t, "S1.vcf", run.VCF.Path)

	ok, err = s.RunUpToDate("S1", vcf, ref)
	require.NoError(t, err)
	assert.True(t, ok)
}
