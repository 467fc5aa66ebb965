package vcf

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_Indels(t *testing.T) {
	parser, err := NewParser(findTestFile(t, "indels.vcf"))
	require.NoError(t, err)
	defer parser.Close()

	assert.Equal(t, map[string]string{"DP": "1", "AD": "1", "ADF": "1", "ADR": "1"}, parser.numbers)

	v, err := parser.Next()
	require.NoError(t, err)
	require.NotNil(t, v)

	assert.Equal(t, "MN908947.3", v.Chrom)
	assert.Equal(t, int64(15), v.Pos)
	assert.Equal(t, "GCTA", v.Ref)
	assert.Equal(t, "G", v.Alt)
	assert.True(t, v.IsDeletion())
	assert.Equal(t, []string{"DP", "AD", "ADF", "ADR"}, v.Format)
	require.Len(t, v.Samples, 1)
	assert.Equal(t, "Sample1", v.Samples[0].Name)
	assert.Equal(t, "40", v.Samples[0].Data["AD"])

	v, err = parser.Next()
	require.NoError(t, err)
	assert.True(t, v.IsInsertion())
	assert.Equal(t, "TBBB", v.Alt)

	v, err = parser.Next()
	require.NoError(t, err)
	assert.Equal(t, []string{"G", "C"}, v.Alts)
	assert.Equal(t, "G", v.Alt)

	v, err = parser.Next()
	require.NoError(t, err)
	assert.False(t, v.HasAlt())
	assert.Equal(t, "", v.Alt)

	v, err = parser.Next()
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Equal(t, 10, parser.LineNumber())
}

func TestParser_Gzip(t *testing.T) {
	raw, err := os.ReadFile(findTestFile(t, "indels.vcf"))
	require.NoError(t, err)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err = gz.Write(raw)
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	path := filepath.Join(t.TempDir(), "indels.vcf.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	parser, err := NewParser(path)
	require.NoError(t, err)
	defer parser.Close()

	count := 0
	for {
		v, err := parser.Next()
		require.NoError(t, err)
		if v == nil {
			break
		}
		count++
	}
	assert.Equal(t, 4, count)
}

func TestParser_FormatNumbers(t *testing.T) {
	input := "##fileformat=VCFv4.2\n" +
		"##INFO=<ID=AF,Number=A,Type=Float,Description=\"Allele frequency\">\n" +
		"##FORMAT=<ID=DP,Number=1,Type=Integer,Description=\"Depth\">\n" +
		"##FORMAT=<ID=AD,Number=R,Type=Integer,Description=\"Depth per allele, ref first\">\n" +
		"##FORMAT=<ID=AO,Number=A,Type=Integer,Description=\"Alt depth\">\n" +
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tS\n" +
		"c1\t5\t.\tAT\tA,ATT\t.\t.\t.\tDP:AD:AO\t60:20,30,10:30,10\n"

	parser, err := NewParserFromReader(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"DP": "1", "AD": "R", "AO": "A"}, parser.numbers)

	v, err := parser.Next()
	require.NoError(t, err)
	require.NotNil(t, v)
	s := &v.Samples[0]

	ad, ok, err := s.Int("AD")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 30, ad)

	ao, ok, err := s.Int("AO")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 30, ao)
}

func TestParseFormatNumber(t *testing.T) {
	tests := []struct {
		line       string
		wantID     string
		wantNumber string
		wantOK     bool
	}{
		{`##FORMAT=<ID=AD,Number=R,Type=Integer,Description="Allelic depths">`, "AD", "R", true},
		{`##FORMAT=<Number=A,ID=AO,Type=Integer>`, "AO", "A", true},
		{`##FORMAT=<ID=X,Description="a, Number=9",Number=1>`, "X", "1", true},
		{`##FORMAT=<ID=GT,Type=String>`, "", "", false},
		{`##INFO=<ID=AF,Number=A,Type=Float>`, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			id, number, ok := parseFormatNumber(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantID, id)
				assert.Equal(t, tt.wantNumber, number)
			}
		})
	}
}

func TestParser_MissingTrailingNewline(t *testing.T) {
	input := "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tS\n" +
		"c1\t5\t.\tAT\tA\t.\t.\t.\tDP:AD\t40:8"

	parser, err := NewParserFromReader(strings.NewReader(input))
	require.NoError(t, err)

	v, err := parser.Next()
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "8", v.Samples[0].Data["AD"])

	v, err = parser.Next()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{"no header", "c1\t5\t.\tA\tT\t.\t.\t.\n", 1},
		{"empty", "", 0},
		{"too few columns", "#CHROM\tPOS\n c1\t5\t.\n", 2},
		{"bad position", "#CHROM\tPOS\nc1\tx\t.\tA\tT\t.\t.\t.\n", 2},
		{"zero position", "#CHROM\tPOS\nc1\t0\t.\tA\tT\t.\t.\t.\n", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser, err := NewParserFromReader(strings.NewReader(tt.input))
			if err == nil {
				_, err = parser.Next()
			}
			require.Error(t, err)

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.line, pe.Line)
		})
	}
}

func TestParseError(t *testing.T) {
	err := &ParseError{
		Line:    42,
		Message: "expected at least 8 columns, found 7",
	}

	assert.Equal(t, "vcf parse error at line 42: expected at least 8 columns, found 7", err.Error())
}

// findTestFile locates a test file in the testdata directory.
func findTestFile(t *testing.T, name string) string {
	t.Helper()

	paths := []string{
		filepath.Join("testdata", name),
		filepath.Join("..", "..", "testdata", name),
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	t.Fatalf("Test file not found: %s", name)
	return ""
}
