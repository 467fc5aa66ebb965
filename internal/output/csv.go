// Package output writes annotated indels to their persistent forms.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/inodb/vibe-indel/internal/indel"
)

// FileSuffix is appended to the sample id to name the per-sample CSV file.
const FileSuffix = "_indels_af10_dp30.csv"

// Columns is the CSV header, in output order.
var Columns = []string{
	"SAMPLE_ID",
	"POSITION",
	"REFERENCE_SEQ",
	"ALTERNATIVE_SEQ",
	"SEQ_DEPTH",
	"ALT_SEQ_DEPTH",
	"FREQUENCY",
	"ADF_RATIO",
	"ADR_RATIO",
	"STRND_BIAS_PASS",
	"VALID_CODON_LEN",
	"CHANGE_TYPE",
	"PRODUCT",
	"PLACEMENT",
}

// CSVWriter writes annotations as comma-separated rows with CRLF line endings.
type CSVWriter struct {
	w *csv.Writer
}

// NewCSVWriter creates a new CSV writer.
func NewCSVWriter(w io.Writer) *CSVWriter {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	return &CSVWriter{w: cw}
}

// WriteHeader writes the header line.
func (cw *CSVWriter) WriteHeader() error {
	return cw.w.Write(Columns)
}

// Write writes a single annotation.
func (cw *CSVWriter) Write(a *indel.Annotation) error {
	return cw.w.Write(Record(a))
}

// Flush flushes any buffered data.
func (cw *CSVWriter) Flush() error {
	cw.w.Flush()
	return cw.w.Error()
}

// Record renders an annotation as CSV fields in Columns order.
func Record(a *indel.Annotation) []string {
	freq := FormatFloat(a.Frequency)
	if a.Depth == 0 {
		// Zero depth has no ratio to report.
		freq = "0"
	}
	return []string{
		a.SampleID,
		strconv.FormatInt(a.Position, 10),
		a.Ref,
		a.Alt,
		strconv.Itoa(a.Depth),
		strconv.Itoa(a.AlleleDepth),
		freq,
		FormatFloat(a.ADFRatio),
		FormatFloat(a.ADRRatio),
		FormatBool(a.StrandBiasPass),
		FormatBool(a.FrameValid),
		string(a.ChangeType),
		a.Product,
		a.Placement,
	}
}

// FormatFloat renders f as the shortest decimal that round-trips, always
// with a fractional part ("50.0", "33.33"). Exponent form is used below 1e-4
// and from 1e16 on.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	if abs := math.Abs(f); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// FormatBool renders b as "True" or "False".
func FormatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// CSVSink writes one CSV file per sample into a directory.
type CSVSink struct {
	dir string
}

// NewCSVSink creates a sink writing into dir. The directory is created on
// first write.
func NewCSVSink(dir string) *CSVSink {
	return &CSVSink{dir: dir}
}

// Path returns the file the sink writes for sampleID.
func (s *CSVSink) Path(sampleID string) string {
	return filepath.Join(s.dir, sampleID+FileSuffix)
}

// WriteAll writes the header and all rows for a sample, replacing any
// existing file.
func (s *CSVSink) WriteAll(sampleID string, rows []*indel.Annotation) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.Create(s.Path(sampleID))
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}

	w := NewCSVWriter(f)
	if err := w.WriteHeader(); err != nil {
		f.Close()
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			f.Close()
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush csv: %w", err)
	}
	return f.Close()
}
