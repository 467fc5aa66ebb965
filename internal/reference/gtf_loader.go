package reference

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// GTFLoader combines a single-contig FASTA sequence with CDS features from a
// GTF (or GFF-style GTF) annotation file.
type GTFLoader struct {
	fastaPath string
	gtfPath   string
}

// NewGTFLoader creates a loader for a FASTA sequence plus GTF CDS annotations.
func NewGTFLoader(fastaPath, gtfPath string) *GTFLoader {
	return &GTFLoader{fastaPath: fastaPath, gtfPath: gtfPath}
}

// Load reads the sequence and CDS features. Only CDS lines on the FASTA
// record's contig are kept.
func (l *GTFLoader) Load() (*Reference, error) {
	name, seq, err := NewFASTALoader(l.fastaPath).Load()
	if err != nil {
		return nil, &ReferenceLoadError{Path: l.fastaPath, Err: err}
	}
	if seq == "" {
		return nil, &ReferenceLoadError{Path: l.fastaPath, Err: fmt.Errorf("record %s has no sequence", name)}
	}

	r, closeFn, err := openInput(l.gtfPath)
	if err != nil {
		return nil, &ReferenceLoadError{Path: l.gtfPath, Err: fmt.Errorf("open GTF file: %w", err)}
	}
	defer closeFn()

	features, err := parseGTFCDS(r, name)
	if err != nil {
		return nil, &ReferenceLoadError{Path: l.gtfPath, Err: err}
	}

	return &Reference{Name: name, Sequence: seq, Features: features}, nil
}

// gtfFeature represents a parsed GTF line.
type gtfFeature struct {
	chrom       string
	featureType string
	start       int64
	end         int64
	attributes  map[string]string
}

// parseGTFCDS collects CDS lines into one feature per coding sequence.
// Lines are grouped by protein_id, then transcript_id, then gene_id; each
// group spans from its smallest start to its largest end and groups keep the
// order in which they first appear. An empty contig keeps every line.
func parseGTFCDS(reader io.Reader, contig string) ([]Feature, error) {
	scanner := bufio.NewScanner(reader)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var (
		order  []string
		groups = make(map[string]*Feature)
	)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		feat, err := parseGTFLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		if feat.featureType != "CDS" {
			continue
		}
		if contig != "" && feat.chrom != contig {
			continue
		}

		key := groupKey(feat, lineNum)
		// GTF is 1-based closed; Feature is 0-based half-open.
		start, end := feat.start-1, feat.end

		g, ok := groups[key]
		if !ok {
			groups[key] = &Feature{
				Start:    start,
				End:      end,
				GeneName: orNotAvailable(firstAttr(feat.attributes, "gene_name", "gene")),
				Product:  orNotAvailable(firstAttr(feat.attributes, "product")),
			}
			order = append(order, key)
			continue
		}
		g.Start = min(g.Start, start)
		g.End = max(g.End, end)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan GTF: %w", err)
	}

	features := make([]Feature, 0, len(order))
	for _, key := range order {
		features = append(features, *groups[key])
	}
	return features, nil
}

// groupKey picks the identifier that ties CDS lines of one coding sequence together.
func groupKey(f *gtfFeature, lineNum int) string {
	if id := firstAttr(f.attributes, "protein_id", "transcript_id", "gene_id"); id != "" {
		return id
	}
	return "line:" + strconv.Itoa(lineNum)
}

func firstAttr(attrs map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := attrs[k]; v != "" {
			return v
		}
	}
	return ""
}

// parseGTFLine parses a single GTF line.
func parseGTFLine(line string) (*gtfFeature, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 9 {
		return nil, fmt.Errorf("invalid GTF line: expected 9 fields, got %d", len(fields))
	}

	start, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse start: %w", err)
	}

	end, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse end: %w", err)
	}

	return &gtfFeature{
		chrom:       fields[0],
		featureType: fields[2],
		start:       start,
		end:         end,
		attributes:  parseAttributes(fields[8]),
	}, nil
}

// parseAttributes parses the GTF attribute column.
// Format: key "value"; key "value"; ...
// The first occurrence of a repeated key wins.
func parseAttributes(attrStr string) map[string]string {
	attrs := make(map[string]string)

	for _, part := range strings.Split(attrStr, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		idx := strings.IndexAny(part, " =")
		if idx == -1 {
			continue
		}

		key := part[:idx]
		value := strings.Trim(strings.TrimSpace(part[idx+1:]), "\"")

		if _, seen := attrs[key]; !seen {
			attrs[key] = value
		}
	}

	return attrs
}
