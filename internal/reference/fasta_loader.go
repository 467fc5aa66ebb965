package reference

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// FASTALoader reads the first record of a (possibly gzipped) FASTA file.
type FASTALoader struct {
	path string
}

// NewFASTALoader creates a new FASTA loader.
func NewFASTALoader(path string) *FASTALoader {
	return &FASTALoader{path: path}
}

// Load returns the name and sequence of the first FASTA record.
func (l *FASTALoader) Load() (name, sequence string, err error) {
	r, closeFn, err := openInput(l.path)
	if err != nil {
		return "", "", fmt.Errorf("open FASTA file: %w", err)
	}
	defer closeFn()

	return parseFirstFASTA(r)
}

// parseFirstFASTA returns the first record. Later records are ignored.
func parseFirstFASTA(reader io.Reader) (string, string, error) {
	scanner := bufio.NewScanner(reader)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024) // 10MB max line

	var (
		name   string
		inSeq  bool
		seqBuf strings.Builder
	)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ">") {
			if inSeq {
				break
			}
			inSeq = true
			name = parseFASTAName(line)
			continue
		}

		if !inSeq {
			return "", "", fmt.Errorf("sequence data before first FASTA header")
		}
		seqBuf.WriteString(strings.ToUpper(line))
	}

	if err := scanner.Err(); err != nil {
		return "", "", fmt.Errorf("scan FASTA: %w", err)
	}
	if !inSeq {
		return "", "", fmt.Errorf("no FASTA records found")
	}

	return name, seqBuf.String(), nil
}

// parseFASTAName extracts the record identifier from a header line.
// ">MN908947.3 Severe acute ..." -> "MN908947.3"
func parseFASTAName(header string) string {
	header = strings.TrimPrefix(header, ">")
	if idx := strings.IndexAny(header, " \t|"); idx != -1 {
		return header[:idx]
	}
	return header
}
