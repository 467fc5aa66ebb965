package indel

import (
	"path/filepath"
	"strings"
)

// sampleIDExtensions is how many trailing extensions are stripped from a
// variant file name, e.g. "S1.fastq.vcf.gz" -> "S1".
const sampleIDExtensions = 3

// SampleIDFromPath derives the sample identifier from a variant file path.
func SampleIDFromPath(path string) string {
	id := filepath.Base(path)
	for range sampleIDExtensions {
		id = trimExt(id)
	}
	return id
}

// trimExt removes the last extension. Leading dots do not start an
// extension, so ".hidden" is kept whole.
func trimExt(name string) string {
	i := strings.LastIndex(name, ".")
	if i <= 0 || strings.Trim(name[:i], ".") == "" {
		return name
	}
	return name[:i]
}
