package indel

// DefaultFlank is the number of reference bases shown on each side of an indel.
const DefaultFlank = 15

// PlacementMarker delimits the mutated span in a placement string.
const PlacementMarker = "*"

// RenderDeletion shows a deletion in reference context:
// left flank, "*", deleted bases (REF without its anchor), "*", right flank.
// pos is the 1-based VCF position of the anchor base.
func RenderDeletion(pos int64, ref, reference string, flank int) string {
	p := int(pos)
	end := p + len(ref) - 1
	return sliceRef(reference, p-flank, p) +
		PlacementMarker + sliceRef(reference, p, end) +
		PlacementMarker + sliceRef(reference, end, end+flank)
}

// RenderInsertion shows an insertion in reference context:
// left flank, "*", inserted bases (ALT without its anchor), "*", right flank.
func RenderInsertion(pos int64, alt, reference string, flank int) string {
	p := int(pos)
	inserted := ""
	if len(alt) > 1 {
		inserted = alt[1:]
	}
	return sliceRef(reference, p-flank, p) +
		PlacementMarker + inserted +
		PlacementMarker + sliceRef(reference, p, p+flank)
}

// Render dispatches on the change type.
func Render(c Classification, reference string, flank int) string {
	if c.ChangeType == Deletion {
		return RenderDeletion(c.Position, c.Ref, reference, flank)
	}
	return RenderInsertion(c.Position, c.Alt, reference, flank)
}

// sliceRef returns s[start:end] with the bound handling placements have always
// used: a negative bound counts back from the end of s, bounds past either end
// are clamped, and an empty range yields "". Near the start of the contig this
// gives an empty or short left flank rather than padding.
func sliceRef(s string, start, end int) string {
	n := len(s)
	start = clampBound(start, n)
	end = clampBound(end, n)
	if start >= end {
		return ""
	}
	return s[start:end]
}

func clampBound(i, n int) int {
	if i < 0 {
		i += n
		if i < 0 {
			return 0
		}
	}
	if i > n {
		return n
	}
	return i
}
