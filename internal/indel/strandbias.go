package indel

// DefaultStrandBiasThreshold is the per-strand share at or above which an
// indel is considered strand biased.
const DefaultStrandBiasThreshold = 0.9

// StrandBias holds the forward/reverse shares of alternate allele support.
type StrandBias struct {
	ADFRatio float64
	ADRRatio float64
	Pass     bool
	// Defined is false when there is no stranded support at all (ADF+ADR == 0).
	Defined bool
}

// EvaluateStrandBias computes the forward and reverse allele-depth ratios and
// whether both stay below threshold. With no stranded support the ratios are
// 0 and the indel fails the check.
func EvaluateStrandBias(adf, adr int, threshold float64) StrandBias {
	total := adf + adr
	if total == 0 {
		return StrandBias{}
	}

	sb := StrandBias{
		ADFRatio: round2(float64(adf) / float64(total)),
		ADRRatio: round2(float64(adr) / float64(total)),
		Defined:  true,
	}
	sb.Pass = sb.ADFRatio < threshold && sb.ADRRatio < threshold
	return sb
}
