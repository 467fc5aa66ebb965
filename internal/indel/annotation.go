package indel

// Annotation is one output row for a qualifying indel.
type Annotation struct {
	SampleID       string
	Position       int64 // 1-based VCF position
	Ref            string
	Alt            string
	Depth          int
	AlleleDepth    int
	Frequency      float64 // percent
	ADFRatio       float64
	ADRRatio       float64
	StrandBiasPass bool
	FrameValid     bool
	ChangeType     ChangeType
	InCDS          bool
	GeneName       string // "" outside every CDS
	Product        string // "" outside every CDS
	Placement      string
}
