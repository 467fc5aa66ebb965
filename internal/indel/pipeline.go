package indel

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/vibe-indel/internal/reference"
	"github.com/inodb/vibe-indel/internal/vcf"
)

// State is a pipeline lifecycle stage.
type State int

// Pipeline states. A run moves Init -> LoadingAnnotation -> Streaming and
// ends in Done or Failed.
const (
	StateInit State = iota
	StateLoadingAnnotation
	StateStreaming
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateLoadingAnnotation:
		return "loading-annotation"
	case StateStreaming:
		return "streaming"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Sink persists the annotated rows of one sample in a single bulk write.
type Sink interface {
	WriteAll(sampleID string, rows []*Annotation) error
}

// Stats counts what happened to the records of a run.
type Stats struct {
	Records    int // records read from the variant source
	Indels     int // records whose first ALT changes length
	Qualifying int // rows produced
	Failed     int // records dropped under SkipOnError
}

// Result is the outcome of a completed run.
type Result struct {
	SampleID string
	Rows     []*Annotation
	Stats    Stats
}

// Pipeline streams one variant file through the annotator and hands the rows
// to its sinks once the file is exhausted. Rows keep variant-file order.
type Pipeline struct {
	source      reference.Source
	variantPath string
	sinks       []Sink
	opts        Options
	logger      *zap.Logger
	state       State
}

// NewPipeline creates a pipeline for the variant file at variantPath.
func NewPipeline(source reference.Source, variantPath string, opts Options, sinks ...Sink) *Pipeline {
	return &Pipeline{
		source:      source,
		variantPath: variantPath,
		sinks:       sinks,
		opts:        opts,
		logger:      zap.NewNop(),
	}
}

// SetLogger sets the logger for progress and warning messages.
func (p *Pipeline) SetLogger(l *zap.Logger) {
	p.logger = l
}

// State returns the current lifecycle stage.
func (p *Pipeline) State() State {
	return p.state
}

// Run executes the pipeline. On error the pipeline ends in StateFailed.
// Sinks are written in order and the first failing sink stops the rest;
// sinks before it keep what they wrote. Errors before the sink stage leave
// every sink untouched.
func (p *Pipeline) Run() (*Result, error) {
	if p.state != StateInit {
		return nil, fmt.Errorf("pipeline already run (state %s)", p.state)
	}

	res, err := p.run()
	if err != nil {
		p.state = StateFailed
		return nil, err
	}
	p.state = StateDone
	return res, nil
}

func (p *Pipeline) run() (*Result, error) {
	p.state = StateLoadingAnnotation
	ref, err := p.source.Load()
	if err != nil {
		var rle *reference.ReferenceLoadError
		if !errors.As(err, &rle) {
			err = &reference.ReferenceLoadError{Err: err}
		}
		return nil, err
	}
	if ref.Sequence == "" {
		return nil, &reference.ReferenceLoadError{Path: ref.Name, Err: errors.New("empty reference sequence")}
	}
	p.logger.Info("loaded reference",
		zap.String("name", ref.Name),
		zap.Int("length", len(ref.Sequence)),
		zap.Int("cds", len(ref.Features)))

	p.state = StateStreaming
	parser, err := vcf.NewParser(p.variantPath)
	if err != nil {
		return nil, &VariantStreamError{Path: p.variantPath, Err: err}
	}
	defer parser.Close()

	res := &Result{SampleID: SampleIDFromPath(p.variantPath)}
	ann := NewAnnotator(ref, res.SampleID, p.opts)
	ann.SetLogger(p.logger)

	collect := func(r WorkResult) error {
		res.Stats.Records++
		if r.Variant.IsIndel() {
			res.Stats.Indels++
		}
		if r.Err != nil {
			if p.opts.OnRecordError != SkipOnError {
				return r.Err
			}
			res.Stats.Failed++
			p.logger.Warn("skipping record",
				zap.String("chrom", r.Variant.Chrom),
				zap.Int64("pos", r.Variant.Pos),
				zap.Error(r.Err))
			return nil
		}
		if r.Ann != nil {
			res.Rows = append(res.Rows, r.Ann)
		}
		return nil
	}

	if p.opts.Workers > 1 {
		err = p.streamParallel(parser, ann, collect)
	} else {
		err = p.streamSequential(parser, ann, collect)
	}
	if err != nil {
		return nil, err
	}
	res.Stats.Qualifying = len(res.Rows)

	p.logger.Info("annotated variants",
		zap.String("sample", res.SampleID),
		zap.Int("records", res.Stats.Records),
		zap.Int("indels", res.Stats.Indels),
		zap.Int("qualifying", res.Stats.Qualifying),
		zap.Int("failed", res.Stats.Failed))

	for _, s := range p.sinks {
		if err := s.WriteAll(res.SampleID, res.Rows); err != nil {
			return nil, fmt.Errorf("write output: %w", err)
		}
	}

	return res, nil
}

func (p *Pipeline) streamSequential(parser vcf.VariantParser, ann *Annotator, collect func(WorkResult) error) error {
	for seq := 0; ; seq++ {
		v, err := parser.Next()
		if err != nil {
			return &VariantStreamError{Path: p.variantPath, Err: err}
		}
		if v == nil {
			return nil
		}

		a, err := ann.Annotate(v)
		if err := collect(WorkResult{Seq: seq, Variant: v, Ann: a, Err: err}); err != nil {
			return err
		}
	}
}

func (p *Pipeline) streamParallel(parser vcf.VariantParser, ann *Annotator, collect func(WorkResult) error) error {
	items := make(chan WorkItem, 2*p.opts.Workers)
	var parseErr error

	go func() {
		defer close(items)
		for seq := 0; ; seq++ {
			v, err := parser.Next()
			if err != nil {
				parseErr = &VariantStreamError{Path: p.variantPath, Err: err}
				return
			}
			if v == nil {
				return
			}
			items <- WorkItem{Seq: seq, Variant: v}
		}
	}()

	results := ann.ParallelAnnotate(items, p.opts.Workers)
	if err := OrderedCollect(results, collect); err != nil {
		return err
	}
	return parseErr
}
