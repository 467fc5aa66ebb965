package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-indel/internal/duckdb"
	"github.com/inodb/vibe-indel/internal/indel"
	"github.com/inodb/vibe-indel/internal/output"
	"github.com/inodb/vibe-indel/internal/reference"
)

// genBankExtensions name reference files read as GenBank flat files.
var genBankExtensions = []string{".gb", ".gbk", ".genbank", ".gbff"}

// fastaExtensions name reference files that need --gtf for their CDS features.
var fastaExtensions = []string{".fa", ".fasta", ".fna"}

func newAnnotateCmd() *cobra.Command {
	var (
		gtfPath       string
		skipUnchanged bool
	)

	cmd := &cobra.Command{
		Use:   "annotate [flags] <vcf> <reference> <output-dir>",
		Short: "Extract qualifying indels from a VCF and annotate them",
		Long: `Extract insertions and deletions from a single-sample VCF, keep those with
depth >= --min-depth and allele frequency >= --min-frequency, and annotate
them with strand bias, codon-frame validity, the containing CDS and a
placement string. Rows are written to <output-dir>/<sample>_indels_af10_dp30.csv.

The reference is a GenBank flat file (optionally gzipped), or a FASTA file
when --gtf supplies the CDS features.`,
		Example: `  vibe-indel annotate S1.vcf MN908947.3.gb out/
  vibe-indel annotate --gtf cds.gtf S1.vcf.gz MN908947.3.fa out/
  vibe-indel annotate --db indels.duckdb --workers 4 S1.vcf ref.gb out/`,
		Args: usageArgs(cobra.ExactArgs(3)),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, map[string]string{
				"vcf.sample":               "sample",
				"filter.min_depth":         "min-depth",
				"filter.min_frequency":     "min-frequency",
				"strand_bias.threshold":    "strand-bias-threshold",
				"placement.flank":          "flank",
				"pipeline.workers":         "workers",
				"pipeline.on_record_error": "on-record-error",
				"output.db":                "db",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnnotate(args[0], args[1], args[2], gtfPath, skipUnchanged)
		},
	}

	f := cmd.Flags()
	f.StringVar(&gtfPath, "gtf", "", "GTF file with CDS features for a FASTA reference")
	f.String("sample", "", "VCF sample column to read (default: first sample)")
	f.Int("min-depth", indel.DefaultMinDepth, "minimum read depth (DP)")
	f.Float64("min-frequency", indel.DefaultMinFrequency, "minimum allele frequency in percent")
	f.Float64("strand-bias-threshold", indel.DefaultStrandBiasThreshold, "strand share at or above which an indel fails strand bias")
	f.Int("flank", indel.DefaultFlank, "reference bases shown on each side of the placement")
	f.Int("workers", 1, "annotation workers (0 = all CPUs)")
	f.String("on-record-error", string(indel.AbortOnError), "what to do with records missing sample data: abort or skip")
	f.String("db", "", "also store rows in this DuckDB database")
	f.BoolVar(&skipUnchanged, "skip-unchanged", false, "with --db, skip samples whose inputs are unchanged since the stored run")

	return cmd
}

// bindFlags binds config keys to the running command's flags so a set flag
// overrides the config file and environment.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, flag := range keys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// optionsFromConfig reads and validates annotation options from viper.
func optionsFromConfig() (indel.Options, error) {
	policy, err := indel.ParseRecordErrorPolicy(viper.GetString("pipeline.on_record_error"))
	if err != nil {
		return indel.Options{}, err
	}

	opts := indel.Options{
		MinDepth:            viper.GetInt("filter.min_depth"),
		MinFrequency:        viper.GetFloat64("filter.min_frequency"),
		StrandBiasThreshold: viper.GetFloat64("strand_bias.threshold"),
		Flank:               viper.GetInt("placement.flank"),
		SampleName:          viper.GetString("vcf.sample"),
		Workers:             viper.GetInt("pipeline.workers"),
		OnRecordError:       policy,
	}

	switch {
	case opts.MinDepth < 0:
		return opts, fmt.Errorf("min depth must not be negative, got %d", opts.MinDepth)
	case opts.MinFrequency < 0 || opts.MinFrequency > 100:
		return opts, fmt.Errorf("min frequency must be within 0..100, got %g", opts.MinFrequency)
	case opts.StrandBiasThreshold <= 0 || opts.StrandBiasThreshold > 1:
		return opts, fmt.Errorf("strand bias threshold must be within (0, 1], got %g", opts.StrandBiasThreshold)
	case opts.Flank < 0:
		return opts, fmt.Errorf("flank must not be negative, got %d", opts.Flank)
	case opts.Workers < 0:
		return opts, fmt.Errorf("workers must not be negative, got %d", opts.Workers)
	}
	if opts.Workers == 0 {
		opts.Workers = runtime.NumCPU()
	}
	return opts, nil
}

// referenceSource picks the loader for a reference path. With a GTF the
// reference is read as FASTA; otherwise it must not look like FASTA and is
// read as GenBank.
func referenceSource(refPath, gtfPath string) (reference.Source, error) {
	if gtfPath != "" {
		return reference.NewGTFLoader(refPath, gtfPath), nil
	}
	if hasExtension(refPath, fastaExtensions) {
		return nil, fmt.Errorf("reference %s looks like FASTA: pass its CDS features with --gtf", refPath)
	}
	return reference.NewGenBankLoader(refPath), nil
}

// hasExtension reports whether path ends in one of exts, ignoring case and a
// trailing .gz.
func hasExtension(path string, exts []string) bool {
	lower := strings.TrimSuffix(strings.ToLower(path), ".gz")
	ext := filepath.Ext(lower)
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

func runAnnotate(vcfPath, refPath, outDir, gtfPath string, skipUnchanged bool) error {
	opts, err := optionsFromConfig()
	if err != nil {
		return err
	}

	if !hasExtension(refPath, genBankExtensions) && gtfPath == "" && !hasExtension(refPath, fastaExtensions) {
		logger.Warn("unrecognized reference extension, reading as GenBank", zap.String("path", refPath))
	}
	src, err := referenceSource(refPath, gtfPath)
	if err != nil {
		return err
	}

	// The store is written first so a CSV on disk implies its rows were stored.
	csvSink := output.NewCSVSink(outDir)
	var sinks []indel.Sink

	if dbPath := viper.GetString("output.db"); dbPath != "" {
		store, err := duckdb.Open(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		vcfFP, err := duckdb.StatFile(vcfPath)
		if err != nil {
			return &indel.VariantStreamError{Path: vcfPath, Err: err}
		}
		// The annotation file identifies the reference: GTF when given, else GenBank.
		annPath := refPath
		if gtfPath != "" {
			annPath = gtfPath
		}
		refFP, err := duckdb.StatFile(annPath)
		if err != nil {
			return &reference.ReferenceLoadError{Path: annPath, Err: err}
		}

		sampleID := indel.SampleIDFromPath(vcfPath)
		if skipUnchanged {
			upToDate, err := store.RunUpToDate(sampleID, vcfFP, refFP)
			if err != nil {
				return err
			}
			if _, statErr := os.Stat(csvSink.Path(sampleID)); upToDate && statErr == nil {
				logger.Info("inputs unchanged since stored run, skipping",
					zap.String("sample", sampleID),
					zap.String("db", dbPath))
				return nil
			}
		}

		sinks = append(sinks, duckdb.NewRunSink(store, vcfFP, refFP))
		logger.Debug("storing rows", zap.String("db", dbPath))
	} else if skipUnchanged {
		return &usageError{command: "vibe-indel annotate", err: fmt.Errorf("--skip-unchanged requires --db")}
	}
	sinks = append(sinks, csvSink)

	p := indel.NewPipeline(src, vcfPath, opts, sinks...)
	p.SetLogger(logger)

	res, err := p.Run()
	if err != nil {
		return err
	}

	logger.Info("wrote indels",
		zap.String("sample", res.SampleID),
		zap.String("path", csvSink.Path(res.SampleID)),
		zap.Int("rows", len(res.Rows)))
	return nil
}
