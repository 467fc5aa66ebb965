package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/inodb/vibe-indel/internal/duckdb"
	"github.com/inodb/vibe-indel/internal/output"
)

func newQueryCmd() *cobra.Command {
	var (
		q        duckdb.Query
		showRuns bool
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Print indels stored in a DuckDB database",
		Long: `Print indels stored by 'annotate --db' as CSV, in the same layout as the
per-sample files. Filters combine with AND. With --runs, print the stored
run records instead.`,
		Example: `  vibe-indel query --db indels.duckdb --sample S1
  vibe-indel query --db indels.duckdb --product "surface glycoprotein"
  vibe-indel query --db indels.duckdb --runs`,
		Args: usageArgs(cobra.NoArgs),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, map[string]string{"output.db": "db"})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath := viper.GetString("output.db")
			if dbPath == "" {
				return &usageError{command: cmd.CommandPath(), err: fmt.Errorf("--db is required")}
			}

			store, err := duckdb.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if showRuns {
				return printRuns(cmd.OutOrStdout(), store)
			}
			return printIndels(cmd.OutOrStdout(), store, q)
		},
	}

	f := cmd.Flags()
	f.String("db", "", "DuckDB database written by annotate --db")
	f.StringVar(&q.SampleID, "sample", "", "only rows of this sample id")
	f.StringVar(&q.Product, "product", "", "only rows in CDS regions with this product")
	f.StringVar(&q.GeneName, "gene", "", "only rows in CDS regions of this gene")
	f.BoolVar(&showRuns, "runs", false, "print stored runs as YAML")

	return cmd
}

func printIndels(w io.Writer, store *duckdb.Store, q duckdb.Query) error {
	rows, err := store.Indels(q)
	if err != nil {
		return err
	}

	cw := output.NewCSVWriter(w)
	if err := cw.WriteHeader(); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	return cw.Flush()
}

// runRecord is the YAML form of a stored run.
type runRecord struct {
	ID           string    `yaml:"id"`
	Sample       string    `yaml:"sample"`
	VCF          string    `yaml:"vcf"`
	VCFSize      int64     `yaml:"vcf_size"`
	VCFModTime   time.Time `yaml:"vcf_modtime"`
	Reference    string    `yaml:"reference"`
	RefSize      int64     `yaml:"reference_size"`
	RefModTime   time.Time `yaml:"reference_modtime"`
	Rows         int       `yaml:"rows"`
	RecordedTime time.Time `yaml:"recorded_at"`
}

func printRuns(w io.Writer, store *duckdb.Store) error {
	runs, err := store.Runs()
	if err != nil {
		return err
	}

	records := make([]runRecord, 0, len(runs))
	for _, r := range runs {
		records = append(records, runRecord{
			ID:           r.ID.String(),
			Sample:       r.SampleID,
			VCF:          r.VCF.Path,
			VCFSize:      r.VCF.Size,
			VCFModTime:   r.VCF.ModTime.UTC(),
			Reference:    r.Reference.Path,
			RefSize:      r.Reference.Size,
			RefModTime:   r.Reference.ModTime.UTC(),
			Rows:         r.Rows,
			RecordedTime: r.CreatedAt.UTC(),
		})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode runs: %w", err)
	}
	return enc.Close()
}
