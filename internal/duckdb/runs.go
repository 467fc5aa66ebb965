package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/inodb/vibe-indel/internal/indel"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

func (f FileFingerprint) modTime() string {
	return f.ModTime.UTC().Format(time.RFC3339Nano)
}

// Run records which inputs produced the stored rows of a sample.
type Run struct {
	ID        uuid.UUID
	SampleID  string
	VCF       FileFingerprint
	Reference FileFingerprint
	Rows      int
	CreatedAt time.Time
}

// RecordRun stores r, replacing an earlier run of the same sample. A zero ID
// or CreatedAt is filled in. It returns the stored run ID.
func (s *Store) RecordRun(r Run) (uuid.UUID, error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	created := r.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO runs VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SampleID, r.ID.String(),
		r.VCF.Path, r.VCF.Size, r.VCF.modTime(),
		r.Reference.Path, r.Reference.Size, r.Reference.modTime(),
		r.Rows, created.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("record run: %w", err)
	}
	return r.ID, nil
}

// LookupRun returns the stored run of a sample, or ok=false if there is none.
func (s *Store) LookupRun(sampleID string) (Run, bool, error) {
	row := s.db.QueryRow(`SELECT sample_id, run_id, vcf_path, vcf_size, vcf_modtime,
		reference_path, reference_size, reference_modtime, row_count, created_at
		FROM runs WHERE sample_id=?`, sampleID)

	var r Run
	var runID, vcfMod, refMod, created string
	err := row.Scan(&r.SampleID, &runID,
		&r.VCF.Path, &r.VCF.Size, &vcfMod,
		&r.Reference.Path, &r.Reference.Size, &refMod,
		&r.Rows, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("lookup run: %w", err)
	}

	if r.ID, err = uuid.Parse(runID); err != nil {
		return Run{}, false, fmt.Errorf("parse run id: %w", err)
	}
	if r.VCF.ModTime, err = time.Parse(time.RFC3339Nano, vcfMod); err != nil {
		return Run{}, false, fmt.Errorf("parse vcf modtime: %w", err)
	}
	if r.Reference.ModTime, err = time.Parse(time.RFC3339Nano, refMod); err != nil {
		return Run{}, false, fmt.Errorf("parse reference modtime: %w", err)
	}
	if r.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return Run{}, false, fmt.Errorf("parse created_at: %w", err)
	}
	return r, true, nil
}

// RunUpToDate reports whether the stored run of a sample was made from files
// with the same size and modification time as vcf and ref.
func (s *Store) RunUpToDate(sampleID string, vcf, ref FileFingerprint) (bool, error) {
	r, ok, err := s.LookupRun(sampleID)
	if err != nil || !ok {
		return false, err
	}

	checks := []struct{ stored, current string }{
		{strconv.FormatInt(r.VCF.Size, 10), strconv.FormatInt(vcf.Size, 10)},
		{r.VCF.modTime(), vcf.modTime()},
		{strconv.FormatInt(r.Reference.Size, 10), strconv.FormatInt(ref.Size, 10)},
		{r.Reference.modTime(), ref.modTime()},
	}
	for _, c := range checks {
		if c.stored != c.current {
			return false, nil
		}
	}
	return true, nil
}

// Runs returns all stored runs ordered by sample.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(`SELECT sample_id FROM runs ORDER BY sample_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan run: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	runs := make([]Run, 0, len(ids))
	for _, id := range ids {
		r, _, err := s.LookupRun(id)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, nil
}

// RunSink stores the annotated rows of a sample together with the run that
// produced them.
type RunSink struct {
	store     *Store
	vcf       FileFingerprint
	reference FileFingerprint
}

// NewRunSink creates a sink recording vcf and ref as the run inputs.
func NewRunSink(store *Store, vcf, ref FileFingerprint) *RunSink {
	return &RunSink{store: store, vcf: vcf, reference: ref}
}

// WriteAll stores rows and then the run record.
func (rs *RunSink) WriteAll(sampleID string, rows []*indel.Annotation) error {
	if err := rs.store.WriteAll(sampleID, rows); err != nil {
		return err
	}
	_, err := rs.store.RecordRun(Run{
		SampleID:  sampleID,
		VCF:       rs.vcf,
		Reference: rs.reference,
		Rows:      len(rows),
	})
	return err
}
