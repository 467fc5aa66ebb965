package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-indel/internal/indel"
)

const indelColumns = `sample_id, position, ref, alt, depth, allele_depth,
	frequency, adf_ratio, adr_ratio, strand_bias_pass, frame_valid,
	change_type, in_cds, gene_name, product, placement`

// WriteAll replaces the stored rows of a sample with rows, keeping their order.
// The delete and the append run in one transaction.
func (s *Store) WriteAll(sampleID string, rows []*indel.Annotation) (err error) {
	ctx := context.Background()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN TRANSACTION"); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			conn.ExecContext(ctx, "ROLLBACK")
		}
	}()

	if _, err := conn.ExecContext(ctx, "DELETE FROM indel_annotations WHERE sample_id=?", sampleID); err != nil {
		return fmt.Errorf("delete sample rows: %w", err)
	}

	if len(rows) > 0 {
		if err := appendRows(conn, sampleID, rows); err != nil {
			return err
		}
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func appendRows(conn *sql.Conn, sampleID string, rows []*indel.Annotation) error {
	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "indel_annotations")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for i, a := range rows {
		if err := appender.AppendRow(
			sampleID, int32(i), a.Position, a.Ref, a.Alt,
			int32(a.Depth), int32(a.AlleleDepth),
			a.Frequency, a.ADFRatio, a.ADRRatio, a.StrandBiasPass, a.FrameValid,
			string(a.ChangeType), a.InCDS, a.GeneName, a.Product, a.Placement,
		); err != nil {
			return fmt.Errorf("append indel: %w", err)
		}
	}

	if err := appender.Flush(); err != nil {
		return fmt.Errorf("flush appender: %w", err)
	}
	return nil
}

// Query selects stored indels. Empty fields match everything.
type Query struct {
	SampleID string
	Product  string
	GeneName string
}

// Indels returns stored rows matching q, ordered by sample and then by the
// order they were written in.
func (s *Store) Indels(q Query) ([]*indel.Annotation, error) {
	var where []string
	var args []any
	if q.SampleID != "" {
		where = append(where, "sample_id=?")
		args = append(args, q.SampleID)
	}
	if q.Product != "" {
		where = append(where, "product=?")
		args = append(args, q.Product)
	}
	if q.GeneName != "" {
		where = append(where, "gene_name=?")
		args = append(args, q.GeneName)
	}

	query := "SELECT " + indelColumns + " FROM indel_annotations"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY sample_id, row_num"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query indels: %w", err)
	}
	defer rows.Close()

	return scanIndels(rows)
}

// IndelsBySample returns the stored rows of one sample in written order.
func (s *Store) IndelsBySample(sampleID string) ([]*indel.Annotation, error) {
	return s.Indels(Query{SampleID: sampleID})
}

// IndelsByProduct returns stored rows of all samples falling in CDS regions
// with the given product.
func (s *Store) IndelsByProduct(product string) ([]*indel.Annotation, error) {
	return s.Indels(Query{Product: product})
}

// DeleteSample removes the stored rows and run record of a sample.
func (s *Store) DeleteSample(sampleID string) error {
	if _, err := s.db.Exec("DELETE FROM indel_annotations WHERE sample_id=?", sampleID); err != nil {
		return fmt.Errorf("delete sample rows: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM runs WHERE sample_id=?", sampleID); err != nil {
		return fmt.Errorf("delete sample run: %w", err)
	}
	return nil
}

// scanIndels scans rows into annotations.
func scanIndels(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]*indel.Annotation, error) {
	var out []*indel.Annotation
	for rows.Next() {
		var a indel.Annotation
		var changeType string
		if err := rows.Scan(
			&a.SampleID, &a.Position, &a.Ref, &a.Alt, &a.Depth, &a.AlleleDepth,
			&a.Frequency, &a.ADFRatio, &a.ADRRatio, &a.StrandBiasPass, &a.FrameValid,
			&changeType, &a.InCDS, &a.GeneName, &a.Product, &a.Placement,
		); err != nil {
			return nil, fmt.Errorf("scan indel: %w", err)
		}
		a.ChangeType = indel.ChangeType(changeType)
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate indels: %w", err)
	}
	return out, nil
}
