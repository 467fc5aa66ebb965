// Package duckdb stores annotated indels from many samples in one DuckDB
// database so they can be queried together.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection holding indel annotations and run records.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file, or "" for an in-memory store.
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS indel_annotations (
		sample_id VARCHAR,
		row_num INTEGER,
		position BIGINT,
		ref VARCHAR,
		alt VARCHAR,
		depth INTEGER,
		allele_depth INTEGER,
		frequency DOUBLE,
		adf_ratio DOUBLE,
		adr_ratio DOUBLE,
		strand_bias_pass BOOLEAN,
		frame_valid BOOLEAN,
		change_type VARCHAR,
		in_cds BOOLEAN,
		gene_name VARCHAR,
		product VARCHAR,
		placement VARCHAR,
		PRIMARY KEY (sample_id, row_num)
	)`); err != nil {
		return err
	}

	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		sample_id VARCHAR PRIMARY KEY,
		run_id VARCHAR,
		vcf_path VARCHAR,
		vcf_size BIGINT,
		vcf_modtime VARCHAR,
		reference_path VARCHAR,
		reference_size BIGINT,
		reference_modtime VARCHAR,
		row_count INTEGER,
		created_at VARCHAR
	)`)
	return err
}
