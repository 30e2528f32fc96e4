package schema

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/syssam/pgoose/dialect"
	"github.com/syssam/pgoose/dialect/sql"
)

// CatalogColumn is a column as reported by the database catalog.
type CatalogColumn struct {
	Name string
	Type string
}

// Report is the outcome of synchronizing one table.
type Report struct {
	Table string
	// Created is true if the table did not exist and was created.
	Created bool
	// Drift is nil for created tables.
	Drift *Drift
}

// Syncer creates missing tables and checks existing ones for drift.
type Syncer struct {
	drv    dialect.Driver
	logger *slog.Logger
	// PostgreSQL schema searched for tables.
	pgSchema string
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithLogger sets the logger used for sync events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Syncer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPostgresSchema sets the PostgreSQL schema searched for tables.
// Defaults to "public".
func WithPostgresSchema(name string) Option {
	return func(s *Syncer) {
		s.pgSchema = name
	}
}

// NewSyncer returns a Syncer running its statements on drv.
func NewSyncer(drv dialect.Driver, opts ...Option) *Syncer {
	s := &Syncer{drv: drv, logger: slog.Default(), pgSchema: "public"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TableExists reports whether a table with the given name exists.
func (s *Syncer) TableExists(ctx context.Context, name string) (bool, error) {
	var (
		query string
		args  []any
	)
	switch s.drv.Dialect() {
	case dialect.SQLite:
		query, args = "SELECT name FROM sqlite_master WHERE type = ? AND name = ?", []any{"table", name}
	case dialect.MySQL:
		query, args = "SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?", []any{name}
	default:
		query, args = "SELECT tablename FROM pg_catalog.pg_tables WHERE schemaname = $1 AND tablename = $2", []any{s.pgSchema, name}
	}
	rows := &sql.Rows{}
	if err := s.drv.Query(ctx, query, args, rows); err != nil {
		return false, fmt.Errorf("pgoose: check table %q: %w", name, err)
	}
	defer rows.Close()
	exists := rows.Next()
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("pgoose: check table %q: %w", name, err)
	}
	return exists, nil
}

// CreateTable creates the table if it does not exist.
func (s *Syncer) CreateTable(ctx context.Context, t *Table) error {
	if err := s.drv.Exec(ctx, t.CreateStatement(s.drv.Dialect()), []any{}, nil); err != nil {
		return fmt.Errorf("pgoose: create table %q: %w", t.Name, err)
	}
	return nil
}

// Columns returns the catalog columns of the table in definition order.
// Type names are lower-cased.
func (s *Syncer) Columns(ctx context.Context, table string) ([]CatalogColumn, error) {
	var (
		query string
		args  = []any{table}
	)
	switch s.drv.Dialect() {
	case dialect.SQLite:
		query = "SELECT name, type FROM pragma_table_info(?) ORDER BY cid"
	case dialect.MySQL:
		query = "SELECT column_name, data_type FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ? ORDER BY ordinal_position"
	default:
		query = "SELECT column_name, data_type FROM information_schema.columns WHERE table_schema = $1 AND table_name = $2 ORDER BY ordinal_position"
		args = []any{s.pgSchema, table}
	}
	rows := &sql.Rows{}
	if err := s.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("pgoose: read columns of %q: %w", table, err)
	}
	defer rows.Close()
	var columns []CatalogColumn
	for rows.Next() {
		var c CatalogColumn
		if err := rows.Scan(&c.Name, &c.Type); err != nil {
			return nil, fmt.Errorf("pgoose: scan columns of %q: %w", table, err)
		}
		c.Type = strings.ToLower(c.Type)
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgoose: read columns of %q: %w", table, err)
	}
	return columns, nil
}

// CheckColumns compares the table definition with the live catalog.
func (s *Syncer) CheckColumns(ctx context.Context, t *Table) (*Drift, error) {
	columns, err := s.Columns(ctx, t.Name)
	if err != nil {
		return nil, err
	}
	return Diff(t, columns), nil
}

// Sync creates the table when it is missing, or checks it for drift when
// it exists. A *DriftError is returned along with the report when column
// types changed. Missing and undeclared columns are only logged.
func (s *Syncer) Sync(ctx context.Context, t *Table) (*Report, error) {
	exists, err := s.TableExists(ctx, t.Name)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := s.CreateTable(ctx, t); err != nil {
			return nil, err
		}
		s.logger.Info("table created", "table", t.Name, "columns", len(t.Columns))
		return &Report{Table: t.Name, Created: true}, nil
	}
	drift, err := s.CheckColumns(ctx, t)
	if err != nil {
		return nil, err
	}
	report := &Report{Table: t.Name, Drift: drift}
	if drift.Empty() {
		s.logger.Debug("table in sync", "table", t.Name)
		return report, nil
	}
	s.logger.Warn("schema drift detected",
		"table", t.Name,
		"changed", drift.Fields(),
		"missing", drift.Missing,
		"extra", drift.Extra,
	)
	if drift.HasChanges() {
		return report, &DriftError{Drift: drift}
	}
	return report, nil
}
