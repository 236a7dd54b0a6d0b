// Package store persists generated maps in SQLite or PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/lawnchairsociety/tilegen/internal/config"
	"github.com/lawnchairsociety/tilegen/internal/export"
	"github.com/lawnchairsociety/tilegen/internal/logger"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var (
	ErrUnknownDriver = errors.New("store: unknown database driver")
	ErrMapNotFound   = errors.New("store: map not found")
	ErrMapExists     = errors.New("store: map id already stored")
	ErrInvalidMapID  = errors.New("store: map id is not a UUID")
)

// timeLayout sorts lexically in time order for UTC values
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store wraps the database connection and provides map persistence.
type Store struct {
	db      *sql.DB
	dialect Dialect
	qb      *QueryBuilder
}

// MapSummary is one row of ListMaps
type MapSummary struct {
	ID                 string
	Dim                int
	Seed               int64
	GeneratedAt        time.Time
	CatalogFingerprint string
	Filled             int
	Failed             int
}

// Open connects to the configured database and creates the schema if needed.
func Open(cfg config.StorageConfig) (*Store, error) {
	var dialect Dialect
	switch DialectType(cfg.Driver) {
	case DialectSQLite:
		dialect = NewDialect(DialectSQLite)
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	case DialectPostgres:
		dialect = NewDialect(DialectPostgres)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}

	db, err := sql.Open(dialect.DriverName(), dialect.DataSource(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, ok := dialect.(*SQLiteDialect); ok {
		// PRAGMAs are per connection
		db.SetMaxOpenConns(1)
	} else {
		pg := cfg.Postgres
		db.SetMaxOpenConns(pg.MaxOpenConns)
		db.SetMaxIdleConns(pg.MaxIdleConns)
		db.SetConnMaxLifetime(pg.ConnMaxLifetime)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	for _, stmt := range dialect.InitStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run %q: %w", stmt, err)
		}
	}

	s := &Store{db: db, dialect: dialect, qb: NewQueryBuilder(dialect)}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Debug("Map store opened", "driver", dialect.DriverName())
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying sql.DB for advanced operations.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the SQL dialect in use
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS maps (
			id TEXT PRIMARY KEY,
			dim INTEGER NOT NULL,
			seed BIGINT NOT NULL,
			generated_at TEXT NOT NULL,
			catalog_fingerprint TEXT NOT NULL DEFAULT '',
			steps INTEGER NOT NULL DEFAULT 0,
			filled INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS placements (
			map_id TEXT NOT NULL REFERENCES maps(id) ON DELETE CASCADE,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			tile_id TEXT NOT NULL,
			orientation INTEGER NOT NULL DEFAULT 0,
			seed INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (map_id, x, y)
		)`,

		// seq keeps the processing order of failures
		`CREATE TABLE IF NOT EXISTS failures (
			map_id TEXT NOT NULL REFERENCES maps(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			PRIMARY KEY (map_id, seq)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_maps_generated_at ON maps(generated_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// SaveMap stores a map in one transaction and returns its id. A map without
// an id gets a new UUID; m.ID is updated either way.
func (s *Store) SaveMap(ctx context.Context, m *export.MapYAML) (string, error) {
	id := m.ID
	if id == "" {
		id = uuid.NewString()
	} else if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidMapID, id)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.qb.Build(`
		INSERT INTO maps (id, dim, seed, generated_at, catalog_fingerprint, steps, filled, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		id, m.Dim, m.Seed, m.GeneratedAt.UTC().Format(timeLayout), m.CatalogFingerprint,
		m.Steps, m.Filled, m.Failed)
	if err != nil {
		if s.dialect.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("%w: %s", ErrMapExists, id)
		}
		return "", fmt.Errorf("failed to insert map: %w", err)
	}

	cellStmt, err := tx.PrepareContext(ctx, s.qb.Build(
		`INSERT INTO placements (map_id, x, y, tile_id, orientation, seed) VALUES (?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return "", fmt.Errorf("failed to prepare placement insert: %w", err)
	}
	defer cellStmt.Close()

	for _, c := range m.Cells {
		if _, err := cellStmt.ExecContext(ctx, id, c.X, c.Y, c.Tile, c.Orientation, boolToInt(c.Seed)); err != nil {
			return "", fmt.Errorf("failed to insert placement (%d,%d): %w", c.X, c.Y, err)
		}
	}

	failStmt, err := tx.PrepareContext(ctx, s.qb.Build(
		`INSERT INTO failures (map_id, seq, x, y) VALUES (?, ?, ?, ?)`))
	if err != nil {
		return "", fmt.Errorf("failed to prepare failure insert: %w", err)
	}
	defer failStmt.Close()

	for i, f := range m.Failures {
		if _, err := failStmt.ExecContext(ctx, id, i, f.X, f.Y); err != nil {
			return "", fmt.Errorf("failed to insert failure (%d,%d): %w", f.X, f.Y, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit map: %w", err)
	}

	m.ID = id
	logger.Info("Map saved", "id", id, "dim", m.Dim, "cells", len(m.Cells), "failures", len(m.Failures))
	return id, nil
}

// LoadMap reads a stored map by id
func (s *Store) LoadMap(ctx context.Context, id string) (*export.MapYAML, error) {
	m := &export.MapYAML{ID: id}
	var generatedAt string

	err := s.db.QueryRowContext(ctx, s.qb.Build(`
		SELECT dim, seed, generated_at, catalog_fingerprint, steps, filled, failed
		FROM maps WHERE id = ?`), id).
		Scan(&m.Dim, &m.Seed, &generatedAt, &m.CatalogFingerprint, &m.Steps, &m.Filled, &m.Failed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrMapNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load map: %w", err)
	}
	if m.GeneratedAt, err = time.Parse(timeLayout, generatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse generated_at %q: %w", generatedAt, err)
	}

	if m.Cells, err = s.loadCells(ctx, id); err != nil {
		return nil, err
	}
	if m.Failures, err = s.loadFailures(ctx, id); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Store) loadCells(ctx context.Context, id string) ([]export.CellYAML, error) {
	rows, err := s.db.QueryContext(ctx, s.qb.Build(`
		SELECT x, y, tile_id, orientation, seed FROM placements
		WHERE map_id = ? ORDER BY y, x`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to load placements: %w", err)
	}
	defer rows.Close()

	var cells []export.CellYAML
	for rows.Next() {
		var c export.CellYAML
		var seed int
		if err := rows.Scan(&c.X, &c.Y, &c.Tile, &c.Orientation, &seed); err != nil {
			return nil, fmt.Errorf("failed to scan placement: %w", err)
		}
		c.Seed = seed != 0
		cells = append(cells, c)
	}
	return cells, rows.Err()
}

func (s *Store) loadFailures(ctx context.Context, id string) ([]export.CoordYAML, error) {
	rows, err := s.db.QueryContext(ctx, s.qb.Build(`
		SELECT x, y FROM failures WHERE map_id = ? ORDER BY seq`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to load failures: %w", err)
	}
	defer rows.Close()

	var failures []export.CoordYAML
	for rows.Next() {
		var f export.CoordYAML
		if err := rows.Scan(&f.X, &f.Y); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// ListMaps returns up to limit stored maps, newest first. A limit of 0 or
// less lists every map.
func (s *Store) ListMaps(ctx context.Context, limit int) ([]MapSummary, error) {
	query := `SELECT id, dim, seed, generated_at, catalog_fingerprint, filled, failed
		FROM maps ORDER BY generated_at DESC, id`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.qb.Build(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list maps: %w", err)
	}
	defer rows.Close()

	var out []MapSummary
	for rows.Next() {
		var ms MapSummary
		var generatedAt string
		if err := rows.Scan(&ms.ID, &ms.Dim, &ms.Seed, &generatedAt, &ms.CatalogFingerprint, &ms.Filled, &ms.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan map: %w", err)
		}
		if ms.GeneratedAt, err = time.Parse(timeLayout, generatedAt); err != nil {
			return nil, fmt.Errorf("failed to parse generated_at %q: %w", generatedAt, err)
		}
		out = append(out, ms)
	}
	return out, rows.Err()
}

// DeleteMap removes a stored map with its placements and failures
func (s *Store) DeleteMap(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"placements", "failures"} {
		if _, err := tx.ExecContext(ctx, s.qb.Build("DELETE FROM "+table+" WHERE map_id = ?"), id); err != nil {
			return fmt.Errorf("failed to delete %s: %w", table, err)
		}
	}

	res, err := tx.ExecContext(ctx, s.qb.Build("DELETE FROM maps WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete map: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrMapNotFound, id)
	}
	return tx.Commit()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
