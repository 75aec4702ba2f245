// internal/store/sqlite.go
//
// SQLite-backed Store for the API simulator.
// Responsibilities:
//   - Opening SQLite database with safe defaults (WAL, busy timeout).
//   - Applying embedded migrations (idempotent, recorded in _migrations).
//   - Cell upserts/deletes plus the append-only write log, each in one tx.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/megaverse/assets"
	"github.com/robalobadob/megaverse/internal/megaverse"
)

// OpenDB opens (and creates if missing) a SQLite database file.
// The parent directory is created for relative DSNs like ./data/sim.db.
func OpenDB(dsn string) (*sql.DB, error) {
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	// One writer keeps the write log ordered.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	return db, nil
}

// Migrate applies the embedded migrations that are not yet recorded.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}
	migrations, err := assets.Migrations()
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	for _, m := range migrations {
		var done int
		err := db.QueryRow(`SELECT 1 FROM _migrations WHERE name=?`, m.Name).Scan(&done)
		if err == nil {
			log.Debug().Str("migration", m.Name).Msg("already applied")
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("query _migrations: %w", err)
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", m.Name, err)
		}
		if _, err := tx.Exec(`INSERT INTO _migrations(name) VALUES (?)`, m.Name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", m.Name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", m.Name, err)
		}
		log.Info().Str("migration", m.Name).Msg("applied")
	}
	return nil
}

// sqliteStore implements Store on the cells/writes tables.
type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an opened, migrated database.
func NewSQLiteStore(db *sql.DB) Store {
	return &sqliteStore{db: db}
}

func (s *sqliteStore) Put(ctx context.Context, candidateID string, obj megaverse.Object) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	p := obj.Placement
	if _, err := tx.ExecContext(ctx, `
        INSERT INTO cells (candidate_id, row, col, kind, color, direction)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(candidate_id, row, col) DO UPDATE SET
            kind=excluded.kind, color=excluded.color, direction=excluded.direction,
            updated_at=strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
		candidateID, p.Row, p.Column, string(obj.Kind), obj.Color, obj.Direction,
	); err != nil {
		return fmt.Errorf("upsert cell %s: %w", p, err)
	}
	if err := insertWrite(ctx, tx, candidateID, OpCreate, obj); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) Delete(ctx context.Context, candidateID string, p megaverse.Placement) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var obj megaverse.Object
	var kind string
	err = tx.QueryRowContext(ctx,
		`SELECT kind, color, direction FROM cells WHERE candidate_id=? AND row=? AND col=?`,
		candidateID, p.Row, p.Column,
	).Scan(&kind, &obj.Color, &obj.Direction)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrEmptyCell
	}
	if err != nil {
		return fmt.Errorf("load cell %s: %w", p, err)
	}
	obj.Kind, obj.Placement = megaverse.Kind(kind), p

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM cells WHERE candidate_id=? AND row=? AND col=?`, candidateID, p.Row, p.Column,
	); err != nil {
		return fmt.Errorf("delete cell %s: %w", p, err)
	}
	if err := insertWrite(ctx, tx, candidateID, OpDelete, obj); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) Objects(ctx context.Context, candidateID string) ([]megaverse.Object, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT row, col, kind, color, direction
        FROM cells
        WHERE candidate_id=?
        ORDER BY row ASC, col ASC`, candidateID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []megaverse.Object{}
	for rows.Next() {
		obj, err := scanObject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, rows.Err()
}

func (s *sqliteStore) Writes(ctx context.Context, candidateID string) ([]Write, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT op, row, col, kind, color, direction
        FROM writes
        WHERE candidate_id=?
        ORDER BY id ASC`, candidateID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Write
	for rows.Next() {
		var w Write
		var op, kind string
		if err := rows.Scan(&op, &w.Object.Placement.Row, &w.Object.Placement.Column, &kind, &w.Object.Color, &w.Object.Direction); err != nil {
			return nil, err
		}
		w.Op, w.Object.Kind = Op(op), megaverse.Kind(kind)
		out = append(out, w)
	}
	return out, rows.Err()
}

func insertWrite(ctx context.Context, tx *sql.Tx, candidateID string, op Op, obj megaverse.Object) error {
	_, err := tx.ExecContext(ctx, `
        INSERT INTO writes (candidate_id, op, row, col, kind, color, direction)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		candidateID, string(op), obj.Placement.Row, obj.Placement.Column, string(obj.Kind), obj.Color, obj.Direction,
	)
	if err != nil {
		return fmt.Errorf("record %s %s: %w", op, obj, err)
	}
	return nil
}

func scanObject(rows *sql.Rows) (megaverse.Object, error) {
	var obj megaverse.Object
	var kind string
	if err := rows.Scan(&obj.Placement.Row, &obj.Placement.Column, &kind, &obj.Color, &obj.Direction); err != nil {
		return megaverse.Object{}, err
	}
	obj.Kind = megaverse.Kind(kind)
	return obj, nil
}

// sortRowMajor orders objects by row, then column.
func sortRowMajor(objs []megaverse.Object) {
	sort.Slice(objs, func(i, j int) bool {
		a, b := objs[i].Placement, objs[j].Placement
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Column < b.Column
	})
}
