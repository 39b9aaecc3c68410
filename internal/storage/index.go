/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "comicsnet/internal/log"
	"comicsnet/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// schemaVersion tracks the local SQLite schema.
	// Bump this when you perform breaking schema changes and add migrations.
	schemaVersion = 3

	backupsDirName = "backups"
)

// ErrNoIndex is returned when no index path is configured.
var ErrNoIndex = errors.New("index path is required")

// Index is an open character index.
type Index struct {
	db   *sql.DB
	path string
	log  *slog.Logger
}

// OpenIndex ensures that the SQLite index at path exists, opens it, enables WAL
// mode and brings the schema up to date.
func OpenIndex(path string) (*Index, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_init").With(
		slog.String("path", path),
	)
	if strings.TrimSpace(path) == "" {
		return nil, ErrNoIndex
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		l.Error("create index dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	// Use a URI with shared cache and set busy timeout. Convert to forward slashes for SQLite URI.
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure index schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}

	l.Debug("index ready")
	return &Index{db: db, path: path, log: applog.WithComponent("storage")}, nil
}

// Close releases the database.
func (x *Index) Close() error { return x.db.Close() }

// Path is the database file.
func (x *Index) Path() string { return x.path }

// SchemaVersion reports the schema the database is at.
func (x *Index) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := x.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v)
	return v, err
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// Keep the existing schema for migrations.
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// migrations lists the statements that bring the schema from version n-1 to n.
// Added columns may already exist on indexes created by ensureIndexSchema.
var migrations = map[int][]string{
	// v2 adds the issue number column and lookup indexes.
	2: {
		`ALTER TABLE issues ADD COLUMN issue_number INTEGER;`,
		`CREATE INDEX IF NOT EXISTS idx_entities_name ON entities(name);`,
		`CREATE INDEX IF NOT EXISTS idx_issues_series ON issues(series);`,
	},
	// v3 records unclosed-bracket and team counts per run.
	3: {
		`ALTER TABLE runs ADD COLUMN dangling INTEGER NOT NULL DEFAULT 0;`,
		`ALTER TABLE runs ADD COLUMN teams INTEGER NOT NULL DEFAULT 0;`,
	},
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < schemaVersion {
		next := cur + 1
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range migrations[next] {
			if _, err := tx.ExecContext(ctx, q); err != nil && !isDuplicateColumn(err) {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	// best-effort optimize; ignore errors
	_, _ = db.ExecContext(ctx, `INSERT INTO fts_entities(fts_entities) VALUES('optimize')`)
	return nil
}

func isDuplicateColumn(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "duplicate column")
}

// ensureIndexSchema creates the index tables and FTS structures if they do not exist.
func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id    TEXT PRIMARY KEY,
			source    TEXT,
			started   TEXT NOT NULL,
			finished  TEXT NOT NULL,
			total     INTEGER NOT NULL DEFAULT 0,
			parsed    INTEGER NOT NULL DEFAULT 0,
			absent    INTEGER NOT NULL DEFAULT 0,
			empty     INTEGER NOT NULL DEFAULT 0,
			ambiguous INTEGER NOT NULL DEFAULT 0,
			dangling  INTEGER NOT NULL DEFAULT 0,
			teams     INTEGER NOT NULL DEFAULT 0
		);`,
		// One row per issue; doc holds the full JSON record.
		`CREATE TABLE IF NOT EXISTS issues (
			issue_id     INTEGER PRIMARY KEY,
			key          TEXT NOT NULL UNIQUE,
			title        TEXT NOT NULL,
			series       TEXT,
			on_sale      TEXT,
			issue_number INTEGER,
			credit       TEXT,
			doc          TEXT NOT NULL,
			run_id       TEXT REFERENCES runs(run_id) ON DELETE SET NULL,
			updated_at   TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS entities (
			entity_id INTEGER PRIMARY KEY,
			issue_id  INTEGER NOT NULL REFERENCES issues(issue_id) ON DELETE CASCADE,
			character TEXT NOT NULL,
			name      TEXT NOT NULL,
			alias     TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_entities_issue ON entities(issue_id);`,
		`CREATE INDEX IF NOT EXISTS idx_entities_character ON entities(character);`,
		`CREATE INDEX IF NOT EXISTS idx_entities_name ON entities(name);`,
		`CREATE INDEX IF NOT EXISTS idx_issues_series ON issues(series);`,

		// External-content FTS5 index fed from entities via triggers.
		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_entities USING fts5(
			character,
			content='entities',
			content_rowid='entity_id',
			tokenize = 'unicode61'
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS entities_ai AFTER INSERT ON entities BEGIN
			INSERT INTO fts_entities(rowid, character) VALUES (new.entity_id, new.character);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS entities_ad AFTER DELETE ON entities BEGIN
			INSERT INTO fts_entities(fts_entities, rowid, character) VALUES ('delete', old.entity_id, old.character);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS entities_au AFTER UPDATE OF character ON entities BEGIN
			INSERT INTO fts_entities(fts_entities, rowid, character) VALUES ('delete', old.entity_id, old.character);
			INSERT INTO fts_entities(rowid, character) VALUES (new.entity_id, new.character);
		END;`,
	}
	for _, q := range triggers {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure fts triggers: %w", err)
		}
	}
	return nil
}

// Reset drops and recreates the index tables, keeping meta/version.
func (x *Index) Reset(ctx context.Context) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	drops := []string{
		"DROP TRIGGER IF EXISTS entities_ai;",
		"DROP TRIGGER IF EXISTS entities_ad;",
		"DROP TRIGGER IF EXISTS entities_au;",
		"DROP TABLE IF EXISTS fts_entities;",
		"DROP TABLE IF EXISTS entities;",
		"DROP TABLE IF EXISTS issues;",
		"DROP TABLE IF EXISTS runs;",
	}
	for _, q := range drops {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("drop schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("drop commit: %w", err)
	}
	x.log.Info("index reset", slog.String("path", x.path))
	return ensureIndexSchema(ctx, x.db)
}

// CheckIndex opens the index at path and verifies it. A database that fails to
// open or fails quick_check is backed up, removed and recreated empty; the
// caller re-ingests to fill it. It returns true when that happened.
func CheckIndex(ctx context.Context, path string) (bool, error) {
	x, err := OpenIndex(path)
	if err == nil {
		ok := healthy(ctx, x.db)
		_ = x.Close()
		if ok {
			return false, nil
		}
	} else if errors.Is(err, ErrNoIndex) {
		return false, err
	}
	backupIndexFile(path)
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		_ = os.Remove(p)
	}
	x, err = OpenIndex(path)
	if err != nil {
		return false, fmt.Errorf("recreate index: %w", err)
	}
	applog.WithComponent("storage").Warn("index recreated", slog.String("path", path))
	return true, x.Close()
}

func healthy(ctx context.Context, db *sql.DB) bool {
	var chk string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil || !strings.Contains(strings.ToLower(chk), "ok") {
		return false
	}
	_, err := db.ExecContext(ctx, `SELECT 1 FROM entities LIMIT 1;`)
	return err == nil
}

// backupIndexFile copies the current index file into a timestamped backup next to it.
func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), backupsDirName)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), stamp))
	_ = copyFile(indexPath, bak)
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
