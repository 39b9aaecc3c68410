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
	"fmt"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func TestOpenIndexCreatesWALAndMetaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx", "index.sqlite")
	x, err := OpenIndex(path)
	if err != nil {
		t.Fatalf("OpenIndex error: %v", err)
	}
	defer x.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var mode string
	if err := x.db.QueryRowContext(ctx, "PRAGMA journal_mode;").Scan(&mode); err != nil {
		t.Fatalf("read journal_mode: %v", err)
	}
	if mode != "wal" && mode != "WAL" {
		t.Fatalf("expected WAL mode, got %s", mode)
	}
	var cnt int
	if err := x.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('meta','version')").Scan(&cnt); err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if cnt != 2 {
		t.Fatalf("expected 2 meta tables, got %d", cnt)
	}
	if err := x.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('runs','issues','entities','fts_entities')").Scan(&cnt); err != nil {
		t.Fatalf("query core tables: %v", err)
	}
	if cnt != 4 {
		t.Fatalf("expected 4 core tables, got %d", cnt)
	}
	v, err := x.SchemaVersion(ctx)
	if err != nil || v != schemaVersion {
		t.Fatalf("schema version = %d, %v; want %d", v, err, schemaVersion)
	}

	// FTS triggers follow inserts into entities.
	if _, err := x.db.ExecContext(ctx, `INSERT INTO issues(issue_id, key, title, doc, updated_at) VALUES(1, 'k', 'Batman #1', '{}', 'now')`); err != nil {
		t.Fatalf("insert issue: %v", err)
	}
	if _, err := x.db.ExecContext(ctx, `INSERT INTO entities(issue_id, character, name) VALUES(1, 'Batman [Bruce Wayne]', 'Batman')`); err != nil {
		t.Fatalf("insert entity: %v", err)
	}
	var ftsCount int
	if err := x.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fts_entities WHERE fts_entities MATCH 'wayne'").Scan(&ftsCount); err != nil {
		t.Fatalf("fts query: %v", err)
	}
	if ftsCount != 1 {
		t.Fatalf("expected FTS to find inserted character, got %d", ftsCount)
	}
}

func TestOpenIndexRequiresPath(t *testing.T) {
	if _, err := OpenIndex("  "); err != ErrNoIndex {
		t.Fatalf("expected ErrNoIndex, got %v", err)
	}
}

// TestMigrations_UpgradeV1ToV2 ensures that an older DB (schema=1) is migrated and the new column exists.
func TestMigrations_UpgradeV1ToV2(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.sqlite")
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(2000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT NOT NULL);`,
		`CREATE TABLE IF NOT EXISTS version (id INTEGER PRIMARY KEY CHECK(id=1), schema INTEGER NOT NULL, app TEXT, created_at TEXT NOT NULL, updated_at TEXT NOT NULL);`,
		`INSERT INTO version(id, schema, app, created_at, updated_at) VALUES(1, 1, 'test', '2020-01-01T00:00:00Z', '2020-01-01T00:00:00Z');`,
		`CREATE TABLE IF NOT EXISTS issues (issue_id INTEGER PRIMARY KEY, key TEXT NOT NULL UNIQUE, title TEXT NOT NULL, series TEXT, on_sale TEXT, credit TEXT, doc TEXT NOT NULL, run_id TEXT, updated_at TEXT NOT NULL);`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			t.Fatalf("seed v1 schema: %v (q=%s)", err, q)
		}
	}
	db.Close()

	x, err := OpenIndex(path)
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	defer x.Close()
	v, err := x.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if v != schemaVersion {
		t.Fatalf("expected schema %d after migration, got %d", schemaVersion, v)
	}
	if _, err := x.db.ExecContext(ctx, `SELECT issue_number FROM issues LIMIT 1`); err != nil {
		t.Fatalf("issue_number column missing after migration: %v", err)
	}
	var idx int
	if err := x.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name='idx_issues_series'`).Scan(&idx); err != nil || idx != 1 {
		t.Fatalf("expected idx_issues_series, got %d (%v)", idx, err)
	}
}

func TestMigrations_UpgradeV2ToV3AddsRunCounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.sqlite")
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(2000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT NOT NULL);`,
		`CREATE TABLE IF NOT EXISTS version (id INTEGER PRIMARY KEY CHECK(id=1), schema INTEGER NOT NULL, app TEXT, created_at TEXT NOT NULL, updated_at TEXT NOT NULL);`,
		`INSERT INTO version(id, schema, app, created_at, updated_at) VALUES(1, 2, 'test', '2020-01-01T00:00:00Z', '2020-01-01T00:00:00Z');`,
		`CREATE TABLE IF NOT EXISTS runs (run_id TEXT PRIMARY KEY, source TEXT, started TEXT NOT NULL, finished TEXT NOT NULL, total INTEGER NOT NULL DEFAULT 0, parsed INTEGER NOT NULL DEFAULT 0, absent INTEGER NOT NULL DEFAULT 0, empty INTEGER NOT NULL DEFAULT 0, ambiguous INTEGER NOT NULL DEFAULT 0);`,
		`INSERT INTO runs(run_id, source, started, finished, total) VALUES('old', 'a.jsonl', '2020-01-01T00:00:00Z', '2020-01-01T00:00:01Z', 5);`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			t.Fatalf("seed v2 schema: %v (q=%s)", err, q)
		}
	}
	db.Close()

	x, err := OpenIndex(path)
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	defer x.Close()
	if v, err := x.SchemaVersion(ctx); err != nil || v != 3 {
		t.Fatalf("expected schema 3, got %d (%v)", v, err)
	}
	runs, err := x.Runs(ctx)
	if err != nil || len(runs) != 1 {
		t.Fatalf("runs after migration: %+v (%v)", runs, err)
	}
	if runs[0].Total != 5 || runs[0].Dangling != 0 || runs[0].Teams != 0 {
		t.Fatalf("unexpected migrated run: %+v", runs[0])
	}
}
