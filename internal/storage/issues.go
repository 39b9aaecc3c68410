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
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"comicsnet/internal/credits"
	"comicsnet/internal/domain"
)

// Run describes one ingest run recorded with the issues it wrote.
type Run struct {
	ID        string
	Source    string
	Started   time.Time
	Finished  time.Time
	Total     int
	Parsed    int
	Absent    int
	Empty     int
	Ambiguous int
	Dangling  int
	Teams     int
}

// IndexIssues upserts issues keyed by Issue.Key and replaces their character rows.
// It runs in one transaction.
func (x *Index) IndexIssues(ctx context.Context, run Run, issues []domain.Issue) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var runID sql.NullString
	if run.ID != "" {
		runID = sql.NullString{String: run.ID, Valid: true}
		if _, err := tx.ExecContext(ctx, `INSERT INTO runs(run_id, source, started, finished, total, parsed, absent, empty, ambiguous, dangling, teams)
			VALUES(?,?,?,?,?,?,?,?,?,?,?)
			ON CONFLICT(run_id) DO UPDATE SET finished=excluded.finished, total=excluded.total, parsed=excluded.parsed,
				absent=excluded.absent, empty=excluded.empty, ambiguous=excluded.ambiguous,
				dangling=excluded.dangling, teams=excluded.teams`,
			run.ID, run.Source, run.Started.UTC().Format(time.RFC3339), run.Finished.UTC().Format(time.RFC3339),
			run.Total, run.Parsed, run.Absent, run.Empty, run.Ambiguous, run.Dangling, run.Teams); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
	}

	upsert, err := tx.PrepareContext(ctx, `INSERT INTO issues(key, title, series, on_sale, issue_number, credit, doc, run_id, updated_at)
		VALUES(?,?,?,?,?,?,?,?,?)
		ON CONFLICT(key) DO UPDATE SET title=excluded.title, series=excluded.series, on_sale=excluded.on_sale,
			issue_number=excluded.issue_number, credit=excluded.credit, doc=excluded.doc, run_id=excluded.run_id,
			updated_at=excluded.updated_at
		RETURNING issue_id`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer upsert.Close()
	del, err := tx.PrepareContext(ctx, `DELETE FROM entities WHERE issue_id=?`)
	if err != nil {
		return fmt.Errorf("prepare clear: %w", err)
	}
	defer del.Close()
	ins, err := tx.PrepareContext(ctx, `INSERT INTO entities(issue_id, character, name, alias) VALUES(?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for i := range issues {
		is := &issues[i]
		doc, err := json.Marshal(is)
		if err != nil {
			return fmt.Errorf("marshal %q: %w", is.Title, err)
		}
		var num sql.NullInt64
		if n, ok := domain.IssueNumber(is.Title); ok {
			num = sql.NullInt64{Int64: int64(n), Valid: true}
		}
		var credit sql.NullString
		if is.CoverCharacters != nil {
			credit = sql.NullString{String: *is.CoverCharacters, Valid: true}
		}
		var id int64
		if err := upsert.QueryRowContext(ctx, is.Key(), is.Title, is.SeriesName, is.OnSaleDate, num, credit, string(doc), runID, now).Scan(&id); err != nil {
			return fmt.Errorf("upsert %q: %w", is.Key(), err)
		}
		if _, err := del.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("clear characters of %q: %w", is.Key(), err)
		}
		for _, c := range is.CharacterAliases {
			name, alias := SplitCharacter(c)
			if _, err := ins.ExecContext(ctx, id, c, name, sql.NullString{String: alias, Valid: alias != ""}); err != nil {
				return fmt.Errorf("insert character %q: %w", c, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	x.log.Info("issues indexed", slog.Int("issues", len(issues)), slog.String("run", run.ID))
	return nil
}

// SplitCharacter splits "Batman [Bruce Wayne]" into its display name and alias
// the same way the credit parser reads an individual. The alias is empty for
// unbracketed names.
func SplitCharacter(c string) (name, alias string) {
	ind := credits.ParseIndividual(strings.TrimSpace(c))
	return ind.DisplayName, ind.Alias
}

// Issues returns the indexed records ordered by key. An empty series returns all.
func (x *Index) Issues(ctx context.Context, series string) ([]domain.Issue, error) {
	q := `SELECT doc FROM issues`
	var args []any
	if series != "" {
		q += ` WHERE series=?`
		args = append(args, series)
	}
	rows, err := x.db.QueryContext(ctx, q+` ORDER BY key`, args...)
	if err != nil {
		return nil, fmt.Errorf("issues query: %w", err)
	}
	defer rows.Close()
	var out []domain.Issue
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		var is domain.Issue
		if err := json.Unmarshal([]byte(doc), &is); err != nil {
			return nil, fmt.Errorf("decode issue: %w", err)
		}
		out = append(out, is)
	}
	return out, rows.Err()
}

// Runs lists recorded ingest runs, newest first.
func (x *Index) Runs(ctx context.Context) ([]Run, error) {
	rows, err := x.db.QueryContext(ctx, `SELECT run_id, COALESCE(source,''), started, finished, total, parsed, absent, empty, ambiguous, dangling, teams
		FROM runs ORDER BY started DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("runs query: %w", err)
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Source, &started, &finished, &r.Total, &r.Parsed, &r.Absent, &r.Empty, &r.Ambiguous, &r.Dangling, &r.Teams); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Started, _ = time.Parse(time.RFC3339, started)
		r.Finished, _ = time.Parse(time.RFC3339, finished)
		out = append(out, r)
	}
	return out, rows.Err()
}
