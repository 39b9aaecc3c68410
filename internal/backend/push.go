/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"comicsnet/internal/domain"
	"comicsnet/internal/storage"
)

// PushIssues upserts issues and their characters in one transaction. Characters
// of an issue already in the warehouse are replaced.
func (s *Sink) PushIssues(ctx context.Context, run storage.Run, issues []domain.Issue) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var runID sql.NullString
	if run.ID != "" {
		runID = sql.NullString{String: run.ID, Valid: true}
		if _, err := tx.ExecContext(ctx, `INSERT INTO runs(run_id, source, started, finished, total, parsed, absent, empty, ambiguous, dangling, teams)
			VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
			ON CONFLICT (run_id) DO UPDATE SET finished=EXCLUDED.finished, total=EXCLUDED.total, parsed=EXCLUDED.parsed,
				absent=EXCLUDED.absent, empty=EXCLUDED.empty, ambiguous=EXCLUDED.ambiguous,
				dangling=EXCLUDED.dangling, teams=EXCLUDED.teams`,
			run.ID, run.Source, run.Started.UTC(), run.Finished.UTC(),
			run.Total, run.Parsed, run.Absent, run.Empty, run.Ambiguous, run.Dangling, run.Teams); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
	}

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
		err = tx.QueryRowContext(ctx, `INSERT INTO issues(key, title, series, on_sale, issue_number, credit, doc, run_id, updated_at)
			VALUES($1,$2,$3,$4,$5,$6,$7,$8, now())
			ON CONFLICT (key) DO UPDATE SET title=EXCLUDED.title, series=EXCLUDED.series, on_sale=EXCLUDED.on_sale,
				issue_number=EXCLUDED.issue_number, credit=EXCLUDED.credit, doc=EXCLUDED.doc, run_id=EXCLUDED.run_id,
				updated_at=now()
			RETURNING id`,
			is.Key(), is.Title, is.SeriesName, is.OnSaleDate, num, credit, string(doc), runID).Scan(&id)
		if err != nil {
			return fmt.Errorf("upsert %q: %w", is.Key(), err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE issue_id=$1`, id); err != nil {
			return fmt.Errorf("clear characters of %q: %w", is.Key(), err)
		}
		for _, c := range is.CharacterAliases {
			name, alias := storage.SplitCharacter(c)
			if _, err := tx.ExecContext(ctx, `INSERT INTO entities(issue_id, character, name, alias) VALUES($1,$2,$3,$4)`,
				id, c, name, sql.NullString{String: alias, Valid: alias != ""}); err != nil {
				return fmt.Errorf("insert character %q: %w", c, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.log.Info("issues pushed", slog.Int("issues", len(issues)), slog.String("run", run.ID))
	return nil
}

// CharacterCountsPG mirrors storage.Index.CharacterCounts over the warehouse.
func (s *Sink) CharacterCountsPG(ctx context.Context, limit int) ([]storage.CharacterCount, error) {
	q := `SELECT character, COUNT(DISTINCT issue_id) AS n FROM entities GROUP BY character ORDER BY n DESC, character`
	var args []any
	if limit > 0 {
		q += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("counts query: %w", err)
	}
	defer rows.Close()
	var out []storage.CharacterCount
	for rows.Next() {
		var c storage.CharacterCount
		if err := rows.Scan(&c.Character, &c.Issues); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SearchPG executes a character search over the warehouse using tsvector and
// returns results mapped to storage.SearchResult to ease parity checks. q.Text
// is treated as plain words here rather than FTS5 syntax.
func (s *Sink) SearchPG(ctx context.Context, q storage.SearchQuery) ([]storage.SearchResult, error) {
	var (
		args []any
		b    strings.Builder
	)
	// Helper to add parameter and return placeholder like $n
	place := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	text := strings.Trim(strings.TrimSpace(q.Text), `"`)
	if text != "" {
		p := place(text)
		b.WriteString("SELECT e.character, e.name, i.title, COALESCE(i.series,''), COALESCE(i.on_sale,''), i.issue_number, ")
		b.WriteString("COALESCE(ts_headline('simple', e.character, plainto_tsquery('simple', " + p + "), 'StartSel=[, StopSel=], MaxFragments=1, MaxWords=12'), '') ")
		b.WriteString("FROM entities e JOIN issues i ON i.id = e.issue_id WHERE e.search_vector @@ plainto_tsquery('simple', " + p + ") ")
	} else {
		b.WriteString("SELECT e.character, e.name, i.title, COALESCE(i.series,''), COALESCE(i.on_sale,''), i.issue_number, '' ")
		b.WriteString("FROM entities e JOIN issues i ON i.id = e.issue_id WHERE TRUE ")
	}
	if n := strings.TrimSpace(q.Name); n != "" {
		b.WriteString(" AND lower(e.name) = " + place(strings.ToLower(n)) + " ")
	}
	if sr := strings.TrimSpace(q.Series); sr != "" {
		b.WriteString(" AND i.series = " + place(sr) + " ")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	b.WriteString(" ORDER BY i.series, i.issue_number NULLS LAST, i.key, e.id ")
	b.WriteString(" LIMIT " + place(limit) + " OFFSET " + place(offset))

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("pg search: %w", err)
	}
	defer rows.Close()
	var out []storage.SearchResult
	for rows.Next() {
		var r storage.SearchResult
		var num sql.NullInt64
		if err := rows.Scan(&r.Character, &r.Name, &r.Title, &r.Series, &r.OnSale, &num, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if num.Valid {
			r.IssueNumber = int(num.Int64)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
