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
	"strings"
)

// SearchQuery describes a character search.
// Text uses SQLite FTS5 syntax (simple terms, phrases in quotes, AND/OR/NOT);
// wrap free text with Phrase. Name matches the display name exactly, case-insensitive.
// Series restricts to one series. Limit/Offset implement pagination; reasonable
// defaults applied if zero.
type SearchQuery struct {
	Text   string
	Name   string
	Series string
	Limit  int
	Offset int
}

// SearchResult is one credited character on one issue.
// Snippet is an optional highlighted excerpt using [ ] markers when FTS text is used.
type SearchResult struct {
	Character   string
	Name        string
	Title       string
	Series      string
	OnSale      string
	IssueNumber int
	Snippet     string
}

// Search performs full-text search with optional filters over the index.
// When q.Text is empty, it falls back to a non-FTS scan with filters applied.
func (x *Index) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	var args []any
	var sb strings.Builder
	if strings.TrimSpace(q.Text) != "" {
		sb.WriteString("SELECT e.character, e.name, i.title, COALESCE(i.series,''), COALESCE(i.on_sale,''), i.issue_number, snippet(fts_entities, 0, '[', ']', '…', 10)\n")
		sb.WriteString("FROM fts_entities JOIN entities e ON fts_entities.rowid = e.entity_id JOIN issues i ON i.issue_id = e.issue_id\n")
		sb.WriteString("WHERE fts_entities MATCH ?\n")
		args = append(args, q.Text)
	} else {
		sb.WriteString("SELECT e.character, e.name, i.title, COALESCE(i.series,''), COALESCE(i.on_sale,''), i.issue_number, ''\n")
		sb.WriteString("FROM entities e JOIN issues i ON i.issue_id = e.issue_id\nWHERE 1=1\n")
	}
	if s := strings.TrimSpace(q.Name); s != "" {
		sb.WriteString(" AND lower(e.name) = ?\n")
		args = append(args, strings.ToLower(s))
	}
	if s := strings.TrimSpace(q.Series); s != "" {
		sb.WriteString(" AND i.series = ?\n")
		args = append(args, s)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	sb.WriteString("ORDER BY i.series, i.issue_number NULLS LAST, i.key, e.entity_id\n")
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, q.Offset)

	rows, err := x.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var num sql.NullInt64
		var sn sql.NullString
		if err := rows.Scan(&r.Character, &r.Name, &r.Title, &r.Series, &r.OnSale, &num, &sn); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if num.Valid {
			r.IssueNumber = int(num.Int64)
		}
		if sn.Valid {
			r.Snippet = sn.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CharacterCount is the number of issues crediting a character.
type CharacterCount struct {
	Character string
	Issues    int
}

// CharacterCounts returns characters by descending issue count. limit <= 0 means all.
func (x *Index) CharacterCounts(ctx context.Context, limit int) ([]CharacterCount, error) {
	q := `SELECT character, COUNT(DISTINCT issue_id) AS n FROM entities GROUP BY character ORDER BY n DESC, character`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := x.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("counts query: %w", err)
	}
	defer rows.Close()
	var out []CharacterCount
	for rows.Next() {
		var c CharacterCount
		if err := rows.Scan(&c.Character, &c.Issues); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Phrase quotes free text as a single FTS5 phrase so brackets and operators
// in character names are matched literally.
func Phrase(s string) string {
	return `"` + strings.ReplaceAll(strings.TrimSpace(s), `"`, `""`) + `"`
}
