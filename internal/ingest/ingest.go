/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package ingest runs the credit parser over a batch of issue records.
package ingest

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"comicsnet/internal/credits"
	"comicsnet/internal/domain"
	applog "comicsnet/internal/log"
)

// Options configures a run. Zero values pick defaults.
type Options struct {
	Workers int
	Parser  *credits.Parser
	Logger  *slog.Logger
}

// Report summarizes a run.
type Report struct {
	RunID    string    `json:"run_id"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Total    int       `json:"total"`
	// Parsed counts issues whose credit yielded at least one alias.
	Parsed    int `json:"parsed"`
	Absent    int `json:"absent"`
	Empty     int `json:"empty"`
	Ambiguous int `json:"ambiguous"`
	Dangling  int `json:"dangling"`
	Teams     int `json:"teams"`
	// Characters counts issues per alias.
	Characters map[string]int `json:"characters"`
}

// Run parses the cover_characters field of every issue and stores the result
// in CharacterAliases. Issues without the field keep a nil alias list. The
// slice is modified in place.
func Run(ctx context.Context, issues []domain.Issue, opts Options) (Report, error) {
	rep := Report{
		RunID:      uuid.NewString(),
		Started:    time.Now().UTC(),
		Total:      len(issues),
		Characters: map[string]int{},
	}
	ctx = applog.WithRunID(ctx, rep.RunID)
	lg := opts.Logger
	if lg == nil {
		lg = applog.WithOperation(applog.WithComponent("ingest"), "run")
	}
	p := opts.Parser
	if p == nil {
		p = credits.New(credits.WithLogger(lg))
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	lg.InfoContext(ctx, "ingest start", slog.Int("issues", len(issues)), slog.Int("workers", workers))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range issues {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			is := &issues[i]
			res, ok := p.ParseField(is.CoverCharacters)
			if ok {
				is.CharacterAliases = aliases(res)
			}
			mu.Lock()
			rep.tally(ok, res, is.CharacterAliases)
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	rep.Finished = time.Now().UTC()
	if err != nil {
		lg.WarnContext(ctx, "ingest aborted", slog.Any("err", err))
		return rep, err
	}
	lg.InfoContext(ctx, "ingest done",
		slog.Int("parsed", rep.Parsed),
		slog.Int("absent", rep.Absent),
		slog.Int("ambiguous", rep.Ambiguous),
		slog.Duration("took", rep.Finished.Sub(rep.Started)),
	)
	return rep, nil
}

func (r *Report) tally(present bool, res credits.Result, aliases []string) {
	switch {
	case !present:
		r.Absent++
		return
	case len(aliases) == 0:
		r.Empty++
	default:
		r.Parsed++
	}
	if len(res.Ambiguous) > 0 {
		r.Ambiguous++
	}
	if res.Dropped != "" {
		r.Dangling++
	}
	r.Teams += len(res.Teams)
	for _, a := range aliases {
		r.Characters[a]++
	}
}

// aliases flattens a result into a de-duplicated alias list; an issue counts
// once per character even when it appears in two teams.
func aliases(res credits.Result) []string {
	list := res.List()
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, a := range list {
		if _, dup := seen[a]; dup || a == "" {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
