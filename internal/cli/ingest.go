/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"comicsnet/internal/domain"
	"comicsnet/internal/ingest"
	applog "comicsnet/internal/log"
	"comicsnet/internal/metadata"
	"comicsnet/internal/storage"
	"comicsnet/internal/telemetry"
)

func newIngestCmd(a *app) *cobra.Command {
	var (
		out     string
		index   string
		noIndex bool
		rebuild bool
		push    bool
		workers int
	)
	cmd := &cobra.Command{
		Use:   "ingest <in.jsonl>",
		Short: "Parse the credits of a metadata log and index them",
		Long: `Read a JSON-lines metadata log, parse every cover_characters credit and
store the characters on the issue (cover_characters_list_aliases).

The enriched issues are indexed in the local SQLite index unless --no-index
is given, written to --out when set, and pushed to Postgres with --push.
Lines that fail validation are logged and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			src := args[0]
			issues, bad, err := metadata.ReadFile(src)
			if err != nil {
				return err
			}
			for _, le := range bad {
				a.log.Warn("skip record", slog.String("file", src), slog.Int("line", le.Line), slog.Any("err", le.Err))
			}

			p, err := a.parser()
			if err != nil {
				return err
			}
			if workers <= 0 {
				workers = a.cfg.Ingest.Workers
			}
			rep, err := ingest.Run(ctx, issues, ingest.Options{Workers: workers, Parser: p})
			if err != nil {
				return err
			}
			run := storage.Run{
				ID:        rep.RunID,
				Source:    src,
				Started:   rep.Started,
				Finished:  rep.Finished,
				Total:     rep.Total,
				Parsed:    rep.Parsed,
				Absent:    rep.Absent,
				Empty:     rep.Empty,
				Ambiguous: rep.Ambiguous,
				Dangling:  rep.Dangling,
				Teams:     rep.Teams,
			}

			if out != "" {
				if err := writeIssuesFile(out, issues); err != nil {
					return err
				}
			}
			if !noIndex {
				x, err := a.openIndex(ctx, index)
				if err != nil {
					return err
				}
				if rebuild {
					if err := x.Reset(ctx); err != nil {
						_ = x.Close()
						return err
					}
				}
				err = x.IndexIssues(ctx, run, issues)
				_ = x.Close()
				if err != nil {
					return err
				}
			}
			if push {
				sink, err := a.openBackend(ctx)
				if err != nil {
					return err
				}
				err = sink.PushIssues(ctx, run, issues)
				_ = sink.Close()
				if err != nil {
					return err
				}
			}

			if err := telemetry.Default().Send(applog.WithRunID(ctx, rep.RunID), "ingest_run", map[string]any{
				"total":     rep.Total,
				"parsed":    rep.Parsed,
				"absent":    rep.Absent,
				"empty":     rep.Empty,
				"ambiguous": rep.Ambiguous,
				"dangling":  rep.Dangling,
				"teams":     rep.Teams,
			}); err != nil {
				a.log.Debug("run event not sent", slog.Any("err", err))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d issues, %d parsed, %d empty, %d without credits, %d ambiguous, %d unclosed, %d characters\n",
				rep.RunID, rep.Total, rep.Parsed, rep.Empty, rep.Absent, rep.Ambiguous, rep.Dangling, len(rep.Characters))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the enriched issues as JSON lines")
	cmd.Flags().StringVar(&index, "index", "", "SQLite index path (default from config)")
	cmd.Flags().BoolVar(&noIndex, "no-index", false, "do not update the local index")
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "empty the local index before indexing this run")
	cmd.Flags().BoolVar(&push, "push", false, "also push the run to the Postgres backend")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "parser workers (default from config, 0 = one per CPU)")
	return cmd
}

func writeIssuesFile(path string, issues []domain.Issue) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return metadata.Write(f, issues)
}
