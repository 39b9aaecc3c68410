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
	"text/tabwriter"

	"github.com/spf13/cobra"

	"comicsnet/internal/storage"
)

func newSearchCmd(a *app) *cobra.Command {
	var (
		q     storage.SearchQuery
		raw   bool
		pg    bool
		index string
	)
	cmd := &cobra.Command{
		Use:   "search [text]",
		Short: "Search indexed characters",
		Long: `Search the character index. Free text is matched as a phrase against
character names, aliases, titles and series; --raw passes it through as an
FTS5 query. Without text, --name and --series filter a plain listing.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(args) == 1 {
				q.Text = args[0]
				if !raw {
					q.Text = storage.Phrase(q.Text)
				}
			}
			var (
				res []storage.SearchResult
				err error
			)
			if pg {
				sink, oerr := a.openBackend(ctx)
				if oerr != nil {
					return oerr
				}
				defer sink.Close()
				res, err = sink.SearchPG(ctx, q)
			} else {
				x, oerr := a.openIndex(ctx, index)
				if oerr != nil {
					return oerr
				}
				defer x.Close()
				res, err = x.Search(ctx, q)
			}
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, r := range res {
				fmt.Fprintf(tw, "%s\t%s: %s\t%s\t%s\n", r.Character, r.Series, r.Title, r.OnSale, r.Snippet)
			}
			return tw.Flush()
		},
	}
	f := cmd.Flags()
	f.StringVar(&q.Name, "name", "", "exact character name")
	f.StringVar(&q.Series, "series", "", "restrict to one series")
	f.IntVar(&q.Limit, "limit", 0, "maximum results")
	f.IntVar(&q.Offset, "offset", 0, "skip this many results")
	f.BoolVar(&raw, "raw", false, "pass text through as an FTS5 query")
	f.BoolVar(&pg, "pg", false, "search the Postgres backend instead of the local index")
	f.StringVar(&index, "index", "", "SQLite index path (default from config)")
	return cmd
}

func newCountsCmd(a *app) *cobra.Command {
	var (
		limit int
		pg    bool
		index string
	)
	cmd := &cobra.Command{
		Use:   "counts",
		Short: "List characters by number of issues",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var (
				counts []storage.CharacterCount
				err    error
			)
			if pg {
				sink, oerr := a.openBackend(ctx)
				if oerr != nil {
					return oerr
				}
				defer sink.Close()
				counts, err = sink.CharacterCountsPG(ctx, limit)
			} else {
				x, oerr := a.openIndex(ctx, index)
				if oerr != nil {
					return oerr
				}
				defer x.Close()
				counts, err = x.CharacterCounts(ctx, limit)
			}
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, c := range counts {
				fmt.Fprintf(tw, "%s\t%d\n", c.Character, c.Issues)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "number of characters (0 for all)")
	cmd.Flags().BoolVar(&pg, "pg", false, "count in the Postgres backend instead of the local index")
	cmd.Flags().StringVar(&index, "index", "", "SQLite index path (default from config)")
	return cmd
}
