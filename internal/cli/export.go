/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"comicsnet/internal/domain"
	"comicsnet/internal/export"
	"comicsnet/internal/metadata"
)

// source selects where exported issues come from.
type source struct {
	from  string
	index string
}

func (s *source) flags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.from, "from", "", "read issues from this JSON-lines file instead of the index")
	cmd.Flags().StringVar(&s.index, "index", "", "SQLite index path (default from config)")
}

func (a *app) loadIssues(ctx context.Context, s source, series string) ([]domain.Issue, error) {
	if s.from != "" {
		issues, bad, err := metadata.ReadFile(s.from)
		if err != nil {
			return nil, err
		}
		for _, le := range bad {
			a.log.Warn("skip record", slog.String("file", s.from), slog.Int("line", le.Line), slog.Any("err", le.Err))
		}
		if series == "" {
			return issues, nil
		}
		out := issues[:0]
		for _, is := range issues {
			if is.SeriesName == series {
				out = append(out, is)
			}
		}
		return out, nil
	}
	x, err := a.openIndex(ctx, s.index)
	if err != nil {
		return nil, err
	}
	defer x.Close()
	return x.Issues(ctx, series)
}

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export indexed issues as CSV, labels or a PDF report",
	}
	cmd.AddCommand(newExportCSVCmd(a), newExportLabelsCmd(a), newExportPDFCmd(a))
	return cmd
}

func newExportCSVCmd(a *app) *cobra.Command {
	var (
		src    source
		out    string
		series string
		oneHot int
	)
	cmd := &cobra.Command{
		Use:   "csv",
		Short: "Write one CSV row per issue",
		Long: `Write one CSV row per issue with its parsed characters joined by the
configured cell separator. --one-hot N adds a 0/1 column for every character
credited on at least N issues.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			issues, err := a.loadIssues(cmd.Context(), src, series)
			if err != nil {
				return err
			}
			opt := export.CSVOptions{Separator: a.cfg.Export.CellSeparator}
			if oneHot > 0 {
				opt.Vocabulary = export.Vocabulary(issues, oneHot)
			}
			w, closeFn, err := createOutput(cmd.OutOrStdout(), out)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := closeFn(); err == nil {
					err = cerr
				}
			}()
			return export.WriteCSV(w, issues, opt)
		},
	}
	src.flags(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&series, "series", "", "restrict to one series")
	cmd.Flags().IntVar(&oneHot, "one-hot", 0, "add one-hot columns for characters on at least N issues")
	return cmd
}

func newExportLabelsCmd(a *app) *cobra.Command {
	var (
		src    source
		series string
	)
	cmd := &cobra.Command{
		Use:   "labels <dir>",
		Short: "Write labels.txt for the issues with parsed credits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			issues, err := a.loadIssues(cmd.Context(), src, series)
			if err != nil {
				return err
			}
			var labels []export.Label
			for _, is := range issues {
				if len(is.CharacterAliases) == 0 {
					continue
				}
				labels = append(labels, export.Label{Name: is.ImageID(), Labels: is.CharacterAliases})
			}
			if err := os.MkdirAll(args[0], 0o755); err != nil {
				return err
			}
			path := filepath.Join(args[0], export.LabelsFileName)
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := f.Close(); err == nil {
					err = cerr
				}
			}()
			if err := export.WriteLabels(f, labels); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d labels to %s\n", len(labels), path)
			return nil
		},
	}
	src.flags(cmd)
	cmd.Flags().StringVar(&series, "series", "", "restrict to one series")
	return cmd
}

func newExportPDFCmd(a *app) *cobra.Command {
	var (
		index string
		limit int
		title string
	)
	cmd := &cobra.Command{
		Use:   "pdf <out.pdf>",
		Short: "Render character counts and ingest runs as a PDF report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			x, err := a.openIndex(ctx, index)
			if err != nil {
				return err
			}
			defer x.Close()
			counts, err := x.CharacterCounts(ctx, limit)
			if err != nil {
				return err
			}
			runs, err := x.Runs(ctx)
			if err != nil {
				return err
			}
			return export.WritePDFReportFile(args[0], export.Report{Title: title, Counts: counts, Runs: runs})
		},
	}
	cmd.Flags().StringVar(&index, "index", "", "SQLite index path (default from config)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "number of characters (0 for all)")
	cmd.Flags().StringVar(&title, "title", "Cover characters", "report title")
	return cmd
}

func newRelabelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "relabel <dir> <image> [character]...",
		Short: "Correct the characters of one image in a labels directory",
		Long: `Replace the characters of one image. Corrections go to labels_updated.txt,
which is seeded from labels.txt on first use; labels.txt is never modified.
Giving no characters clears the image's labels.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := export.UpdateLabel(args[0], args[1], args[2:]); err != nil {
				return err
			}
			a.log.Info("label updated", slog.String("image", args[1]), slog.Int("characters", len(args)-2))
			return nil
		},
	}
}

func nopClose() error { return nil }

// createOutput opens path for writing, or returns def when path is empty.
func createOutput(def io.Writer, path string) (io.Writer, func() error, error) {
	if path == "" {
		return def, nopClose, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
