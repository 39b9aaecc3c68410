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
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"comicsnet/internal/dataset"
)

func newDatasetCmd(a *app) *cobra.Command {
	var (
		src       source
		wants     []string
		coverRoot string
		sheet     string
		zipPath   string
		workers   int
	)
	cmd := &cobra.Command{
		Use:   "dataset <out-dir>",
		Short: "Sample, resize and label covers for a character dataset",
		Long: `Sample covers showing the requested characters, resize them into
<out-dir>/images and write <out-dir>/labels.txt. Each --want is
"Character=N" and draws up to N covers of that character; a cover drawn for
two characters is kept once and labelled with both.`,
		Example: `  comicsnet dataset ./ds --covers ./covers --want "Batman=100" --want "Superman [Clark Kent/ Kal-El]=100"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := dataset.Request{
				CoverRoot: coverRoot,
				OutDir:    args[0],
				Width:     a.cfg.Dataset.Width,
				Height:    a.cfg.Dataset.Height,
				Seed:      a.cfg.Dataset.Seed,
				Workers:   workers,
			}
			for _, w := range wants {
				want, err := parseWant(w)
				if err != nil {
					return err
				}
				req.Wants = append(req.Wants, want)
			}
			issues, err := a.loadIssues(cmd.Context(), src, "")
			if err != nil {
				return err
			}
			m, err := dataset.Build(cmd.Context(), issues, req)
			if err != nil {
				return err
			}
			if sheet != "" {
				if err := dataset.ContactSheet(args[0], m.Items, sheet, dataset.SheetOptions{}); err != nil {
					return err
				}
			}
			if zipPath != "" {
				if _, err := dataset.Pack(args[0], zipPath); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d covers (%d sampled, %d missing) to %s\n",
				len(m.Items), m.Sampled, len(m.Missing), args[0])
			return nil
		},
	}
	src.flags(cmd)
	cmd.Flags().StringArrayVar(&wants, "want", nil, `character and count as "Name=N" (repeatable)`)
	cmd.Flags().StringVar(&coverRoot, "covers", "", "directory that relative save_to paths resolve against")
	cmd.Flags().StringVar(&sheet, "sheet", "", "also render a captioned contact sheet PNG to this path")
	cmd.Flags().StringVar(&zipPath, "zip", "", "also pack the dataset into this zip archive")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "resize workers (0 = one per CPU)")
	return cmd
}

// parseWant reads "Name=N". The last '=' separates the count so names may contain '='.
func parseWant(s string) (dataset.Want, error) {
	i := strings.LastIndexByte(s, '=')
	if i <= 0 {
		return dataset.Want{}, fmt.Errorf("want %q: expected Name=N", s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(s[i+1:]))
	if err != nil || n <= 0 {
		return dataset.Want{}, fmt.Errorf("want %q: count must be a positive integer", s)
	}
	return dataset.Want{Character: strings.TrimSpace(s[:i]), N: n}, nil
}

func newUnpackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unpack <dataset.zip> <dir>",
		Short: "Extract a packed dataset, keeping files that already exist",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := dataset.Unpack(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "extracted %d files to %s\n", n, args[1])
			return nil
		},
	}
}

func newExcludeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exclude <dir> <image>...",
		Short: "Copy a dataset without the given images into <dir>_updated",
		Long: `Copy every image of the dataset except the named ones into
<dir>_updated/images and write a matching labels.txt there. Labels come
from labels_updated.txt when relabel has been used; <dir> is not modified.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := dataset.Exclude(args[0], args[1:])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "copied %d images to %s\n", n, args[0]+dataset.UpdatedSuffix)
			return nil
		},
	}
}
