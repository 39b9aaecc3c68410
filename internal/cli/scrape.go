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
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"comicsnet/internal/domain"
	"comicsnet/internal/metadata"
	"comicsnet/internal/scrape"
)

func newScrapeCmd(a *app) *cobra.Command {
	var (
		out     string
		series  string
		gallery bool
		base    string
	)
	cmd := &cobra.Command{
		Use:   "scrape <html>...",
		Short: "Extract issue metadata from saved issue pages",
		Long: `Read saved issue pages and write one JSON line per issue to stdout, or
append them to --out.

With --gallery the files are cover gallery pages instead, and the wanted
covers (reprints and regional duplicates removed) are listed as
"variant<TAB>page url<TAB>image url".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if gallery {
				var baseURL *url.URL
				if base != "" {
					u, err := url.Parse(base)
					if err != nil {
						return fmt.Errorf("base url: %w", err)
					}
					baseURL = u
				}
				for _, path := range args {
					links, err := parseGalleryFile(path, baseURL)
					if err != nil {
						return err
					}
					for _, l := range scrape.Wanted(links) {
						fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", l.Variant, l.PageURL, l.ImageURL)
					}
				}
				return nil
			}

			issues := make([]domain.Issue, 0, len(args))
			for _, path := range args {
				is, err := parseIssueFile(path)
				if err != nil {
					a.log.Warn("skip page", slog.String("path", path), slog.Any("err", err))
					continue
				}
				is.SeriesName = series
				issues = append(issues, is)
			}
			if out == "" {
				return metadata.Write(cmd.OutOrStdout(), issues)
			}
			n, err := metadata.AppendNew(out, issues)
			if err != nil {
				return err
			}
			a.log.Info("scraped", slog.Int("issues", len(issues)), slog.Int("appended", n), slog.String("out", out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "append JSON lines to this file, skipping issues already in it")
	cmd.Flags().StringVar(&series, "series", "", "series name recorded on every issue")
	cmd.Flags().BoolVar(&gallery, "gallery", false, "treat the files as cover gallery pages")
	cmd.Flags().StringVar(&base, "base", "", "base URL for relative gallery links")
	return cmd
}

func parseIssueFile(path string) (domain.Issue, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Issue{}, err
	}
	defer f.Close()
	return scrape.ParseIssuePage(f)
}

func parseGalleryFile(path string, base *url.URL) ([]scrape.CoverLink, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return scrape.ParseCoverGallery(f, base)
}
