/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export writes the parsed character data in the formats consumed
// downstream: a flat CSV, the labels.txt file of an image dataset and a PDF
// frequency report.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"comicsnet/internal/domain"
)

// CSVOptions controls WriteCSV.
type CSVOptions struct {
	// Separator joins the aliases of one issue inside the characters cell.
	Separator string
	// Vocabulary adds one 0/1 column per entry when non-empty.
	Vocabulary []string
}

var csvHeader = []string{"title", "series_name", "on_sale_date", "issue_number", "cover_characters", "characters"}

// WriteCSV writes one row per issue. An absent credit leaves cover_characters
// empty and characters empty; issue_number is empty when the title carries none.
func WriteCSV(w io.Writer, issues []domain.Issue, opt CSVOptions) error {
	sep := opt.Separator
	if sep == "" {
		sep = "|"
	}
	cw := csv.NewWriter(w)
	header := append(append([]string(nil), csvHeader...), opt.Vocabulary...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, is := range issues {
		row := make([]string, 0, len(header))
		num := ""
		if n, ok := domain.IssueNumber(is.Title); ok {
			num = strconv.Itoa(n)
		}
		credit := ""
		if is.CoverCharacters != nil {
			credit = *is.CoverCharacters
		}
		row = append(row, is.Title, is.SeriesName, is.OnSaleDate, num, credit, strings.Join(is.CharacterAliases, sep))
		for _, v := range OneHot(is.CharacterAliases, opt.Vocabulary) {
			row = append(row, strconv.Itoa(v))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write %q: %w", is.Title, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// OneHot returns 1 for every vocabulary entry present in aliases, else 0.
func OneHot(aliases, vocabulary []string) []int {
	set := make(map[string]struct{}, len(aliases))
	for _, a := range aliases {
		set[a] = struct{}{}
	}
	out := make([]int, len(vocabulary))
	for i, v := range vocabulary {
		if _, ok := set[v]; ok {
			out[i] = 1
		}
	}
	return out
}

// Vocabulary lists every alias of issues that occurs at least atLeast times, most
// frequent first, ties by name.
func Vocabulary(issues []domain.Issue, atLeast int) []string {
	counts := map[string]int{}
	for _, is := range issues {
		for _, a := range is.CharacterAliases {
			counts[a]++
		}
	}
	out := make([]string, 0, len(counts))
	for a, n := range counts {
		if n >= atLeast {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if counts[out[i]] != counts[out[j]] {
			return counts[out[i]] > counts[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}
