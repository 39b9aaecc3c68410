/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// This file defines the issue metadata records exchanged between the scraper,
// the JSON-lines metadata log, the index and the exporters.

// Issue is one comic issue as recorded in the metadata log.
type Issue struct {
	Title      string `json:"title"`
	SeriesName string `json:"series_name"`
	OnSaleDate string `json:"on_sale_date,omitempty"`
	// CoverCharacters is the raw character credit of the cover. nil means the
	// source page had no such field, which is different from an empty credit.
	CoverCharacters *string           `json:"cover_characters,omitempty"`
	Synopsis        string            `json:"synopsis,omitempty"`
	IndexerNotes    string            `json:"indexer_notes,omitempty"`
	Details         map[string]string `json:"details,omitempty"`       // issue_price, format_color, ...
	CoverCredits    map[string]string `json:"cover_credits,omitempty"` // cover_pencils, cover_inks, ...
	Covers          map[string]Cover  `json:"covers,omitempty"`
	// CharacterAliases is the parsed CoverCharacters.
	CharacterAliases []string `json:"cover_characters_list_aliases,omitempty"`
	SaveTo           string   `json:"save_to,omitempty"`
}

// Cover is one cover variant of an issue.
type Cover struct {
	ImageURL string            `json:"image_url,omitempty"`
	SaveTo   string            `json:"save_to,omitempty"`
	Credits  map[string]string `json:"credits,omitempty"`
}

// Key identifies the issue, e.g. "Aquaman: Aquaman #2 (1985-11-19)".
func (i Issue) Key() string {
	k := i.Title
	if i.SeriesName != "" {
		k = i.SeriesName + ": " + k
	}
	if i.OnSaleDate != "" {
		k += " (" + i.OnSaleDate + ")"
	}
	return k
}

// ImageID is the file name of the saved cover image, or the key when none was saved.
func (i Issue) ImageID() string {
	if i.SaveTo != "" {
		return filepath.Base(i.SaveTo)
	}
	return i.Key()
}

// HasCredits reports whether the source carried a character credit.
func (i Issue) HasCredits() bool { return i.CoverCharacters != nil }

// HasCharacter reports whether alias is one of the parsed aliases.
func (i Issue) HasCharacter(alias string) bool {
	for _, a := range i.CharacterAliases {
		if a == alias {
			return true
		}
	}
	return false
}

var issueNumberPattern = regexp.MustCompile(`[#?](\d+)\b`)

// IssueNumber extracts the number from titles such as "Superman #12" or
// "Detective Comics #1,000".
func IssueNumber(title string) (int, bool) {
	m := issueNumberPattern.FindStringSubmatch(strings.ReplaceAll(title, ",", ""))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// StripBrackets returns the title before its first bracketed part and before
// any "--" suffix: "Batman #1 [Newsstand]" -> "Batman #1".
func StripBrackets(title string) string {
	if loc := bracketed.FindStringIndex(title); loc != nil {
		title = strings.TrimSpace(title[:loc[0]])
	}
	if before, _, ok := strings.Cut(title, "--"); ok {
		return strings.TrimSpace(before)
	}
	return title
}

// Brackets returns the first bracketed part of title including the brackets.
func Brackets(title string) (string, bool) {
	m := bracketed.FindString(title)
	return m, m != ""
}

var bracketed = regexp.MustCompile(`\[(.*?)\]`)

// CoverFileName is the name the cover image of the given variant is saved under,
// e.g. "Aquaman: Aquaman #2 Direct (1985-11-19).jpg".
func CoverFileName(series, title, variant, onSale string) string {
	name := series + ": " + StripBrackets(title) + " " + variant + " (" + onSale + ").jpg"
	return strings.ReplaceAll(name, "/", "|")
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }
