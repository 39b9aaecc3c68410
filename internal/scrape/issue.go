/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package scrape extracts issue metadata and cover credits from saved
// Grand Comics Database issue pages. Retrieval is left to the caller.
package scrape

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"comicsnet/internal/domain"
)

// ErrNoTitle is returned for documents without a <title>, which are not issue pages.
var ErrNoTitle = errors.New("scrape: page has no title")

// detailKeys are the dd#<key> entries copied into Issue.Details.
var detailKeys = []string{
	"indicia_frequency",
	"issue_indicia_publisher",
	"issue_brand",
	"issue_price",
	"issue_pages",
	"format_color",
	"format_dimensions",
	"format_paper_stock",
	"format_binding",
	"format_publishing_format",
	"rating",
}

// linkedKeys hold their value inside an anchor.
var linkedKeys = map[string]bool{
	"issue_indicia_publisher": true,
	"issue_brand":             true,
}

// dropped cover credits.
var droppedCredits = map[string]bool{
	"cover_reprints": true,
	"cover_awards":   true,
}

// ParseIssuePage reads one issue page. The series name is not part of the page
// body and must be filled in by the caller.
func ParseIssuePage(r io.Reader) (domain.Issue, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return domain.Issue{}, fmt.Errorf("parse html: %w", err)
	}
	title, err := issueTitle(doc)
	if err != nil {
		return domain.Issue{}, err
	}
	is := domain.Issue{
		Title:      title,
		OnSaleDate: metadataValue(doc, "on_sale_date"),
		Details:    map[string]string{},
	}
	for _, k := range detailKeys {
		if v := metadataValue(doc, k); v != "" {
			is.Details[k] = v
		}
	}
	if len(is.Details) == 0 {
		is.Details = nil
	}

	var notes []string
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		if t := cleanText(p.Text()); t != "" {
			notes = append(notes, t)
		}
	})
	is.IndexerNotes = strings.Join(notes, " | ")
	is.Synopsis = strings.Join(creditsLabelled(doc.Selection, "Synopsis"), " | ")

	cover := doc.Find("div.cover").First()
	if cover.Length() > 0 {
		is.CoverCredits = CoverCredits(cover)
		if v, ok := is.CoverCredits["cover_characters"]; ok {
			is.CoverCharacters = domain.StringPtr(v)
		}
	}
	return is, nil
}

// CoverCredits collects the credit_label/credit_value pairs of a cover section
// keyed as cover_<label>. Reprint and award notes are dropped.
func CoverCredits(sel *goquery.Selection) map[string]string {
	labels := sel.Find("span.credit_label")
	values := sel.Find("span.credit_value")
	n := min(labels.Length(), values.Length())
	out := make(map[string]string, n)
	for i := 0; i < n; i++ {
		key := "cover_" + strings.ToLower(cleanText(labels.Eq(i).Text()))
		if droppedCredits[key] {
			continue
		}
		out[key] = cleanText(values.Eq(i).Text())
	}
	return out
}

func issueTitle(doc *goquery.Document) (string, error) {
	t := doc.Find("title").First()
	if t.Length() == 0 {
		return "", ErrNoTitle
	}
	raw := cleanText(t.Text())
	parts := strings.Split(raw, " :: ")
	return strings.ReplaceAll(parts[len(parts)-1], "/", "|"), nil
}

func metadataValue(doc *goquery.Document, key string) string {
	dd := doc.Find("dd#" + key).First()
	if dd.Length() == 0 {
		return ""
	}
	if linkedKeys[key] {
		return cleanText(dd.Find("a").First().Text())
	}
	return cleanText(dd.Text())
}

func creditsLabelled(sel *goquery.Selection, label string) []string {
	labels := sel.Find("span.credit_label")
	values := sel.Find("span.credit_value")
	var out []string
	for i := 0; i < min(labels.Length(), values.Length()); i++ {
		if cleanText(labels.Eq(i).Text()) != label {
			continue
		}
		if v := cleanText(values.Eq(i).Text()); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func cleanText(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", ""))
}
