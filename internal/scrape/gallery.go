/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scrape

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"comicsnet/internal/domain"
)

// CoverLink is one entry of an issue's cover gallery.
type CoverLink struct {
	Variant  string
	PageURL  string
	ImageURL string
}

// ParseCoverGallery lists the covers of a gallery page. Relative page links are
// resolved against base when it is non-nil.
func ParseCoverGallery(r io.Reader, base *url.URL) ([]CoverLink, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	var out []CoverLink
	doc.Find("div.issue_covers").First().Children().Filter("div").Each(func(_ int, div *goquery.Selection) {
		links := div.Find("a")
		if links.Length() < 2 {
			return
		}
		href, _ := links.Eq(0).Attr("href")
		src, _ := links.Eq(0).Find("img").Attr("src")
		out = append(out, CoverLink{
			Variant:  VariantName(cleanText(links.Eq(1).Text())),
			PageURL:  resolve(base, href),
			ImageURL: src,
		})
	})
	return out, nil
}

// Wanted drops the reprint and regional duplicates of a gallery.
func Wanted(links []CoverLink) []CoverLink {
	out := links[:0:0]
	for _, l := range links {
		if IsReprinting(l.Variant) || IsNewsstandOrRegional(l.Variant) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// VariantName is the bracketed part of a cover name, or "Original".
func VariantName(name string) string {
	b, ok := domain.Brackets(name)
	if !ok {
		return "Original"
	}
	return strings.Trim(b, "[]")
}

var printings = []string{
	"2nd Printing", "Second Printing",
	"3rd Printing", "Third Printing",
	"4th Printing", "Fourth Printing",
	"5th Printing", "Fifth Printing",
	"6th Printing", "7th Printing", "8th Printing", "9th Printing", "10th Printing",
}

// IsReprinting reports later printings of an issue.
func IsReprinting(title string) bool {
	for _, p := range printings {
		if strings.Contains(title, p) {
			return true
		}
	}
	return false
}

// IsNewsstandOrRegional reports newsstand and regional editions of a direct issue.
func IsNewsstandOrRegional(title string) bool {
	t := strings.ToLower(title)
	for _, s := range []string{"newsstand", "canadian", "whitman", "british "} {
		if strings.Contains(t, s) {
			return true
		}
	}
	return false
}

// IsVariant reports variant covers.
func IsVariant(title string) bool {
	return strings.Contains(strings.ToLower(title), "variant")
}

// IsRedundant reports issues that duplicate a direct sale issue.
func IsRedundant(title string) bool {
	if IsReprinting(title) || IsNewsstandOrRegional(title) || IsVariant(title) {
		return true
	}
	t := strings.ToLower(title)
	return strings.Contains(t, "cover") && !strings.Contains(t, "direct")
}

func resolve(base *url.URL, href string) string {
	if base == nil || href == "" {
		return href
	}
	u, err := base.Parse(href)
	if err != nil {
		return href
	}
	return u.String()
}
