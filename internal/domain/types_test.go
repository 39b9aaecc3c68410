/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"testing"
)

func TestIssueNumber(t *testing.T) {
	cases := []struct {
		title string
		want  int
		ok    bool
	}{
		{"Superman #12", 12, true},
		{"Detective Comics #1,000", 1000, true},
		{"Giant-Size X-Men ?1", 1, true},
		{"Annual", 0, false},
	}
	for _, c := range cases {
		got, ok := IssueNumber(c.title)
		if got != c.want || ok != c.ok {
			t.Fatalf("IssueNumber(%q) = %d, %v; want %d, %v", c.title, got, ok, c.want, c.ok)
		}
	}
}

func TestAbsentCreditsAreOmitted(t *testing.T) {
	b, err := json.Marshal(Issue{Title: "Batman #1"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := m["cover_characters"]; ok {
		t.Fatalf("absent credits should not be serialized: %s", b)
	}

	var back Issue
	if err := json.Unmarshal([]byte(`{"title":"Batman #1","cover_characters":""}`), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.HasCredits() || *back.CoverCharacters != "" {
		t.Fatalf("empty credit must stay distinguishable from absent: %+v", back)
	}
}

func TestKeyAndImageID(t *testing.T) {
	i := Issue{Title: "Aquaman #2", SeriesName: "Aquaman", OnSaleDate: "1985-11-19"}
	if got := i.Key(); got != "Aquaman: Aquaman #2 (1985-11-19)" {
		t.Fatalf("Key() = %q", got)
	}
	if i.ImageID() != i.Key() {
		t.Fatalf("ImageID without SaveTo should fall back to Key")
	}
	i.SaveTo = "./covers/Aquaman: Aquaman #2 Direct (1985-11-19).jpg"
	if got := i.ImageID(); got != "Aquaman: Aquaman #2 Direct (1985-11-19).jpg" {
		t.Fatalf("ImageID() = %q", got)
	}
}

func TestStripBrackets(t *testing.T) {
	for _, in := range []string{"Batman #1 [Newsstand]", "Batman #1 -- Special [Direct]", "Batman #1"} {
		if got := StripBrackets(in); got != "Batman #1" {
			t.Fatalf("StripBrackets(%q) = %q", in, got)
		}
	}
	if got := CoverFileName("Aquaman", "Aquaman #2 [Direct]", "Direct", "1985-11-19"); got != "Aquaman: Aquaman #2 Direct (1985-11-19).jpg" {
		t.Fatalf("CoverFileName() = %q", got)
	}
}
