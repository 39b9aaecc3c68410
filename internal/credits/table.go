/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package credits

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultPatterns are aliases known to contain the delimiter as punctuation.
var defaultPatterns = []string{
	"also as",
	"Kal-El",
	"Kal-L",
	"Kara Zor-El",
	"Martin Stein",
	"Etrigan",
	"James Howlett",
	"Gwendolyne Stacy",
	"Gwen Stacy",
	"Katar Hol",
	"Shayera Hol",
	"Kon-El",
	"Laura Kinney",
	"Kory Ander",
	"Bruce Banner",
	"Eobard Thawne",
	"Victor von Doom",
	"as Cat-Woman",
	"also as Task Force X",
	"Diana Prince",
	"Nathan Dayspring",
	"Susan Storm; Susan Richards",
	"Warren Worthington III",
	"Copycat",
	"Tornado Tyrant",
	"Bro'Dee Walker",
	"Ke'Haan",
	"Flash; Barry Allen",
	"Jennie-Lynn Hayden",
	"Donald Blake",
	"Thor Odinson; ",
}

// Table is the disambiguation table: substrings whose presence in a bracketed
// alias marks its single delimiter as punctuation. A Table is immutable once
// built and safe for concurrent use.
type Table struct {
	patterns []string
}

// DefaultTable returns the built-in table.
func DefaultTable() *Table { return NewTable(defaultPatterns...) }

// NewTable builds a table from patterns, dropping empty and duplicate entries.
func NewTable(patterns ...string) *Table {
	seen := make(map[string]struct{}, len(patterns))
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return &Table{patterns: out}
}

// With returns a new table holding t's patterns followed by extra.
func (t *Table) With(extra ...string) *Table {
	return NewTable(append(t.Patterns(), extra...)...)
}

// Patterns returns a copy of the table's patterns in order.
func (t *Table) Patterns() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.patterns...)
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.patterns)
}

// Match reports whether s contains any pattern of the table.
func (t *Table) Match(s string) bool {
	if t == nil {
		return false
	}
	for _, p := range t.patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// tableFile is the YAML layout of a patterns file.
type tableFile struct {
	Patterns []string `yaml:"patterns"`
}

// LoadTable reads a YAML document of the form
//
//	patterns:
//	  - Kal-El
//	  - "Thor Odinson; "
func LoadTable(r io.Reader) (*Table, error) {
	var f tableFile
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode patterns: %w", err)
	}
	return NewTable(f.Patterns...), nil
}

// LoadTableFile reads a patterns file from disk.
func LoadTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open patterns file: %w", err)
	}
	defer f.Close()
	return LoadTable(f)
}
