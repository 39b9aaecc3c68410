/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package credits

import (
	"regexp"
	"strings"
)

// bracketPattern is a non-greedy, non-nesting match of a bracketed region.
var bracketPattern = regexp.MustCompile(`\[(.*?)\]`)

// MatchBrackets maps each literal bracketed substring of s (brackets included)
// to its span. Nesting is not understood and a repeated substring keeps only
// its last span; use BalancedSpans for extraction.
func MatchBrackets(s string) map[string]Span {
	matches := map[string]Span{}
	for _, loc := range bracketPattern.FindAllStringIndex(s, -1) {
		matches[s[loc[0]:loc[1]]] = Span{Start: loc[0], End: loc[1]}
	}
	return matches
}

// Disambiguate replaces the delimiter with the surrogate inside every
// bracketed region that holds exactly one delimiter and matches the table.
// Regions with several delimiters are taken to be team lists and left alone.
// The result has the same length as s, and applying Disambiguate to its own
// output changes nothing.
func (t *Table) Disambiguate(s string) string {
	var b []byte
	for _, loc := range bracketPattern.FindAllStringIndex(s, -1) {
		sub := s[loc[0]:loc[1]]
		if strings.Count(sub, string(Delimiter)) != 1 || !t.Match(sub) {
			continue
		}
		if b == nil {
			b = []byte(s)
		}
		b[loc[0]+strings.IndexByte(sub, Delimiter)] = Surrogate
	}
	if b == nil {
		return s
	}
	return string(b)
}
