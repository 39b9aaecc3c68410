/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package credits

import "strings"

// Classification is the structural reading of a disambiguated credit string.
type Classification struct {
	Teams       []Team
	Individuals []Individual
	// Ambiguous holds bracketed individuals whose alias still carries one
	// delimiter the table did not explain. They may really be two-member teams.
	Ambiguous []Individual
}

// Classify sorts every span into a team (more than one delimiter inside the
// brackets) or an individual (none or one), resolving display names with
// LookBehind.
func Classify(s string, spans []Span) Classification {
	var c Classification
	floor := 0
	for _, sp := range spans {
		interior := sp.Interior(s)
		// A name never reaches back into the previous bracketed entity.
		start := max(nameStart(s, sp.Start), floor)
		name := strings.TrimSpace(s[start:sp.Start])
		switch n := strings.Count(interior, string(Delimiter)); {
		case n > 1:
			c.Teams = append(c.Teams, Team{
				DisplayName: name,
				Members:     splitMembers(interior),
				Extent:      Span{Start: start, End: sp.End},
			})
		default:
			ind := Individual{DisplayName: name, Alias: interior, Text: strings.TrimSpace(s[start:sp.End])}
			c.Individuals = append(c.Individuals, ind)
			if n == 1 {
				c.Ambiguous = append(c.Ambiguous, ind)
			}
		}
		floor = sp.End
	}
	return c
}

// LookBehind returns the trimmed text between the last delimiter before offset
// (or the start of s) and offset.
func LookBehind(s string, offset int) string {
	offset = clamp(offset, 0, len(s))
	head := s[:offset]
	return strings.TrimSpace(head[strings.LastIndexByte(head, Delimiter)+1:])
}

// nameStart is the offset where the name resolved by LookBehind begins.
func nameStart(s string, offset int) int {
	offset = clamp(offset, 0, len(s))
	i := strings.LastIndexByte(s[:offset], Delimiter) + 1
	for i < offset && isSpace(s[i]) {
		i++
	}
	return i
}

func splitMembers(interior string) []string {
	var members []string
	for _, m := range strings.Split(interior, Separator) {
		if m = strings.TrimSpace(m); m != "" {
			members = append(members, m)
		}
	}
	return members
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }
