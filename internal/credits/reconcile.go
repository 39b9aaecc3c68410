/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package credits

import "strings"

// Reconcile recovers the individuals of s: every stretch of text outside the
// team extents (and before dangling, the offset of an unclosed '[' or -1) is
// split on the separator at bracket depth 0. Teams must be ordered by Extent.
// The returned list is authoritative and replaces classifier individuals.
func Reconcile(s string, teams []Team, dangling int) []Individual {
	limit := len(s)
	if dangling >= 0 && dangling < limit {
		limit = dangling
	}
	var out []Individual
	pos := 0
	for _, t := range teams {
		if end := min(t.Extent.Start, limit); end > pos {
			out = appendSegments(out, s[pos:end])
		}
		pos = max(pos, t.Extent.End)
	}
	if pos < limit {
		out = appendSegments(out, s[pos:limit])
	}
	return out
}

// TeamsString renders teams the way they appear in a credit string,
// "Name: [a; b; c]", joined by the separator.
func TeamsString(teams []Team) string {
	parts := make([]string, 0, len(teams))
	for _, t := range teams {
		parts = append(parts, t.DisplayName+": ["+strings.Join(t.Members, Separator)+"]")
	}
	return strings.Join(parts, Separator)
}

func appendSegments(out []Individual, text string) []Individual {
	for _, seg := range splitTopLevel(text) {
		seg = strings.TrimSpace(strings.Trim(seg, " \t\r\n;"))
		if seg == "" {
			continue
		}
		out = append(out, ParseIndividual(seg))
	}
	return out
}

// splitTopLevel splits on the separator, ignoring separators inside brackets.
func splitTopLevel(s string) []string {
	var parts []string
	depth, last := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case Delimiter:
			if depth == 0 && strings.HasPrefix(s[i:], Separator) {
				parts = append(parts, s[last:i])
				last = i + len(Separator)
				i = last - 1
			}
		}
	}
	return append(parts, s[last:])
}

// ParseIndividual reads one credited character, "Name [alias]" or a bare
// "Name". The alias is the first balanced bracket, so nested brackets stay in it.
func ParseIndividual(seg string) Individual {
	ind := Individual{DisplayName: seg, Text: seg}
	spans := BalancedSpans(seg)
	if len(spans) == 0 {
		return ind
	}
	ind.DisplayName = strings.TrimSpace(seg[:spans[0].Start])
	ind.Alias = spans[0].Interior(seg)
	return ind
}
