/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package credits

// BalancedSpans returns the outermost balanced bracket spans of s in order.
// Nested brackets stay inside their enclosing span. A span left open at the end
// of s is dropped and a ']' without an opener is ignored.
func BalancedSpans(s string) []Span {
	spans, _ := scanSpans(s)
	return spans
}

// scanSpans also returns the offset of the '[' that opened a span still
// unclosed at the end of s, or -1.
func scanSpans(s string) ([]Span, int) {
	var spans []Span
	depth, start := 0, -1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			if depth == 0 {
				start = i
			}
			depth++
		case ']':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				spans = append(spans, Span{Start: start, End: i + 1})
			}
		}
	}
	if depth > 0 {
		return spans, start
	}
	return spans, -1
}
