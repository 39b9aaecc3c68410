/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package credits

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchBrackets(t *testing.T) {
	got := MatchBrackets("Batman [Bruce Wayne]")
	assert.Equal(t, map[string]Span{"[Bruce Wayne]": {Start: 7, End: 20}}, got)

	got = MatchBrackets("Batman [Bruce Wayne], Superman  [Clark Kent]")
	assert.Equal(t, map[string]Span{
		"[Bruce Wayne]": {Start: 7, End: 20},
		"[Clark Kent]":  {Start: 32, End: 44},
	}, got)
}

func TestMatchBracketsLaterDuplicateWins(t *testing.T) {
	got := MatchBrackets("A [x]; B [x]")
	require.Len(t, got, 1)
	assert.Equal(t, Span{Start: 9, End: 12}, got["[x]"])
}

func TestBalancedSpansSkipsNested(t *testing.T) {
	s := "A [x [y] z]; B [w]"
	spans := BalancedSpans(s)
	require.Equal(t, []Span{{Start: 2, End: 11}, {Start: 15, End: 18}}, spans)
	assert.Equal(t, "x [y] z", spans[0].Interior(s))
	assert.Equal(t, "w", spans[1].Interior(s))
}

func TestBalancedSpansUnbalanced(t *testing.T) {
	assert.Empty(t, BalancedSpans("Team [A; B"))
	assert.Equal(t, []Span{{Start: 0, End: 3}}, BalancedSpans("[a] [b"))
	assert.Equal(t, []Span{{Start: 4, End: 7}}, BalancedSpans("] A [b]"))

	_, dangling := scanSpans("Team [A; B")
	assert.Equal(t, 5, dangling)
	_, dangling = scanSpans("Team [A; B]")
	assert.Equal(t, -1, dangling)
}

// randomBalanced builds a balanced bracket string and returns it with the
// number of depth-0 bracket pairs it contains.
func randomBalanced(r *rand.Rand) (string, int) {
	var b strings.Builder
	top := 0
	var group func(depth int)
	group = func(depth int) {
		b.WriteByte('[')
		for n := r.Intn(3); n > 0; n-- {
			if depth < 3 && r.Intn(2) == 0 {
				group(depth + 1)
			} else {
				b.WriteString("ab; c")
			}
		}
		b.WriteByte(']')
	}
	for n := r.Intn(6); n > 0; n-- {
		b.WriteString("Name ")
		group(0)
		top++
		b.WriteString("; ")
	}
	return b.String(), top
}

func TestBalancedSpansCountsTopLevelPairs(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		s, want := randomBalanced(r)
		spans := BalancedSpans(s)
		require.Len(t, spans, want, "input %q", s)
		for j, sp := range spans {
			assert.Less(t, sp.Start, sp.End)
			assert.Equal(t, byte('['), s[sp.Start])
			assert.Equal(t, byte(']'), s[sp.End-1])
			if j > 0 {
				assert.LessOrEqual(t, spans[j-1].End, sp.Start)
			}
		}
	}
}

func TestSpanInteriorOutOfRange(t *testing.T) {
	assert.Equal(t, "", Span{Start: 3, End: 40}.Interior("short"))
	assert.Equal(t, "", Span{Start: 0, End: 2}.Interior("[]"))
}
