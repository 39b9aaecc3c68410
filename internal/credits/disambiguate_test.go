/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package credits

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisambiguateKnownAlias(t *testing.T) {
	got := DefaultTable().Disambiguate("Superman [Clark Kent; Kal-El]")
	assert.Equal(t, "Superman [Clark Kent/ Kal-El]", got)
}

func TestDisambiguateLeavesTeamsAndUnknownAliases(t *testing.T) {
	tbl := DefaultTable()
	for _, s := range []string{
		"Justice League [Batman; Superman; Wonder Woman]",
		"Spider-Man [Peter Parker; Spidey]",
		"Batman [Bruce Wayne]",
		"no brackets; at all",
		"",
	} {
		assert.Equal(t, s, tbl.Disambiguate(s))
	}
}

func TestDisambiguateIsIdempotentAndLengthPreserving(t *testing.T) {
	tbl := DefaultTable()
	inputs := []string{
		"Superman [Clark Kent; Kal-El]; Batman [Bruce Wayne]; Wonder Woman [Diana Prince]",
		"Wolverine [James Howlett; Logan]; X-Men [Cyclops; Storm; Jean Grey]",
		"Thor [Thor Odinson; Donald Blake]; Hulk [Bruce Banner; Joe Fixit]",
	}
	for _, in := range inputs {
		once := tbl.Disambiguate(in)
		assert.Len(t, once, len(in))
		assert.Equal(t, once, tbl.Disambiguate(once))
	}
}

func TestDisambiguateOnlyTouchesMatchingSpans(t *testing.T) {
	in := "Wolverine [James Howlett; Logan]; Foo [Bar; Baz]"
	got := DefaultTable().Disambiguate(in)
	assert.Equal(t, "Wolverine [James Howlett/ Logan]; Foo [Bar; Baz]", got)
}

func TestNilTableDisablesDisambiguation(t *testing.T) {
	var tbl *Table
	in := "Superman [Clark Kent; Kal-El]"
	assert.Equal(t, in, tbl.Disambiguate(in))
	assert.False(t, tbl.Match(in))
	assert.Zero(t, tbl.Len())
}

func TestDefaultTable(t *testing.T) {
	tbl := DefaultTable()
	assert.Equal(t, 31, tbl.Len())
	assert.True(t, tbl.Match("[Thor Odinson; Donald Blake]"))
	assert.False(t, tbl.Match("[Peter Parker; Spidey]"))
}

func TestNewTableDropsEmptyAndDuplicates(t *testing.T) {
	tbl := NewTable("Kal-El", "", "  ", "Kal-El", "Logan")
	assert.Equal(t, []string{"Kal-El", "Logan"}, tbl.Patterns())

	ext := tbl.With("Peter Parker", "Logan")
	assert.Equal(t, []string{"Kal-El", "Logan", "Peter Parker"}, ext.Patterns())
	assert.Equal(t, 2, tbl.Len(), "With must not modify the receiver")
}

func TestLoadTable(t *testing.T) {
	doc := `patterns:
  - Peter Parker
  - "Thor Odinson; "
  - ""
`
	tbl, err := LoadTable(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"Peter Parker", "Thor Odinson; "}, tbl.Patterns())

	empty, err := LoadTable(strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, empty.Len())

	_, err = LoadTable(strings.NewReader("patterns: {not: a list}"))
	assert.Error(t, err)
}

func TestLoadTableFileMissing(t *testing.T) {
	_, err := LoadTableFile(t.TempDir() + "/missing.yaml")
	assert.Error(t, err)
}
