/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package credits

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietParser(opts ...Option) *Parser {
	return New(append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)...)
}

func TestLookBehind(t *testing.T) {
	s := "Superman; Batman; Wonder Woman"
	assert.Equal(t, "Wonder Woman", LookBehind(s, len(s)))
	assert.Equal(t, "Wonder Woman", LookBehind(s, len(s)+10))
	assert.Equal(t, "Superman", LookBehind("Superman [Clark Kent]", 9))
	assert.Equal(t, "", LookBehind(s, -1))
	assert.Equal(t, "Bat", LookBehind(s, 13))
}

func TestClassify(t *testing.T) {
	s := "Justice League [Batman; Superman; Wonder Woman]; Flash [Barry Allen]"
	c := Classify(s, BalancedSpans(s))
	require.Len(t, c.Teams, 1)
	assert.Equal(t, "Justice League", c.Teams[0].DisplayName)
	assert.Equal(t, []string{"Batman", "Superman", "Wonder Woman"}, c.Teams[0].Members)
	assert.Equal(t, Span{Start: 0, End: 47}, c.Teams[0].Extent)
	require.Len(t, c.Individuals, 1)
	assert.Equal(t, Individual{DisplayName: "Flash", Alias: "Barry Allen", Text: "Flash [Barry Allen]"}, c.Individuals[0])
	assert.Empty(t, c.Ambiguous)
}

func TestClassifyFlagsUnexplainedDelimiter(t *testing.T) {
	s := "Spider-Man [Peter Parker; Spidey]"
	c := Classify(s, BalancedSpans(s))
	assert.Empty(t, c.Teams)
	require.Len(t, c.Ambiguous, 1)
	assert.Equal(t, "Spider-Man", c.Ambiguous[0].DisplayName)
	assert.Equal(t, "Peter Parker; Spidey", c.Ambiguous[0].Alias)
}

func TestParseTeamAndIndividual(t *testing.T) {
	res := quietParser().Parse("Justice League [Batman; Superman; Wonder Woman]; Flash [Barry Allen]")
	assert.Equal(t, []string{"Batman", "Superman", "Wonder Woman", "Flash [Barry Allen]"}, res.List())
	require.Len(t, res.Individuals, 1)
	assert.Equal(t, "Flash", res.Individuals[0].DisplayName)
	assert.Equal(t, "Barry Allen", res.Individuals[0].Alias)
}

func TestParseDisambiguatedIndividual(t *testing.T) {
	res := quietParser().Parse("Superman [Clark Kent; Kal-El]")
	assert.Equal(t, []string{"Superman [Clark Kent/ Kal-El]"}, res.List())
	assert.Empty(t, res.Teams)
	assert.Empty(t, res.Ambiguous)
}

func TestParseIndividualsOnly(t *testing.T) {
	got := Parse("Superman [Clark Kent; Kal-El]; Batman [Bruce Wayne]; Wonder Woman [Diana Prince]")
	assert.Equal(t, []string{
		"Superman [Clark Kent/ Kal-El]",
		"Batman [Bruce Wayne]",
		"Wonder Woman [Diana Prince]",
	}, got)
}

func TestParseUnbracketedIndividuals(t *testing.T) {
	p := quietParser()
	assert.Equal(t, []string{"Batman", "Robin", "Alfred Pennyworth"}, p.Parse("Batman; Robin; Alfred Pennyworth").List())

	res := p.Parse("Alfred; Teen Titans [Robin; Starfire; Cyborg]; Batman [Bruce Wayne]")
	assert.Equal(t, []string{"Robin", "Starfire", "Cyborg", "Alfred", "Batman [Bruce Wayne]"}, res.List())
	require.Len(t, res.Teams, 1)
	assert.Equal(t, "Teen Titans", res.Teams[0].DisplayName)
}

func TestParseSeveralTeams(t *testing.T) {
	in := "Avengers [Thor; Iron Man; Captain America]; Jarvis; Fantastic Four [Mr. Fantastic; Invisible Woman; Human Torch; Thing]; Doctor Doom"
	res := quietParser().Parse(in)
	require.Len(t, res.Teams, 2)
	assert.Equal(t, "Avengers", res.Teams[0].DisplayName)
	assert.Equal(t, "Fantastic Four", res.Teams[1].DisplayName)
	assert.Equal(t, []string{
		"Thor", "Iron Man", "Captain America",
		"Mr. Fantastic", "Invisible Woman", "Human Torch", "Thing",
		"Jarvis", "Doctor Doom",
	}, res.List())
	assert.Equal(t, "Avengers: [Thor; Iron Man; Captain America]; Fantastic Four: [Mr. Fantastic; Invisible Woman; Human Torch; Thing]", TeamsString(res.Teams))
}

func TestParseNestedTeamMember(t *testing.T) {
	res := quietParser().Parse("Legion [Brainiac 5 [Querl Dox]; Saturn Girl; Cosmic Boy]")
	require.Len(t, res.Teams, 1)
	assert.Equal(t, []string{"Brainiac 5 [Querl Dox]", "Saturn Girl", "Cosmic Boy"}, res.Teams[0].Members)
	assert.Empty(t, res.Individuals)
}

func TestParseUnclosedBracketIsDropped(t *testing.T) {
	var res Result
	require.NotPanics(t, func() { res = quietParser().Parse("Team [A; B") })
	list := res.List()
	assert.NotContains(t, list, "A")
	assert.NotContains(t, list, "B")
	assert.Equal(t, []string{"Team"}, list)
	assert.Equal(t, "[A; B", res.Dropped)
}

func TestParseAmbiguousStaysOneIndividual(t *testing.T) {
	res := quietParser().Parse("Spider-Man [Peter Parker; Spidey]; Mary Jane Watson")
	assert.Equal(t, []string{"Spider-Man [Peter Parker; Spidey]", "Mary Jane Watson"}, res.List())
	require.Len(t, res.Ambiguous, 1)
}

func TestParseWithCustomTable(t *testing.T) {
	p := quietParser(WithTable(DefaultTable().With("Peter Parker")))
	res := p.Parse("Spider-Man [Peter Parker; Spidey]")
	assert.Equal(t, []string{"Spider-Man [Peter Parker/ Spidey]"}, res.List())
	assert.Empty(t, res.Ambiguous)

	bare := quietParser(WithTable(nil))
	assert.Equal(t, []string{"Superman [Clark Kent; Kal-El]"}, bare.Parse("Superman [Clark Kent; Kal-El]").List())
}

func TestParseEmptyAndAbsent(t *testing.T) {
	p := quietParser()
	assert.True(t, p.Parse("").Empty())
	assert.True(t, p.Parse("  \t").Empty())
	assert.Empty(t, p.Parse("").List())

	_, ok := p.ParseField(nil)
	assert.False(t, ok)

	empty := ""
	res, ok := p.ParseField(&empty)
	assert.True(t, ok)
	assert.True(t, res.Empty())
}

func TestResultEntities(t *testing.T) {
	res := quietParser().Parse("Justice League [Batman; Superman; Wonder Woman]; Flash [Barry Allen]")
	ents := res.Entities()
	require.Len(t, ents, 2)
	assert.Equal(t, KindTeam, ents[0].Kind())
	assert.Equal(t, "Justice League", ents[0].Name())
	assert.Equal(t, KindIndividual, ents[1].Kind())
	assert.Equal(t, []string{"Flash [Barry Allen]"}, ents[1].Aliases())
	assert.Equal(t, "team", KindTeam.String())
}

func TestParseConcurrentUse(t *testing.T) {
	p := quietParser()
	in := "Justice League [Batman; Superman; Wonder Woman]; Superman [Clark Kent; Kal-El]; Lois Lane"
	want := p.Parse(in).List()

	var wg sync.WaitGroup
	results := make(chan []string, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- p.Parse(in).List()
		}()
	}
	wg.Wait()
	close(results)
	for got := range results {
		assert.Equal(t, want, got)
	}
}

func TestClassifyTeamNameStopsAtPreviousEntity(t *testing.T) {
	s := "Flash [Barry Allen] Justice League [Batman; Superman; Aquaman]"
	c := Classify(s, BalancedSpans(s))
	require.Len(t, c.Teams, 1)
	assert.Equal(t, "Justice League", c.Teams[0].DisplayName)
	assert.Equal(t, 19, c.Teams[0].Extent.Start)

	res := quietParser().Parse(s)
	assert.Equal(t, []string{"Batman", "Superman", "Aquaman", "Flash [Barry Allen]"}, res.List())
}

func TestParseIndividual(t *testing.T) {
	assert.Equal(t, Individual{DisplayName: "Batman", Alias: "Bruce Wayne", Text: "Batman [Bruce Wayne]"}, ParseIndividual("Batman [Bruce Wayne]"))
	assert.Equal(t, "Querl Dox [Legion]", ParseIndividual("Brainiac 5 [Querl Dox [Legion]]").Alias)
	assert.Equal(t, Individual{DisplayName: "Lois Lane", Text: "Lois Lane"}, ParseIndividual("Lois Lane"))
}
