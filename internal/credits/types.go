/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package credits turns the free-text character credits found on comic database
// pages into an ordered list of entities. A credit string such as
//
//	Justice League [Batman; Superman; Wonder Woman]; Flash [Barry Allen]
//
// uses ";" both to separate entities and, inside some aliases, as ordinary
// punctuation. The parser first neutralizes known in-alias delimiters using a
// Table, then extracts the outermost bracket spans, classifies each span as a
// team or an individual, and finally recovers every individual from the text
// not consumed by teams.
//
// All functions are total: malformed input degrades to partial results.
package credits

const (
	// Delimiter separates entities at the top level and team members inside brackets.
	Delimiter = ';'
	// Separator is the exact token entities and team members are split on.
	Separator = "; "
	// Surrogate replaces a delimiter that belongs to an alias.
	Surrogate = '/'
)

// Span is a bracketed region of a credit string. Start is the offset of '[' and
// End the offset just past the matching ']', so Start < End always holds.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Interior returns the text between the brackets of the span.
func (sp Span) Interior(s string) string {
	if sp.Start < 0 || sp.End > len(s) || sp.End-sp.Start < 2 {
		return ""
	}
	return s[sp.Start+1 : sp.End-1]
}

// Kind tells individuals and teams apart.
type Kind int

const (
	KindIndividual Kind = iota
	KindTeam
)

func (k Kind) String() string {
	switch k {
	case KindIndividual:
		return "individual"
	case KindTeam:
		return "team"
	default:
		return "unknown"
	}
}

// Entity is an Individual or a Team.
type Entity interface {
	Kind() Kind
	Name() string
	// Aliases lists the alias strings the entity contributes to a result list.
	Aliases() []string
}

// Individual is a single character. Text keeps the entity exactly as it was
// written in the (disambiguated) credit string, e.g. "Flash [Barry Allen]".
type Individual struct {
	DisplayName string `json:"display_name"`
	Alias       string `json:"alias,omitempty"`
	Text        string `json:"text"`
}

func (Individual) Kind() Kind { return KindIndividual }
func (i Individual) Name() string { return i.DisplayName }

func (i Individual) Aliases() []string { return []string{i.String()} }

func (i Individual) String() string {
	if i.Text != "" {
		return i.Text
	}
	if i.Alias == "" {
		return i.DisplayName
	}
	return i.DisplayName + " [" + i.Alias + "]"
}

// Team is a named group whose bracket lists two or more members.
// Extent covers the display name through the closing bracket.
type Team struct {
	DisplayName string   `json:"display_name"`
	Members     []string `json:"members"`
	Extent      Span     `json:"extent"`
}

func (Team) Kind() Kind { return KindTeam }
func (t Team) Name() string { return t.DisplayName }
func (t Team) Aliases() []string { return append([]string(nil), t.Members...) }
