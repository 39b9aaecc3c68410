/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package credits

import (
	"log/slog"
	"strings"
	"sync"

	applog "comicsnet/internal/log"
)

// Result is the parse of one credit string.
type Result struct {
	// Text is the disambiguated input the entities were read from.
	Text        string       `json:"text,omitempty"`
	Teams       []Team       `json:"teams,omitempty"`
	Individuals []Individual `json:"individuals,omitempty"`
	Ambiguous   []Individual `json:"ambiguous,omitempty"`
	// Dropped is the unclosed bracket region discarded from the end of Text.
	Dropped string `json:"dropped,omitempty"`
}

// List flattens the result: team members in discovery order, then individuals.
func (r Result) List() []string {
	out := make([]string, 0, len(r.Individuals)+4*len(r.Teams))
	for _, t := range r.Teams {
		out = append(out, t.Members...)
	}
	for _, ind := range r.Individuals {
		out = append(out, ind.String())
	}
	return out
}

// Entities returns teams followed by individuals.
func (r Result) Entities() []Entity {
	out := make([]Entity, 0, len(r.Teams)+len(r.Individuals))
	for _, t := range r.Teams {
		out = append(out, t)
	}
	for _, ind := range r.Individuals {
		out = append(out, ind)
	}
	return out
}

func (r Result) Empty() bool { return len(r.Teams) == 0 && len(r.Individuals) == 0 }

// Parser converts credit strings into entities. It holds no mutable state and
// may be shared between goroutines.
type Parser struct {
	table  *Table
	logger *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithTable sets the disambiguation table. A nil table disables disambiguation.
func WithTable(t *Table) Option { return func(p *Parser) { p.table = t } }

// WithLogger sets the logger used for debug diagnostics.
func WithLogger(l *slog.Logger) Option { return func(p *Parser) { p.logger = l } }

// New returns a parser using the default table unless overridden.
func New(opts ...Option) *Parser {
	p := &Parser{table: DefaultTable()}
	for _, o := range opts {
		o(p)
	}
	if p.logger == nil {
		p.logger = applog.WithComponent("credits")
	}
	return p
}

// Table returns the parser's disambiguation table.
func (p *Parser) Table() *Table { return p.table }

// Parse parses one credit string. Empty or blank input yields an empty result.
func (p *Parser) Parse(s string) Result {
	if strings.TrimSpace(s) == "" {
		return Result{}
	}
	text := p.table.Disambiguate(s)
	spans, dangling := scanSpans(text)
	c := Classify(text, spans)
	res := Result{
		Text:        text,
		Teams:       c.Teams,
		Individuals: Reconcile(text, c.Teams, dangling),
		Ambiguous:   c.Ambiguous,
	}
	if dangling >= 0 {
		res.Dropped = text[dangling:]
		p.logger.Debug("unclosed bracket dropped", slog.String("dropped", res.Dropped))
	}
	for _, a := range c.Ambiguous {
		p.logger.Debug("ambiguous alias delimiter", slog.String("entity", a.String()))
	}
	return res
}

// ParseField parses an optional field. A nil field means the source record had
// no credits at all; ok is false and the parser is not run.
func (p *Parser) ParseField(s *string) (res Result, ok bool) {
	if s == nil {
		return Result{}, false
	}
	return p.Parse(*s), true
}

var defaultParser = sync.OnceValue(func() *Parser { return New() })

// Parse parses s with the default table and returns the flattened entity list.
func Parse(s string) []string { return defaultParser().Parse(s).List() }
