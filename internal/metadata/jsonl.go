/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package metadata reads and writes the JSON-lines issue log produced by the
// scraper. Every line is validated against an embedded JSON schema; bad lines
// are reported and skipped.
package metadata

import (
	"bufio"
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"comicsnet/internal/domain"
)

//go:embed issue.schema.json
var schemaBytes []byte

// ErrInvalidRecord marks a line that is valid JSON but not an issue record.
var ErrInvalidRecord = errors.New("invalid issue record")

// maxLine bounds a single JSON line; synopses can be long.
const maxLine = 4 << 20

var schema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaBytes))
})

// LineError is a rejected line of a JSON-lines file.
type LineError struct {
	Line int
	Err  error
}

func (e LineError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }
func (e LineError) Unwrap() error { return e.Err }

// Read decodes issue records, one per line. Blank lines are skipped. Lines
// that fail to decode or validate are returned as LineErrors; only I/O
// failures abort the read.
func Read(r io.Reader) ([]domain.Issue, []LineError, error) {
	s, err := schema()
	if err != nil {
		return nil, nil, fmt.Errorf("load schema: %w", err)
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)

	var (
		issues []domain.Issue
		bad    []LineError
		n      int
	)
	for sc.Scan() {
		n++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		is, err := decode(s, line)
		if err != nil {
			bad = append(bad, LineError{Line: n, Err: err})
			continue
		}
		issues = append(issues, is)
	}
	if err := sc.Err(); err != nil {
		return issues, bad, fmt.Errorf("read line %d: %w", n+1, err)
	}
	return issues, bad, nil
}

func decode(s *gojsonschema.Schema, line []byte) (domain.Issue, error) {
	var is domain.Issue
	if !json.Valid(line) {
		return is, errors.New("malformed json")
	}
	res, err := s.Validate(gojsonschema.NewBytesLoader(line))
	if err != nil {
		return is, fmt.Errorf("validate: %w", err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return is, fmt.Errorf("%w: %s", ErrInvalidRecord, strings.Join(msgs, "; "))
	}
	if err := json.Unmarshal(line, &is); err != nil {
		return is, err
	}
	return is, nil
}

// Write encodes issues as JSON lines.
func Write(w io.Writer, issues []domain.Issue) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i := range issues {
		if err := enc.Encode(&issues[i]); err != nil {
			return fmt.Errorf("encode %q: %w", issues[i].Title, err)
		}
	}
	return nil
}

// ReadFile reads a JSON-lines file.
func ReadFile(path string) ([]domain.Issue, []LineError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return Read(f)
}

// AppendFile appends issues to path, creating the file and its directory when missing.
func AppendFile(path string, issues []domain.Issue) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := Write(bw, issues); err != nil {
		_ = f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// IsDuplicate reports whether existing already holds is: same title once
// bracketed variant notes are stripped, and the same on-sale date.
func IsDuplicate(existing []domain.Issue, is domain.Issue) bool {
	title := domain.StripBrackets(is.Title)
	for _, e := range existing {
		if e.OnSaleDate == is.OnSaleDate && domain.StripBrackets(e.Title) == title {
			return true
		}
	}
	return false
}

// AppendNew appends the issues that are not duplicates of the log at path or
// of each other, and returns how many were written. Unreadable lines of the
// existing log are ignored for the comparison.
func AppendNew(path string, issues []domain.Issue) (int, error) {
	existing, _, err := ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, err
	}
	fresh := make([]domain.Issue, 0, len(issues))
	for _, is := range issues {
		if IsDuplicate(existing, is) || IsDuplicate(fresh, is) {
			continue
		}
		fresh = append(fresh, is)
	}
	if len(fresh) == 0 {
		return 0, nil
	}
	return len(fresh), AppendFile(path, fresh)
}
