/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	LabelsFileName        = "labels.txt"
	UpdatedLabelsFileName = "labels_updated.txt"
	labelSeparator        = "|"
)

// ErrLabelNotFound is returned by UpdateLabel for an unknown image.
var ErrLabelNotFound = errors.New("image not in labels file")

// Label is one line of a labels file: an image name and its characters.
type Label struct {
	Name   string
	Labels []string
}

// WriteLabels writes "name\tA|B" lines. Tabs in names are replaced by spaces.
func WriteLabels(w io.Writer, labels []Label) error {
	bw := bufio.NewWriter(w)
	for _, l := range labels {
		if _, err := fmt.Fprintf(bw, "%s\t%s\n", cleanName(l.Name), strings.Join(l.Labels, labelSeparator)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadLabels parses a labels file. Lines without a tab are rejected.
func ReadLabels(r io.Reader) ([]Label, error) {
	sc := bufio.NewScanner(r)
	var out []Label
	n := 0
	for sc.Scan() {
		n++
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		name, rest, ok := strings.Cut(line, "\t")
		if !ok {
			return out, fmt.Errorf("labels line %d: missing tab", n)
		}
		l := Label{Name: name}
		if rest != "" {
			l.Labels = strings.Split(rest, labelSeparator)
		}
		out = append(out, l)
	}
	return out, sc.Err()
}

// UpdateLabel replaces the label of one image in dir/labels_updated.txt, seeding
// that file from labels.txt on first use so the original stays untouched.
func UpdateLabel(dir, name string, labels []string) error {
	updated := filepath.Join(dir, UpdatedLabelsFileName)
	if _, err := os.Stat(updated); errors.Is(err, os.ErrNotExist) {
		b, err := os.ReadFile(filepath.Join(dir, LabelsFileName))
		if err != nil {
			return err
		}
		if err := os.WriteFile(updated, b, 0o644); err != nil {
			return err
		}
	}
	f, err := os.Open(updated)
	if err != nil {
		return err
	}
	all, err := ReadLabels(f)
	_ = f.Close()
	if err != nil {
		return err
	}
	found := false
	for i := range all {
		if all[i].Name == name {
			all[i].Labels = labels
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrLabelNotFound, name)
	}
	out, err := os.Create(updated)
	if err != nil {
		return err
	}
	if err := WriteLabels(out, all); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func cleanName(s string) string { return strings.ReplaceAll(s, "\t", " ") }
