/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package dataset

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"comicsnet/internal/export"
	applog "comicsnet/internal/log"
)

// UpdatedSuffix names the curated copy of a dataset directory.
const UpdatedSuffix = "_updated"

// Exclude writes a curated copy of the dataset at dir to dir+"_updated":
// every image except the named ones, and a labels.txt without their lines.
// Labels are taken from labels_updated.txt when present so manual
// corrections carry over. It returns the number of images copied.
func Exclude(dir string, names []string) (int, error) {
	dir = filepath.Clean(dir)
	if strings.TrimSpace(dir) == "" || dir == "." {
		return 0, errors.New("dataset dir is required")
	}
	l := applog.WithOperation(applog.WithComponent("dataset"), "exclude").With(slog.String("dir", dir))
	skip := make(map[string]bool, len(names))
	for _, n := range names {
		skip[n] = true
	}

	labels, err := readCurrentLabels(dir)
	if err != nil {
		return 0, err
	}
	outDir := dir + UpdatedSuffix
	imgDir := filepath.Join(outDir, ImagesDirName)
	if err := os.MkdirAll(imgDir, 0o755); err != nil {
		return 0, fmt.Errorf("create images dir: %w", err)
	}

	entries, err := os.ReadDir(filepath.Join(dir, ImagesDirName))
	if err != nil {
		return 0, fmt.Errorf("read images: %w", err)
	}
	copied := 0
	for _, e := range entries {
		if e.IsDir() || skip[e.Name()] {
			continue
		}
		if err := copyFile(filepath.Join(dir, ImagesDirName, e.Name()), filepath.Join(imgDir, e.Name())); err != nil {
			return copied, fmt.Errorf("copy %s: %w", e.Name(), err)
		}
		copied++
	}

	kept := labels[:0]
	for _, lb := range labels {
		if !skip[lb.Name] {
			kept = append(kept, lb)
		}
	}
	f, err := os.Create(filepath.Join(outDir, export.LabelsFileName))
	if err != nil {
		return copied, err
	}
	if err := export.WriteLabels(f, kept); err != nil {
		_ = f.Close()
		return copied, fmt.Errorf("write labels: %w", err)
	}
	if err := f.Close(); err != nil {
		return copied, err
	}
	l.Info("dataset curated", slog.Int("images", copied), slog.Int("excluded", len(names)), slog.String("out", outDir))
	return copied, nil
}

func readCurrentLabels(dir string) ([]export.Label, error) {
	f, err := os.Open(filepath.Join(dir, export.UpdatedLabelsFileName))
	if errors.Is(err, os.ErrNotExist) {
		f, err = os.Open(filepath.Join(dir, export.LabelsFileName))
	}
	if err != nil {
		return nil, fmt.Errorf("not a dataset: %w", err)
	}
	defer f.Close()
	return export.ReadLabels(f)
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = io.Copy(out, in)
	return err
}
