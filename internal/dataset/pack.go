/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package dataset

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"comicsnet/internal/export"
	applog "comicsnet/internal/log"
)

// ManifestFileName is the human-readable note at the root of a dataset archive.
const ManifestFileName = "dataset.manifest.txt"

// Pack zips a dataset directory: the labels files and the images directory.
// Paths inside the archive are relative to dir and use forward slashes.
// It returns the number of files added, not counting the manifest.
func Pack(dir, zipPath string) (n int, err error) {
	l := applog.WithOperation(applog.WithComponent("dataset"), "pack").With(slog.String("dir", dir))
	if strings.TrimSpace(dir) == "" || strings.TrimSpace(zipPath) == "" {
		return 0, errors.New("dataset dir and zip path are required")
	}
	if _, err := os.Stat(filepath.Join(dir, export.LabelsFileName)); err != nil {
		return 0, fmt.Errorf("not a dataset: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(zipPath), 0o755); err != nil {
		return 0, fmt.Errorf("ensure zip dir: %w", err)
	}
	_ = os.Remove(zipPath)

	zf, err := os.Create(zipPath)
	if err != nil {
		return 0, fmt.Errorf("create zip: %w", err)
	}
	defer func() {
		if cerr := zf.Close(); err == nil {
			err = cerr
		}
	}()
	zw := zip.NewWriter(zf)
	defer func() {
		if cerr := zw.Close(); err == nil {
			err = cerr
		}
	}()

	w, err := zw.Create(ManifestFileName)
	if err != nil {
		return 0, fmt.Errorf("add manifest: %w", err)
	}
	if _, err := fmt.Fprintf(w, "comicsnet cover dataset\nCreated: %s\n\n%s lists one image per line: name<TAB>characters separated by |.\n",
		time.Now().Format(time.RFC3339), export.LabelsFileName); err != nil {
		return 0, fmt.Errorf("write manifest: %w", err)
	}

	add := func(path string) error {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		fw, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := io.Copy(fw, f); err != nil {
			return err
		}
		n++
		return nil
	}
	for _, name := range []string{export.LabelsFileName, export.UpdatedLabelsFileName} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := add(p); err != nil {
			return n, fmt.Errorf("add %s: %w", name, err)
		}
	}
	err = filepath.WalkDir(filepath.Join(dir, ImagesDirName), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		return add(path)
	})
	if err != nil {
		l.Error("zip build failed", slog.Any("err", err))
		return n, fmt.Errorf("build zip: %w", err)
	}
	l.Info("dataset packed", slog.Int("files", n), slog.String("zip", zipPath))
	return n, nil
}

// Unpack extracts a dataset archive into dir. Existing files are kept and
// skipped; entries that would escape dir are rejected. It returns the number
// of files written.
func Unpack(zipPath, dir string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("dataset"), "unpack").With(slog.String("dir", dir))
	if strings.TrimSpace(dir) == "" || strings.TrimSpace(zipPath) == "" {
		return 0, errors.New("dataset dir and zip path are required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("ensure dataset dir: %w", err)
	}
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return 0, fmt.Errorf("open archive: %w", err)
	}
	defer r.Close()

	installed := 0
	for _, f := range r.File {
		if f.Name == ManifestFileName || f.FileInfo().IsDir() {
			continue
		}
		if !filepath.IsLocal(filepath.FromSlash(f.Name)) {
			return installed, fmt.Errorf("archive entry %q escapes the dataset dir", f.Name)
		}
		target := filepath.Join(dir, filepath.FromSlash(f.Name))
		if _, err := os.Stat(target); err == nil {
			l.Warn("skip existing file", slog.String("path", target))
			continue
		}
		if err := extract(f, target); err != nil {
			return installed, err
		}
		installed++
	}
	l.Info("dataset unpacked", slog.Int("files", installed))
	return installed, nil
}

func extract(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
