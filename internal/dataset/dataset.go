/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package dataset builds labelled image datasets of comic covers: covers are
// sampled per requested character, labelled with every requested character
// they show, resized and written next to a labels.txt file.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"maps"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"comicsnet/internal/domain"
	"comicsnet/internal/export"
	applog "comicsnet/internal/log"
)

const (
	DefaultWidth  = 400
	DefaultHeight = 600
	ImagesDirName = "images"
)

// ErrNoCharacters is returned for a request without characters.
var ErrNoCharacters = errors.New("dataset: no characters requested")

// ErrUnreadableCover wraps decode failures of a source cover: unknown format,
// corrupt or truncated data. Build skips such covers like missing ones.
var ErrUnreadableCover = errors.New("unreadable cover image")

// Want asks for up to N covers showing Character.
type Want struct {
	Character string
	N         int
}

// Request describes a dataset build.
type Request struct {
	Wants []Want
	// CoverRoot resolves relative save_to paths of the metadata log.
	CoverRoot string
	OutDir    string
	Width     int
	Height    int
	Seed      int64
	Workers   int
}

// Item is one cover of the dataset.
type Item struct {
	ID     string
	Source string
	Labels []string
}

// Manifest reports what a build wrote.
type Manifest struct {
	Items []Item
	// Sampled counts covers drawn before de-duplication.
	Sampled int
	// Missing lists source images that could not be read.
	Missing []string
}

// Candidate is one cover image with the aliases of its issue.
type Candidate struct {
	ID      string
	Source  string
	Aliases []string
}

// Build samples, labels and writes the dataset described by req.
func Build(ctx context.Context, issues []domain.Issue, req Request) (Manifest, error) {
	if len(req.Wants) == 0 {
		return Manifest{}, ErrNoCharacters
	}
	if req.Width <= 0 {
		req.Width = DefaultWidth
	}
	if req.Height <= 0 {
		req.Height = DefaultHeight
	}
	l := applog.WithOperation(applog.WithComponent("dataset"), "build").With(slog.String("out", req.OutDir))

	items, sampled := Sample(Covers(issues), req.Wants, req.Seed)
	l.Info("covers sampled", slog.Int("sampled", sampled), slog.Int("unique", len(items)))

	imgDir := filepath.Join(req.OutDir, ImagesDirName)
	if err := os.MkdirAll(imgDir, 0o755); err != nil {
		return Manifest{}, fmt.Errorf("create images dir: %w", err)
	}

	workers := req.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	written := make([]bool, len(items))
	var (
		mu      sync.Mutex
		missing []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src := items[i].Source
			if req.CoverRoot != "" && !filepath.IsAbs(src) {
				src = filepath.Join(req.CoverRoot, src)
			}
			err := resizeFile(src, filepath.Join(imgDir, items[i].ID), req.Width, req.Height)
			switch {
			case err == nil:
				written[i] = true
			case errors.Is(err, os.ErrNotExist) || errors.Is(err, ErrUnreadableCover):
				l.Warn("cover skipped", slog.String("src", src), slog.Any("err", err))
				mu.Lock()
				missing = append(missing, src)
				mu.Unlock()
			default:
				return fmt.Errorf("%s: %w", items[i].ID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Manifest{}, err
	}

	m := Manifest{Sampled: sampled, Missing: missing}
	labels := make([]export.Label, 0, len(items))
	for i, it := range items {
		if !written[i] {
			continue
		}
		m.Items = append(m.Items, it)
		labels = append(labels, export.Label{Name: it.ID, Labels: it.Labels})
	}
	f, err := os.Create(filepath.Join(req.OutDir, export.LabelsFileName))
	if err != nil {
		return m, err
	}
	if err := export.WriteLabels(f, labels); err != nil {
		_ = f.Close()
		return m, fmt.Errorf("write labels: %w", err)
	}
	if err := f.Close(); err != nil {
		return m, err
	}
	l.Info("dataset written", slog.Int("images", len(m.Items)), slog.Int("missing", len(missing)))
	return m, nil
}

// Covers flattens issues into cover images. Every saved cover variant is a
// candidate carrying the aliases of its issue; issues without any saved cover
// fall back to Issue.SaveTo. Issues without a saved image are skipped.
func Covers(issues []domain.Issue) []Candidate {
	var out []Candidate
	for _, is := range issues {
		n := len(out)
		for _, v := range slices.Sorted(maps.Keys(is.Covers)) {
			if c := is.Covers[v]; c.SaveTo != "" {
				out = append(out, newCover(c.SaveTo, is.CharacterAliases))
			}
		}
		if len(out) == n && is.SaveTo != "" {
			out = append(out, newCover(is.SaveTo, is.CharacterAliases))
		}
	}
	return out
}

func newCover(saveTo string, aliases []string) Candidate {
	id := strings.ReplaceAll(filepath.Base(saveTo), "\t", " ")
	return Candidate{ID: id, Source: saveTo, Aliases: aliases}
}

// Sample draws up to N covers per want with a seeded shuffle, labels each with
// the requested characters it shows and drops repeated image ids. It returns the
// items in shuffled order and the number drawn before de-duplication.
func Sample(covers []Candidate, wants []Want, seed int64) ([]Item, int) {
	rng := rand.New(rand.NewSource(seed))
	var drawn []Item
	for _, w := range wants {
		var pool []Candidate
		for _, c := range covers {
			if hasAlias(c.Aliases, w.Character) {
				pool = append(pool, c)
			}
		}
		rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		for _, c := range pool[:min(w.N, len(pool))] {
			drawn = append(drawn, Item{ID: c.ID, Source: c.Source, Labels: labelsFor(c.Aliases, wants)})
		}
	}
	seen := make(map[string]struct{}, len(drawn))
	items := make([]Item, 0, len(drawn))
	for _, it := range drawn {
		if _, dup := seen[it.ID]; dup {
			continue
		}
		seen[it.ID] = struct{}{}
		items = append(items, it)
	}
	rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
	return items, len(drawn)
}

func labelsFor(aliases []string, wants []Want) []string {
	var out []string
	for _, w := range wants {
		if hasAlias(aliases, w.Character) {
			out = append(out, w.Character)
		}
	}
	return out
}

func hasAlias(aliases []string, a string) bool {
	for _, x := range aliases {
		if x == a {
			return true
		}
	}
	return false
}

// resizeFile decodes src, scales it to w x h and writes it as JPEG to dst.
func resizeFile(src, dst string, w, h int) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	img, _, err := image.Decode(in)
	_ = in.Close()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreadableCover, err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(out, Resize(img, w, h), &jpeg.Options{Quality: 90}); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// Resize scales img to exactly w x h.
func Resize(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}
