/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package dataset

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// SheetOptions controls ContactSheet. Zero values pick defaults.
type SheetOptions struct {
	Columns     int
	ThumbWidth  int
	ThumbHeight int
}

const captionLines = 2

// ContactSheet renders the dataset images as a captioned thumbnail grid so a
// labelling pass can be reviewed at a glance. Captions are the image labels
// in basicfont 7x13, clipped to the thumbnail width.
func ContactSheet(dir string, items []Item, path string, opt SheetOptions) error {
	if opt.Columns <= 0 {
		opt.Columns = 6
	}
	if opt.ThumbWidth <= 0 {
		opt.ThumbWidth = DefaultWidth / 4
	}
	if opt.ThumbHeight <= 0 {
		opt.ThumbHeight = DefaultHeight / 4
	}
	face := basicfont.Face7x13
	lineH := face.Metrics().Height.Ceil()
	cellW := opt.ThumbWidth + 8
	cellH := opt.ThumbHeight + captionLines*lineH + 8
	rows := (len(items) + opt.Columns - 1) / opt.Columns
	sheet := image.NewRGBA(image.Rect(0, 0, max(1, opt.Columns*cellW), max(1, rows*cellH)))
	draw.Draw(sheet, sheet.Bounds(), image.White, image.Point{}, draw.Src)

	d := &font.Drawer{Dst: sheet, Src: image.NewUniform(color.Black), Face: face}
	for i, it := range items {
		x := (i%opt.Columns)*cellW + 4
		y := (i/opt.Columns)*cellH + 4
		if img, err := decodeFile(filepath.Join(dir, ImagesDirName, it.ID)); err == nil {
			r := image.Rect(x, y, x+opt.ThumbWidth, y+opt.ThumbHeight)
			draw.ApproxBiLinear.Scale(sheet, r, img, img.Bounds(), draw.Over, nil)
		}
		caption := wrap(d, strings.Join(it.Labels, " | "), opt.ThumbWidth)
		for j, line := range caption {
			d.Dot = fixed.P(x, y+opt.ThumbHeight+(j+1)*lineH)
			d.DrawString(line)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, sheet); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode sheet: %w", err)
	}
	return f.Close()
}

// wrap breaks s into at most captionLines lines no wider than width pixels.
func wrap(d *font.Drawer, s string, width int) []string {
	var lines []string
	cur := ""
	for _, word := range strings.Fields(s) {
		next := word
		if cur != "" {
			next = cur + " " + word
		}
		if d.MeasureString(next).Ceil() <= width {
			cur = next
			continue
		}
		if cur != "" {
			lines = append(lines, cur)
		}
		cur = word
		if len(lines) == captionLines {
			break
		}
	}
	if cur != "" && len(lines) < captionLines {
		lines = append(lines, cur)
	}
	for i, l := range lines {
		for l != "" && d.MeasureString(l).Ceil() > width {
			l = l[:len(l)-1]
		}
		lines[i] = l
	}
	return lines
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}
