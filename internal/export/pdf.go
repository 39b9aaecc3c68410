/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"

	"comicsnet/internal/storage"
)

// Report is the content of the PDF frequency report.
type Report struct {
	Title  string
	Counts []storage.CharacterCount
	Runs   []storage.Run
	// Generated defaults to now.
	Generated time.Time
}

// Units are points (pt). Built-in Helvetica keeps text vector without embedding.
const (
	pageW      = 595.0 // A4
	pageH      = 842.0
	margin     = 48.0
	rowH       = 16.0
	nameColW   = 300.0
	countColW  = 60.0
	barMaxW    = pageW - 2*margin - nameColW - countColW - 8
	headerSize = 16.0
)

// WritePDFReport renders the report as a multi-page A4 PDF.
func WritePDFReport(w io.Writer, rep Report) error {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: pageW, Ht: pageH},
	})
	title := rep.Title
	if title == "" {
		title = "Cover character frequencies"
	}
	gen := rep.Generated
	if gen.IsZero() {
		gen = time.Now()
	}
	pdf.SetTitle(title, true)
	pdf.SetAuthor("comicsnet", false)
	pdf.SetAutoPageBreak(false, margin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	maxCount := 0
	for _, c := range rep.Counts {
		maxCount = max(maxCount, c.Issues)
	}

	y := 0.0
	newPage := func() {
		pdf.AddPage()
		y = margin
		pdf.SetFont("Helvetica", "B", headerSize)
		pdf.Text(margin, y, tr(title))
		y += headerSize + 4
		pdf.SetFont("Helvetica", "", 9)
		pdf.Text(margin, y, fmt.Sprintf("generated %s, %d characters", gen.UTC().Format(time.RFC3339), len(rep.Counts)))
		y += rowH
		pdf.SetDrawColor(0, 0, 0)
		pdf.SetLineWidth(0.5)
		pdf.Line(margin, y, pageW-margin, y)
		y += rowH
		pdf.SetFont("Helvetica", "", 10)
	}
	newPage()

	for _, r := range rep.Runs {
		if y > pageH-margin-rowH {
			newPage()
		}
		pdf.Text(margin, y, fmt.Sprintf("run %s: %d issues, %d parsed, %d absent, %d ambiguous, %d unclosed, %d teams",
			r.ID, r.Total, r.Parsed, r.Absent, r.Ambiguous, r.Dangling, r.Teams))
		y += rowH
	}
	if len(rep.Runs) > 0 {
		y += rowH / 2
	}

	pdf.SetFillColor(70, 110, 180)
	for _, c := range rep.Counts {
		if y > pageH-margin-rowH {
			newPage()
			pdf.SetFillColor(70, 110, 180)
		}
		pdf.Text(margin, y, tr(truncate(pdf, c.Character, nameColW-6)))
		pdf.Text(margin+nameColW, y, fmt.Sprintf("%d", c.Issues))
		if maxCount > 0 {
			bw := barMaxW * float64(c.Issues) / float64(maxCount)
			pdf.Rect(margin+nameColW+countColW, y-rowH+5, bw, rowH-6, "F")
		}
		y += rowH
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// WritePDFReportFile writes the report to path, creating its directory.
func WritePDFReportFile(path string, rep Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WritePDFReport(f, rep); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func truncate(pdf *gofpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > width {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}
