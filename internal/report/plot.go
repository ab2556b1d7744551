// Copyright ©2021 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"errors"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/kortschak/goldwasher/internal/enrich"
)

// PlotEnrichment writes a horizontal bar chart of -log10(p) for rows to
// the PNG file at path. Rows are drawn top to bottom in order.
func PlotEnrichment(path, title string, rows []enrich.Row) error {
	if len(rows) == 0 {
		return errors.New("no rows to plot")
	}
	n := len(rows)
	values := make(plotter.Values, n)
	names := make([]string, n)
	for i, r := range rows {
		// Nominal axes start at the bottom.
		j := n - 1 - i
		values[j] = -math.Log10(math.Max(r.P, math.SmallestNonzeroFloat64))
		names[j] = r.ID
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "-log10(p)"
	p.X.Min = 0

	bars, err := plotter.NewBarChart(values, 10*vg.Points(1))
	if err != nil {
		return err
	}
	bars.Horizontal = true
	bars.Color = color.RGBA{R: 102, G: 153, B: 255, A: 255}
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalY(names...)

	err = os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return err
	}
	height := vg.Length(n)*14*vg.Points(1) + 4*vg.Centimeter
	return p.Save(18*vg.Centimeter, height, path)
}
