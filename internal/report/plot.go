package report

import (
	"bytes"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ImportanceChart renders importances as a PNG bar chart.
func ImportanceChart(title string, imps []Importance) ([]byte, error) {
	if len(imps) == 0 {
		return nil, fmt.Errorf("report: no importances to plot")
	}
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Importance"

	values := make(plotter.Values, len(imps))
	names := make([]string, len(imps))
	for i, imp := range imps {
		values[i] = imp.Importance
		names[i] = imp.Feature
	}

	bars, err := plotter.NewBarChart(values, vg.Points(18))
	if err != nil {
		return nil, fmt.Errorf("report: bar chart: %w", err)
	}
	bars.Color = color.RGBA{R: 50, G: 90, B: 200, A: 255}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = 0.8

	w, err := p.WriterTo(8*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return nil, fmt.Errorf("report: render: %w", err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("report: render: %w", err)
	}
	return buf.Bytes(), nil
}
