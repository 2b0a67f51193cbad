// Package chart renders correlation heatmaps and pair plots as PNG images.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/KaramelBytes/featprune-cli/internal/prune"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// DefaultDPI matches the resolution of the published heatmaps.
const DefaultDPI = 150

// HeatmapOptions controls heatmap rendering.
type HeatmapOptions struct {
	Title string
	// Annotate prints each visible coefficient inside its cell.
	Annotate bool
	// Width and Height default to a size derived from the column count.
	Width, Height vg.Length
	DPI           int
}

// corrGrid exposes the strict lower triangle of a correlation matrix as a
// plotter.GridXYZ. Grid row 0 is the bottom of the plot, so matrix rows are
// flipped to put the first column on top.
type corrGrid struct {
	vals [][]float64
}

func (g corrGrid) Dims() (c, r int) { return len(g.vals), len(g.vals) }

func (g corrGrid) Z(c, r int) float64 {
	i := len(g.vals) - 1 - r
	if c >= i {
		return math.NaN()
	}
	return g.vals[i][c]
}

func (g corrGrid) X(c int) float64 { return float64(c) }
func (g corrGrid) Y(r int) float64 { return float64(r) }
func (g corrGrid) Min() float64    { return -1 }
func (g corrGrid) Max() float64    { return 1 }

// RenderHeatmap draws the signed correlation matrix m with a diverging
// palette fixed to [-1, 1], masking the diagonal and upper triangle, and
// returns the PNG bytes.
func RenderHeatmap(m *prune.CorrMatrix, opt HeatmapOptions) ([]byte, error) {
	n := len(m.Columns)
	if n == 0 {
		return nil, errors.New("heatmap: no columns to plot")
	}
	w, h := opt.Width, opt.Height
	if w == 0 || h == 0 {
		w, h = heatmapSize(n)
	}
	dpi := opt.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}

	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(-1)
	cmap.SetMax(1)

	grid := corrGrid{vals: m.Values}
	hm := plotter.NewHeatMap(grid, cmap.Palette(255))

	p := plot.New()
	p.Title.Text = opt.Title
	p.Add(hm)

	yNames := make([]string, n)
	for r := range yNames {
		yNames[r] = m.Columns[n-1-r]
	}
	p.NominalX(m.Columns...)
	p.NominalY(yNames...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
	p.X.Padding = 0
	p.Y.Padding = 0

	if opt.Annotate {
		var labels plotter.XYLabels
		for c := 0; c < n; c++ {
			for r := 0; r < n; r++ {
				v := grid.Z(c, r)
				if math.IsNaN(v) {
					continue
				}
				labels.XYs = append(labels.XYs, plotter.XY{X: float64(c), Y: float64(r)})
				labels.Labels = append(labels.Labels, fmt.Sprintf("%.2f", v))
			}
		}
		if len(labels.XYs) > 0 {
			l, err := plotter.NewLabels(labels)
			if err != nil {
				return nil, fmt.Errorf("heatmap labels: %w", err)
			}
			for i := range l.TextStyle {
				l.TextStyle[i].XAlign = draw.XCenter
				l.TextStyle[i].YAlign = draw.YCenter
				l.TextStyle[i].Font.Size = vg.Points(7)
			}
			p.Add(l)
		}
	}

	bar := plot.New()
	bar.HideX()
	bar.Y.Label.Text = "Pearson r"
	bar.Add(&plotter.ColorBar{ColorMap: cmap, Vertical: true})

	img := vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(dpi))
	dc := draw.New(img)
	barWidth := vg.Inch
	p.Draw(draw.Crop(dc, 0, -barWidth-vg.Points(10), 0, 0))
	bar.Draw(draw.Crop(dc, w-barWidth, 0, h/5, -h/5))

	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// heatmapSize scales the figure with the number of columns, never smaller
// than 12x10 inches nor larger than 28x24.
func heatmapSize(n int) (vg.Length, vg.Length) {
	w := math.Min(28, math.Max(12, float64(n)*0.55))
	h := math.Min(24, math.Max(10, float64(n)*0.5))
	return vg.Length(w) * vg.Inch, vg.Length(h) * vg.Inch
}
