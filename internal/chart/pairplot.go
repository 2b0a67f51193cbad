package chart

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/KaramelBytes/featprune-cli/internal/analysis"
	"github.com/KaramelBytes/featprune-cli/internal/dataset"
	"github.com/schollz/progressbar/v3"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// PairPlotOptions controls pair plot rendering.
type PairPlotOptions struct {
	Title string
	// Size is the side of the square figure; defaults to 18 inches.
	Size vg.Length
	DPI  int
	// Progress receives a panel progress bar; nil renders silently.
	Progress io.Writer
}

const (
	pointAlpha  = 0.4
	kdePoints   = 100
	titleHeight = 0.5 * vg.Inch
)

// RenderPairPlot draws the lower triangle of a scatter matrix over features,
// coloured by the classes of hue, with per-class density curves on the
// diagonal. It returns the PNG bytes.
func RenderPairPlot(ds *dataset.Dataset, features []string, hue string, opt PairPlotOptions) ([]byte, error) {
	if len(features) == 0 {
		return nil, errors.New("pair plot: no features")
	}
	vals := make([][]float64, len(features))
	for i, f := range features {
		c, ok := ds.Column(f)
		if !ok {
			return nil, &dataset.DataError{Column: f, Reason: "column not found"}
		}
		if c.Kind != dataset.KindNumeric {
			return nil, &dataset.DataError{Column: f, Reason: "non-numeric column cannot be plotted"}
		}
		vals[i] = c.Values
	}
	hc, ok := ds.Column(hue)
	if !ok {
		return nil, &dataset.DataError{Column: hue, Reason: "hue column not found"}
	}
	groups := analysis.ClassGroups(hc)

	size := opt.Size
	if size == 0 {
		size = 18 * vg.Inch
	}
	dpi := opt.DPI
	if dpi <= 0 {
		dpi = 120
	}

	k := len(features)
	out := io.Discard
	if opt.Progress != nil {
		out = opt.Progress
	}
	bar := progressbar.NewOptions(k*(k+1)/2,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription("rendering pair plot"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
	)

	img := vgimg.NewWith(vgimg.UseWH(size, size), vgimg.UseDPI(dpi))
	dc := draw.New(img)
	if opt.Title != "" {
		dc.FillText(draw.TextStyle{
			Color:   color.Black,
			Font:    font.From(plot.DefaultFont, vg.Points(16)),
			XAlign:  draw.XCenter,
			YAlign:  draw.YTop,
			Handler: plot.DefaultTextHandler,
		}, vg.Point{X: size / 2, Y: size - vg.Points(4)}, opt.Title)
		dc = draw.Crop(dc, 0, 0, 0, -titleHeight)
	}
	tiles := draw.Tiles{
		Rows: k, Cols: k,
		PadX: vg.Points(4), PadY: vg.Points(4),
		PadTop: vg.Points(4), PadBottom: vg.Points(4),
		PadLeft: vg.Points(4), PadRight: vg.Points(4),
	}

	for i := 0; i < k; i++ {
		for j := 0; j <= i; j++ {
			var p *plot.Plot
			var err error
			if i == j {
				p, err = densityPanel(vals[i], groups, hc.Len())
			} else {
				p, err = scatterPanel(vals[j], vals[i], groups)
			}
			if err != nil {
				return nil, fmt.Errorf("pair plot panel %s/%s: %w", features[i], features[j], err)
			}
			if i == k-1 {
				p.X.Label.Text = features[j]
			}
			if j == 0 {
				p.Y.Label.Text = features[i]
			}
			p.Draw(tiles.At(dc, j, i))
			_ = bar.Add(1)
		}
	}
	if k > 1 && len(groups) > 0 {
		legend, err := legendPanel(groups, hue)
		if err != nil {
			return nil, err
		}
		legend.Draw(tiles.At(dc, k-1, 0))
	}
	_ = bar.Finish()

	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func classColor(k int, alpha float64) color.Color {
	r, g, b, _ := plotutil.Color(k).RGBA()
	return color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(alpha * 255)}
}

func scatterPanel(x, y []float64, groups []analysis.ClassGroup) (*plot.Plot, error) {
	p := plot.New()
	for k, g := range groups {
		pts := make(plotter.XYs, 0, len(g.Rows))
		for _, r := range g.Rows {
			if math.IsNaN(x[r]) || math.IsNaN(y[r]) || math.IsInf(x[r], 0) || math.IsInf(y[r], 0) {
				continue
			}
			pts = append(pts, plotter.XY{X: x[r], Y: y[r]})
		}
		if len(pts) == 0 {
			continue
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, err
		}
		s.GlyphStyle.Color = classColor(k, pointAlpha)
		s.GlyphStyle.Radius = vg.Points(1.5)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(s)
	}
	return p, nil
}

// densityPanel overlays one Gaussian KDE per class. Each curve is scaled by
// the class share of all labelled rows so the areas sum to one.
func densityPanel(x []float64, groups []analysis.ClassGroup, total int) (*plot.Plot, error) {
	p := plot.New()
	var labelled int
	for _, g := range groups {
		labelled += len(g.Rows)
	}
	if labelled == 0 {
		labelled = total
	}
	for k, g := range groups {
		sample := make([]float64, 0, len(g.Rows))
		for _, r := range g.Rows {
			if !math.IsNaN(x[r]) && !math.IsInf(x[r], 0) {
				sample = append(sample, x[r])
			}
		}
		curve := kde(sample, float64(len(sample))/float64(labelled))
		if curve == nil {
			continue
		}
		l, err := plotter.NewLine(curve)
		if err != nil {
			return nil, err
		}
		l.LineStyle.Color = classColor(k, 1)
		l.LineStyle.Width = vg.Points(1.2)
		p.Add(l)
	}
	return p, nil
}

// kde evaluates a Gaussian kernel density estimate with Scott's bandwidth
// over the sample range padded by three bandwidths. It returns nil when the
// sample has fewer than two points or no spread.
func kde(sample []float64, weight float64) plotter.XYs {
	n := len(sample)
	if n < 2 {
		return nil
	}
	_, sd := stat.MeanStdDev(sample, nil)
	if sd == 0 || math.IsNaN(sd) {
		return nil
	}
	bw := sd * math.Pow(float64(n), -1.0/5.0)
	lo, hi := sample[0], sample[0]
	for _, v := range sample {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	lo -= 3 * bw
	hi += 3 * bw
	step := (hi - lo) / float64(kdePoints-1)
	norm := weight / (float64(n) * bw * math.Sqrt(2*math.Pi))

	pts := make(plotter.XYs, kdePoints)
	for i := range pts {
		at := lo + float64(i)*step
		var sum float64
		for _, v := range sample {
			z := (at - v) / bw
			sum += math.Exp(-0.5 * z * z)
		}
		pts[i] = plotter.XY{X: at, Y: sum * norm}
	}
	return pts
}

func legendPanel(groups []analysis.ClassGroup, hue string) (*plot.Plot, error) {
	p := plot.New()
	p.HideAxes()
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.Add(hue)
	for k, g := range groups {
		s, err := plotter.NewScatter(plotter.XYs{})
		if err != nil {
			return nil, err
		}
		s.GlyphStyle.Color = classColor(k, 1)
		s.GlyphStyle.Radius = vg.Points(3)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Legend.Add(g.Key, s)
	}
	return p, nil
}
