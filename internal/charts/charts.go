// Package charts renders the dashboard figures as PNG images. Every function
// is stateless: it draws exactly the data and UI selection it is given.
package charts

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/conorfennell/casevote/internal/domain"
	"github.com/conorfennell/casevote/internal/prep"
	"github.com/conorfennell/casevote/internal/regress"
)

// ErrNoData is returned when a figure would be empty.
var ErrNoData = errors.New("no data to plot")

var (
	red  = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	blue = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	grey = color.RGBA{R: 200, G: 200, B: 200, A: 255}
)

// Default figure size.
var (
	Width  = 8 * vg.Inch
	Height = 5 * vg.Inch
)

// WinnerColor is the party color of a winner.
func WinnerColor(w domain.Winner) color.Color {
	if w == domain.Biden {
		return blue
	}
	return red
}

// Histogram draws how many states of each camp fall into every million-case
// bin at the snapshot date.
func Histogram(w io.Writer, rows []domain.JoinedRow, snapshotDate string) error {
	if len(rows) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = "The distribution of COVID across the states"
	p.X.Label.Text = fmt.Sprintf("Number of COVID cases on %s", snapshotDate)
	p.Y.Label.Text = "Count of states"

	trump := prep.CaseHistogram(rows, domain.Trump)
	biden := prep.CaseHistogram(rows, domain.Biden)

	labels := make([]string, len(trump))
	trumpValues := make(plotter.Values, len(trump))
	bidenValues := make(plotter.Values, len(biden))
	for i := range trump {
		labels[i] = fmt.Sprintf("%.0f-%.0fM", trump[i].Lower/1e6, trump[i].Upper/1e6)
		trumpValues[i] = float64(trump[i].Count)
		bidenValues[i] = float64(biden[i].Count)
	}

	barWidth := vg.Points(14)
	trumpBars, err := plotter.NewBarChart(trumpValues, barWidth)
	if err != nil {
		return err
	}
	trumpBars.Color = red
	trumpBars.LineStyle.Width = vg.Length(0)
	trumpBars.Offset = -barWidth / 2

	bidenBars, err := plotter.NewBarChart(bidenValues, barWidth)
	if err != nil {
		return err
	}
	bidenBars.Color = blue
	bidenBars.LineStyle.Width = vg.Length(0)
	bidenBars.Offset = barWidth / 2

	p.Add(trumpBars, bidenBars, plotter.NewGrid())
	p.Legend.Add("Republicans", trumpBars)
	p.Legend.Add("Democrats", bidenBars)
	p.Legend.Top = true
	p.NominalX(labels...)
	p.Y.Min = 0

	return save(p, w, Width, Height)
}

// Dynamics draws one frame of the animated deaths-versus-cases scatter. The
// axes are fixed so consecutive frames line up.
func Dynamics(w io.Writer, frame []domain.CaseRecord, date string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("The dynamics of COVID: %s", date)
	p.X.Label.Text = "deaths"
	p.Y.Label.Text = "cases"
	p.X.Scale = plot.LogScale{}
	p.Y.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}

	var points plotter.XYs
	for _, c := range frame {
		// Log axes cannot show zero.
		if c.Deaths < 1 || c.Cases < 1 {
			continue
		}
		points = append(points, plotter.XY{X: float64(c.Deaths), Y: float64(c.Cases)})
	}

	if len(points) > 0 {
		scatter, err := plotter.NewScatter(points)
		if err != nil {
			return err
		}
		scatter.GlyphStyle.Color = blue
		scatter.GlyphStyle.Radius = vg.Points(4)
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(scatter)
	}
	p.Add(plotter.NewGrid())

	p.X.Min, p.X.Max = 1, 1e6
	p.Y.Min, p.Y.Max = 1, 1e7+5e6

	return save(p, w, Width, Height)
}

// Scatter draws the relative Trump vote against the case ratio, colored by
// winner. With order 1 or 2 it overlays the least-squares trend of that order.
func Scatter(w io.Writer, rows []domain.JoinedRow, order int) error {
	var xs, ys []float64
	for _, r := range rows {
		if r.Finite() {
			xs = append(xs, r.RepDemRatio)
			ys = append(ys, r.RatioCases)
		}
	}
	if len(xs) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = "Hypothesis confirmation"
	p.X.Label.Text = "Number of people voted for Trump in 2020 (relatively)"
	p.Y.Label.Text = "Ratio of cases to population"

	for _, winner := range []domain.Winner{domain.Trump, domain.Biden} {
		var pts plotter.XYs
		for _, r := range prep.ByWinner(rows, winner) {
			if r.Finite() {
				pts = append(pts, plotter.XY{X: r.RepDemRatio, Y: r.RatioCases})
			}
		}
		if len(pts) == 0 {
			continue
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		s.GlyphStyle.Color = WinnerColor(winner)
		s.GlyphStyle.Radius = vg.Points(4)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(s)
		p.Legend.Add(string(winner), s)
	}

	if order == regress.Linear || order == regress.Quadratic {
		poly, err := regress.Fit(xs, ys, order)
		if err != nil {
			p.Title.Text = fmt.Sprintf("Regression (order %d): %v", order, err)
		} else {
			fn := plotter.NewFunction(poly.Eval)
			fn.XMin, fn.XMax = minMax(xs)
			fn.Samples = 100
			fn.Color = color.Black
			fn.Width = vg.Points(1.5)
			p.Add(fn)
			p.Title.Text = fmt.Sprintf("Regression (order %d, R² = %.3f)", order, regress.RSquared(poly, xs, ys))
		}
	}
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	return save(p, w, Width, Height)
}

func save(p *plot.Plot, w io.Writer, width, height vg.Length) error {
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write plot: %w", err)
	}
	return nil
}

func minMax(vs []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vs {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
