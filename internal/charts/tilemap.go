package charts

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg/draw"

	"github.com/conorfennell/casevote/internal/domain"
)

type tile struct{ col, row int }

// tiles places every state on a square grid that keeps its rough
// geographic neighbourhood.
var tiles = map[string]tile{
	"AK": {0, 0}, "ME": {11, 0},
	"VT": {10, 1}, "NH": {11, 1},
	"WA": {1, 2}, "ID": {2, 2}, "MT": {3, 2}, "ND": {4, 2}, "MN": {5, 2}, "IL": {6, 2},
	"WI": {7, 2}, "MI": {8, 2}, "NY": {9, 2}, "RI": {10, 2}, "MA": {11, 2},
	"OR": {1, 3}, "NV": {2, 3}, "WY": {3, 3}, "SD": {4, 3}, "IA": {5, 3}, "IN": {6, 3},
	"OH": {7, 3}, "PA": {8, 3}, "NJ": {9, 3}, "CT": {10, 3},
	"CA": {1, 4}, "UT": {2, 4}, "CO": {3, 4}, "NE": {4, 4}, "MO": {5, 4}, "KY": {6, 4},
	"WV": {7, 4}, "VA": {8, 4}, "MD": {9, 4}, "DE": {10, 4},
	"AZ": {2, 5}, "NM": {3, 5}, "KS": {4, 5}, "AR": {5, 5}, "TN": {6, 5}, "NC": {7, 5},
	"SC": {8, 5}, "DC": {9, 5},
	"OK": {4, 6}, "LA": {5, 6}, "MS": {6, 6}, "AL": {7, 6}, "GA": {8, 6},
	"HI": {0, 7}, "TX": {4, 7}, "FL": {9, 7},
	"PR": {10, 8},
}

const tileGap = 0.08

// CaseMap colors each state on a continuous blue to red scale by its ratio
// of cases to votes cast. States without a usable ratio stay grey.
func CaseMap(w io.Writer, rows []domain.JoinedRow, snapshotDate string) error {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, r := range rows {
		if r.Finite() {
			lo = math.Min(lo, r.RatioCases)
			hi = math.Max(hi, r.RatioCases)
		}
	}
	if math.IsInf(lo, 0) {
		return ErrNoData
	}

	fills := make(map[string]color.Color, len(rows))
	for _, r := range rows {
		if r.Finite() {
			fills[r.State] = blueRed(normalize(r.RatioCases, lo, hi))
		}
	}

	p, err := tileMap(fmt.Sprintf("Coronavirus situation on %s", snapshotDate), fills)
	if err != nil {
		return err
	}
	if err := addLegendSwatch(p, fmt.Sprintf("%.3f cases per vote", lo), blueRed(0)); err != nil {
		return err
	}
	if err := addLegendSwatch(p, fmt.Sprintf("%.3f cases per vote", hi), blueRed(1)); err != nil {
		return err
	}
	return save(p, w, Width, Height)
}

// ElectionMap colors each state by the 2020 winner.
func ElectionMap(w io.Writer, elections []domain.StateElectionSummary) error {
	if len(elections) == 0 {
		return ErrNoData
	}
	fills := make(map[string]color.Color, len(elections))
	for _, e := range elections {
		fills[e.State] = WinnerColor(e.Winner)
	}

	p, err := tileMap("President Elections 2020", fills)
	if err != nil {
		return err
	}
	if err := addLegendSwatch(p, string(domain.Trump), red); err != nil {
		return err
	}
	if err := addLegendSwatch(p, string(domain.Biden), blue); err != nil {
		return err
	}
	return save(p, w, Width, Height)
}

func tileMap(title string, fills map[string]color.Color) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.HideAxes()

	var centers plotter.XYs
	var labels []string
	for _, abbrev := range tileOrder() {
		t := tiles[abbrev]
		x, y := float64(t.col), -float64(t.row)
		poly, err := plotter.NewPolygon(square(x, y))
		if err != nil {
			return nil, err
		}
		fill, ok := fills[abbrev]
		if !ok {
			fill = grey
		}
		poly.Color = fill
		poly.LineStyle.Color = color.White
		p.Add(poly)

		centers = append(centers, plotter.XY{X: x + 0.5, Y: y + 0.5})
		labels = append(labels, abbrev)
	}

	names, err := plotter.NewLabels(plotter.XYLabels{XYs: centers, Labels: labels})
	if err != nil {
		return nil, err
	}
	for i := range names.TextStyle {
		names.TextStyle[i].XAlign = draw.XCenter
		names.TextStyle[i].YAlign = draw.YCenter
		names.TextStyle[i].Color = color.White
	}
	p.Add(names)

	p.X.Min, p.X.Max = -0.2, 12.2
	p.Y.Min, p.Y.Max = -8.2, 1.2
	p.Legend.Top = true
	p.Legend.Left = true
	return p, nil
}

func addLegendSwatch(p *plot.Plot, label string, c color.Color) error {
	poly, err := plotter.NewPolygon(square(0, 0))
	if err != nil {
		return err
	}
	poly.Color = c
	p.Legend.Add(label, poly)
	return nil
}

func square(x, y float64) plotter.XYs {
	return plotter.XYs{
		{X: x + tileGap, Y: y + tileGap},
		{X: x + 1 - tileGap, Y: y + tileGap},
		{X: x + 1 - tileGap, Y: y + 1 - tileGap},
		{X: x + tileGap, Y: y + 1 - tileGap},
	}
}

// tileOrder walks the grid row by row so rendering is deterministic.
func tileOrder() []string {
	var out []string
	for row := 0; row <= 8; row++ {
		for col := 0; col <= 11; col++ {
			for abbrev, t := range tiles {
				if t.row == row && t.col == col {
					out = append(out, abbrev)
				}
			}
		}
	}
	return out
}

func normalize(v, lo, hi float64) float64 {
	if hi == lo {
		return 0.5
	}
	return (v - lo) / (hi - lo)
}

// blueRed interpolates from pure blue at 0 to pure red at 1.
func blueRed(t float64) color.Color {
	t = math.Max(0, math.Min(1, t))
	return color.RGBA{R: uint8(math.Round(255 * t)), B: uint8(math.Round(255 * (1 - t))), A: 255}
}
