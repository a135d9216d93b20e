package charts

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/conorfennell/casevote/internal/domain"
)

// dateTicks labels an index axis with the dates it stands for.
type dateTicks []string

func (d dateTicks) Ticks(min, max float64) []plot.Tick {
	const labels = 6
	if len(d) == 0 {
		return nil
	}
	step := len(d) / labels
	if step < 1 {
		step = 1
	}
	var ticks []plot.Tick
	for i := 0; i < len(d); i += step {
		if float64(i) < min || float64(i) > max {
			continue
		}
		ticks = append(ticks, plot.Tick{Value: float64(i), Label: d[i]})
	}
	return ticks
}

// TimeSeries draws the cumulative case count of one state above its daily
// deaths, sharing the date axis.
func TimeSeries(w io.Writer, name string, series []domain.SeriesPoint) error {
	if len(series) == 0 {
		return ErrNoData
	}

	dates := make(dateTicks, len(series))
	cumulative := make(plotter.XYs, len(series))
	daily := make(plotter.Values, len(series))
	var maxDaily float64
	for i, pt := range series {
		dates[i] = pt.Date
		cumulative[i] = plotter.XY{X: float64(i), Y: float64(pt.Cases)}
		daily[i] = float64(pt.DailyDeaths)
		if daily[i] > maxDaily {
			maxDaily = daily[i]
		}
	}

	top := plot.New()
	top.Title.Text = fmt.Sprintf("%s: cumulative number of cases", name)
	top.Y.Label.Text = "cases"
	line, err := plotter.NewLine(cumulative)
	if err != nil {
		return err
	}
	line.Color = blue
	line.Width = vg.Points(2)
	top.Add(line, plotter.NewGrid())
	top.X.Tick.Marker = dateTicks(make([]string, len(dates)))
	top.X.Min, top.X.Max = -0.5, float64(len(series))-0.5

	bottom := plot.New()
	bottom.Title.Text = "Number of deaths per day"
	bottom.Y.Label.Text = "deaths"
	bars, err := plotter.NewBarChart(daily, vg.Points(1))
	if err != nil {
		return err
	}
	bars.Color = red
	bars.LineStyle.Width = vg.Length(0)
	bottom.Add(bars, plotter.NewGrid())
	bottom.X.Tick.Marker = dates
	bottom.X.Min, bottom.X.Max = -0.5, float64(len(series))-0.5
	bottom.Y.Min = 0
	if maxDaily > 0 {
		bottom.Y.Max = maxDaily * 1.1
	}

	return saveStacked(w, []*plot.Plot{top, bottom}, Width, Height*1.4)
}

// saveStacked draws plots in one column with aligned axes.
func saveStacked(w io.Writer, plots []*plot.Plot, width, height vg.Length) error {
	grid := make([][]*plot.Plot, len(plots))
	for i, p := range plots {
		grid[i] = []*plot.Plot{p}
	}

	img := vgimg.New(width, height)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      len(plots),
		Cols:      1,
		PadX:      vg.Millimeter,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Points(4),
		PadBottom: vg.Points(4),
		PadLeft:   vg.Points(4),
		PadRight:  vg.Points(8),
	}

	canvases := plot.Align(grid, tiles, dc)
	for i := range grid {
		grid[i][0].Draw(canvases[i][0])
	}

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write plot: %w", err)
	}
	return nil
}
