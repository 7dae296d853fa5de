// Package charts renders the dashboard figures as SVG.
package charts

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgsvg"

	"certdash/internal/domain"
)

var (
	MainColor = color.RGBA{R: 49, G: 130, B: 200, A: 255}
	SubColor  = color.RGBA{R: 150, G: 150, B: 150, A: 255}
)

const (
	timelineWidth  = 10 * vg.Inch
	timelineHeight = 6 * vg.Inch
	barsWidth      = 8 * vg.Inch
	barRowHeight   = 28
	barThickness   = 18
)

// WriteTimeline draws the cumulative count above the per-month count. Both
// panels share the month axis.
func WriteTimeline(w io.Writer, series []domain.MonthPoint) error {
	cumulative := plot.New()
	cumulative.Title.Text = "Cumulative certificates"
	cumulative.Title.TextStyle.Font.Size = vg.Points(14)
	cumulative.Y.Label.Text = "Total"

	monthly := plot.New()
	monthly.Title.Text = "Certificates per month"
	monthly.Title.TextStyle.Font.Size = vg.Points(14)
	monthly.Y.Label.Text = "Count"

	cum := make(plotter.XYs, len(series))
	mon := make(plotter.XYs, len(series))
	for i, p := range series {
		cum[i] = plotter.XY{X: float64(i), Y: float64(p.Cumulative)}
		mon[i] = plotter.XY{X: float64(i), Y: float64(p.Count)}
	}

	cumLine, err := plotter.NewLine(cum)
	if err != nil {
		return fmt.Errorf("cumulative line: %w", err)
	}
	cumLine.Color = MainColor
	cumLine.Width = vg.Points(2)

	monLine, monPoints, err := plotter.NewLinePoints(mon)
	if err != nil {
		return fmt.Errorf("monthly line: %w", err)
	}
	monLine.Color = SubColor
	monLine.Width = vg.Points(1.5)
	monPoints.Color = MainColor
	monPoints.Shape = draw.CircleGlyph{}
	monPoints.Radius = vg.Points(2)

	cumulative.Add(plotter.NewGrid(), cumLine)
	monthly.Add(plotter.NewGrid(), monLine, monPoints)

	months := yearTicks(series)
	for _, p := range []*plot.Plot{cumulative, monthly} {
		p.X.Tick.Marker = months
		p.Y.Tick.Marker = integerTicks{}
		p.Y.Min = 0
		p.X.Min = 0
		p.X.Max = math.Max(float64(len(series)-1), 1)
	}

	c := vgsvg.New(timelineWidth, timelineHeight)
	dc := draw.New(c)
	tiles := draw.Tiles{
		Rows:      2,
		Cols:      1,
		PadY:      vg.Points(12),
		PadTop:    vg.Points(4),
		PadBottom: vg.Points(4),
		PadLeft:   vg.Points(4),
		PadRight:  vg.Points(12),
	}
	canvases := plot.Align([][]*plot.Plot{{cumulative}, {monthly}}, tiles, dc)
	cumulative.Draw(canvases[0][0])
	monthly.Draw(canvases[1][0])

	if _, err := c.WriteTo(w); err != nil {
		return fmt.Errorf("write timeline svg: %w", err)
	}
	return nil
}

// WriteCategories draws one horizontal bar per category in the given order,
// bottom to top, each labeled with its count.
func WriteCategories(w io.Writer, title string, groups []domain.CategoryCount) error {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = "Certificates"
	p.X.Tick.Marker = integerTicks{}
	p.X.Min = 0

	names := make([]string, len(groups))
	xys := make(plotter.XYs, len(groups))
	counts := make([]string, len(groups))
	maxCount := 0
	for i, g := range groups {
		bar, err := plotter.NewBarChart(plotter.Values{float64(g.Count)}, vg.Points(barThickness))
		if err != nil {
			return fmt.Errorf("bar %q: %w", g.Label, err)
		}
		bar.Horizontal = true
		bar.XMin = float64(i)
		bar.Color = barColor(g)
		bar.LineStyle.Width = vg.Length(0)
		p.Add(bar)

		names[i] = g.Label
		xys[i] = plotter.XY{X: float64(g.Count), Y: float64(i)}
		counts[i] = strconv.Itoa(g.Count)
		if g.Count > maxCount {
			maxCount = g.Count
		}
	}

	if len(groups) > 0 {
		p.NominalY(names...)

		labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: counts})
		if err != nil {
			return fmt.Errorf("bar labels: %w", err)
		}
		labels.Offset = vg.Point{X: vg.Points(4)}
		for i := range labels.TextStyle {
			labels.TextStyle[i].YAlign = draw.YCenter
		}
		p.Add(labels)
		// Room for the count labels past the longest bar.
		p.X.Max = math.Ceil(float64(maxCount)*1.15) + 1
	}

	wt, err := p.WriterTo(barsWidth, categoriesHeight(len(groups)), "svg")
	if err != nil {
		return fmt.Errorf("render %s: %w", title, err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write %s svg: %w", title, err)
	}
	return nil
}

func barColor(g domain.CategoryCount) color.Color {
	if g.Major {
		return MainColor
	}
	return SubColor
}

func categoriesHeight(n int) vg.Length {
	h := vg.Length(n)*vg.Points(barRowHeight) + vg.Inch
	if h < 3*vg.Inch {
		return 3 * vg.Inch
	}
	return h
}

// yearTicks marks every month and labels each January with its year. A
// series without a January labels its first month instead.
func yearTicks(series []domain.MonthPoint) plot.Ticker {
	return plot.TickerFunc(func(min, max float64) []plot.Tick {
		var ticks []plot.Tick
		labeled := false
		for i, p := range series {
			v := float64(i)
			if v < min || v > max {
				continue
			}
			t := plot.Tick{Value: v}
			if p.Month.Month() == time.January {
				t.Label = strconv.Itoa(p.Month.Year())
				labeled = true
			}
			ticks = append(ticks, t)
		}
		if !labeled && len(ticks) > 0 {
			ticks[0].Label = series[int(ticks[0].Value)].Month.Format("Jan 2006")
		}
		return ticks
	})
}

// integerTicks drops the fractional ticks the default ticker produces for
// small ranges; counts are whole numbers.
type integerTicks struct{}

func (integerTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	for _, t := range (plot.DefaultTicks{}).Ticks(min, max) {
		if t.Value != math.Trunc(t.Value) {
			continue
		}
		ticks = append(ticks, t)
	}
	return ticks
}
