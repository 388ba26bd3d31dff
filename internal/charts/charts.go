// Package charts renders aggregate series to PNG images.
package charts

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"trackify/internal/aggregate"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNoData is returned when a series has nothing to draw.
var ErrNoData = errors.New("no data to chart")

// Size is the pixel size of generated images.
type Size struct {
	Width  int
	Height int
}

// DefaultSize matches the dashboard canvas.
var DefaultSize = Size{Width: 800, Height: 500}

// Generator renders dashboard charts.
type Generator struct {
	size Size
}

// NewGenerator returns a Generator producing images of size.
func NewGenerator(size Size) *Generator {
	if size.Width <= 0 || size.Height <= 0 {
		size = DefaultSize
	}
	return &Generator{size: size}
}

// CategoryPie renders the monthly category breakdown as a pie chart, each
// slice in the colour assigned by the series.
func (g *Generator) CategoryPie(w io.Writer, title string, series aggregate.PieSeries) error {
	if series.Total() <= 0 {
		return ErrNoData
	}

	values := make([]chart.Value, 0, len(series.Labels))
	for i, label := range series.Labels {
		if series.Values[i] <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s: %.2f", label, series.Values[i]),
			Value: series.Values[i],
			Style: chart.Style{
				FillColor:   HSL(series.Hues[i], 0.7, 0.6),
				StrokeColor: chart.ColorWhite,
				StrokeWidth: 1,
			},
		})
	}

	pie := chart.PieChart{
		Title:  title,
		Width:  g.size.Width,
		Height: g.size.Height,
		Values: values,
		Background: chart.Style{
			Padding:   chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
			FillColor: chart.ColorWhite,
		},
	}
	return render(w, "category pie", pie.Render)
}

// MonthlyBars renders twelve monthly expense totals as a bar chart.
func (g *Generator) MonthlyBars(w io.Writer, title string, totals [12]float64) error {
	var sum float64
	for _, v := range totals {
		sum += v
	}
	if sum <= 0 {
		return ErrNoData
	}

	bars := make([]chart.Value, len(totals))
	for i, v := range totals {
		bars[i] = chart.Value{
			Label: aggregate.MonthLabels[i],
			Value: v,
			Style: chart.Style{
				FillColor:   HSL(210, 0.7, 0.6),
				StrokeColor: HSL(210, 0.7, 0.45),
				StrokeWidth: 1,
			},
		}
	}

	bar := chart.BarChart{
		Title:    title,
		Width:    g.size.Width,
		Height:   g.size.Height,
		BarWidth: g.size.Width / 20,
		Bars:     bars,
		Background: chart.Style{
			Padding:   chart.Box{Top: 40},
			FillColor: chart.ColorWhite,
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
	}
	return render(w, "monthly bars", bar.Render)
}

func render(w io.Writer, name string, fn func(chart.RendererProvider, io.Writer) error) error {
	buffer := bytes.NewBuffer(nil)
	if err := fn(chart.PNG, buffer); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := buffer.WriteTo(w)
	return err
}

// HSL converts a hue in degrees and saturation and lightness in [0,1] to an
// opaque colour.
func HSL(h, s, l float64) drawing.Color {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return drawing.Color{
		R: uint8(math.Round((r + m) * 255)),
		G: uint8(math.Round((g + m) * 255)),
		B: uint8(math.Round((b + m) * 255)),
		A: 255,
	}
}
