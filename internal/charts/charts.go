// Package charts renders monthly statistics as PNG images.
package charts

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/hamyon/hamyon/internal/database"
	"github.com/hamyon/hamyon/internal/parser"
)

const (
	PieTitle = "Xarajatlar Kategoriyasi"
	BarTitle = "Kunlik Dinamika"
)

var ErrNoData = errors.New("no data to chart")

// Generator renders charts at a fixed size.
type Generator struct {
	Width  int
	Height int
}

func NewGenerator() *Generator {
	return &Generator{Width: 1024, Height: 640}
}

// CategoryPie draws the share of each category.
func (g *Generator) CategoryPie(totals []database.CategoryTotal) ([]byte, error) {
	var sum float64
	for _, c := range totals {
		sum += c.Total
	}
	if sum <= 0 {
		return nil, ErrNoData
	}

	values := make([]chart.Value, 0, len(totals))
	for _, c := range totals {
		if c.Total <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s %.1f%%", c.Category, c.Total/sum*100),
			Value: c.Total,
		})
	}

	pie := chart.PieChart{
		Title:  PieTitle,
		Width:  g.Width,
		Height: g.Height,
		Background: chart.Style{
			Padding:   chart.Box{Top: 60, Left: 20, Right: 20, Bottom: 20},
			FillColor: chart.ColorWhite,
		},
		Values: values,
	}

	return render(pie)
}

// DailyBars draws spending per day, labelled dd.mm.
func (g *Generator) DailyBars(totals []database.DailyTotal) ([]byte, error) {
	if len(totals) == 0 {
		return nil, ErrNoData
	}

	var peak float64
	bars := make([]chart.Value, 0, len(totals))
	for _, d := range totals {
		peak = math.Max(peak, d.Total)
		bars = append(bars, chart.Value{
			Label: d.Day.Format("02.01"),
			Value: d.Total,
		})
	}
	if peak <= 0 {
		return nil, ErrNoData
	}

	barWidth := (g.Width - 120) / len(bars) * 2 / 3
	barWidth = min(max(barWidth, 8), 60)

	bar := chart.BarChart{
		Title:  BarTitle,
		Width:  g.Width,
		Height: g.Height,
		Background: chart.Style{
			Padding:   chart.Box{Top: 60, Left: 20, Right: 20, Bottom: 20},
			FillColor: chart.ColorWhite,
		},
		BarWidth:   barWidth,
		BarSpacing: barWidth / 2,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: peak * 1.1},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return parser.FormatAmount(f)
				}
				return ""
			},
		},
		Bars: bars,
	}

	return render(bar)
}

type renderable interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

func render(c renderable) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf.Bytes(), nil
}
