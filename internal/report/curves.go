// Package report renders epidemic curves and run summaries.
package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/talgya/epicity/internal/engine"
)

// ErrTooShort is returned when a series has fewer than two recorded ticks.
var ErrTooShort = errors.New("series too short to plot")

// Chart dimensions in pixels.
const (
	ChartWidth  = 900
	ChartHeight = 420
)

var (
	colorSusceptible = drawing.Color{R: 31, G: 119, B: 180, A: 255}
	colorInfected    = chart.ColorRed
	colorRemoved     = chart.ColorGreen
	colorQuarantined = drawing.Color{R: 255, G: 165, B: 0, A: 255}
)

// RenderCurves writes a PNG of the S, I, R and quarantined counts of s.
func RenderCurves(w io.Writer, s *engine.Series) error {
	if len(s.Ticks) < 2 {
		return fmt.Errorf("%s: %w", s.Name, ErrTooShort)
	}

	xs := make([]float64, len(s.Ticks))
	sus := make([]float64, len(s.Ticks))
	inf := make([]float64, len(s.Ticks))
	rem := make([]float64, len(s.Ticks))
	qua := make([]float64, len(s.Ticks))
	for i, st := range s.States {
		xs[i] = float64(s.Ticks[i])
		sus[i] = float64(st.Susceptible)
		inf[i] = float64(st.Infected)
		rem[i] = float64(st.Removed)
		qua[i] = float64(st.Quarantined)
	}

	graph := chart.Chart{
		Title:  s.Name,
		Width:  ChartWidth,
		Height: ChartHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  "timestep",
			Style: chart.Style{FontSize: 10.0},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%d", int(v.(float64)))
			},
		},
		YAxis: chart.YAxis{
			Name:  "agents",
			Style: chart.Style{FontSize: 10.0},
			Range: &chart.ContinuousRange{Min: 0, Max: float64(s.N)},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%d", int(v.(float64)))
			},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Susceptible",
				XValues: xs,
				YValues: sus,
				Style:   chart.Style{StrokeColor: colorSusceptible, StrokeWidth: 3.0},
			},
			chart.ContinuousSeries{
				Name:    "Infected",
				XValues: xs,
				YValues: inf,
				Style:   chart.Style{StrokeColor: colorInfected, StrokeWidth: 3.0},
			},
			chart.ContinuousSeries{
				Name:    "Removed",
				XValues: xs,
				YValues: rem,
				Style:   chart.Style{StrokeColor: colorRemoved, StrokeWidth: 3.0},
			},
			chart.ContinuousSeries{
				Name:    "Quarantined",
				XValues: xs,
				YValues: qua,
				Style:   chart.Style{StrokeColor: colorQuarantined, StrokeWidth: 2.0, StrokeDashArray: []float64{5, 5}},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render %s: %w", s.Name, err)
	}
	return nil
}

// SaveCurves renders s into dir and returns the file path.
func SaveCurves(dir string, s *engine.Series) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, FileName(s.Name))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := RenderCurves(f, s); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	return path, f.Close()
}

// FileName turns a city name into a chart file name.
func FileName(name string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, name)
	return slug + ".png"
}
