package report

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/epicity/internal/city"
	"github.com/talgya/epicity/internal/engine"
)

func sampleSeries() *engine.Series {
	s := &engine.Series{Name: "City A", N: 10}
	s.Record(0, city.States{Susceptible: 9, Infected: 1, Total: 10, TotalIR: 1}, 0.1)
	s.Record(1, city.States{Susceptible: 6, Infected: 4, Quarantined: 1, Total: 10, TotalIR: 4}, 0.3)
	s.Record(2, city.States{Susceptible: 3, Infected: 5, Removed: 2, Quarantined: 2, Total: 10, TotalIR: 7}, 0.2)
	s.Record(3, city.States{Susceptible: 3, Infected: 1, Removed: 6, Total: 10, TotalIR: 7}, 0.0)
	return s
}

func TestRenderCurves_PNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderCurves(&buf, sampleSeries()))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, ChartWidth, img.Bounds().Dx())
	assert.Equal(t, ChartHeight, img.Bounds().Dy())
}

func TestRenderCurves_TooShort(t *testing.T) {
	s := &engine.Series{Name: "tiny", N: 2}
	s.Record(0, city.States{Susceptible: 1, Infected: 1, Total: 2, TotalIR: 1}, 0)
	err := RenderCurves(&bytes.Buffer{}, s)
	assert.True(t, errors.Is(err, ErrTooShort))
}

func TestSaveCurves(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "charts")
	path, err := SaveCurves(dir, sampleSeries())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "city_a.png"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "city_b__quarantine_.png", FileName("City B (quarantine)"))
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, []*engine.Series{sampleSeries()}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "PEAK I")
	fields := strings.Fields(lines[1])
	assert.Equal(t, []string{"City", "A", "10", "4", "5", "2", "7", "70.0%", "-", "0.15000"}, fields)
}
