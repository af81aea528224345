// Package plotting renders equity and drawdown charts as PNG images.
package plotting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/vicanso/go-charts/v2"
)

// ErrNoData is returned when a chart has nothing to draw.
var ErrNoData = errors.New("no data to plot")

const (
	chartWidth  = 1200
	chartHeight = 600
	maxPoints   = 600 // longer series are downsampled by stride
)

// EquityChart renders one equity curve indexed by bar.
func EquityChart(title string, curve []float64) ([]byte, error) {
	if len(curve) == 0 {
		return nil, ErrNoData
	}
	return render(title, nil, [][]float64{curve})
}

// DrawdownChart renders the running drawdown in percent, measured from
// the higher of initialCapital and the running peak.
func DrawdownChart(title string, initialCapital float64, curve []float64) ([]byte, error) {
	if len(curve) == 0 {
		return nil, ErrNoData
	}
	return render(title, nil, [][]float64{DrawdownSeries(initialCapital, curve)})
}

// ComparisonChart renders several curves on a shared axis. names labels
// the legend and must match curves in length.
func ComparisonChart(title string, names []string, curves [][]float64) ([]byte, error) {
	if len(curves) == 0 {
		return nil, ErrNoData
	}
	if len(names) != len(curves) {
		return nil, fmt.Errorf("plot %q: %d names for %d curves", title, len(names), len(curves))
	}
	for _, c := range curves {
		if len(c) == 0 {
			return nil, ErrNoData
		}
	}
	return render(title, names, curves)
}

// DrawdownSeries returns (equity-peak)/peak*100 per bar.
func DrawdownSeries(initialCapital float64, curve []float64) []float64 {
	peak := initialCapital
	out := make([]float64, len(curve))
	for i, equity := range curve {
		if equity > peak {
			peak = equity
		}
		if peak != 0 {
			out[i] = (equity - peak) / peak * 100
		}
	}
	return out
}

// SaveEquityChart renders curve and writes it to path.
func SaveEquityChart(path, title string, curve []float64) error {
	png, err := EquityChart(title, curve)
	if err != nil {
		return err
	}
	return Save(path, png)
}

// Save writes PNG bytes to path, creating parent directories.
func Save(path string, png []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func render(title string, names []string, curves [][]float64) ([]byte, error) {
	longest := 0
	for _, c := range curves {
		longest = max(longest, len(c))
	}
	stride := 1
	if longest > maxPoints {
		stride = (longest + maxPoints - 1) / maxPoints
	}

	values := make([][]float64, len(curves))
	yMin, yMax := curves[0][0], curves[0][0]
	for i, c := range curves {
		values[i] = downsample(c, stride)
		for _, v := range c {
			yMin = min(yMin, v)
			yMax = max(yMax, v)
		}
	}

	padding := (yMax - yMin) * 0.05
	if padding == 0 {
		padding = max(1, abs(yMax)*0.05)
	}
	yMin -= padding
	yMax += padding

	xLabels := make([]string, 0, len(values[0]))
	for i := 0; i < longest; i += stride {
		xLabels = append(xLabels, strconv.Itoa(i))
	}

	opts := []charts.OptionFunc{
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        xLabels,
			BoundaryGap: charts.FalseFlag(),
			SplitNumber: 6,
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(chartWidth),
		charts.HeightOptionFunc(chartHeight),
	}
	if len(names) > 0 {
		opts = append(opts, charts.LegendOptionFunc(charts.LegendOption{
			Data: names,
			Top:  charts.PositionTop,
		}))
	}

	p, err := charts.LineRender(values, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	return buf, nil
}

func downsample(curve []float64, stride int) []float64 {
	if stride <= 1 {
		return curve
	}
	out := make([]float64, 0, len(curve)/stride+1)
	for i := 0; i < len(curve); i += stride {
		out = append(out, curve[i])
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
