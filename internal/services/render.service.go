package services

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Shivendrahari/SignalSync/internal/models"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	defaultChartWidth  = 1200
	defaultChartHeight = 600
	maxTimeTicks       = 12
)

// Rasterizer turns a chart model into a bitmap
type Rasterizer interface {
	Rasterize(chart models.ChartModel) (image.Image, error)
}

// ChartRasterizer draws chart models with go-chart
type ChartRasterizer struct {
	Width    int
	Height   int
	Location *time.Location
}

// NewChartRasterizer creates a rasterizer labelling time ticks in loc
func NewChartRasterizer(loc *time.Location) *ChartRasterizer {
	if loc == nil {
		loc = time.Local
	}
	return &ChartRasterizer{
		Width:    defaultChartWidth,
		Height:   defaultChartHeight,
		Location: loc,
	}
}

// Rasterize draws one line per dataset plus the dashed threshold line. A
// chart without any points becomes a titled placeholder canvas.
func (cr *ChartRasterizer) Rasterize(cm models.ChartModel) (image.Image, error) {
	var series []chart.Series
	var minT, maxT time.Time
	minY, maxY := 0.0, 0.0

	for _, ds := range cm.Datasets {
		if len(ds.Points) == 0 {
			continue
		}
		xs := make([]time.Time, 0, len(ds.Points)+1)
		ys := make([]float64, 0, len(ds.Points)+1)
		for _, p := range ds.Points {
			xs = append(xs, p.X)
			ys = append(ys, p.Y)
			if minT.IsZero() || p.X.Before(minT) {
				minT = p.X
			}
			if maxT.IsZero() || p.X.After(maxT) {
				maxT = p.X
			}
			minY = math.Min(minY, p.Y)
			maxY = math.Max(maxY, p.Y)
		}
		// a single point has no x extent; stretch it so the line is visible
		if len(xs) == 1 {
			xs = append(xs, xs[0].Add(time.Minute))
			ys = append(ys, ys[0])
		}
		series = append(series, chart.TimeSeries{
			Name:    ds.Label,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: hexColor(ds.BorderColor),
				StrokeWidth: 2,
			},
		})
	}

	if len(series) == 0 {
		return cr.placeholder(cm.Title, "No data for the selected devices"), nil
	}
	if !maxT.After(minT) {
		maxT = minT.Add(time.Minute)
	}

	th := cm.Threshold
	series = append(series, chart.TimeSeries{
		Name:    th.Label,
		XValues: []time.Time{minT, maxT},
		YValues: []float64{th.Value, th.Value},
		Style: chart.Style{
			StrokeColor:     rgbaColor(th.Color),
			StrokeWidth:     2,
			StrokeDashArray: th.DashArray,
		},
	})

	top := math.Max(maxY, th.Value) * 1.1
	if top <= minY {
		top = minY + 1
	}
	yTicks := niceTicks(minY, top, 6)
	yRange := &chart.ContinuousRange{Min: minY, Max: top}
	if len(yTicks) > 1 {
		yRange = &chart.ContinuousRange{Min: yTicks[0].Value, Max: yTicks[len(yTicks)-1].Value}
	}

	pad := maxT.Sub(minT) / 50
	ch := chart.Chart{
		Title:      cm.Title,
		Width:      cr.Width,
		Height:     cr.Height,
		Background: chart.Style{Padding: chart.Box{Top: 48, Left: 16, Right: 24, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:  cm.XAxisLabel,
			Range: &chart.ContinuousRange{Min: chart.TimeToFloat64(minT.Add(-pad)), Max: chart.TimeToFloat64(maxT.Add(pad))},
			Ticks: cr.timeTicks(minT, maxT, cm.TimeUnit),
		},
		YAxis: chart.YAxis{
			Name:  cm.YAxisLabel,
			Range: yRange,
			Ticks: yTicks,
		},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		return nil, fmt.Errorf("decode chart: %w", err)
	}
	return img, nil
}

// timeTicks places ticks on unit boundaries, doubling the step until at most
// maxTimeTicks fit between minT and maxT
func (cr *ChartRasterizer) timeTicks(minT, maxT time.Time, unit models.TimeUnit) []chart.Tick {
	step, layout := time.Hour, "Jan 2 15:04"
	switch unit {
	case models.TimeUnitDay:
		step, layout = 24*time.Hour, "Jan 2"
	case models.TimeUnitWeek:
		step, layout = 7*24*time.Hour, "Jan 2"
	}
	for maxT.Sub(minT)/step > maxTimeTicks {
		step *= 2
	}

	var ticks []chart.Tick
	for t := minT.Truncate(step); !t.After(maxT); t = t.Add(step) {
		if t.Before(minT) {
			continue
		}
		ticks = append(ticks, chart.Tick{Value: chart.TimeToFloat64(t), Label: t.In(cr.Location).Format(layout)})
	}
	if len(ticks) < 2 {
		ticks = []chart.Tick{
			{Value: chart.TimeToFloat64(minT), Label: minT.In(cr.Location).Format("Jan 2 15:04")},
			{Value: chart.TimeToFloat64(maxT), Label: maxT.In(cr.Location).Format("Jan 2 15:04")},
		}
	}
	return ticks
}

// placeholder is a white canvas with the chart title and a message
func (cr *ChartRasterizer) placeholder(title, message string) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, cr.Width, cr.Height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	drawCentered(img, title, cr.Height/2-10, color.Black)
	drawCentered(img, message, cr.Height/2+14, color.RGBA{R: 110, G: 110, B: 110, A: 255})
	return img
}

func drawCentered(img draw.Image, text string, y int, col color.Color) {
	dr := &font.Drawer{Dst: img, Src: image.NewUniform(col), Face: basicfont.Face7x13}
	w := dr.MeasureString(text).Ceil()
	x := (img.Bounds().Dx() - w) / 2
	if x < 0 {
		x = 0
	}
	dr.Dot = fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)}
	dr.DrawString(text)
}

// niceTicks returns about n ticks on 1/2/2.5/5 multiples covering min..max
func niceTicks(min, max float64, n int) []chart.Tick {
	if n < 2 || math.IsNaN(min) || math.IsNaN(max) {
		return nil
	}
	if max <= min {
		max = min + 1
	}
	mag := math.Pow(10, math.Floor(math.Log10((max-min)/float64(n-1))))
	bestStep, bestScore := mag, math.MaxFloat64
	for _, c := range []float64{1, 2, 2.5, 5, 10} {
		step := c * mag
		count := math.Max(math.Ceil((max-min)/step), 2)
		if score := math.Abs(count - float64(n)); score < bestScore {
			bestScore = score
			bestStep = step
		}
	}

	start := math.Floor(min/bestStep) * bestStep
	end := math.Ceil(max/bestStep) * bestStep
	var ticks []chart.Tick
	for v := start; v <= end+bestStep/2; v += bestStep {
		ticks = append(ticks, chart.Tick{Value: v, Label: formatTick(v)})
		if len(ticks) > n+2 {
			break
		}
	}
	return ticks
}

func formatTick(v float64) string {
	switch av := math.Abs(v); {
	case v == 0:
		return "0"
	case av >= 100:
		return strconv.FormatFloat(v, 'f', 0, 64)
	case av >= 10:
		return strconv.FormatFloat(v, 'f', 1, 64)
	default:
		return strconv.FormatFloat(v, 'f', 2, 64)
	}
}

// hexColor converts a #rrggbb palette color, falling back to the default blue
func hexColor(hex string) drawing.Color {
	if _, _, _, ok := parseHex(hex); !ok {
		return drawing.Color{R: 25, G: 118, B: 210, A: 255}
	}
	return drawing.ColorFromHex(strings.TrimPrefix(strings.TrimSpace(hex), "#"))
}

// rgbaColor converts a css rgba(r, g, b, a) string
func rgbaColor(css string) drawing.Color {
	fallback := chart.ColorRed
	s := strings.TrimSpace(css)
	if !strings.HasPrefix(s, "rgba(") || !strings.HasSuffix(s, ")") {
		return fallback
	}
	parts := strings.Split(s[len("rgba("):len(s)-1], ",")
	if len(parts) != 4 {
		return fallback
	}
	var rgb [3]uint8
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseUint(strings.TrimSpace(parts[i]), 10, 8)
		if err != nil {
			return fallback
		}
		rgb[i] = uint8(v)
	}
	alpha, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
	if err != nil || alpha < 0 || alpha > 1 {
		return fallback
	}
	return drawing.Color{R: rgb[0], G: rgb[1], B: rgb[2], A: uint8(math.Round(alpha * 255))}
}
