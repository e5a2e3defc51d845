package services

import (
	"math/rand"
	"testing"
	"time"

	"github.com/Shivendrahari/SignalSync/internal/models"
)

func TestChartRasterizerDrawsDatasets(t *testing.T) {
	t.Parallel()

	colors := NewColorAssigner(rand.New(rand.NewSource(1)))
	filter := models.DefaultFilterState()
	filter.SelectedDevices = []string{"a", "b"}
	cm := BuildChart(response(
		entry("a", series("alpha", 10, 20, 30)),
		entry("b", series("beta", 90)),
	), filter, colors)

	r := NewChartRasterizer(time.UTC)
	r.Width, r.Height = 640, 320
	img, err := r.Rasterize(cm)
	if err != nil {
		t.Fatalf("rasterize: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 640 || b.Dy() != 320 {
		t.Fatalf("unexpected size %v", b)
	}
}

func TestChartRasterizerPlaceholderWithoutPoints(t *testing.T) {
	t.Parallel()

	r := NewChartRasterizer(nil)
	img, err := r.Rasterize(EmptyChart(models.DefaultFilterState()))
	if err != nil {
		t.Fatalf("rasterize: %v", err)
	}
	if b := img.Bounds(); b.Dx() != defaultChartWidth || b.Dy() != defaultChartHeight {
		t.Fatalf("unexpected placeholder size %v", b)
	}
	if r, g, b, _ := img.At(0, 0).RGBA(); r != 0xffff || g != 0xffff || b != 0xffff {
		t.Fatalf("placeholder background should be white")
	}
}

func TestRGBAColor(t *testing.T) {
	t.Parallel()

	c := rgbaColor("rgba(255, 99, 132, 0.7)")
	if c.R != 255 || c.G != 99 || c.B != 132 || c.A != 179 {
		t.Fatalf("unexpected color %+v", c)
	}
	if rgbaColor("red") != rgbaColor("rgba(1,2)") {
		t.Fatalf("invalid inputs should share the fallback")
	}
}

func TestNiceTicksCoverRange(t *testing.T) {
	t.Parallel()

	ticks := niceTicks(0, 88, 6)
	if len(ticks) < 2 {
		t.Fatalf("expected ticks, got %v", ticks)
	}
	if ticks[0].Value > 0 || ticks[len(ticks)-1].Value < 88 {
		t.Fatalf("ticks %v do not cover 0..88", ticks)
	}
}
