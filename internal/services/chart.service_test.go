package services

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/Shivendrahari/SignalSync/internal/models"
)

func TestBuildChartOneDatasetPerDevice(t *testing.T) {
	t.Parallel()

	colors := NewColorAssigner(rand.New(rand.NewSource(3)))
	colors.Assign("a")
	colors.Assign("b")

	resp := response(
		entry("a", series("alpha", 1, 2, 3)),
		entry("b", series("beta", 4)),
	)
	filter := models.DefaultFilterState()
	filter.SelectedDevices = []string{"a", "b"}

	chart := BuildChart(resp, filter, colors)
	if len(chart.Datasets) != 2 {
		t.Fatalf("expected 2 datasets, got %d", len(chart.Datasets))
	}
	for i, e := range resp.Devices {
		ds := chart.Datasets[i]
		if ds.DeviceID != e.ID || ds.Label != e.Series.Name {
			t.Fatalf("dataset %d mismatch: %+v", i, ds)
		}
		if len(ds.Points) != len(e.Series.Data) {
			t.Fatalf("dataset %d: expected %d points, got %d", i, len(e.Series.Data), len(ds.Points))
		}
	}
	if chart.Datasets[0].BorderColor != DevicePalette[0] || chart.Datasets[1].BorderColor != DevicePalette[1] {
		t.Fatalf("unexpected colors: %s %s", chart.Datasets[0].BorderColor, chart.Datasets[1].BorderColor)
	}
	if chart.Datasets[0].BackgroundColor != "rgba(25, 118, 210, 0.1)" {
		t.Fatalf("unexpected fill %s", chart.Datasets[0].BackgroundColor)
	}

	again := BuildChart(resp, filter, colors)
	if !reflect.DeepEqual(chart, again) {
		t.Fatalf("re-render with same input differs")
	}
}

func TestBuildChartMetricSwitchUpdatesAxisAndThreshold(t *testing.T) {
	t.Parallel()

	colors := NewColorAssigner(nil)
	resp := response(entry("a", series("alpha", 50)))
	filter := models.DefaultFilterState()

	cpu := BuildChart(resp, filter, colors)
	if cpu.YAxisLabel != "CPU Usage (%)" || cpu.Threshold.Value != 80 {
		t.Fatalf("unexpected cpu chart: %q %v", cpu.YAxisLabel, cpu.Threshold.Value)
	}

	filter.Metric = models.MetricTemperature
	temp := BuildChart(resp, filter, colors)
	if temp.YAxisLabel != "Temperature (°C)" || temp.Threshold.Value != 70 {
		t.Fatalf("unexpected temperature chart: %q %v", temp.YAxisLabel, temp.Threshold.Value)
	}
	if temp.Title != "Temperature (°C) Over Time" {
		t.Fatalf("unexpected title %q", temp.Title)
	}
}

func TestThresholdFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		metric models.Metric
		value  float64
		kind   models.ThresholdKind
		label  string
	}{
		{models.MetricCPUUsage, 80, models.ThresholdMaximum, "Warning Threshold"},
		{models.MetricTemperature, 70, models.ThresholdMaximum, "Warning Threshold"},
		{models.MetricLatency, 100, models.ThresholdMaximum, "Warning Threshold"},
		{models.MetricBandwidth, 10, models.ThresholdMinimum, "Minimum Recommended"},
	}
	for _, tc := range cases {
		th := ThresholdFor(tc.metric)
		if th.Value != tc.value || th.Kind != tc.kind || th.Label != tc.label {
			t.Fatalf("%s: unexpected threshold %+v", tc.metric, th)
		}
		if len(th.DashArray) != 2 {
			t.Fatalf("%s: expected dashed line", tc.metric)
		}
	}
}

func TestTimeUnitFor(t *testing.T) {
	t.Parallel()

	cases := map[int]models.TimeUnit{
		0:  models.TimeUnitHour,
		1:  models.TimeUnitHour,
		2:  models.TimeUnitDay,
		7:  models.TimeUnitDay,
		8:  models.TimeUnitWeek,
		30: models.TimeUnitWeek,
	}
	for days, want := range cases {
		if got := TimeUnitFor(days); got != want {
			t.Fatalf("days=%d: expected %s, got %s", days, want, got)
		}
	}
}

func TestBuildLegendFollowsDatasets(t *testing.T) {
	t.Parallel()

	colors := NewColorAssigner(nil)
	colors.Assign("x")
	chart := BuildChart(response(entry("x", series("ex", 1))), models.DefaultFilterState(), colors)
	legend := BuildLegend(chart)
	if len(legend) != 1 || legend[0].Label != "ex" || legend[0].Color != DevicePalette[0] {
		t.Fatalf("unexpected legend %+v", legend)
	}
}
