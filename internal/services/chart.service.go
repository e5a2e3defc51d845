package services

import (
	"github.com/Shivendrahari/SignalSync/internal/models"
)

// Alpha used for dataset fill colors
const datasetFillAlpha = 0.1

var thresholds = map[models.Metric]models.Threshold{
	models.MetricCPUUsage:    {Value: 80, Label: "Warning Threshold", Kind: models.ThresholdMaximum, Color: "rgba(255, 99, 132, 0.7)"},
	models.MetricTemperature: {Value: 70, Label: "Warning Threshold", Kind: models.ThresholdMaximum, Color: "rgba(255, 99, 132, 0.7)"},
	models.MetricLatency:     {Value: 100, Label: "Warning Threshold", Kind: models.ThresholdMaximum, Color: "rgba(255, 99, 132, 0.7)"},
	models.MetricBandwidth:   {Value: 10, Label: "Minimum Recommended", Kind: models.ThresholdMinimum, Color: "rgba(255, 159, 64, 0.7)"},
}

// ThresholdFor returns the annotation line for metric m
func ThresholdFor(m models.Metric) models.Threshold {
	t, ok := thresholds[m]
	if !ok {
		t = models.Threshold{Label: "Warning Threshold", Kind: models.ThresholdMaximum, Color: "rgba(255, 99, 132, 0.7)"}
	}
	t.DashArray = []float64{6, 6}
	return t
}

// TimeUnitFor picks the x-axis tick granularity for a window of days
func TimeUnitFor(days int) models.TimeUnit {
	switch {
	case days <= 1:
		return models.TimeUnitHour
	case days <= 7:
		return models.TimeUnitDay
	default:
		return models.TimeUnitWeek
	}
}

// EmptyChart returns the chart for filter with no datasets
func EmptyChart(filter models.FilterState) models.ChartModel {
	return models.ChartModel{
		Metric:     filter.Metric,
		Title:      filter.Metric.ChartTitle(),
		XAxisLabel: "Date/Time",
		YAxisLabel: filter.Metric.Label(),
		TimeUnit:   TimeUnitFor(filter.SpanDays()),
		Threshold:  ThresholdFor(filter.Metric),
		Datasets:   []models.ChartDataset{},
	}
}

// BuildChart rebuilds the chart model from scratch: one dataset per device
// in response order
func BuildChart(resp *models.PerformanceResponse, filter models.FilterState, colors *ColorAssigner) models.ChartModel {
	chart := EmptyChart(filter)
	if resp == nil {
		return chart
	}

	for _, entry := range resp.Devices {
		color := colors.ColorFor(entry.ID)
		points := make([]models.ChartPoint, 0, len(entry.Series.Data))
		for _, p := range entry.Series.Data {
			points = append(points, models.ChartPoint{X: p.Timestamp, Y: p.Value})
		}
		chart.Datasets = append(chart.Datasets, models.ChartDataset{
			DeviceID:        entry.ID,
			Label:           entry.Series.Name,
			BorderColor:     color,
			BackgroundColor: HexToRGBA(color, datasetFillAlpha),
			Points:          points,
		})
	}
	return chart
}

// BuildLegend lists one item per chart dataset
func BuildLegend(chart models.ChartModel) []models.LegendItem {
	items := make([]models.LegendItem, 0, len(chart.Datasets))
	for _, ds := range chart.Datasets {
		items = append(items, models.LegendItem{Label: ds.Label, Color: ds.BorderColor})
	}
	return items
}
