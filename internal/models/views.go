package models

import "time"

// TimeUnit is the tick granularity of the chart's time axis
type TimeUnit string

const (
	TimeUnitHour TimeUnit = "hour"
	TimeUnitDay  TimeUnit = "day"
	TimeUnitWeek TimeUnit = "week"
)

// ThresholdKind tells whether the threshold is an upper or lower bound
type ThresholdKind string

const (
	ThresholdMaximum ThresholdKind = "maximum"
	ThresholdMinimum ThresholdKind = "minimum"
)

// Threshold is the horizontal annotation line drawn on the chart
type Threshold struct {
	Value     float64       `json:"value"`
	Label     string        `json:"label"`
	Kind      ThresholdKind `json:"kind"`
	Color     string        `json:"color"`
	DashArray []float64     `json:"dash_array"`
}

// ChartPoint is one (x, y) pair of a dataset
type ChartPoint struct {
	X time.Time `json:"x"`
	Y float64   `json:"y"`
}

// ChartDataset is the line drawn for one device
type ChartDataset struct {
	DeviceID        string       `json:"device_id"`
	Label           string       `json:"label"`
	BorderColor     string       `json:"border_color"`
	BackgroundColor string       `json:"background_color"`
	Points          []ChartPoint `json:"points"`
}

// ChartModel is everything needed to draw the performance chart
type ChartModel struct {
	Metric     Metric         `json:"metric"`
	Title      string         `json:"title"`
	XAxisLabel string         `json:"x_axis_label"`
	YAxisLabel string         `json:"y_axis_label"`
	TimeUnit   TimeUnit       `json:"time_unit"`
	Threshold  Threshold      `json:"threshold"`
	Datasets   []ChartDataset `json:"datasets"`
}

// NotAvailable is shown in place of a statistic that cannot be computed
const NotAvailable = "N/A"

// SummaryCard holds the formatted statistics of one device
type SummaryCard struct {
	DeviceID string `json:"device_id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	Average  string `json:"average"`
	Current  string `json:"current"`
	Minimum  string `json:"minimum"`
	Maximum  string `json:"maximum"`
}

// TableRow is one rendered row of the data table
type TableRow struct {
	Timestamp  string `json:"timestamp"`
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name"`
	Color      string `json:"color"`
	Value      string `json:"value"`
	Status     Status `json:"status"`
	StatusIcon string `json:"status_icon"`
}

// Cells returns the text content of the row's cells in column order
func (r TableRow) Cells() []string {
	return []string{r.Timestamp, r.DeviceName, r.Value, string(r.Status)}
}

// TableView is the rendered data table
type TableView struct {
	Header []string   `json:"header"`
	Rows   []TableRow `json:"rows"`
}

// LegendItem is one entry of the chart legend
type LegendItem struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// Views bundles the rendered projections of the current dataset
type Views struct {
	Chart   ChartModel    `json:"chart"`
	Summary []SummaryCard `json:"summary"`
	Table   TableView     `json:"table"`
	Legend  []LegendItem  `json:"legend"`
}

// Device is a monitored network endpoint
type Device struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Branch string `json:"branch,omitempty"`
	Status Status `json:"status"`
}

// DeviceStat is one stored observation of all metrics for a device
type DeviceStat struct {
	DeviceID    string    `json:"device_id"`
	Timestamp   time.Time `json:"timestamp"`
	CPUUsage    float64   `json:"cpu_usage"`
	Temperature float64   `json:"temperature"`
	Latency     float64   `json:"latency"`
	Bandwidth   float64   `json:"bandwidth"`
	Status      Status    `json:"status"`
}

// Value returns the stat's value for metric m
func (s DeviceStat) Value(m Metric) float64 {
	switch m {
	case MetricTemperature:
		return s.Temperature
	case MetricLatency:
		return s.Latency
	case MetricBandwidth:
		return s.Bandwidth
	default:
		return s.CPUUsage
	}
}
