package models

import (
	"math"
	"time"
)

// Metric identifies one of the monitored quantities
type Metric string

const (
	MetricCPUUsage    Metric = "cpu_usage"
	MetricTemperature Metric = "temperature"
	MetricLatency     Metric = "latency"
	MetricBandwidth   Metric = "bandwidth"
)

// Metrics lists every supported metric in display order
var Metrics = []Metric{MetricCPUUsage, MetricTemperature, MetricLatency, MetricBandwidth}

var metricLabels = map[Metric]string{
	MetricCPUUsage:    "CPU Usage (%)",
	MetricTemperature: "Temperature (°C)",
	MetricLatency:     "Latency (ms)",
	MetricBandwidth:   "Bandwidth (Mbps)",
}

// Valid reports whether m is one of the supported metrics
func (m Metric) Valid() bool {
	_, ok := metricLabels[m]
	return ok
}

// Label returns the axis/column label for the metric
func (m Metric) Label() string {
	if label, ok := metricLabels[m]; ok {
		return label
	}
	return string(m)
}

// ChartTitle returns the heading shown above the chart
func (m Metric) ChartTitle() string {
	return m.Label() + " Over Time"
}

// DateLayout is the wire and input format for calendar dates
const DateLayout = "2006-01-02"

// DateRange is an inclusive custom range of calendar dates
type DateRange struct {
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
}

// Days returns the inclusive number of calendar days covered
func (r DateRange) Days() int {
	return int(math.Round(r.End.Sub(r.Start).Hours()/24)) + 1
}

// FilterState is the user-selected filter of one dashboard session
type FilterState struct {
	SelectedDevices []string   `json:"selected_devices"`
	Metric          Metric     `json:"metric"`
	TimeRangeDays   int        `json:"time_range_days"` // 0 means CustomRange is active
	CustomRange     *DateRange `json:"custom_range,omitempty"`
}

// DefaultFilterState returns the state a fresh session starts with
func DefaultFilterState() FilterState {
	return FilterState{
		SelectedDevices: []string{},
		Metric:          MetricCPUUsage,
		TimeRangeDays:   7,
	}
}

// Clone returns a deep copy safe to hand out of the owning lock
func (f FilterState) Clone() FilterState {
	out := f
	out.SelectedDevices = append([]string{}, f.SelectedDevices...)
	if f.CustomRange != nil {
		r := *f.CustomRange
		out.CustomRange = &r
	}
	return out
}

// SpanDays returns the length of the active time window in days
func (f FilterState) SpanDays() int {
	if f.TimeRangeDays == 0 && f.CustomRange != nil {
		return f.CustomRange.Days()
	}
	return f.TimeRangeDays
}

// Request builds the performance API payload for this filter
func (f FilterState) Request() PerformanceRequest {
	req := PerformanceRequest{
		DeviceIDs: append([]string{}, f.SelectedDevices...),
		Metric:    f.Metric,
		Days:      f.TimeRangeDays,
	}
	if f.TimeRangeDays == 0 && f.CustomRange != nil {
		req.StartDate = f.CustomRange.Start.Format(DateLayout)
		req.EndDate = f.CustomRange.End.Format(DateLayout)
	}
	return req
}

// PerformanceRequest is the JSON body of POST /api/performance-data/
type PerformanceRequest struct {
	DeviceIDs []string `json:"device_ids"`
	Metric    Metric   `json:"metric"`
	Days      int      `json:"days"`
	StartDate string   `json:"start_date,omitempty"`
	EndDate   string   `json:"end_date,omitempty"`
}

// HasCustomRange reports whether both custom dates were supplied
func (r PerformanceRequest) HasCustomRange() bool {
	return r.StartDate != "" && r.EndDate != ""
}
