package services

import (
	"sort"
	"time"

	"github.com/Shivendrahari/SignalSync/internal/models"
)

const (
	// MaxTableRows bounds the rendered table
	MaxTableRows = 100
	// DisplayTimeLayout formats timestamps shown to the user
	DisplayTimeLayout = "2006-01-02 15:04:05"

	statusIconUp   = "check-circle"
	statusIconDown = "exclamation-circle"
)

type flatPoint struct {
	deviceID   string
	deviceName string
	point      models.SamplePoint
}

func flatten(resp *models.PerformanceResponse) []flatPoint {
	if resp == nil {
		return nil
	}
	var all []flatPoint
	for _, entry := range resp.Devices {
		for _, p := range entry.Series.Data {
			all = append(all, flatPoint{deviceID: entry.ID, deviceName: entry.Series.Name, point: p})
		}
	}
	return all
}

// StatusIcon returns the icon name shown next to a status
func StatusIcon(s models.Status) string {
	if s == models.StatusUp {
		return statusIconUp
	}
	return statusIconDown
}

// TableHeader returns the column headings for metric m
func TableHeader(m models.Metric) []string {
	return []string{"Timestamp", "Device", m.Label(), "Status"}
}

// BuildTable renders the most recent MaxTableRows samples across all devices,
// newest first
func BuildTable(resp *models.PerformanceResponse, metric models.Metric, colors *ColorAssigner, loc *time.Location) models.TableView {
	if loc == nil {
		loc = time.Local
	}
	view := models.TableView{
		Header: TableHeader(metric),
		Rows:   []models.TableRow{},
	}

	all := flatten(resp)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].point.Timestamp.After(all[j].point.Timestamp)
	})
	if len(all) > MaxTableRows {
		all = all[:MaxTableRows]
	}

	for _, fp := range all {
		view.Rows = append(view.Rows, models.TableRow{
			Timestamp:  fp.point.Timestamp.In(loc).Format(DisplayTimeLayout),
			DeviceID:   fp.deviceID,
			DeviceName: fp.deviceName,
			Color:      colors.ColorFor(fp.deviceID),
			Value:      formatValue(fp.point.Value),
			Status:     fp.point.Status,
			StatusIcon: StatusIcon(fp.point.Status),
		})
	}
	return view
}
