package services

import (
	"time"

	"github.com/Shivendrahari/SignalSync/internal/models"
)

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// series builds samples one minute apart starting at baseTime
func series(name string, values ...float64) models.DeviceSeries {
	s := models.DeviceSeries{Name: name, Data: []models.SamplePoint{}}
	for i, v := range values {
		status := models.StatusUp
		if v < 0 {
			status = models.StatusDown
		}
		s.Data = append(s.Data, models.SamplePoint{
			Timestamp: baseTime.Add(time.Duration(i) * time.Minute),
			Value:     v,
			Status:    status,
		})
	}
	return s
}

func response(entries ...models.DeviceEntry) *models.PerformanceResponse {
	return &models.PerformanceResponse{Devices: models.DeviceSet(entries)}
}

func entry(id string, s models.DeviceSeries) models.DeviceEntry {
	return models.DeviceEntry{ID: id, Series: s}
}
