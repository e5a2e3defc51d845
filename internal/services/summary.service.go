package services

import (
	"strconv"

	"github.com/Shivendrahari/SignalSync/internal/models"
)

// SeriesStats are the aggregate values of one device series
type SeriesStats struct {
	Count   int
	Average float64
	Minimum float64
	Maximum float64
	Current float64 // last sample in response order, not the latest timestamp
}

// ComputeStats aggregates the values of data; ok is false for an empty series
func ComputeStats(data []models.SamplePoint) (stats SeriesStats, ok bool) {
	if len(data) == 0 {
		return SeriesStats{}, false
	}
	stats.Minimum = data[0].Value
	stats.Maximum = data[0].Value
	sum := 0.0
	for _, p := range data {
		sum += p.Value
		if p.Value < stats.Minimum {
			stats.Minimum = p.Value
		}
		if p.Value > stats.Maximum {
			stats.Maximum = p.Value
		}
	}
	stats.Count = len(data)
	stats.Average = sum / float64(len(data))
	stats.Current = data[len(data)-1].Value
	return stats, true
}

// BuildSummary renders one card per device in response order
func BuildSummary(resp *models.PerformanceResponse, colors *ColorAssigner) []models.SummaryCard {
	cards := []models.SummaryCard{}
	if resp == nil {
		return cards
	}
	for _, entry := range resp.Devices {
		card := models.SummaryCard{
			DeviceID: entry.ID,
			Name:     entry.Series.Name,
			Color:    colors.ColorFor(entry.ID),
			Average:  models.NotAvailable,
			Current:  models.NotAvailable,
			Minimum:  models.NotAvailable,
			Maximum:  models.NotAvailable,
		}
		if stats, ok := ComputeStats(entry.Series.Data); ok {
			card.Average = formatValue(stats.Average)
			card.Current = formatValue(stats.Current)
			card.Minimum = formatValue(stats.Minimum)
			card.Maximum = formatValue(stats.Maximum)
		}
		cards = append(cards, card)
	}
	return cards
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
