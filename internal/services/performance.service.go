package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Shivendrahari/SignalSync/internal/models"
)

// PerformanceService answers performance API queries from a StatsStore
type PerformanceService struct {
	store StatsStore
	loc   *time.Location
	now   func() time.Time
}

// NewPerformanceService resolves calendar dates in loc
func NewPerformanceService(store StatsStore, loc *time.Location) *PerformanceService {
	if loc == nil {
		loc = time.Local
	}
	return &PerformanceService{store: store, loc: loc, now: time.Now}
}

// Window returns the time bounds of req: the last Days days up to now, or
// the whole calendar days from StartDate to EndDate inclusive
func (ps *PerformanceService) Window(req models.PerformanceRequest) (time.Time, time.Time, error) {
	if req.StartDate != "" || req.EndDate != "" {
		if !req.HasCustomRange() {
			return time.Time{}, time.Time{}, userError(ErrMissingCustomRange)
		}
		from, err := time.ParseInLocation(models.DateLayout, req.StartDate, ps.loc)
		if err != nil {
			return time.Time{}, time.Time{}, userError(fmt.Errorf("%w: start date %q", ErrInvalidCustomRange, req.StartDate))
		}
		end, err := time.ParseInLocation(models.DateLayout, req.EndDate, ps.loc)
		if err != nil {
			return time.Time{}, time.Time{}, userError(fmt.Errorf("%w: end date %q", ErrInvalidCustomRange, req.EndDate))
		}
		if end.Before(from) {
			return time.Time{}, time.Time{}, userError(fmt.Errorf("%w: end date before start date", ErrInvalidCustomRange))
		}
		return from, end.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
	}

	if req.Days <= 0 {
		return time.Time{}, time.Time{}, userError(fmt.Errorf("%w: %d", ErrInvalidTimeRange, req.Days))
	}
	to := ps.now()
	return to.AddDate(0, 0, -req.Days), to, nil
}

// Query builds the response for req with one series per requested id, in
// request order. Unknown ids get an empty series named by their id.
func (ps *PerformanceService) Query(ctx context.Context, req models.PerformanceRequest) (*models.PerformanceResponse, error) {
	if !req.Metric.Valid() {
		return nil, userError(fmt.Errorf("%w: %q", ErrUnknownMetric, req.Metric))
	}
	from, to, err := ps.Window(req)
	if err != nil {
		return nil, err
	}

	resp := &models.PerformanceResponse{Devices: models.DeviceSet{}}
	if len(req.DeviceIDs) == 0 {
		return resp, nil
	}

	devices, err := ps.store.Devices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	names := make(map[string]string, len(devices))
	for _, d := range devices {
		names[d.ID] = d.Name
	}

	window, err := ps.store.Query(ctx, req.DeviceIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}

	seen := make(map[string]bool, len(req.DeviceIDs))
	for _, id := range req.DeviceIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		name := names[id]
		if name == "" {
			name = id
		}
		stats := window.Devices[id]
		series := models.DeviceSeries{Name: name, Data: make([]models.SamplePoint, 0, len(stats))}
		for _, s := range stats {
			series.Data = append(series.Data, models.SamplePoint{
				Timestamp: s.Timestamp,
				Value:     s.Value(req.Metric),
				Status:    s.Status,
			})
		}
		resp.Devices = append(resp.Devices, models.DeviceEntry{ID: id, Series: series})
	}
	return resp, nil
}

// Devices lists every known device
func (ps *PerformanceService) Devices(ctx context.Context) ([]models.Device, error) {
	return ps.store.Devices(ctx)
}
