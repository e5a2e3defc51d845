package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Shivendrahari/SignalSync/internal/logger"
	"github.com/Shivendrahari/SignalSync/internal/metrics"
	"github.com/Shivendrahari/SignalSync/internal/models"
)

// Alert texts shown to the user
const (
	AlertMissingDates = "Please select both start and end dates"
	AlertFetchFailed  = "Failed to load performance data. Please try again."
	AlertNoData       = "No data to export"
)

// Presenter is the UI port the dashboard renders into
type Presenter interface {
	ShowLoading()
	HideLoading()
	Alert(message string)
	RenderChart(chart models.ChartModel)
	RenderSummary(cards []models.SummaryCard)
	RenderTable(table models.TableView)
	RenderLegend(items []models.LegendItem)
	Clear()
}

// NopPresenter discards every UI call
type NopPresenter struct{}

func (NopPresenter) ShowLoading() {}
func (NopPresenter) HideLoading() {}
func (NopPresenter) Alert(string) {}
func (NopPresenter) RenderChart(models.ChartModel) {}
func (NopPresenter) RenderSummary([]models.SummaryCard) {}
func (NopPresenter) RenderTable(models.TableView) {}
func (NopPresenter) RenderLegend([]models.LegendItem) {}
func (NopPresenter) Clear() {}

// Snapshot is the dashboard state returned by every command
type Snapshot struct {
	SessionID string             `json:"session_id"`
	Filter    models.FilterState `json:"filter"`
	Views     models.Views       `json:"views"`
	Loaded    bool               `json:"loaded"`
	// Superseded is set when this command's response lost to a newer request
	Superseded bool `json:"superseded,omitempty"`
}

// DashboardOptions wires a Dashboard's collaborators
type DashboardOptions struct {
	SessionID string
	Fetcher   Fetcher
	Presenter Presenter
	Cache     ResponseCache
	Colors    *ColorAssigner
	Exporter  *Exporter
	Location  *time.Location
}

// Dashboard owns the filter state and rendered views of one session. The
// lock is never held across a network call.
type Dashboard struct {
	mu        sync.Mutex
	id        string
	filter    models.FilterState
	views     models.Views
	response  *models.PerformanceResponse
	issued    uint64
	fetcher   Fetcher
	presenter Presenter
	cache     ResponseCache
	colors    *ColorAssigner
	exporter  *Exporter
	loc       *time.Location
	log       *logger.PrefixLogger
}

// NewDashboard creates a dashboard in the default filter state
func NewDashboard(opts DashboardOptions) *Dashboard {
	if opts.Presenter == nil {
		opts.Presenter = NopPresenter{}
	}
	if opts.Colors == nil {
		opts.Colors = NewColorAssigner(nil)
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Exporter == nil {
		opts.Exporter = NewExporter(NewChartRasterizer(opts.Location), opts.Location)
	}
	d := &Dashboard{
		id:        opts.SessionID,
		filter:    models.DefaultFilterState(),
		fetcher:   opts.Fetcher,
		presenter: opts.Presenter,
		cache:     opts.Cache,
		colors:    opts.Colors,
		exporter:  opts.Exporter,
		loc:       opts.Location,
		log:       logger.WithPrefix("[DASH] "),
	}
	d.views = emptyViews(d.filter)
	return d
}

func emptyViews(filter models.FilterState) models.Views {
	return models.Views{
		Chart:   EmptyChart(filter),
		Summary: []models.SummaryCard{},
		Table:   models.TableView{Header: TableHeader(filter.Metric), Rows: []models.TableRow{}},
		Legend:  []models.LegendItem{},
	}
}

// ID returns the session id
func (d *Dashboard) ID() string {
	return d.id
}

// SetPresenter replaces the UI port
func (d *Dashboard) SetPresenter(p Presenter) {
	if p == nil {
		p = NopPresenter{}
	}
	d.mu.Lock()
	d.presenter = p
	d.mu.Unlock()
}

// Snapshot returns the current state
func (d *Dashboard) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

func (d *Dashboard) snapshotLocked() Snapshot {
	return Snapshot{
		SessionID: d.id,
		Filter:    d.filter.Clone(),
		Views:     d.views,
		Loaded:    d.response != nil,
	}
}

// SetDevices replaces the device selection; duplicates are dropped and new
// ids get colors in selection order
func (d *Dashboard) SetDevices(ctx context.Context, ids []string) (Snapshot, error) {
	selected := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		selected = append(selected, id)
		d.colors.Assign(id)
	}

	d.mu.Lock()
	d.filter.SelectedDevices = selected
	d.mu.Unlock()

	return d.reload(ctx)
}

// RemoveDevice drops one device from the selection
func (d *Dashboard) RemoveDevice(ctx context.Context, id string) (Snapshot, error) {
	d.mu.Lock()
	kept := make([]string, 0, len(d.filter.SelectedDevices))
	for _, sel := range d.filter.SelectedDevices {
		if sel != id {
			kept = append(kept, sel)
		}
	}
	d.filter.SelectedDevices = kept
	d.mu.Unlock()

	return d.reload(ctx)
}

// SetMetric switches the monitored quantity
func (d *Dashboard) SetMetric(ctx context.Context, metric models.Metric) (Snapshot, error) {
	if !metric.Valid() {
		return d.reject(fmt.Errorf("%w: %q", ErrUnknownMetric, metric))
	}

	d.mu.Lock()
	d.filter.Metric = metric
	d.mu.Unlock()

	return d.reload(ctx)
}

// SetTimeRange selects a preset window of days and drops any custom range
func (d *Dashboard) SetTimeRange(ctx context.Context, days int) (Snapshot, error) {
	if days <= 0 {
		return d.reject(fmt.Errorf("%w: %d", ErrInvalidTimeRange, days))
	}

	d.mu.Lock()
	d.filter.TimeRangeDays = days
	d.filter.CustomRange = nil
	d.mu.Unlock()

	return d.reload(ctx)
}

// SetCustomRange selects an inclusive YYYY-MM-DD date range. Both dates are
// required; nothing changes when the range is rejected.
func (d *Dashboard) SetCustomRange(ctx context.Context, start, end string) (Snapshot, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" || end == "" {
		d.ui().Alert(AlertMissingDates)
		return d.Snapshot(), userError(ErrMissingCustomRange)
	}

	from, err := time.ParseInLocation(models.DateLayout, start, d.loc)
	if err != nil {
		return d.reject(fmt.Errorf("%w: start date %q", ErrInvalidCustomRange, start))
	}
	to, err := time.ParseInLocation(models.DateLayout, end, d.loc)
	if err != nil {
		return d.reject(fmt.Errorf("%w: end date %q", ErrInvalidCustomRange, end))
	}
	if to.Before(from) {
		return d.reject(fmt.Errorf("%w: end date before start date", ErrInvalidCustomRange))
	}

	d.mu.Lock()
	d.filter.TimeRangeDays = 0
	d.filter.CustomRange = &models.DateRange{Start: from, End: to}
	d.mu.Unlock()

	return d.reload(ctx)
}

// Refresh re-fetches with the current filter
func (d *Dashboard) Refresh(ctx context.Context) (Snapshot, error) {
	return d.reload(ctx)
}

func (d *Dashboard) reject(err error) (Snapshot, error) {
	d.ui().Alert(capitalize(err.Error()))
	return d.Snapshot(), userError(err)
}

// reload fetches data for the current filter, or clears every view when no
// device is selected. Each fetch takes a sequence number; a response that
// arrives after a newer request was issued is discarded.
func (d *Dashboard) reload(ctx context.Context) (Snapshot, error) {
	d.mu.Lock()
	filter := d.filter.Clone()
	d.issued++
	seq := d.issued

	if len(filter.SelectedDevices) == 0 {
		d.views = emptyViews(filter)
		d.response = nil
		d.presenter.Clear()
		snap := d.snapshotLocked()
		d.mu.Unlock()
		if d.cache != nil {
			if err := d.cache.Delete(ctx, d.id); err != nil {
				d.log.Warn("Could not drop cached response for %s: %v", d.id, err)
			}
		}
		return snap, nil
	}
	presenter := d.presenter
	d.mu.Unlock()

	presenter.ShowLoading()
	start := time.Now()
	resp, err := d.fetch(ctx, filter.Request())
	if err != nil {
		// a newer request owns the loading indicator
		if d.superseded(seq) {
			metrics.ObserveFetch("stale", time.Since(start))
			d.log.Debug("Ignoring failure of superseded request #%d for session %s: %v", seq, d.id, err)
			snap := d.Snapshot()
			snap.Superseded = true
			return snap, nil
		}
		presenter.HideLoading()
		metrics.ObserveFetch("error", time.Since(start))
		d.log.Error("Error fetching performance data for session %s: %v", d.id, err)
		presenter.Alert(AlertFetchFailed)
		return d.Snapshot(), err
	}

	d.mu.Lock()
	if seq != d.issued {
		latest := d.issued
		snap := d.snapshotLocked()
		d.mu.Unlock()
		metrics.ObserveFetch("stale", time.Since(start))
		metrics.IncrementStaleResponses()
		d.log.Debug("Discarding response #%d for session %s, latest is #%d", seq, d.id, latest)
		snap.Superseded = true
		return snap, nil
	}

	d.applyLocked(filter, resp)
	snap := d.snapshotLocked()
	d.mu.Unlock()

	if d.cache != nil && !d.superseded(seq) {
		if err := d.cache.Put(ctx, d.id, &models.CachedResponse{Filter: filter, Response: resp}); err != nil {
			d.log.Warn("Could not cache response for %s: %v", d.id, err)
		}
	}

	presenter.HideLoading()
	metrics.ObserveFetch("ok", time.Since(start))
	return snap, nil
}

func (d *Dashboard) superseded(seq uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return seq != d.issued
}

func (d *Dashboard) ui() Presenter {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.presenter
}

func (d *Dashboard) fetch(ctx context.Context, req models.PerformanceRequest) (*models.PerformanceResponse, error) {
	if d.fetcher == nil {
		return nil, &FetchError{Err: errors.New("no performance data source configured")}
	}
	resp, err := d.fetcher.Fetch(ctx, req)
	if err != nil {
		if !IsFetchError(err) {
			err = &FetchError{Err: err}
		}
		return nil, err
	}
	if resp == nil {
		resp = &models.PerformanceResponse{Devices: models.DeviceSet{}}
	}
	return resp, nil
}

// applyLocked makes resp the loaded response for filter and renders every
// view from it
func (d *Dashboard) applyLocked(filter models.FilterState, resp *models.PerformanceResponse) {
	d.response = resp
	chart := BuildChart(resp, filter, d.colors)
	d.views = models.Views{
		Chart:   chart,
		Summary: BuildSummary(resp, d.colors),
		Table:   BuildTable(resp, filter.Metric, d.colors, d.loc),
		Legend:  BuildLegend(chart),
	}
	d.presenter.RenderChart(d.views.Chart)
	d.presenter.RenderSummary(d.views.Summary)
	d.presenter.RenderTable(d.views.Table)
	d.presenter.RenderLegend(d.views.Legend)
}

// Restore reloads the filter and views a rebuilt session had before, from
// the session cache. It reports whether anything was restored and never
// overrides a dashboard that has already issued a request.
func (d *Dashboard) Restore(ctx context.Context) (bool, error) {
	if d.cache == nil {
		return false, nil
	}
	cached, err := d.cache.Get(ctx, d.id)
	if errors.Is(err, ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if cached == nil || cached.Response == nil || !cached.Filter.Metric.Valid() || len(cached.Filter.SelectedDevices) == 0 {
		return false, nil
	}

	filter := cached.Filter.Clone()
	for _, id := range filter.SelectedDevices {
		d.colors.Assign(id)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.issued != 0 || d.response != nil {
		return false, nil
	}
	d.filter = filter
	d.applyLocked(filter, cached.Response)
	d.log.Debug("Restored %d devices for session %s", len(filter.SelectedDevices), d.id)
	return true, nil
}

// Response returns the raw response behind the current views, or nil before
// anything was loaded
func (d *Dashboard) Response() *models.PerformanceResponse {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.response
}

// ExportImage rasterizes the current chart as png or jpg
func (d *Dashboard) ExportImage(format string) (*Download, error) {
	snap := d.Snapshot()
	return d.exporter.ExportImage(snap.Views.Chart, format)
}

// ExportPDF renders the current chart into a landscape report
func (d *Dashboard) ExportPDF() (*Download, error) {
	snap := d.Snapshot()
	return d.exporter.ExportPDF(snap.Views.Chart)
}

// ExportChartCSV serializes the full loaded response, not the truncated
// table. Only data loaded into the current views is exported.
func (d *Dashboard) ExportChartCSV(_ context.Context) (*Download, error) {
	d.mu.Lock()
	resp, metric := d.response, d.filter.Metric
	d.mu.Unlock()

	dl, err := d.exporter.ExportChartCSV(resp, metric)
	if errors.Is(err, ErrNoData) {
		d.ui().Alert(AlertNoData)
		return nil, userError(err)
	}
	return dl, err
}

// ExportTableCSV serializes exactly the rendered table rows
func (d *Dashboard) ExportTableCSV() (*Download, error) {
	snap := d.Snapshot()
	return d.exporter.ExportTableCSV(snap.Views.Table)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
