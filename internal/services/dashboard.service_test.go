package services

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Shivendrahari/SignalSync/internal/models"
)

type fakeFetcher struct {
	mu       sync.Mutex
	requests []models.PerformanceRequest
	respond  func(req models.PerformanceRequest) (*models.PerformanceResponse, error)
}

func (f *fakeFetcher) Fetch(_ context.Context, req models.PerformanceRequest) (*models.PerformanceResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	respond := f.respond
	f.mu.Unlock()
	return respond(req)
}

func (f *fakeFetcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeFetcher) last() models.PerformanceRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

// echoFetcher returns one three-point series per requested device
func echoFetcher() *fakeFetcher {
	return &fakeFetcher{respond: func(req models.PerformanceRequest) (*models.PerformanceResponse, error) {
		var entries []models.DeviceEntry
		for _, id := range req.DeviceIDs {
			entries = append(entries, entry(id, series("dev-"+id, 10, 20, 30)))
		}
		return response(entries...), nil
	}}
}

type recordingPresenter struct {
	mu     sync.Mutex
	events []string
	alerts []string
}

func (p *recordingPresenter) record(ev string) {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
}

func (p *recordingPresenter) ShowLoading() { p.record("loading") }
func (p *recordingPresenter) HideLoading() { p.record("loaded") }
func (p *recordingPresenter) RenderChart(models.ChartModel) { p.record("chart") }
func (p *recordingPresenter) RenderSummary([]models.SummaryCard) { p.record("summary") }
func (p *recordingPresenter) RenderTable(models.TableView) { p.record("table") }
func (p *recordingPresenter) RenderLegend([]models.LegendItem) { p.record("legend") }
func (p *recordingPresenter) Clear() { p.record("clear") }
func (p *recordingPresenter) Alert(msg string) {
	p.mu.Lock()
	p.alerts = append(p.alerts, msg)
	p.mu.Unlock()
	p.record("alert")
}

func (p *recordingPresenter) lastAlert() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.alerts) == 0 {
		return ""
	}
	return p.alerts[len(p.alerts)-1]
}

func (p *recordingPresenter) snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func newTestDashboard(f Fetcher) (*Dashboard, *recordingPresenter) {
	return newCachedTestDashboard(f, NewMemoryResponseCache(time.Minute))
}

func newCachedTestDashboard(f Fetcher, cache ResponseCache) (*Dashboard, *recordingPresenter) {
	p := &recordingPresenter{}
	d := NewDashboard(DashboardOptions{
		SessionID: "s1",
		Fetcher:   f,
		Presenter: p,
		Cache:     cache,
		Colors:    NewColorAssigner(rand.New(rand.NewSource(7))),
		Exporter:  NewExporter(&solidRasterizer{}, time.UTC),
		Location:  time.UTC,
	})
	return d, p
}

func TestDashboardEmptySelectionSkipsFetch(t *testing.T) {
	t.Parallel()

	f := echoFetcher()
	d, p := newTestDashboard(f)
	ctx := context.Background()

	snap, err := d.SetDevices(ctx, nil)
	if err != nil {
		t.Fatalf("set devices: %v", err)
	}
	if f.calls() != 0 {
		t.Fatalf("expected no fetch for empty selection, got %d", f.calls())
	}
	if len(snap.Views.Chart.Datasets) != 0 || len(snap.Views.Summary) != 0 || len(snap.Views.Table.Rows) != 0 {
		t.Fatalf("expected empty views, got %+v", snap.Views)
	}

	if _, err := d.SetDevices(ctx, []string{"1"}); err != nil {
		t.Fatalf("set devices: %v", err)
	}
	snap, err = d.RemoveDevice(ctx, "1")
	if err != nil {
		t.Fatalf("remove device: %v", err)
	}
	if f.calls() != 1 || snap.Loaded || len(snap.Views.Chart.Datasets) != 0 {
		t.Fatalf("removing the last device must clear without fetching: calls=%d snap=%+v", f.calls(), snap)
	}
	if d.Response() != nil {
		t.Fatalf("expected no loaded response")
	}
	if _, err := d.cache.Get(ctx, d.ID()); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected cached response to be dropped, got %v", err)
	}
	if p.events[len(p.events)-1] != "clear" {
		t.Fatalf("expected clear event, got %v", p.events)
	}
}

func TestDashboardRendersOneDatasetPerDevice(t *testing.T) {
	t.Parallel()

	f := echoFetcher()
	d, p := newTestDashboard(f)

	snap, err := d.SetDevices(context.Background(), []string{"1", "2", "1", " "})
	if err != nil {
		t.Fatalf("set devices: %v", err)
	}
	if got := snap.Filter.SelectedDevices; len(got) != 2 || got[0] != "1" || got[1] != "2" {
		t.Fatalf("unexpected selection %v", got)
	}
	if len(snap.Views.Chart.Datasets) != 2 {
		t.Fatalf("expected 2 datasets, got %d", len(snap.Views.Chart.Datasets))
	}
	for _, ds := range snap.Views.Chart.Datasets {
		if len(ds.Points) != 3 {
			t.Fatalf("dataset %s: expected 3 points, got %d", ds.DeviceID, len(ds.Points))
		}
	}
	if len(snap.Views.Summary) != 2 || snap.Views.Summary[0].Average != "20.00" {
		t.Fatalf("unexpected summary %+v", snap.Views.Summary)
	}
	if len(snap.Views.Legend) != 2 || len(snap.Views.Table.Rows) != 6 {
		t.Fatalf("unexpected legend/table %d/%d", len(snap.Views.Legend), len(snap.Views.Table.Rows))
	}

	want := []string{"loading", "chart", "summary", "table", "legend", "loaded"}
	if strings.Join(p.events, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected presenter calls %v", p.events)
	}
}

func TestDashboardColorsStableAcrossReloads(t *testing.T) {
	t.Parallel()

	d, _ := newTestDashboard(echoFetcher())
	ctx := context.Background()

	first, _ := d.SetDevices(ctx, []string{"a", "b"})
	if _, err := d.SetMetric(ctx, models.MetricLatency); err != nil {
		t.Fatalf("set metric: %v", err)
	}
	second, _ := d.Refresh(ctx)

	for i := range first.Views.Chart.Datasets {
		if first.Views.Chart.Datasets[i].BorderColor != second.Views.Chart.Datasets[i].BorderColor {
			t.Fatalf("color of %s changed", first.Views.Chart.Datasets[i].DeviceID)
		}
	}
	if first.Views.Chart.Datasets[0].BorderColor != DevicePalette[0] {
		t.Fatalf("first device should get the first palette color")
	}
}

func TestDashboardCustomRangeValidation(t *testing.T) {
	t.Parallel()

	f := echoFetcher()
	d, p := newTestDashboard(f)
	ctx := context.Background()
	_, _ = d.SetDevices(ctx, []string{"1"})
	before := d.Snapshot().Filter

	_, err := d.SetCustomRange(ctx, "2024-05-01", "")
	if !errors.Is(err, ErrMissingCustomRange) || !IsUserError(err) {
		t.Fatalf("expected missing range user error, got %v", err)
	}
	if p.lastAlert() != AlertMissingDates {
		t.Fatalf("unexpected alert %q", p.lastAlert())
	}

	if _, err := d.SetCustomRange(ctx, "2024-05-03", "2024-05-01"); !errors.Is(err, ErrInvalidCustomRange) {
		t.Fatalf("expected inverted range error, got %v", err)
	}
	if _, err := d.SetCustomRange(ctx, "05/01/2024", "2024-05-02"); !errors.Is(err, ErrInvalidCustomRange) {
		t.Fatalf("expected malformed date error, got %v", err)
	}

	after := d.Snapshot().Filter
	if after.TimeRangeDays != before.TimeRangeDays || after.CustomRange != nil || f.calls() != 1 {
		t.Fatalf("rejected ranges must not change state or fetch: %+v calls=%d", after, f.calls())
	}

	snap, err := d.SetCustomRange(ctx, "2024-05-01", "2024-05-01")
	if err != nil {
		t.Fatalf("custom range: %v", err)
	}
	req := f.last()
	if req.Days != 0 || req.StartDate != "2024-05-01" || req.EndDate != "2024-05-01" {
		t.Fatalf("unexpected request %+v", req)
	}
	if snap.Views.Chart.TimeUnit != models.TimeUnitHour {
		t.Fatalf("single day custom range should use hourly ticks, got %s", snap.Views.Chart.TimeUnit)
	}

	if _, err := d.SetTimeRange(ctx, 30); err != nil {
		t.Fatalf("time range: %v", err)
	}
	if req := f.last(); req.Days != 30 || req.HasCustomRange() {
		t.Fatalf("preset must drop the custom range, got %+v", req)
	}
	if _, err := d.SetTimeRange(ctx, 0); !errors.Is(err, ErrInvalidTimeRange) {
		t.Fatalf("expected invalid time range, got %v", err)
	}
}

func TestDashboardMetricSwitchUpdatesChart(t *testing.T) {
	t.Parallel()

	f := echoFetcher()
	d, _ := newTestDashboard(f)
	ctx := context.Background()

	snap, _ := d.SetDevices(ctx, []string{"1"})
	if snap.Views.Chart.Threshold.Value != 80 {
		t.Fatalf("expected cpu threshold 80, got %v", snap.Views.Chart.Threshold.Value)
	}

	snap, err := d.SetMetric(ctx, models.MetricTemperature)
	if err != nil {
		t.Fatalf("set metric: %v", err)
	}
	if snap.Views.Chart.YAxisLabel != "Temperature (°C)" || snap.Views.Chart.Threshold.Value != 70 {
		t.Fatalf("unexpected chart after switch: %q %v", snap.Views.Chart.YAxisLabel, snap.Views.Chart.Threshold.Value)
	}
	if f.last().Metric != models.MetricTemperature {
		t.Fatalf("request should carry the new metric")
	}

	if _, err := d.SetMetric(ctx, "humidity"); !errors.Is(err, ErrUnknownMetric) {
		t.Fatalf("expected unknown metric, got %v", err)
	}
	if d.Snapshot().Filter.Metric != models.MetricTemperature {
		t.Fatalf("unknown metric must not change state")
	}
}

func TestDashboardDiscardsStaleResponse(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	started := make(chan struct{})
	f := &fakeFetcher{respond: func(req models.PerformanceRequest) (*models.PerformanceResponse, error) {
		if req.DeviceIDs[0] == "slow" {
			close(started)
			<-release
		}
		return response(entry(req.DeviceIDs[0], series(req.DeviceIDs[0], 1))), nil
	}}
	d, _ := newTestDashboard(f)
	ctx := context.Background()

	type result struct {
		snap Snapshot
		err  error
	}
	done := make(chan result, 1)
	go func() {
		snap, err := d.SetDevices(ctx, []string{"slow"})
		done <- result{snap, err}
	}()

	<-started
	fresh, err := d.SetDevices(ctx, []string{"fast"})
	if err != nil {
		t.Fatalf("fast request: %v", err)
	}
	close(release)
	stale := <-done

	if stale.err != nil || !stale.snap.Superseded {
		t.Fatalf("expected superseded result, got %+v (%v)", stale.snap, stale.err)
	}
	if fresh.Superseded {
		t.Fatalf("latest request must not be superseded")
	}
	ds := d.Snapshot().Views.Chart.Datasets
	if len(ds) != 1 || ds[0].DeviceID != "fast" {
		t.Fatalf("stale response overwrote newer views: %+v", ds)
	}
}

func TestDashboardFetchFailureKeepsViews(t *testing.T) {
	t.Parallel()

	fail := false
	f := echoFetcher()
	inner := f.respond
	f.respond = func(req models.PerformanceRequest) (*models.PerformanceResponse, error) {
		if fail {
			return nil, errors.New("connection refused")
		}
		return inner(req)
	}
	d, p := newTestDashboard(f)
	ctx := context.Background()

	before, _ := d.SetDevices(ctx, []string{"1"})
	fail = true
	after, err := d.Refresh(ctx)
	if !IsFetchError(err) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if p.lastAlert() != AlertFetchFailed {
		t.Fatalf("unexpected alert %q", p.lastAlert())
	}
	if len(after.Views.Chart.Datasets) != len(before.Views.Chart.Datasets) || !after.Loaded {
		t.Fatalf("previous views must survive a failed fetch")
	}
	if p.events[len(p.events)-1] != "alert" || p.events[len(p.events)-2] != "loaded" {
		t.Fatalf("loading indicator must be hidden before alerting: %v", p.events)
	}
}

func TestDashboardChartCSVWithoutData(t *testing.T) {
	t.Parallel()

	d, p := newTestDashboard(echoFetcher())

	dl, err := d.ExportChartCSV(context.Background())
	if dl != nil || !errors.Is(err, ErrNoData) || !IsUserError(err) {
		t.Fatalf("expected no-data user error and no file, got %v %v", dl, err)
	}
	if p.lastAlert() != AlertNoData {
		t.Fatalf("unexpected alert %q", p.lastAlert())
	}
}

func TestDashboardTableCSVMatchesTable(t *testing.T) {
	t.Parallel()

	d, _ := newTestDashboard(echoFetcher())
	ctx := context.Background()
	snap, _ := d.SetDevices(ctx, []string{"1", "2"})

	dl, err := d.ExportTableCSV()
	if err != nil {
		t.Fatalf("table csv: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(string(dl.Data), "\n"), "\n")
	if len(lines)-1 != len(snap.Views.Table.Rows) {
		t.Fatalf("expected %d rows, got %d", len(snap.Views.Table.Rows), len(lines)-1)
	}

	chartCSV, err := d.ExportChartCSV(ctx)
	if err != nil {
		t.Fatalf("chart csv: %v", err)
	}
	if got := strings.Count(string(chartCSV.Data), "\n"); got != 7 {
		t.Fatalf("expected header plus 6 samples, got %d lines", got)
	}
}

func TestDashboardLoadingStaysShownForNewerRequest(t *testing.T) {
	t.Parallel()

	gates := map[string]chan struct{}{
		"first":  make(chan struct{}),
		"second": make(chan struct{}),
	}
	entered := make(chan string, 2)
	f := &fakeFetcher{respond: func(req models.PerformanceRequest) (*models.PerformanceResponse, error) {
		id := req.DeviceIDs[0]
		entered <- id
		<-gates[id]
		return response(entry(id, series(id, 1))), nil
	}}
	d, p := newTestDashboard(f)
	ctx := context.Background()

	done := make(chan Snapshot, 2)
	go func() {
		snap, _ := d.SetDevices(ctx, []string{"first"})
		done <- snap
	}()
	<-entered
	go func() {
		snap, _ := d.SetDevices(ctx, []string{"second"})
		done <- snap
	}()
	<-entered

	close(gates["first"])
	if snap := <-done; !snap.Superseded {
		t.Fatalf("expected the first request to be superseded")
	}
	for _, ev := range p.snapshot() {
		if ev == "loaded" {
			t.Fatalf("loading hidden while a newer request is outstanding: %v", p.snapshot())
		}
	}

	close(gates["second"])
	<-done
	events := p.snapshot()
	if events[len(events)-1] != "loaded" {
		t.Fatalf("expected the latest request to hide loading, got %v", events)
	}
}

func TestDashboardSupersededFailureKeepsLoading(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	f := &fakeFetcher{respond: func(req models.PerformanceRequest) (*models.PerformanceResponse, error) {
		if req.DeviceIDs[0] == "broken" {
			entered <- struct{}{}
			<-release
			return nil, errors.New("connection reset")
		}
		return response(entry("ok", series("ok", 1))), nil
	}}
	d, p := newTestDashboard(f)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := d.SetDevices(ctx, []string{"broken"})
		done <- err
	}()
	<-entered
	d.mu.Lock()
	d.issued++
	d.mu.Unlock()
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("superseded failure must be silent, got %v", err)
	}
	for _, ev := range p.snapshot() {
		if ev == "loaded" || ev == "alert" {
			t.Fatalf("superseded failure touched the indicator: %v", p.snapshot())
		}
	}
}

func TestDashboardChartCSVIgnoresCacheOfUnloadedDashboard(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache := NewMemoryResponseCache(time.Minute)
	filter := models.DefaultFilterState()
	filter.SelectedDevices = []string{"a"}
	filter.Metric = models.MetricTemperature
	_ = cache.Put(ctx, "s1", &models.CachedResponse{
		Filter:   filter,
		Response: response(entry("a", series("alpha", 40, 41))),
	})

	d, p := newCachedTestDashboard(echoFetcher(), cache)
	dl, err := d.ExportChartCSV(ctx)
	if dl != nil || !errors.Is(err, ErrNoData) {
		t.Fatalf("expected no file for a dashboard that loaded nothing, got %v %v", dl, err)
	}
	if p.lastAlert() != AlertNoData {
		t.Fatalf("unexpected alert %q", p.lastAlert())
	}
}

func TestDashboardRestoreFromCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache := NewMemoryResponseCache(time.Minute)
	filter := models.DefaultFilterState()
	filter.SelectedDevices = []string{"a"}
	filter.Metric = models.MetricTemperature
	_ = cache.Put(ctx, "s1", &models.CachedResponse{
		Filter:   filter,
		Response: response(entry("a", series("alpha", 40, 41))),
	})

	f := echoFetcher()
	d, _ := newCachedTestDashboard(f, cache)
	ok, err := d.Restore(ctx)
	if err != nil || !ok {
		t.Fatalf("expected restore, got %v %v", ok, err)
	}
	snap := d.Snapshot()
	if !snap.Loaded || snap.Filter.Metric != models.MetricTemperature || len(snap.Views.Chart.Datasets) != 1 {
		t.Fatalf("restored state incomplete: %+v", snap)
	}
	if f.calls() != 0 {
		t.Fatalf("restore must not fetch")
	}

	dl, err := d.ExportChartCSV(ctx)
	if err != nil {
		t.Fatalf("chart csv: %v", err)
	}
	if !strings.HasPrefix(string(dl.Data), "Timestamp,Device,Temperature (°C),Status\n") {
		t.Fatalf("chart csv labelled with the wrong metric: %q", dl.Data)
	}
}

func TestDashboardRestoreNeverOverridesNewerState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache := NewMemoryResponseCache(time.Minute)
	d, _ := newCachedTestDashboard(echoFetcher(), cache)
	if _, err := d.SetDevices(ctx, []string{"b"}); err != nil {
		t.Fatalf("set devices: %v", err)
	}

	stale := models.DefaultFilterState()
	stale.SelectedDevices = []string{"a"}
	_ = cache.Put(ctx, "s1", &models.CachedResponse{Filter: stale, Response: response(entry("a", series("alpha", 1)))})

	if ok, _ := d.Restore(ctx); ok {
		t.Fatalf("restore must not replace a dashboard that already loaded")
	}
	if got := d.Snapshot().Filter.SelectedDevices; len(got) != 1 || got[0] != "b" {
		t.Fatalf("selection changed to %v", got)
	}
}
