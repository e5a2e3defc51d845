package services

import (
	"context"
	"sync"
	"time"

	"github.com/Shivendrahari/SignalSync/internal/logger"
	"github.com/Shivendrahari/SignalSync/internal/metrics"
	"github.com/Shivendrahari/SignalSync/internal/models"
)

// pruneEvery is how often old stats are trimmed while collecting
const pruneEvery = time.Hour

// HistoryCollector samples a probe on a ticker and records one DeviceStat
// per tick for its device
type HistoryCollector struct {
	mu        sync.Mutex
	probe     Probe
	store     StatsStore
	device    models.Device
	retention time.Duration

	lastSent  uint64
	lastRecv  uint64
	lastTime  time.Time
	lastPrune time.Time

	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	log     *logger.PrefixLogger
}

// NewHistoryCollector creates a collector recording device's stats into store
func NewHistoryCollector(probe Probe, store StatsStore, device models.Device, retention time.Duration) *HistoryCollector {
	return &HistoryCollector{
		probe:     probe,
		store:     store,
		device:    device,
		retention: retention,
		log:       logger.WithPrefix("[HISTORY] "),
	}
}

// Start registers the device and begins collecting every interval
func (hc *HistoryCollector) Start(ctx context.Context, interval time.Duration) error {
	hc.mu.Lock()
	if hc.running {
		hc.mu.Unlock()
		return nil
	}
	hc.running = true
	ctx, hc.cancel = context.WithCancel(ctx)
	hc.done = make(chan struct{})
	hc.mu.Unlock()

	if err := hc.store.RegisterDevice(ctx, hc.device); err != nil {
		hc.mu.Lock()
		hc.running = false
		hc.cancel()
		hc.mu.Unlock()
		return err
	}

	go func() {
		defer close(hc.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		// first reading primes the network counters
		hc.collect(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				hc.collect(ctx)
			}
		}
	}()

	hc.log.Info("History collector started for %s (interval: %v, retention: %v)", hc.device.ID, interval, hc.retention)
	return nil
}

// Stop ends collection and waits for the loop to exit
func (hc *HistoryCollector) Stop() {
	hc.mu.Lock()
	if !hc.running {
		hc.mu.Unlock()
		return
	}
	hc.running = false
	cancel, done := hc.cancel, hc.done
	hc.mu.Unlock()

	cancel()
	<-done
	hc.log.Info("History collector stopped")
}

func (hc *HistoryCollector) collect(ctx context.Context) {
	if _, err := hc.CollectOnce(ctx); err != nil {
		hc.log.Error("Error collecting stats for %s: %v", hc.device.ID, err)
	}

	hc.mu.Lock()
	due := hc.retention > 0 && time.Since(hc.lastPrune) >= pruneEvery
	if due {
		hc.lastPrune = time.Now()
	}
	hc.mu.Unlock()

	if due {
		removed, err := hc.store.Prune(ctx, time.Now().Add(-hc.retention))
		if err != nil {
			hc.log.Warn("Could not prune stats older than %v: %v", hc.retention, err)
		} else if removed > 0 {
			hc.log.Info("Pruned %d stats older than %v", removed, hc.retention)
		}
	}
}

// CollectOnce takes one reading and records it. Bandwidth is the combined
// send and receive rate since the previous reading, in Mbps.
func (hc *HistoryCollector) CollectOnce(ctx context.Context) (models.DeviceStat, error) {
	// probes run outside the lock; they can take a while
	snap, err := hc.probe.Sample(ctx)
	if err != nil {
		metrics.IncrementSamples("error")
		return models.DeviceStat{}, err
	}

	hc.mu.Lock()
	bandwidth := 0.0
	if elapsed := snap.Timestamp.Sub(hc.lastTime).Seconds(); !hc.lastTime.IsZero() && elapsed > 0 &&
		snap.BytesSent >= hc.lastSent && snap.BytesRecv >= hc.lastRecv {
		delta := (snap.BytesSent - hc.lastSent) + (snap.BytesRecv - hc.lastRecv)
		bandwidth = float64(delta) * 8 / 1e6 / elapsed
	}
	hc.lastSent, hc.lastRecv, hc.lastTime = snap.BytesSent, snap.BytesRecv, snap.Timestamp
	hc.mu.Unlock()

	status := models.StatusUp
	if !snap.Reachable {
		status = models.StatusDown
	}
	stat := models.DeviceStat{
		DeviceID:    hc.device.ID,
		Timestamp:   snap.Timestamp,
		CPUUsage:    snap.CPUUsage,
		Temperature: snap.Temperature,
		Latency:     snap.LatencyMS,
		Bandwidth:   bandwidth,
		Status:      status,
	}
	if err := hc.store.Record(ctx, stat); err != nil {
		metrics.IncrementSamples("error")
		return stat, err
	}
	metrics.IncrementSamples(string(status))
	return stat, nil
}
