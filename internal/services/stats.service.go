package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Shivendrahari/SignalSync/internal/models"
)

// StatsStore persists device observations for the performance API
type StatsStore interface {
	RegisterDevice(ctx context.Context, device models.Device) error
	Devices(ctx context.Context) ([]models.Device, error)
	Record(ctx context.Context, stat models.DeviceStat) error
	Query(ctx context.Context, ids []string, from, to time.Time) (models.HistoryWindow, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// MemoryStatsStore keeps stats in process, oldest first per device
type MemoryStatsStore struct {
	mu      sync.RWMutex
	devices map[string]models.Device
	order   []string
	stats   map[string][]models.DeviceStat
}

// NewMemoryStatsStore creates an empty store
func NewMemoryStatsStore() *MemoryStatsStore {
	return &MemoryStatsStore{
		devices: make(map[string]models.Device),
		stats:   make(map[string][]models.DeviceStat),
	}
}

func (ms *MemoryStatsStore) RegisterDevice(_ context.Context, device models.Device) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if _, ok := ms.devices[device.ID]; !ok {
		ms.order = append(ms.order, device.ID)
	}
	ms.devices[device.ID] = device
	return nil
}

func (ms *MemoryStatsStore) Devices(_ context.Context) ([]models.Device, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	out := make([]models.Device, 0, len(ms.order))
	for _, id := range ms.order {
		out = append(out, ms.devices[id])
	}
	return out, nil
}

// Record appends stat and updates the device's current status
func (ms *MemoryStatsStore) Record(_ context.Context, stat models.DeviceStat) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	list := ms.stats[stat.DeviceID]
	list = append(list, stat)
	// samples normally arrive in order; keep the slice sorted when they don't
	if n := len(list); n > 1 && list[n-1].Timestamp.Before(list[n-2].Timestamp) {
		sort.SliceStable(list, func(i, j int) bool { return list[i].Timestamp.Before(list[j].Timestamp) })
	}
	ms.stats[stat.DeviceID] = list

	if d, ok := ms.devices[stat.DeviceID]; ok {
		d.Status = stat.Status
		ms.devices[stat.DeviceID] = d
	}
	return nil
}

// Query returns the stats of ids within [from, to], oldest first
func (ms *MemoryStatsStore) Query(_ context.Context, ids []string, from, to time.Time) (models.HistoryWindow, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	window := models.HistoryWindow{From: from, To: to, Devices: make(map[string][]models.DeviceStat, len(ids))}
	for _, id := range ids {
		filtered := []models.DeviceStat{}
		for _, s := range ms.stats[id] {
			if !s.Timestamp.Before(from) && !s.Timestamp.After(to) {
				filtered = append(filtered, s)
			}
		}
		window.Devices[id] = filtered
	}
	return window, nil
}

// Prune drops every stat older than before
func (ms *MemoryStatsStore) Prune(_ context.Context, before time.Time) (int64, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var removed int64
	for id, list := range ms.stats {
		cut := sort.Search(len(list), func(i int) bool { return !list[i].Timestamp.Before(before) })
		if cut > 0 {
			removed += int64(cut)
			ms.stats[id] = append([]models.DeviceStat(nil), list[cut:]...)
		}
	}
	return removed, nil
}
