package services

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/Shivendrahari/SignalSync/internal/logger"
	"github.com/Shivendrahari/SignalSync/internal/models"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	psnet "github.com/shirou/gopsutil/v3/net"
)

// Probe takes one reading of a monitored host
type Probe interface {
	Sample(ctx context.Context) (models.HostSnapshot, error)
}

// HostProbe reads the local machine with gopsutil and measures latency as
// the TCP connect time to a target address
type HostProbe struct {
	target      string
	dialTimeout time.Duration
	log         *logger.PrefixLogger
}

// NewHostProbe creates a probe timing connections to target ("host:port");
// an empty target skips the latency probe
func NewHostProbe(target string, dialTimeout time.Duration) *HostProbe {
	if dialTimeout <= 0 {
		dialTimeout = 3 * time.Second
	}
	return &HostProbe{
		target:      target,
		dialTimeout: dialTimeout,
		log:         logger.WithPrefix("[PROBE] "),
	}
}

// Sample reads cpu, temperature, network counters and latency. Only a cpu
// failure is fatal; the other readings degrade to zero.
func (p *HostProbe) Sample(ctx context.Context) (models.HostSnapshot, error) {
	snap := models.HostSnapshot{Timestamp: time.Now(), Reachable: true}

	percentage, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return snap, fmt.Errorf("cpu usage: %w", err)
	}
	if len(percentage) > 0 {
		snap.CPUUsage = percentage[0]
	}

	// gopsutil reports unreadable sensors as a warning next to partial results
	temps, err := host.SensorsTemperaturesWithContext(ctx)
	if err != nil && len(temps) == 0 {
		p.log.Debug("Could not read temperature sensors: %v", err)
	}
	for _, t := range temps {
		if t.Temperature > snap.Temperature {
			snap.Temperature = t.Temperature
		}
	}

	counters, err := psnet.IOCountersWithContext(ctx, true)
	if err != nil {
		p.log.Warn("Could not get network counters: %v", err)
	}
	for _, counter := range counters {
		snap.BytesSent += counter.BytesSent
		snap.BytesRecv += counter.BytesRecv
	}

	if p.target != "" {
		latency, err := p.dial(ctx)
		if err != nil {
			p.log.Debug("Latency probe to %s failed: %v", p.target, err)
			snap.Reachable = false
		} else {
			snap.LatencyMS = float64(latency.Microseconds()) / 1000
		}
	}

	return snap, nil
}

func (p *HostProbe) dial(ctx context.Context) (time.Duration, error) {
	dialer := net.Dialer{Timeout: p.dialTimeout}
	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", p.target)
	if err != nil {
		return 0, err
	}
	elapsed := time.Since(start)
	conn.Close()
	return elapsed, nil
}
