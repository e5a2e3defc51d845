package models

import "time"

// HostSnapshot is one raw reading of the local host probes
type HostSnapshot struct {
	Timestamp   time.Time `json:"timestamp"`
	CPUUsage    float64   `json:"cpu_usage"`
	Temperature float64   `json:"temperature"`
	LatencyMS   float64   `json:"latency_ms"`
	BytesSent   uint64    `json:"bytes_sent"`
	BytesRecv   uint64    `json:"bytes_recv"`
	Reachable   bool      `json:"reachable"`
}

// HistoryWindow is a time-bounded slice of stored stats per device
type HistoryWindow struct {
	From    time.Time               `json:"from"`
	To      time.Time               `json:"to"`
	Devices map[string][]DeviceStat `json:"devices"`
}
