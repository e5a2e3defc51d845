package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status is the up/down state of a device at sample time
type Status string

const (
	StatusUp   Status = "Up"
	StatusDown Status = "Down"
)

// SamplePoint is one timestamped observation of a metric
type SamplePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	Status    Status    `json:"status"`
}

// Accepted timestamp layouts, tried in order. Naive layouts are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses an ISO 8601 timestamp as emitted by the performance API
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

func (p *SamplePoint) UnmarshalJSON(data []byte) error {
	var raw struct {
		Timestamp string  `json:"timestamp"`
		Value     float64 `json:"value"`
		Status    Status  `json:"status"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ts, err := ParseTimestamp(raw.Timestamp)
	if err != nil {
		return err
	}
	p.Timestamp = ts
	p.Value = raw.Value
	p.Status = raw.Status
	return nil
}

// DeviceSeries is the sample sequence of one device
type DeviceSeries struct {
	Name string        `json:"name"`
	Data []SamplePoint `json:"data"`
}

// DeviceEntry pairs a device id with its series
type DeviceEntry struct {
	ID     string
	Series DeviceSeries
}

// DeviceSet is a device-id keyed object that keeps the key order of the
// JSON it was decoded from
type DeviceSet []DeviceEntry

// Get returns the series for id
func (s DeviceSet) Get(id string) (DeviceSeries, bool) {
	for _, e := range s {
		if e.ID == id {
			return e.Series, true
		}
	}
	return DeviceSeries{}, false
}

func (s DeviceSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.ID)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Series)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (s *DeviceSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*s = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("devices: expected object, got %v", tok)
	}

	out := DeviceSet{}
	seen := map[string]int{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("devices: expected string key, got %v", keyTok)
		}
		var series DeviceSeries
		if err := dec.Decode(&series); err != nil {
			return fmt.Errorf("devices[%s]: %w", key, err)
		}
		// Duplicate keys: last value wins at the first key's position
		if idx, dup := seen[key]; dup {
			out[idx].Series = series
			continue
		}
		seen[key] = len(out)
		out = append(out, DeviceEntry{ID: key, Series: series})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = out
	return nil
}

// PerformanceResponse is the body returned by the performance API
type PerformanceResponse struct {
	Devices DeviceSet `json:"devices"`
}

// Empty reports whether the response carries no devices
func (r *PerformanceResponse) Empty() bool {
	return r == nil || len(r.Devices) == 0
}

// CachedResponse is a session's last loaded response together with the
// filter that produced it
type CachedResponse struct {
	Filter   FilterState          `json:"filter"`
	Response *PerformanceResponse `json:"response"`
}
