package services

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DevicePalette is the fixed set of device colors
var DevicePalette = []string{
	"#1976d2", "#2196f3", "#64b5f6", "#bbdefb", // Blues
	"#388e3c", "#4caf50", "#81c784", "#c8e6c9", // Greens
	"#d32f2f", "#f44336", "#e57373", "#ffcdd2", // Reds
	"#ffa000", "#ffc107", "#ffd54f", "#ffecb3", // Ambers
	"#7b1fa2", "#9c27b0", "#ba68c8", "#e1bee7", // Purples
	"#00796b", "#009688", "#4db6ac", "#b2dfdb", // Teals
}

// ColorAssigner hands out palette colors to device ids. A color, once
// assigned, is never changed for the lifetime of the assigner.
type ColorAssigner struct {
	mu       sync.Mutex
	colors   map[string]string
	assigned int
	rng      *rand.Rand
}

// NewColorAssigner creates an assigner; rng may be nil
func NewColorAssigner(rng *rand.Rand) *ColorAssigner {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &ColorAssigner{
		colors: make(map[string]string),
		rng:    rng,
	}
}

// Assign gives id the next palette color in first-seen order
func (ca *ColorAssigner) Assign(id string) string {
	ca.mu.Lock()
	defer ca.mu.Unlock()

	if c, ok := ca.colors[id]; ok {
		return c
	}
	c := DevicePalette[ca.assigned%len(DevicePalette)]
	ca.colors[id] = c
	ca.assigned++
	return c
}

// ColorFor returns id's color, picking a random palette color for a device
// that was never selected (e.g. one the backend returned unasked)
func (ca *ColorAssigner) ColorFor(id string) string {
	ca.mu.Lock()
	defer ca.mu.Unlock()

	if c, ok := ca.colors[id]; ok {
		return c
	}
	c := DevicePalette[ca.rng.Intn(len(DevicePalette))]
	ca.colors[id] = c
	return c
}

// Lookup returns id's color without assigning one
func (ca *ColorAssigner) Lookup(id string) (string, bool) {
	ca.mu.Lock()
	defer ca.mu.Unlock()
	c, ok := ca.colors[id]
	return c, ok
}

// Snapshot returns a copy of all assignments
func (ca *ColorAssigner) Snapshot() map[string]string {
	ca.mu.Lock()
	defer ca.mu.Unlock()
	out := make(map[string]string, len(ca.colors))
	for k, v := range ca.colors {
		out[k] = v
	}
	return out
}

// HexToRGBA converts "#rrggbb" to a css rgba() string; an unparsable color
// falls back to the first palette blue
func HexToRGBA(hex string, alpha float64) string {
	r, g, b, ok := parseHex(hex)
	if !ok {
		r, g, b = 25, 118, 210
	}
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", r, g, b, strconv.FormatFloat(alpha, 'f', -1, 64))
}

func parseHex(hex string) (r, g, b uint8, ok bool) {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), true
}
