package services

import (
	"testing"
	"time"

	"github.com/Shivendrahari/SignalSync/internal/models"
)

func TestBuildTableCapsAndOrdersRows(t *testing.T) {
	t.Parallel()

	values := make([]float64, 80)
	for i := range values {
		values[i] = float64(i)
	}
	resp := response(
		entry("a", series("alpha", values...)),
		entry("b", series("beta", values...)),
	)

	table := BuildTable(resp, models.MetricLatency, NewColorAssigner(nil), time.UTC)
	if len(table.Rows) != MaxTableRows {
		t.Fatalf("expected %d rows, got %d", MaxTableRows, len(table.Rows))
	}
	for i := 1; i < len(table.Rows); i++ {
		prev, _ := time.Parse(DisplayTimeLayout, table.Rows[i-1].Timestamp)
		cur, _ := time.Parse(DisplayTimeLayout, table.Rows[i].Timestamp)
		if cur.After(prev) {
			t.Fatalf("row %d is newer than row %d", i, i-1)
		}
	}
	if table.Rows[0].Value != "79.00" {
		t.Fatalf("expected newest value first, got %s", table.Rows[0].Value)
	}
	if table.Header[2] != "Latency (ms)" {
		t.Fatalf("unexpected header %v", table.Header)
	}
}

func TestBuildTableRowFormatting(t *testing.T) {
	t.Parallel()

	colors := NewColorAssigner(nil)
	colors.Assign("a")
	resp := response(entry("a", series("alpha", 3.14159, -1)))

	table := BuildTable(resp, models.MetricCPUUsage, colors, time.UTC)
	if len(table.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(table.Rows))
	}

	down := table.Rows[0]
	if down.Status != models.StatusDown || down.StatusIcon != statusIconDown || down.Value != "-1.00" {
		t.Fatalf("unexpected down row %+v", down)
	}
	up := table.Rows[1]
	if up.Timestamp != "2024-05-01 12:00:00" || up.Value != "3.14" || up.StatusIcon != statusIconUp {
		t.Fatalf("unexpected up row %+v", up)
	}
	if up.Color != DevicePalette[0] || up.DeviceName != "alpha" {
		t.Fatalf("unexpected device cell %+v", up)
	}
	if cells := up.Cells(); cells[3] != "Up" {
		t.Fatalf("unexpected cells %v", cells)
	}
}

func TestBuildTableEmptyResponse(t *testing.T) {
	t.Parallel()

	table := BuildTable(nil, models.MetricCPUUsage, NewColorAssigner(nil), nil)
	if len(table.Rows) != 0 || len(table.Header) != 4 {
		t.Fatalf("unexpected empty table %+v", table)
	}
}
