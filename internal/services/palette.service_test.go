package services

import (
	"math/rand"
	"testing"
)

func TestColorAssignerFirstSeenOrderWithWrap(t *testing.T) {
	t.Parallel()

	ca := NewColorAssigner(rand.New(rand.NewSource(1)))
	for i := 0; i < len(DevicePalette); i++ {
		ca.Assign(string(rune('A' + i)))
	}
	if got := ca.Assign("overflow"); got != DevicePalette[0] {
		t.Fatalf("expected palette to wrap to %s, got %s", DevicePalette[0], got)
	}
	if got, _ := ca.Lookup("B"); got != DevicePalette[1] {
		t.Fatalf("expected second color for B, got %s", got)
	}
}

func TestColorAssignerNeverReassigns(t *testing.T) {
	t.Parallel()

	ca := NewColorAssigner(rand.New(rand.NewSource(7)))
	first := ca.Assign("dev-1")
	ca.Assign("dev-2")
	if again := ca.Assign("dev-1"); again != first {
		t.Fatalf("color changed from %s to %s", first, again)
	}

	random := ca.ColorFor("unselected")
	for i := 0; i < 5; i++ {
		if c := ca.ColorFor("unselected"); c != random {
			t.Fatalf("random color not persisted: %s vs %s", c, random)
		}
	}
	if c := ca.Assign("unselected"); c != random {
		t.Fatalf("Assign replaced a random color: %s vs %s", c, random)
	}
}

func TestHexToRGBA(t *testing.T) {
	t.Parallel()

	if got := HexToRGBA("#1976d2", 0.1); got != "rgba(25, 118, 210, 0.1)" {
		t.Fatalf("unexpected rgba %q", got)
	}
	if got := HexToRGBA("", 0.5); got != "rgba(25, 118, 210, 0.5)" {
		t.Fatalf("unexpected fallback %q", got)
	}
	if got := HexToRGBA("ffa000", 1); got != "rgba(255, 160, 0, 1)" {
		t.Fatalf("unexpected rgba %q", got)
	}
}
