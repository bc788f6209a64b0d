package orchestrator

import "testing"

func TestPortAllocatorAllocatesWithinRange(t *testing.T) {
	pa := NewPortAllocator(30000, 30003)
	for i := 0; i < 3; i++ {
		port, err := pa.Allocate()
		if err != nil {
			t.Fatalf("Allocate: %v", err)
		}
		if port < 30000 || port >= 30003 {
			t.Errorf("Allocate returned %d, out of [30000, 30003)", port)
		}
	}
	if _, err := pa.Allocate(); err == nil {
		t.Fatal("Allocate succeeded past the range's capacity")
	}
}

func TestPortAllocatorReleaseRecycles(t *testing.T) {
	pa := NewPortAllocator(40000, 40001)
	first, err := pa.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if _, err := pa.Allocate(); err == nil {
		t.Fatal("Allocate succeeded with the single port already in use")
	}
	pa.Release(first)
	second, err := pa.Allocate()
	if err != nil {
		t.Fatalf("Allocate after Release: %v", err)
	}
	if second != first {
		t.Errorf("Allocate after Release = %d, want recycled port %d", second, first)
	}
}
