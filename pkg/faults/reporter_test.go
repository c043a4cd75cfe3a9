package faults

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestReporterRecordsFaults(t *testing.T) {
	r := NewReporter(10)
	r.Report(Connection("unreachable", nil))
	r.Report(errors.New("plain error"))
	r.Report(nil) // ignored

	entries := r.Recent(0)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Category != "connection" {
		t.Errorf("first entry category = %s, want connection", entries[0].Category)
	}
	if entries[0].ID == "" || entries[0].ID == entries[1].ID {
		t.Error("entries should carry distinct non-empty IDs")
	}
	if r.Total() != 2 {
		t.Errorf("Total = %d, want 2", r.Total())
	}
}

func TestReporterRingEviction(t *testing.T) {
	r := NewReporter(3)
	for i := 0; i < 5; i++ {
		r.Report(Validation(fmt.Sprintf("fault %d", i), nil))
	}

	entries := r.Recent(0)
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Message != "fault 2" || entries[2].Message != "fault 4" {
		t.Errorf("unexpected ring contents: %v", entries)
	}
	if r.Total() != 5 {
		t.Errorf("Total = %d, want 5 (evicted entries still counted)", r.Total())
	}

	r.Clear()
	if len(r.Recent(0)) != 0 || r.Total() != 0 {
		t.Error("Clear should drop entries and reset the total")
	}
}

func TestReporterConcurrentAppend(t *testing.T) {
	r := NewReporter(50)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				r.Report(Timeout("slow call", nil))
			}
		}()
	}
	wg.Wait()

	if r.Total() != 200 {
		t.Errorf("Total = %d, want 200", r.Total())
	}
	if len(r.Recent(0)) != 50 {
		t.Errorf("ring size = %d, want 50", len(r.Recent(0)))
	}
}

func TestNilReporterSafe(t *testing.T) {
	var r *Reporter
	r.Report(Connection("x", nil)) // must not panic
}
