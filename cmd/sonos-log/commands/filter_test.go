package commands

import (
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/faytom/node-sonos/pkg/log"
)

func TestFilterOptionsBuild(t *testing.T) {
	opts := FilterOptions{
		SID:       testSID,
		Direction: "OUT",
		Category:  "Lease",
		TimeStart: "2026-10-18T10:00:00Z",
		TimeEnd:   "2026-10-18T11:00:00Z",
	}
	filter, err := opts.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if filter.SID != testSID {
		t.Errorf("SID = %q", filter.SID)
	}
	if filter.Direction == nil || *filter.Direction != log.DirectionOut {
		t.Errorf("Direction = %v", filter.Direction)
	}
	if filter.Category == nil || *filter.Category != log.CategoryLease {
		t.Errorf("Category = %v", filter.Category)
	}
	if filter.TimeStart == nil || filter.TimeEnd == nil {
		t.Fatal("time range not set")
	}
}

func TestFilterOptionsBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		opts FilterOptions
	}{
		{"bad direction", FilterOptions{Direction: "up"}},
		{"bad category", FilterOptions{Category: "wire"}},
		{"bad start", FilterOptions{TimeStart: "yesterday"}},
		{"bad end", FilterOptions{TimeEnd: "2026-10-18"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.opts.Build(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRunFilterWritesMatchingEvents(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	output := filepath.Join(t.TempDir(), "out.evlog")

	n, err := RunFilter(path, output, FilterOptions{Direction: "out"})
	if err != nil {
		t.Fatalf("RunFilter: %v", err)
	}
	if n != 3 {
		t.Errorf("filtered %d events, want 3", n)
	}

	reader, err := log.NewReader(output)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer reader.Close()

	count := 0
	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if event.Direction != log.DirectionOut {
			t.Errorf("unexpected direction %s", event.Direction)
		}
		count++
	}
	if count != 3 {
		t.Errorf("read %d events, want 3", count)
	}
}

func TestRunFilterTimeRange(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	output := filepath.Join(t.TempDir(), "out.evlog")

	n, err := RunFilter(path, output, FilterOptions{
		TimeStart: "2026-10-18T10:15:33Z",
		TimeEnd:   "2026-10-18T10:15:35Z",
	})
	if err != nil {
		t.Fatalf("RunFilter: %v", err)
	}
	// Events at +1s (10:15:33.12) and +2s (10:15:34.12).
	if n != 2 {
		t.Errorf("filtered %d events, want 2", n)
	}
}
