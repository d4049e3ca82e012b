package log

import (
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func createTestLogFile(t *testing.T, events []Event) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.evlog")
	fl, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	for _, e := range events {
		fl.Log(e)
	}
	if err := fl.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return path
}

func readAll(t *testing.T, r *Reader) []Event {
	t.Helper()
	var out []Event
	for {
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		out = append(out, e)
	}
}

func TestFileLoggerRoundTrip(t *testing.T) {
	base := time.Now().UTC()
	path := createTestLogFile(t, []Event{
		{Timestamp: base, SID: "a", Category: CategoryLease, Exchange: &ExchangeEvent{Kind: ExchangeSubscribe, StatusCode: 200, Timeout: "Second-3600"}},
		{Timestamp: base.Add(time.Second), SID: "b", Category: CategoryState, StateChange: &StateChangeEvent{Entity: StateEntityListener, NewState: "LISTENING"}},
		{Timestamp: base.Add(2 * time.Second), SID: "a", Category: CategoryError, Error: &ErrorEventData{Message: "boom", Context: "renew"}},
	})

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()

	events := readAll(t, r)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Exchange.Timeout != "Second-3600" {
		t.Errorf("timeout = %q", events[0].Exchange.Timeout)
	}
	if events[1].StateChange.NewState != "LISTENING" {
		t.Errorf("new state = %q", events[1].StateChange.NewState)
	}
	if events[2].Error.Context != "renew" {
		t.Errorf("error context = %q", events[2].Error.Context)
	}
}

func TestFileLoggerAppends(t *testing.T) {
	path := createTestLogFile(t, []Event{{SID: "first"}})

	fl, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	fl.Log(Event{SID: "second"})
	fl.Close()

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()
	if n := len(readAll(t, r)); n != 2 {
		t.Errorf("expected 2 events after append, got %d", n)
	}
}

func TestFileLoggerClosedIgnoresLogs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "closed.evlog")
	fl, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	fl.Close()
	fl.Log(Event{SID: "late"})
	if err := fl.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()
	if n := len(readAll(t, r)); n != 0 {
		t.Errorf("expected empty file, got %d events", n)
	}
}

func TestFileLoggerConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "concurrent.evlog")
	fl, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				fl.Log(Event{Category: CategoryNotify})
			}
		}()
	}
	wg.Wait()
	fl.Close()

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()
	if n := len(readAll(t, r)); n != 200 {
		t.Errorf("expected 200 events, got %d", n)
	}
}
