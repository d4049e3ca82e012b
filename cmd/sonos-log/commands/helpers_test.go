package commands

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/faytom/node-sonos/pkg/log"
)

var testStart = time.Date(2026, 10, 18, 10, 15, 32, 123456000, time.UTC)

const (
	testListener = "7c1f0a52-4b1e-4f0e-9d3c-0f6a2b8c9d10"
	testSID      = "uuid:RINCON_000E58A0123401400_sub0000000101"
	testEndpoint = "/MediaRenderer/AVTransport/Event"
)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.evlog")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

// sampleEvents is a short subscription session: subscribe, one
// notification, a failed renewal and a state change.
func sampleEvents() []log.Event {
	seq := uint32(0)
	took := 12 * time.Millisecond
	return []log.Event{
		{
			Timestamp:  testStart,
			ListenerID: testListener,
			Direction:  log.DirectionOut,
			Category:   log.CategoryLease,
			RemoteAddr: "192.168.1.20:1400",
			Endpoint:   testEndpoint,
			SID:        testSID,
			Exchange: &log.ExchangeEvent{
				Kind:       log.ExchangeSubscribe,
				StatusCode: 200,
				Timeout:    "Second-3600",
				Duration:   &took,
			},
		},
		{
			Timestamp:  testStart.Add(time.Second),
			ListenerID: testListener,
			Direction:  log.DirectionIn,
			Category:   log.CategoryNotify,
			RemoteAddr: "192.168.1.20:50112",
			Endpoint:   testEndpoint,
			SID:        testSID,
			Exchange: &log.ExchangeEvent{
				Kind:       log.ExchangeNotify,
				Seq:        &seq,
				Properties: map[string]string{"TransportState": "PLAYING"},
			},
		},
		{
			Timestamp:  testStart.Add(2 * time.Second),
			ListenerID: testListener,
			Direction:  log.DirectionOut,
			Category:   log.CategoryLease,
			Endpoint:   testEndpoint,
			SID:        testSID,
			Exchange: &log.ExchangeEvent{
				Kind:       log.ExchangeRenew,
				StatusCode: 500,
			},
		},
		{
			Timestamp:  testStart.Add(3 * time.Second),
			ListenerID: testListener,
			Direction:  log.DirectionOut,
			Category:   log.CategoryState,
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntityListener,
				OldState: "LISTENING",
				NewState: "CLOSED",
			},
		},
	}
}
