package log

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type captureLogger struct {
	mu     sync.Mutex
	events []Event
}

func (c *captureLogger) Log(event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureLogger) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestNoopLogger(t *testing.T) {
	var l Logger = NoopLogger{}
	l.Log(Event{Timestamp: time.Now()})
}

func TestMultiLoggerFansOut(t *testing.T) {
	a, b := &captureLogger{}, &captureLogger{}
	m := NewMultiLogger(a, nil, b)

	m.Log(Event{SID: "uuid:1"})
	m.Log(Event{SID: "uuid:2"})

	if a.count() != 2 || b.count() != 2 {
		t.Fatalf("expected 2 events per logger, got %d and %d", a.count(), b.count())
	}
	if a.events[1].SID != "uuid:2" {
		t.Errorf("SID = %q, want uuid:2", a.events[1].SID)
	}
}

func TestEnumStrings(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{DirectionIn.String(), "IN"},
		{DirectionOut.String(), "OUT"},
		{Direction(9).String(), "UNKNOWN"},
		{CategoryLease.String(), "LEASE"},
		{CategoryNotify.String(), "NOTIFY"},
		{CategoryState.String(), "STATE"},
		{CategoryError.String(), "ERROR"},
		{ExchangeRenew.String(), "RENEW"},
		{ExchangeNotify.String(), "NOTIFY"},
		{StateEntitySubscription.String(), "SUBSCRIPTION"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestParseCategory(t *testing.T) {
	c, ok := ParseCategory("NOTIFY")
	if !ok || c != CategoryNotify {
		t.Errorf("ParseCategory(NOTIFY) = %v, %v", c, ok)
	}
	if _, ok := ParseCategory("bogus"); ok {
		t.Error("ParseCategory(bogus) should fail")
	}
}

func TestEncodeDecodeNotify(t *testing.T) {
	seq := uint32(7)
	in := Event{
		Timestamp:  time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC),
		ListenerID: "listener-1",
		Direction:  DirectionIn,
		Category:   CategoryNotify,
		RemoteAddr: "192.168.1.20:1400",
		Endpoint:   "/MediaRenderer/AVTransport/Event",
		SID:        "uuid:RINCON_1",
		Exchange: &ExchangeEvent{
			Kind:       ExchangeNotify,
			StatusCode: 200,
			Seq:        &seq,
			Properties: map[string]string{"LastChange": "<Event/>"},
		},
	}

	data, err := EncodeEvent(in)
	if err != nil {
		t.Fatalf("EncodeEvent: %v", err)
	}
	out, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}

	if !out.Timestamp.Equal(in.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", out.Timestamp, in.Timestamp)
	}
	if out.SID != in.SID || out.Endpoint != in.Endpoint {
		t.Errorf("got SID %q endpoint %q", out.SID, out.Endpoint)
	}
	if out.Exchange == nil || out.Exchange.Seq == nil || *out.Exchange.Seq != 7 {
		t.Fatalf("Exchange seq not preserved: %+v", out.Exchange)
	}
	if out.Exchange.Properties["LastChange"] != "<Event/>" {
		t.Errorf("properties = %v", out.Exchange.Properties)
	}
	if out.StateChange != nil || out.Error != nil {
		t.Error("unexpected payloads decoded")
	}
}

func TestEncodeEventDeterministic(t *testing.T) {
	ev := Event{
		Timestamp: time.Date(2026, 10, 18, 9, 0, 0, 1, time.UTC),
		Category:  CategoryNotify,
		SID:       "uuid:RINCON_1",
		Exchange: &ExchangeEvent{
			Kind:       ExchangeNotify,
			Properties: map[string]string{"Volume": "3", "Mute": "0", "TransportState": "PLAYING", "LastChange": ""},
		},
	}

	first, err := EncodeEvent(ev)
	if err != nil {
		t.Fatalf("EncodeEvent: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := EncodeEvent(ev)
		if err != nil {
			t.Fatalf("EncodeEvent: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("encoding of the same event differs between calls")
		}
	}
}

func TestDecodeEventRejectsGarbage(t *testing.T) {
	if _, err := DecodeEvent([]byte{0xff, 0x00, 0x13}); err == nil {
		t.Error("expected error for invalid capture data")
	}
}

func TestFileLoggerCreatesCaptureFileMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mode.evlog")
	fl, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	defer fl.Close()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm()&^captureFileMode != 0 {
		t.Errorf("mode = %v, want at most %v", info.Mode().Perm(), os.FileMode(captureFileMode))
	}
}
