package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/enbility/zeroconf/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, out <-chan *Player) *Player {
	t.Helper()
	select {
	case p := <-out:
		return p
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for player")
		return nil
	}
}

func TestAggregateEmitsOncePerInstance(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)
	out := make(chan *Player)
	go aggregate(ctx, entries, removed, out)

	entries <- testEntry("RINCON_1@Kitchen", "10.0.0.1")
	p := receive(t, out)
	assert.Equal(t, "Kitchen", p.RoomName)

	// Same instance on another interface is merged, not emitted.
	entries <- testEntry("RINCON_1@Kitchen", "10.0.1.1")
	entries <- testEntry("RINCON_2@Office", "10.0.0.2")
	p = receive(t, out)
	assert.Equal(t, "Office", p.RoomName)

	// Removing every address forgets the player; it is emitted again.
	removed <- testEntry("RINCON_1@Kitchen", "10.0.0.1", "10.0.1.1")
	entries <- testEntry("RINCON_1@Kitchen", "10.0.0.1")
	p = receive(t, out)
	assert.Equal(t, "RINCON_1@Kitchen", p.InstanceName)
}

func TestAggregateSkipsInvalidEntries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	out := make(chan *Player)
	go aggregate(ctx, entries, nil, out)

	entries <- &zeroconf.ServiceEntry{}
	entries <- testEntry("RINCON_3@Den", "10.0.0.3")
	assert.Equal(t, "Den", receive(t, out).RoomName)
}

func TestAggregateClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	entries := make(chan *zeroconf.ServiceEntry)
	out := make(chan *Player)
	go aggregate(ctx, entries, nil, out)

	cancel()
	select {
	case _, ok := <-out:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("output not closed")
	}
}

func TestBrowseAfterStop(t *testing.T) {
	b := NewBrowser(DefaultBrowserConfig())
	b.Stop()

	_, err := b.Browse(context.Background())
	require.ErrorIs(t, err, ErrBrowserStopped)
}

func TestBrowseUnknownInterface(t *testing.T) {
	cfg := DefaultBrowserConfig()
	cfg.Interface = "does-not-exist0"

	_, err := NewBrowser(cfg).Browse(context.Background())
	assert.Error(t, err)
}
