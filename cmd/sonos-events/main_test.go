package main

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/faytom/node-sonos/pkg/events"
)

func TestFormatServiceEventExpandsLastChange(t *testing.T) {
	seq := uint32(4)
	lastChange := `<Event xmlns="urn:schemas-upnp-org:metadata-1-0/AVT/"><InstanceID val="0">` +
		`<TransportState val="PLAYING"/><CurrentPlayMode val="SHUFFLE"/></InstanceID></Event>`

	lines := formatServiceEvent(events.ServiceEvent{
		Endpoint: "/MediaRenderer/AVTransport/Event",
		SID:      "uuid:sub1",
		Seq:      &seq,
		State:    map[string]string{"LastChange": lastChange, "Other": "x"},
		Changed:  []string{"LastChange"},
	})

	assert.Equal(t, []string{
		"[EVENT] /MediaRenderer/AVTransport/Event sid=uuid:sub1 seq=4",
		"     CurrentPlayMode = SHUFFLE",
		"     TransportState = PLAYING",
	}, lines)
}

func TestFormatServiceEventPlainProperties(t *testing.T) {
	lines := formatServiceEvent(events.ServiceEvent{
		Endpoint: "/ZoneGroupTopology/Event",
		SID:      "uuid:sub2",
		State:    map[string]string{"ZoneGroupName": "Kitchen", "ZoneGroupID": "RINCON_1:42"},
		Changed:  []string{"ZoneGroupName", "ZoneGroupID"},
	})

	assert.Equal(t, []string{
		"[EVENT] /ZoneGroupTopology/Event sid=uuid:sub2",
		"     ZoneGroupID = RINCON_1:42",
		"     ZoneGroupName = Kitchen",
	}, lines)
}

func TestFormatErrorEvent(t *testing.T) {
	got := formatErrorEvent(events.ErrorEvent{
		Err:         errors.New("resubscribe after restart: remote rejected"),
		Endpoint:    "/ZoneGroupTopology/Event",
		PreviousSID: "uuid:old",
	})
	assert.Equal(t, "[ERROR] resubscribe after restart: remote rejected endpoint=/ZoneGroupTopology/Event previous_sid=uuid:old", got)
}

func TestBrowseInterface(t *testing.T) {
	assert.Equal(t, "", browseInterface("public"))
	assert.Equal(t, "", browseInterface("192.168.1.5"))
	assert.Equal(t, "eth0", browseInterface("eth0"))
}

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"debug", "INFO", "warn", "error", ""} {
		_, err := parseLevel(s)
		assert.NoError(t, err, s)
	}
	_, err := parseLevel("trace")
	assert.Error(t, err)
}

func TestAbbreviateKeepsRunes(t *testing.T) {
	assert.Equal(t, "Küche", abbreviate("Küche", 10))

	// "ü" occupies bytes 1 and 2; a cut at 2 must back off to 1.
	got := abbreviate("Küche", 2)
	assert.Equal(t, "K...", got)
	assert.True(t, utf8.ValidString(got))

	long := strings.Repeat("é", 100)
	got = abbreviate(long, 161)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("é", 80)+"...", got)
}
