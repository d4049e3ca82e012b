package events

import (
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePropertySet(t *testing.T) {
	body := []byte(`<?xml version="1.0"?>
<e:propertyset xmlns:e="urn:schemas-upnp-org:event-1-0">
  <e:property><TransportState>PLAYING</TransportState></e:property>
  <e:property><Volume>10</Volume></e:property>
  <e:property><Empty/></e:property>
</e:propertyset>`)

	props, err := DecodePropertySet(body)
	require.NoError(t, err)
	assert.Equal(t, []Property{
		{Name: "TransportState", Value: "PLAYING"},
		{Name: "Volume", Value: "10"},
		{Name: "Empty", Value: ""},
	}, props)
}

func TestDecodePropertySetEscapedLastChange(t *testing.T) {
	body := []byte(`<e:propertyset xmlns:e="urn:schemas-upnp-org:event-1-0"><e:property>` +
		`<LastChange>&lt;Event&gt;&lt;InstanceID val=&quot;0&quot;&gt;&lt;TransportState val=&quot;PAUSED_PLAYBACK&quot;/&gt;&lt;/InstanceID&gt;&lt;/Event&gt;</LastChange>` +
		`</e:property></e:propertyset>`)

	props, err := DecodePropertySet(body)
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, `<Event><InstanceID val="0"><TransportState val="PAUSED_PLAYBACK"/></InstanceID></Event>`, props[0].Value)

	values, err := ParseLastChange(props[0].Value)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"TransportState": "PAUSED_PLAYBACK"}, values)
}

func TestDecodePropertySetNestedValue(t *testing.T) {
	body := []byte(`<e:propertyset xmlns:e="urn:schemas-upnp-org:event-1-0"><e:property>` +
		`<ZoneGroupState><ZoneGroups><ZoneGroup Coordinator="RINCON_1"/></ZoneGroups></ZoneGroupState>` +
		`</e:property></e:propertyset>`)

	props, err := DecodePropertySet(body)
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, "ZoneGroupState", props[0].Name)
	assert.Equal(t, `<ZoneGroups><ZoneGroup Coordinator="RINCON_1"/></ZoneGroups>`, props[0].Value)
}

func TestDecodePropertySetLaterValueWins(t *testing.T) {
	body := []byte(`<e:propertyset xmlns:e="urn:schemas-upnp-org:event-1-0">` +
		`<e:property><Volume>5</Volume></e:property>` +
		`<e:property><Volume>7</Volume></e:property>` +
		`</e:propertyset>`)

	props, err := DecodePropertySet(body)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Volume": "7"}, propertyMap(props))
}

func TestDecodePropertySetPartial(t *testing.T) {
	body := []byte(`<e:propertyset xmlns:e="urn:schemas-upnp-org:event-1-0">` +
		`<e:property><TransportState>PLAYING</TransportState></e:property>` +
		`<e:property><Volume>10</Mute></e:property>`)

	props, err := DecodePropertySet(body)
	require.Error(t, err)
	assert.Equal(t, []Property{{Name: "TransportState", Value: "PLAYING"}}, props)
}

func TestDecodePropertySetEmpty(t *testing.T) {
	props, err := DecodePropertySet(nil)
	require.NoError(t, err)
	assert.Empty(t, props)
}

func TestDecodePropertySetWhitespaceOnly(t *testing.T) {
	props, err := DecodePropertySet([]byte(" \r\n\t"))
	require.NoError(t, err)
	assert.Empty(t, props)
}

func TestDecodePropertySetRejectsForeignBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"plain text", "garbage not xml"},
		{"html root", "<html><body>x</body></html>"},
		{"text before root", `junk<e:propertyset xmlns:e="urn:schemas-upnp-org:event-1-0"></e:propertyset>`},
		{"second root", `<e:propertyset xmlns:e="urn:schemas-upnp-org:event-1-0"></e:propertyset><e:propertyset/>`},
		{"only a declaration", `<?xml version="1.0"?>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			props, err := DecodePropertySet([]byte(tt.body))
			var syntaxErr *xml.SyntaxError
			require.ErrorAs(t, err, &syntaxErr)
			assert.Empty(t, props)
		})
	}
}

func TestDecodePropertySetTruncated(t *testing.T) {
	body := []byte(`<e:propertyset xmlns:e="urn:schemas-upnp-org:event-1-0"><e:property><Volume>1`)

	props, err := DecodePropertySet(body)
	require.Error(t, err)
	assert.Empty(t, props)
}

func TestParseLastChangeChannels(t *testing.T) {
	doc := `<Event xmlns="urn:schemas-upnp-org:metadata-1-0/RCS/"><InstanceID val="0">` +
		`<Volume channel="Master" val="12"/><Volume channel="LF" val="100"/><Mute channel="Master" val="0"/>` +
		`<PresetNameList val="FactoryDefaults"/></InstanceID></Event>`

	values, err := ParseLastChange(doc)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"Volume/Master":  "12",
		"Volume/LF":      "100",
		"Mute/Master":    "0",
		"PresetNameList": "FactoryDefaults",
	}, values)
}

func TestParseLastChangeMalformed(t *testing.T) {
	_, err := ParseLastChange(`<Event><InstanceID val="0"><TransportState val="PLAYING">`)
	assert.Error(t, err)
}
