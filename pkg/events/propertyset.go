package events

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// Property is one changed value in a notification.
type Property struct {
	Name  string
	Value string
}

// DecodePropertySet decodes a UPnP event property set:
//
//	<e:propertyset xmlns:e="urn:schemas-upnp-org:event-1-0">
//	  <e:property><TransportState>PLAYING</TransportState></e:property>
//	</e:propertyset>
//
// A property's value is its text content, or its raw inner XML when it has
// child elements. Properties decoded before a syntax error are returned
// together with the error. An empty body decodes to no properties; any other
// body must have a single propertyset root element.
func DecodePropertySet(body []byte) ([]Property, error) {
	d := xml.NewDecoder(bytes.NewReader(body))

	var props []Property
	depth := 0
	inProperty := false
	rootSeen := false
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			if !rootSeen && len(bytes.TrimSpace(body)) > 0 {
				return props, syntaxError(d, "no propertyset root element")
			}
			return props, nil
		}
		if err != nil {
			return props, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				if rootSeen {
					return props, syntaxError(d, "unexpected element <"+t.Name.Local+"> after root")
				}
				if t.Name.Local != "propertyset" {
					return props, syntaxError(d, "unexpected root element <"+t.Name.Local+">")
				}
				rootSeen = true
			}
			depth++
			if depth == 2 && t.Name.Local == "property" {
				inProperty = true
				continue
			}
			if depth == 3 && inProperty {
				value, err := readValue(d, body)
				if err != nil {
					return props, err
				}
				props = append(props, Property{Name: t.Name.Local, Value: value})
				depth--
			}
		case xml.EndElement:
			if depth == 2 {
				inProperty = false
			}
			depth--
		case xml.CharData:
			if depth == 0 && len(bytes.TrimSpace(t)) > 0 {
				return props, syntaxError(d, "text outside the root element")
			}
		}
	}
}

func syntaxError(d *xml.Decoder, msg string) error {
	line, _ := d.InputPos()
	return &xml.SyntaxError{Msg: msg, Line: line}
}

// readValue consumes tokens up to the end of the current element and
// returns its value.
func readValue(d *xml.Decoder, body []byte) (string, error) {
	start := d.InputOffset()
	var text strings.Builder
	nested := false
	depth := 0
	for {
		end := d.InputOffset()
		tok, err := d.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			nested = true
			depth++
		case xml.EndElement:
			if depth == 0 {
				if nested {
					return strings.TrimSpace(string(body[start:end])), nil
				}
				return text.String(), nil
			}
			depth--
		case xml.CharData:
			if depth == 0 {
				text.Write(t)
			}
		}
	}
}

// ParseLastChange flattens a LastChange document into name/value pairs:
//
//	<Event><InstanceID val="0"><TransportState val="PLAYING"/></InstanceID></Event>
//
// yields TransportState=PLAYING. Values qualified by a channel attribute are
// keyed "Name/Channel", e.g. "Volume/Master".
func ParseLastChange(doc string) (map[string]string, error) {
	d := xml.NewDecoder(strings.NewReader(doc))

	values := make(map[string]string)
	depth := 0
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return values, nil
		}
		if err != nil {
			return values, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth < 3 {
				continue
			}
			var val, channel string
			hasVal := false
			for _, a := range t.Attr {
				switch a.Name.Local {
				case "val":
					val, hasVal = a.Value, true
				case "channel":
					channel = a.Value
				}
			}
			if !hasVal {
				continue
			}
			name := t.Name.Local
			if channel != "" {
				name += "/" + channel
			}
			values[name] = val
		case xml.EndElement:
			depth--
		}
	}
}
