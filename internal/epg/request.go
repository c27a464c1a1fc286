package epg

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"

	"github.com/bsimm/epg-gen/internal/sites"
)

type requestDocument struct {
	XMLName  xml.Name        `xml:"channels"`
	Channels []sites.Channel `xml:"channel"`
}

// BuildRequest renders the channels.xml document consumed by the external
// grab tool: one channel definition per retained identifier, sorted by
// identifier so repeated runs produce identical output.
func BuildRequest(retained map[string]sites.Record) ([]byte, error) {
	ids := make([]string, 0, len(retained))
	for id := range retained {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	doc := requestDocument{Channels: make([]sites.Channel, 0, len(ids))}
	for _, id := range ids {
		doc.Channels = append(doc.Channels, retained[id].Channel)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	encoder := xml.NewEncoder(&buf)
	encoder.Indent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode guide request: %w", err)
	}
	buf.WriteString("\n")

	return buf.Bytes(), nil
}
