package epg

import (
	"bytes"
	"encoding/xml"
	"strings"
	"testing"

	"github.com/bsimm/epg-gen/internal/m3u"
	"github.com/bsimm/epg-gen/internal/sites"
)

func TestBuildRequest(t *testing.T) {
	idx := buildIndex(t, `<channels>
  <channel site="provider" lang="en" xmltv_id="B.us" site_id="b">B</channel>
  <channel site="provider" lang="en" xmltv_id="A.us" site_id="a">A</channel>
</channels>`)

	channels := []m3u.Channel{
		{TVGID: "B.us", URL: "http://example.com/b"},
		{TVGID: "A.us", URL: "http://example.com/a"},
	}
	result, err := Filter(channels, idx, Options{}, testLogger())
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}

	doc, err := BuildRequest(result.Retained)
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}

	if !bytes.HasPrefix(doc, []byte(xml.Header)) {
		t.Error("Expected XML declaration header")
	}

	var parsed struct {
		XMLName  xml.Name `xml:"channels"`
		Channels []struct {
			Site    string `xml:"site,attr"`
			XMLTVID string `xml:"xmltv_id,attr"`
			SiteID  string `xml:"site_id,attr"`
			Name    string `xml:",chardata"`
		} `xml:"channel"`
	}
	if err := xml.Unmarshal(doc, &parsed); err != nil {
		t.Fatalf("Generated request is not valid XML: %v", err)
	}

	if len(parsed.Channels) != 2 {
		t.Fatalf("Expected 2 channel definitions, got %d", len(parsed.Channels))
	}
	// Sorted by identifier regardless of playlist order.
	if parsed.Channels[0].XMLTVID != "A.us" || parsed.Channels[1].XMLTVID != "B.us" {
		t.Errorf("Expected definitions sorted by identifier, got %s then %s",
			parsed.Channels[0].XMLTVID, parsed.Channels[1].XMLTVID)
	}
	if parsed.Channels[0].SiteID != "a" {
		t.Errorf("Expected site_id 'a', got '%s'", parsed.Channels[0].SiteID)
	}
	if parsed.Channels[0].Name != "A" {
		t.Errorf("Expected display name 'A', got '%s'", parsed.Channels[0].Name)
	}
}

func TestBuildRequestDeterministic(t *testing.T) {
	retained := map[string]sites.Record{
		"C.us": {ID: "C.us", Channel: sites.Channel{Site: "p", XMLTVID: "C.us", SiteID: "c", Name: "C"}},
		"A.us": {ID: "A.us", Channel: sites.Channel{Site: "p", XMLTVID: "A.us", SiteID: "a", Name: "A"}},
		"B.us": {ID: "B.us", Channel: sites.Channel{Site: "p", XMLTVID: "B.us", SiteID: "b", Name: "B"}},
	}

	first, err := BuildRequest(retained)
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		next, err := BuildRequest(retained)
		if err != nil {
			t.Fatalf("BuildRequest failed: %v", err)
		}
		if !bytes.Equal(first, next) {
			t.Fatal("BuildRequest output is not deterministic")
		}
	}

	if strings.Index(string(first), `xmltv_id="A.us"`) > strings.Index(string(first), `xmltv_id="B.us"`) {
		t.Error("Expected A.us before B.us in rendered request")
	}
}

func TestBuildRequestEmpty(t *testing.T) {
	doc, err := BuildRequest(nil)
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}
	var parsed struct {
		XMLName xml.Name `xml:"channels"`
	}
	if err := xml.Unmarshal(doc, &parsed); err != nil {
		t.Fatalf("Empty request is not valid XML: %v", err)
	}
}
