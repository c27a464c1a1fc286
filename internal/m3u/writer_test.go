package m3u

import (
	"bytes"
	"os"
	"testing"
)

func TestRenderRoundTrip(t *testing.T) {
	data, err := os.ReadFile("testdata/example.m3u")
	if err != nil {
		t.Fatalf("Failed to read test file: %v", err)
	}

	channels, _, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	rendered := Render(channels)

	// Rendering the parsed playlist and parsing it again must yield the same
	// entries: verbatim EXTINF lines, metadata lines, and URLs.
	reparsed, warnings, err := Parse(rendered)
	if err != nil {
		t.Fatalf("Parse of rendered output failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("Expected no warnings on rendered output, got %v", warnings)
	}
	if len(reparsed) != len(channels) {
		t.Fatalf("Expected %d channels after round trip, got %d", len(channels), len(reparsed))
	}

	for i := range channels {
		if reparsed[i].Info != channels[i].Info {
			t.Errorf("Channel %d: EXTINF changed: %q -> %q", i, channels[i].Info, reparsed[i].Info)
		}
		if reparsed[i].URL != channels[i].URL {
			t.Errorf("Channel %d: URL changed: %q -> %q", i, channels[i].URL, reparsed[i].URL)
		}
		if len(reparsed[i].Extra) != len(channels[i].Extra) {
			t.Errorf("Channel %d: extra lines changed: %v -> %v", i, channels[i].Extra, reparsed[i].Extra)
		}
	}

	// Rendering again must be byte-identical (idempotent).
	if !bytes.Equal(Render(reparsed), rendered) {
		t.Error("Render is not idempotent")
	}
}

func TestRenderHeader(t *testing.T) {
	out := Render(nil)
	if string(out) != "#EXTM3U\n" {
		t.Errorf("Expected bare header for empty channel list, got %q", out)
	}
}
