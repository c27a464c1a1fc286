package sites

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func writeChannelsFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
}

func TestBuild(t *testing.T) {
	root := t.TempDir()

	writeChannelsFile(t, filepath.Join(root, "tvguide.com"), "tvguide.com.channels.xml", `<?xml version="1.0" encoding="UTF-8"?>
<channels>
  <channel site="tvguide.com" lang="en" xmltv_id="CNN.us" site_id="110">CNN</channel>
  <channel site="tvguide.com" lang="en" xmltv_id="ESPN.us" site_id="111">ESPN</channel>
</channels>`)
	writeChannelsFile(t, filepath.Join(root, "gatotv.com"), "gatotv.com.channels.xml", `<channels>
  <channel site="gatotv.com" lang="es" xmltv_id="KQED.us" site_id="kqed">KQED</channel>
</channels>`)

	idx := Build(root, testLogger())

	if idx.Len() != 3 {
		t.Fatalf("Expected 3 identifiers, got %d", idx.Len())
	}

	record, ok := idx.Lookup("CNN.us")
	if !ok {
		t.Fatal("Expected CNN.us to be indexed")
	}
	if record.Provider != "tvguide.com" {
		t.Errorf("Expected provider 'tvguide.com', got '%s'", record.Provider)
	}
	if record.Channel.SiteID != "110" {
		t.Errorf("Expected site_id '110', got '%s'", record.Channel.SiteID)
	}
	if record.Channel.Name != "CNN" {
		t.Errorf("Expected display name 'CNN', got '%s'", record.Channel.Name)
	}

	if _, ok := idx.Lookup("missing.us"); ok {
		t.Error("Lookup of unknown identifier should fail")
	}
}

func TestBuildDuplicateFirstWins(t *testing.T) {
	root := t.TempDir()

	// Providers are traversed in lexicographic order: p1 before p2.
	writeChannelsFile(t, filepath.Join(root, "p1"), "p1.channels.xml", `<channels>
  <channel site="p1" xmltv_id="X.us" site_id="p1-x">X from p1</channel>
</channels>`)
	writeChannelsFile(t, filepath.Join(root, "p2"), "p2.channels.xml", `<channels>
  <channel site="p2" xmltv_id="X.us" site_id="p2-x">X from p2</channel>
</channels>`)

	idx := Build(root, testLogger())

	record, ok := idx.Lookup("X.us")
	if !ok {
		t.Fatal("Expected X.us to be indexed")
	}
	if record.Provider != "p1" {
		t.Errorf("Expected first provider 'p1' to win, got '%s'", record.Provider)
	}
	if record.Channel.SiteID != "p1-x" {
		t.Errorf("Expected site_id 'p1-x', got '%s'", record.Channel.SiteID)
	}
}

func TestBuildMissingRoot(t *testing.T) {
	idx := Build(filepath.Join(t.TempDir(), "does-not-exist"), testLogger())

	if idx.Len() != 0 {
		t.Errorf("Expected empty index for missing root, got %d entries", idx.Len())
	}
	if idx.Warnings() != 1 {
		t.Errorf("Expected 1 warning for missing root, got %d", idx.Warnings())
	}
}

func TestBuildMalformedFile(t *testing.T) {
	root := t.TempDir()

	writeChannelsFile(t, filepath.Join(root, "bad"), "bad.channels.xml", `<channels><channel unclosed`)
	writeChannelsFile(t, filepath.Join(root, "good"), "good.channels.xml", `<channels>
  <channel site="good" xmltv_id="A.us" site_id="a">A</channel>
</channels>`)

	idx := Build(root, testLogger())

	if idx.Len() != 1 {
		t.Errorf("Expected the well-formed file to still be indexed, got %d entries", idx.Len())
	}
	if idx.Warnings() != 1 {
		t.Errorf("Expected 1 warning for the malformed file, got %d", idx.Warnings())
	}
	if _, ok := idx.Lookup("A.us"); !ok {
		t.Error("Expected A.us from the well-formed file")
	}
}

func TestBuildIgnoresOtherFiles(t *testing.T) {
	root := t.TempDir()

	writeChannelsFile(t, filepath.Join(root, "p"), "p.channels.xml", `<channels>
  <channel site="p" xmltv_id="A.us" site_id="a">A</channel>
</channels>`)
	writeChannelsFile(t, filepath.Join(root, "p"), "p.config.js", `module.exports = {}`)
	writeChannelsFile(t, filepath.Join(root, "p"), "readme.md", `# p`)

	idx := Build(root, testLogger())

	if idx.Len() != 1 {
		t.Errorf("Expected only *.channels.xml files to be indexed, got %d entries", idx.Len())
	}
}
