// Package sites builds a lookup index over the guide-source definitions of an
// iptv-org epg checkout (sites/<provider>/<name>.channels.xml files).
package sites

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// channelsFileSuffix selects the definition files inside a provider directory.
const channelsFileSuffix = ".channels.xml"

// Channel is one guide-source definition as it appears in a *.channels.xml
// file. The attribute set mirrors the iptv-org epg format so a retained
// definition can be re-emitted without loss.
type Channel struct {
	XMLName xml.Name `xml:"channel"`
	Site    string   `xml:"site,attr"`
	Lang    string   `xml:"lang,attr,omitempty"`
	XMLTVID string   `xml:"xmltv_id,attr"`
	SiteID  string   `xml:"site_id,attr"`
	Name    string   `xml:",chardata"`
}

type channelsDocument struct {
	XMLName  xml.Name  `xml:"channels"`
	Channels []Channel `xml:"channel"`
}

// Record associates a channel identifier with the provider definition that
// first declared it.
type Record struct {
	ID       string
	Provider string // provider directory name, e.g. "tvguide.com"
	File     string // path of the defining *.channels.xml file
	Channel  Channel
}

// Index maps channel identifiers to their defining records.
type Index struct {
	records  map[string]Record
	files    int
	warnings int
}

// Build scans root for provider subdirectories and indexes every channel
// definition found in their *.channels.xml files. Providers are visited in
// lexicographic name order, files likewise, so duplicate identifiers resolve
// deterministically to the first definition encountered. Missing or unreadable
// directories and files contribute nothing and are logged as warnings; Build
// itself never fails on them.
func Build(root string, logger *logrus.Logger) *Index {
	idx := &Index{records: make(map[string]Record)}

	providers, err := os.ReadDir(root)
	if err != nil {
		logger.WithError(err).WithField("dir", root).Warn("Cannot read sites directory")
		idx.warnings++
		return idx
	}

	// os.ReadDir returns entries sorted by name; first-wins duplicate
	// resolution depends on that order.
	for _, provider := range providers {
		if !provider.IsDir() {
			continue
		}
		providerDir := filepath.Join(root, provider.Name())
		entries, err := os.ReadDir(providerDir)
		if err != nil {
			logger.WithError(err).WithField("dir", providerDir).Warn("Cannot read provider directory")
			idx.warnings++
			continue
		}
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), channelsFileSuffix) {
				continue
			}
			names = append(names, entry.Name())
		}
		sort.Strings(names)
		for _, name := range names {
			idx.addFile(provider.Name(), filepath.Join(providerDir, name), logger)
		}
	}

	logger.WithFields(logrus.Fields{
		"providers":   len(providers),
		"files":       idx.files,
		"identifiers": len(idx.records),
	}).Info("Built guide source index")

	return idx
}

func (idx *Index) addFile(provider, path string, logger *logrus.Logger) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.WithError(err).WithField("file", path).Warn("Cannot read channels file")
		idx.warnings++
		return
	}

	var doc channelsDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		logger.WithError(err).WithField("file", path).Warn("Cannot parse channels file")
		idx.warnings++
		return
	}
	idx.files++

	for _, channel := range doc.Channels {
		id := channel.XMLTVID
		if id == "" {
			continue
		}
		if _, exists := idx.records[id]; exists {
			continue
		}
		idx.records[id] = Record{
			ID:       id,
			Provider: provider,
			File:     path,
			Channel:  channel,
		}
	}
}

// Lookup returns the record defining id, if any.
func (idx *Index) Lookup(id string) (Record, bool) {
	r, ok := idx.records[id]
	return r, ok
}

// Len returns the number of indexed identifiers.
func (idx *Index) Len() int {
	return len(idx.records)
}

// Warnings returns how many directories or files could not be read or parsed.
func (idx *Index) Warnings() int {
	return idx.warnings
}
