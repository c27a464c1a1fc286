// Package m3u provides parsing and rendering functionality for M3U playlist files.
package m3u

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

// IdentifierAttribute is the EXTINF attribute used to correlate a playlist
// channel with a guide source definition.
const IdentifierAttribute = "tvg-id"

// Channel represents a single channel entry in an M3U playlist.
type Channel struct {
	// TVGID is the tvg-id attribute. Empty when the entry carries none.
	TVGID string
	// Name is the display name following the comma on the EXTINF line.
	Name string
	// Attributes holds every key="value" token found on the EXTINF line.
	Attributes map[string]string
	// Info is the verbatim EXTINF line.
	Info string
	// Extra holds additional metadata lines between the EXTINF line and the
	// stream URL (e.g. #EXTVLCOPT), verbatim and in order.
	Extra []string
	// URL is the stream URL terminating the record.
	URL string
}

var attributeRe = regexp.MustCompile(`([a-zA-Z0-9][a-zA-Z0-9_-]*)="([^"]*)"`)

// Parse extracts channel entries from M3U playlist data, preserving source
// order. A record opens at an EXTINF line, accumulates any following comment
// lines, and closes at the first non-comment non-empty line, taken as the
// stream URL. Malformed records (an EXTINF line with no stream URL before the
// next record or end of input) are skipped and reported as warnings rather
// than failing the whole playlist.
func Parse(data []byte) (channels []Channel, warnings []string, err error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(nil, 1<<20)

	var current *Channel
	lineNum := 0

	drop := func(reason string) {
		warnings = append(warnings, fmt.Sprintf("line %d: dropping channel %q: %s", lineNum, current.Name, reason))
		current = nil
	}

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#EXTM3U") {
			continue
		}

		if strings.HasPrefix(line, "#EXTINF:") {
			if current != nil {
				drop("EXTINF without stream URL")
			}
			current = parseInfoLine(line)
			continue
		}

		if strings.HasPrefix(line, "#") {
			// Comment lines between EXTINF and URL belong to the open record.
			if current != nil {
				current.Extra = append(current.Extra, line)
			}
			continue
		}

		if current != nil {
			current.URL = line
			channels = append(channels, *current)
			current = nil
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, warnings, fmt.Errorf("error scanning M3U data: %w", err)
	}

	if current != nil {
		lineNum++
		drop("EXTINF without stream URL at end of input")
	}

	return channels, warnings, nil
}

func parseInfoLine(line string) *Channel {
	channel := &Channel{
		Info:       line,
		Attributes: make(map[string]string),
	}

	for _, m := range attributeRe.FindAllStringSubmatch(line, -1) {
		channel.Attributes[m[1]] = m[2]
	}
	channel.TVGID = channel.Attributes[IdentifierAttribute]

	parts := strings.SplitN(line, ",", 2)
	if len(parts) == 2 {
		channel.Name = strings.TrimSpace(parts[1])
	}

	return channel
}
