// Package epg matches playlist channels against guide source definitions and
// renders the guide request document for the external grab tool.
package epg

import (
	"errors"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/bsimm/epg-gen/internal/m3u"
	"github.com/bsimm/epg-gen/internal/sites"
)

var (
	// ErrNoMatches is returned when no playlist channel has a guide source.
	// Callers must treat this differently from an ordinary empty result: the
	// guide request would be empty and the filtered playlist useless.
	ErrNoMatches = errors.New("no channels matched any guide source")
)

// Options controls filter policy.
type Options struct {
	// PassThrough keeps channels without a tvg-id in the filtered playlist.
	// They still never contribute to the guide request. Default is to drop
	// them, matching the upstream behavior.
	PassThrough bool
}

// Result holds the outcome of matching a playlist against the source index.
type Result struct {
	// Channels is the retained subsequence of the input, in original order.
	Channels []m3u.Channel
	// Retained maps each matched identifier to its defining source record.
	Retained map[string]sites.Record
	// Unmatched lists identifiers present in the playlist but absent from the
	// index, sorted for stable reporting.
	Unmatched []string

	Total   int // playlist entries seen
	Matched int // entries whose identifier has a guide source
	Removed int // Total - Matched
	NoID    int // entries with no identifier at all
}

// Filter computes the subset of channels that have a guide source definition
// in idx. Matching is exact and case-sensitive on the full tvg-id. Input
// order is preserved and no entry is duplicated: a repeated identifier+URL
// pair is emitted once.
func Filter(channels []m3u.Channel, idx *sites.Index, opts Options, logger *logrus.Logger) (*Result, error) {
	result := &Result{
		Retained: make(map[string]sites.Record),
		Total:    len(channels),
	}

	unmatched := make(map[string]struct{})
	seen := make(map[[2]string]struct{})

	for _, channel := range channels {
		if channel.TVGID == "" {
			result.NoID++
			if opts.PassThrough {
				result.Channels = append(result.Channels, channel)
			}
			continue
		}

		record, ok := idx.Lookup(channel.TVGID)
		if !ok {
			unmatched[channel.TVGID] = struct{}{}
			continue
		}

		key := [2]string{channel.TVGID, channel.URL}
		if _, dup := seen[key]; dup {
			logger.WithFields(logrus.Fields{
				"id":  channel.TVGID,
				"url": channel.URL,
			}).Warn("Duplicate playlist entry skipped")
			continue
		}
		seen[key] = struct{}{}

		result.Retained[channel.TVGID] = record
		result.Channels = append(result.Channels, channel)
		result.Matched++
	}

	result.Removed = result.Total - result.Matched

	for id := range unmatched {
		result.Unmatched = append(result.Unmatched, id)
	}
	sort.Strings(result.Unmatched)

	if len(result.Unmatched) > 0 {
		logger.WithField("count", len(result.Unmatched)).Warn("Playlist channels have no guide source")
		for _, id := range result.Unmatched {
			logger.Debugf("  - %s", id)
		}
	}
	if result.NoID > 0 {
		logger.WithField("count", result.NoID).Warn("Playlist channels carry no tvg-id")
	}

	logger.WithFields(logrus.Fields{
		"total":   result.Total,
		"matched": result.Matched,
		"removed": result.Removed,
	}).Info("Matched playlist against guide sources")

	if result.Matched == 0 {
		return result, ErrNoMatches
	}

	return result, nil
}
