// Package data provides remote playlist fetching for the EPG generator.
package data

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bsimm/epg-gen/internal/m3u"
)

var (
	// ErrUnexpectedStatus is returned when the HTTP response has an unexpected status code.
	ErrUnexpectedStatus = errors.New("unexpected status code")
)

// Fetcher downloads and parses the source M3U playlist. One attempt, no
// retries: a transport or status failure is fatal for the run.
type Fetcher struct {
	client *http.Client
	logger *logrus.Logger
}

// NewFetcher creates a new fetcher instance.
func NewFetcher(timeout time.Duration, logger *logrus.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchPlaylist retrieves the playlist at url and parses it into channel
// entries. Parse warnings are logged and counted but do not fail the fetch.
func (f *Fetcher) FetchPlaylist(url string) ([]m3u.Channel, error) {
	f.logger.WithField("url", url).Info("Fetching M3U playlist")

	resp, err := f.client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlist: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist body: %w", err)
	}

	channels, warnings, err := m3u.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse playlist: %w", err)
	}
	for _, warning := range warnings {
		f.logger.WithField("warning", warning).Warn("Malformed playlist record skipped")
	}

	f.logger.WithFields(logrus.Fields{
		"channels": len(channels),
		"warnings": len(warnings),
	}).Info("Successfully fetched playlist")

	return channels, nil
}
