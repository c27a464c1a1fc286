// Package cache persists match results between runs so an unchanged playlist
// does not require re-fetching and re-matching.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bsimm/epg-gen/internal/m3u"
)

// Snapshot is the cached outcome of a fetch-and-match pass: the retained
// channels and the rendered guide request document.
type Snapshot struct {
	Timestamp time.Time     `json:"timestamp"`
	Channels  []m3u.Channel `json:"channels"`
	Request   []byte        `json:"request"`
}

// Load reads a snapshot from path. Returns nil when the file is absent,
// unreadable, invalid, or older than maxAge — callers fall back to a full
// fetch in every such case.
func Load(path string, maxAge time.Duration) *Snapshot {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil
	}
	if time.Since(snapshot.Timestamp) > maxAge {
		return nil
	}
	if len(snapshot.Channels) == 0 {
		return nil
	}
	return &snapshot
}

// Save writes the snapshot to path atomically (temp file + rename). A nil
// error with path == "" means caching is disabled.
func Save(path string, snapshot *Snapshot) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(filepath.Clean(path)), 0o755); err != nil {
		return fmt.Errorf("channel cache: mkdir: %w", err)
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("channel cache: marshal: %w", err)
	}

	dir := filepath.Dir(filepath.Clean(path))
	tmp, err := os.CreateTemp(dir, ".channel-cache-*.json.tmp")
	if err != nil {
		return fmt.Errorf("channel cache: create temp: %w", err)
	}
	tmpName := tmp.Name()
	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		os.Remove(tmpName)
		if writeErr != nil {
			return fmt.Errorf("channel cache: write: %w", writeErr)
		}
		return fmt.Errorf("channel cache: close: %w", closeErr)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("channel cache: rename: %w", err)
	}
	return nil
}

// FileFresh reports whether path exists and was modified within maxAge. Used
// to skip regenerating a recent guide file.
func FileFresh(path string, maxAge time.Duration) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) <= maxAge
}
