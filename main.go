// Package main implements the EPG generator: it filters an M3U playlist down
// to channels with a guide source and drives the external grab tool to
// produce the matching guide file.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bsimm/epg-gen/config"
	"github.com/bsimm/epg-gen/internal/cache"
	"github.com/bsimm/epg-gen/internal/data"
	"github.com/bsimm/epg-gen/internal/epg"
	"github.com/bsimm/epg-gen/internal/grabber"
	"github.com/bsimm/epg-gen/internal/m3u"
	"github.com/bsimm/epg-gen/internal/sites"
)

func main() {
	// Configure logrus
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	cfg, err := config.New()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to parse log level")
	}
	logrus.SetLevel(level)

	logger := logrus.StandardLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("Run failed")
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		return err
	}

	// Clone or update the guide-source repository and its dependencies.
	tool := grabber.New(cfg.RepoDir(), cfg.RepoURL, logger)
	if err := tool.EnsureRepo(ctx); err != nil {
		return err
	}
	if err := tool.InstallDeps(ctx); err != nil {
		return err
	}

	snapshot, err := matchedChannels(cfg, logger)
	if err != nil {
		return err
	}

	// Hand the guide request to the grab tool and keep a copy of the
	// filtered playlist next to the final guide.
	if err := os.WriteFile(tool.GuidePath("channels.xml"), snapshot.Request, 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(cfg.OutputPlaylist, m3u.Render(snapshot.Channels), 0o644); err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"path":     cfg.OutputPlaylist,
		"channels": len(snapshot.Channels),
	}).Info("Filtered playlist written")

	if !cfg.RefreshEPG && cache.FileFresh(cfg.OutputGuide, cfg.GuideMaxAge) {
		logger.WithField("path", cfg.OutputGuide).Info("Existing guide is recent, skipping generation (use -refresh-epg to force)")
		return nil
	}

	if err := tool.Grab(ctx, grabber.GrabOptions{
		ChannelsFile:   "channels.xml",
		OutputFile:     "guide.xml",
		MaxConnections: cfg.MaxConnections,
		Days:           cfg.Days,
	}); err != nil {
		return err
	}

	if err := grabber.CopyFile(tool.GuidePath("guide.xml"), cfg.OutputGuide); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"guide":    cfg.OutputGuide,
		"playlist": cfg.OutputPlaylist,
	}).Info("EPG generation complete")

	return nil
}

// matchedChannels returns the retained channels and the rendered guide
// request, from the cache when it is fresh, otherwise by fetching the
// playlist and matching it against the guide-source index.
func matchedChannels(cfg *config.Config, logger *logrus.Logger) (*cache.Snapshot, error) {
	if !cfg.Refresh {
		if snapshot := cache.Load(cfg.CacheFile, cfg.CacheMaxAge); snapshot != nil {
			logger.WithFields(logrus.Fields{
				"age":      time.Since(snapshot.Timestamp).Round(time.Minute).String(),
				"channels": len(snapshot.Channels),
			}).Info("Using cached channel matches (use -refresh to force)")
			return snapshot, nil
		}
	}

	fetcher := data.NewFetcher(cfg.FetchTimeout, logger)
	channels, err := fetcher.FetchPlaylist(cfg.M3UURL)
	if err != nil {
		return nil, err
	}

	index := sites.Build(cfg.SitesDir(), logger)

	result, err := epg.Filter(channels, index, epg.Options{PassThrough: cfg.PassThrough}, logger)
	if err != nil {
		return nil, err
	}

	request, err := epg.BuildRequest(result.Retained)
	if err != nil {
		return nil, err
	}

	snapshot := &cache.Snapshot{
		Timestamp: time.Now(),
		Channels:  result.Channels,
		Request:   request,
	}
	if err := cache.Save(cfg.CacheFile, snapshot); err != nil {
		logger.WithError(err).Warn("Failed to save channel cache")
	}

	return snapshot, nil
}
