// Package config provides configuration management for the EPG generator.
package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// Defaults mirror the upstream playlist and guide-source repository.
const (
	DefaultM3UURL  = "https://iptv-org.github.io/iptv/countries/us.m3u"
	DefaultRepoURL = "https://github.com/iptv-org/epg.git"
)

var (
	// ErrM3UURLRequired is returned when the playlist URL is not provided.
	ErrM3UURLRequired = errors.New("m3u URL is required")
	// ErrRepoURLRequired is returned when the guide-source repository URL is not provided.
	ErrRepoURLRequired = errors.New("guide-source repository URL is required")
	// ErrOutputRequired is returned when an output path is not provided.
	ErrOutputRequired = errors.New("output path is required")
	// ErrInvalidMaxConnections is returned when the connection count is not positive.
	ErrInvalidMaxConnections = errors.New("max connections must be positive")
	// ErrInvalidDays is returned when the guide horizon is out of range.
	ErrInvalidDays = errors.New("days must be between 1 and 14")
	// ErrInvalidLogLevel is returned when log level is invalid.
	ErrInvalidLogLevel = errors.New("invalid log level")
)

// Config holds the application configuration.
type Config struct {
	M3UURL         string        `yaml:"m3u_url"`
	RepoURL        string        `yaml:"repo_url"`
	WorkDir        string        `yaml:"work_dir"`
	OutputGuide    string        `yaml:"output_guide"`
	OutputPlaylist string        `yaml:"output_playlist"`
	CacheFile      string        `yaml:"cache_file"`
	CacheMaxAge    time.Duration `yaml:"cache_max_age"`
	GuideMaxAge    time.Duration `yaml:"guide_max_age"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout"`
	MaxConnections int           `yaml:"max_connections"`
	Days           int           `yaml:"days"`
	PassThrough    bool          `yaml:"pass_through"`
	LogLevel       string        `yaml:"log_level"`

	// Run-scoped switches, flags only.
	Refresh    bool `yaml:"-"`
	RefreshEPG bool `yaml:"-"`
}

// New creates a configuration from command-line flags. Flag defaults come
// from EPG_GEN_* environment variables; an optional -config YAML file
// supplies values for flags not set explicitly on the command line.
func New() (*Config, error) {
	cfg := &Config{}
	var configFile string

	flag.StringVar(&cfg.M3UURL, "m3u", getEnv("EPG_GEN_M3U_URL", DefaultM3UURL), "URL of the M3U playlist")
	flag.StringVar(&cfg.RepoURL, "repo", getEnv("EPG_GEN_REPO_URL", DefaultRepoURL), "Guide-source repository URL")
	flag.StringVar(&cfg.WorkDir, "workdir", getEnv("EPG_GEN_WORKDIR", "./epg-workspace"), "Working directory for the repository checkout and cache")
	flag.StringVar(&cfg.OutputGuide, "guide", getEnv("EPG_GEN_GUIDE", "./guide.xml"), "Path of the final guide file")
	flag.StringVar(&cfg.OutputPlaylist, "playlist", getEnv("EPG_GEN_PLAYLIST", "./playlist-filtered.m3u"), "Path of the filtered playlist")
	flag.StringVar(&cfg.CacheFile, "cache", os.Getenv("EPG_GEN_CACHE_FILE"), "Channel cache path (default <workdir>/channel-cache.json; empty env keeps the default)")
	flag.DurationVar(&cfg.CacheMaxAge, "cache-max-age", getEnvDuration("EPG_GEN_CACHE_MAX_AGE", 24*time.Hour), "Maximum channel cache age")
	flag.DurationVar(&cfg.GuideMaxAge, "guide-max-age", getEnvDuration("EPG_GEN_GUIDE_MAX_AGE", 12*time.Hour), "Skip guide generation when the existing guide is younger than this")
	flag.DurationVar(&cfg.FetchTimeout, "fetch-timeout", getEnvDuration("EPG_GEN_FETCH_TIMEOUT", 30*time.Second), "Playlist fetch timeout")
	flag.IntVar(&cfg.MaxConnections, "max-connections", getEnvInt("EPG_GEN_MAX_CONNECTIONS", 5), "Parallel guide requests inside the grab tool")
	flag.IntVar(&cfg.Days, "days", getEnvInt("EPG_GEN_DAYS", 1), "Days of guide data to fetch (1-14)")
	flag.BoolVar(&cfg.PassThrough, "pass-through", getEnvBool("EPG_GEN_PASS_THROUGH", false), "Keep channels without a tvg-id in the filtered playlist")
	flag.StringVar(&cfg.LogLevel, "log-level", getEnv("EPG_GEN_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	flag.BoolVar(&cfg.Refresh, "refresh", false, "Ignore the channel cache and re-match")
	flag.BoolVar(&cfg.RefreshEPG, "refresh-epg", false, "Regenerate the guide even when the existing one is recent")
	flag.StringVar(&configFile, "config", os.Getenv("EPG_GEN_CONFIG"), "Optional YAML config file")

	flag.Parse()

	if configFile != "" {
		setFlags := make(map[string]bool)
		flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
		if err := applyFile(cfg, configFile, setFlags); err != nil {
			return nil, err
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.CacheFile == "" {
		c.CacheFile = filepath.Join(c.WorkDir, "channel-cache.json")
	}
}

// RepoDir returns the checkout location inside the working directory.
func (c *Config) RepoDir() string {
	return filepath.Join(c.WorkDir, "epg")
}

// SitesDir returns the guide-source definition root inside the checkout.
func (c *Config) SitesDir() string {
	return filepath.Join(c.RepoDir(), "sites")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.M3UURL == "" {
		return ErrM3UURLRequired
	}
	if c.RepoURL == "" {
		return ErrRepoURLRequired
	}
	if c.OutputGuide == "" || c.OutputPlaylist == "" {
		return ErrOutputRequired
	}

	if _, err := url.Parse(c.M3UURL); err != nil {
		return fmt.Errorf("invalid M3U URL: %w", err)
	}

	if c.MaxConnections < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxConnections, c.MaxConnections)
	}

	if c.Days < 1 || c.Days > 14 {
		return fmt.Errorf("%w: %d", ErrInvalidDays, c.Days)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("%w: %s (must be debug, info, warn, or error)", ErrInvalidLogLevel, c.LogLevel)
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "1" || v == "true" || v == "yes"
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
