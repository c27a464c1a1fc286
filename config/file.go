package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config for YAML decoding; durations are strings so the
// file can say "24h" rather than nanoseconds.
type fileConfig struct {
	M3UURL         string `yaml:"m3u_url"`
	RepoURL        string `yaml:"repo_url"`
	WorkDir        string `yaml:"work_dir"`
	OutputGuide    string `yaml:"output_guide"`
	OutputPlaylist string `yaml:"output_playlist"`
	CacheFile      string `yaml:"cache_file"`
	CacheMaxAge    string `yaml:"cache_max_age"`
	GuideMaxAge    string `yaml:"guide_max_age"`
	FetchTimeout   string `yaml:"fetch_timeout"`
	MaxConnections int    `yaml:"max_connections"`
	Days           int    `yaml:"days"`
	PassThrough    *bool  `yaml:"pass_through"`
	LogLevel       string `yaml:"log_level"`
}

// applyFile overlays values from a YAML file onto cfg, skipping any field
// whose flag was set explicitly on the command line.
func applyFile(cfg *Config, path string, setFlags map[string]bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	setString := func(flagName string, dst *string, v string) {
		if v != "" && !setFlags[flagName] {
			*dst = v
		}
	}
	setDuration := func(flagName string, dst *time.Duration, v string) error {
		if v == "" || setFlags[flagName] {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config file: invalid %s: %w", flagName, err)
		}
		*dst = d
		return nil
	}

	setString("m3u", &cfg.M3UURL, f.M3UURL)
	setString("repo", &cfg.RepoURL, f.RepoURL)
	setString("workdir", &cfg.WorkDir, f.WorkDir)
	setString("guide", &cfg.OutputGuide, f.OutputGuide)
	setString("playlist", &cfg.OutputPlaylist, f.OutputPlaylist)
	setString("cache", &cfg.CacheFile, f.CacheFile)
	setString("log-level", &cfg.LogLevel, f.LogLevel)

	if err := setDuration("cache-max-age", &cfg.CacheMaxAge, f.CacheMaxAge); err != nil {
		return err
	}
	if err := setDuration("guide-max-age", &cfg.GuideMaxAge, f.GuideMaxAge); err != nil {
		return err
	}
	if err := setDuration("fetch-timeout", &cfg.FetchTimeout, f.FetchTimeout); err != nil {
		return err
	}

	if f.MaxConnections != 0 && !setFlags["max-connections"] {
		cfg.MaxConnections = f.MaxConnections
	}
	if f.Days != 0 && !setFlags["days"] {
		cfg.Days = f.Days
	}
	if f.PassThrough != nil && !setFlags["pass-through"] {
		cfg.PassThrough = *f.PassThrough
	}

	return nil
}
