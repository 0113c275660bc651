// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Source types understood by the catalog.
const (
	SourceTypeSongs   = "songs"
	SourceTypeSpotify = "spotify"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Admin    AdminConfig    `yaml:"admin"`
	Playback PlaybackConfig `yaml:"playback"`
	Audio    AudioConfig    `yaml:"audio"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Songs    SongsConfig    `yaml:"songs"`
	Spotify  SpotifyConfig  `yaml:"spotify"`
	LastFM   LastFMConfig   `yaml:"lastfm"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr  string      `yaml:"addr" default:":8080"`
	Hooks HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// AdminConfig represents admin-related configuration.
type AdminConfig struct {
	Token string `yaml:"token" validate:"required"`
}

// PlaybackConfig represents transport controller configuration.
type PlaybackConfig struct {
	AutoAdvanceDelayMs int `yaml:"auto_advance_delay_ms" default:"1000" validate:"gte=0,lte=10000"`
	StatusIntervalMs   int `yaml:"status_interval_ms" default:"250" validate:"gte=10,lte=5000"`
	EventBuffer        int `yaml:"event_buffer" default:"32" validate:"gte=1,lte=1024"`
}

// AutoAdvanceDelay returns the pause between a finished track and the next one.
func (p PlaybackConfig) AutoAdvanceDelay() time.Duration {
	return time.Duration(p.AutoAdvanceDelayMs) * time.Millisecond
}

// StatusInterval returns the engine status cadence.
func (p PlaybackConfig) StatusInterval() time.Duration {
	return time.Duration(p.StatusIntervalMs) * time.Millisecond
}

// AudioConfig represents audio backend configuration.
type AudioConfig struct {
	Output         string `yaml:"output" default:"speaker" validate:"oneof=speaker clock"`
	SampleRate     int    `yaml:"sample_rate" default:"44100" validate:"oneof=22050 44100 48000"`
	BufferMs       int    `yaml:"buffer_ms" default:"100" validate:"gte=10,lte=1000"`
	MaxTrackBytes  int64  `yaml:"max_track_bytes" default:"52428800" validate:"gt=0"`
	FetchTimeoutMs int    `yaml:"fetch_timeout_ms" default:"30000" validate:"gte=0"`
}

// FetchTimeout returns the HTTP timeout for downloading a track; 0 means none.
func (a AudioConfig) FetchTimeout() time.Duration {
	return time.Duration(a.FetchTimeoutMs) * time.Millisecond
}

// CatalogConfig represents the listing sources.
type CatalogConfig struct {
	Sources []SourceConfig `yaml:"sources" validate:"required,min=1,dive"`
	Artwork bool           `yaml:"artwork"`
}

// SourceConfig represents a single listing source configuration.
type SourceConfig struct {
	Type        string         `yaml:"type" validate:"required,oneof=songs spotify"`
	DisplayName string         `yaml:"display_name" validate:"required"`
	Settings    map[string]any `yaml:"settings"`
}

// SongsConfig represents the companion REST backend.
type SongsConfig struct {
	BaseURL   string `yaml:"base_url" validate:"omitempty,url"`
	TimeoutMs int    `yaml:"timeout_ms" default:"10000" validate:"gte=0"`
}

// Timeout returns the request timeout for the songs API.
func (s SongsConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// SpotifyConfig represents Spotify API configuration.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"JP"`
}

// LastFMConfig represents Last.fm API configuration.
type LastFMConfig struct {
	APIKey string `yaml:"api_key"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse builds a configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
	if v := os.Getenv("LASTFM_API_KEY"); v != "" {
		c.LastFM.APIKey = v
	}
	if v := os.Getenv("FEEDPLAY_SONGS_URL"); v != "" {
		c.Songs.BaseURL = v
	}
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		c.Admin.Token = v
	}
}

// HasSource reports whether a source of the given type is configured.
func (c *Config) HasSource(sourceType string) bool {
	for _, s := range c.Catalog.Sources {
		if s.Type == sourceType {
			return true
		}
	}
	return false
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if err := c.validateDependencies(); err != nil {
		return err
	}

	return nil
}

// validateDependencies checks that every configured source has the
// credentials or endpoint it needs.
func (c *Config) validateDependencies() error {
	if c.HasSource(SourceTypeSongs) && c.Songs.BaseURL == "" {
		return errors.New("songs.base_url is required when a songs source is configured")
	}

	if c.HasSource(SourceTypeSpotify) {
		if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" || c.Spotify.RefreshToken == "" {
			return errors.New("spotify client_id, client_secret and refresh_token are required when a spotify source is configured")
		}
	}

	if c.Catalog.Artwork && c.LastFM.APIKey == "" {
		return errors.New("lastfm.api_key is required when catalog.artwork is enabled")
	}

	seen := make(map[string]bool)
	for i, s := range c.Catalog.Sources {
		if seen[s.DisplayName] {
			return errors.Newf("duplicate source display_name %q (source index %d)", s.DisplayName, i)
		}
		seen[s.DisplayName] = true
	}

	return nil
}
