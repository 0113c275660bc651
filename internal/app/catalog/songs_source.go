package catalog

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/feedplay/internal/domain/playlist"
)

// Listing contexts understood by the songs source.
const (
	ContextRecent     = "recent"
	ContextUserPrefix = "user:"
)

type SongsSourceConfig struct {
	// Limit caps the number of tracks per listing; 0 means no cap.
	Limit int `yaml:"limit" mapstructure:"limit" default:"0" validate:"gte=0,lte=1000"`
	// DefaultContext is used when a request names no context.
	DefaultContext string `yaml:"default_context" mapstructure:"default_context" default:"recent"`
}

// SongsSource lists tracks from the songs backend.
type SongsSource struct {
	client SongsClient
	config *SongsSourceConfig
}

// NewSongsSource creates a new SongsSource.
func NewSongsSource(client SongsClient, settings map[string]any) (*SongsSource, error) {
	var config SongsSourceConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	zlog.Debug().Msgf("songs source config: %+v", config)
	if err := validator.New().Struct(config); err != nil {
		zlog.Error().Msgf("songs source validation failed: %v", err)
		return nil, errors.Wrap(err, "validation failed")
	}
	return &SongsSource{
		client: client,
		config: &config}, nil
}

// List returns the recent songs, or a user's uploads for "user:<name>".
func (s *SongsSource) List(ctx context.Context, listingContext string) (playlist.Playlist, error) {
	listingContext = strings.TrimSpace(listingContext)
	if listingContext == "" {
		listingContext = s.config.DefaultContext
	}

	p := playlist.Playlist{
		ID:     listingContext,
		Source: s.Name(),
	}

	switch {
	case listingContext == ContextRecent:
		tracks, err := s.client.ListSongs(ctx)
		if err != nil {
			return playlist.Playlist{}, errors.Wrap(err, "failed to list recent songs")
		}
		p.Name = "Recent songs"
		p.Tracks = tracks

	case strings.HasPrefix(listingContext, ContextUserPrefix):
		username := strings.TrimPrefix(listingContext, ContextUserPrefix)
		if username == "" {
			return playlist.Playlist{}, errors.Newf("missing username in context %q", listingContext)
		}
		tracks, err := s.client.ListUserSongs(ctx, username)
		if err != nil {
			return playlist.Playlist{}, errors.Wrapf(err, "failed to list songs of %s", username)
		}
		p.Name = username + "'s songs"
		p.Tracks = tracks

	default:
		return playlist.Playlist{}, errors.Newf("unsupported songs context: %q", listingContext)
	}

	if s.config.Limit > 0 && len(p.Tracks) > s.config.Limit {
		p.Tracks = p.Tracks[:s.config.Limit]
	}

	return p, nil
}

// Name returns the source name.
func (s *SongsSource) Name() string {
	return "songs"
}
