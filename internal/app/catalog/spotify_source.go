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

type SpotifySourceConfig struct {
	// PlaylistURL is listed when a request names no context.
	PlaylistURL string `yaml:"playlist_url" mapstructure:"playlist_url"`
}

// SpotifySource lists the preview streams of a Spotify playlist.
// The listing context is a playlist URL, URI or ID.
type SpotifySource struct {
	spotify SpotifyClient
	config  *SpotifySourceConfig
}

// NewSpotifySource creates a new SpotifySource.
func NewSpotifySource(spotify SpotifyClient, settings map[string]any) (*SpotifySource, error) {
	var config SpotifySourceConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	zlog.Debug().Msgf("spotify source config: %+v", config)
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	return &SpotifySource{
		spotify: spotify,
		config:  &config}, nil
}

// List fetches the playlist named by the context.
func (s *SpotifySource) List(ctx context.Context, listingContext string) (playlist.Playlist, error) {
	playlistURL := strings.TrimSpace(listingContext)
	if playlistURL == "" {
		playlistURL = s.config.PlaylistURL
	}
	if playlistURL == "" {
		return playlist.Playlist{}, errors.New("no playlist given and no default playlist_url configured")
	}

	p, err := s.spotify.GetPlaylist(ctx, playlistURL)
	if err != nil {
		return playlist.Playlist{}, errors.Wrap(err, "failed to get playlist")
	}
	p.Source = s.Name()
	return p, nil
}

// Name returns the source name.
func (s *SpotifySource) Name() string {
	return "spotify"
}
