// Package catalog provides the listing sources playback is started from.
package catalog

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/osa030/feedplay/internal/domain/playlist"
	"github.com/osa030/feedplay/internal/domain/track"
)

// Errors
var (
	ErrUnknownSource = errors.New("unknown catalog source")
	ErrTrackNotFound = errors.New("track not found in listing")
	ErrEmptyListing  = errors.New("listing is empty")
)

// Source is the interface for listing sources.
// A listing context selects which listing of the source is returned
// (e.g. "recent", "user:alice", a Spotify playlist URL).
type Source interface {
	// List returns the tracks of the given listing context in order.
	List(ctx context.Context, listingContext string) (playlist.Playlist, error)

	// Name returns the source type name (used in config).
	Name() string
}

// SongsClient defines the songs backend operations needed by the songs source.
type SongsClient interface {
	ListSongs(ctx context.Context) ([]track.Track, error)
	ListUserSongs(ctx context.Context, username string) ([]track.Track, error)
}

// SpotifyClient defines the Spotify operations needed by the spotify source.
type SpotifyClient interface {
	GetPlaylist(ctx context.Context, playlistURL string) (playlist.Playlist, error)
}

// ArtworkResolver looks up artwork for tracks that have none.
// An empty URL with a nil error means no artwork is known.
type ArtworkResolver interface {
	ResolveArtwork(ctx context.Context, artist, title string) (string, error)
}
