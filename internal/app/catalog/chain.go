package catalog

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/feedplay/internal/domain/playlist"
	"github.com/osa030/feedplay/internal/domain/track"
)

// SourceWithMetadata wraps a source with its metadata.
type SourceWithMetadata struct {
	Source      Source
	DisplayName string
}

// Chain resolves listings across the configured sources.
// Sources are addressed by display name or type; an unnamed request tries
// the sources in order until one returns a non-empty listing.
type Chain struct {
	sources []SourceWithMetadata
	artwork ArtworkResolver
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithArtwork enables artwork lookup for tracks without an artwork URL.
func WithArtwork(resolver ArtworkResolver) ChainOption {
	return func(c *Chain) {
		c.artwork = resolver
	}
}

// NewChain creates a new source chain.
func NewChain(sources []SourceWithMetadata, opts ...ChainOption) *Chain {
	c := &Chain{
		sources: sources,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sources returns the display names of the configured sources in order.
func (c *Chain) Sources() []string {
	names := make([]string, len(c.sources))
	for i, sm := range c.sources {
		names[i] = sm.DisplayName
	}
	return names
}

// List returns the listing for a context from the named source.
func (c *Chain) List(ctx context.Context, sourceName, listingContext string) (playlist.Playlist, error) {
	if sourceName != "" {
		sm, ok := c.lookup(sourceName)
		if !ok {
			return playlist.Playlist{}, errors.Wrapf(ErrUnknownSource, "source %q", sourceName)
		}
		p, err := sm.Source.List(ctx, listingContext)
		if err != nil {
			return playlist.Playlist{}, errors.Wrapf(err, "source %s", sm.DisplayName)
		}
		return c.enrich(ctx, p), nil
	}

	for i, sm := range c.sources {
		zlog.Debug().Msgf("trying source: index=%d total=%d name=%s source_type=%s",
			i+1, len(c.sources), sm.DisplayName, sm.Source.Name())

		p, err := sm.Source.List(ctx, listingContext)
		if err != nil {
			zlog.Warn().Msgf("source failed, trying next: source=%s error=%v", sm.DisplayName, err)
			continue
		}
		if p.Len() == 0 {
			zlog.Debug().Msgf("source returned no tracks: source=%s", sm.DisplayName)
			continue
		}

		zlog.Info().Msgf("source returned listing: source=%s context=%s count=%d",
			sm.DisplayName, p.ID, p.Len())
		return c.enrich(ctx, p), nil
	}

	return playlist.Playlist{}, errors.Wrapf(ErrEmptyListing, "context %q", listingContext)
}

// Find returns the listing containing trackID and the track's index in it.
func (c *Chain) Find(ctx context.Context, sourceName, listingContext, trackID string) (playlist.Playlist, int, error) {
	p, err := c.List(ctx, sourceName, listingContext)
	if err != nil {
		return playlist.Playlist{}, -1, err
	}
	index := p.IndexOf(trackID)
	if index < 0 {
		return playlist.Playlist{}, -1, errors.Wrapf(ErrTrackNotFound, "track %s in %s", trackID, p.ID)
	}
	return p, index, nil
}

func (c *Chain) lookup(name string) (SourceWithMetadata, bool) {
	for _, sm := range c.sources {
		if sm.DisplayName == name {
			return sm, true
		}
	}
	for _, sm := range c.sources {
		if sm.Source.Name() == name {
			return sm, true
		}
	}
	return SourceWithMetadata{}, false
}

// enrich fills missing artwork. Lookup failures leave the track unchanged.
func (c *Chain) enrich(ctx context.Context, p playlist.Playlist) playlist.Playlist {
	if c.artwork == nil {
		return p
	}

	tracks := make([]track.Track, len(p.Tracks))
	for i, t := range p.Tracks {
		tracks[i] = t
		if t.HasArtwork() || t.Artist == "" || t.Title == "" {
			continue
		}
		url, err := c.artwork.ResolveArtwork(ctx, t.Artist, t.Title)
		if err != nil {
			zlog.Debug().Msgf("artwork lookup failed: track=%s error=%v", t.ID, err)
			continue
		}
		if url != "" {
			tracks[i] = t.WithArtwork(url)
		}
	}
	p.Tracks = tracks
	return p
}
