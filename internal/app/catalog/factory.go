package catalog

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/feedplay/internal/infra/config"
)

// Clients bundles the backends the configured sources may need.
// A nil client is only an error when a source of that type is configured.
type Clients struct {
	Songs   SongsClient
	Spotify SpotifyClient
	Artwork ArtworkResolver
}

// NewChainFromConfig creates a source chain from configuration.
func NewChainFromConfig(cfg *config.Config, clients Clients) (*Chain, error) {
	if len(cfg.Catalog.Sources) == 0 {
		return nil, errors.New("no catalog sources configured")
	}

	var sources []SourceWithMetadata

	for i, scfg := range cfg.Catalog.Sources {
		var source Source
		var err error
		zlog.Debug().Msgf("creating catalog source: index=%d type=%s settings=%+v", i+1, scfg.Type, scfg.Settings)
		switch scfg.Type {
		case config.SourceTypeSongs:
			if clients.Songs == nil {
				return nil, errors.Newf("songs client is not available (source index %d)", i)
			}
			source, err = NewSongsSource(clients.Songs, scfg.Settings)

		case config.SourceTypeSpotify:
			if clients.Spotify == nil {
				return nil, errors.Newf("spotify client is not available (source index %d)", i)
			}
			source, err = NewSpotifySource(clients.Spotify, scfg.Settings)

		default:
			return nil, errors.Newf("unsupported source type: %s (source index %d)", scfg.Type, i)
		}

		if err != nil {
			return nil, errors.Wrapf(err, "failed to create source (index %d, type %s)", i, scfg.Type)
		}

		sources = append(sources, SourceWithMetadata{
			Source:      source,
			DisplayName: scfg.DisplayName,
		})

		zlog.Info().Msgf("registered catalog source: index=%d type=%s display_name=%s", i+1, scfg.Type, scfg.DisplayName)
	}

	var opts []ChainOption
	if cfg.Catalog.Artwork {
		if clients.Artwork == nil {
			return nil, errors.New("artwork enabled but no artwork resolver available")
		}
		opts = append(opts, WithArtwork(clients.Artwork))
	}

	return NewChain(sources, opts...), nil
}
