// Package track provides the Track domain entity.
package track

import (
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

// Track represents a playable audio item from a listing.
// Values are immutable once fetched from a catalog source.
type Track struct {
	ID         string `json:"id" validate:"required"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	StreamURL  string `json:"streamUrl" validate:"required,url,startswith=http"`
	ArtworkURL string `json:"artworkUrl,omitempty" validate:"omitempty,url"`
}

var validate = validator.New()

// Validate checks that the track can be handed to the playback engine.
func (t Track) Validate() error {
	if err := validate.Struct(t); err != nil {
		return errors.Wrapf(err, "invalid track %q", t.ID)
	}
	return nil
}

// HasArtwork reports whether the track carries an artwork URL.
func (t Track) HasArtwork() bool {
	return t.ArtworkURL != ""
}

// WithArtwork returns a copy of the track with the artwork URL replaced.
func (t Track) WithArtwork(url string) Track {
	t.ArtworkURL = url
	return t
}

// DisplayName returns "Artist - Title", or just the title if the artist is unknown.
func (t Track) DisplayName() string {
	if t.Artist == "" {
		return t.Title
	}
	return t.Artist + " - " + t.Title
}
