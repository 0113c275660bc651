// Package playlist provides the Playlist domain entity.
package playlist

import "github.com/osa030/feedplay/internal/domain/track"

// Playlist is a listing context: the ordered set of tracks a user started
// playback from (recent songs, a user's uploads, a Spotify playlist).
type Playlist struct {
	ID     string        // Context identifier, e.g. "recent" or "user:alice"
	Name   string        // Display name
	Source string        // Catalog source that produced the listing
	Tracks []track.Track // Tracks in listing order
}

// TrackIDs returns all track IDs in the playlist.
func (p *Playlist) TrackIDs() []string {
	ids := make([]string, len(p.Tracks))
	for i, t := range p.Tracks {
		ids[i] = t.ID
	}
	return ids
}

// IndexOf returns the position of the track with the given ID, or -1.
func (p *Playlist) IndexOf(trackID string) int {
	for i, t := range p.Tracks {
		if t.ID == trackID {
			return i
		}
	}
	return -1
}

// Len returns the number of tracks.
func (p *Playlist) Len() int {
	return len(p.Tracks)
}
