package playlist

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/osa030/feedplay/internal/domain/track"
)

func TestPlaylist_TrackIDs(t *testing.T) {
	tests := []struct {
		name     string
		tracks   []track.Track
		expected []string
	}{
		{
			name:     "empty playlist",
			tracks:   []track.Track{},
			expected: []string{},
		},
		{
			name: "single track",
			tracks: []track.Track{
				{ID: "track-1"},
			},
			expected: []string{"track-1"},
		},
		{
			name: "multiple tracks",
			tracks: []track.Track{
				{ID: "track-1"},
				{ID: "track-2"},
				{ID: "track-3"},
			},
			expected: []string{"track-1", "track-2", "track-3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Playlist{
				ID:     "recent",
				Tracks: tt.tracks,
			}

			result := p.TrackIDs()
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestPlaylist_IndexOf(t *testing.T) {
	p := &Playlist{
		ID: "user:alice",
		Tracks: []track.Track{
			{ID: "track-1"},
			{ID: "track-2"},
			{ID: "track-3"},
		},
	}

	assert.Equal(t, 0, p.IndexOf("track-1"))
	assert.Equal(t, 2, p.IndexOf("track-3"))
	assert.Equal(t, -1, p.IndexOf("missing"))
	assert.Equal(t, 3, p.Len())
}
