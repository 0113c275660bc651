package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrack_Validate(t *testing.T) {
	tests := []struct {
		name    string
		track   Track
		wantErr bool
	}{
		{
			name: "valid track",
			track: Track{
				ID:        "song-1",
				Title:     "Test Song",
				Artist:    "Artist 1",
				StreamURL: "https://res.cloudinary.com/demo/raw/upload/song-1.mp3",
			},
			wantErr: false,
		},
		{
			name: "valid track with artwork",
			track: Track{
				ID:         "song-2",
				StreamURL:  "http://localhost:5001/song-2.mp3",
				ArtworkURL: "https://res.cloudinary.com/demo/image/upload/song-2.jpg",
			},
			wantErr: false,
		},
		{
			name: "empty ID",
			track: Track{
				Title:     "Test Song",
				StreamURL: "https://example.com/a.mp3",
			},
			wantErr: true,
		},
		{
			name: "missing stream URL",
			track: Track{
				ID: "song-3",
			},
			wantErr: true,
		},
		{
			name: "non-http stream URL",
			track: Track{
				ID:        "song-4",
				StreamURL: "file:///tmp/a.mp3",
			},
			wantErr: true,
		},
		{
			name: "malformed artwork URL",
			track: Track{
				ID:         "song-5",
				StreamURL:  "https://example.com/a.mp3",
				ArtworkURL: "not a url",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.track.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTrack_WithArtwork(t *testing.T) {
	orig := Track{ID: "song-1", StreamURL: "https://example.com/a.mp3"}
	assert.False(t, orig.HasArtwork())

	updated := orig.WithArtwork("https://example.com/a.jpg")

	assert.True(t, updated.HasArtwork())
	assert.False(t, orig.HasArtwork(), "original value must not change")
	assert.Equal(t, orig.ID, updated.ID)
}

func TestTrack_DisplayName(t *testing.T) {
	assert.Equal(t, "Artist - Song", Track{Title: "Song", Artist: "Artist"}.DisplayName())
	assert.Equal(t, "Song", Track{Title: "Song"}.DisplayName())
}
