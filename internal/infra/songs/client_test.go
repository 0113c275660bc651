package songs

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{BaseURL: server.URL + "/"})
	require.NoError(t, err)
	return client
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{name: "valid", baseURL: "http://localhost:5001", wantErr: false},
		{name: "empty", baseURL: "", wantErr: true},
		{name: "not a url", baseURL: "localhost", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Config{BaseURL: tt.baseURL})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestListSongs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/songs", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"songs": [
			{"_id": "s1", "title": "First", "artist": "Alice", "url": "https://cdn.example/s1.mp3", "artworkUrl": "https://cdn.example/s1.jpg"},
			{"_id": "s2", "title": "Second", "artist": "", "url": "https://cdn.example/s2.wav", "artworkUrl": ""},
			{"_id": "s3", "title": "Broken", "url": ""}
		]}`)
	})

	tracks, err := client.ListSongs(context.Background())

	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "s1", tracks[0].ID)
	assert.Equal(t, "https://cdn.example/s1.mp3", tracks[0].StreamURL)
	assert.Equal(t, "https://cdn.example/s1.jpg", tracks[0].ArtworkURL)
	assert.False(t, tracks[1].HasArtwork())
}

func TestListUserSongs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/songs/user/alice":
			fmt.Fprint(w, `{"songs": [{"_id": "s1", "title": "First", "url": "https://cdn.example/s1.mp3"}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error": "User not found"}`)
		}
	})
	ctx := context.Background()

	tracks, err := client.ListUserSongs(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, tracks, 1)

	_, err = client.ListUserSongs(ctx, "bob")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = client.ListUserSongs(ctx, "")
	assert.Error(t, err)
}

func TestListSongs_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error": "boom"}`)
	})

	_, err := client.ListSongs(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestListSongs_BadJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"songs": [`)
	})

	_, err := client.ListSongs(context.Background())
	assert.Error(t, err)
}
