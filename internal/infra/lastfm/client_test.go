package lastfm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trackInfoResponse = `{
	"track": {
		"name": "Test Track",
		"artist": {"name": "Test Artist", "url": "https://www.last.fm/music/Test+Artist"},
		"album": {
			"title": "Test Album",
			"image": [
				{"#text": "https://img.example/small.png", "size": "small"},
				{"#text": "https://img.example/large.png", "size": "large"},
				{"#text": "https://img.example/xl.png", "size": "extralarge"}
			]
		}
	}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{APIKey: "test_key"})
	require.NoError(t, err)
	client.baseURL = server.URL + "/"
	return client
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestGetTrackInfo(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "track.getInfo", r.URL.Query().Get("method"))
		assert.Equal(t, "Test Artist", r.URL.Query().Get("artist"))
		assert.Equal(t, "Test Track", r.URL.Query().Get("track"))
		assert.Equal(t, "test_key", r.URL.Query().Get("api_key"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, trackInfoResponse)
	})

	info, err := client.GetTrackInfo(context.Background(), "Test Track", "Test Artist")

	require.NoError(t, err)
	assert.Equal(t, "Test Album", info.Album)
	assert.Len(t, info.Images, 3)
	assert.Equal(t, "https://img.example/xl.png", info.BestImage())
}

func TestGetTrackInfo_RequiresNames(t *testing.T) {
	client, err := New(Config{APIKey: "test_key"})
	require.NoError(t, err)

	_, err = client.GetTrackInfo(context.Background(), "", "Artist")
	assert.Error(t, err)
}

func TestGetTrackInfo_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error": 10, "message": "Invalid API key"}`)
	})

	_, err := client.GetTrackInfo(context.Background(), "Track", "Artist")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API key")
}

func TestResolveArtwork_Caches(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, trackInfoResponse)
	})
	ctx := context.Background()

	first, err := client.ResolveArtwork(ctx, "Test Artist", "Test Track")
	require.NoError(t, err)
	second, err := client.ResolveArtwork(ctx, "test artist", "TEST TRACK")
	require.NoError(t, err)

	assert.Equal(t, "https://img.example/xl.png", first)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestResolveArtwork_NotFoundIsCachedMiss(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"error": 6, "message": "Track not found"}`)
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		artwork, err := client.ResolveArtwork(ctx, "Nobody", "Nothing")
		require.NoError(t, err)
		assert.Empty(t, artwork)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestResolveArtwork_NoImages(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"track": {"name": "T", "artist": {"name": "A"}, "album": {"title": "X", "image": [{"#text": "", "size": "large"}]}}}`)
	})

	artwork, err := client.ResolveArtwork(context.Background(), "A", "T")

	require.NoError(t, err)
	assert.Empty(t, artwork)
}
