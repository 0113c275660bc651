// Package lastfm provides a client for the Last.fm API.
package lastfm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// ErrNotFound is returned when Last.fm does not know the track.
var ErrNotFound = errors.New("track not found on last.fm")

// errorTrackNotFound is the Last.fm error code for an unknown track.
const errorTrackNotFound = 6

// imageSizePreference lists album image sizes from most to least preferred.
var imageSizePreference = []string{"extralarge", "large", "mega", "medium", "small"}

// Client is a Last.fm API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	// Cache for artwork lookups keyed by artist and title; misses are cached as "".
	artworkCache map[string]string

	// Mutex for cache access
	cacheMu sync.RWMutex
}

// Config represents Last.fm client configuration.
type Config struct {
	APIKey  string
	Timeout time.Duration
}

// TrackInfo is the subset of track.getInfo used for artwork.
type TrackInfo struct {
	Name   string
	Artist string
	Album  string
	Images map[string]string // size -> URL
}

// GetInfoResponse represents the response from track.getInfo API.
type GetInfoResponse struct {
	Track struct {
		Name   string `json:"name"`
		Artist struct {
			Name string `json:"name"`
		} `json:"artist"`
		Album struct {
			Title string `json:"title"`
			Image []struct {
				URL  string `json:"#text"`
				Size string `json:"size"`
			} `json:"image"`
		} `json:"album"`
	} `json:"track"`
}

// LastFMError represents an error response from Last.fm API.
type LastFMError struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// New creates a new Last.fm client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("last.fm API key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		apiKey:       cfg.APIKey,
		baseURL:      "https://ws.audioscrobbler.com/2.0/",
		httpClient:   &http.Client{Timeout: timeout},
		artworkCache: make(map[string]string),
	}, nil
}

// GetTrackInfo retrieves track metadata including album images.
// Reference: https://www.last.fm/api/show/track.getInfo
func (c *Client) GetTrackInfo(ctx context.Context, trackName, artistName string) (*TrackInfo, error) {
	if trackName == "" || artistName == "" {
		return nil, errors.New("track name and artist name are required")
	}

	params := url.Values{}
	params.Set("method", "track.getInfo")
	params.Set("api_key", c.apiKey)
	params.Set("artist", artistName)
	params.Set("track", trackName)
	params.Set("format", "json")
	params.Set("autocorrect", "1")

	var response GetInfoResponse
	if err := c.get(ctx, params, &response); err != nil {
		return nil, err
	}

	info := &TrackInfo{
		Name:   response.Track.Name,
		Artist: response.Track.Artist.Name,
		Album:  response.Track.Album.Title,
		Images: make(map[string]string),
	}
	for _, img := range response.Track.Album.Image {
		if img.URL != "" {
			info.Images[img.Size] = img.URL
		}
	}
	return info, nil
}

// ResolveArtwork returns an album image URL for the track, or "" if
// Last.fm has none. Results, including misses, are cached.
func (c *Client) ResolveArtwork(ctx context.Context, artistName, trackName string) (string, error) {
	key := strings.ToLower(artistName) + "\x00" + strings.ToLower(trackName)

	c.cacheMu.RLock()
	cached, ok := c.artworkCache[key]
	c.cacheMu.RUnlock()
	if ok {
		return cached, nil
	}

	info, err := c.GetTrackInfo(ctx, trackName, artistName)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", err
	}

	artwork := ""
	if info != nil {
		artwork = info.BestImage()
	}

	c.cacheMu.Lock()
	c.artworkCache[key] = artwork
	c.cacheMu.Unlock()

	zlog.Debug().Msgf("lastfm: artwork for %s - %s: %q", artistName, trackName, artwork)
	return artwork, nil
}

// BestImage returns the preferred album image URL, or "".
func (t *TrackInfo) BestImage() string {
	for _, size := range imageSizePreference {
		if u := t.Images[size]; u != "" {
			return u
		}
	}
	return ""
}

// get performs a GET against the API root and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	reqURL := c.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	// Check for Last.fm API errors
	var apiError LastFMError
	if err := json.Unmarshal(body, &apiError); err == nil && apiError.Error != 0 {
		if apiError.Error == errorTrackNotFound {
			return errors.Wrap(ErrNotFound, apiError.Message)
		}
		return errors.Errorf("last.fm API error %d: %s", apiError.Error, apiError.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return errors.Newf("last.fm returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}
	return nil
}
