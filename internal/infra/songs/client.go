// Package songs provides a client for the feed backend's song listings.
package songs

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/feedplay/internal/domain/track"
)

// Errors
var (
	ErrUserNotFound = errors.New("user not found")
)

// Config represents songs client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client lists songs from the backend's /api/songs routes.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Song is a song document as returned by the backend.
type Song struct {
	ID         string `json:"_id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	URL        string `json:"url"`
	ArtworkURL string `json:"artworkUrl"`
	MimeType   string `json:"mimeType"`
	Size       int64  `json:"size"`
}

// listResponse represents the response of both list routes.
type listResponse struct {
	Songs []Song `json:"songs"`
}

// errorResponse represents an error body.
type errorResponse struct {
	Error string `json:"error"`
}

// New creates a new songs client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("songs base URL is required")
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, errors.Wrapf(err, "invalid songs base URL %q", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// ListSongs returns the most recent songs, newest first.
func (c *Client) ListSongs(ctx context.Context) ([]track.Track, error) {
	return c.list(ctx, "/api/songs")
}

// ListUserSongs returns the songs uploaded by username, newest first.
func (c *Client) ListUserSongs(ctx context.Context, username string) ([]track.Track, error) {
	if username == "" {
		return nil, errors.New("username is required")
	}
	return c.list(ctx, "/api/songs/user/"+url.PathEscape(username))
}

func (c *Client) list(ctx context.Context, path string) ([]track.Track, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode != http.StatusOK {
		var apiError errorResponse
		_ = json.Unmarshal(body, &apiError)
		if resp.StatusCode == http.StatusNotFound && apiError.Error != "" {
			return nil, errors.Wrap(ErrUserNotFound, apiError.Error)
		}
		return nil, errors.Newf("songs API returned status %d: %s", resp.StatusCode, apiError.Error)
	}

	var response listResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.Wrap(err, "failed to parse response")
	}

	tracks := make([]track.Track, 0, len(response.Songs))
	for _, s := range response.Songs {
		t := convertSong(s)
		if err := t.Validate(); err != nil {
			zlog.Warn().Msgf("songs: skipping %s: %v", s.ID, err)
			continue
		}
		tracks = append(tracks, t)
	}

	zlog.Debug().Msgf("songs: %s returned %d songs (%d playable)", path, len(response.Songs), len(tracks))
	return tracks, nil
}

// convertSong converts a backend song document to a Track.
func convertSong(s Song) track.Track {
	return track.Track{
		ID:         s.ID,
		Title:      s.Title,
		Artist:     s.Artist,
		StreamURL:  s.URL,
		ArtworkURL: s.ArtworkURL,
	}
}
