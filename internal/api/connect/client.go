package connect

import (
	"context"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/osa030/feedplay/internal/app/scrub"
)

// Client is a typed client for both services.
type Client struct {
	adminToken string

	playTrack     *connect.Client[PlayTrackRequest, StateResponse]
	pause         *connect.Client[Empty, StateResponse]
	resume        *connect.Client[Empty, StateResponse]
	stop          *connect.Client[Empty, StateResponse]
	next          *connect.Client[Empty, StateResponse]
	previous      *connect.Client[Empty, StateResponse]
	seek          *connect.Client[SeekRequest, StateResponse]
	setShuffle    *connect.Client[SetShuffleRequest, StateResponse]
	setRepeatMode *connect.Client[SetRepeatModeRequest, StateResponse]
	getQueue      *connect.Client[Empty, GetQueueResponse]

	getState       *connect.Client[Empty, StateResponse]
	subscribeState *connect.Client[Empty, StateUpdate]
	listTracks     *connect.Client[ListTracksRequest, ListTracksResponse]
	listSources    *connect.Client[Empty, ListSourcesResponse]
}

var _ scrub.Seeker = (*Client)(nil)

// NewClient creates a client for the server at baseURL. adminToken may be
// empty when only ListenerService calls are made.
func NewClient(httpClient connect.HTTPClient, baseURL, adminToken string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)

	return &Client{
		adminToken: adminToken,

		playTrack:     connect.NewClient[PlayTrackRequest, StateResponse](httpClient, baseURL+PlayerPlayTrackProcedure, opts...),
		pause:         connect.NewClient[Empty, StateResponse](httpClient, baseURL+PlayerPauseProcedure, opts...),
		resume:        connect.NewClient[Empty, StateResponse](httpClient, baseURL+PlayerResumeProcedure, opts...),
		stop:          connect.NewClient[Empty, StateResponse](httpClient, baseURL+PlayerStopProcedure, opts...),
		next:          connect.NewClient[Empty, StateResponse](httpClient, baseURL+PlayerNextProcedure, opts...),
		previous:      connect.NewClient[Empty, StateResponse](httpClient, baseURL+PlayerPreviousProcedure, opts...),
		seek:          connect.NewClient[SeekRequest, StateResponse](httpClient, baseURL+PlayerSeekProcedure, opts...),
		setShuffle:    connect.NewClient[SetShuffleRequest, StateResponse](httpClient, baseURL+PlayerSetShuffleProcedure, opts...),
		setRepeatMode: connect.NewClient[SetRepeatModeRequest, StateResponse](httpClient, baseURL+PlayerSetRepeatModeProcedure, opts...),
		getQueue:      connect.NewClient[Empty, GetQueueResponse](httpClient, baseURL+PlayerGetQueueProcedure, opts...),

		getState:       connect.NewClient[Empty, StateResponse](httpClient, baseURL+ListenerGetStateProcedure, opts...),
		subscribeState: connect.NewClient[Empty, StateUpdate](httpClient, baseURL+ListenerSubscribeStateProcedure, opts...),
		listTracks:     connect.NewClient[ListTracksRequest, ListTracksResponse](httpClient, baseURL+ListenerListTracksProcedure, opts...),
		listSources:    connect.NewClient[Empty, ListSourcesResponse](httpClient, baseURL+ListenerListSourcesProcedure, opts...),
	}
}

func callUnary[Req, Res any](ctx context.Context, c *connect.Client[Req, Res], msg *Req, adminToken string) (*Res, error) {
	req := connect.NewRequest(msg)
	if adminToken != "" {
		req.Header().Set(AdminTokenHeader, adminToken)
	}
	resp, err := c.CallUnary(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (c *Client) command(ctx context.Context, rpc *connect.Client[Empty, StateResponse]) (PlaybackState, error) {
	resp, err := callUnary(ctx, rpc, &Empty{}, c.adminToken)
	if err != nil {
		return PlaybackState{}, err
	}
	return resp.State, nil
}

// PlayTrack plays trackID from a catalog listing.
func (c *Client) PlayTrack(ctx context.Context, source, listingContext, trackID string) (PlaybackState, error) {
	resp, err := callUnary(ctx, c.playTrack, &PlayTrackRequest{
		TrackID: trackID,
		Source:  source,
		Context: listingContext,
	}, c.adminToken)
	if err != nil {
		return PlaybackState{}, err
	}
	return resp.State, nil
}

func (c *Client) Pause(ctx context.Context) (PlaybackState, error) {
	return c.command(ctx, c.pause)
}

func (c *Client) Resume(ctx context.Context) (PlaybackState, error) {
	return c.command(ctx, c.resume)
}

func (c *Client) Stop(ctx context.Context) (PlaybackState, error) {
	return c.command(ctx, c.stop)
}

func (c *Client) Next(ctx context.Context) (PlaybackState, error) {
	return c.command(ctx, c.next)
}

func (c *Client) Previous(ctx context.Context) (PlaybackState, error) {
	return c.command(ctx, c.previous)
}

// Seek moves playback to position.
func (c *Client) Seek(ctx context.Context, position time.Duration) error {
	_, err := c.SeekTo(ctx, position)
	return err
}

// SeekTo moves playback to position and returns the resulting state.
func (c *Client) SeekTo(ctx context.Context, position time.Duration) (PlaybackState, error) {
	resp, err := callUnary(ctx, c.seek, &SeekRequest{PositionMs: position.Milliseconds()}, c.adminToken)
	if err != nil {
		return PlaybackState{}, err
	}
	return resp.State, nil
}

func (c *Client) SetShuffle(ctx context.Context, enabled bool) (PlaybackState, error) {
	resp, err := callUnary(ctx, c.setShuffle, &SetShuffleRequest{Enabled: enabled}, c.adminToken)
	if err != nil {
		return PlaybackState{}, err
	}
	return resp.State, nil
}

func (c *Client) SetRepeatMode(ctx context.Context, mode string) (PlaybackState, error) {
	resp, err := callUnary(ctx, c.setRepeatMode, &SetRepeatModeRequest{Mode: mode}, c.adminToken)
	if err != nil {
		return PlaybackState{}, err
	}
	return resp.State, nil
}

// GetQueue returns the queued tracks and the current index (-1 if empty).
func (c *Client) GetQueue(ctx context.Context) (*GetQueueResponse, error) {
	return callUnary(ctx, c.getQueue, &Empty{}, c.adminToken)
}

// GetState returns the current playback state.
func (c *Client) GetState(ctx context.Context) (PlaybackState, error) {
	resp, err := callUnary(ctx, c.getState, &Empty{}, "")
	if err != nil {
		return PlaybackState{}, err
	}
	return resp.State, nil
}

// SubscribeState opens the state stream. The first message is the current
// state; the caller must Close the stream.
func (c *Client) SubscribeState(ctx context.Context) (*connect.ServerStreamForClient[StateUpdate], error) {
	return c.subscribeState.CallServerStream(ctx, connect.NewRequest(&Empty{}))
}

// ListTracks returns a catalog listing.
func (c *Client) ListTracks(ctx context.Context, source, listingContext string) (*ListTracksResponse, error) {
	return callUnary(ctx, c.listTracks, &ListTracksRequest{Source: source, Context: listingContext}, "")
}

// ListSources returns the configured catalog source names.
func (c *Client) ListSources(ctx context.Context) ([]string, error) {
	resp, err := callUnary(ctx, c.listSources, &Empty{}, "")
	if err != nil {
		return nil, err
	}
	return resp.Sources, nil
}
