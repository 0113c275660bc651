// Package connect provides Connect RPC service implementations.
package connect

import (
	"context"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"

	"github.com/osa030/feedplay/internal/app/catalog"
	"github.com/osa030/feedplay/internal/app/engine"
	"github.com/osa030/feedplay/internal/app/playback"
	"github.com/osa030/feedplay/internal/app/queue"
	"github.com/osa030/feedplay/internal/domain/playlist"
)

// Catalog resolves listings for the services.
type Catalog interface {
	List(ctx context.Context, sourceName, listingContext string) (playlist.Playlist, error)
	Find(ctx context.Context, sourceName, listingContext, trackID string) (playlist.Playlist, int, error)
	Sources() []string
}

// PlayerService implements the PlayerService RPC.
type PlayerService struct {
	controller *playback.Controller
	catalog    Catalog
}

// NewPlayerService creates a new PlayerService.
func NewPlayerService(controller *playback.Controller, catalog Catalog) *PlayerService {
	return &PlayerService{
		controller: controller,
		catalog:    catalog,
	}
}

// NewPlayerServiceHandler builds an HTTP handler serving every PlayerService
// procedure. It returns the path prefix to mount it on.
func NewPlayerServiceHandler(svc *PlayerService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(PlayerPlayTrackProcedure, connect.NewUnaryHandler(PlayerPlayTrackProcedure, svc.PlayTrack, opts...))
	mux.Handle(PlayerPauseProcedure, connect.NewUnaryHandler(PlayerPauseProcedure, svc.Pause, opts...))
	mux.Handle(PlayerResumeProcedure, connect.NewUnaryHandler(PlayerResumeProcedure, svc.Resume, opts...))
	mux.Handle(PlayerStopProcedure, connect.NewUnaryHandler(PlayerStopProcedure, svc.Stop, opts...))
	mux.Handle(PlayerNextProcedure, connect.NewUnaryHandler(PlayerNextProcedure, svc.Next, opts...))
	mux.Handle(PlayerPreviousProcedure, connect.NewUnaryHandler(PlayerPreviousProcedure, svc.Previous, opts...))
	mux.Handle(PlayerSeekProcedure, connect.NewUnaryHandler(PlayerSeekProcedure, svc.Seek, opts...))
	mux.Handle(PlayerSetShuffleProcedure, connect.NewUnaryHandler(PlayerSetShuffleProcedure, svc.SetShuffle, opts...))
	mux.Handle(PlayerSetRepeatModeProcedure, connect.NewUnaryHandler(PlayerSetRepeatModeProcedure, svc.SetRepeatMode, opts...))
	mux.Handle(PlayerGetQueueProcedure, connect.NewUnaryHandler(PlayerGetQueueProcedure, svc.GetQueue, opts...))

	return "/" + PlayerServiceName + "/", mux
}

// PlayTrack starts playback of a track from a catalog listing. The whole
// listing becomes the queue.
func (s *PlayerService) PlayTrack(
	ctx context.Context,
	req *connect.Request[PlayTrackRequest],
) (*connect.Response[StateResponse], error) {
	if req.Msg.TrackID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("track_id is required"))
	}

	listing, _, err := s.catalog.Find(ctx, req.Msg.Source, req.Msg.Context, req.Msg.TrackID)
	if err != nil {
		return nil, toConnectError(err)
	}

	if err := s.controller.PlayContext(ctx, listing, req.Msg.TrackID); err != nil {
		return nil, toConnectError(err)
	}

	return s.stateResponse(), nil
}

// Pause pauses playback.
func (s *PlayerService) Pause(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[StateResponse], error) {
	if err := s.controller.Pause(); err != nil {
		return nil, toConnectError(err)
	}
	return s.stateResponse(), nil
}

// Resume resumes playback.
func (s *PlayerService) Resume(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[StateResponse], error) {
	if err := s.controller.Resume(); err != nil {
		return nil, toConnectError(err)
	}
	return s.stateResponse(), nil
}

// Stop stops playback and clears the queue.
func (s *PlayerService) Stop(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[StateResponse], error) {
	s.controller.Stop()
	return s.stateResponse(), nil
}

// Next skips to the next track.
func (s *PlayerService) Next(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[StateResponse], error) {
	if err := s.controller.Next(ctx); err != nil {
		return nil, toConnectError(err)
	}
	return s.stateResponse(), nil
}

// Previous goes back one track.
func (s *PlayerService) Previous(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[StateResponse], error) {
	if err := s.controller.Previous(ctx); err != nil {
		return nil, toConnectError(err)
	}
	return s.stateResponse(), nil
}

// Seek moves the playback position. Out-of-range positions are clamped.
func (s *PlayerService) Seek(
	ctx context.Context,
	req *connect.Request[SeekRequest],
) (*connect.Response[StateResponse], error) {
	position := time.Duration(req.Msg.PositionMs) * time.Millisecond
	if err := s.controller.Seek(ctx, position); err != nil {
		return nil, toConnectError(err)
	}
	return s.stateResponse(), nil
}

// SetShuffle toggles shuffle.
func (s *PlayerService) SetShuffle(
	ctx context.Context,
	req *connect.Request[SetShuffleRequest],
) (*connect.Response[StateResponse], error) {
	s.controller.SetShuffle(req.Msg.Enabled)
	return s.stateResponse(), nil
}

// SetRepeatMode sets the repeat mode ("off" or "one").
func (s *PlayerService) SetRepeatMode(
	ctx context.Context,
	req *connect.Request[SetRepeatModeRequest],
) (*connect.Response[StateResponse], error) {
	mode, err := queue.ParseRepeatMode(req.Msg.Mode)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	s.controller.SetRepeatMode(mode)
	return s.stateResponse(), nil
}

// GetQueue returns the current queue.
func (s *PlayerService) GetQueue(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[GetQueueResponse], error) {
	tracks, index := s.controller.Queue()
	return connect.NewResponse(&GetQueueResponse{
		Tracks:       toTrackInfos(tracks),
		CurrentIndex: index,
	}), nil
}

func (s *PlayerService) stateResponse() *connect.Response[StateResponse] {
	return connect.NewResponse(&StateResponse{
		State: toPlaybackState(s.controller.Snapshot()),
	})
}

// toConnectError maps domain errors to RPC codes.
func toConnectError(err error) error {
	var loadErr *engine.LoadError
	switch {
	case errors.Is(err, engine.ErrSuperseded):
		return connect.NewError(connect.CodeAborted, err)
	case errors.As(err, &loadErr):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, playback.ErrClosed):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, catalog.ErrTrackNotFound),
		errors.Is(err, catalog.ErrUnknownSource),
		errors.Is(err, catalog.ErrEmptyListing):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, queue.ErrInvalidIndex),
		errors.Is(err, playback.ErrTrackNotInContext):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
