package connect

import (
	"context"
	"net/http"
	"sync"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"

	"github.com/osa030/feedplay/internal/app/notification"
	"github.com/osa030/feedplay/internal/app/playback"
)

var errStreamClosed = errors.New("state stream closed")

// ListenerService implements the ListenerService RPC.
type ListenerService struct {
	controller    *playback.Controller
	notifications *notification.Manager
	catalog       Catalog
	done          <-chan struct{}
}

// NewListenerService creates a new ListenerService. Open state streams
// end when done is closed.
func NewListenerService(controller *playback.Controller, notifications *notification.Manager, catalog Catalog, done <-chan struct{}) *ListenerService {
	return &ListenerService{
		controller:    controller,
		notifications: notifications,
		catalog:       catalog,
		done:          done,
	}
}

// NewListenerServiceHandler builds an HTTP handler serving every
// ListenerService procedure.
func NewListenerServiceHandler(svc *ListenerService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(ListenerGetStateProcedure, connect.NewUnaryHandler(ListenerGetStateProcedure, svc.GetState, opts...))
	mux.Handle(ListenerSubscribeStateProcedure, connect.NewServerStreamHandler(ListenerSubscribeStateProcedure, svc.SubscribeState, opts...))
	mux.Handle(ListenerListTracksProcedure, connect.NewUnaryHandler(ListenerListTracksProcedure, svc.ListTracks, opts...))
	mux.Handle(ListenerListSourcesProcedure, connect.NewUnaryHandler(ListenerListSourcesProcedure, svc.ListSources, opts...))

	return "/" + ListenerServiceName + "/", mux
}

// GetState returns the current playback state.
func (s *ListenerService) GetState(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[StateResponse], error) {
	return connect.NewResponse(&StateResponse{
		State: toPlaybackState(s.controller.Snapshot()),
	}), nil
}

// SubscribeState streams the current state, then every change.
func (s *ListenerService) SubscribeState(
	ctx context.Context,
	req *connect.Request[Empty],
	stream *connect.ServerStream[StateUpdate],
) error {
	adapter := &stateStreamAdapter{stream: stream}

	initial := StateUpdate{
		SequenceNo: s.notifications.NextSequenceNo(),
		Initial:    true,
		State:      toPlaybackState(s.controller.Snapshot()),
	}
	if err := adapter.send(initial); err != nil {
		return err
	}

	subscriptionID := s.notifications.Subscribe(adapter)
	defer adapter.close()
	defer s.notifications.Unsubscribe(subscriptionID)

	select {
	case <-ctx.Done():
	case <-s.done:
	}

	return nil
}

// ListTracks returns a catalog listing.
func (s *ListenerService) ListTracks(
	ctx context.Context,
	req *connect.Request[ListTracksRequest],
) (*connect.Response[ListTracksResponse], error) {
	listing, err := s.catalog.List(ctx, req.Msg.Source, req.Msg.Context)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(toListTracksResponse(listing)), nil
}

// ListSources returns the configured catalog sources.
func (s *ListenerService) ListSources(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[ListSourcesResponse], error) {
	return connect.NewResponse(&ListSourcesResponse{
		Sources: s.catalog.Sources(),
	}), nil
}

// stateStreamAdapter adapts connect.ServerStream to notification.Stream.
// Sends are serialized since a timed-out broadcast may still be writing,
// and refused once the handler has returned.
type stateStreamAdapter struct {
	mu     sync.Mutex
	stream *connect.ServerStream[StateUpdate]
	closed bool
}

func (a *stateStreamAdapter) Send(update notification.Update) error {
	return a.send(StateUpdate{
		SequenceNo: update.SequenceNo,
		State:      toPlaybackState(update.Snapshot),
	})
}

func (a *stateStreamAdapter) send(update StateUpdate) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return errStreamClosed
	}
	return a.stream.Send(&update)
}

func (a *stateStreamAdapter) close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
}
