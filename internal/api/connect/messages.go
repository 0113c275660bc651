package connect

import (
	"time"

	"github.com/osa030/feedplay/internal/app/playback"
	"github.com/osa030/feedplay/internal/domain/playlist"
	"github.com/osa030/feedplay/internal/domain/track"
)

// Service and procedure names.
const (
	PlayerServiceName   = "feedplay.v1.PlayerService"
	ListenerServiceName = "feedplay.v1.ListenerService"

	PlayerPlayTrackProcedure     = "/" + PlayerServiceName + "/PlayTrack"
	PlayerPauseProcedure         = "/" + PlayerServiceName + "/Pause"
	PlayerResumeProcedure        = "/" + PlayerServiceName + "/Resume"
	PlayerStopProcedure          = "/" + PlayerServiceName + "/Stop"
	PlayerNextProcedure          = "/" + PlayerServiceName + "/Next"
	PlayerPreviousProcedure      = "/" + PlayerServiceName + "/Previous"
	PlayerSeekProcedure          = "/" + PlayerServiceName + "/Seek"
	PlayerSetShuffleProcedure    = "/" + PlayerServiceName + "/SetShuffle"
	PlayerSetRepeatModeProcedure = "/" + PlayerServiceName + "/SetRepeatMode"
	PlayerGetQueueProcedure      = "/" + PlayerServiceName + "/GetQueue"

	ListenerGetStateProcedure       = "/" + ListenerServiceName + "/GetState"
	ListenerSubscribeStateProcedure = "/" + ListenerServiceName + "/SubscribeState"
	ListenerListTracksProcedure     = "/" + ListenerServiceName + "/ListTracks"
	ListenerListSourcesProcedure    = "/" + ListenerServiceName + "/ListSources"
)

// TrackInfo is the wire form of a track.
type TrackInfo struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	StreamURL  string `json:"streamUrl"`
	ArtworkURL string `json:"artworkUrl,omitempty"`
}

// PlaybackState is the wire form of a playback snapshot.
type PlaybackState struct {
	Track      *TrackInfo `json:"track,omitempty"`
	IsPlaying  bool       `json:"isPlaying"`
	PositionMs int64      `json:"positionMs"`
	DurationMs int64      `json:"durationMs"`
	Shuffle    bool       `json:"shuffle"`
	RepeatMode string     `json:"repeatMode"`
	Generation uint64     `json:"generation"`
	Version    uint64     `json:"version"`
}

// Position returns the position as a duration.
func (s PlaybackState) Position() time.Duration {
	return time.Duration(s.PositionMs) * time.Millisecond
}

// Duration returns the track length as a duration; 0 while unknown.
func (s PlaybackState) Duration() time.Duration {
	return time.Duration(s.DurationMs) * time.Millisecond
}

type PlayTrackRequest struct {
	TrackID string `json:"trackId"`
	Source  string `json:"source,omitempty"`
	Context string `json:"context,omitempty"`
}

type SeekRequest struct {
	PositionMs int64 `json:"positionMs"`
}

type SetShuffleRequest struct {
	Enabled bool `json:"enabled"`
}

type SetRepeatModeRequest struct {
	Mode string `json:"mode"`
}

type Empty struct{}

// StateResponse is returned by every transport command.
type StateResponse struct {
	State PlaybackState `json:"state"`
}

type GetQueueResponse struct {
	Tracks       []TrackInfo `json:"tracks"`
	CurrentIndex int         `json:"currentIndex"`
}

type StateUpdate struct {
	SequenceNo uint64        `json:"sequenceNo"`
	Initial    bool          `json:"initial,omitempty"`
	State      PlaybackState `json:"state"`
}

type ListTracksRequest struct {
	Source  string `json:"source,omitempty"`
	Context string `json:"context,omitempty"`
}

type ListTracksResponse struct {
	Source  string      `json:"source"`
	Context string      `json:"context"`
	Name    string      `json:"name"`
	Tracks  []TrackInfo `json:"tracks"`
}

type ListSourcesResponse struct {
	Sources []string `json:"sources"`
}

func toTrackInfo(t track.Track) TrackInfo {
	return TrackInfo{
		ID:         t.ID,
		Title:      t.Title,
		Artist:     t.Artist,
		StreamURL:  t.StreamURL,
		ArtworkURL: t.ArtworkURL,
	}
}

func toTrackInfos(tracks []track.Track) []TrackInfo {
	infos := make([]TrackInfo, len(tracks))
	for i, t := range tracks {
		infos[i] = toTrackInfo(t)
	}
	return infos
}

func toPlaybackState(snap playback.Snapshot) PlaybackState {
	state := PlaybackState{
		IsPlaying:  snap.IsPlaying,
		PositionMs: snap.Position.Milliseconds(),
		DurationMs: snap.Duration.Milliseconds(),
		Shuffle:    snap.Shuffle,
		RepeatMode: snap.RepeatMode.String(),
		Generation: snap.Generation,
		Version:    snap.Version,
	}
	if snap.CurrentTrack != nil {
		info := toTrackInfo(*snap.CurrentTrack)
		state.Track = &info
	}
	return state
}

func toListTracksResponse(p playlist.Playlist) *ListTracksResponse {
	return &ListTracksResponse{
		Source:  p.Source,
		Context: p.ID,
		Name:    p.Name,
		Tracks:  toTrackInfos(p.Tracks),
	}
}
