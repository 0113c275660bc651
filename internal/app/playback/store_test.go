package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/feedplay/internal/domain/track"
)

func TestStore_UpdateNormalizes(t *testing.T) {
	t1 := &track.Track{ID: "t1"}

	tests := []struct {
		name     string
		apply    func(*Snapshot)
		expected Snapshot
	}{
		{
			name: "no track clears playback fields",
			apply: func(s *Snapshot) {
				s.IsPlaying = true
				s.Position = time.Second
				s.Duration = time.Minute
			},
			expected: Snapshot{},
		},
		{
			name: "position above duration",
			apply: func(s *Snapshot) {
				s.CurrentTrack = t1
				s.Position = 2 * time.Minute
				s.Duration = time.Minute
			},
			expected: Snapshot{CurrentTrack: t1, Position: time.Minute, Duration: time.Minute},
		},
		{
			name: "negative position",
			apply: func(s *Snapshot) {
				s.CurrentTrack = t1
				s.Position = -time.Second
			},
			expected: Snapshot{CurrentTrack: t1},
		},
		{
			name: "unknown duration keeps position",
			apply: func(s *Snapshot) {
				s.CurrentTrack = t1
				s.Position = time.Hour
			},
			expected: Snapshot{CurrentTrack: t1, Position: time.Hour},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()

			got := s.update(tt.apply)

			tt.expected.Version = 1
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, got, s.Snapshot())
		})
	}
}

func TestStore_ResetTrackKeepsFlags(t *testing.T) {
	s := NewStore()
	s.update(func(snap *Snapshot) {
		snap.CurrentTrack = &track.Track{ID: "t1"}
		snap.IsPlaying = true
		snap.Duration = time.Minute
		snap.Position = time.Second
		snap.Shuffle = true
	})

	got := s.resetTrack(7)

	assert.Nil(t, got.CurrentTrack)
	assert.False(t, got.IsPlaying)
	assert.Zero(t, got.Position)
	assert.Zero(t, got.Duration)
	assert.True(t, got.Shuffle)
	assert.Equal(t, uint64(7), got.Generation)
}

func TestStore_SubscriptionLatestWins(t *testing.T) {
	s := NewStore()
	sub := s.Subscribe()
	defer sub.Close()

	for i := 1; i <= 5; i++ {
		pos := time.Duration(i) * time.Second
		s.update(func(snap *Snapshot) {
			snap.CurrentTrack = &track.Track{ID: "t1"}
			snap.Position = pos
		})
	}

	got := <-sub.C()
	assert.Equal(t, 5*time.Second, got.Position)
	assert.Equal(t, uint64(5), got.Version)

	select {
	case extra := <-sub.C():
		t.Fatalf("unexpected snapshot %+v", extra)
	default:
	}
}

func TestStore_SubscriptionClose(t *testing.T) {
	s := NewStore()
	sub := s.Subscribe()
	<-sub.C()

	sub.Close()
	sub.Close()

	select {
	case <-sub.Done():
	default:
		t.Fatal("done not closed")
	}

	s.update(func(snap *Snapshot) { snap.Shuffle = true })
	select {
	case <-sub.C():
		t.Fatal("closed subscription received a snapshot")
	default:
	}
}

func TestSnapshot_State(t *testing.T) {
	t1 := &track.Track{ID: "t1"}

	assert.Equal(t, StateIdle, Snapshot{}.State())
	assert.Equal(t, StatePlaying, Snapshot{CurrentTrack: t1, IsPlaying: true}.State())
	assert.Equal(t, StatePaused, Snapshot{CurrentTrack: t1}.State())
	require.Equal(t, "paused", StatePaused.String())
}
