package queue

import (
	"math/rand"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/feedplay/internal/domain/track"
)

func testTracks(ids ...string) []track.Track {
	tracks := make([]track.Track, len(ids))
	for i, id := range ids {
		tracks[i] = track.Track{ID: id, Title: "Song " + id, StreamURL: "https://example.com/" + id + ".mp3"}
	}
	return tracks
}

func newTestManager() *Manager {
	return New(WithRand(rand.New(rand.NewSource(42))))
}

func TestManager_SetQueue(t *testing.T) {
	tests := []struct {
		name      string
		tracks    []track.Track
		start     int
		wantErr   error
		wantIndex int
		wantLen   int
	}{
		{
			name:      "start at head",
			tracks:    testTracks("t1", "t2", "t3"),
			start:     0,
			wantIndex: 0,
			wantLen:   3,
		},
		{
			name:      "start in the middle",
			tracks:    testTracks("t1", "t2", "t3"),
			start:     2,
			wantIndex: 2,
			wantLen:   3,
		},
		{
			name:      "empty list clears",
			tracks:    nil,
			start:     0,
			wantIndex: -1,
			wantLen:   0,
		},
		{
			name:    "index past end",
			tracks:  testTracks("t1"),
			start:   1,
			wantErr: ErrInvalidIndex,
		},
		{
			name:    "negative index",
			tracks:  testTracks("t1"),
			start:   -1,
			wantErr: ErrInvalidIndex,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager()
			err := m.SetQueue(tt.tracks, tt.start)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantIndex, m.CurrentIndex())
			assert.Equal(t, tt.wantLen, m.Len())
		})
	}
}

func TestManager_SetQueue_InvalidIndexKeepsPreviousQueue(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.SetQueue(testTracks("t1", "t2"), 1))

	err := m.SetQueue(testTracks("x1"), 5)

	require.Error(t, err)
	cur, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, "t2", cur.ID)
	assert.Equal(t, 2, m.Len())
}

func TestManager_SetQueue_CopiesInput(t *testing.T) {
	m := newTestManager()
	tracks := testTracks("t1", "t2")
	require.NoError(t, m.SetQueue(tracks, 0))

	tracks[0].ID = "mutated"

	cur, _ := m.Current()
	assert.Equal(t, "t1", cur.ID)
}

func TestManager_Next_Sequential(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.SetQueue(testTracks("t1", "t2", "t3"), 0))

	next, err := m.Next()
	require.NoError(t, err)
	assert.Equal(t, "t2", next.ID)

	next, err = m.Next()
	require.NoError(t, err)
	assert.Equal(t, "t3", next.ID)

	_, err = m.Next()
	assert.ErrorIs(t, err, ErrQueueExhausted)
	assert.Equal(t, 2, m.CurrentIndex(), "exhaustion must not move the index")
}

func TestManager_Next_EmptyQueue(t *testing.T) {
	m := newTestManager()

	_, err := m.Next()
	assert.ErrorIs(t, err, ErrQueueExhausted)

	_, err = m.ResolveOnFinish()
	assert.ErrorIs(t, err, ErrQueueExhausted)
}

func TestManager_Previous(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.SetQueue(testTracks("t1", "t2", "t3"), 2))

	prev, err := m.Previous()
	require.NoError(t, err)
	assert.Equal(t, "t2", prev.ID)

	prev, err = m.Previous()
	require.NoError(t, err)
	assert.Equal(t, "t1", prev.ID)

	_, err = m.Previous()
	assert.ErrorIs(t, err, ErrNoPrevious)
	assert.Equal(t, 0, m.CurrentIndex())
}

func TestManager_Previous_IgnoresShuffle(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.SetQueue(testTracks("t1", "t2", "t3"), 2))
	m.SetShuffle(true)

	prev, err := m.Previous()
	require.NoError(t, err)
	assert.Equal(t, "t2", prev.ID)
}

func TestManager_ResolveOnFinish_RepeatOne(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.SetQueue(testTracks("t1", "t2", "t3"), 0))
	m.SetRepeatMode(RepeatOne)
	m.SetShuffle(true) // repeat-one takes precedence

	for i := 0; i < 5; i++ {
		next, err := m.ResolveOnFinish()
		require.NoError(t, err)
		assert.Equal(t, "t1", next.ID)
		assert.Equal(t, 0, m.CurrentIndex())
	}
}

func TestManager_ResolveOnFinish_Sequential(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.SetQueue(testTracks("t1", "t2"), 0))

	next, err := m.ResolveOnFinish()
	require.NoError(t, err)
	assert.Equal(t, "t2", next.ID)

	_, err = m.ResolveOnFinish()
	assert.ErrorIs(t, err, ErrQueueExhausted)
}

func TestManager_ResolveOnFinish_ShuffleNeverRepeatsCurrent(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.SetQueue(testTracks("t1", "t2"), 0))
	m.SetShuffle(true)

	for i := 0; i < 1000; i++ {
		before := m.CurrentIndex()
		_, err := m.ResolveOnFinish()
		require.NoError(t, err)
		require.NotEqual(t, before, m.CurrentIndex(), "iteration %d", i)
	}
}

func TestManager_Next_ShuffleCoversOtherTracks(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.SetQueue(testTracks("t1", "t2", "t3", "t4"), 0))
	m.SetShuffle(true)

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		before := m.CurrentIndex()
		next, err := m.Next()
		require.NoError(t, err)
		require.NotEqual(t, before, m.CurrentIndex())
		seen[next.ID] = true
	}
	assert.Len(t, seen, 4)
}

func TestManager_ShuffleSingleton(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.SetQueue(testTracks("t1"), 0))
	m.SetShuffle(true)

	next, err := m.ResolveOnFinish()
	require.NoError(t, err)
	assert.Equal(t, "t1", next.ID)

	next, err = m.Next()
	require.NoError(t, err)
	assert.Equal(t, "t1", next.ID)
}

func TestManager_ClearKeepsFlags(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.SetQueue(testTracks("t1"), 0))
	m.SetShuffle(true)
	m.SetRepeatMode(RepeatOne)

	m.Clear()

	_, ok := m.Current()
	assert.False(t, ok)
	assert.Equal(t, -1, m.CurrentIndex())
	assert.True(t, m.Shuffle())
	assert.Equal(t, RepeatOne, m.RepeatMode())
}

func TestManager_TracksReturnsCopy(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.SetQueue(testTracks("t1", "t2"), 0))

	tracks := m.Tracks()
	tracks[0].ID = "mutated"

	assert.Equal(t, "t1", m.Tracks()[0].ID)
}
