package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/feedplay/internal/app/playback"
)

type recordingStream struct {
	mu      sync.Mutex
	updates []Update
	err     error
	block   chan struct{}
}

func (s *recordingStream) Send(u Update) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.updates = append(s.updates, u)
	return nil
}

func (s *recordingStream) received() []Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Update, len(s.updates))
	copy(out, s.updates)
	return out
}

func TestManager_SubscribeUnsubscribe(t *testing.T) {
	m := NewManager()

	id1 := m.Subscribe(&recordingStream{})
	id2 := m.Subscribe(&recordingStream{})

	assert.NotEqual(t, id1, id2)
	assert.Equal(t, 2, m.SubscriberCount())

	m.Unsubscribe(id1)
	assert.Equal(t, 1, m.SubscriberCount())

	m.Close()
	assert.Equal(t, 0, m.SubscriberCount())
}

func TestManager_BroadcastSequence(t *testing.T) {
	m := NewManager()
	a := &recordingStream{}
	b := &recordingStream{}
	m.Subscribe(a)
	m.Subscribe(b)

	m.Broadcast(playback.Snapshot{Version: 1})
	m.Broadcast(playback.Snapshot{Version: 2})

	for _, s := range []*recordingStream{a, b} {
		got := s.received()
		require.Len(t, got, 2)
		assert.Equal(t, uint64(1), got[0].SequenceNo)
		assert.Equal(t, uint64(2), got[1].SequenceNo)
		assert.Equal(t, uint64(2), got[1].Snapshot.Version)
	}
}

func TestManager_BroadcastDropsFailingStream(t *testing.T) {
	m := NewManager()
	good := &recordingStream{}
	m.Subscribe(good)
	m.Subscribe(&recordingStream{err: errors.New("stream closed")})

	m.Broadcast(playback.Snapshot{})

	assert.Equal(t, 1, m.SubscriberCount())
	assert.Len(t, good.received(), 1)
}

func TestManager_BroadcastDoesNotWaitForSlowStream(t *testing.T) {
	m := NewManager()
	slow := &recordingStream{block: make(chan struct{})}
	defer close(slow.block)
	m.Subscribe(slow)

	start := time.Now()
	m.Broadcast(playback.Snapshot{})

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 1, m.SubscriberCount())
}

func TestManager_Send(t *testing.T) {
	m := NewManager()
	a := &recordingStream{}
	b := &recordingStream{}
	id := m.Subscribe(a)
	m.Subscribe(b)

	require.NoError(t, m.Send(id, playback.Snapshot{Shuffle: true}))
	require.NoError(t, m.Send("unknown", playback.Snapshot{}))

	require.Len(t, a.received(), 1)
	assert.True(t, a.received()[0].Snapshot.Shuffle)
	assert.Empty(t, b.received())
}

func TestManager_Run(t *testing.T) {
	store := playback.NewStore()
	m := NewManager()
	stream := &recordingStream{}
	m.Subscribe(stream)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, store.Subscribe())
		close(done)
	}()

	require.Eventually(t, func() bool {
		return len(stream.received()) == 1
	}, time.Second, time.Millisecond)

	cancel()
	<-done
}
