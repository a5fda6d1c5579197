package triage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingMirror struct {
	mu    sync.Mutex
	calls []string
	err   error
	gate  chan struct{}
}

func (c *countingMirror) MirrorTranscription(_ context.Context, _ string, text string) error {
	if c.gate != nil {
		<-c.gate
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, text)
	return c.err
}

func (c *countingMirror) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func TestMirrorQueueDelivers(t *testing.T) {
	mirror := &countingMirror{}
	q := NewMirrorQueue(mirror, 8, nil, nil)
	defer q.Close()

	q.Enqueue("session-1", "linha um")
	q.Enqueue("session-1", "linha dois")

	require.Eventually(t, func() bool {
		return mirror.count() == 2
	}, time.Second, 5*time.Millisecond)

	mirror.mu.Lock()
	defer mirror.mu.Unlock()
	assert.Equal(t, []string{"linha um", "linha dois"}, mirror.calls)
}

func TestMirrorQueueFailureIsSwallowed(t *testing.T) {
	mirror := &countingMirror{err: errors.New("remote down")}
	q := NewMirrorQueue(mirror, 8, nil, nil)
	defer q.Close()

	// Enqueue never reports the delivery failure.
	q.Enqueue("session-1", "linha")
	require.Eventually(t, func() bool {
		return mirror.count() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestMirrorQueueDropsWhenFull(t *testing.T) {
	gate := make(chan struct{})
	mirror := &countingMirror{gate: gate}
	q := NewMirrorQueue(mirror, 1, nil, nil)

	// First job occupies the worker, second fills the buffer, the rest drop.
	for i := 0; i < 5; i++ {
		q.Enqueue("session-1", "linha")
	}
	close(gate)
	q.Close()

	assert.LessOrEqual(t, mirror.count(), 2)
	assert.GreaterOrEqual(t, mirror.count(), 1)
}

func TestMirrorQueueCloseDrains(t *testing.T) {
	mirror := &countingMirror{}
	q := NewMirrorQueue(mirror, 16, nil, nil)
	for i := 0; i < 10; i++ {
		q.Enqueue("session-1", "linha")
	}
	q.Close()
	assert.Equal(t, 10, mirror.count())
}
