package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamIteratesFrames(t *testing.T) {
	events := make(chan *Event, 3)
	stream := newRunStream(events, func() {}, "sess-1", "run-1")

	events <- &Event{Event: EventRunStarted}
	events <- &Event{Event: EventRunContent, Content: strptr("hello")}
	events <- &Event{Event: EventRunCompleted, Content: strptr("hello")}
	close(events)

	assert.True(t, stream.Next())
	assert.Equal(t, EventRunStarted, stream.Current().Event)

	assert.True(t, stream.Next())
	require.NotNil(t, stream.Current().Content)
	assert.Equal(t, "hello", *stream.Current().Content)

	assert.True(t, stream.Next())
	assert.Equal(t, EventRunCompleted, stream.Current().Event)

	assert.False(t, stream.Next())
}

func TestStreamNextAfterDone(t *testing.T) {
	events := make(chan *Event)
	close(events)
	stream := newRunStream(events, func() {}, "sess-1", "run-1")

	assert.False(t, stream.Next())
	assert.False(t, stream.Next(), "calling Next after done should still return false")
}

func TestStreamAccessors(t *testing.T) {
	events := make(chan *Event)
	close(events)
	stream := newRunStream(events, func() {}, "sess-1", "run-1")

	assert.Equal(t, "sess-1", stream.SessionID())
	assert.Equal(t, "run-1", stream.RunID())
}

func TestStreamClose(t *testing.T) {
	events := make(chan *Event, 2)
	events <- &Event{Event: EventRunStarted}
	events <- &Event{Event: EventRunError, Content: strptr("Run aborted")}
	close(events)

	cancelled := false
	stream := newRunStream(events, func() { cancelled = true }, "sess-1", "run-1")

	stream.Close()
	assert.True(t, cancelled, "close should cancel the producing run")
	assert.False(t, stream.Next(), "closed stream is exhausted")

	stream.Close()
}
