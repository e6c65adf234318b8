package gateway

import "context"

// RunStream is an iterator over the event frames of one agent run.
// Usage:
//
//	stream, err := gw.Run(ctx, req)
//	for stream.Next() {
//	    frame := stream.Current()
//	    // handle frame
//	}
//
// The stream always ends with a terminal frame (RunCompleted or RunError);
// iteration failure surfaces as a RunError frame, not a separate error.
type RunStream struct {
	events    chan *Event
	current   *Event
	cancel    context.CancelFunc
	sessionID string
	runID     string
	done      bool
}

// newRunStream creates a stream over the given frame channel. Closing the
// stream invokes cancel to stop the producing run.
func newRunStream(events chan *Event, cancel context.CancelFunc, sessionID, runID string) *RunStream {
	return &RunStream{
		events:    events,
		cancel:    cancel,
		sessionID: sessionID,
		runID:     runID,
	}
}

// Next advances to the next frame. Returns false when the stream is
// exhausted.
func (s *RunStream) Next() bool {
	if s.done {
		return false
	}
	event, ok := <-s.events
	if !ok {
		s.done = true
		return false
	}
	s.current = event
	return true
}

// Current returns the most recent frame returned by Next.
func (s *RunStream) Current() *Event {
	return s.current
}

// SessionID returns the session this run belongs to. Useful when Run minted
// the session id.
func (s *RunStream) SessionID() string {
	return s.sessionID
}

// RunID returns the unique id of this run.
func (s *RunStream) RunID() string {
	return s.runID
}

// Close abandons the run: it cancels the producing goroutines and drains
// any buffered frames. Safe to call more than once and after exhaustion.
func (s *RunStream) Close() {
	s.cancel()
	for !s.done {
		if _, ok := <-s.events; !ok {
			s.done = true
		}
	}
}
