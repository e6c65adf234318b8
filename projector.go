package gateway

import "time"

// runProjector turns loop notifications into wire-ready event frames for a
// single run. It keeps one canonical record per tool call and mutates it in
// place as the call completes; emitted frames carry snapshot copies so they
// stay stable after emission.
//
// Not safe for concurrent use. Each run drives its projector from one
// goroutine.
type runProjector struct {
	sessionID string
	runID     string
	agentID   string
	records   []*ToolCallRecord
	now       func() time.Time
}

func newRunProjector(sessionID, runID, agentID string) *runProjector {
	return &runProjector{
		sessionID: sessionID,
		runID:     runID,
		agentID:   agentID,
		now:       time.Now,
	}
}

// frame builds a base frame of the given type with identity and timestamp
// filled in.
func (p *runProjector) frame(kind EventType) *Event {
	return &Event{
		Event:       kind,
		ContentType: "text",
		SessionID:   p.sessionID,
		RunID:       p.runID,
		AgentID:     p.agentID,
		CreatedAt:   p.now().Unix(),
	}
}

// started produces the structural frame that opens every stream.
func (p *runProjector) started() *Event {
	return p.frame(EventRunStarted)
}

// content produces a RunContent frame carrying the full accumulated text,
// or nil when nothing has accumulated yet.
func (p *runProjector) content(accumulated string) *Event {
	if accumulated == "" {
		return nil
	}
	ev := p.frame(EventRunContent)
	ev.Content = strptr(accumulated)
	ev.Tools = p.snapshotRecords()
	return ev
}

// toolStarted registers a new tool call record and produces its
// ToolCallStarted frame. Missing identifiers are minted, a missing name
// falls back to "unknown", and missing arguments become an empty object.
func (p *runProjector) toolStarted(callID, name string, args map[string]any) *Event {
	if callID == "" {
		callID = newID()
	}
	if name == "" {
		name = "unknown"
	}
	if args == nil {
		args = map[string]any{}
	}
	now := p.now()
	rec := &ToolCallRecord{
		Role:       "tool",
		ToolCallID: callID,
		ToolName:   name,
		ToolArgs:   args,
		CreatedAt:  now.Unix(),
		started:    now,
	}
	p.records = append(p.records, rec)

	ev := p.frame(EventToolCallStarted)
	ev.Tool = snapshot(rec)
	return ev
}

// toolCompleted fills in the record for a finished call and produces its
// ToolCallCompleted frame. Completions that match no record are dropped.
func (p *runProjector) toolCompleted(callID, result string, isError bool) *Event {
	rec := p.findRecord(callID)
	if rec == nil {
		return nil
	}
	text := truncate(result, ToolResultLimit)
	rec.Content = &text
	rec.ToolCallError = isError
	elapsed := p.now().Sub(rec.started).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	rec.Metrics = Metrics{Time: elapsed}

	ev := p.frame(EventToolCallCompleted)
	ev.Tool = snapshot(rec)
	return ev
}

// completed produces the terminal frame of a successful run.
func (p *runProjector) completed(final string) *Event {
	ev := p.frame(EventRunCompleted)
	ev.Content = strptr(final)
	ev.Tools = p.snapshotRecords()
	return ev
}

// failed produces the terminal frame of a failed run. A nil error means the
// run ended without a verdict, reported as an abort.
func (p *runProjector) failed(err error) *Event {
	msg := "Run aborted"
	if err != nil {
		msg = err.Error()
	}
	ev := p.frame(EventRunError)
	ev.Content = strptr(msg)
	return ev
}

// findRecord resolves a completion to its record: an exact id match wins,
// otherwise the oldest record still awaiting a result.
func (p *runProjector) findRecord(callID string) *ToolCallRecord {
	for _, rec := range p.records {
		if rec.ToolCallID == callID {
			return rec
		}
	}
	for _, rec := range p.records {
		if rec.Content == nil {
			return rec
		}
	}
	return nil
}

// snapshotRecords copies the record list so emitted frames stay stable
// while later completions mutate the canonical records.
func (p *runProjector) snapshotRecords() []*ToolCallRecord {
	if len(p.records) == 0 {
		return nil
	}
	out := make([]*ToolCallRecord, len(p.records))
	for i, rec := range p.records {
		out[i] = snapshot(rec)
	}
	return out
}

func snapshot(rec *ToolCallRecord) *ToolCallRecord {
	c := *rec
	return &c
}

// truncate caps s at limit runes.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func strptr(s string) *string {
	return &s
}
