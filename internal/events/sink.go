// internal/events/sink.go
package events

// Sink is the append-only interface the core writes events to. Components
// never read events back; indexing is the consumer's concern.
type Sink interface {
	Append(Event)
}

// Log is an in-memory append-only event log. The engine stages events here
// during a call and only publishes them if the call commits.
type Log struct {
	entries []Event
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{}
}

// Append adds an event to the log.
func (l *Log) Append(e Event) {
	l.entries = append(l.entries, e)
}

// Len returns the number of staged events.
func (l *Log) Len() int {
	return len(l.entries)
}

// Drain returns all staged events and empties the log.
func (l *Log) Drain() []Event {
	out := l.entries
	l.entries = nil
	return out
}

// Entries returns the staged events without draining them.
func (l *Log) Entries() []Event {
	out := make([]Event, len(l.entries))
	copy(out, l.entries)
	return out
}

// Clone returns a copy for the engine's copy-on-write discipline.
func (l *Log) Clone() *Log {
	cp := &Log{entries: make([]Event, len(l.entries))}
	copy(cp.entries, l.entries)
	return cp
}
