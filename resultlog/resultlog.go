package resultlog

import (
	"sync"
	"time"

	"github.com/thetooth/netprobe/check"
)

// DefaultCapacity is how many entries are kept before the oldest are dropped.
const DefaultCapacity = 50

// Entry is one displayed probe outcome.
type Entry struct {
	Time     time.Time
	Message  string
	Severity check.Severity
}

// Log is an append-only display log kept newest first.
type Log struct {
	capacity int
	entries  []Entry
	now      func() time.Time
	mu       sync.RWMutex
}

func New(capacity int) *Log {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Log{capacity: capacity, now: time.Now}
}

// Append prepends a timestamped entry and drops anything past capacity.
func (l *Log) Append(message string, severity check.Severity) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := Entry{Time: l.now(), Message: message, Severity: severity}
	l.entries = append(l.entries, Entry{})
	copy(l.entries[1:], l.entries)
	l.entries[0] = e
	if len(l.entries) > l.capacity {
		l.entries = l.entries[:l.capacity]
	}
	return e
}

func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// Entries returns a copy, newest first.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// String renders an entry the way it is shown to the user.
func (e Entry) String() string {
	return "[" + e.Time.Format("15:04:05") + "] " + e.Message
}
