// Package history keeps the bounded, newest-first log of recently accepted
// alerts. The log is constructed once at startup and injected into the hub
// and the HTTP handlers; nothing else reads or writes it.
package history

import (
	"sync"

	"github.com/MicroPhone1/App-HelpPeople/internal/model"
)

// DefaultCapacity bounds the log when no capacity is configured.
const DefaultCapacity = 100

// Log is a fixed-capacity, newest-first sequence of alert records.
// Inserting into a full log evicts the oldest record.
type Log struct {
	mu       sync.RWMutex
	capacity int
	records  []model.AlertRecord
}

// New creates a Log holding at most capacity records. Non-positive
// capacities fall back to DefaultCapacity.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{capacity: capacity}
}

// Push prepends a record, evicting the oldest when over capacity.
func (l *Log) Push(rec model.AlertRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append([]model.AlertRecord{rec}, l.records...)
	if len(l.records) > l.capacity {
		l.records = l.records[:l.capacity]
	}
}

// Recent returns the newest min(k, Len) records, newest first.
func (l *Log) Recent(k int) []model.AlertRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if k > len(l.records) {
		k = len(l.records)
	}
	if k <= 0 {
		return []model.AlertRecord{}
	}
	out := make([]model.AlertRecord, k)
	copy(out, l.records[:k])
	return out
}

// Len returns the number of stored records.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Clear empties the log. Destructive and globally visible; the HTTP layer
// only exposes it outside production mode.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = nil
}
