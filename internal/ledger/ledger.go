// Package ledger holds the live alert feed: an in-memory, newest-first
// sequence owned exclusively by the process. Classification units and the
// boundary share it; a single mutex serializes mutations, and List returns a
// copy so readers never observe a partially inserted record.
package ledger

import (
	"sync"

	"triage-agent/internal/domain"
)

type Ledger struct {
	mu     sync.RWMutex
	alerts []domain.AlertRecord
}

func New() *Ledger {
	return &Ledger{}
}

// InsertFront places the record at the head of the feed.
func (l *Ledger) InsertFront(a domain.AlertRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.alerts = append([]domain.AlertRecord{a}, l.alerts...)
}

// List returns a snapshot of the feed, newest first.
func (l *Ledger) List() []domain.AlertRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.AlertRecord, len(l.alerts))
	copy(out, l.alerts)
	return out
}

// DeleteByID removes the first record with the given id and reports whether
// one was removed. Relative order of the remaining records is unchanged.
func (l *Ledger) DeleteByID(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, a := range l.alerts {
		if a.ID == id {
			l.alerts = append(l.alerts[:i], l.alerts[i+1:]...)
			return true
		}
	}
	return false
}

// Len reports the current feed size.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.alerts)
}
