// internal/api/latest.go
package api

import (
	"context"
	"sync"
	"time"

	"github.com/rovshanmuradov/aave-liquidator/internal/domain"
	"github.com/rovshanmuradov/aave-liquidator/internal/events"
)

// snapshot is the most recent successful cycle result.
type snapshot struct {
	cycleID    string
	trigger    events.Trigger
	updatedAt  time.Time
	candidates []domain.Candidate
}

// latestList keeps the last list delivered on the bus so clients can read it
// without starting a new cycle. It implements events.Handler.
type latestList struct {
	mu   sync.RWMutex
	last *snapshot
}

func (l *latestList) Handle(_ context.Context, event events.Event) error {
	e, ok := event.(events.CandidatesEvent)
	if !ok {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last = &snapshot{
		cycleID:    e.CycleID,
		trigger:    e.Trigger,
		updatedAt:  e.Timestamp(),
		candidates: e.Candidates,
	}
	return nil
}

func (l *latestList) get() (snapshot, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.last == nil {
		return snapshot{}, false
	}
	return *l.last, true
}
