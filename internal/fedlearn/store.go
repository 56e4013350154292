package fedlearn

import (
	"github.com/hafsaghannaj/maternal/internal/model"
)

// StateStore holds the current global model snapshot plus an append-only
// history of committed rounds. It is written exclusively by the coordinator;
// every read hands out a defensive copy so external mutation can never
// corrupt core state.
type StateStore struct {
	current *model.Snapshot
	history []model.HistoryEntry
}

func NewStateStore() *StateStore {
	return &StateStore{}
}

// Reset installs the initial model and discards all history.
func (s *StateStore) Reset(initial *model.Snapshot) {
	s.current = initial.Clone()
	s.history = nil
}

// Current returns a copy of the committed snapshot, or nil before Reset.
func (s *StateStore) Current() *model.Snapshot {
	return s.current.Clone()
}

// Commit installs a new snapshot and appends its round record.
func (s *StateStore) Commit(snapshot *model.Snapshot, metrics model.RoundMetrics) {
	s.current = snapshot.Clone()
	s.history = append(s.history, model.HistoryEntry{
		Round:    metrics.Round,
		Snapshot: *snapshot.Clone(),
		Metrics:  metrics,
	})
}

// History returns a copy of all committed rounds in order.
func (s *StateStore) History() []model.HistoryEntry {
	return s.HistoryUpTo(len(s.history))
}

// HistoryUpTo returns the first k committed rounds.
func (s *StateStore) HistoryUpTo(k int) []model.HistoryEntry {
	if k > len(s.history) {
		k = len(s.history)
	}
	if k < 0 {
		k = 0
	}
	entries := make([]model.HistoryEntry, k)
	for i := 0; i < k; i++ {
		e := s.history[i]
		entries[i] = model.HistoryEntry{
			Round:    e.Round,
			Snapshot: *e.Snapshot.Clone(),
			Metrics:  e.Metrics,
		}
	}
	return entries
}

// RoundsTrained reports how many rounds have been committed since Reset.
func (s *StateStore) RoundsTrained() int {
	return len(s.history)
}
