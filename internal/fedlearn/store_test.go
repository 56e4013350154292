package fedlearn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hafsaghannaj/maternal/internal/model"
)

func TestStateStore_CurrentIsDefensiveCopy(t *testing.T) {
	store := NewStateStore()
	store.Reset(&model.Snapshot{Version: 0, Weights: []float64{1, 2, 3}})

	snapshot := store.Current()
	snapshot.Weights[0] = 99

	assert.Equal(t, []float64{1, 2, 3}, store.Current().Weights)
}

func TestStateStore_CommitAppendsHistoryInOrder(t *testing.T) {
	store := NewStateStore()
	store.Reset(&model.Snapshot{Version: 0, Weights: []float64{0}})

	store.Commit(&model.Snapshot{Version: 1, Weights: []float64{1}}, model.RoundMetrics{Round: 1})
	store.Commit(&model.Snapshot{Version: 2, Weights: []float64{2}}, model.RoundMetrics{Round: 2})

	assert.Equal(t, 2, store.RoundsTrained())
	assert.Equal(t, []float64{2}, store.Current().Weights)

	history := store.History()
	require.Len(t, history, 2)
	assert.Equal(t, 1, history[0].Round)
	assert.Equal(t, 2, history[1].Round)
	assert.Equal(t, []float64{1}, history[0].Snapshot.Weights)
}

func TestStateStore_HistoryIsDefensiveCopy(t *testing.T) {
	store := NewStateStore()
	store.Reset(&model.Snapshot{Version: 0, Weights: []float64{0}})
	store.Commit(&model.Snapshot{Version: 1, Weights: []float64{5}}, model.RoundMetrics{Round: 1})

	history := store.History()
	history[0].Snapshot.Weights[0] = -1

	assert.Equal(t, []float64{5}, store.History()[0].Snapshot.Weights)
}

func TestStateStore_HistoryUpTo(t *testing.T) {
	store := NewStateStore()
	store.Reset(&model.Snapshot{Version: 0, Weights: []float64{0}})
	for round := 1; round <= 4; round++ {
		store.Commit(&model.Snapshot{Version: round, Weights: []float64{float64(round)}},
			model.RoundMetrics{Round: round})
	}

	assert.Len(t, store.HistoryUpTo(2), 2)
	assert.Len(t, store.HistoryUpTo(10), 4)
	assert.Empty(t, store.HistoryUpTo(0))
	assert.Empty(t, store.HistoryUpTo(-1))
}

func TestStateStore_ResetDiscardsHistory(t *testing.T) {
	store := NewStateStore()
	store.Reset(&model.Snapshot{Version: 0, Weights: []float64{0}})
	store.Commit(&model.Snapshot{Version: 1, Weights: []float64{1}}, model.RoundMetrics{Round: 1})

	store.Reset(&model.Snapshot{Version: 0, Weights: []float64{7}})

	assert.Zero(t, store.RoundsTrained())
	assert.Empty(t, store.History())
	assert.Equal(t, []float64{7}, store.Current().Weights)
}
