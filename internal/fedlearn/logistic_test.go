package fedlearn

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hafsaghannaj/maternal/internal/model"
)

func TestInitialWeights_Reproducible(t *testing.T) {
	a := initialWeights(8, rand.New(rand.NewSource(42)))
	b := initialWeights(8, rand.New(rand.NewSource(42)))

	require.Len(t, a, 9) // weights plus bias
	assert.Equal(t, a, b)
	assert.Zero(t, a[8])
}

func TestForward_KnownValues(t *testing.T) {
	params := []float64{1, -1, 0.5} // w = [1, -1], bias = 0.5

	p := forward(params, []float64{0, 0})
	assert.InDelta(t, 1/(1+math.Exp(-0.5)), p, 1e-12)

	p = forward(params, []float64{1, 2})
	assert.InDelta(t, 1/(1+math.Exp(0.5)), p, 1e-12)
}

func TestSampleGradient_MatchesNumericGradient(t *testing.T) {
	params := []float64{0.3, -0.2, 0.1}
	s := model.Sample{Features: []float64{1.5, -0.7}, Label: 1}

	grad := make([]float64, 3)
	sampleGradient(params, s, grad)

	const h = 1e-6
	for i := range params {
		bumped := make([]float64, len(params))
		copy(bumped, params)
		bumped[i] += h
		numeric := (meanLoss(bumped, []model.Sample{s}) - meanLoss(params, []model.Sample{s})) / h
		assert.InDelta(t, numeric, grad[i], 1e-4)
	}
}

func TestEvaluateParams_PerfectClassifier(t *testing.T) {
	// Model predicts positive iff x0 > 0, with a large margin.
	params := []float64{100, 0}
	samples := []model.Sample{
		{Features: []float64{1}, Label: 1},
		{Features: []float64{2}, Label: 1},
		{Features: []float64{-1}, Label: 0},
		{Features: []float64{-2}, Label: 0},
	}

	metrics := evaluateParams(params, samples)
	assert.Equal(t, 1.0, metrics.Accuracy)
	assert.Equal(t, 1.0, metrics.Precision)
	assert.Equal(t, 1.0, metrics.Recall)
	assert.Equal(t, 1.0, metrics.F1)
	assert.Equal(t, 1.0, metrics.AUC)
	assert.Less(t, metrics.Loss, 0.01)
}

func TestEvaluateParams_SingleClassHasZeroAUC(t *testing.T) {
	params := []float64{1, 0}
	samples := []model.Sample{
		{Features: []float64{1}, Label: 1},
		{Features: []float64{2}, Label: 1},
	}

	metrics := evaluateParams(params, samples)
	assert.Zero(t, metrics.AUC)
}

func TestRankAUC_TiedScoresUseMidranks(t *testing.T) {
	scores := []float64{0.5, 0.5, 0.2, 0.8}
	labels := []float64{1, 0, 0, 1}

	// Pairs: (pos 0.5 vs neg 0.5) = 0.5, (pos 0.5 vs neg 0.2) = 1,
	// (pos 0.8 vs neg 0.5) = 1, (pos 0.8 vs neg 0.2) = 1 → 3.5/4.
	assert.InDelta(t, 0.875, rankAUC(scores, labels), 1e-12)
}
