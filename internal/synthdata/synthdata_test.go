package synthdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Deterministic(t *testing.T) {
	first := Generate(500, 10, 42)
	second := Generate(500, 10, 42)
	assert.Equal(t, first, second)

	other := Generate(500, 10, 43)
	assert.NotEqual(t, first, other)
}

func TestGenerate_Shape(t *testing.T) {
	samples := Generate(200, 7, 1)
	require.Len(t, samples, 200)
	for _, s := range samples {
		assert.Len(t, s.Features, 7)
		assert.Contains(t, []float64{0, 1}, s.Label)
	}
}

func TestGenerate_ClassBalanceNearTarget(t *testing.T) {
	samples := Generate(2000, 10, 42)
	fraction := PositiveFraction(samples)
	assert.InDelta(t, HighRiskFraction, fraction, 0.03)
}

func TestSplit_SizesAndDisjointness(t *testing.T) {
	samples := Generate(1000, 5, 42)
	train, test := Split(samples, 0.2, 42)

	assert.Len(t, test, 200)
	assert.Len(t, train, 800)

	// Split reorders but never invents or drops samples. Continuous
	// features make the first coordinate a unique fingerprint.
	seen := map[float64]int{}
	for _, s := range train {
		seen[s.Features[0]]++
	}
	for _, s := range test {
		seen[s.Features[0]]++
	}
	assert.Len(t, seen, len(samples))
	for _, count := range seen {
		assert.Equal(t, 1, count)
	}
}

func TestSplit_Deterministic(t *testing.T) {
	samples := Generate(300, 5, 42)

	trainA, testA := Split(samples, 0.25, 7)
	trainB, testB := Split(samples, 0.25, 7)

	assert.Equal(t, trainA, trainB)
	assert.Equal(t, testA, testB)
}

func TestSplit_EdgeFractions(t *testing.T) {
	samples := Generate(10, 3, 1)

	train, test := Split(samples, 0, 1)
	assert.Len(t, train, 10)
	assert.Empty(t, test)

	// A fraction that would swallow everything always leaves one
	// training sample.
	train, test = Split(samples, 0.999, 1)
	assert.Len(t, train, 1)
	assert.Len(t, test, 9)
}

func TestPositiveFraction_Empty(t *testing.T) {
	assert.Zero(t, PositiveFraction(nil))
}

func TestFeatureNames_CoverDefaultFeatureCount(t *testing.T) {
	assert.GreaterOrEqual(t, len(FeatureNames), 25)
}
