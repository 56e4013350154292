package fedlearn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hafsaghannaj/maternal/internal/model"
)

func TestAggregate_WeightsBySampleCount(t *testing.T) {
	updates := []*model.LocalUpdate{
		{HospitalID: "h1", Delta: []float64{4, 0}, SampleCount: 1},
		{HospitalID: "h2", Delta: []float64{0, 8}, SampleCount: 3},
	}

	delta, err := Aggregate(updates, 2)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, delta[0], 1e-12) // 4 * 1/4
	assert.InDelta(t, 6.0, delta[1], 1e-12) // 8 * 3/4
}

func TestAggregate_EqualCountsIsPlainMean(t *testing.T) {
	updates := []*model.LocalUpdate{
		{HospitalID: "h1", Delta: []float64{1, 2}, SampleCount: 50},
		{HospitalID: "h2", Delta: []float64{3, 4}, SampleCount: 50},
	}

	delta, err := Aggregate(updates, 2)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, delta[0], 1e-12)
	assert.InDelta(t, 3.0, delta[1], 1e-12)
}

func TestAggregate_ZeroSampleUpdateExcluded(t *testing.T) {
	updates := []*model.LocalUpdate{
		{HospitalID: "h1", Delta: []float64{2, 2}, SampleCount: 10},
		{HospitalID: "h2", Delta: []float64{1e9, 1e9}, SampleCount: 0},
	}

	delta, err := Aggregate(updates, 2)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, delta[0], 1e-12)
	assert.InDelta(t, 2.0, delta[1], 1e-12)
}

func TestAggregate_AllZeroCountsFails(t *testing.T) {
	updates := []*model.LocalUpdate{
		{HospitalID: "h1", Delta: []float64{1}, SampleCount: 0},
		{HospitalID: "h2", Delta: []float64{2}, SampleCount: 0},
	}

	_, err := Aggregate(updates, 1)
	var trainErr *TrainingError
	require.Error(t, err)
	assert.ErrorAs(t, err, &trainErr)
}

func TestAggregate_ShapeMismatchFails(t *testing.T) {
	updates := []*model.LocalUpdate{
		{HospitalID: "h1", Delta: []float64{1, 2}, SampleCount: 10},
		{HospitalID: "h2", Delta: []float64{1, 2, 3}, SampleCount: 10},
	}

	_, err := Aggregate(updates, 2)
	var trainErr *TrainingError
	require.Error(t, err)
	require.ErrorAs(t, err, &trainErr)
	assert.Equal(t, "h2", trainErr.HospitalID)
}
