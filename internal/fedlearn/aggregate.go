package fedlearn

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/hafsaghannaj/maternal/internal/model"
)

// Aggregate combines one round's local updates into a single global delta
// using FedAvg weighting: each update contributes in proportion to its sample
// count. Hospitals reporting zero samples are excluded from both numerator
// and denominator. Aggregation is deterministic; all randomness already
// happened inside the trainers.
func Aggregate(updates []*model.LocalUpdate, dim int) ([]float64, error) {
	totalSamples := 0
	for _, u := range updates {
		if len(u.Delta) != dim {
			return nil, &TrainingError{
				HospitalID: u.HospitalID,
				Reason:     fmt.Sprintf("update has %d parameters, global model has %d", len(u.Delta), dim),
			}
		}
		totalSamples += u.SampleCount
	}
	if totalSamples == 0 {
		return nil, &TrainingError{Reason: "no update carries any samples"}
	}

	aggregate := make([]float64, dim)
	for _, u := range updates {
		if u.SampleCount == 0 {
			continue
		}
		weight := float64(u.SampleCount) / float64(totalSamples)
		floats.AddScaled(aggregate, weight, u.Delta)
	}

	return aggregate, nil
}
