package common

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/hafsaghannaj/maternal/internal/events"
	"github.com/hafsaghannaj/maternal/internal/model"
)

func MovingAverage(values []float64, windowSize int) []float64 {
	if len(values) < windowSize {
		return nil // Not enough data for the window size
	}
	averages := make([]float64, len(values)-windowSize+1)
	for i := 0; i <= len(values)-windowSize; i++ {
		sum := 0.0
		for j := i; j < i+windowSize; j++ {
			sum += values[j]
		}
		averages[i] = sum / float64(windowSize)
	}
	return averages
}

func HasConverged(accuracies []float64, threshold float64, patience int, windowSize int) bool {
	averages := MovingAverage(accuracies, windowSize)
	if len(averages) < patience+1 {
		return false // Not enough data to determine convergence
	}

	for i := len(averages) - patience; i < len(averages); i++ {
		improvement := averages[i] - averages[i-1]
		if math.Abs(improvement) > threshold {
			return false
		}
	}
	return true
}

// WeightedAverage computes the sample-count-weighted mean of per-hospital
// values. Entries with weight 0 contribute nothing to either side.
func WeightedAverage(values []float64, weights []int) float64 {
	total := 0
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		return 0
	}

	sum := 0.0
	for i, v := range values {
		sum += v * float64(weights[i])
	}
	return sum / float64(total)
}

func HospitalID(index int) string {
	return fmt.Sprintf("%s%d", HOSPITAL_ID_PREFIX, index+1)
}

func SortHospitals(hospitals []*model.Hospital) {
	sort.Slice(hospitals, func(i, j int) bool {
		return hospitals[i].ID < hospitals[j].ID
	})
}

func GetHospitalStateChangeEvent(current map[string]*model.Hospital, updated map[string]*model.Hospital) events.Event {
	added := []*model.Hospital{}
	// check for added hospitals
	for _, hospital := range updated {
		_, found := current[hospital.ID]
		if !found {
			added = append(added, hospital)
		}
	}

	removed := []*model.Hospital{}
	// check for removed hospitals
	for _, hospital := range current {
		_, found := updated[hospital.ID]
		if !found {
			removed = append(removed, hospital)
		}
	}

	var event events.Event
	if len(added) > 0 || len(removed) > 0 {
		event = events.Event{
			Type:      HOSPITAL_STATE_CHANGE_EVENT_TYPE,
			Timestamp: time.Now(),
			Data: events.HospitalStateChangeEvent{
				HospitalsAdded:   added,
				HospitalsRemoved: removed,
			},
		}
	}

	return event
}
