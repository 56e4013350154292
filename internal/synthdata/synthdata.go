// Package synthdata generates the synthetic maternal-health dataset the
// simulated hospitals train on. Generation is fully deterministic for a fixed
// seed so test runs are reproducible.
package synthdata

import (
	"math"
	"math/rand"
	"sort"

	"github.com/hafsaghannaj/maternal/internal/model"
)

// FeatureNames mimics real maternal health indicators. The first Features
// entries name the columns of every generated sample.
var FeatureNames = []string{
	"age", "bmi", "systolic_bp", "diastolic_bp", "heart_rate",
	"blood_sugar", "hemoglobin", "platelet_count", "wbc_count",
	"rbc_count", "blood_urea", "serum_creatinine", "thyroid_tsh",
	"thyroid_t3", "thyroid_t4", "vitamin_d", "calcium", "iron",
	"uric_acid", "cholesterol", "triglycerides", "hdl", "ldl",
	"previous_c_section", "parity",
}

// HighRiskFraction is the target share of positive labels.
const HighRiskFraction = 0.15

// Generate produces n standardized samples with the given feature count.
// Labels come from a hidden linear risk score plus a small noise term, with
// the decision threshold placed at the (1 - HighRiskFraction) quantile so the
// class balance is stable regardless of n.
func Generate(n, features int, seed int64) []model.Sample {
	rng := rand.New(rand.NewSource(seed))

	// Hidden ground-truth weights shared by all samples.
	truth := make([]float64, features)
	for i := range truth {
		truth[i] = rng.NormFloat64()
	}

	samples := make([]model.Sample, n)
	scores := make([]float64, n)
	for i := 0; i < n; i++ {
		x := make([]float64, features)
		score := 0.0
		for j := range x {
			x[j] = rng.NormFloat64()
			score += truth[j] * x[j]
		}
		score += 0.5 * rng.NormFloat64()
		samples[i] = model.Sample{Features: x}
		scores[i] = score
	}

	threshold := quantile(scores, 1-HighRiskFraction)
	for i := range samples {
		if scores[i] > threshold {
			samples[i].Label = 1.0
		}
	}

	return samples
}

// Split shuffles the dataset with the given seed and carves off the trailing
// fraction as the held-out evaluation set.
func Split(samples []model.Sample, testFraction float64, seed int64) (train, test []model.Sample) {
	shuffled := make([]model.Sample, len(samples))
	copy(shuffled, samples)

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	testSize := int(math.Round(float64(len(shuffled)) * testFraction))
	if testSize >= len(shuffled) {
		testSize = len(shuffled) - 1
	}
	if testSize < 0 {
		testSize = 0
	}

	cut := len(shuffled) - testSize
	return shuffled[:cut], shuffled[cut:]
}

// PositiveFraction reports the share of high-risk labels in the set.
func PositiveFraction(samples []model.Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	positives := 0
	for _, s := range samples {
		if s.Label == 1.0 {
			positives++
		}
	}
	return float64(positives) / float64(len(samples))
}

func quantile(values []float64, q float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)) * q)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
