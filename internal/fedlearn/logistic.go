package fedlearn

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/hafsaghannaj/maternal/internal/model"
)

// The global model is a logistic regression classifier over the fixed feature
// schema: sigmoid( dot(w, x) + bias ). Parameters travel as a flat vector
// [w0..wD-1, bias]; the shape is invariant across rounds.

// paramDim is the flat parameter length for a given feature count.
func paramDim(features int) int {
	return features + 1
}

// initialWeights returns reproducibly seeded starting parameters.
func initialWeights(features int, rng *rand.Rand) []float64 {
	params := make([]float64, paramDim(features))
	for i := 0; i < features; i++ {
		params[i] = rng.Float64()*0.1 - 0.05
	}
	return params
}

func forward(params []float64, x []float64) float64 {
	d := len(params) - 1
	z := floats.Dot(params[:d], x) + params[d]
	return sigmoid(z)
}

// meanLoss computes mean BCE loss: -mean( y·log(p) + (1-y)·log(1-p) ).
func meanLoss(params []float64, samples []model.Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	total := 0.0
	for _, s := range samples {
		p := clamp(forward(params, s.Features), 1e-9, 1-1e-9)
		total += -(s.Label*math.Log(p) + (1-s.Label)*math.Log(1-p))
	}
	return total / float64(len(samples))
}

// sampleGradient writes the per-sample BCE gradient into out.
// dL/dw_i = (p-y)·x_i, dL/db = (p-y).
func sampleGradient(params []float64, s model.Sample, out []float64) {
	p := forward(params, s.Features)
	residual := p - s.Label
	for i, xi := range s.Features {
		out[i] = residual * xi
	}
	out[len(out)-1] = residual
}

// evaluateParams measures the model against a labeled set. AUC falls back to
// 0 when only one class is present, matching the original evaluation rules.
func evaluateParams(params []float64, samples []model.Sample) model.Metrics {
	if len(samples) == 0 {
		return model.Metrics{}
	}

	var tp, fp, tn, fn int
	scores := make([]float64, len(samples))
	labels := make([]float64, len(samples))

	for i, s := range samples {
		p := forward(params, s.Features)
		scores[i] = p
		labels[i] = s.Label

		predicted := p > 0.5
		actual := s.Label == 1.0
		switch {
		case predicted && actual:
			tp++
		case predicted && !actual:
			fp++
		case !predicted && actual:
			fn++
		default:
			tn++
		}
	}

	metrics := model.Metrics{
		Loss:     meanLoss(params, samples),
		Accuracy: float64(tp+tn) / float64(len(samples)),
	}
	if tp+fp > 0 {
		metrics.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		metrics.Recall = float64(tp) / float64(tp+fn)
	}
	if metrics.Precision+metrics.Recall > 0 {
		metrics.F1 = 2 * metrics.Precision * metrics.Recall / (metrics.Precision + metrics.Recall)
	}
	metrics.AUC = rankAUC(scores, labels)

	return metrics
}

func accuracyOf(params []float64, samples []model.Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	correct := 0
	for _, s := range samples {
		predicted := 0.0
		if forward(params, s.Features) > 0.5 {
			predicted = 1.0
		}
		if predicted == s.Label {
			correct++
		}
	}
	return float64(correct) / float64(len(samples))
}

// rankAUC computes ROC AUC via the Mann-Whitney U statistic with midranks
// for tied scores.
func rankAUC(scores, labels []float64) float64 {
	n := len(scores)
	positives := 0
	for _, y := range labels {
		if y == 1.0 {
			positives++
		}
	}
	negatives := n - positives
	if positives == 0 || negatives == 0 {
		return 0
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return scores[order[i]] < scores[order[j]]
	})

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && scores[order[j+1]] == scores[order[i]] {
			j++
		}
		midrank := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[order[k]] = midrank
		}
		i = j + 1
	}

	rankSum := 0.0
	for i, y := range labels {
		if y == 1.0 {
			rankSum += ranks[i]
		}
	}

	u := rankSum - float64(positives)*float64(positives+1)/2
	return u / (float64(positives) * float64(negatives))
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
