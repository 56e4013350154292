package fedlearn

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/hashicorp/go-hclog"
	"gonum.org/v1/gonum/floats"

	"github.com/hafsaghannaj/maternal/internal/config"
	"github.com/hafsaghannaj/maternal/internal/model"
)

// Trainer runs one hospital's local training step of a federated round.
type Trainer interface {
	HospitalID() string
	SampleCount() int
	Train(ctx context.Context, global *model.Snapshot, round int) (*model.LocalUpdate, error)
}

// dpTrainer performs bounded-sensitivity gradient descent on a single shard.
// Per step: per-sample gradients are clipped to the L2 bound C, averaged, and
// perturbed with Gaussian noise of per-coordinate std σ·C/n before the update
// is applied. Individual-record gradients never leave the privatization step.
type dpTrainer struct {
	hospitalID string
	shard      *model.Shard
	cfg        config.TrainingConfig
	rng        *rand.Rand
	logger     hclog.Logger
}

// NewDPTrainer builds a trainer for one shard. The random source is injected
// so noise is reproducible under a fixed seed.
func NewDPTrainer(shard *model.Shard, cfg config.TrainingConfig, rng *rand.Rand, logger hclog.Logger) Trainer {
	return &dpTrainer{
		hospitalID: shard.HospitalID,
		shard:      shard,
		cfg:        cfg,
		rng:        rng,
		logger:     logger.Named(shard.HospitalID),
	}
}

func (t *dpTrainer) HospitalID() string {
	return t.hospitalID
}

func (t *dpTrainer) SampleCount() int {
	return t.shard.SampleCount()
}

func (t *dpTrainer) Train(ctx context.Context, global *model.Snapshot, round int) (*model.LocalUpdate, error) {
	dim := paramDim(t.cfg.Features)
	if len(global.Weights) != dim {
		return nil, &TrainingError{
			HospitalID: t.hospitalID,
			Reason:     fmt.Sprintf("global model has %d parameters, trainer expects %d", len(global.Weights), dim),
		}
	}

	// Local copy; the global snapshot is never mutated.
	local := make([]float64, dim)
	copy(local, global.Weights)

	samples := t.shard.Samples
	n := float64(len(samples))
	startLoss := meanLoss(local, samples)
	startAccuracy := accuracyOf(local, samples)

	grad := make([]float64, dim)
	step := make([]float64, dim)
	noiseStd := t.cfg.NoiseMultiplier * t.cfg.ClipNorm / n

	for epoch := 0; epoch < t.cfg.LocalEpochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("hospital %s: round %d aborted: %w", t.hospitalID, round, err)
		}

		for i := range step {
			step[i] = 0
		}
		for _, s := range samples {
			sampleGradient(local, s, grad)
			clipToNorm(grad, t.cfg.ClipNorm)
			floats.Add(step, grad)
		}
		floats.Scale(1/n, step)

		if t.cfg.NoiseMultiplier > 0 {
			for i := range step {
				step[i] += t.rng.NormFloat64() * noiseStd
			}
		}

		floats.AddScaled(local, -t.cfg.LearningRate, step)
	}

	delta := make([]float64, dim)
	floats.SubTo(delta, local, global.Weights)

	t.logger.Debug("local training finished", "round", round, "samples", len(samples), "startLoss", startLoss)

	return &model.LocalUpdate{
		HospitalID:      t.hospitalID,
		Round:           round,
		Delta:           delta,
		SampleCount:     len(samples),
		NoiseMultiplier: t.cfg.NoiseMultiplier,
		ClipNorm:        t.cfg.ClipNorm,
		StartLoss:       startLoss,
		StartAccuracy:   startAccuracy,
	}, nil
}

// clipToNorm rescales g in place to L2 norm c when its norm exceeds c.
// Gradients already within the bound are untouched.
func clipToNorm(g []float64, c float64) {
	norm := floats.Norm(g, 2)
	if norm > c {
		floats.Scale(c/norm, g)
	}
}
