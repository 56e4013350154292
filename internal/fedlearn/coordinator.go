package fedlearn

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"gonum.org/v1/gonum/floats"

	"github.com/hafsaghannaj/maternal/internal/common"
	"github.com/hafsaghannaj/maternal/internal/config"
	"github.com/hafsaghannaj/maternal/internal/events"
	"github.com/hafsaghannaj/maternal/internal/model"
	"github.com/hafsaghannaj/maternal/internal/synthdata"
)

// State is the coordinator's lifecycle phase.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateTraining
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateReady:
		return "READY"
	case StateTraining:
		return "TRAINING"
	case StateTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// InitializationResult reports what initialize() built.
type InitializationResult struct {
	Status             string         `json:"status"`
	Hospitals          []string       `json:"hospitals"`
	SampleCounts       map[string]int `json:"sample_counts"`
	TotalSamples       int            `json:"total_samples"`
	TestSamples        int            `json:"test_samples"`
	HighRiskPercentage float64        `json:"high_risk_percentage"`
}

// TrainingResult reports how far a train() call got and why it stopped.
type TrainingResult struct {
	RoundsCompleted int                  `json:"rounds_completed"`
	Metrics         []model.RoundMetrics `json:"metrics"`
	StopReason      string               `json:"stop_reason,omitempty"`
}

// Progress mirrors the per-round accuracy/loss series the coordinator keeps
// for convergence detection and prediction.
type Progress struct {
	Accuracies []float64
	Losses     []float64
	Converged  bool
}

// Coordinator drives the federated round loop and is the sole writer of the
// global model state and the privacy ledger. A single mutex serializes round
// commits against concurrent reads so callers never observe a half-committed
// model.
type Coordinator struct {
	mu       sync.Mutex
	logger   hclog.Logger
	eventBus *events.EventBus

	cfg        config.TrainingConfig
	state      State
	trainers   []Trainer
	newTrainer func(shard *model.Shard, cfg config.TrainingConfig, rng *rand.Rand, logger hclog.Logger) Trainer

	accountant *Accountant
	store      *StateStore
	testSet    []model.Sample

	maxSampleRate float64
	progress      Progress
}

func NewCoordinator(eventBus *events.EventBus, logger hclog.Logger) *Coordinator {
	return &Coordinator{
		logger:     logger.Named("coordinator"),
		eventBus:   eventBus,
		state:      StateUninitialized,
		store:      NewStateStore(),
		accountant: NewAccountant(0),
		newTrainer: NewDPTrainer,
	}
}

// Initialize partitions a fresh synthetic dataset across the hospitals,
// seeds the initial model, and resets the privacy accountant and all history.
// Re-initializing is explicitly destructive.
func (c *Coordinator) Initialize(cfg config.TrainingConfig) (*InitializationResult, error) {
	if err := validateTraining(cfg); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	dataset := synthdata.Generate(cfg.Samples, cfg.Features, cfg.Seed)
	train, test := synthdata.Split(dataset, cfg.TestFraction, cfg.Seed)

	shards, err := PartitionSamples(train, cfg.HospitalCount, cfg.Seed)
	if err != nil {
		return nil, err
	}

	trainers := make([]Trainer, len(shards))
	sampleCounts := make(map[string]int, len(shards))
	hospitals := make([]string, len(shards))
	maxShard := 0
	for i, shard := range shards {
		rng := rand.New(rand.NewSource(cfg.Seed + int64(i) + 1))
		trainers[i] = c.newTrainer(shard, cfg, rng, c.logger)
		sampleCounts[shard.HospitalID] = shard.SampleCount()
		hospitals[i] = shard.HospitalID
		if shard.SampleCount() > maxShard {
			maxShard = shard.SampleCount()
		}
	}

	initRng := rand.New(rand.NewSource(cfg.Seed))
	c.cfg = cfg
	c.trainers = trainers
	c.testSet = test
	c.maxSampleRate = float64(maxShard) / float64(len(train))
	c.accountant.Reset(cfg.TargetDelta)
	c.store.Reset(&model.Snapshot{Version: 0, Weights: initialWeights(cfg.Features, initRng)})
	c.progress = Progress{}
	c.state = StateReady

	c.logger.Info("federated learning initialized",
		"hospitals", cfg.HospitalCount, "trainSamples", len(train), "testSamples", len(test))

	return &InitializationResult{
		Status:             "initialized",
		Hospitals:          hospitals,
		SampleCounts:       sampleCounts,
		TotalSamples:       len(dataset),
		TestSamples:        len(test),
		HighRiskPercentage: synthdata.PositiveFraction(dataset) * 100,
	}, nil
}

// RunRound executes exactly one federated round: dispatch, barrier, privacy
// charge, aggregate, commit. Any per-hospital failure or an exhausted budget
// discards the whole round and leaves all state unchanged.
func (c *Coordinator) RunRound(ctx context.Context) (model.RoundMetrics, error) {
	c.mu.Lock()
	metrics, event, err := c.runRoundLocked(ctx)
	c.mu.Unlock()

	if err == nil {
		c.eventBus.Publish(event)
	}
	return metrics, err
}

func (c *Coordinator) runRoundLocked(ctx context.Context) (model.RoundMetrics, events.Event, error) {
	if c.state != StateReady && c.state != StateTraining {
		return model.RoundMetrics{}, events.Event{}, ErrNotInitialized
	}

	round := c.store.RoundsTrained() + 1

	if c.cfg.TargetEpsilon > 0 {
		projected := c.accountant.EpsilonAfter(c.cfg.NoiseMultiplier, c.maxSampleRate, c.cfg.LocalEpochs)
		if projected > c.cfg.TargetEpsilon {
			return model.RoundMetrics{}, events.Event{}, fmt.Errorf(
				"round %d would raise ε to %.4f (target %.4f): %w",
				round, projected, c.cfg.TargetEpsilon, ErrPrivacyBudgetExhausted)
		}
	}

	snapshot := c.store.Current()

	updates, err := c.dispatchRound(ctx, snapshot, round)
	if err != nil {
		c.logger.Error("round discarded", "round", round, "error", err)
		return model.RoundMetrics{}, events.Event{}, err
	}

	totalSamples := 0
	losses := make([]float64, len(updates))
	accuracies := make([]float64, len(updates))
	weights := make([]int, len(updates))
	for i, u := range updates {
		totalSamples += u.SampleCount
		losses[i] = u.StartLoss
		accuracies[i] = u.StartAccuracy
		weights[i] = u.SampleCount
	}

	entry := c.accountant.RecordRound(round, c.cfg.NoiseMultiplier, c.cfg.ClipNorm,
		totalSamples, c.maxSampleRate, c.cfg.LocalEpochs)

	delta, err := Aggregate(updates, len(snapshot.Weights))
	if err != nil {
		return model.RoundMetrics{}, events.Event{}, err
	}

	newWeights := make([]float64, len(snapshot.Weights))
	copy(newWeights, snapshot.Weights)
	floats.Add(newWeights, delta)

	testMetrics := evaluateParams(newWeights, c.testSet)
	metrics := model.RoundMetrics{
		Round:         round,
		TrainLoss:     common.WeightedAverage(losses, weights),
		TrainAccuracy: common.WeightedAverage(accuracies, weights),
		TestLoss:      testMetrics.Loss,
		TestAccuracy:  testMetrics.Accuracy,
		TestPrecision: testMetrics.Precision,
		TestRecall:    testMetrics.Recall,
		TestF1:        testMetrics.F1,
		TestAUC:       testMetrics.AUC,
		Epsilon:       entry.CumulativeEpsilon,
	}

	c.store.Commit(&model.Snapshot{Version: round, Weights: newWeights}, metrics)
	c.state = StateTraining

	c.progress.Accuracies = append(c.progress.Accuracies, metrics.TestAccuracy)
	c.progress.Losses = append(c.progress.Losses, metrics.TestLoss)
	c.progress.Converged = common.HasConverged(c.progress.Accuracies,
		common.CONVERGENCE_THRESHOLD, common.CONVERGENCE_PATIENCE, common.CONVERGENCE_WINDOW)
	if c.progress.Converged {
		c.logger.Info("accuracy has converged", "round", round)
	}

	c.logger.Info("round committed", "round", round,
		"trainLoss", metrics.TrainLoss, "testAccuracy", metrics.TestAccuracy, "epsilon", metrics.Epsilon)

	event := events.Event{
		Type:      common.ROUND_COMPLETED_EVENT_TYPE,
		Timestamp: time.Now(),
		Data: events.RoundCompletedEvent{
			Round:        round,
			TrainLoss:    metrics.TrainLoss,
			TestAccuracy: metrics.TestAccuracy,
			Epsilon:      metrics.Epsilon,
		},
	}

	return metrics, event, nil
}

// dispatchRound runs every hospital's local training in parallel and waits
// for all results. The aggregation barrier is all-or-nothing: a single
// failure fails the round.
func (c *Coordinator) dispatchRound(ctx context.Context, snapshot *model.Snapshot, round int) ([]*model.LocalUpdate, error) {
	if c.cfg.RoundTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RoundTimeout)
		defer cancel()
	}

	type trainResult struct {
		update *model.LocalUpdate
		err    error
	}

	results := make(chan trainResult, len(c.trainers))
	var wg sync.WaitGroup
	for _, trainer := range c.trainers {
		wg.Add(1)
		go func(t Trainer) {
			defer wg.Done()
			update, err := t.Train(ctx, snapshot, round)
			results <- trainResult{update: update, err: err}
		}(trainer)
	}
	wg.Wait()
	close(results)

	updates := make([]*model.LocalUpdate, 0, len(c.trainers))
	for r := range results {
		if r.err != nil {
			return nil, r.err
		}
		updates = append(updates, r.update)
	}

	// Channel order is scheduler-dependent; fix it so aggregation is
	// bit-for-bit deterministic.
	sort.Slice(updates, func(i, j int) bool {
		return updates[i].HospitalID < updates[j].HospitalID
	})

	return updates, nil
}

// Train runs up to rounds sequential federated rounds. An exhausted privacy
// budget stops early with the partial result rather than an error; any other
// failure returns the progress made so far alongside the error.
func (c *Coordinator) Train(ctx context.Context, rounds int) (*TrainingResult, error) {
	if rounds < 1 {
		return &TrainingResult{}, &ConfigurationError{Reason: fmt.Sprintf("rounds must be positive, got %d", rounds)}
	}

	result := &TrainingResult{}
	for i := 0; i < rounds; i++ {
		metrics, err := c.RunRound(ctx)
		if err != nil {
			if errors.Is(err, ErrPrivacyBudgetExhausted) {
				result.StopReason = err.Error()
				break
			}
			c.publishFinished(result.RoundsCompleted, err.Error())
			return result, err
		}
		result.RoundsCompleted++
		result.Metrics = append(result.Metrics, metrics)
	}

	if result.StopReason == "" {
		result.StopReason = fmt.Sprintf("completed %d rounds", result.RoundsCompleted)
	}
	c.publishFinished(result.RoundsCompleted, result.StopReason)

	return result, nil
}

func (c *Coordinator) publishFinished(rounds int, message string) {
	c.eventBus.Publish(events.Event{
		Type:      common.TRAINING_FINISHED_EVENT_TYPE,
		Timestamp: time.Now(),
		Data: events.TrainingFinishedEvent{
			RoundsCompleted: rounds,
			ExitMessage:     message,
		},
	})
}

// Evaluate measures the committed model against the held-out evaluation set.
// Read-only; never touches training state.
func (c *Coordinator) Evaluate() (model.Metrics, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateUninitialized || c.state == StateTerminated {
		return model.Metrics{}, ErrNotInitialized
	}
	return evaluateParams(c.store.Current().Weights, c.testSet), nil
}

// Predict performs read-only inference with the committed model.
func (c *Coordinator) Predict(features []float64) (*model.Prediction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateUninitialized || c.state == StateTerminated {
		return nil, ErrNotInitialized
	}
	if len(features) != c.cfg.Features {
		return nil, &ShapeMismatchError{Want: c.cfg.Features, Got: len(features)}
	}

	score := forward(c.store.Current().Weights, features)
	prediction := &model.Prediction{RiskScore: score}
	if score > common.RISK_THRESHOLD {
		prediction.RiskClass = common.RISK_CLASS_HIGH
		prediction.Confidence = score
	} else {
		prediction.RiskClass = common.RISK_CLASS_LOW
		prediction.Confidence = 1 - score
	}
	return prediction, nil
}

// History returns the committed rounds in order.
func (c *Coordinator) History() []model.HistoryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.History()
}

// Snapshot returns a copy of the current committed model, or nil before
// initialization.
func (c *Coordinator) Snapshot() *model.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateUninitialized {
		return nil
	}
	return c.store.Current()
}

// Ledger returns the privacy accountant's append-only entries.
func (c *Coordinator) Ledger() []model.LedgerEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accountant.Ledger()
}

// Epsilon returns the cumulative privacy loss spent so far.
func (c *Coordinator) Epsilon() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accountant.Epsilon()
}

// RoundsTrained reports the number of committed rounds.
func (c *Coordinator) RoundsTrained() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.RoundsTrained()
}

// Progress returns a copy of the per-round accuracy/loss series.
func (c *Coordinator) Progress() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := Progress{Converged: c.progress.Converged}
	p.Accuracies = append(p.Accuracies, c.progress.Accuracies...)
	p.Losses = append(p.Losses, c.progress.Losses...)
	return p
}

// State reports the coordinator's lifecycle phase.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Terminate permanently retires the coordinator. Every subsequent operation
// except Initialize fails with ErrNotInitialized.
func (c *Coordinator) Terminate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateTerminated
}

func validateTraining(cfg config.TrainingConfig) error {
	switch {
	case cfg.HospitalCount < 1:
		return &ConfigurationError{Reason: fmt.Sprintf("hospital count must be at least 1, got %d", cfg.HospitalCount)}
	case cfg.Features < 1:
		return &ConfigurationError{Reason: fmt.Sprintf("feature count must be positive, got %d", cfg.Features)}
	case cfg.Samples < 2:
		return &ConfigurationError{Reason: fmt.Sprintf("sample count must be at least 2, got %d", cfg.Samples)}
	case cfg.LocalEpochs < 1:
		return &ConfigurationError{Reason: fmt.Sprintf("local epochs must be at least 1, got %d", cfg.LocalEpochs)}
	case cfg.LearningRate <= 0:
		return &ConfigurationError{Reason: fmt.Sprintf("learning rate must be positive, got %g", cfg.LearningRate)}
	case cfg.ClipNorm <= 0:
		return &ConfigurationError{Reason: fmt.Sprintf("clip norm must be positive, got %g", cfg.ClipNorm)}
	case cfg.NoiseMultiplier < 0:
		return &ConfigurationError{Reason: fmt.Sprintf("noise multiplier must not be negative, got %g", cfg.NoiseMultiplier)}
	case cfg.TestFraction < 0 || cfg.TestFraction >= 1:
		return &ConfigurationError{Reason: fmt.Sprintf("test fraction must be in [0, 1), got %g", cfg.TestFraction)}
	case cfg.TargetEpsilon > 0 && (cfg.TargetDelta <= 0 || cfg.TargetDelta >= 1):
		return &ConfigurationError{Reason: fmt.Sprintf("target delta must be in (0, 1), got %g", cfg.TargetDelta)}
	}
	return nil
}
