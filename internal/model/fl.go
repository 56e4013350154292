package model

// Snapshot is one committed version of the global model. Weights is the flat
// parameter vector [w0..wD-1, bias]; the shape never changes across rounds.
type Snapshot struct {
	Version int       `json:"version"`
	Weights []float64 `json:"weights"`
}

// Clone returns a deep copy so callers can never alias the store's state.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	weights := make([]float64, len(s.Weights))
	copy(weights, s.Weights)
	return &Snapshot{Version: s.Version, Weights: weights}
}

// LocalUpdate is the privatized parameter delta one hospital produces in one
// round. It is consumed exactly once by the aggregator.
type LocalUpdate struct {
	HospitalID      string
	Round           int
	Delta           []float64
	SampleCount     int
	NoiseMultiplier float64
	ClipNorm        float64
	StartLoss       float64
	StartAccuracy   float64
}

// RoundMetrics is the append-only per-round record exposed through history().
// Train values are the sample-weighted average of the hospitals' start-of-round
// measurements; test values are measured on the held-out set after the commit.
type RoundMetrics struct {
	Round         int     `json:"round"`
	TrainLoss     float64 `json:"train_loss"`
	TrainAccuracy float64 `json:"train_accuracy"`
	TestLoss      float64 `json:"test_loss"`
	TestAccuracy  float64 `json:"test_accuracy"`
	TestPrecision float64 `json:"test_precision"`
	TestRecall    float64 `json:"test_recall"`
	TestF1        float64 `json:"test_f1"`
	TestAUC       float64 `json:"test_auc"`
	Epsilon       float64 `json:"epsilon"`
}

// Metrics is the result of a read-only evaluation of the committed model.
type Metrics struct {
	Loss      float64 `json:"loss"`
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	AUC       float64 `json:"auc"`
}

// LedgerEntry is one append-only row of the privacy accountant's ledger.
// CumulativeEpsilon is monotonically non-decreasing across rounds for fixed δ.
type LedgerEntry struct {
	Round             int     `json:"round"`
	NoiseMultiplier   float64 `json:"noise_multiplier"`
	ClipNorm          float64 `json:"clip_norm"`
	SampleCount       int     `json:"sample_count"`
	SampleRate        float64 `json:"sample_rate"`
	CumulativeEpsilon float64 `json:"cumulative_epsilon"`
}

// HistoryEntry pairs a committed snapshot with the metrics of the round that
// produced it.
type HistoryEntry struct {
	Round    int
	Snapshot Snapshot
	Metrics  RoundMetrics
}

// Prediction is the outcome of read-only inference with the committed model.
type Prediction struct {
	RiskClass  string  `json:"risk_class"`
	RiskScore  float64 `json:"risk_score"`
	Confidence float64 `json:"confidence"`
}

// ModelVersion describes one persisted snapshot row.
type ModelVersion struct {
	Version   int    `json:"version"`
	CreatedAt string `json:"created_at"`
}
