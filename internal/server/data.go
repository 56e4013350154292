package server

import (
	"encoding/json"
	"io"

	"github.com/hafsaghannaj/maternal/internal/fedlearn"
	"github.com/hafsaghannaj/maternal/internal/model"
)

func toJSON(i interface{}, w io.Writer) error {
	e := json.NewEncoder(w)
	return e.Encode(i)
}

// fromJSON rejects unknown fields so malformed or misspelled options fail
// loudly instead of being silently ignored.
func fromJSON(i interface{}, r io.Reader) error {
	d := json.NewDecoder(r)
	d.DisallowUnknownFields()
	return d.Decode(i)
}

// InitializeRequest carries the hospital count plus optional overrides of the
// server's training defaults. The recognized option set is closed.
type InitializeRequest struct {
	HospitalCount   int      `json:"hospital_count"`
	Rounds          *int     `json:"rounds,omitempty"`
	LocalEpochs     *int     `json:"local_epochs,omitempty"`
	LearningRate    *float64 `json:"learning_rate,omitempty"`
	ClipNorm        *float64 `json:"clip_norm,omitempty"`
	NoiseMultiplier *float64 `json:"noise_multiplier,omitempty"`
	TargetEpsilon   *float64 `json:"target_epsilon,omitempty"`
	TargetDelta     *float64 `json:"target_delta,omitempty"`
	Seed            *int64   `json:"seed,omitempty"`
}

type TrainRequest struct {
	Rounds int `json:"rounds"`
}

type PredictRequest struct {
	PatientData []float64 `json:"patient_data"`
}

type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type InitializeResponse struct {
	Status string                         `json:"status"`
	Result *fedlearn.InitializationResult `json:"result"`
}

type TrainResponse struct {
	Status string                   `json:"status"`
	RunID  string                   `json:"run_id"`
	Result *fedlearn.TrainingResult `json:"result"`
}

type EvaluateResponse struct {
	Status  string        `json:"status"`
	Metrics model.Metrics `json:"metrics"`
}

type PredictResponse struct {
	Status     string            `json:"status"`
	Prediction *model.Prediction `json:"prediction"`
}

type HistoryEntryResponse struct {
	Round   int                `json:"round"`
	Metrics model.RoundMetrics `json:"metrics"`
}

type HistoryResponse struct {
	Status  string                 `json:"status"`
	History []HistoryEntryResponse `json:"history"`
}

type HospitalsResponse struct {
	Status    string            `json:"status"`
	Hospitals []*model.Hospital `json:"hospitals"`
}

type ModelVersionsResponse struct {
	Status   string               `json:"status"`
	Versions []model.ModelVersion `json:"versions"`
}

type LatestModelResponse struct {
	Status   string          `json:"status"`
	Snapshot *model.Snapshot `json:"snapshot"`
}

type StatsResponse struct {
	Status                  string              `json:"status"`
	State                   string              `json:"state"`
	RoundsTrained           int                 `json:"rounds_trained"`
	Epsilon                 float64             `json:"epsilon"`
	Converged               bool                `json:"converged"`
	PredictionCount         int                 `json:"prediction_count"`
	Ledger                  []model.LedgerEntry `json:"ledger"`
	PredictedAccuracy       *float64            `json:"predicted_accuracy,omitempty"`
	PredictedRoundForTarget *int                `json:"predicted_round_for_target,omitempty"`
}
