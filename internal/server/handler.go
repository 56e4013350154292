package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"

	"github.com/hafsaghannaj/maternal/internal/config"
	"github.com/hafsaghannaj/maternal/internal/events"
	"github.com/hafsaghannaj/maternal/internal/fedlearn"
	"github.com/hafsaghannaj/maternal/internal/fedlearn/performance"
	"github.com/hafsaghannaj/maternal/internal/registry"
	"github.com/hafsaghannaj/maternal/internal/storage"
)

// statsTargetAccuracy is the accuracy the stats surface extrapolates towards.
const statsTargetAccuracy = 0.9

type Handler struct {
	logger      hclog.Logger
	eventBus    *events.EventBus
	coordinator *fedlearn.Coordinator
	store       *storage.Store
	registry    *registry.Registry
	training    config.TrainingConfig
}

func NewHandler(logger hclog.Logger, eventBus *events.EventBus, coordinator *fedlearn.Coordinator,
	store *storage.Store, reg *registry.Registry, training config.TrainingConfig) *Handler {
	return &Handler{
		logger:      logger,
		eventBus:    eventBus,
		coordinator: coordinator,
		store:       store,
		registry:    reg,
		training:    training,
	}
}

// Router wires the API surface.
func (handler *Handler) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/", handler.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/api/initialize", handler.Initialize).Methods(http.MethodPost)
	router.HandleFunc("/api/train", handler.Train).Methods(http.MethodPost)
	router.HandleFunc("/api/evaluate", handler.Evaluate).Methods(http.MethodGet)
	router.HandleFunc("/api/predict", handler.Predict).Methods(http.MethodPost)
	router.HandleFunc("/api/history", handler.History).Methods(http.MethodGet)
	router.HandleFunc("/api/stats", handler.Stats).Methods(http.MethodGet)
	router.HandleFunc("/api/hospitals", handler.Hospitals).Methods(http.MethodGet)
	router.HandleFunc("/api/model/versions", handler.ModelVersions).Methods(http.MethodGet)
	router.HandleFunc("/api/model/latest", handler.LatestModel).Methods(http.MethodGet)
	router.HandleFunc("/api/events", handler.Events).Methods(http.MethodGet)
	return router
}

func (handler *Handler) HealthCheck(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Add("Content-Type", "application/json")
	toJSON(StatusResponse{Status: "ok"}, rw)
}

func (handler *Handler) Initialize(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Add("Content-Type", "application/json")

	request := &InitializeRequest{HospitalCount: handler.training.HospitalCount}
	if err := fromJSON(request, r.Body); err != nil {
		handler.writeError(rw, http.StatusBadRequest, fmt.Sprintf("invalid request body: %s", err))
		return
	}

	cfg := handler.trainingFor(request)
	result, err := handler.coordinator.Initialize(cfg)
	if err != nil {
		handler.writeCoreError(rw, err)
		return
	}

	// A fresh initialization invalidates everything persisted before it.
	if err := handler.store.ClearHistory(); err != nil {
		handler.logger.Error("error clearing persisted history", "error", err)
	}

	handler.logger.Info("federated learning initialized", "hospitals", cfg.HospitalCount)

	toJSON(InitializeResponse{Status: "success", Result: result}, rw)
}

func (handler *Handler) Train(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Add("Content-Type", "application/json")

	runId := uuid.New().String()

	request := &TrainRequest{Rounds: handler.training.Rounds}
	if err := fromJSON(request, r.Body); err != nil {
		handler.writeError(rw, http.StatusBadRequest, fmt.Sprintf("invalid request body: %s", err))
		return
	}

	handler.logger.Info("starting federated training", "runId", runId, "rounds", request.Rounds)

	result, err := handler.coordinator.Train(r.Context(), request.Rounds)
	if result != nil {
		handler.persistResult(result)
	}
	if err != nil {
		handler.writeCoreError(rw, err)
		return
	}

	toJSON(TrainResponse{Status: "success", RunID: runId, Result: result}, rw)
}

// persistResult copies committed round metrics and the resulting snapshot out
// to durable storage. Persistence failures are logged, not surfaced: the
// training itself already committed.
func (handler *Handler) persistResult(result *fedlearn.TrainingResult) {
	for _, metrics := range result.Metrics {
		if err := handler.store.RecordRound(metrics); err != nil {
			handler.logger.Error("error persisting round metrics", "round", metrics.Round, "error", err)
		}
	}
	if result.RoundsCompleted > 0 {
		if snapshot := handler.coordinator.Snapshot(); snapshot != nil {
			if err := handler.store.SaveModelVersion(snapshot); err != nil {
				handler.logger.Error("error persisting model version", "version", snapshot.Version, "error", err)
			}
		}
	}
}

func (handler *Handler) Evaluate(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Add("Content-Type", "application/json")

	metrics, err := handler.coordinator.Evaluate()
	if err != nil {
		handler.writeCoreError(rw, err)
		return
	}

	toJSON(EvaluateResponse{Status: "success", Metrics: metrics}, rw)
}

func (handler *Handler) Predict(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Add("Content-Type", "application/json")

	request := &PredictRequest{}
	if err := fromJSON(request, r.Body); err != nil {
		handler.writeError(rw, http.StatusBadRequest, fmt.Sprintf("invalid request body: %s", err))
		return
	}
	if request.PatientData == nil {
		handler.writeError(rw, http.StatusBadRequest, "patient_data is required")
		return
	}

	prediction, err := handler.coordinator.Predict(request.PatientData)
	if err != nil {
		handler.writeCoreError(rw, err)
		return
	}

	if err := handler.store.RecordPrediction(prediction); err != nil {
		handler.logger.Error("error persisting prediction", "error", err)
	}

	toJSON(PredictResponse{Status: "success", Prediction: prediction}, rw)
}

func (handler *Handler) History(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Add("Content-Type", "application/json")

	entries := handler.coordinator.History()
	history := make([]HistoryEntryResponse, len(entries))
	for i, e := range entries {
		history[i] = HistoryEntryResponse{Round: e.Round, Metrics: e.Metrics}
	}

	toJSON(HistoryResponse{Status: "success", History: history}, rw)
}

func (handler *Handler) Stats(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Add("Content-Type", "application/json")

	predictionCount, err := handler.store.PredictionCount()
	if err != nil {
		handler.logger.Error("error counting predictions", "error", err)
	}

	progress := handler.coordinator.Progress()
	response := StatsResponse{
		Status:          "success",
		State:           handler.coordinator.State().String(),
		RoundsTrained:   handler.coordinator.RoundsTrained(),
		Epsilon:         handler.coordinator.Epsilon(),
		Converged:       progress.Converged,
		PredictionCount: predictionCount,
		Ledger:          handler.coordinator.Ledger(),
	}

	if len(progress.Accuracies) >= 2 {
		if prediction, err := performance.NewConvergencePrediction(progress.Accuracies, progress.Losses); err == nil {
			predicted := prediction.PredictAccuracy(len(progress.Accuracies) + 5)
			response.PredictedAccuracy = &predicted
			round := prediction.PredictRoundForAccuracy(statsTargetAccuracy)
			response.PredictedRoundForTarget = &round
		}
	}

	toJSON(response, rw)
}

func (handler *Handler) Hospitals(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Add("Content-Type", "application/json")
	toJSON(HospitalsResponse{Status: "success", Hospitals: handler.registry.Hospitals()}, rw)
}

func (handler *Handler) ModelVersions(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Add("Content-Type", "application/json")

	versions, err := handler.store.ModelVersions()
	if err != nil {
		handler.writeError(rw, http.StatusInternalServerError, err.Error())
		return
	}

	toJSON(ModelVersionsResponse{Status: "success", Versions: versions}, rw)
}

func (handler *Handler) LatestModel(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Add("Content-Type", "application/json")

	snapshot, err := handler.store.LatestModel()
	if err != nil {
		handler.writeError(rw, http.StatusInternalServerError, err.Error())
		return
	}
	if snapshot == nil {
		handler.writeError(rw, http.StatusNotFound, "no model has been persisted yet")
		return
	}

	toJSON(LatestModelResponse{Status: "success", Snapshot: snapshot}, rw)
}

// trainingFor merges request overrides into the server's training defaults.
func (handler *Handler) trainingFor(request *InitializeRequest) config.TrainingConfig {
	cfg := handler.training
	cfg.HospitalCount = request.HospitalCount
	if request.Rounds != nil {
		cfg.Rounds = *request.Rounds
	}
	if request.LocalEpochs != nil {
		cfg.LocalEpochs = *request.LocalEpochs
	}
	if request.LearningRate != nil {
		cfg.LearningRate = *request.LearningRate
	}
	if request.ClipNorm != nil {
		cfg.ClipNorm = *request.ClipNorm
	}
	if request.NoiseMultiplier != nil {
		cfg.NoiseMultiplier = *request.NoiseMultiplier
	}
	if request.TargetEpsilon != nil {
		cfg.TargetEpsilon = *request.TargetEpsilon
	}
	if request.TargetDelta != nil {
		cfg.TargetDelta = *request.TargetDelta
	}
	if request.Seed != nil {
		cfg.Seed = *request.Seed
	}
	return cfg
}

func (handler *Handler) writeError(rw http.ResponseWriter, status int, message string) {
	rw.WriteHeader(status)
	toJSON(StatusResponse{Status: "error", Message: message}, rw)
}

// writeCoreError maps the core's error taxonomy onto HTTP statuses: caller
// mistakes are 400s, budget exhaustion is 409, the rest are 500s.
func (handler *Handler) writeCoreError(rw http.ResponseWriter, err error) {
	var configErr *fedlearn.ConfigurationError
	var shapeErr *fedlearn.ShapeMismatchError

	switch {
	case errors.As(err, &configErr), errors.As(err, &shapeErr), errors.Is(err, fedlearn.ErrNotInitialized):
		handler.writeError(rw, http.StatusBadRequest, err.Error())
	case errors.Is(err, fedlearn.ErrPrivacyBudgetExhausted):
		handler.writeError(rw, http.StatusConflict, err.Error())
	default:
		handler.logger.Error("internal error", "error", err)
		handler.writeError(rw, http.StatusInternalServerError, err.Error())
	}
}
