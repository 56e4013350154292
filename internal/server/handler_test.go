package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hafsaghannaj/maternal/internal/config"
	"github.com/hafsaghannaj/maternal/internal/events"
	"github.com/hafsaghannaj/maternal/internal/fedlearn"
	"github.com/hafsaghannaj/maternal/internal/registry"
	"github.com/hafsaghannaj/maternal/internal/storage"
)

func testHandler(t *testing.T) *Handler {
	t.Helper()

	logger := hclog.NewNullLogger()
	eventBus := events.NewEventBus()

	store, err := storage.Open(filepath.Join(t.TempDir(), "maternal.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	reg := registry.New("", eventBus, logger)
	_, err = reg.Load()
	require.NoError(t, err)

	training := config.Default().Training
	training.Samples = 150
	training.Features = 5
	training.LocalEpochs = 2
	training.NoiseMultiplier = 0
	training.TargetEpsilon = 0
	training.Rounds = 2

	coordinator := fedlearn.NewCoordinator(eventBus, logger)
	return NewHandler(logger, eventBus, coordinator, store, reg, training)
}

func doRequest(t *testing.T, handler *Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader([]byte(`{}`))
	}

	request := httptest.NewRequest(method, path, reader)
	recorder := httptest.NewRecorder()
	handler.Router().ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), target))
}

func initializeHandler(t *testing.T, handler *Handler) {
	t.Helper()
	recorder := doRequest(t, handler, http.MethodPost, "/api/initialize",
		map[string]interface{}{"hospital_count": 3})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
}

func TestHealthCheck(t *testing.T) {
	handler := testHandler(t)

	recorder := doRequest(t, handler, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	var response StatusResponse
	decodeBody(t, recorder, &response)
	assert.Equal(t, "ok", response.Status)
}

func TestInitialize(t *testing.T) {
	handler := testHandler(t)

	recorder := doRequest(t, handler, http.MethodPost, "/api/initialize",
		map[string]interface{}{"hospital_count": 3, "seed": 7})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var response InitializeResponse
	decodeBody(t, recorder, &response)
	assert.Equal(t, "success", response.Status)
	require.NotNil(t, response.Result)
	assert.Len(t, response.Result.Hospitals, 3)
	assert.Equal(t, 150, response.Result.TotalSamples)
}

func TestInitialize_InvalidHospitalCount(t *testing.T) {
	handler := testHandler(t)

	recorder := doRequest(t, handler, http.MethodPost, "/api/initialize",
		map[string]interface{}{"hospital_count": 0})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestInitialize_UnknownFieldRejected(t *testing.T) {
	handler := testHandler(t)

	recorder := doRequest(t, handler, http.MethodPost, "/api/initialize",
		map[string]interface{}{"hospital_count": 3, "gradient_clipping": 1.5})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestTrain(t *testing.T) {
	handler := testHandler(t)
	initializeHandler(t, handler)

	recorder := doRequest(t, handler, http.MethodPost, "/api/train",
		map[string]interface{}{"rounds": 3})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var response TrainResponse
	decodeBody(t, recorder, &response)
	assert.Equal(t, "success", response.Status)
	assert.NotEmpty(t, response.RunID)
	require.NotNil(t, response.Result)
	assert.Equal(t, 3, response.Result.RoundsCompleted)

	// Completed rounds and the resulting model are persisted.
	history, err := handler.store.History()
	require.NoError(t, err)
	assert.Len(t, history, 3)

	latest, err := handler.store.LatestModel()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 3, latest.Version)
}

func TestTrain_BeforeInitialize(t *testing.T) {
	handler := testHandler(t)

	recorder := doRequest(t, handler, http.MethodPost, "/api/train",
		map[string]interface{}{"rounds": 1})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestEvaluate(t *testing.T) {
	handler := testHandler(t)
	initializeHandler(t, handler)

	recorder := doRequest(t, handler, http.MethodGet, "/api/evaluate", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var response EvaluateResponse
	decodeBody(t, recorder, &response)
	assert.Equal(t, "success", response.Status)
	assert.GreaterOrEqual(t, response.Metrics.Accuracy, 0.0)
}

func TestPredict(t *testing.T) {
	handler := testHandler(t)
	initializeHandler(t, handler)

	recorder := doRequest(t, handler, http.MethodPost, "/api/predict",
		map[string]interface{}{"patient_data": []float64{0.1, -0.3, 0.5, 1.2, -0.8}})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var response PredictResponse
	decodeBody(t, recorder, &response)
	require.NotNil(t, response.Prediction)
	assert.Contains(t, []string{"high", "low"}, response.Prediction.RiskClass)

	count, err := handler.store.PredictionCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPredict_MissingPatientData(t *testing.T) {
	handler := testHandler(t)
	initializeHandler(t, handler)

	recorder := doRequest(t, handler, http.MethodPost, "/api/predict", nil)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestPredict_WrongFeatureCount(t *testing.T) {
	handler := testHandler(t)
	initializeHandler(t, handler)

	recorder := doRequest(t, handler, http.MethodPost, "/api/predict",
		map[string]interface{}{"patient_data": []float64{0.1, 0.2}})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestHistory(t *testing.T) {
	handler := testHandler(t)
	initializeHandler(t, handler)

	recorder := doRequest(t, handler, http.MethodPost, "/api/train",
		map[string]interface{}{"rounds": 2})
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = doRequest(t, handler, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var response HistoryResponse
	decodeBody(t, recorder, &response)
	require.Len(t, response.History, 2)
	assert.Equal(t, 1, response.History[0].Round)
	assert.Equal(t, 2, response.History[1].Round)
}

func TestStats(t *testing.T) {
	handler := testHandler(t)
	initializeHandler(t, handler)

	recorder := doRequest(t, handler, http.MethodPost, "/api/train",
		map[string]interface{}{"rounds": 3})
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = doRequest(t, handler, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var response StatsResponse
	decodeBody(t, recorder, &response)
	assert.Equal(t, "TRAINING", response.State)
	assert.Equal(t, 3, response.RoundsTrained)
	assert.Len(t, response.Ledger, 3)
	assert.NotNil(t, response.PredictedAccuracy)
	assert.NotNil(t, response.PredictedRoundForTarget)
}

func TestHospitals(t *testing.T) {
	handler := testHandler(t)

	recorder := doRequest(t, handler, http.MethodGet, "/api/hospitals", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var response HospitalsResponse
	decodeBody(t, recorder, &response)
	require.Len(t, response.Hospitals, 3)
	assert.Equal(t, "h1", response.Hospitals[0].ID)
}

func TestModelVersions_EmptyAndAfterTraining(t *testing.T) {
	handler := testHandler(t)

	recorder := doRequest(t, handler, http.MethodGet, "/api/model/latest", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	initializeHandler(t, handler)
	recorder = doRequest(t, handler, http.MethodPost, "/api/train",
		map[string]interface{}{"rounds": 2})
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = doRequest(t, handler, http.MethodGet, "/api/model/versions", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	var versions ModelVersionsResponse
	decodeBody(t, recorder, &versions)
	require.Len(t, versions.Versions, 1)
	assert.Equal(t, 2, versions.Versions[0].Version)

	recorder = doRequest(t, handler, http.MethodGet, "/api/model/latest", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	var latest LatestModelResponse
	decodeBody(t, recorder, &latest)
	require.NotNil(t, latest.Snapshot)
	assert.Equal(t, 2, latest.Snapshot.Version)
	assert.Len(t, latest.Snapshot.Weights, 6)
}

func TestTrain_BudgetExhaustedStopsEarly(t *testing.T) {
	handler := testHandler(t)

	// σ = 0 with a finite target exhausts the budget before the first round.
	recorder := doRequest(t, handler, http.MethodPost, "/api/initialize",
		map[string]interface{}{"hospital_count": 3, "noise_multiplier": 0.0, "target_epsilon": 1.0})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	// Train stops early with a partial result rather than an error.
	recorder = doRequest(t, handler, http.MethodPost, "/api/train",
		map[string]interface{}{"rounds": 3})
	require.Equal(t, http.StatusOK, recorder.Code)
	var response TrainResponse
	decodeBody(t, recorder, &response)
	assert.Zero(t, response.Result.RoundsCompleted)
	assert.Contains(t, response.Result.StopReason, "budget")
}

func TestReinitializeClearsPersistedHistory(t *testing.T) {
	handler := testHandler(t)
	initializeHandler(t, handler)

	recorder := doRequest(t, handler, http.MethodPost, "/api/train",
		map[string]interface{}{"rounds": 2})
	require.Equal(t, http.StatusOK, recorder.Code)

	initializeHandler(t, handler)

	history, err := handler.store.History()
	require.NoError(t, err)
	assert.Empty(t, history)
}
