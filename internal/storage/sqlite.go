// Package storage persists round history, predictions, and model versions to
// SQLite. The core only hands it serializable snapshots and metric records;
// nothing in here mutates coordinator state.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-hclog"

	// SQLite driver using pure Go implementation
	_ "modernc.org/sqlite"

	"github.com/hafsaghannaj/maternal/internal/model"
)

type Store struct {
	db     *sql.DB
	logger hclog.Logger
}

// Open creates (or opens) the database file and ensures the schema exists.
func Open(path string, logger hclog.Logger) (*Store, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &Store{
		db:     db,
		logger: logger.Named("storage"),
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS training_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			round INTEGER NOT NULL,
			train_loss REAL,
			train_accuracy REAL,
			test_loss REAL,
			test_accuracy REAL,
			test_precision REAL,
			test_recall REAL,
			test_f1 REAL,
			test_auc REAL,
			epsilon REAL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS predictions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			risk_score REAL,
			risk_class TEXT,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS model_versions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			version INTEGER NOT NULL,
			weights TEXT NOT NULL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// RecordRound appends one round's metrics to the history table.
func (s *Store) RecordRound(m model.RoundMetrics) error {
	_, err := s.db.Exec(
		`INSERT INTO training_history (
			round, train_loss, train_accuracy, test_loss, test_accuracy,
			test_precision, test_recall, test_f1, test_auc, epsilon
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Round, m.TrainLoss, m.TrainAccuracy, m.TestLoss, m.TestAccuracy,
		m.TestPrecision, m.TestRecall, m.TestF1, m.TestAUC, m.Epsilon,
	)
	if err != nil {
		return fmt.Errorf("record round %d: %w", m.Round, err)
	}
	return nil
}

// History returns all persisted rounds in training order.
func (s *Store) History() ([]model.RoundMetrics, error) {
	rows, err := s.db.Query(
		`SELECT round, train_loss, train_accuracy, test_loss, test_accuracy,
			test_precision, test_recall, test_f1, test_auc, epsilon
		FROM training_history ORDER BY round ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var history []model.RoundMetrics
	for rows.Next() {
		var m model.RoundMetrics
		if err := rows.Scan(&m.Round, &m.TrainLoss, &m.TrainAccuracy, &m.TestLoss, &m.TestAccuracy,
			&m.TestPrecision, &m.TestRecall, &m.TestF1, &m.TestAUC, &m.Epsilon); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		history = append(history, m)
	}
	return history, rows.Err()
}

// ClearHistory drops persisted rounds; called when the system re-initializes.
func (s *Store) ClearHistory() error {
	if _, err := s.db.Exec(`DELETE FROM training_history`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// RecordPrediction appends one served prediction.
func (s *Store) RecordPrediction(p *model.Prediction) error {
	_, err := s.db.Exec(
		`INSERT INTO predictions (risk_score, risk_class) VALUES (?, ?)`,
		p.RiskScore, p.RiskClass,
	)
	if err != nil {
		return fmt.Errorf("record prediction: %w", err)
	}
	return nil
}

// PredictionCount reports how many predictions have been served.
func (s *Store) PredictionCount() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM predictions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count predictions: %w", err)
	}
	return count, nil
}

// SaveModelVersion persists a snapshot's weights as a JSON blob.
func (s *Store) SaveModelVersion(snapshot *model.Snapshot) error {
	weights, err := json.Marshal(snapshot.Weights)
	if err != nil {
		return fmt.Errorf("marshal weights: %w", err)
	}

	if _, err := s.db.Exec(
		`INSERT INTO model_versions (version, weights) VALUES (?, ?)`,
		snapshot.Version, string(weights),
	); err != nil {
		return fmt.Errorf("save model version %d: %w", snapshot.Version, err)
	}
	return nil
}

// ModelVersions lists persisted versions, newest first.
func (s *Store) ModelVersions() ([]model.ModelVersion, error) {
	rows, err := s.db.Query(
		`SELECT version, created_at FROM model_versions ORDER BY version DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query model versions: %w", err)
	}
	defer rows.Close()

	var versions []model.ModelVersion
	for rows.Next() {
		var v model.ModelVersion
		if err := rows.Scan(&v.Version, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan model version row: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// LatestModel returns the most recently persisted snapshot, or nil when none
// has been saved yet.
func (s *Store) LatestModel() (*model.Snapshot, error) {
	var version int
	var weightsJSON string
	err := s.db.QueryRow(
		`SELECT version, weights FROM model_versions ORDER BY version DESC, id DESC LIMIT 1`).
		Scan(&version, &weightsJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest model: %w", err)
	}

	var weights []float64
	if err := json.Unmarshal([]byte(weightsJSON), &weights); err != nil {
		return nil, fmt.Errorf("unmarshal weights for version %d: %w", version, err)
	}
	return &model.Snapshot{Version: version, Weights: weights}, nil
}
