package common

// Events
const ROUND_COMPLETED_EVENT_TYPE = "RoundCompleted"
const TRAINING_FINISHED_EVENT_TYPE = "TrainingFinished"
const HOSPITAL_STATE_CHANGE_EVENT_TYPE = "HospitalStateChanged"

// Risk classes
const RISK_CLASS_HIGH = "high"
const RISK_CLASS_LOW = "low"

// Risk threshold applied to the model's output probability
const RISK_THRESHOLD = 0.5

// Hospital naming
const HOSPITAL_ID_PREFIX = "h"

// Convergence detection over the recorded accuracy history
const CONVERGENCE_THRESHOLD = 0.001
const CONVERGENCE_PATIENCE = 5
const CONVERGENCE_WINDOW = 3
