package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// TrainingConfig is the closed set of recognized training options. Unknown
// keys in a config file or request body are rejected, never silently accepted.
type TrainingConfig struct {
	HospitalCount   int           `yaml:"hospital_count" env:"MATERNAL_HOSPITAL_COUNT" json:"hospital_count"`
	Rounds          int           `yaml:"rounds" env:"MATERNAL_ROUNDS" json:"rounds"`
	LocalEpochs     int           `yaml:"local_epochs" env:"MATERNAL_LOCAL_EPOCHS" json:"local_epochs"`
	LearningRate    float64       `yaml:"learning_rate" env:"MATERNAL_LEARNING_RATE" json:"learning_rate"`
	ClipNorm        float64       `yaml:"clip_norm" env:"MATERNAL_CLIP_NORM" json:"clip_norm"`
	NoiseMultiplier float64       `yaml:"noise_multiplier" env:"MATERNAL_NOISE_MULTIPLIER" json:"noise_multiplier"`
	TargetEpsilon   float64       `yaml:"target_epsilon" env:"MATERNAL_TARGET_EPSILON" json:"target_epsilon"`
	TargetDelta     float64       `yaml:"target_delta" env:"MATERNAL_TARGET_DELTA" json:"target_delta"`
	Samples         int           `yaml:"samples" env:"MATERNAL_SAMPLES" json:"samples"`
	Features        int           `yaml:"features" env:"MATERNAL_FEATURES" json:"features"`
	TestFraction    float64       `yaml:"test_fraction" env:"MATERNAL_TEST_FRACTION" json:"test_fraction"`
	Seed            int64         `yaml:"seed" env:"MATERNAL_SEED" json:"seed"`
	RoundTimeout    time.Duration `yaml:"round_timeout" env:"MATERNAL_ROUND_TIMEOUT" json:"round_timeout"`
}

// Config is the process-level configuration for cmd/http and cmd/sim.
type Config struct {
	HTTPAddr     string         `yaml:"http_addr" env:"MATERNAL_HTTP_ADDR"`
	LogLevel     string         `yaml:"log_level" env:"MATERNAL_LOG_LEVEL"`
	DBPath       string         `yaml:"db_path" env:"MATERNAL_DB_PATH"`
	RegistryPath string         `yaml:"registry_path" env:"MATERNAL_REGISTRY_PATH"`
	Training     TrainingConfig `yaml:"training"`
}

func Default() *Config {
	return &Config{
		HTTPAddr: ":8080",
		LogLevel: "INFO",
		DBPath:   "maternal.db",
		Training: TrainingConfig{
			HospitalCount:   3,
			Rounds:          5,
			LocalEpochs:     10,
			LearningRate:    0.05,
			ClipNorm:        1.0,
			NoiseMultiplier: 1.1,
			TargetEpsilon:   8.0,
			TargetDelta:     1e-5,
			Samples:         3000,
			Features:        25,
			TestFraction:    0.2,
			Seed:            42,
			RoundTimeout:    30 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment overrides, in that order. Unknown YAML keys are an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config file: %w", err)
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		decoder.KnownFields(true)
		if err := decoder.Decode(cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("http_addr must not be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	return nil
}
