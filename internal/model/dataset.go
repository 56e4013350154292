package model

// Sample is a single de-identified patient record. Features is a fixed-length
// vector matching the dataset schema; Label is 1.0 for high risk, 0.0 for low.
type Sample struct {
	Features []float64
	Label    float64
}

// Shard is the immutable partition of the training set owned by exactly one
// simulated hospital. Raw samples never leave the trainer that holds the shard.
type Shard struct {
	HospitalID string
	Samples    []Sample
}

func (s *Shard) SampleCount() int {
	return len(s.Samples)
}

// Hospital describes a simulated participant as seen by the registry.
type Hospital struct {
	ID     string `yaml:"id" json:"id"`
	Name   string `yaml:"name" json:"name"`
	Region string `yaml:"region" json:"region"`
}
