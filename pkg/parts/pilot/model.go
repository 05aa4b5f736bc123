package pilot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Model is a pair of linear heads over frame features.
type Model struct {
	Variant  string      `json:"variant"`
	Features FeatureSpec `json:"features"`

	AngleWeights    []float64 `json:"angle_weights"`
	AngleBias       float64   `json:"angle_bias"`
	ThrottleWeights []float64 `json:"throttle_weights"`
	ThrottleBias    float64   `json:"throttle_bias"`

	Samples   int       `json:"samples,omitempty"`
	TrainedAt time.Time `json:"trained_at,omitzero"`
}

// NewModel returns an untrained model for v. It predicts zero for every frame.
func NewModel(v Variant) *Model {
	return &Model{
		Variant:         v.Name,
		Features:        v.Features,
		AngleWeights:    make([]float64, v.Features.Len()),
		ThrottleWeights: make([]float64, v.Features.Len()),
	}
}

// Validate checks the weights against the feature geometry.
func (m *Model) Validate() error {
	n := m.Features.Len()
	if n == 0 {
		return fmt.Errorf("model has empty feature geometry")
	}
	if len(m.AngleWeights) != n || len(m.ThrottleWeights) != n {
		return fmt.Errorf("model has %d/%d weights for %d features", len(m.AngleWeights), len(m.ThrottleWeights), n)
	}
	return nil
}

// Predict returns angle and throttle for a feature vector, clamped to [-1, 1].
func (m *Model) Predict(x []float64) (angle, throttle float64) {
	angle, throttle = m.AngleBias, m.ThrottleBias
	for i, v := range x {
		angle += m.AngleWeights[i] * v
		throttle += m.ThrottleWeights[i] * v
	}
	return clamp(angle), clamp(throttle)
}

// LoadModel reads a model written by Save.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	return &m, nil
}

// Save writes the model as JSON, replacing path atomically.
func (m *Model) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".model-*.tmp")
	if err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("save model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	return nil
}

func clamp(x float64) float64 {
	return min(max(x, -1), 1)
}
