// Package pilot provides the autopilot part and its model variants.
package pilot

import (
	"context"
	"fmt"

	"github.com/aretw0/vehicle/pkg/domain"
)

// Pilot predicts pilot/angle and pilot/throttle from cam/image_array.
type Pilot struct {
	model *Model
}

// New creates a pilot serving model.
func New(model *Model) (*Pilot, error) {
	if _, err := NativeVariant(model.Variant); err != nil {
		return nil, err
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}
	return &Pilot{model: model}, nil
}

// Load builds a pilot of the given variant. With an empty path the pilot is
// untrained; otherwise the model at path is loaded and must match variant.
func Load(variant, path string) (*Pilot, error) {
	v, err := NativeVariant(variant)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return New(NewModel(v))
	}
	m, err := LoadModel(path)
	if err != nil {
		return nil, err
	}
	if m.Variant != v.Name {
		return nil, fmt.Errorf("model %s is a %q model, not %q", path, m.Variant, v.Name)
	}
	return New(m)
}

// Name implements the default part naming.
func (p *Pilot) Name() string { return "pilot" }

// Arity reports one input (the frame) and two outputs.
func (p *Pilot) Arity() (int, int) { return 1, 2 }

// Model returns the served model.
func (p *Pilot) Model() *Model { return p.model }

// Invoke runs the model. Without a frame the outputs are unset.
func (p *Pilot) Invoke(_ context.Context, args []domain.Value) ([]domain.Value, error) {
	f, ok := args[0].Frame()
	if !ok {
		return []domain.Value{domain.None(), domain.None()}, nil
	}
	angle, throttle := p.model.Predict(Extract(f, p.model.Features))
	return []domain.Value{domain.Number(angle), domain.Number(throttle)}, nil
}
