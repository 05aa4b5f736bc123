package pilot

import (
	"errors"
	"fmt"

	"github.com/aretw0/vehicle/pkg/domain"
	"github.com/aretw0/vehicle/pkg/registry"
)

// Model variant names accepted by --type.
const (
	TypeLinear               = "linear"
	TypeLinearDropout        = "linear-dropout"
	TypeLinearCroppedDropout = "linear-cropped-dropout"
	TypeRNN                  = "rnn"
)

// DefaultType is used when no variant is requested.
const DefaultType = TypeLinearDropout

// FeatureSpec describes how a frame is reduced to a feature vector: the top
// CropTop fraction of rows is discarded, the rest is converted to luma and
// box-averaged down to Width x Height cells scaled to [0, 1].
type FeatureSpec struct {
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	CropTop float64 `json:"crop_top,omitempty"`
}

// Len returns the feature vector length, excluding the bias term.
func (s FeatureSpec) Len() int { return s.Width * s.Height }

// Variant is a named model architecture.
type Variant struct {
	Name     string
	Features FeatureSpec
	// Dropout is the feature dropout rate applied during training.
	Dropout float64
	// Native reports whether the built-in linear pilot can train and serve
	// the variant. Other variants need an external trainer.
	Native bool
}

var variants = registry.New[Variant]()

func init() {
	full := FeatureSpec{Width: 16, Height: 12}
	RegisterVariant(Variant{Name: TypeLinear, Features: full, Native: true})
	RegisterVariant(Variant{Name: TypeLinearDropout, Features: full, Dropout: 0.1, Native: true})
	RegisterVariant(Variant{
		Name:     TypeLinearCroppedDropout,
		Features: FeatureSpec{Width: 16, Height: 8, CropTop: 1.0 / 3},
		Dropout:  0.1,
		Native:   true,
	})
	RegisterVariant(Variant{Name: TypeRNN, Features: full})
}

// RegisterVariant adds or replaces a model variant.
func RegisterVariant(v Variant) {
	variants.Register(v.Name, v)
}

// LookupVariant returns the variant registered under name.
func LookupVariant(name string) (Variant, error) {
	v, err := variants.Lookup(name)
	if errors.Is(err, registry.ErrNotFound) {
		return Variant{}, fmt.Errorf("%w: %q (known: %v)", domain.ErrUnknownModelType, name, variants.Names())
	}
	return v, err
}

// NativeVariant is LookupVariant restricted to variants the built-in pilot
// can serve.
func NativeVariant(name string) (Variant, error) {
	v, err := LookupVariant(name)
	if err != nil {
		return Variant{}, err
	}
	if !v.Native {
		return Variant{}, fmt.Errorf("%w: %q requires an external trainer and runtime", domain.ErrUnsupportedModel, name)
	}
	return v, nil
}

// VariantNames lists the registered variants.
func VariantNames() []string { return variants.Names() }
