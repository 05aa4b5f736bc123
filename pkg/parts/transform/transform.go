// Package transform holds small pure parts that derive signals from others.
package transform

import (
	"github.com/aretw0/vehicle/pkg/domain"
	"github.com/aretw0/vehicle/pkg/unit"
)

// PilotCondition maps user/mode to run_pilot: the pilot runs in every mode
// except user.
func PilotCondition() *unit.LambdaUnit {
	return unit.Lambda(1, 1, func(args []domain.Value) []domain.Value {
		mode, _ := args[0].Text()
		return []domain.Value{domain.Bool(mode != domain.ModeUser)}
	})
}

// Clamp limits a numeric signal to [lo, hi]. Unset input counts as zero.
func Clamp(lo, hi float64) *unit.LambdaUnit {
	return unit.Lambda(1, 1, func(args []domain.Value) []domain.Value {
		return []domain.Value{domain.Number(min(max(args[0].Float(), lo), hi))}
	})
}
