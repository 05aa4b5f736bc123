// Package drive chooses which commands reach the actuators.
package drive

import (
	"github.com/aretw0/vehicle/pkg/domain"
	"github.com/aretw0/vehicle/pkg/unit"
)

// Inputs are the keys the mixer reads, in order.
var Inputs = []string{
	domain.KeyUserMode,
	domain.KeyUserAngle, domain.KeyUserThrottle,
	domain.KeyPilotAngle, domain.KeyPilotThrottle,
}

// Outputs are the keys the mixer writes, in order.
var Outputs = []string{domain.KeyAngle, domain.KeyThrottle}

// Mix selects angle and throttle for the drive mode:
//
//	user         user angle, user throttle
//	local_angle  pilot angle, user throttle
//	local        pilot angle, pilot throttle
//
// Any other mode is treated as local.
func Mix(mode string, userAngle, userThrottle, pilotAngle, pilotThrottle domain.Value) (angle, throttle domain.Value) {
	switch mode {
	case domain.ModeUser:
		return userAngle, userThrottle
	case domain.ModeLocalAngle:
		return pilotAngle, userThrottle
	default:
		return pilotAngle, pilotThrottle
	}
}

// ModeMixer returns the mixer as a part reading Inputs and writing Outputs.
func ModeMixer() *unit.LambdaUnit {
	return unit.Lambda(len(Inputs), len(Outputs), func(args []domain.Value) []domain.Value {
		mode, _ := args[0].Text()
		a, t := Mix(mode, args[1], args[2], args[3], args[4])
		return []domain.Value{a, t}
	})
}
