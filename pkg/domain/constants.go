package domain

// Well-known signal keys used by the bundled parts.
const (
	KeyTimestamp     = "timestamp"
	KeyImage         = "cam/image_array"
	KeyUserAngle     = "user/angle"
	KeyUserThrottle  = "user/throttle"
	KeyUserMode      = "user/mode"
	KeyRecording     = "recording"
	KeyRunPilot      = "run_pilot"
	KeyPilotAngle    = "pilot/angle"
	KeyPilotThrottle = "pilot/throttle"
	KeyAngle         = "angle"
	KeyThrottle      = "throttle"
)

// Drive modes published on KeyUserMode.
const (
	ModeUser       = "user"        // human steers and throttles
	ModeLocalAngle = "local_angle" // pilot steers, human throttles
	ModeLocal      = "local"       // pilot drives
)

// HealthPrefix namespaces the degraded-unit warnings written to the Bus.
const HealthPrefix = "health/"

// HealthKey returns the Bus key carrying a unit's background failure.
func HealthKey(unit string) string { return HealthPrefix + unit }
