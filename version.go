package vehicle

// Version is the release version, set at build time with
// -ldflags "-X github.com/aretw0/vehicle.Version=v1.2.3".
var Version = "v0.1.0-dev"
