package version

// Version is the current version of argo-replay.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/rxtech-lab/argo-replay/internal/version.Version=1.2.3"
// The value "main" indicates a development build.
var Version = "v1.0.0"

// ConfigVersion is the simulation config format written by this build.
const ConfigVersion = "1.0.0"

// GetVersion returns the current version of the binary.
func GetVersion() string {
	return Version
}
