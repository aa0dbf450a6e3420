package plugin

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// Build configurations; each has its own artifact directory
const (
	BuildDebug   = "debug"
	BuildRelease = "release"
)

// hostOS returns the platform used to name artifacts.
// Declared as a variable so tests can pretend to be another platform.
var hostOS = func() string {
	return runtime.GOOS
}

// ValidateBuild rejects unknown build configurations
func ValidateBuild(build string) error {
	switch build {
	case BuildDebug, BuildRelease:
		return nil
	}
	return fmt.Errorf("unknown build type %q (want %q or %q)", build, BuildDebug, BuildRelease)
}

// ArtifactName returns the file name of a plugin artifact on goos:
// libcoco_<b>.dylib on darwin, coco_<b>.dll on windows and libcoco_<b>.so elsewhere.
func ArtifactName(goos, binary string) string {
	switch goos {
	case "darwin", "ios":
		return "libcoco_" + binary + ".dylib"
	case "windows":
		return "coco_" + binary + ".dll"
	default:
		return "libcoco_" + binary + ".so"
	}
}

// ArtifactPath returns dir/<build>/<artifact name>
func ArtifactPath(dir, build, goos, binary string) string {
	return filepath.Join(dir, build, ArtifactName(goos, binary))
}

// HostArtifactName is ArtifactName for the running platform
func HostArtifactName(binary string) string {
	return ArtifactName(hostOS(), binary)
}
