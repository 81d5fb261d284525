// Package version carries build identification, set via -ldflags at release
// build time.
package version

var (
	// Version is the semantic version of this build.
	Version = "dev"
	// GitSHA is the commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// String returns the single-line form used in startup logs and the API.
func String() string {
	return Version + " (" + GitSHA + ", built " + BuildTime + ")"
}
