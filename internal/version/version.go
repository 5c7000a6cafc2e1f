// Package version carries build metadata stamped in with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/scubafy-dev/scubafy-app-sub001/internal/version.Version=v0.4.0 \
//	  -X github.com/scubafy-dev/scubafy-app-sub001/internal/version.Commit=$(git rev-parse --short HEAD)" ./cmd/scubafy
package version

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the build as "version (commit, date)".
func String() string {
	return Version + " (" + Commit + ", " + Date + ")"
}
