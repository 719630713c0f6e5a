// Package buildinfo carries values stamped at link time:
//
//	go build -ldflags "-X 'github.com/m3rciful/invitebot/core/buildinfo.Version=v1.0.0' \
//	  -X 'github.com/m3rciful/invitebot/core/buildinfo.Commit=abcdef0' \
//	  -X 'github.com/m3rciful/invitebot/core/buildinfo.Date=2026-10-01T12:00:00Z'"
package buildinfo

var (
	// Version reports the semantic version or tag of the build.
	Version = "dev"
	// Commit reports the source control commit used for the build.
	Commit = "local"
	// Date reports the build timestamp in RFC3339 format.
	Date = ""
)
