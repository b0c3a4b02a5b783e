// Package version holds the CLI version string. Default is "dev"; release
// builds set it via: go build -ldflags "-X aicommit/cli/internal/version.Version=v1.0.0"
package version

// Version is the ai-commit version. Set at build time for releases.
var Version = "dev"

// Commit is the short git commit hash, set via ldflags for dev builds.
var Commit = ""

// String returns the version string for display (e.g. --version).
// For dev builds with Commit set, returns "dev (abc1234)"; otherwise returns Version.
func String() string {
	if Version != "dev" || Commit == "" {
		return Version
	}
	return Version + " (" + Commit + ")"
}

// UserAgent is sent with every provider request.
func UserAgent() string {
	if Version == "dev" && Commit != "" {
		return "ai-commit/dev-" + Commit
	}
	return "ai-commit/" + Version
}
