package version

const (
	// Name of the application
	Name = "SZBI"
)

var (
	Version   = "0.1.0"
	BuildTime = "unknown" // set via ldflags
	GitCommit = "unknown" // set via ldflags
)

// Full returns the version with build metadata when it is known.
func Full() string {
	if BuildTime == "unknown" || GitCommit == "unknown" {
		return Version
	}
	return Version + " (commit: " + GitCommit + ", built: " + BuildTime + ")"
}

// Info returns the fields reported by the health endpoint.
func Info() map[string]string {
	return map[string]string{
		"service":    Name,
		"version":    Version,
		"git_commit": GitCommit,
		"build_time": BuildTime,
	}
}
