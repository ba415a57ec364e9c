package version

import "os"

// DefaultVersion is the CLI version baked into releases. This should match
// the release tag.
const DefaultVersion = "v0.1.0"

// GetVersion returns the CLI version, checking environment variable first.
func GetVersion() string {
	if envVersion := os.Getenv("KUBESTAGE_CLI_VERSION"); envVersion != "" {
		return envVersion
	}
	return DefaultVersion
}

// IsDevelopment returns true if the version is set to "dev".
func IsDevelopment() bool {
	return GetVersion() == "dev"
}
