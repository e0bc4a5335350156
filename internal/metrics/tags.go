package metrics

import "fmt"

// Tag creates a formatted DataDog tag string in "key:value" format.
func Tag(key, value string) string {
	return fmt.Sprintf("%s:%s", key, value)
}

// ProfileTag creates a configuration profile tag.
func ProfileTag(profile string) string {
	return Tag("profile", profile)
}

// PhaseTag creates a lifecycle phase tag.
func PhaseTag(phase string) string {
	return Tag("phase", phase)
}

// OutcomeTag creates a cycle outcome tag (changed/unchanged/error).
func OutcomeTag(outcome string) string {
	return Tag("outcome", outcome)
}

// TierTag creates a cache tier tag (raw/parsed).
func TierTag(tier string) string {
	return Tag("tier", tier)
}

// CauseTag creates a failure cause tag (session/fetch/parse).
func CauseTag(cause string) string {
	return Tag("cause", cause)
}

// VersionTag creates a configuration version label tag.
func VersionTag(version string) string {
	return Tag("version", version)
}
