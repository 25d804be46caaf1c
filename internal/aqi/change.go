package aqi

// DetectChange reports whether the level moved between two consecutive polls.
// An empty previous label means there was no earlier record; that is never a change.
func DetectChange(previous, current Label) bool {
	return previous != "" && previous != current
}
