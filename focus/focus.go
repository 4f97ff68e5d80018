// Package focus answers one question: is a target application the
// foreground window right now? Keystroke delivery is suppressed when it
// is not, so dictated text cannot land in the wrong program.
package focus

// Detector reports whether one of the configured target processes owns
// the foreground window.
type Detector interface {
	TargetFocused() bool
}
