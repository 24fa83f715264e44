package model

import "fmt"

// Outcome is a tagged result for operations with best-effort secondary
// writes. The primary error (if any) lives in Err; telemetry failures
// that were deliberately suppressed are recorded as warnings so the
// suppression is a visible, testable code path rather than an empty
// catch.
type Outcome struct {
	Err      error
	Warnings []string
}

// OK reports whether the primary path succeeded. Warnings do not make
// an outcome non-OK.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Warnf appends a formatted warning.
func (o *Outcome) Warnf(format string, args ...any) {
	o.Warnings = append(o.Warnings, fmt.Sprintf(format, args...))
}
