// Package diagnostics collects the user-facing errors and warnings emitted by
// the compiler passes. Diagnostics accumulate rather than aborting the pass
// that found them; once an error-level diagnostic is recorded the document
// must not proceed to code generation.
package diagnostics

import (
	"slintc-go/packages/compiler/src/util"
)

// BuildDiagnostics is the shared diagnostics sink threaded through the passes.
type BuildDiagnostics struct {
	diags []*util.ParseError
}

// NewBuildDiagnostics creates an empty collector
func NewBuildDiagnostics() *BuildDiagnostics {
	return &BuildDiagnostics{}
}

// PushError records an error-level diagnostic
func (d *BuildDiagnostics) PushError(msg string, span *util.ParseSourceSpan) {
	d.diags = append(d.diags, util.NewParseError(span, msg))
}

// PushWarning records a warning-level diagnostic
func (d *BuildDiagnostics) PushWarning(msg string, span *util.ParseSourceSpan) {
	d.diags = append(d.diags, util.NewParseWarning(span, msg))
}

// HasErrors reports whether at least one error-level diagnostic was recorded
func (d *BuildDiagnostics) HasErrors() bool {
	for _, e := range d.diags {
		if e.Level == util.ParseErrorLevelError {
			return true
		}
	}
	return false
}

// Diagnostics returns all recorded diagnostics in emission order
func (d *BuildDiagnostics) Diagnostics() []*util.ParseError {
	return d.diags
}

// Len returns the number of recorded diagnostics
func (d *BuildDiagnostics) Len() int {
	return len(d.diags)
}

// String renders every diagnostic, one per line
func (d *BuildDiagnostics) String() string {
	return util.JoinMessages(d.diags)
}
