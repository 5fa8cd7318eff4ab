// Package compiler wires the middle-end passes together: binding dependency
// analysis on the object tree, lowering into the low-level representation,
// and the cost-driven inliner on the result.
package compiler

import (
	"errors"

	"slintc-go/packages/compiler/src/costmodel"
	"slintc-go/packages/compiler/src/diagnostics"
	"slintc-go/packages/compiler/src/llr"
	"slintc-go/packages/compiler/src/llr/optim"
	"slintc-go/packages/compiler/src/objecttree"
	"slintc-go/packages/compiler/src/passes"
)

// AnalyzeDocument runs the binding dependency analysis, collecting
// diagnostics into diag. It reports whether the document may proceed to
// lowering: any error-level diagnostic (a binding loop) makes it false.
func AnalyzeDocument(doc *objecttree.Document, diag *diagnostics.BuildDiagnostics) bool {
	passes.BindingAnalysis(doc, diag)
	return !diag.HasErrors()
}

// ErrDocumentHasErrors is returned when lowering is requested for a document
// whose analysis produced errors
var ErrDocumentHasErrors = errors.New("document has errors and cannot be lowered")

// LowerDocument analyzes the document, flattens it into the low-level tree
// and runs the inliner with the profile. The document's diagnostics are
// collected into diag; a document with errors is not lowered.
func LowerDocument(doc *objecttree.Document, diag *diagnostics.BuildDiagnostics, profile costmodel.Profile) (*llr.PublicComponent, error) {
	if !AnalyzeDocument(doc, diag) {
		return nil, ErrDocumentHasErrors
	}
	root := llr.LowerToItemTree(doc)
	optim.InlineSimpleExpressionsWithProfile(root, profile)
	return root, nil
}

// OptimizeLowered runs the optimization passes on an already lowered tree
func OptimizeLowered(root *llr.PublicComponent, profile costmodel.Profile) {
	optim.InlineSimpleExpressionsWithProfile(root, profile)
}
