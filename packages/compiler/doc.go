// Package compiler hosts the middle-end of a declarative UI compiler: the
// passes that run between type checking and code generation.
//
// Main sub-packages (under src/):
//
//   - objecttree: the analyzed property graph of components, elements,
//     bindings, named references, and the high-level expression tree
//   - passes: the binding dependency analyzer (loop detection, constness,
//     read/write annotations, use counting)
//   - llr: the low-level representation with structural property references,
//     the flattened item tree, and the expression lowering
//   - llr/optim: optimization passes on the lowered tree, currently the
//     cost-driven expression inliner
//   - costmodel: the tunable weights and thresholds driving the inliner
//   - langtype: the static type representation shared by both trees
//   - diagnostics: the accumulating error/warning collector
//   - util: source files, locations, spans, and located errors
//
// The src package itself exposes the drivers: AnalyzeDocument runs the
// analysis, LowerDocument takes an analyzed document all the way to the
// optimized low-level tree.
package compiler
