// Package passes holds the middle-end analysis passes that annotate the
// object tree in place.
package passes

import (
	"fmt"

	"slintc-go/packages/compiler/src/diagnostics"
	"slintc-go/packages/compiler/src/langtype"
	"slintc-go/packages/compiler/src/objecttree"
	"slintc-go/packages/compiler/src/util"
)

// reverseAliases maps the alias relation in the other direction than what a
// binding's two-way list does: if the binding for property A lists B as a
// two-way target, reverseAliases maps B back to A.
type reverseAliases map[objecttree.NamedReference][]objecttree.NamedReference

// BindingAnalysis computes the dependency analysis for every binding of the
// document and attempts to find binding loops. Each binding's Analysis
// record is written exactly once; re-running the pass on an analyzed
// document changes nothing and emits nothing.
func BindingAnalysis(doc *objecttree.Document, diag *diagnostics.BuildDiagnostics) {
	component := doc.RootComponent
	reverse := reverseAliases{}
	markUsedBaseProperties(component, map[*objecttree.Component]bool{})
	propagateIsSetOnAliases(component, reverse, map[*objecttree.Component]bool{})
	performBindingAnalysis(component, reverse, diag, map[*objecttree.Component]bool{})
}

// dependencyStack is the ordered set of named references currently being
// analyzed. Insertion order is significant (it is the path of the current
// DFS) and membership tests must be cheap.
type dependencyStack struct {
	items []objecttree.NamedReference
	index map[objecttree.NamedReference]int
}

func newDependencyStack() *dependencyStack {
	return &dependencyStack{index: map[objecttree.NamedReference]int{}}
}

func (s *dependencyStack) Push(nr objecttree.NamedReference) {
	s.index[nr] = len(s.items)
	s.items = append(s.items, nr)
}

func (s *dependencyStack) Pop() objecttree.NamedReference {
	last := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	delete(s.index, last)
	return last
}

func (s *dependencyStack) Contains(nr objecttree.NamedReference) bool {
	_, ok := s.index[nr]
	return ok
}

func (s *dependencyStack) Back() (objecttree.NamedReference, bool) {
	if len(s.items) == 0 {
		return objecttree.NamedReference{}, false
	}
	return s.items[len(s.items)-1], true
}

func (s *dependencyStack) Len() int { return len(s.items) }

type analysisContext struct {
	visited map[objecttree.NamedReference]bool
	stack   *dependencyStack
}

func newAnalysisContext() *analysisContext {
	return &analysisContext{
		visited: map[objecttree.NamedReference]bool{},
		stack:   newDependencyStack(),
	}
}

func performBindingAnalysis(component *objecttree.Component, reverse reverseAliases, diag *diagnostics.BuildDiagnostics, seen map[*objecttree.Component]bool) {
	if seen[component] {
		return
	}
	seen[component] = true
	for _, c := range component.UsedSubComponents {
		performBindingAnalysis(c, reverse, diag, seen)
	}
	for _, g := range component.UsedGlobals {
		performBindingAnalysis(g, reverse, diag, seen)
	}

	context := newAnalysisContext()
	objecttree.RecurseElemIncludingSubComponents(component, func(e *objecttree.Element) {
		analyzeElement(e, context, reverse, diag)
	})
}

func analyzeElement(elem *objecttree.Element, ctx *analysisContext, reverse reverseAliases, diag *diagnostics.BuildDiagnostics) {
	for _, name := range elem.BindingNames() {
		if elem.Bindings[name].Analysis != nil {
			continue
		}
		if isCallback(elem, name) {
			continue
		}
		analyseBinding(objecttree.NewNamedReference(elem, name), ctx, reverse, diag)
	}
}

func isCallback(elem *objecttree.Element, name string) bool {
	for {
		if decl, ok := elem.PropertyDeclarations[name]; ok {
			return decl.Ty.Kind == langtype.TypeCallback
		}
		if elem.Base.Kind != objecttree.BaseComponent {
			return false
		}
		elem = elem.Base.Component.RootElement
	}
}

// analyseBinding analyzes one binding, recursing into everything it depends
// on first so analysis completes in dependency order. The return value
// reports whether the binding depends on a property that is set externally.
func analyseBinding(current objecttree.NamedReference, ctx *analysisContext, reverse reverseAliases, diag *diagnostics.BuildDiagnostics) bool {
	element := current.Element
	name := current.Name
	binding := element.Bindings[name]
	if binding == nil {
		panic(fmt.Sprintf("AssertionError: analyseBinding called for '%s' which has no binding", current))
	}

	// A two-way binding that refers to itself was already diagnosed by the
	// resolver; skip it silently rather than reporting it as a loop.
	if back, ok := ctx.stack.Back(); ok && back == current && len(binding.TwoWayBindings) > 0 {
		return false
	}

	if ctx.stack.Contains(current) {
		markBindingLoop(ctx, current, diag)
		return false
	}

	if binding.Analysis != nil {
		// Analyzed by an earlier traversal; revisiting would double count
		// reads and re-report loops.
		return ctx.visited[current]
	}
	ctx.visited[current] = false

	propAnalysis := element.EnsurePropertyAnalysis(name)
	binding.Analysis = &objecttree.BindingAnalysis{
		IsSet:           propAnalysis.IsSet,
		IsSetExternally: propAnalysis.IsSetExternally,
	}
	ctx.stack.Push(current)

	dependsOnExternal := false
	for _, alias := range binding.TwoWayBindings {
		if alias != current {
			dependsOnExternal = processProperty(alias, ctx, reverse, diag) || dependsOnExternal
		}
	}

	processProp := func(prop objecttree.NamedReference) {
		dependsOnExternal = processProperty(prop, ctx, reverse, diag) || dependsOnExternal
		for _, back := range reverse[prop] {
			if back != current && back != prop {
				dependsOnExternal = processProperty(back, ctx, reverse, diag) || dependsOnExternal
			}
		}
	}

	recurseExpression(binding.Expression, processProp)

	isConst := binding.IsConstant()
	if _, invalid := binding.Expression.(*objecttree.InvalidExpr); invalid && isConst {
		// A two-way-only binding inherits its constness from the base
		if base := element.SubComponent(); base != nil {
			isConst = objecttree.NewNamedReference(base.RootElement, name).IsConstant()
		}
	}
	binding.Analysis.IsConst = isConst

	if anim := binding.Animation; anim != nil {
		switch anim.Kind {
		case objecttree.AnimationStatic:
			analyzeElement(anim.Animation, ctx, reverse, diag)
		case objecttree.AnimationTransition:
			recurseExpression(anim.StateRef, processProp)
			for _, tr := range anim.Transitions {
				analyzeElement(tr.Animation, ctx, reverse, diag)
			}
		}
	}

	popped := ctx.stack.Pop()
	if popped != current {
		panic(fmt.Sprintf("AssertionError: dependency stack mismatch: popped %s while analyzing %s", popped, current))
	}
	ctx.visited[current] = dependsOnExternal
	return dependsOnExternal
}

// markBindingLoop walks the dependency stack backwards from the detection
// point, flagging every binding on the cycle. The walk stops at the first
// binding already flagged so that one loop reached from several entry
// points is only reported once.
func markBindingLoop(ctx *analysisContext, current objecttree.NamedReference, diag *diagnostics.BuildDiagnostics) {
	for i := ctx.stack.Len() - 1; i >= 0; i-- {
		it := ctx.stack.items[i]
		b := it.Element.Bindings[it.Name]
		if b.Analysis.IsBindingLoop {
			break
		}
		b.Analysis.IsBindingLoop = true
		diag.PushError(
			fmt.Sprintf("The binding for the property '%s' is part of a binding loop", it.Name),
			bindingSpan(it),
		)
		if it == current {
			break
		}
	}
}

func bindingSpan(nr objecttree.NamedReference) *util.ParseSourceSpan {
	if b, ok := nr.Element.Bindings[nr.Name]; ok && b.Span != nil {
		return b.Span
	}
	return nr.Element.Node
}

// processProperty visits the property prop depends on: marks it read,
// analyzes its binding if it has one, and walks up the inheritance chain to
// the level that declares it, marking every level passed through as read
// externally.
func processProperty(prop objecttree.NamedReference, ctx *analysisContext, reverse reverseAliases, diag *diagnostics.BuildDiagnostics) bool {
	a := prop.Element.EnsurePropertyAnalysis(prop.Name)
	a.IsRead = true
	external := a.IsSetExternally

	elem := prop.Element
	for {
		if _, ok := elem.Bindings[prop.Name]; ok {
			analyseBinding(objecttree.NewNamedReference(elem, prop.Name), ctx, reverse, diag)
		}
		if elem.Base.Kind != objecttree.BaseComponent {
			break
		}
		if _, declared := elem.PropertyDeclarations[prop.Name]; declared {
			break
		}
		next := elem.Base.Component.RootElement
		next.EnsurePropertyAnalysis(prop.Name).IsReadExternally = true
		elem = next
	}
	return external
}

// recurseExpression visits every named reference touched anywhere inside the
// expression tree. Textual occurrences additionally bump the target's use
// count; dependencies implied by native code (layout constraints) do not.
func recurseExpression(expr objecttree.Expression, vis func(objecttree.NamedReference)) {
	expr.Visit(func(sub objecttree.Expression) { recurseExpression(sub, vis) })
	switch e := expr.(type) {
	case *objecttree.PropertyReferenceExpr:
		e.Reference.BumpUseCount(1)
		vis(e.Reference)
	case *objecttree.CallbackReferenceExpr:
		e.Reference.BumpUseCount(1)
		vis(e.Reference)
	case *objecttree.FunctionReferenceExpr:
		e.Reference.BumpUseCount(1)
		vis(e.Reference)
	case *objecttree.LayoutCacheAccessExpr:
		e.LayoutCacheProp.BumpUseCount(1)
		vis(e.LayoutCacheProp)
	case *objecttree.SelfAssignmentExpr:
		if lhs, ok := e.Lhs.(*objecttree.PropertyReferenceExpr); ok {
			lhs.Reference.MarkAsSet()
		}
	case *objecttree.SolveLayoutExpr:
		visitLayoutDependencies(e.Layout, e.Orientation, true, vis)
	case *objecttree.ComputeLayoutInfoExpr:
		visitLayoutDependencies(e.Layout, e.Orientation, false, vis)
	case *objecttree.FunctionCallExpr:
		ref, ok := e.Function.(*objecttree.BuiltinFunctionReferenceExpr)
		if ok && ref.Function == objecttree.BuiltinImplicitLayoutInfo && len(e.Arguments) == 1 {
			if item, ok := e.Arguments[0].(*objecttree.ElementReferenceExpr); ok {
				visitImplicitLayoutInfoDependencies(item.Element, vis)
			}
		}
	}
}

func visitLayoutDependencies(l *objecttree.Layout, o objecttree.Orientation, solve bool, vis func(objecttree.NamedReference)) {
	if l == nil {
		return
	}
	if solve {
		if sr := l.Geometry.SizeReference(o); sr != nil {
			vis(*sr)
		}
	}
	for _, it := range l.Items {
		elem := it.Element
		if elem.Repeated {
			if sub := elem.SubComponent(); sub != nil {
				elem = sub.RootElement
			}
		}
		if nr := elem.LayoutInfoProp(o); nr != nil {
			vis(*nr)
			continue
		}
		if base := elem.SubComponent(); base != nil {
			if nr := base.RootElement.LayoutInfoProp(o); nr != nil {
				vis(*nr)
			}
		}
		visitImplicitLayoutInfoDependencies(elem, vis)
	}
	if l.Geometry.Spacing != nil {
		vis(*l.Geometry.Spacing)
	}
	for _, p := range l.Geometry.Padding {
		vis(p)
	}
}

// visitImplicitLayoutInfoDependencies visits the properties the native
// implicit-size computation of a builtin item reads. The constraint can be
// queried for either axis, so the union of both axes' dependencies is
// visited.
func visitImplicitLayoutInfoDependencies(item *objecttree.Element, vis func(objecttree.NamedReference)) {
	if item.Base.Kind != objecttree.BaseBuiltin {
		return
	}
	prop := func(name string) { vis(objecttree.NewNamedReference(item, name)) }
	switch item.Base.Builtin {
	case "Image":
		prop("source")
		prop("width")
	case "Text", "TextInput":
		prop("text")
		prop("font-family")
		prop("font-size")
		prop("font-weight")
		prop("letter-spacing")
		prop("wrap")
		prop("width")
		if item.Base.Builtin == "TextInput" {
			prop("single-line")
		} else {
			prop("overflow")
		}
	}
}

// propagateIsSetOnAliases makes sure that if property B is two-way bound to
// property A and B is ever externally mutated or non-constant, then A (and
// transitively every alias of A) is marked as set, even though A's own
// binding looks constant in isolation. Without this a later constant
// folding pass could discard a binding whose alias is mutated at runtime.
func propagateIsSetOnAliases(component *objecttree.Component, reverse reverseAliases, seen map[*objecttree.Component]bool) {
	if seen[component] {
		return
	}
	seen[component] = true

	objecttree.RecurseElemIncludingSubComponents(component, func(e *objecttree.Element) {
		for _, name := range e.BindingNames() {
			binding := e.Bindings[name]
			if len(binding.TwoWayBindings) == 0 {
				continue
			}
			checkAlias(e, name, binding)

			nr := objecttree.NewNamedReference(e, name)
			for _, alias := range binding.TwoWayBindings {
				if alias != nr && !alias.Element.EnclosingComponent.Global {
					reverse[alias] = append(reverse[alias], nr)
				}
			}
		}
		for _, decl := range e.PropertyDeclarations {
			if decl.IsAlias != nil {
				markAlias(*decl.IsAlias)
			}
		}
	})

	for _, c := range component.UsedSubComponents {
		propagateIsSetOnAliases(c, reverse, seen)
	}
	for _, g := range component.UsedGlobals {
		propagateIsSetOnAliases(g, reverse, seen)
	}
}

func checkAlias(e *objecttree.Element, name string, binding *objecttree.Binding) {
	// The analysis hasn't run yet, so any property access makes the
	// binding look non-constant. That is slightly pessimistic but safe.
	if binding.IsConstant() && !objecttree.NewNamedReference(e, name).IsExternallyModified() {
		for _, alias := range binding.TwoWayBindings {
			objecttree.MarkPropertySetDerivedInBase(alias.Element, alias.Name)
		}
		return
	}
	propagateAlias(binding)
}

func propagateAlias(binding *objecttree.Binding) {
	for _, alias := range binding.TwoWayBindings {
		markAlias(alias)
	}
}

func markAlias(alias objecttree.NamedReference) {
	if alias.IsExternallyModified() {
		return
	}
	alias.MarkAsSet()
	if bind, ok := alias.Element.Bindings[alias.Name]; ok {
		propagateAlias(bind)
	}
}

// markUsedBaseProperties marks, on the base declaration, every property of a
// user-component base that a derived element re-binds, so that the base's
// own binding is not treated as dead.
func markUsedBaseProperties(component *objecttree.Component, seen map[*objecttree.Component]bool) {
	if seen[component] {
		return
	}
	seen[component] = true

	objecttree.RecurseElemIncludingSubComponents(component, func(element *objecttree.Element) {
		if element.Base.Kind != objecttree.BaseComponent {
			return
		}
		for _, name := range element.BindingNames() {
			if element.Bindings[name].HasBinding() {
				objecttree.MarkPropertySetDerivedInBase(element, name)
			}
		}
	})

	for _, c := range component.UsedSubComponents {
		markUsedBaseProperties(c, seen)
	}
	for _, g := range component.UsedGlobals {
		markUsedBaseProperties(g, seen)
	}
}
