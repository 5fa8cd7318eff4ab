// Package optim holds the optimization passes running on the lowered tree.
package optim

import (
	"fmt"

	"slintc-go/packages/compiler/src/costmodel"
	"slintc-go/packages/compiler/src/llr"
	"slintc-go/packages/compiler/src/objecttree"
)

// InlineSimpleExpressions replaces property reads with the referenced
// binding's expression whenever that expression is cheap enough, using the
// default cost profile. Bindings folded into their last reader are emptied.
func InlineSimpleExpressions(root *llr.PublicComponent) {
	InlineSimpleExpressionsWithProfile(root, costmodel.Default())
}

// InlineSimpleExpressionsWithProfile is InlineSimpleExpressions with explicit
// cost weights
func InlineSimpleExpressionsWithProfile(root *llr.PublicComponent, profile costmodel.Profile) {
	root.ForEachExpression(func(e llr.Expression, ctx *llr.EvaluationContext) llr.Expression {
		return inlineExpr(e, ctx, profile)
	})
}

func inlineExpr(e llr.Expression, ctx *llr.EvaluationContext, profile costmodel.Profile) llr.Expression {
	if pr, ok := e.(*llr.PropertyReferenceExpr); ok {
		if replacement := tryInline(pr, ctx, profile); replacement != nil {
			e = replacement
		}
	}
	// Recurse after the rewrite so a freshly inlined expression is itself a
	// candidate (transitive inlining)
	return e.TransformChildren(func(c llr.Expression) llr.Expression {
		return inlineExpr(c, ctx, profile)
	})
}

// tryInline returns the replacement for a property read, or nil to keep it
func tryInline(pr *llr.PropertyReferenceExpr, ctx *llr.EvaluationContext, profile costmodel.Profile) llr.Expression {
	info := propertyBindingAndAnalysis(ctx, pr.Reference)
	if info.analysis != nil && (info.analysis.IsSet || info.analysis.IsSetExternally) {
		// A set property's value is not its binding
		return nil
	}

	if info.binding == nil {
		// No binding at all: the read yields the type's default value
		if info.property == nil {
			return nil
		}
		def := llr.DefaultValueForType(info.property.Ty)
		if def == nil {
			return nil
		}
		info.property.BumpUseCount(-1)
		return def
	}

	binding := info.binding
	if binding.Animation != nil || binding.IsStateInfo {
		return nil
	}

	threshold := profile.InlineThreshold()
	if binding.UseCount == 1 {
		threshold = profile.SingleUseThreshold()
	}
	if expressionCost(binding.Expression, profile) >= threshold {
		return nil
	}

	replacement := info.bindingMap.MapExpression(llr.CloneExpression(binding.Expression))

	binding.BumpUseCount(-1)
	if info.property != nil {
		info.property.BumpUseCount(-1)
	}
	// The clone introduces one new occurrence of every reference inside it
	bumpReferenceCounts(replacement, ctx, 1)

	if binding.UseCount == 0 {
		// Last reader gone: drop the binding and the references it held
		bumpReferenceCounts(info.bindingMap.MapExpression(llr.CloneExpression(binding.Expression)), ctx, -1)
		binding.Expression = &llr.CodeBlock{}
	}
	return replacement
}

// bumpReferenceCounts adjusts the use counts of every property referenced
// anywhere inside expr, resolved in ctx
func bumpReferenceCounts(expr llr.Expression, ctx *llr.EvaluationContext, delta int) {
	forEachReference(expr, func(ref llr.PropertyReference) {
		info := propertyBindingAndAnalysis(ctx, ref)
		if info.binding != nil {
			info.binding.BumpUseCount(delta)
		}
		if info.property != nil {
			info.property.BumpUseCount(delta)
		}
	})
}

func forEachReference(expr llr.Expression, vis func(llr.PropertyReference)) {
	switch e := expr.(type) {
	case *llr.PropertyReferenceExpr:
		vis(e.Reference)
	case *llr.CallbackCall:
		vis(e.Callback)
	case *llr.FunctionCall:
		vis(e.Function)
	case *llr.PropertyAssignment:
		vis(e.Property)
	case *llr.LayoutCacheAccess:
		vis(e.LayoutCacheProp)
	}
	expr.Visit(func(sub llr.Expression) { forEachReference(sub, vis) })
}

// propertyInfo is everything known about the target of a property reference:
// its analysis, its binding (with the map translating the binding's own
// references into the asking context), and its property slot.
type propertyInfo struct {
	analysis   *objecttree.PropertyAnalysis
	binding    *llr.BindingExpression
	bindingMap contextMap
	property   *llr.Property
}

func propertyBindingAndAnalysis(ctx *llr.EvaluationContext, prop llr.PropertyReference) propertyInfo {
	switch r := prop.(type) {
	case llr.LocalPropertyReference:
		if g := ctx.CurrentGlobal; g != nil {
			if len(r.SubComponentPath) != 0 {
				panic("AssertionError: a global has no sub-components")
			}
			return globalInfo(ctx.Public, globalIndex(ctx.Public, g), r.PropertyIndex)
		}
		return matchInSubComponent(ctx.CurrentSubComponent, r, identityMap())

	case llr.ParentPropertyReference:
		c := ctx
		for i := 0; i < r.Level; i++ {
			if c.Parent == nil {
				panic("AssertionError: parent reference escapes the repeater chain")
			}
			c = c.Parent.Ctx
		}
		info := propertyBindingAndAnalysis(c, r.Parent)
		info.bindingMap = info.bindingMap.throughParent(r.Level)
		return info

	case llr.GlobalPropertyReference:
		return globalInfo(ctx.Public, r.GlobalIndex, r.PropertyIndex)

	case llr.NativeItemPropertyReference,
		llr.FunctionPropertyReference,
		llr.GlobalFunctionPropertyReference:
		// Native item properties and functions have no binding to inline
		return propertyInfo{}

	default:
		panic(fmt.Sprintf("AssertionError: unknown property reference kind %T", prop))
	}
}

func matchInSubComponent(sc *llr.SubComponent, r llr.LocalPropertyReference, m contextMap) propertyInfo {
	if len(r.SubComponentPath) > 0 {
		i := r.SubComponentPath[0]
		rest := llr.LocalPropertyReference{
			SubComponentPath: r.SubComponentPath[1:],
			PropertyIndex:    r.PropertyIndex,
		}
		return matchInSubComponent(sc.SubComponents[i].Ty, rest, m.deeperInSubComponent(i))
	}

	info := propertyInfo{bindingMap: m}
	if r.PropertyIndex < len(sc.Properties) {
		info.property = sc.Properties[r.PropertyIndex]
	}
	local := llr.LocalPropertyReference{PropertyIndex: r.PropertyIndex}
	if a, ok := sc.PropAnalysis[local.String()]; ok {
		info.analysis = &a
	}
	if i := sc.BindingIndex(local); i >= 0 {
		info.binding = sc.PropertyInit[i].Binding
	}
	return info
}

func globalInfo(public *llr.PublicComponent, globalIdx, propertyIdx int) propertyInfo {
	g := public.Globals[globalIdx]
	info := propertyInfo{
		bindingMap: inGlobalMap(globalIdx),
		property:   g.Properties[propertyIdx],
	}
	if propertyIdx < len(g.PropAnalysis) {
		info.analysis = &g.PropAnalysis[propertyIdx]
	}
	if propertyIdx < len(g.InitValues) {
		info.binding = g.InitValues[propertyIdx]
	}
	return info
}

func globalIndex(public *llr.PublicComponent, g *llr.GlobalComponent) int {
	for i, candidate := range public.Globals {
		if candidate == g {
			return i
		}
	}
	panic(fmt.Sprintf("AssertionError: global '%s' is not registered on the public component", g.Name))
}

// contextMap rewrites property references valid in a binding's own context
// into references valid in the context the binding is inlined into
type contextMap struct {
	// global >= 0 means the binding lives in that global; path and parent
	// are meaningless then
	global int

	// path descends into nested sub-components, parent climbs repeater
	// levels. Both zero is the identity.
	path   []int
	parent int
}

func identityMap() contextMap { return contextMap{global: -1} }

func inGlobalMap(globalIdx int) contextMap { return contextMap{global: globalIdx} }

func (m contextMap) deeperInSubComponent(i int) contextMap {
	if m.global >= 0 {
		panic("AssertionError: cannot descend into a sub-component of a global")
	}
	path := make([]int, 0, len(m.path)+1)
	path = append(path, m.path...)
	path = append(path, i)
	return contextMap{global: -1, path: path, parent: m.parent}
}

func (m contextMap) throughParent(level int) contextMap {
	if m.global >= 0 {
		return m
	}
	return contextMap{global: -1, path: m.path, parent: m.parent + level}
}

// MapPropertyReference rewrites one reference through the map
func (m contextMap) MapPropertyReference(r llr.PropertyReference) llr.PropertyReference {
	if m.global >= 0 {
		switch ref := r.(type) {
		case llr.LocalPropertyReference:
			if len(ref.SubComponentPath) != 0 {
				panic("AssertionError: a global binding cannot reach into sub-components")
			}
			return llr.GlobalPropertyReference{GlobalIndex: m.global, PropertyIndex: ref.PropertyIndex}
		case llr.GlobalPropertyReference, llr.GlobalFunctionPropertyReference:
			return r
		default:
			panic(fmt.Sprintf("AssertionError: reference %s cannot occur in a global binding", r))
		}
	}

	if m.parent > 0 {
		r = llr.ParentPropertyReference{Level: m.parent, Parent: r}
	}
	if len(m.path) == 0 {
		return r
	}
	switch ref := r.(type) {
	case llr.LocalPropertyReference:
		return llr.LocalPropertyReference{
			SubComponentPath: prepend(m.path, ref.SubComponentPath),
			PropertyIndex:    ref.PropertyIndex,
		}
	case llr.NativeItemPropertyReference:
		return llr.NativeItemPropertyReference{
			SubComponentPath: prepend(m.path, ref.SubComponentPath),
			ItemIndex:        ref.ItemIndex,
			PropertyName:     ref.PropertyName,
		}
	case llr.FunctionPropertyReference:
		return llr.FunctionPropertyReference{
			SubComponentPath: prepend(m.path, ref.SubComponentPath),
			FunctionIndex:    ref.FunctionIndex,
		}
	default:
		// Parent and global references are already absolute enough
		return r
	}
}

func prepend(prefix, rest []int) []int {
	out := make([]int, 0, len(prefix)+len(rest))
	out = append(out, prefix...)
	out = append(out, rest...)
	return out
}

// MapExpression rewrites every reference inside the expression through the
// map, returning the rewritten tree
func (m contextMap) MapExpression(e llr.Expression) llr.Expression {
	switch ex := e.(type) {
	case *llr.PropertyReferenceExpr:
		return &llr.PropertyReferenceExpr{Reference: m.MapPropertyReference(ex.Reference)}
	case *llr.CallbackCall:
		mapped := ex.TransformChildren(m.MapExpression).(*llr.CallbackCall)
		mapped.Callback = m.MapPropertyReference(ex.Callback)
		return mapped
	case *llr.FunctionCall:
		mapped := ex.TransformChildren(m.MapExpression).(*llr.FunctionCall)
		mapped.Function = m.MapPropertyReference(ex.Function)
		return mapped
	case *llr.PropertyAssignment:
		mapped := ex.TransformChildren(m.MapExpression).(*llr.PropertyAssignment)
		mapped.Property = m.MapPropertyReference(ex.Property)
		return mapped
	case *llr.LayoutCacheAccess:
		mapped := ex.TransformChildren(m.MapExpression).(*llr.LayoutCacheAccess)
		mapped.LayoutCacheProp = m.MapPropertyReference(ex.LayoutCacheProp)
		return mapped
	default:
		return e.TransformChildren(m.MapExpression)
	}
}

// expressionCost estimates the evaluation cost of an expression. Costs
// saturate at NeverInline.
func expressionCost(e llr.Expression, profile costmodel.Profile) int64 {
	var base int64
	switch ex := e.(type) {
	case *llr.StringLiteral:
		base = profile.Alloc
	case *llr.NumberLiteral, *llr.BoolLiteral, *llr.EnumerationValue:
		base = 0
	case *llr.PropertyReferenceExpr:
		base = profile.PropertyAccess
	case *llr.FunctionParameterReference:
		// Only meaningful inside the callback body it belongs to
		return costmodel.NeverInline
	case *llr.StoreLocalVariable:
		base = 0
	case *llr.ReadLocalVariable:
		base = profile.ArithmeticOp
	case *llr.StructFieldAccess:
		base = profile.ArithmeticOp
	case *llr.ArrayIndex:
		base = profile.ArrayIndex
	case *llr.Cast, *llr.CodeBlock:
		base = 0
	case *llr.BuiltinFunctionCall:
		base = builtinFunctionCost(ex.Function, profile)
		if base == costmodel.NeverInline {
			return costmodel.NeverInline
		}
	case *llr.CallbackCall, *llr.FunctionCall, *llr.ExtraBuiltinFunctionCall:
		return costmodel.NeverInline
	case *llr.PropertyAssignment, *llr.ModelDataAssignment, *llr.ArrayIndexAssignment:
		return costmodel.NeverInline
	case *llr.ReturnStatement:
		return costmodel.NeverInline
	case *llr.BinaryExpression, *llr.UnaryOp:
		base = profile.ArithmeticOp
	case *llr.ImageReference:
		if !ex.Embedded {
			// Decoding on demand must stay behind its own property
			return costmodel.NeverInline
		}
		base = profile.Alloc
	case *llr.Condition:
		// Only one branch runs; charge the worse one plus a margin for the
		// branch itself
		condCost := expressionCost(ex.Condition, profile)
		trueCost := expressionCost(ex.TrueExpr, profile)
		falseCost := expressionCost(ex.FalseExpr, profile)
		branches := trueCost
		if falseCost > branches {
			branches = falseCost
		}
		return saturatingAdd(saturatingAdd(condCost, branches), profile.ConditionMargin)
	case *llr.Array:
		// An array literal becomes a fresh model per evaluation; duplicating
		// that across readers is never a win
		return costmodel.NeverInline
	case *llr.Struct:
		base = profile.Alloc
	case *llr.EasingCurve:
		base = profile.ArithmeticOp
	case *llr.LinearGradient, *llr.RadialGradient:
		base = profile.Alloc
	case *llr.LayoutCacheAccess:
		base = profile.PropertyAccess
	case *llr.MinMax:
		base = profile.ConditionMargin
	default:
		return costmodel.NeverInline
	}

	cost := base
	e.Visit(func(sub llr.Expression) {
		cost = saturatingAdd(cost, expressionCost(sub, profile))
	})
	return cost
}

func builtinFunctionCost(f objecttree.BuiltinFunction, profile costmodel.Profile) int64 {
	switch f {
	case objecttree.BuiltinGetWindowScaleFactor,
		objecttree.BuiltinGetWindowDefaultFontSize,
		objecttree.BuiltinAnimationTick,
		objecttree.BuiltinTextInputFocused:
		return profile.PropertyAccess
	case objecttree.BuiltinMod, objecttree.BuiltinRound, objecttree.BuiltinCeil,
		objecttree.BuiltinFloor, objecttree.BuiltinAbs, objecttree.BuiltinSqrt,
		objecttree.BuiltinCos, objecttree.BuiltinSin, objecttree.BuiltinTan,
		objecttree.BuiltinACos, objecttree.BuiltinASin, objecttree.BuiltinATan,
		objecttree.BuiltinLog, objecttree.BuiltinPow:
		return 10 * profile.ArithmeticOp
	case objecttree.BuiltinStringToFloat, objecttree.BuiltinStringIsFloat,
		objecttree.BuiltinImageSize, objecttree.BuiltinArrayLength,
		objecttree.BuiltinRgb:
		return 50 * profile.ArithmeticOp
	case objecttree.BuiltinColorBrighter, objecttree.BuiltinColorDarker,
		objecttree.BuiltinColorTransparentize, objecttree.BuiltinColorMix,
		objecttree.BuiltinColorWithAlpha:
		return 30 * profile.ArithmeticOp
	case objecttree.BuiltinTranslate:
		return 2 * profile.Alloc
	default:
		// Everything with a side effect or runtime state dependency
		return costmodel.NeverInline
	}
}

func saturatingAdd(a, b int64) int64 {
	if a == costmodel.NeverInline || b == costmodel.NeverInline {
		return costmodel.NeverInline
	}
	sum := a + b
	if sum < a {
		return costmodel.NeverInline
	}
	return sum
}
