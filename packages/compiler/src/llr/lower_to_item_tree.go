package llr

import (
	"fmt"
	"sort"

	"slintc-go/packages/compiler/src/langtype"
	"slintc-go/packages/compiler/src/objecttree"
)

// modelBindingName is where the resolver stores a repeater's model expression
// on the repeated element
const modelBindingName = "model"

// LowerToItemTree flattens an analyzed document into the low-level tree.
// Every used component becomes one SubComponent, every global singleton one
// GlobalComponent; element-pointer references become structural ones.
func LowerToItemTree(doc *objecttree.Document) *PublicComponent {
	state := NewLoweringState()
	public := &PublicComponent{}
	lowerer := &itemTreeLowerer{state: state, public: public, lowered: map[*objecttree.Component]*SubComponent{}}

	// Globals first so GlobalPropertyReference indices are stable before any
	// expression is lowered
	globals := collectGlobals(doc.RootComponent)
	for i, g := range globals {
		public.Globals = append(public.Globals, lowerer.declareGlobal(g, i))
	}
	for i, g := range globals {
		lowerer.lowerGlobalBindings(g, public.Globals[i])
	}

	public.Root = lowerer.lowerSubComponent(doc.RootComponent, nil)
	for _, c := range collectSubComponents(doc.RootComponent) {
		public.UsedSubComponents = append(public.UsedSubComponents, lowerer.lowerSubComponent(c, nil))
	}
	return public
}

func collectGlobals(root *objecttree.Component) []*objecttree.Component {
	var out []*objecttree.Component
	seen := map[*objecttree.Component]bool{}
	var walk func(c *objecttree.Component)
	walk = func(c *objecttree.Component) {
		if seen[c] {
			return
		}
		seen[c] = true
		for _, sub := range c.UsedSubComponents {
			walk(sub)
		}
		for _, g := range c.UsedGlobals {
			if !seen[g] {
				seen[g] = true
				out = append(out, g)
			}
		}
	}
	walk(root)
	return out
}

func collectSubComponents(root *objecttree.Component) []*objecttree.Component {
	var out []*objecttree.Component
	seen := map[*objecttree.Component]bool{root: true}
	var walk func(c *objecttree.Component)
	walk = func(c *objecttree.Component) {
		for _, sub := range c.UsedSubComponents {
			if !seen[sub] {
				seen[sub] = true
				out = append(out, sub)
				walk(sub)
			}
		}
	}
	walk(root)
	return out
}

type itemTreeLowerer struct {
	state   *LoweringState
	public  *PublicComponent
	lowered map[*objecttree.Component]*SubComponent
}

func (l *itemTreeLowerer) declareGlobal(c *objecttree.Component, globalIdx int) *GlobalComponent {
	g := &GlobalComponent{Name: c.ID, Exported: true}
	root := c.RootElement
	for _, name := range sortedDeclarationNames(root) {
		decl := root.PropertyDeclarations[name]
		idx := len(g.Properties)
		g.Properties = append(g.Properties, &Property{Name: name, Ty: decl.Ty, UseCount: declUseCount(root, name, decl)})
		g.InitValues = append(g.InitValues, nil)
		g.PropAnalysis = append(g.PropAnalysis, analysisFor(root, name))
		l.state.GlobalProperties[objecttree.NewNamedReference(root, name)] = GlobalPropertyReference{
			GlobalIndex:   globalIdx,
			PropertyIndex: idx,
		}
	}
	return g
}

func (l *itemTreeLowerer) lowerGlobalBindings(c *objecttree.Component, g *GlobalComponent) {
	root := c.RootElement
	ctx := &ExpressionContext{Component: c, Mapping: globalMapping(l.state, root), State: l.state}
	for i, p := range g.Properties {
		binding, ok := root.Bindings[p.Name]
		if !ok || !binding.HasBinding() {
			continue
		}
		g.InitValues[i] = lowerBinding(binding, ctx)
	}
}

// globalMapping lets a global's own bindings resolve through the regular
// MapPropertyReference path
func globalMapping(state *LoweringState, root *objecttree.Element) *LoweredSubComponentMapping {
	m := NewLoweredSubComponentMapping()
	for nr, ref := range state.GlobalProperties {
		if nr.Element == root {
			m.PropertyMapping[nr] = ref
		}
	}
	return m
}

func (l *itemTreeLowerer) lowerSubComponent(c *objecttree.Component, parent *ExpressionContext) *SubComponent {
	if sc, ok := l.lowered[c]; ok {
		return sc
	}
	sc := &SubComponent{Name: c.ID, PropAnalysis: map[string]objecttree.PropertyAnalysis{}}
	l.lowered[c] = sc
	mapping := NewLoweredSubComponentMapping()
	l.state.SubComponentMappings[c] = mapping
	ctx := &ExpressionContext{Component: c, Mapping: mapping, State: l.state, Parent: parent}

	// The repeater pseudo properties claim their fixed slots before anything
	// else is declared
	if pe := c.ParentElement; pe != nil && pe.Repeated {
		sc.Properties = append(sc.Properties,
			&Property{Name: "index", Ty: langtype.Int32()},
			&Property{Name: "model-data", Ty: repeatedDataType(pe)},
		)
		// The repeater writes both slots on every model update
		sc.PropAnalysis[LocalPropertyReference{PropertyIndex: repeaterIndexPropertySlot}.String()] = objecttree.PropertyAnalysis{IsSet: true}
		sc.PropAnalysis[LocalPropertyReference{PropertyIndex: repeaterModelPropertySlot}.String()] = objecttree.PropertyAnalysis{IsSet: true}
	}

	type pendingBinding struct {
		element *objecttree.Element
		name    string
	}
	var pending []pendingBinding
	type pendingRepeater struct {
		element *objecttree.Element
		slot    int
	}
	var repeaters []pendingRepeater

	// Structure first: expressions may reference elements and properties
	// declared anywhere in the component
	var walk func(e *objecttree.Element, path []int)
	walk = func(e *objecttree.Element, path []int) {
		le := LoweredElement{SubComponentPath: path, ItemIndex: -1, SubComponentIndex: -1}
		switch {
		case e.Repeated:
			repeaters = append(repeaters, pendingRepeater{element: e, slot: len(sc.Repeated)})
			sc.Repeated = append(sc.Repeated, nil)
		case e.Base.Kind == objecttree.BaseComponent:
			instance := &SubComponentInstance{Name: e.ID, Ty: l.lowerSubComponent(e.Base.Component, nil)}
			le.SubComponentIndex = len(sc.SubComponents)
			sc.SubComponents = append(sc.SubComponents, instance)
			// References to the instance's inherited properties resolve into
			// the nested sub-component
			subRoot := e.Base.Component.RootElement
			subMapping := l.state.SubComponentMappings[e.Base.Component]
			for _, name := range sortedDeclarationNames(subRoot) {
				inner, ok := subMapping.PropertyMapping[objecttree.NewNamedReference(subRoot, name)].(LocalPropertyReference)
				if !ok {
					continue
				}
				mapping.PropertyMapping[objecttree.NewNamedReference(e, name)] = LocalPropertyReference{
					SubComponentPath: append([]int{le.SubComponentIndex}, inner.SubComponentPath...),
					PropertyIndex:    inner.PropertyIndex,
				}
			}
		case e.Base.Kind == objecttree.BaseBuiltin:
			le.ItemIndex = len(sc.Items)
			sc.Items = append(sc.Items, Item{Name: e.ID, NativeType: e.Base.Builtin})
		}
		mapping.ElementMapping[e] = le

		for _, name := range sortedDeclarationNames(e) {
			decl := e.PropertyDeclarations[name]
			idx := len(sc.Properties)
			sc.Properties = append(sc.Properties, &Property{Name: propertySlotName(e, c, name), Ty: decl.Ty, UseCount: declUseCount(e, name, decl)})
			ref := LocalPropertyReference{PropertyIndex: idx}
			mapping.PropertyMapping[objecttree.NewNamedReference(e, name)] = ref
			// Recorded for every declaration, bound or not: the inliner must
			// see the set flags of a property that is only assigned at runtime
			sc.PropAnalysis[ref.String()] = analysisFor(e, name)
		}
		for _, name := range e.BindingNames() {
			if e.Repeated {
				// Only the repeated element's own declared properties live in
				// this component; everything else belongs to the content
				if _, declared := e.PropertyDeclarations[name]; !declared {
					continue
				}
			}
			pending = append(pending, pendingBinding{element: e, name: name})
		}
		if e.Repeated {
			return
		}
		for _, child := range e.Children {
			walk(child, path)
		}
	}
	walk(c.RootElement, nil)

	if pe := c.ParentElement; pe != nil && pe.Repeated {
		mapping.PropertyMapping[objecttree.NewNamedReference(c.RootElement, "index")] = LocalPropertyReference{PropertyIndex: repeaterIndexPropertySlot}
		mapping.PropertyMapping[objecttree.NewNamedReference(c.RootElement, "model-data")] = LocalPropertyReference{PropertyIndex: repeaterModelPropertySlot}
	}

	// Bindings second, now that every reference can be mapped
	for _, pb := range pending {
		binding := pb.element.Bindings[pb.name]
		if !binding.HasBinding() {
			continue
		}
		nr := objecttree.NewNamedReference(pb.element, pb.name)
		ref := ctx.MapPropertyReference(nr)
		if ref == nil {
			panic(fmt.Sprintf("AssertionError: binding target %s does not map", nr))
		}
		sc.PropertyInit = append(sc.PropertyInit, PropertyInit{Property: ref, Binding: lowerBinding(binding, ctx)})
		sc.PropAnalysis[ref.String()] = analysisFor(pb.element, pb.name)
	}

	for _, pr := range repeaters {
		sc.Repeated[pr.slot] = l.lowerRepeater(pr.element, ctx, pr.slot)
	}
	return sc
}

func (l *itemTreeLowerer) lowerRepeater(e *objecttree.Element, ctx *ExpressionContext, slot int) *RepeatedElement {
	content := e.SubComponent()
	if content == nil {
		panic(fmt.Sprintf("AssertionError: repeated element '%s' has no content component", e.ID))
	}
	rep := &RepeatedElement{IndexProp: repeaterIndexPropertySlot, DataProp: repeaterModelPropertySlot}
	if model, ok := e.Bindings[modelBindingName]; ok && model.HasBinding() {
		rep.Model = lowerBinding(model, ctx)
		if _, isBool := rep.Model.Expression.(*BoolLiteral); isBool {
			rep.IndexProp, rep.DataProp = -1, -1
		}
	}
	rep.Root = l.lowerSubComponent(content, ctx)
	return rep
}

func lowerBinding(binding *objecttree.Binding, ctx *ExpressionContext) *BindingExpression {
	if binding.Analysis == nil {
		panic("AssertionError: lowering an unanalyzed binding")
	}
	out := &BindingExpression{
		Expression: LowerExpression(binding.Expression, ctx),
		IsConstant: binding.Analysis.IsConst,
		UseCount:   binding.UseCount,
	}
	if binding.Animation != nil {
		out.Animation = LowerAnimation(binding.Animation, ctx)
	}
	return out
}

// propertySlotName disambiguates same-named declarations of different
// elements inside one flattened component
func propertySlotName(e *objecttree.Element, c *objecttree.Component, name string) string {
	if e == c.RootElement {
		return name
	}
	return e.ID + "-" + name
}

func sortedDeclarationNames(e *objecttree.Element) []string {
	names := make([]string, 0, len(e.PropertyDeclarations))
	for name := range e.PropertyDeclarations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func declUseCount(e *objecttree.Element, name string, decl *objecttree.PropertyDeclaration) int {
	if b, ok := e.Bindings[name]; ok {
		return b.UseCount
	}
	return decl.UseCount
}

// analysisFor merges the analysis of a property across the inheritance chain
// of its element: set/read annotations land on the level that declares the
// property, not on the element referencing it. Native output properties are
// written by the runtime, so they count as set; aliased declarations carry
// their target's analysis too.
func analysisFor(e *objecttree.Element, name string) objecttree.PropertyAnalysis {
	var out objecttree.PropertyAnalysis
	elem := e
	for {
		if a, ok := elem.PropertyAnalysis[name]; ok {
			mergeAnalysis(&out, *a)
		}
		if decl, ok := elem.PropertyDeclarations[name]; ok {
			if decl.IsAlias != nil {
				mergeAnalysis(&out, analysisFor(decl.IsAlias.Element, decl.IsAlias.Name))
			}
			return out
		}
		switch elem.Base.Kind {
		case objecttree.BaseComponent:
			elem = elem.Base.Component.RootElement
		case objecttree.BaseBuiltin:
			if objecttree.IsNativeOutputProperty(elem.Base.Builtin, name) {
				out.IsSet = true
			}
			return out
		default:
			return out
		}
	}
}

func mergeAnalysis(dst *objecttree.PropertyAnalysis, src objecttree.PropertyAnalysis) {
	dst.IsSet = dst.IsSet || src.IsSet
	dst.IsSetExternally = dst.IsSetExternally || src.IsSetExternally
	dst.IsRead = dst.IsRead || src.IsRead
	dst.IsReadExternally = dst.IsReadExternally || src.IsReadExternally
}

func repeatedDataType(repeated *objecttree.Element) langtype.Type {
	if model, ok := repeated.Bindings[modelBindingName]; ok {
		if arr, isArr := model.Expression.(*objecttree.ArrayExpr); isArr {
			return arr.ElementTy
		}
	}
	return langtype.Type{Kind: langtype.TypeInvalid}
}
