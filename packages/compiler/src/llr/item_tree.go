// Package llr is the low-level representation: the flattened component
// structure and lowered expressions produced after analysis, consumed by the
// optimization passes and the code generators. Properties are addressed by
// index and structural path rather than by element pointer.
package llr

import (
	"fmt"
	"strings"

	"slintc-go/packages/compiler/src/langtype"
	"slintc-go/packages/compiler/src/objecttree"
)

// PropertyReference addresses one property, callback or function relative to
// an evaluation context. It is a closed variant; every kind also renders to a
// stable string so references can key maps.
type PropertyReference interface {
	fmt.Stringer
	isPropertyReference()
}

// LocalPropertyReference addresses a property declared on the current
// sub-component, or on one reached by descending SubComponentPath
type LocalPropertyReference struct {
	SubComponentPath []int
	PropertyIndex    int
}

func (LocalPropertyReference) isPropertyReference() {}
func (r LocalPropertyReference) String() string {
	return fmt.Sprintf("local(%s.%d)", pathString(r.SubComponentPath), r.PropertyIndex)
}

// NativeItemPropertyReference addresses a property of a native item of the
// current sub-component
type NativeItemPropertyReference struct {
	SubComponentPath []int
	ItemIndex        int
	PropertyName     string
}

func (NativeItemPropertyReference) isPropertyReference() {}
func (r NativeItemPropertyReference) String() string {
	return fmt.Sprintf("item(%s.%d.%s)", pathString(r.SubComponentPath), r.ItemIndex, r.PropertyName)
}

// ParentPropertyReference addresses a property Level repeater levels up from
// the current context. Level is always at least one.
type ParentPropertyReference struct {
	Level  int
	Parent PropertyReference
}

func (ParentPropertyReference) isPropertyReference() {}
func (r ParentPropertyReference) String() string {
	return fmt.Sprintf("parent(%d, %s)", r.Level, r.Parent)
}

// GlobalPropertyReference addresses a property of a global singleton
type GlobalPropertyReference struct {
	GlobalIndex   int
	PropertyIndex int
}

func (GlobalPropertyReference) isPropertyReference() {}
func (r GlobalPropertyReference) String() string {
	return fmt.Sprintf("global(%d.%d)", r.GlobalIndex, r.PropertyIndex)
}

// FunctionPropertyReference addresses a function of the current sub-component
type FunctionPropertyReference struct {
	SubComponentPath []int
	FunctionIndex    int
}

func (FunctionPropertyReference) isPropertyReference() {}
func (r FunctionPropertyReference) String() string {
	return fmt.Sprintf("fn(%s.%d)", pathString(r.SubComponentPath), r.FunctionIndex)
}

// GlobalFunctionPropertyReference addresses a function of a global singleton
type GlobalFunctionPropertyReference struct {
	GlobalIndex   int
	FunctionIndex int
}

func (GlobalFunctionPropertyReference) isPropertyReference() {}
func (r GlobalFunctionPropertyReference) String() string {
	return fmt.Sprintf("globalfn(%d.%d)", r.GlobalIndex, r.FunctionIndex)
}

func pathString(path []int) string {
	if len(path) == 0 {
		return "self"
	}
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = fmt.Sprintf("%d", p)
	}
	return strings.Join(parts, "/")
}

// Property is one property slot of a sub-component or global
type Property struct {
	Name string
	Ty   langtype.Type

	// UseCount is the number of surviving references to the property across
	// the whole lowered tree, maintained by the optimization passes
	UseCount int
}

// BumpUseCount adjusts the use count, panicking if it would go negative
func (p *Property) BumpUseCount(delta int) {
	p.UseCount += delta
	if p.UseCount < 0 {
		panic(fmt.Sprintf("AssertionError: property use count went negative for '%s'", p.Name))
	}
}

// AnimationKind discriminates a lowered animation
type AnimationKind int

const (
	// AnimationStatic evaluates to a fixed PropertyAnimation struct
	AnimationStatic AnimationKind = iota
	// AnimationTransition evaluates state-dependently; the expression yields
	// a (animation, start-time) pair
	AnimationTransition
)

// Animation is the lowered animation attached to a binding
type Animation struct {
	Kind       AnimationKind
	Expression Expression
}

// BindingExpression is one lowered property binding
type BindingExpression struct {
	Expression Expression
	Animation  *Animation

	// IsConstant is carried over from the analysis; constant bindings are
	// evaluated once instead of registered as dependencies
	IsConstant bool

	// IsStateInfo marks the synthetic state property backing `states`;
	// it needs special codegen and is never inlined
	IsStateInfo bool

	// UseCount counts the surviving property references reading this
	// binding's property
	UseCount int
}

// BumpUseCount adjusts the use count, panicking if it would go negative
func (b *BindingExpression) BumpUseCount(delta int) {
	b.UseCount += delta
	if b.UseCount < 0 {
		panic(fmt.Sprintf("AssertionError: binding use count went negative (%d)", b.UseCount))
	}
}

// Function is one user-declared function lowered to an expression body
type Function struct {
	Name     string
	RetTy    langtype.Type
	ArgTypes []langtype.Type
	Code     Expression
}

// Item is one native item instantiated by a sub-component
type Item struct {
	Name       string
	NativeType string
}

// SubComponentInstance is the instantiation of a sub-component inside another
type SubComponentInstance struct {
	Name string
	Ty   *SubComponent
}

// RepeatedElement is a repeater: a model expression and the component
// instantiated once per model entry
type RepeatedElement struct {
	Model *BindingExpression

	// IndexProp and DataProp are the slots inside Root.Properties holding
	// the pseudo properties `index` and `model-data`, or -1 when the model
	// is a plain boolean condition
	IndexProp int
	DataProp  int

	Root *SubComponent
}

// PropertyInit pairs a property with its binding
type PropertyInit struct {
	Property PropertyReference
	Binding  *BindingExpression
}

// SubComponent is one flattened component: its own properties and bindings,
// its native items, and the sub-components and repeaters it instantiates
type SubComponent struct {
	Name          string
	Properties    []*Property
	Functions     []*Function
	Items         []Item
	SubComponents []*SubComponentInstance
	Repeated      []*RepeatedElement

	// PropertyInit lists the bindings in declaration order; the slice index
	// is not meaningful, lookups go through BindingIndex
	PropertyInit []PropertyInit

	// PropAnalysis carries the read/write analysis per property reference
	// (keyed by PropertyReference.String())
	PropAnalysis map[string]objecttree.PropertyAnalysis
}

// BindingIndex returns the index into PropertyInit of the binding for prop,
// or -1 when the property has no binding
func (s *SubComponent) BindingIndex(prop PropertyReference) int {
	key := prop.String()
	for i := range s.PropertyInit {
		if s.PropertyInit[i].Property.String() == key {
			return i
		}
	}
	return -1
}

// GlobalComponent is one global singleton
type GlobalComponent struct {
	Name       string
	Properties []*Property
	Functions  []*Function

	// InitValues is indexed like Properties; nil entries have no binding
	InitValues []*BindingExpression

	// PropAnalysis is indexed like Properties
	PropAnalysis []objecttree.PropertyAnalysis

	// Exported globals stay alive even when nothing in the tree reads them
	Exported bool
}

// PublicComponent is the root of the lowered tree: the exported component,
// every sub-component it transitively uses, and all globals
type PublicComponent struct {
	Globals           []*GlobalComponent
	Root              *SubComponent
	UsedSubComponents []*SubComponent
}

// EvaluationContext tells an expression where it evaluates: inside which
// sub-component or global, and through which repeater chain
type EvaluationContext struct {
	Public              *PublicComponent
	CurrentSubComponent *SubComponent
	CurrentGlobal       *GlobalComponent
	Parent              *ParentCtx
}

// ParentCtx links the context of a repeated component to the context its
// repeater lives in
type ParentCtx struct {
	Ctx *EvaluationContext

	// RepeaterIndex is the index of the repeater in Ctx's sub-component
	RepeaterIndex int
}

// ContextForSubComponent returns the evaluation context for expressions
// inside sc, with no repeater parent
func (p *PublicComponent) ContextForSubComponent(sc *SubComponent) *EvaluationContext {
	return &EvaluationContext{Public: p, CurrentSubComponent: sc}
}

// ForEachExpression applies vis to every expression of the lowered tree and
// stores the returned expression back, enabling functional rewrites. Each
// sub-component's expressions are visited once, in its own context; repeated
// sub-trees are visited with a parent context chain.
func (p *PublicComponent) ForEachExpression(vis func(e Expression, ctx *EvaluationContext) Expression) {
	for i, g := range p.Globals {
		ctx := &EvaluationContext{Public: p, CurrentGlobal: g}
		for j, init := range g.InitValues {
			if init != nil {
				p.Globals[i].InitValues[j].Expression = vis(init.Expression, ctx)
			}
		}
		for _, fn := range g.Functions {
			fn.Code = vis(fn.Code, ctx)
		}
	}
	for _, sc := range p.UsedSubComponents {
		p.visitSubComponent(sc, p.ContextForSubComponent(sc), vis)
	}
	p.visitSubComponent(p.Root, p.ContextForSubComponent(p.Root), vis)
}

func (p *PublicComponent) visitSubComponent(sc *SubComponent, ctx *EvaluationContext, vis func(e Expression, ctx *EvaluationContext) Expression) {
	for i := range sc.PropertyInit {
		binding := sc.PropertyInit[i].Binding
		binding.Expression = vis(binding.Expression, ctx)
		if binding.Animation != nil {
			binding.Animation.Expression = vis(binding.Animation.Expression, ctx)
		}
	}
	for _, fn := range sc.Functions {
		fn.Code = vis(fn.Code, ctx)
	}
	for i, rep := range sc.Repeated {
		if rep.Model != nil {
			rep.Model.Expression = vis(rep.Model.Expression, ctx)
		}
		repCtx := &EvaluationContext{
			Public:              p,
			CurrentSubComponent: rep.Root,
			Parent:              &ParentCtx{Ctx: ctx, RepeaterIndex: i},
		}
		p.visitSubComponent(rep.Root, repCtx, vis)
	}
}
