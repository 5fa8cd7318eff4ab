// Package objecttree is the property graph the middle-end passes analyze and
// mutate: a tree of elements owning named bindings, plus the non-owning
// back-references (element to enclosing component) used to resolve ancestor
// lookups. Elements and bindings are created once by the resolver and never
// destroyed; the passes only write analysis annotations and rewrite
// expression payloads.
package objecttree

import (
	"fmt"
	"sort"

	"slintc-go/packages/compiler/src/langtype"
	"slintc-go/packages/compiler/src/util"
)

// Document is one compilation unit after parsing and type checking
type Document struct {
	RootComponent *Component
}

// Component is a named tree of elements. A repeated element's content and a
// global singleton are each their own Component.
type Component struct {
	ID          string
	RootElement *Element

	// ParentElement is the repeated (or popup) element this component is
	// instantiated from. Non-owning; nil for the root component and globals.
	ParentElement *Element

	// Global marks a global singleton component
	Global bool

	// UsedSubComponents and UsedGlobals list the components this one
	// depends on. The analysis passes recurse through them so that every
	// reachable binding is visited exactly once.
	UsedSubComponents []*Component
	UsedGlobals       []*Component
}

// BaseTypeKind discriminates an element's base type
type BaseTypeKind int

const (
	// BaseNone is an element with no base (e.g. a global's root)
	BaseNone BaseTypeKind = iota
	// BaseBuiltin is a builtin primitive item (Rectangle, Text, ...)
	BaseBuiltin
	// BaseComponent is a user-defined component
	BaseComponent
)

// BaseType is the closed variant describing what an element derives from.
// It is resolved once at graph construction time.
type BaseType struct {
	Kind      BaseTypeKind
	Builtin   string     // set for BaseBuiltin
	Component *Component // set for BaseComponent
}

// nativeOutputProperties lists builtin properties written by the runtime
// itself. A reference to one of these can never be constant.
var nativeOutputProperties = map[string]map[string]bool{
	"TouchArea": {"pressed": true, "has-hover": true},
	"TextInput": {"text": true, "has-focus": true},
	"Flickable": {"viewport-x": true, "viewport-y": true},
}

// IsNativeOutputProperty reports whether the runtime itself writes the given
// property of a builtin item
func IsNativeOutputProperty(builtin, name string) bool {
	return nativeOutputProperties[builtin][name]
}

// Element is a node in the UI tree
type Element struct {
	ID   string
	Base BaseType

	// Bindings maps property and callback names to their binding
	Bindings map[string]*Binding

	// PropertyDeclarations holds the properties declared on this element
	// itself (as opposed to inherited ones)
	PropertyDeclarations map[string]*PropertyDeclaration

	// PropertyAnalysis is the per-property read/write annotation table
	// filled in by the binding analysis pass
	PropertyAnalysis map[string]*PropertyAnalysis

	// Children are owned exclusively; the tree has no ownership cycles
	Children []*Element

	// EnclosingComponent is the non-owning back-reference to the component
	// this element belongs to
	EnclosingComponent *Component

	// Repeated marks a `for`/`if` element whose base component is
	// instantiated once per model entry
	Repeated bool

	// LayoutInfoPropH/V name the property holding the element's layout
	// constraint for the given orientation, when a layout pass created one
	LayoutInfoPropH *NamedReference
	LayoutInfoPropV *NamedReference

	// Node is the source location of the element, for diagnostics
	Node *util.ParseSourceSpan
}

// NewElement creates an element with initialized maps, registered as
// belonging to the given component
func NewElement(id string, base BaseType, enclosing *Component) *Element {
	return &Element{
		ID:                   id,
		Base:                 base,
		Bindings:             map[string]*Binding{},
		PropertyDeclarations: map[string]*PropertyDeclaration{},
		PropertyAnalysis:     map[string]*PropertyAnalysis{},
		EnclosingComponent:   enclosing,
	}
}

// SubComponent returns the base component when the element derives from a
// user-defined component, nil otherwise
func (e *Element) SubComponent() *Component {
	if e.Base.Kind == BaseComponent {
		return e.Base.Component
	}
	return nil
}

// EnsurePropertyAnalysis returns the analysis entry for name, creating it on
// first access
func (e *Element) EnsurePropertyAnalysis(name string) *PropertyAnalysis {
	a, ok := e.PropertyAnalysis[name]
	if !ok {
		a = &PropertyAnalysis{}
		e.PropertyAnalysis[name] = a
	}
	return a
}

// BindingNames returns the binding names in deterministic (sorted) order.
// Map iteration order would leak into diagnostic ordering otherwise.
func (e *Element) BindingNames() []string {
	names := make([]string, 0, len(e.Bindings))
	for name := range e.Bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LayoutInfoProp returns the layout-constraint property for the orientation,
// or nil
func (e *Element) LayoutInfoProp(o Orientation) *NamedReference {
	if o == Horizontal {
		return e.LayoutInfoPropH
	}
	return e.LayoutInfoPropV
}

// PropertyVisibility restricts who may read or write a declared property
type PropertyVisibility int

const (
	VisibilityPrivate PropertyVisibility = iota
	VisibilityInput
	VisibilityOutput
	VisibilityInOut
)

// PropertyDeclaration is an element's own declared property
type PropertyDeclaration struct {
	Name string
	Ty   langtype.Type

	// UseCount mirrors the binding's use count; it carries the count when
	// the property has no local binding and is driven purely by external
	// assignment or its default value.
	UseCount int

	// IsAlias is set when the declaration is `property <=> other`
	IsAlias *NamedReference

	// ExposeInPublicAPI marks a property settable by the embedding
	// application
	ExposeInPublicAPI bool
	Visibility        PropertyVisibility
}

// PropertyAnalysis is the per-element-property annotation table written by
// the binding analysis pass (and, for is-set, by the resolver for assignment
// targets).
type PropertyAnalysis struct {
	// IsSet is true when an expression somewhere assigns this property
	IsSet bool
	// IsSetExternally is true when the property might be set from a
	// derived or embedding context
	IsSetExternally bool
	// IsRead is true when an expression somewhere reads this property
	IsRead bool
	// IsReadExternally is true when the property is read by a descendant
	// of a component it is inherited into
	IsReadExternally bool
}

// BindingAnalysis is the annotation record stamped onto a binding by the
// dependency analyzer. It is written at most once per compilation; a nil
// record means the binding has not been analyzed yet.
type BindingAnalysis struct {
	IsBindingLoop   bool
	IsConst         bool
	IsSet           bool
	IsSetExternally bool
}

// Binding is the expression computing one property's value, together with
// its two-way aliases and optional animation
type Binding struct {
	Expression     Expression
	TwoWayBindings []NamedReference
	Animation      *PropertyAnimation

	// Analysis is nil until the dependency analyzer has run
	Analysis *BindingAnalysis

	// UseCount is the number of surviving textual references to this
	// property, maintained by the analyzer and adjusted by the inliner
	UseCount int

	Span *util.ParseSourceSpan
}

// NewBinding creates a binding over the given expression
func NewBinding(expr Expression) *Binding {
	if expr == nil {
		expr = &InvalidExpr{}
	}
	return &Binding{Expression: expr}
}

// HasBinding reports whether the binding actually computes something: either
// an expression or at least one two-way alias
func (b *Binding) HasBinding() bool {
	if _, invalid := b.Expression.(*InvalidExpr); !invalid {
		return true
	}
	return len(b.TwoWayBindings) > 0
}

// IsConstant reports whether the binding's own expression and every alias
// target are structurally constant
func (b *Binding) IsConstant() bool {
	if !b.Expression.IsConstant() {
		return false
	}
	for _, nr := range b.TwoWayBindings {
		if !nr.IsConstant() {
			return false
		}
	}
	return true
}

// BumpUseCount adjusts the use count, panicking if it would go negative
func (b *Binding) BumpUseCount(delta int) {
	b.UseCount += delta
	if b.UseCount < 0 {
		panic(fmt.Sprintf("AssertionError: binding use count went negative (%d)", b.UseCount))
	}
}

// AnimationKind discriminates a property animation
type AnimationKind int

const (
	// AnimationStatic is a plain `animate prop { ... }` block
	AnimationStatic AnimationKind = iota
	// AnimationTransition selects an animation per state transition
	AnimationTransition
)

// PropertyAnimation animates changes of the property it is attached to.
// The animation parameters are themselves bindings on a synthetic element,
// so they take part in dependency analysis like any other binding.
type PropertyAnimation struct {
	Kind AnimationKind

	// Animation holds the parameter bindings for AnimationStatic
	Animation *Element

	// StateRef and Transitions are set for AnimationTransition
	StateRef    Expression
	Transitions []TransitionAnimation
}

// TransitionAnimation is one per-state animation of a transition
type TransitionAnimation struct {
	// StateValue is the state this transition animates into (or out of)
	StateValue int
	IsOut      bool
	Animation  *Element
}

// Orientation selects the horizontal or vertical axis of a layout
type Orientation int

const (
	Horizontal Orientation = iota
	Vertical
)

// Layout describes a solver-driven layout referenced from SolveLayout and
// ComputeLayoutInfo expressions. Only the dependency surface matters to this
// package; the numeric solving lives in the runtime.
type Layout struct {
	Items    []LayoutItem
	Geometry LayoutGeometry
}

// LayoutItem is one element managed by a layout
type LayoutItem struct {
	Element *Element
}

// LayoutGeometry names the properties feeding a layout's geometry
type LayoutGeometry struct {
	WidthRef  *NamedReference
	HeightRef *NamedReference
	Spacing   *NamedReference
	Padding   []NamedReference
}

// SizeReference returns the property holding the layout's size along the
// orientation, or nil
func (g *LayoutGeometry) SizeReference(o Orientation) *NamedReference {
	if o == Horizontal {
		return g.WidthRef
	}
	return g.HeightRef
}

// RecurseElemIncludingSubComponents visits every element of the component,
// descending into the content of repeated elements
func RecurseElemIncludingSubComponents(c *Component, vis func(*Element)) {
	var walk func(e *Element)
	walk = func(e *Element) {
		vis(e)
		if e.Repeated {
			if sub := e.SubComponent(); sub != nil {
				walk(sub.RootElement)
			}
		}
		for _, child := range e.Children {
			walk(child)
		}
	}
	walk(c.RootElement)
}
