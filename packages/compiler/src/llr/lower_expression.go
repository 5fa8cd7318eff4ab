package llr

import (
	"fmt"
	"sync/atomic"

	"slintc-go/packages/compiler/src/langtype"
	"slintc-go/packages/compiler/src/objecttree"
)

// LoweredElement records where one object-tree element landed in the
// flattened sub-component: either as a native item (ItemIndex >= 0) or as a
// nested sub-component instance (SubComponentIndex >= 0).
type LoweredElement struct {
	SubComponentPath  []int
	ItemIndex         int
	SubComponentIndex int
}

// LoweredSubComponentMapping translates object-tree references of one
// component into structural references of the flattened sub-component
type LoweredSubComponentMapping struct {
	ElementMapping  map[*objecttree.Element]LoweredElement
	PropertyMapping map[objecttree.NamedReference]PropertyReference
}

// NewLoweredSubComponentMapping creates an empty mapping
func NewLoweredSubComponentMapping() *LoweredSubComponentMapping {
	return &LoweredSubComponentMapping{
		ElementMapping:  map[*objecttree.Element]LoweredElement{},
		PropertyMapping: map[objecttree.NamedReference]PropertyReference{},
	}
}

// MapProperty translates one named reference of the component into a
// structural reference, falling back to the native item's property when the
// property was not declared
func (m *LoweredSubComponentMapping) MapProperty(nr objecttree.NamedReference) PropertyReference {
	if ref, ok := m.PropertyMapping[nr]; ok {
		return ref
	}
	if le, ok := m.ElementMapping[nr.Element]; ok && le.ItemIndex >= 0 {
		return NativeItemPropertyReference{
			SubComponentPath: le.SubComponentPath,
			ItemIndex:        le.ItemIndex,
			PropertyName:     nr.Name,
		}
	}
	return nil
}

// LoweringState accumulates the per-component mappings and the global
// property table while the item tree is lowered
type LoweringState struct {
	// GlobalProperties maps properties of global singletons to their
	// GlobalPropertyReference
	GlobalProperties map[objecttree.NamedReference]PropertyReference

	// SubComponentMappings holds the mapping for each lowered component
	SubComponentMappings map[*objecttree.Component]*LoweredSubComponentMapping
}

// NewLoweringState creates an empty state
func NewLoweringState() *LoweringState {
	return &LoweringState{
		GlobalProperties:     map[objecttree.NamedReference]PropertyReference{},
		SubComponentMappings: map[*objecttree.Component]*LoweredSubComponentMapping{},
	}
}

// ExpressionContext is the lowering context of one expression: the component
// it textually belongs to, that component's mapping, and the chain of
// repeater parents up to the root
type ExpressionContext struct {
	Component *objecttree.Component
	Mapping   *LoweredSubComponentMapping
	State     *LoweringState
	Parent    *ExpressionContext
}

// MapPropertyReference translates a named reference into a structural
// reference valid in this context, wrapping in ParentPropertyReference for
// every repeater level crossed. Returns nil when the reference does not
// resolve in this context chain.
func (ctx *ExpressionContext) MapPropertyReference(nr objecttree.NamedReference) PropertyReference {
	enclosing := nr.Element.EnclosingComponent
	if enclosing.Global {
		return ctx.State.GlobalProperties[nr]
	}
	level := 0
	for c := ctx; c != nil; c = c.Parent {
		if c.Component == enclosing {
			ref := c.Mapping.MapProperty(nr)
			if ref == nil {
				return nil
			}
			if level > 0 {
				return ParentPropertyReference{Level: level, Parent: ref}
			}
			return ref
		}
		level++
	}
	return nil
}

// Repeater pseudo properties occupy fixed slots at the front of a repeated
// component's property list.
const (
	repeaterIndexPropertySlot = 0
	repeaterModelPropertySlot = 1
)

// repeaterSpecialProperty resolves `index` or `model-data` of the repeated
// element. Referenced from inside the repeated component the slot is local;
// referenced from a deeper repeater it is wrapped level by level.
func repeaterSpecialProperty(element *objecttree.Element, ctx *ExpressionContext, slot int) PropertyReference {
	repeatedComponent := element.SubComponent()
	if repeatedComponent == nil {
		panic("AssertionError: repeater pseudo property on a non-repeated element")
	}
	level := 0
	for c := ctx; c != nil; c = c.Parent {
		if c.Component == repeatedComponent {
			ref := PropertyReference(LocalPropertyReference{PropertyIndex: slot})
			if level > 0 {
				ref = ParentPropertyReference{Level: level, Parent: ref}
			}
			return ref
		}
		level++
	}
	panic(fmt.Sprintf("AssertionError: repeater pseudo property of '%s' referenced outside its repeated component", element.ID))
}

// localVariableCounter feeds unique local names for decomposed assignments
var localVariableCounter int64

func uniqueLocalName(prefix string) string {
	n := atomic.AddInt64(&localVariableCounter, 1)
	return fmt.Sprintf("%s%d", prefix, n)
}

// LowerExpression translates one analyzed high-level expression into the low
// level tree. Lowering is deterministic apart from the names of synthetic
// locals. Expression kinds that must have been eliminated by earlier passes
// make it panic loudly rather than produce broken output.
func LowerExpression(expr objecttree.Expression, ctx *ExpressionContext) Expression {
	switch e := expr.(type) {
	case *objecttree.StringLiteralExpr:
		return &StringLiteral{Value: e.Value}
	case *objecttree.NumberLiteralExpr:
		return &NumberLiteral{Value: e.Value}
	case *objecttree.BoolLiteralExpr:
		return &BoolLiteral{Value: e.Value}
	case *objecttree.PropertyReferenceExpr:
		ref := ctx.MapPropertyReference(e.Reference)
		if ref == nil {
			panic(fmt.Sprintf("AssertionError: cannot map property reference %s", e.Reference))
		}
		return &PropertyReferenceExpr{Reference: ref}
	case *objecttree.RepeaterIndexReferenceExpr:
		return &PropertyReferenceExpr{
			Reference: repeaterSpecialProperty(e.Element, ctx, repeaterIndexPropertySlot),
		}
	case *objecttree.RepeaterModelReferenceExpr:
		return &PropertyReferenceExpr{
			Reference: repeaterSpecialProperty(e.Element, ctx, repeaterModelPropertySlot),
		}
	case *objecttree.FunctionParameterReferenceExpr:
		return &FunctionParameterReference{Index: e.Index}
	case *objecttree.StoreLocalVariableExpr:
		return &StoreLocalVariable{Name: e.Name, Value: LowerExpression(e.Value, ctx)}
	case *objecttree.ReadLocalVariableExpr:
		return &ReadLocalVariable{Name: e.Name, Ty: e.Ty}
	case *objecttree.StructFieldAccessExpr:
		return &StructFieldAccess{Base: LowerExpression(e.Base, ctx), Name: e.Name}
	case *objecttree.ArrayIndexExpr:
		return &ArrayIndex{Array: LowerExpression(e.Array, ctx), Index: LowerExpression(e.Index, ctx)}
	case *objecttree.CastExpr:
		return &Cast{From: LowerExpression(e.From, ctx), To: e.To}
	case *objecttree.CodeBlockExpr:
		statements := make([]Expression, len(e.Statements))
		for i, s := range e.Statements {
			statements[i] = LowerExpression(s, ctx)
		}
		return &CodeBlock{Statements: statements}
	case *objecttree.FunctionCallExpr:
		return lowerFunctionCall(e, ctx)
	case *objecttree.SelfAssignmentExpr:
		return lowerAssignment(e.Lhs, LowerExpression(e.Rhs, ctx), e.Op, ctx)
	case *objecttree.BinaryExpr:
		return &BinaryExpression{Lhs: LowerExpression(e.Lhs, ctx), Rhs: LowerExpression(e.Rhs, ctx), Op: e.Op}
	case *objecttree.UnaryOpExpr:
		return &UnaryOp{Sub: LowerExpression(e.Sub, ctx), Op: e.Op}
	case *objecttree.ImageReferenceExpr:
		return &ImageReference{Resource: e.Resource, Embedded: e.Embedded}
	case *objecttree.ConditionExpr:
		return &Condition{
			Condition: LowerExpression(e.Condition, ctx),
			TrueExpr:  LowerExpression(e.TrueExpr, ctx),
			FalseExpr: LowerExpression(e.FalseExpr, ctx),
		}
	case *objecttree.ArrayExpr:
		values := make([]Expression, len(e.Values))
		for i, v := range e.Values {
			values[i] = LowerExpression(v, ctx)
		}
		return &Array{ElementTy: e.ElementTy, Values: values}
	case *objecttree.StructExpr:
		values := make(map[string]Expression, len(e.Values))
		for name, v := range e.Values {
			values[name] = LowerExpression(v, ctx)
		}
		return &Struct{Ty: e.Ty, Values: values}
	case *objecttree.LinearGradientExpr:
		stops := make([]GradientStop, len(e.Stops))
		for i, s := range e.Stops {
			stops[i] = GradientStop{Color: LowerExpression(s.Color, ctx), Position: LowerExpression(s.Position, ctx)}
		}
		return &LinearGradient{Angle: LowerExpression(e.Angle, ctx), Stops: stops}
	case *objecttree.RadialGradientExpr:
		stops := make([]GradientStop, len(e.Stops))
		for i, s := range e.Stops {
			stops[i] = GradientStop{Color: LowerExpression(s.Color, ctx), Position: LowerExpression(s.Position, ctx)}
		}
		return &RadialGradient{Stops: stops}
	case *objecttree.EnumerationValueExpr:
		return &EnumerationValue{Value: e.Value, Enum: e.Enum}
	case *objecttree.EasingCurveExpr:
		return &EasingCurve{Curve: e.Curve}
	case *objecttree.ReturnStatementExpr:
		if e.Value == nil {
			return &ReturnStatement{}
		}
		return &ReturnStatement{Value: LowerExpression(e.Value, ctx)}
	case *objecttree.LayoutCacheAccessExpr:
		ref := ctx.MapPropertyReference(e.LayoutCacheProp)
		if ref == nil {
			panic(fmt.Sprintf("AssertionError: cannot map layout cache property %s", e.LayoutCacheProp))
		}
		var repeaterIndex Expression
		if e.RepeaterIndex != nil {
			repeaterIndex = LowerExpression(e.RepeaterIndex, ctx)
		}
		return &LayoutCacheAccess{LayoutCacheProp: ref, Index: e.Index, RepeaterIndex: repeaterIndex}
	case *objecttree.MinMaxExpr:
		return &MinMax{Ty: e.Ty, Op: MinMaxOp(e.Op), Lhs: LowerExpression(e.Lhs, ctx), Rhs: LowerExpression(e.Rhs, ctx)}
	case *objecttree.PathDataExpr:
		return lowerPathData(e, ctx)
	case *objecttree.SolveLayoutExpr:
		panic("AssertionError: SolveLayout must be lowered by the layout pass before expression lowering")
	case *objecttree.ComputeLayoutInfoExpr:
		panic("AssertionError: ComputeLayoutInfo must be lowered by the layout pass before expression lowering")
	case *objecttree.InvalidExpr:
		panic("AssertionError: invalid expression survived until lowering")
	default:
		panic(fmt.Sprintf("AssertionError: unsupported expression kind %T in lowering", expr))
	}
}

func lowerFunctionCall(e *objecttree.FunctionCallExpr, ctx *ExpressionContext) Expression {
	arguments := make([]Expression, len(e.Arguments))
	for i, a := range e.Arguments {
		if item, ok := a.(*objecttree.ElementReferenceExpr); ok {
			// Native item arguments are passed to the runtime by index
			arguments[i] = lowerItemIndex(item.Element, ctx)
			continue
		}
		arguments[i] = LowerExpression(a, ctx)
	}
	switch fn := e.Function.(type) {
	case *objecttree.BuiltinFunctionReferenceExpr:
		return &BuiltinFunctionCall{Function: fn.Function, Arguments: arguments}
	case *objecttree.CallbackReferenceExpr:
		ref := ctx.MapPropertyReference(fn.Reference)
		if ref == nil {
			panic(fmt.Sprintf("AssertionError: cannot map callback reference %s", fn.Reference))
		}
		return &CallbackCall{Callback: ref, Arguments: arguments}
	case *objecttree.FunctionReferenceExpr:
		ref := ctx.MapPropertyReference(fn.Reference)
		if ref == nil {
			panic(fmt.Sprintf("AssertionError: cannot map function reference %s", fn.Reference))
		}
		return &FunctionCall{Function: ref, Arguments: arguments}
	default:
		panic(fmt.Sprintf("AssertionError: call target %T is not callable", e.Function))
	}
}

func lowerItemIndex(element *objecttree.Element, ctx *ExpressionContext) Expression {
	for c := ctx; c != nil; c = c.Parent {
		if le, ok := c.Mapping.ElementMapping[element]; ok && le.ItemIndex >= 0 {
			return &NumberLiteral{Value: float64(le.ItemIndex)}
		}
	}
	panic(fmt.Sprintf("AssertionError: element '%s' was not lowered to a native item", element.ID))
}

// lowerAssignment decomposes a write through the supported l-value shapes.
// Op '=' is a plain store; any other op reads the target first.
func lowerAssignment(lhs objecttree.Expression, rhs Expression, op byte, ctx *ExpressionContext) Expression {
	switch target := lhs.(type) {
	case *objecttree.PropertyReferenceExpr:
		ref := ctx.MapPropertyReference(target.Reference)
		if ref == nil {
			panic(fmt.Sprintf("AssertionError: cannot map assignment target %s", target.Reference))
		}
		value := rhs
		if op != '=' {
			value = &BinaryExpression{Lhs: &PropertyReferenceExpr{Reference: ref}, Rhs: rhs, Op: op}
		}
		return &PropertyAssignment{Property: ref, Value: value}

	case *objecttree.RepeaterModelReferenceExpr:
		level := 0
		repeatedComponent := target.Element.SubComponent()
		for c := ctx; c != nil; c = c.Parent {
			if c.Component == repeatedComponent {
				value := rhs
				if op != '=' {
					value = &BinaryExpression{Lhs: LowerExpression(target, ctx), Rhs: rhs, Op: op}
				}
				return &ModelDataAssignment{Level: level, Value: value}
			}
			level++
		}
		panic(fmt.Sprintf("AssertionError: model data of '%s' assigned outside its repeated component", target.Element.ID))

	case *objecttree.ArrayIndexExpr:
		array := LowerExpression(target.Array, ctx)
		index := LowerExpression(target.Index, ctx)
		value := rhs
		if op != '=' {
			value = &BinaryExpression{
				Lhs: &ArrayIndex{Array: CloneExpression(array), Index: CloneExpression(index)},
				Rhs: rhs,
				Op:  op,
			}
		}
		return &ArrayIndexAssignment{Array: array, Index: index, Value: value}

	case *objecttree.StructFieldAccessExpr:
		// Rewrite `base.field op= rhs` as a read-modify-write of the whole
		// struct through a temporary
		local := uniqueLocalName("struct_prop")
		ty := structType(target.Base)
		read := &ReadLocalVariable{Name: local, Ty: ty}
		value := rhs
		if op != '=' {
			value = &BinaryExpression{
				Lhs: &StructFieldAccess{Base: read, Name: target.Name},
				Rhs: rhs,
				Op:  op,
			}
		}
		updated := make(map[string]Expression, len(ty.Fields))
		for name := range ty.Fields {
			if name == target.Name {
				updated[name] = value
			} else {
				updated[name] = &StructFieldAccess{Base: read, Name: name}
			}
		}
		return &CodeBlock{Statements: []Expression{
			&StoreLocalVariable{Name: local, Value: LowerExpression(target.Base, ctx)},
			lowerAssignment(target.Base, &Struct{Ty: ty, Values: updated}, '=', ctx),
		}}

	default:
		panic(fmt.Sprintf("AssertionError: %T is not an assignable expression", lhs))
	}
}

func structType(base objecttree.Expression) langtype.Type {
	switch b := base.(type) {
	case *objecttree.PropertyReferenceExpr:
		elem := b.Reference.Element
		for {
			if decl, ok := elem.PropertyDeclarations[b.Reference.Name]; ok {
				return decl.Ty
			}
			if elem.Base.Kind != objecttree.BaseComponent {
				break
			}
			elem = elem.Base.Component.RootElement
		}
	case *objecttree.StructFieldAccessExpr:
		outer := structType(b.Base)
		if f, ok := outer.Fields[b.Name]; ok {
			return f
		}
	case *objecttree.CastExpr:
		return b.To
	}
	panic("AssertionError: cannot determine the struct type of an assignment base")
}

// lowerPathData lowers a path literal. Event-based paths carry binary event
// streams the backends cannot re-encode, so they must have been converted by
// the path embedding pass already.
func lowerPathData(e *objecttree.PathDataExpr, ctx *ExpressionContext) Expression {
	if len(e.Events) > 0 || len(e.Points) > 0 {
		panic("AssertionError: event-based path data must be embedded before lowering")
	}
	elements := make([]Expression, len(e.Elements))
	for i, el := range e.Elements {
		elements[i] = LowerExpression(el, ctx)
	}
	return &Array{
		ElementTy: langtype.Type{Kind: langtype.TypePathData},
		Values:    elements,
	}
}

// animationFieldDefaults are the runtime defaults of the PropertyAnimation
// struct fields that a binding's `animate` block may override
var animationFieldDefaults = map[string]func() Expression{
	"duration":        func() Expression { return &NumberLiteral{Value: 0} },
	"delay":           func() Expression { return &NumberLiteral{Value: 0} },
	"iteration-count": func() Expression { return &NumberLiteral{Value: 1} },
	"easing":          func() Expression { return &EasingCurve{Curve: "linear"} },
}

var animationStructType = langtype.Struct("PropertyAnimation", map[string]langtype.Type{
	"duration":        {Kind: langtype.TypeDuration},
	"delay":           {Kind: langtype.TypeDuration},
	"iteration-count": {Kind: langtype.TypeFloat32},
	"easing":          {Kind: langtype.TypeEasing},
})

// LowerAnimation translates a property animation. A static animation becomes
// a struct literal mixing the element's bindings with runtime defaults; a
// transition becomes a state read followed by a condition chain selecting the
// per-state animation.
func LowerAnimation(anim *objecttree.PropertyAnimation, ctx *ExpressionContext) *Animation {
	switch anim.Kind {
	case objecttree.AnimationStatic:
		return &Animation{
			Kind:       AnimationStatic,
			Expression: animationStruct(anim.Animation, ctx),
		}
	case objecttree.AnimationTransition:
		local := uniqueLocalName("state")
		read := &ReadLocalVariable{Name: local, Ty: langtype.Int32()}
		// Walked back to front so the first transition wins
		var chain Expression = animationStruct(nil, ctx)
		for i := len(anim.Transitions) - 1; i >= 0; i-- {
			tr := anim.Transitions[i]
			chain = &Condition{
				Condition: &BinaryExpression{
					Lhs: read,
					Rhs: &NumberLiteral{Value: float64(tr.StateValue)},
					Op:  '=',
				},
				TrueExpr:  animationStruct(tr.Animation, ctx),
				FalseExpr: chain,
			}
		}
		return &Animation{
			Kind: AnimationTransition,
			Expression: &CodeBlock{Statements: []Expression{
				&StoreLocalVariable{Name: local, Value: LowerExpression(anim.StateRef, ctx)},
				chain,
			}},
		}
	default:
		panic(fmt.Sprintf("AssertionError: unknown animation kind %d", anim.Kind))
	}
}

// animationStruct builds the PropertyAnimation struct literal for one animate
// block, or all defaults when element is nil
func animationStruct(element *objecttree.Element, ctx *ExpressionContext) Expression {
	values := make(map[string]Expression, len(animationFieldDefaults))
	for field, def := range animationFieldDefaults {
		values[field] = def()
	}
	if element != nil {
		for _, name := range element.BindingNames() {
			if _, known := animationFieldDefaults[name]; !known {
				continue
			}
			values[name] = LowerExpression(element.Bindings[name].Expression, ctx)
		}
	}
	return &Struct{Ty: animationStructType, Values: values}
}
