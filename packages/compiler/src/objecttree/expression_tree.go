package objecttree

import (
	"slintc-go/packages/compiler/src/langtype"
)

// Expression is the high-level, type-annotated expression tree produced by
// the resolver. It is a closed variant: every node type lives in this file
// and consumers discriminate with type switches.
//
// Visit calls the visitor on every direct sub-expression. TransformChildren
// rebuilds the node with every direct sub-expression replaced by the
// transformer's result, returning the receiver when nothing changed is not
// required; callers treat the result as the new node.
type Expression interface {
	Visit(vis func(Expression))
	TransformChildren(tr func(Expression) Expression) Expression
	// IsConstant reports whether the expression is structurally constant
	// for the lifetime of the program.
	IsConstant() bool
}

// InvalidExpr is the absence of an expression, used for bindings that consist
// only of two-way aliases. It counts as constant: the binding's constness is
// then decided by its aliases alone.
type InvalidExpr struct{}

func (e *InvalidExpr) Visit(vis func(Expression))                              {}
func (e *InvalidExpr) TransformChildren(tr func(Expression) Expression) Expression { return e }
func (e *InvalidExpr) IsConstant() bool                                        { return true }

// StringLiteralExpr is a string constant
type StringLiteralExpr struct {
	Value string
}

func (e *StringLiteralExpr) Visit(vis func(Expression)) {}
func (e *StringLiteralExpr) TransformChildren(tr func(Expression) Expression) Expression {
	return e
}
func (e *StringLiteralExpr) IsConstant() bool { return true }

// NumberLiteralExpr is a numeric constant, already normalized to its base unit
type NumberLiteralExpr struct {
	Value float64
}

func (e *NumberLiteralExpr) Visit(vis func(Expression)) {}
func (e *NumberLiteralExpr) TransformChildren(tr func(Expression) Expression) Expression {
	return e
}
func (e *NumberLiteralExpr) IsConstant() bool { return true }

// BoolLiteralExpr is a boolean constant
type BoolLiteralExpr struct {
	Value bool
}

func (e *BoolLiteralExpr) Visit(vis func(Expression)) {}
func (e *BoolLiteralExpr) TransformChildren(tr func(Expression) Expression) Expression {
	return e
}
func (e *BoolLiteralExpr) IsConstant() bool { return true }

// PropertyReferenceExpr reads the value of a property
type PropertyReferenceExpr struct {
	Reference NamedReference
}

func (e *PropertyReferenceExpr) Visit(vis func(Expression)) {}
func (e *PropertyReferenceExpr) TransformChildren(tr func(Expression) Expression) Expression {
	return e
}
func (e *PropertyReferenceExpr) IsConstant() bool { return e.Reference.IsConstant() }

// CallbackReferenceExpr names a callback; only valid as a call target
type CallbackReferenceExpr struct {
	Reference NamedReference
}

func (e *CallbackReferenceExpr) Visit(vis func(Expression)) {}
func (e *CallbackReferenceExpr) TransformChildren(tr func(Expression) Expression) Expression {
	return e
}
func (e *CallbackReferenceExpr) IsConstant() bool { return false }

// FunctionReferenceExpr names a user-declared function; only valid as a call target
type FunctionReferenceExpr struct {
	Reference NamedReference
}

func (e *FunctionReferenceExpr) Visit(vis func(Expression)) {}
func (e *FunctionReferenceExpr) TransformChildren(tr func(Expression) Expression) Expression {
	return e
}
func (e *FunctionReferenceExpr) IsConstant() bool { return false }

// BuiltinFunctionReferenceExpr names a builtin function; only valid as a call target
type BuiltinFunctionReferenceExpr struct {
	Function BuiltinFunction
}

func (e *BuiltinFunctionReferenceExpr) Visit(vis func(Expression)) {}
func (e *BuiltinFunctionReferenceExpr) TransformChildren(tr func(Expression) Expression) Expression {
	return e
}
func (e *BuiltinFunctionReferenceExpr) IsConstant() bool { return e.Function.IsPure() }

// ElementReferenceExpr refers to an element itself, e.g. as a builtin call argument
type ElementReferenceExpr struct {
	Element *Element
}

func (e *ElementReferenceExpr) Visit(vis func(Expression)) {}
func (e *ElementReferenceExpr) TransformChildren(tr func(Expression) Expression) Expression {
	return e
}
func (e *ElementReferenceExpr) IsConstant() bool { return false }

// RepeaterIndexReferenceExpr reads the current index of a repeated element
type RepeaterIndexReferenceExpr struct {
	Element *Element
}

func (e *RepeaterIndexReferenceExpr) Visit(vis func(Expression)) {}
func (e *RepeaterIndexReferenceExpr) TransformChildren(tr func(Expression) Expression) Expression {
	return e
}
func (e *RepeaterIndexReferenceExpr) IsConstant() bool { return false }

// RepeaterModelReferenceExpr reads the current model data of a repeated element
type RepeaterModelReferenceExpr struct {
	Element *Element
}

func (e *RepeaterModelReferenceExpr) Visit(vis func(Expression)) {}
func (e *RepeaterModelReferenceExpr) TransformChildren(tr func(Expression) Expression) Expression {
	return e
}
func (e *RepeaterModelReferenceExpr) IsConstant() bool { return false }

// FunctionParameterReferenceExpr reads a parameter of the enclosing callback
// or function. It is only meaningful inside that body, which is why the
// inliner must never substitute across it.
type FunctionParameterReferenceExpr struct {
	Index int
	Ty    langtype.Type
}

func (e *FunctionParameterReferenceExpr) Visit(vis func(Expression)) {}
func (e *FunctionParameterReferenceExpr) TransformChildren(tr func(Expression) Expression) Expression {
	return e
}
func (e *FunctionParameterReferenceExpr) IsConstant() bool { return false }

// StoreLocalVariableExpr binds a value to a name scoped to the enclosing code block
type StoreLocalVariableExpr struct {
	Name  string
	Value Expression
}

func (e *StoreLocalVariableExpr) Visit(vis func(Expression)) { vis(e.Value) }
func (e *StoreLocalVariableExpr) TransformChildren(tr func(Expression) Expression) Expression {
	return &StoreLocalVariableExpr{Name: e.Name, Value: tr(e.Value)}
}
func (e *StoreLocalVariableExpr) IsConstant() bool { return false }

// ReadLocalVariableExpr reads a local stored earlier in the same code block
type ReadLocalVariableExpr struct {
	Name string
	Ty   langtype.Type
}

func (e *ReadLocalVariableExpr) Visit(vis func(Expression)) {}
func (e *ReadLocalVariableExpr) TransformChildren(tr func(Expression) Expression) Expression {
	return e
}
func (e *ReadLocalVariableExpr) IsConstant() bool { return false }

// StructFieldAccessExpr reads one field out of a struct value
type StructFieldAccessExpr struct {
	Base Expression
	Name string
}

func (e *StructFieldAccessExpr) Visit(vis func(Expression)) { vis(e.Base) }
func (e *StructFieldAccessExpr) TransformChildren(tr func(Expression) Expression) Expression {
	return &StructFieldAccessExpr{Base: tr(e.Base), Name: e.Name}
}
func (e *StructFieldAccessExpr) IsConstant() bool { return e.Base.IsConstant() }

// ArrayIndexExpr reads one entry out of a model
type ArrayIndexExpr struct {
	Array Expression
	Index Expression
}

func (e *ArrayIndexExpr) Visit(vis func(Expression)) {
	vis(e.Array)
	vis(e.Index)
}
func (e *ArrayIndexExpr) TransformChildren(tr func(Expression) Expression) Expression {
	return &ArrayIndexExpr{Array: tr(e.Array), Index: tr(e.Index)}
}

// Models can change at runtime, so an indexed read is never constant.
func (e *ArrayIndexExpr) IsConstant() bool { return false }

// CastExpr converts a value to another type
type CastExpr struct {
	From Expression
	To   langtype.Type
}

func (e *CastExpr) Visit(vis func(Expression)) { vis(e.From) }
func (e *CastExpr) TransformChildren(tr func(Expression) Expression) Expression {
	return &CastExpr{From: tr(e.From), To: e.To}
}
func (e *CastExpr) IsConstant() bool { return e.From.IsConstant() }

// CodeBlockExpr is a sequence of expressions evaluating to the last one
type CodeBlockExpr struct {
	Statements []Expression
}

func (e *CodeBlockExpr) Visit(vis func(Expression)) {
	for _, s := range e.Statements {
		vis(s)
	}
}
func (e *CodeBlockExpr) TransformChildren(tr func(Expression) Expression) Expression {
	statements := make([]Expression, len(e.Statements))
	for i, s := range e.Statements {
		statements[i] = tr(s)
	}
	return &CodeBlockExpr{Statements: statements}
}
func (e *CodeBlockExpr) IsConstant() bool {
	for _, s := range e.Statements {
		if !s.IsConstant() {
			return false
		}
	}
	return true
}

// FunctionCallExpr calls a callback, function, or builtin
type FunctionCallExpr struct {
	Function  Expression
	Arguments []Expression
}

func (e *FunctionCallExpr) Visit(vis func(Expression)) {
	vis(e.Function)
	for _, a := range e.Arguments {
		vis(a)
	}
}
func (e *FunctionCallExpr) TransformChildren(tr func(Expression) Expression) Expression {
	arguments := make([]Expression, len(e.Arguments))
	for i, a := range e.Arguments {
		arguments[i] = tr(a)
	}
	return &FunctionCallExpr{Function: tr(e.Function), Arguments: arguments}
}
func (e *FunctionCallExpr) IsConstant() bool {
	builtin, ok := e.Function.(*BuiltinFunctionReferenceExpr)
	if !ok || !builtin.Function.IsPure() {
		return false
	}
	for _, a := range e.Arguments {
		if !a.IsConstant() {
			return false
		}
	}
	return true
}

// SelfAssignmentExpr writes to a property, model entry, or struct field.
// Op is '=', '+', '-', '*' or '/'.
type SelfAssignmentExpr struct {
	Lhs Expression
	Rhs Expression
	Op  byte
}

func (e *SelfAssignmentExpr) Visit(vis func(Expression)) {
	vis(e.Lhs)
	vis(e.Rhs)
}
func (e *SelfAssignmentExpr) TransformChildren(tr func(Expression) Expression) Expression {
	return &SelfAssignmentExpr{Lhs: tr(e.Lhs), Rhs: tr(e.Rhs), Op: e.Op}
}
func (e *SelfAssignmentExpr) IsConstant() bool { return false }

// BinaryExpr is an arithmetic, comparison or logical operation.
// Op is one of + - * / = ! < > ≤ ≥ & | (with '=' meaning equality here).
type BinaryExpr struct {
	Lhs Expression
	Rhs Expression
	Op  byte
}

func (e *BinaryExpr) Visit(vis func(Expression)) {
	vis(e.Lhs)
	vis(e.Rhs)
}
func (e *BinaryExpr) TransformChildren(tr func(Expression) Expression) Expression {
	return &BinaryExpr{Lhs: tr(e.Lhs), Rhs: tr(e.Rhs), Op: e.Op}
}
func (e *BinaryExpr) IsConstant() bool { return e.Lhs.IsConstant() && e.Rhs.IsConstant() }

// UnaryOpExpr is a unary operation. Op is '+', '-' or '!'.
type UnaryOpExpr struct {
	Sub Expression
	Op  byte
}

func (e *UnaryOpExpr) Visit(vis func(Expression)) { vis(e.Sub) }
func (e *UnaryOpExpr) TransformChildren(tr func(Expression) Expression) Expression {
	return &UnaryOpExpr{Sub: tr(e.Sub), Op: e.Op}
}
func (e *UnaryOpExpr) IsConstant() bool { return e.Sub.IsConstant() }

// ImageReferenceExpr refers to an image resource. Embedded is true when the
// texture data is compiled into the binary rather than decoded on demand.
type ImageReferenceExpr struct {
	Resource string
	Embedded bool
}

func (e *ImageReferenceExpr) Visit(vis func(Expression)) {}
func (e *ImageReferenceExpr) TransformChildren(tr func(Expression) Expression) Expression {
	return e
}
func (e *ImageReferenceExpr) IsConstant() bool { return true }

// ConditionExpr is `condition ? true-expr : false-expr`
type ConditionExpr struct {
	Condition Expression
	TrueExpr  Expression
	FalseExpr Expression
}

func (e *ConditionExpr) Visit(vis func(Expression)) {
	vis(e.Condition)
	vis(e.TrueExpr)
	vis(e.FalseExpr)
}
func (e *ConditionExpr) TransformChildren(tr func(Expression) Expression) Expression {
	return &ConditionExpr{Condition: tr(e.Condition), TrueExpr: tr(e.TrueExpr), FalseExpr: tr(e.FalseExpr)}
}
func (e *ConditionExpr) IsConstant() bool {
	return e.Condition.IsConstant() && e.TrueExpr.IsConstant() && e.FalseExpr.IsConstant()
}

// ArrayExpr is an array literal, evaluated into a model at runtime
type ArrayExpr struct {
	ElementTy langtype.Type
	Values    []Expression
}

func (e *ArrayExpr) Visit(vis func(Expression)) {
	for _, v := range e.Values {
		vis(v)
	}
}
func (e *ArrayExpr) TransformChildren(tr func(Expression) Expression) Expression {
	values := make([]Expression, len(e.Values))
	for i, v := range e.Values {
		values[i] = tr(v)
	}
	return &ArrayExpr{ElementTy: e.ElementTy, Values: values}
}
func (e *ArrayExpr) IsConstant() bool {
	for _, v := range e.Values {
		if !v.IsConstant() {
			return false
		}
	}
	return true
}

// StructExpr is a struct literal
type StructExpr struct {
	Ty     langtype.Type
	Values map[string]Expression
}

func (e *StructExpr) Visit(vis func(Expression)) {
	for _, v := range e.Values {
		vis(v)
	}
}
func (e *StructExpr) TransformChildren(tr func(Expression) Expression) Expression {
	values := make(map[string]Expression, len(e.Values))
	for k, v := range e.Values {
		values[k] = tr(v)
	}
	return &StructExpr{Ty: e.Ty, Values: values}
}
func (e *StructExpr) IsConstant() bool {
	for _, v := range e.Values {
		if !v.IsConstant() {
			return false
		}
	}
	return true
}

// GradientStop is one color stop of a gradient
type GradientStop struct {
	Color    Expression
	Position Expression
}

// LinearGradientExpr is a linear gradient brush literal
type LinearGradientExpr struct {
	Angle Expression
	Stops []GradientStop
}

func (e *LinearGradientExpr) Visit(vis func(Expression)) {
	vis(e.Angle)
	for _, s := range e.Stops {
		vis(s.Color)
		vis(s.Position)
	}
}
func (e *LinearGradientExpr) TransformChildren(tr func(Expression) Expression) Expression {
	stops := make([]GradientStop, len(e.Stops))
	for i, s := range e.Stops {
		stops[i] = GradientStop{Color: tr(s.Color), Position: tr(s.Position)}
	}
	return &LinearGradientExpr{Angle: tr(e.Angle), Stops: stops}
}
func (e *LinearGradientExpr) IsConstant() bool {
	if !e.Angle.IsConstant() {
		return false
	}
	for _, s := range e.Stops {
		if !s.Color.IsConstant() || !s.Position.IsConstant() {
			return false
		}
	}
	return true
}

// RadialGradientExpr is a radial gradient brush literal
type RadialGradientExpr struct {
	Stops []GradientStop
}

func (e *RadialGradientExpr) Visit(vis func(Expression)) {
	for _, s := range e.Stops {
		vis(s.Color)
		vis(s.Position)
	}
}
func (e *RadialGradientExpr) TransformChildren(tr func(Expression) Expression) Expression {
	stops := make([]GradientStop, len(e.Stops))
	for i, s := range e.Stops {
		stops[i] = GradientStop{Color: tr(s.Color), Position: tr(s.Position)}
	}
	return &RadialGradientExpr{Stops: stops}
}
func (e *RadialGradientExpr) IsConstant() bool {
	for _, s := range e.Stops {
		if !s.Color.IsConstant() || !s.Position.IsConstant() {
			return false
		}
	}
	return true
}

// EnumerationValueExpr is one value of an enumeration
type EnumerationValueExpr struct {
	Value int
	Enum  *langtype.Enumeration
}

func (e *EnumerationValueExpr) Visit(vis func(Expression)) {}
func (e *EnumerationValueExpr) TransformChildren(tr func(Expression) Expression) Expression {
	return e
}
func (e *EnumerationValueExpr) IsConstant() bool { return true }

// EasingCurveExpr is an easing curve literal
type EasingCurveExpr struct {
	Curve string
}

func (e *EasingCurveExpr) Visit(vis func(Expression)) {}
func (e *EasingCurveExpr) TransformChildren(tr func(Expression) Expression) Expression {
	return e
}
func (e *EasingCurveExpr) IsConstant() bool { return true }

// ReturnStatementExpr returns from the enclosing callback. Value may be nil.
type ReturnStatementExpr struct {
	Value Expression
}

func (e *ReturnStatementExpr) Visit(vis func(Expression)) {
	if e.Value != nil {
		vis(e.Value)
	}
}
func (e *ReturnStatementExpr) TransformChildren(tr func(Expression) Expression) Expression {
	if e.Value == nil {
		return e
	}
	return &ReturnStatementExpr{Value: tr(e.Value)}
}
func (e *ReturnStatementExpr) IsConstant() bool { return false }

// LayoutCacheAccessExpr reads one slot of a layout cache property computed by
// the layout solver. RepeaterIndex may be nil.
type LayoutCacheAccessExpr struct {
	LayoutCacheProp NamedReference
	Index           int
	RepeaterIndex   Expression
}

func (e *LayoutCacheAccessExpr) Visit(vis func(Expression)) {
	if e.RepeaterIndex != nil {
		vis(e.RepeaterIndex)
	}
}
func (e *LayoutCacheAccessExpr) TransformChildren(tr func(Expression) Expression) Expression {
	repeaterIndex := e.RepeaterIndex
	if repeaterIndex != nil {
		repeaterIndex = tr(repeaterIndex)
	}
	return &LayoutCacheAccessExpr{LayoutCacheProp: e.LayoutCacheProp, Index: e.Index, RepeaterIndex: repeaterIndex}
}
func (e *LayoutCacheAccessExpr) IsConstant() bool { return false }

// SolveLayoutExpr asks the layout solver for the geometry of a layout
type SolveLayoutExpr struct {
	Layout      *Layout
	Orientation Orientation
}

func (e *SolveLayoutExpr) Visit(vis func(Expression)) {}
func (e *SolveLayoutExpr) TransformChildren(tr func(Expression) Expression) Expression {
	return e
}
func (e *SolveLayoutExpr) IsConstant() bool { return false }

// ComputeLayoutInfoExpr asks the layout solver for the size constraints of a layout
type ComputeLayoutInfoExpr struct {
	Layout      *Layout
	Orientation Orientation
}

func (e *ComputeLayoutInfoExpr) Visit(vis func(Expression)) {}
func (e *ComputeLayoutInfoExpr) TransformChildren(tr func(Expression) Expression) Expression {
	return e
}
func (e *ComputeLayoutInfoExpr) IsConstant() bool { return false }

// MinMaxOp selects which bound a MinMaxExpr computes
type MinMaxOp int

const (
	MinMaxOpMin MinMaxOp = iota
	MinMaxOpMax
)

// MinMaxExpr computes the minimum or maximum of two values
type MinMaxExpr struct {
	Ty  langtype.Type
	Op  MinMaxOp
	Lhs Expression
	Rhs Expression
}

func (e *MinMaxExpr) Visit(vis func(Expression)) {
	vis(e.Lhs)
	vis(e.Rhs)
}
func (e *MinMaxExpr) TransformChildren(tr func(Expression) Expression) Expression {
	return &MinMaxExpr{Ty: e.Ty, Op: e.Op, Lhs: tr(e.Lhs), Rhs: tr(e.Rhs)}
}
func (e *MinMaxExpr) IsConstant() bool { return e.Lhs.IsConstant() && e.Rhs.IsConstant() }

// PathDataExpr is a path literal. Either Elements is set (a list of path
// element struct literals), or Events/Points are set (an event-based path).
type PathDataExpr struct {
	Elements []Expression
	Events   []Expression
	Points   []Expression
}

func (e *PathDataExpr) Visit(vis func(Expression)) {
	for _, el := range e.Elements {
		vis(el)
	}
	for _, ev := range e.Events {
		vis(ev)
	}
	for _, p := range e.Points {
		vis(p)
	}
}
func (e *PathDataExpr) TransformChildren(tr func(Expression) Expression) Expression {
	out := &PathDataExpr{
		Elements: make([]Expression, len(e.Elements)),
		Events:   make([]Expression, len(e.Events)),
		Points:   make([]Expression, len(e.Points)),
	}
	for i, el := range e.Elements {
		out.Elements[i] = tr(el)
	}
	for i, ev := range e.Events {
		out.Events[i] = tr(ev)
	}
	for i, p := range e.Points {
		out.Points[i] = tr(p)
	}
	return out
}
func (e *PathDataExpr) IsConstant() bool {
	constant := true
	e.Visit(func(sub Expression) {
		if !sub.IsConstant() {
			constant = false
		}
	})
	return constant
}
