package llr

import (
	"slintc-go/packages/compiler/src/langtype"
	"slintc-go/packages/compiler/src/objecttree"
)

// Expression is the lowered expression tree handed to the code generators.
// Unlike the high-level tree it refers to properties by structural position
// (PropertyReference) instead of by element pointer, so it survives the
// object tree being discarded. It is a closed variant; consumers
// discriminate with type switches.
type Expression interface {
	Visit(vis func(Expression))
	TransformChildren(tr func(Expression) Expression) Expression
}

// CloneExpression returns a deep copy of the expression. Leaf nodes are
// immutable and may be shared between the copy and the original.
func CloneExpression(e Expression) Expression {
	return e.TransformChildren(CloneExpression)
}

// StringLiteral is a string constant
type StringLiteral struct {
	Value string
}

func (e *StringLiteral) Visit(vis func(Expression))                               {}
func (e *StringLiteral) TransformChildren(tr func(Expression) Expression) Expression { return e }

// NumberLiteral is a numeric constant in its base unit
type NumberLiteral struct {
	Value float64
}

func (e *NumberLiteral) Visit(vis func(Expression))                               {}
func (e *NumberLiteral) TransformChildren(tr func(Expression) Expression) Expression { return e }

// BoolLiteral is a boolean constant
type BoolLiteral struct {
	Value bool
}

func (e *BoolLiteral) Visit(vis func(Expression))                               {}
func (e *BoolLiteral) TransformChildren(tr func(Expression) Expression) Expression { return e }

// PropertyReferenceExpr reads a property
type PropertyReferenceExpr struct {
	Reference PropertyReference
}

func (e *PropertyReferenceExpr) Visit(vis func(Expression)) {}
func (e *PropertyReferenceExpr) TransformChildren(tr func(Expression) Expression) Expression {
	return e
}

// FunctionParameterReference reads a parameter of the enclosing callback or
// function body
type FunctionParameterReference struct {
	Index int
}

func (e *FunctionParameterReference) Visit(vis func(Expression)) {}
func (e *FunctionParameterReference) TransformChildren(tr func(Expression) Expression) Expression {
	return e
}

// StoreLocalVariable binds a value to a block-scoped name
type StoreLocalVariable struct {
	Name  string
	Value Expression
}

func (e *StoreLocalVariable) Visit(vis func(Expression)) { vis(e.Value) }
func (e *StoreLocalVariable) TransformChildren(tr func(Expression) Expression) Expression {
	return &StoreLocalVariable{Name: e.Name, Value: tr(e.Value)}
}

// ReadLocalVariable reads a local stored earlier in the same block
type ReadLocalVariable struct {
	Name string
	Ty   langtype.Type
}

func (e *ReadLocalVariable) Visit(vis func(Expression))                               {}
func (e *ReadLocalVariable) TransformChildren(tr func(Expression) Expression) Expression { return e }

// StructFieldAccess reads one field of a struct value
type StructFieldAccess struct {
	Base Expression
	Name string
}

func (e *StructFieldAccess) Visit(vis func(Expression)) { vis(e.Base) }
func (e *StructFieldAccess) TransformChildren(tr func(Expression) Expression) Expression {
	return &StructFieldAccess{Base: tr(e.Base), Name: e.Name}
}

// ArrayIndex reads one entry of a model
type ArrayIndex struct {
	Array Expression
	Index Expression
}

func (e *ArrayIndex) Visit(vis func(Expression)) {
	vis(e.Array)
	vis(e.Index)
}
func (e *ArrayIndex) TransformChildren(tr func(Expression) Expression) Expression {
	return &ArrayIndex{Array: tr(e.Array), Index: tr(e.Index)}
}

// Cast converts a value to another type
type Cast struct {
	From Expression
	To   langtype.Type
}

func (e *Cast) Visit(vis func(Expression)) { vis(e.From) }
func (e *Cast) TransformChildren(tr func(Expression) Expression) Expression {
	return &Cast{From: tr(e.From), To: e.To}
}

// CodeBlock is a statement sequence evaluating to its last entry. An empty
// block is the canonical dead binding left behind when the inliner folds a
// binding into its last reader.
type CodeBlock struct {
	Statements []Expression
}

func (e *CodeBlock) Visit(vis func(Expression)) {
	for _, s := range e.Statements {
		vis(s)
	}
}
func (e *CodeBlock) TransformChildren(tr func(Expression) Expression) Expression {
	statements := make([]Expression, len(e.Statements))
	for i, s := range e.Statements {
		statements[i] = tr(s)
	}
	return &CodeBlock{Statements: statements}
}

// IsEmpty reports whether the block holds no statements at all
func (e *CodeBlock) IsEmpty() bool { return len(e.Statements) == 0 }

// BuiltinFunctionCall calls a function implemented by the runtime
type BuiltinFunctionCall struct {
	Function  objecttree.BuiltinFunction
	Arguments []Expression
}

func (e *BuiltinFunctionCall) Visit(vis func(Expression)) {
	for _, a := range e.Arguments {
		vis(a)
	}
}
func (e *BuiltinFunctionCall) TransformChildren(tr func(Expression) Expression) Expression {
	arguments := make([]Expression, len(e.Arguments))
	for i, a := range e.Arguments {
		arguments[i] = tr(a)
	}
	return &BuiltinFunctionCall{Function: e.Function, Arguments: arguments}
}

// CallbackCall invokes a callback property
type CallbackCall struct {
	Callback  PropertyReference
	Arguments []Expression
}

func (e *CallbackCall) Visit(vis func(Expression)) {
	for _, a := range e.Arguments {
		vis(a)
	}
}
func (e *CallbackCall) TransformChildren(tr func(Expression) Expression) Expression {
	arguments := make([]Expression, len(e.Arguments))
	for i, a := range e.Arguments {
		arguments[i] = tr(a)
	}
	return &CallbackCall{Callback: e.Callback, Arguments: arguments}
}

// FunctionCall invokes a user-declared function
type FunctionCall struct {
	Function  PropertyReference
	Arguments []Expression
}

func (e *FunctionCall) Visit(vis func(Expression)) {
	for _, a := range e.Arguments {
		vis(a)
	}
}
func (e *FunctionCall) TransformChildren(tr func(Expression) Expression) Expression {
	arguments := make([]Expression, len(e.Arguments))
	for i, a := range e.Arguments {
		arguments[i] = tr(a)
	}
	return &FunctionCall{Function: e.Function, Arguments: arguments}
}

// ExtraBuiltinFunctionCall calls a runtime function that has no
// BuiltinFunction entry, identified by name
type ExtraBuiltinFunctionCall struct {
	Name      string
	Arguments []Expression
	ReturnTy  langtype.Type
}

func (e *ExtraBuiltinFunctionCall) Visit(vis func(Expression)) {
	for _, a := range e.Arguments {
		vis(a)
	}
}
func (e *ExtraBuiltinFunctionCall) TransformChildren(tr func(Expression) Expression) Expression {
	arguments := make([]Expression, len(e.Arguments))
	for i, a := range e.Arguments {
		arguments[i] = tr(a)
	}
	return &ExtraBuiltinFunctionCall{Name: e.Name, Arguments: arguments, ReturnTy: e.ReturnTy}
}

// PropertyAssignment writes a value to a property
type PropertyAssignment struct {
	Property PropertyReference
	Value    Expression
}

func (e *PropertyAssignment) Visit(vis func(Expression)) { vis(e.Value) }
func (e *PropertyAssignment) TransformChildren(tr func(Expression) Expression) Expression {
	return &PropertyAssignment{Property: e.Property, Value: tr(e.Value)}
}

// ModelDataAssignment writes the current model data of the repeater Level
// levels up
type ModelDataAssignment struct {
	Level int
	Value Expression
}

func (e *ModelDataAssignment) Visit(vis func(Expression)) { vis(e.Value) }
func (e *ModelDataAssignment) TransformChildren(tr func(Expression) Expression) Expression {
	return &ModelDataAssignment{Level: e.Level, Value: tr(e.Value)}
}

// ArrayIndexAssignment writes one entry of a model
type ArrayIndexAssignment struct {
	Array Expression
	Index Expression
	Value Expression
}

func (e *ArrayIndexAssignment) Visit(vis func(Expression)) {
	vis(e.Array)
	vis(e.Index)
	vis(e.Value)
}
func (e *ArrayIndexAssignment) TransformChildren(tr func(Expression) Expression) Expression {
	return &ArrayIndexAssignment{Array: tr(e.Array), Index: tr(e.Index), Value: tr(e.Value)}
}

// BinaryExpression is an arithmetic, comparison or logical operation.
// Op follows the high-level tree's encoding ('=' is equality).
type BinaryExpression struct {
	Lhs Expression
	Rhs Expression
	Op  byte
}

func (e *BinaryExpression) Visit(vis func(Expression)) {
	vis(e.Lhs)
	vis(e.Rhs)
}
func (e *BinaryExpression) TransformChildren(tr func(Expression) Expression) Expression {
	return &BinaryExpression{Lhs: tr(e.Lhs), Rhs: tr(e.Rhs), Op: e.Op}
}

// UnaryOp is a unary operation. Op is '+', '-' or '!'.
type UnaryOp struct {
	Sub Expression
	Op  byte
}

func (e *UnaryOp) Visit(vis func(Expression)) { vis(e.Sub) }
func (e *UnaryOp) TransformChildren(tr func(Expression) Expression) Expression {
	return &UnaryOp{Sub: tr(e.Sub), Op: e.Op}
}

// ImageReference refers to an image resource
type ImageReference struct {
	Resource string
	Embedded bool
}

func (e *ImageReference) Visit(vis func(Expression))                               {}
func (e *ImageReference) TransformChildren(tr func(Expression) Expression) Expression { return e }

// Condition is `condition ? true-expr : false-expr`. FalseExpr may be an
// empty code block when the source had no else branch.
type Condition struct {
	Condition Expression
	TrueExpr  Expression
	FalseExpr Expression
}

func (e *Condition) Visit(vis func(Expression)) {
	vis(e.Condition)
	vis(e.TrueExpr)
	vis(e.FalseExpr)
}
func (e *Condition) TransformChildren(tr func(Expression) Expression) Expression {
	return &Condition{Condition: tr(e.Condition), TrueExpr: tr(e.TrueExpr), FalseExpr: tr(e.FalseExpr)}
}

// Array is an array literal, turned into a model at runtime
type Array struct {
	ElementTy langtype.Type
	Values    []Expression
}

func (e *Array) Visit(vis func(Expression)) {
	for _, v := range e.Values {
		vis(v)
	}
}
func (e *Array) TransformChildren(tr func(Expression) Expression) Expression {
	values := make([]Expression, len(e.Values))
	for i, v := range e.Values {
		values[i] = tr(v)
	}
	return &Array{ElementTy: e.ElementTy, Values: values}
}

// Struct is a struct literal
type Struct struct {
	Ty     langtype.Type
	Values map[string]Expression
}

func (e *Struct) Visit(vis func(Expression)) {
	for _, v := range e.Values {
		vis(v)
	}
}
func (e *Struct) TransformChildren(tr func(Expression) Expression) Expression {
	values := make(map[string]Expression, len(e.Values))
	for k, v := range e.Values {
		values[k] = tr(v)
	}
	return &Struct{Ty: e.Ty, Values: values}
}

// EasingCurve is an easing curve literal
type EasingCurve struct {
	Curve string
}

func (e *EasingCurve) Visit(vis func(Expression))                               {}
func (e *EasingCurve) TransformChildren(tr func(Expression) Expression) Expression { return e }

// GradientStop is one color stop of a gradient
type GradientStop struct {
	Color    Expression
	Position Expression
}

// LinearGradient is a linear gradient brush literal
type LinearGradient struct {
	Angle Expression
	Stops []GradientStop
}

func (e *LinearGradient) Visit(vis func(Expression)) {
	vis(e.Angle)
	for _, s := range e.Stops {
		vis(s.Color)
		vis(s.Position)
	}
}
func (e *LinearGradient) TransformChildren(tr func(Expression) Expression) Expression {
	stops := make([]GradientStop, len(e.Stops))
	for i, s := range e.Stops {
		stops[i] = GradientStop{Color: tr(s.Color), Position: tr(s.Position)}
	}
	return &LinearGradient{Angle: tr(e.Angle), Stops: stops}
}

// RadialGradient is a radial gradient brush literal
type RadialGradient struct {
	Stops []GradientStop
}

func (e *RadialGradient) Visit(vis func(Expression)) {
	for _, s := range e.Stops {
		vis(s.Color)
		vis(s.Position)
	}
}
func (e *RadialGradient) TransformChildren(tr func(Expression) Expression) Expression {
	stops := make([]GradientStop, len(e.Stops))
	for i, s := range e.Stops {
		stops[i] = GradientStop{Color: tr(s.Color), Position: tr(s.Position)}
	}
	return &RadialGradient{Stops: stops}
}

// EnumerationValue is one value of an enumeration
type EnumerationValue struct {
	Value int
	Enum  *langtype.Enumeration
}

func (e *EnumerationValue) Visit(vis func(Expression))                               {}
func (e *EnumerationValue) TransformChildren(tr func(Expression) Expression) Expression { return e }

// ReturnStatement returns from the enclosing callback. Value may be nil.
type ReturnStatement struct {
	Value Expression
}

func (e *ReturnStatement) Visit(vis func(Expression)) {
	if e.Value != nil {
		vis(e.Value)
	}
}
func (e *ReturnStatement) TransformChildren(tr func(Expression) Expression) Expression {
	if e.Value == nil {
		return e
	}
	return &ReturnStatement{Value: tr(e.Value)}
}

// LayoutCacheAccess reads one slot of a layout cache property.
// RepeaterIndex may be nil.
type LayoutCacheAccess struct {
	LayoutCacheProp PropertyReference
	Index           int
	RepeaterIndex   Expression
}

func (e *LayoutCacheAccess) Visit(vis func(Expression)) {
	if e.RepeaterIndex != nil {
		vis(e.RepeaterIndex)
	}
}
func (e *LayoutCacheAccess) TransformChildren(tr func(Expression) Expression) Expression {
	repeaterIndex := e.RepeaterIndex
	if repeaterIndex != nil {
		repeaterIndex = tr(repeaterIndex)
	}
	return &LayoutCacheAccess{LayoutCacheProp: e.LayoutCacheProp, Index: e.Index, RepeaterIndex: repeaterIndex}
}

// MinMaxOp selects which bound a MinMax computes
type MinMaxOp int

const (
	MinMaxOpMin MinMaxOp = iota
	MinMaxOpMax
)

// MinMax computes the minimum or maximum of two values
type MinMax struct {
	Ty  langtype.Type
	Op  MinMaxOp
	Lhs Expression
	Rhs Expression
}

func (e *MinMax) Visit(vis func(Expression)) {
	vis(e.Lhs)
	vis(e.Rhs)
}
func (e *MinMax) TransformChildren(tr func(Expression) Expression) Expression {
	return &MinMax{Ty: e.Ty, Op: e.Op, Lhs: tr(e.Lhs), Rhs: tr(e.Rhs)}
}

// DefaultValueForType returns the literal representing the default value of
// ty, or nil when the type has none. A reference to a property without a
// binding is replaced by this value during inlining.
func DefaultValueForType(ty langtype.Type) Expression {
	switch ty.Kind {
	case langtype.TypeFloat32, langtype.TypeInt32, langtype.TypeColor,
		langtype.TypeDuration, langtype.TypeAngle, langtype.TypeLength,
		langtype.TypeLogicalLength, langtype.TypePercent:
		return &NumberLiteral{Value: 0}
	case langtype.TypeString:
		return &StringLiteral{Value: ""}
	case langtype.TypeBool:
		return &BoolLiteral{Value: false}
	case langtype.TypeEasing:
		return &EasingCurve{Curve: "linear"}
	case langtype.TypeEnumeration:
		return &EnumerationValue{Value: ty.Enum.DefaultValue, Enum: ty.Enum}
	case langtype.TypeStruct:
		values := make(map[string]Expression, len(ty.Fields))
		for name, fieldTy := range ty.Fields {
			fieldValue := DefaultValueForType(fieldTy)
			if fieldValue == nil {
				return nil
			}
			values[name] = fieldValue
		}
		return &Struct{Ty: ty, Values: values}
	default:
		return nil
	}
}
