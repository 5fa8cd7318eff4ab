package llr

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"slintc-go/packages/compiler/src/langtype"
	"slintc-go/packages/compiler/src/objecttree"
)

func fixtureComponent(id string) *objecttree.Component {
	c := &objecttree.Component{ID: id}
	c.RootElement = objecttree.NewElement(id+"-root", objecttree.BaseType{Kind: objecttree.BaseNone}, c)
	return c
}

// fixtureContext registers the declared properties of the component root as
// local slots, in the given order
func fixtureContext(c *objecttree.Component, state *LoweringState, parent *ExpressionContext, names ...string) *ExpressionContext {
	mapping := NewLoweredSubComponentMapping()
	for i, name := range names {
		mapping.PropertyMapping[objecttree.NewNamedReference(c.RootElement, name)] = LocalPropertyReference{PropertyIndex: i}
	}
	state.SubComponentMappings[c] = mapping
	return &ExpressionContext{Component: c, Mapping: mapping, State: state, Parent: parent}
}

func TestLowerLiteralAndArithmetic(t *testing.T) {
	c := fixtureComponent("main")
	ctx := fixtureContext(c, NewLoweringState(), nil, "x")

	got := LowerExpression(&objecttree.BinaryExpr{
		Lhs: &objecttree.PropertyReferenceExpr{Reference: objecttree.NewNamedReference(c.RootElement, "x")},
		Rhs: &objecttree.NumberLiteralExpr{Value: 2},
		Op:  '*',
	}, ctx)

	want := &BinaryExpression{
		Lhs: &PropertyReferenceExpr{Reference: LocalPropertyReference{PropertyIndex: 0}},
		Rhs: &NumberLiteral{Value: 2},
		Op:  '*',
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("lowered expression mismatch (-want +got):\n%s", diff)
	}
}

func TestLowerPropertyReferenceAcrossRepeaterLevels(t *testing.T) {
	state := NewLoweringState()
	outer := fixtureComponent("outer")
	outerCtx := fixtureContext(outer, state, nil, "count")

	inner := fixtureComponent("inner")
	innerCtx := fixtureContext(inner, state, outerCtx, "own")

	got := LowerExpression(&objecttree.PropertyReferenceExpr{
		Reference: objecttree.NewNamedReference(outer.RootElement, "count"),
	}, innerCtx)

	want := &PropertyReferenceExpr{Reference: ParentPropertyReference{
		Level:  1,
		Parent: LocalPropertyReference{PropertyIndex: 0},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("crossing one repeater must wrap in one parent level (-want +got):\n%s", diff)
	}

	// The same reference from the outer context itself stays local
	local := LowerExpression(&objecttree.PropertyReferenceExpr{
		Reference: objecttree.NewNamedReference(outer.RootElement, "count"),
	}, outerCtx)
	if diff := cmp.Diff(&PropertyReferenceExpr{Reference: LocalPropertyReference{PropertyIndex: 0}}, local); diff != "" {
		t.Errorf("same-context reference mismatch (-want +got):\n%s", diff)
	}
}

func TestLowerRepeaterPseudoProperties(t *testing.T) {
	state := NewLoweringState()
	outer := fixtureComponent("outer")
	outerCtx := fixtureContext(outer, state, nil)

	content := fixtureComponent("content")
	repeated := objecttree.NewElement("repeated", objecttree.BaseType{Kind: objecttree.BaseComponent, Component: content}, outer)
	repeated.Repeated = true
	content.ParentElement = repeated
	contentCtx := fixtureContext(content, state, outerCtx)

	index := LowerExpression(&objecttree.RepeaterIndexReferenceExpr{Element: repeated}, contentCtx)
	if diff := cmp.Diff(&PropertyReferenceExpr{Reference: LocalPropertyReference{PropertyIndex: 0}}, index); diff != "" {
		t.Errorf("index must land in slot 0 (-want +got):\n%s", diff)
	}

	model := LowerExpression(&objecttree.RepeaterModelReferenceExpr{Element: repeated}, contentCtx)
	if diff := cmp.Diff(&PropertyReferenceExpr{Reference: LocalPropertyReference{PropertyIndex: 1}}, model); diff != "" {
		t.Errorf("model data must land in slot 1 (-want +got):\n%s", diff)
	}

	// From a nested repeater the slots are reached through a parent level
	nested := fixtureComponent("nested")
	nestedCtx := fixtureContext(nested, state, contentCtx)
	deep := LowerExpression(&objecttree.RepeaterIndexReferenceExpr{Element: repeated}, nestedCtx)
	want := &PropertyReferenceExpr{Reference: ParentPropertyReference{
		Level:  1,
		Parent: LocalPropertyReference{PropertyIndex: 0},
	}}
	if diff := cmp.Diff(want, deep); diff != "" {
		t.Errorf("nested access mismatch (-want +got):\n%s", diff)
	}
}

func TestLowerPlainAndCompoundAssignment(t *testing.T) {
	c := fixtureComponent("main")
	ctx := fixtureContext(c, NewLoweringState(), nil, "x")
	xref := objecttree.NewNamedReference(c.RootElement, "x")

	plain := LowerExpression(&objecttree.SelfAssignmentExpr{
		Lhs: &objecttree.PropertyReferenceExpr{Reference: xref},
		Rhs: &objecttree.NumberLiteralExpr{Value: 7},
		Op:  '=',
	}, ctx)
	wantPlain := &PropertyAssignment{
		Property: LocalPropertyReference{PropertyIndex: 0},
		Value:    &NumberLiteral{Value: 7},
	}
	if diff := cmp.Diff(wantPlain, plain); diff != "" {
		t.Errorf("plain assignment mismatch (-want +got):\n%s", diff)
	}

	compound := LowerExpression(&objecttree.SelfAssignmentExpr{
		Lhs: &objecttree.PropertyReferenceExpr{Reference: xref},
		Rhs: &objecttree.NumberLiteralExpr{Value: 1},
		Op:  '+',
	}, ctx)
	wantCompound := &PropertyAssignment{
		Property: LocalPropertyReference{PropertyIndex: 0},
		Value: &BinaryExpression{
			Lhs: &PropertyReferenceExpr{Reference: LocalPropertyReference{PropertyIndex: 0}},
			Rhs: &NumberLiteral{Value: 1},
			Op:  '+',
		},
	}
	if diff := cmp.Diff(wantCompound, compound); diff != "" {
		t.Errorf("compound assignment must read the target first (-want +got):\n%s", diff)
	}
}

func TestLowerArrayIndexAssignment(t *testing.T) {
	c := fixtureComponent("main")
	ctx := fixtureContext(c, NewLoweringState(), nil, "items")

	got := LowerExpression(&objecttree.SelfAssignmentExpr{
		Lhs: &objecttree.ArrayIndexExpr{
			Array: &objecttree.PropertyReferenceExpr{Reference: objecttree.NewNamedReference(c.RootElement, "items")},
			Index: &objecttree.NumberLiteralExpr{Value: 3},
		},
		Rhs: &objecttree.NumberLiteralExpr{Value: 9},
		Op:  '=',
	}, ctx)

	assign, ok := got.(*ArrayIndexAssignment)
	if !ok {
		t.Fatalf("expected ArrayIndexAssignment, got %T", got)
	}
	if diff := cmp.Diff(&NumberLiteral{Value: 9}, assign.Value); diff != "" {
		t.Errorf("assigned value mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(&NumberLiteral{Value: 3}, assign.Index); diff != "" {
		t.Errorf("index mismatch (-want +got):\n%s", diff)
	}
}

func TestLowerStructFieldAssignmentGoesThroughTemporary(t *testing.T) {
	c := fixtureComponent("main")
	ctx := fixtureContext(c, NewLoweringState(), nil, "pos")
	c.RootElement.PropertyDeclarations["pos"] = &objecttree.PropertyDeclaration{
		Name: "pos",
		Ty: langtype.Struct("Point", map[string]langtype.Type{
			"x": langtype.Float32(),
			"y": langtype.Float32(),
		}),
	}

	got := LowerExpression(&objecttree.SelfAssignmentExpr{
		Lhs: &objecttree.StructFieldAccessExpr{
			Base: &objecttree.PropertyReferenceExpr{Reference: objecttree.NewNamedReference(c.RootElement, "pos")},
			Name: "x",
		},
		Rhs: &objecttree.NumberLiteralExpr{Value: 4},
		Op:  '=',
	}, ctx)

	block, ok := got.(*CodeBlock)
	if !ok || len(block.Statements) != 2 {
		t.Fatalf("expected a two-statement block, got %#v", got)
	}
	if _, ok := block.Statements[0].(*StoreLocalVariable); !ok {
		t.Errorf("the struct must be captured in a local first, got %T", block.Statements[0])
	}
	assign, ok := block.Statements[1].(*PropertyAssignment)
	if !ok {
		t.Fatalf("expected the whole struct to be written back, got %T", block.Statements[1])
	}
	updated, ok := assign.Value.(*Struct)
	if !ok {
		t.Fatalf("expected a struct literal, got %T", assign.Value)
	}
	if diff := cmp.Diff(&NumberLiteral{Value: 4}, updated.Values["x"]); diff != "" {
		t.Errorf("field x must hold the new value (-want +got):\n%s", diff)
	}
	if _, ok := updated.Values["y"].(*StructFieldAccess); !ok {
		t.Errorf("field y must be copied from the temporary, got %T", updated.Values["y"])
	}
}

func TestLowerPanicsOnUnsupportedKinds(t *testing.T) {
	c := fixtureComponent("main")
	ctx := fixtureContext(c, NewLoweringState(), nil)

	cases := map[string]objecttree.Expression{
		"solve layout":   &objecttree.SolveLayoutExpr{},
		"compute layout": &objecttree.ComputeLayoutInfoExpr{},
		"invalid":        &objecttree.InvalidExpr{},
		"event path":     &objecttree.PathDataExpr{Events: []objecttree.Expression{&objecttree.NumberLiteralExpr{}}},
	}
	for name, expr := range cases {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("%s must panic during lowering", name)
				}
			}()
			LowerExpression(expr, ctx)
		}()
	}
}

func TestLowerAnimationStaticUsesBindingsAndDefaults(t *testing.T) {
	c := fixtureComponent("main")
	ctx := fixtureContext(c, NewLoweringState(), nil)

	animElement := objecttree.NewElement("anim", objecttree.BaseType{Kind: objecttree.BaseNone}, c)
	animElement.Bindings["duration"] = objecttree.NewBinding(&objecttree.NumberLiteralExpr{Value: 250})

	anim := LowerAnimation(&objecttree.PropertyAnimation{
		Kind:      objecttree.AnimationStatic,
		Animation: animElement,
	}, ctx)

	if anim.Kind != AnimationStatic {
		t.Fatalf("Kind = %v, want static", anim.Kind)
	}
	st, ok := anim.Expression.(*Struct)
	if !ok {
		t.Fatalf("expected a struct literal, got %T", anim.Expression)
	}
	if diff := cmp.Diff(&NumberLiteral{Value: 250}, st.Values["duration"]); diff != "" {
		t.Errorf("bound field mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(&NumberLiteral{Value: 1}, st.Values["iteration-count"]); diff != "" {
		t.Errorf("unbound fields keep their defaults (-want +got):\n%s", diff)
	}
}

func TestDefaultValueForType(t *testing.T) {
	if got := DefaultValueForType(langtype.Float32()); !cmp.Equal(&NumberLiteral{Value: 0}, got) {
		t.Errorf("float default = %#v", got)
	}
	if got := DefaultValueForType(langtype.String()); !cmp.Equal(&StringLiteral{}, got) {
		t.Errorf("string default = %#v", got)
	}
	if got := DefaultValueForType(langtype.Model(langtype.Float32())); got != nil {
		t.Errorf("models have no default value, got %#v", got)
	}
	point := langtype.Struct("Point", map[string]langtype.Type{"x": langtype.Float32()})
	want := &Struct{Ty: point, Values: map[string]Expression{"x": &NumberLiteral{Value: 0}}}
	if diff := cmp.Diff(want, DefaultValueForType(point)); diff != "" {
		t.Errorf("struct default mismatch (-want +got):\n%s", diff)
	}
}
