package optim

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"slintc-go/packages/compiler/src/costmodel"
	"slintc-go/packages/compiler/src/langtype"
	"slintc-go/packages/compiler/src/llr"
	"slintc-go/packages/compiler/src/objecttree"
)

func number(v float64) llr.Expression { return &llr.NumberLiteral{Value: v} }

func localRef(idx int) llr.Expression {
	return &llr.PropertyReferenceExpr{Reference: llr.LocalPropertyReference{PropertyIndex: idx}}
}

func plus(lhs, rhs llr.Expression) llr.Expression {
	return &llr.BinaryExpression{Lhs: lhs, Rhs: rhs, Op: '+'}
}

// fixture builds a public component with one root sub-component holding the
// given properties and bindings (binding i belongs to property i when the
// expression is non-nil)
func fixture(names []string, types []langtype.Type, exprs []llr.Expression, useCounts []int) *llr.PublicComponent {
	sc := &llr.SubComponent{Name: "main", PropAnalysis: map[string]objecttree.PropertyAnalysis{}}
	for i, name := range names {
		sc.Properties = append(sc.Properties, &llr.Property{Name: name, Ty: types[i], UseCount: useCounts[i]})
	}
	for i, expr := range exprs {
		if expr == nil {
			continue
		}
		sc.PropertyInit = append(sc.PropertyInit, llr.PropertyInit{
			Property: llr.LocalPropertyReference{PropertyIndex: i},
			Binding:  &llr.BindingExpression{Expression: expr, UseCount: useCounts[i]},
		})
	}
	return &llr.PublicComponent{Root: sc}
}

func floats(n int) []langtype.Type {
	out := make([]langtype.Type, n)
	for i := range out {
		out[i] = langtype.Float32()
	}
	return out
}

func bindingFor(sc *llr.SubComponent, idx int) *llr.BindingExpression {
	i := sc.BindingIndex(llr.LocalPropertyReference{PropertyIndex: idx})
	if i < 0 {
		return nil
	}
	return sc.PropertyInit[i].Binding
}

func TestInlineChainsAndEmptiesDeadBindings(t *testing.T) {
	root := fixture(
		[]string{"x", "y", "z"},
		floats(3),
		[]llr.Expression{number(5), plus(localRef(0), number(1)), plus(localRef(1), number(2))},
		[]int{1, 1, 0},
	)
	InlineSimpleExpressions(root)

	sc := root.Root
	want := plus(plus(number(5), number(1)), number(2))
	if diff := cmp.Diff(want, bindingFor(sc, 2).Expression); diff != "" {
		t.Errorf("z must fold the whole chain (-want +got):\n%s", diff)
	}
	for _, idx := range []int{0, 1} {
		b := bindingFor(sc, idx)
		if cb, ok := b.Expression.(*llr.CodeBlock); !ok || !cb.IsEmpty() {
			t.Errorf("binding %d lost its last reader and must be emptied, got %#v", idx, b.Expression)
		}
		if b.UseCount != 0 {
			t.Errorf("binding %d use count = %d, want 0", idx, b.UseCount)
		}
		if sc.Properties[idx].UseCount != 0 {
			t.Errorf("property %d use count = %d, want 0", idx, sc.Properties[idx].UseCount)
		}
	}
}

func TestReadWithoutBindingBecomesDefaultValue(t *testing.T) {
	root := fixture(
		[]string{"w", "out"},
		floats(2),
		[]llr.Expression{nil, plus(localRef(0), number(1))},
		[]int{1, 0},
	)
	InlineSimpleExpressions(root)

	sc := root.Root
	if diff := cmp.Diff(plus(number(0), number(1)), bindingFor(sc, 1).Expression); diff != "" {
		t.Errorf("a binding-less float read is its default value (-want +got):\n%s", diff)
	}
	if sc.Properties[0].UseCount != 0 {
		t.Errorf("w use count = %d, want 0 after substitution", sc.Properties[0].UseCount)
	}
}

func TestRuntimeAssignedReadKeepsItsReference(t *testing.T) {
	// w has no binding but is assigned at runtime, so its read has no
	// compile-time value to substitute
	root := fixture(
		[]string{"w", "out"},
		floats(2),
		[]llr.Expression{nil, plus(localRef(0), number(1))},
		[]int{1, 0},
	)
	key := llr.LocalPropertyReference{PropertyIndex: 0}.String()
	root.Root.PropAnalysis[key] = objecttree.PropertyAnalysis{IsSet: true}
	InlineSimpleExpressions(root)

	sc := root.Root
	if diff := cmp.Diff(plus(localRef(0), number(1)), bindingFor(sc, 1).Expression); diff != "" {
		t.Errorf("a runtime-assigned property must keep its read (-want +got):\n%s", diff)
	}
	if sc.Properties[0].UseCount != 1 {
		t.Errorf("w use count = %d, want unchanged 1", sc.Properties[0].UseCount)
	}
}

func TestArrayBindingsAreNeverInlined(t *testing.T) {
	arr := &llr.Array{ElementTy: langtype.Float32(), Values: []llr.Expression{number(1)}}
	root := fixture(
		[]string{"items", "probe"},
		[]langtype.Type{langtype.Model(langtype.Float32()), langtype.Float32()},
		[]llr.Expression{arr, localRef(0)},
		[]int{1, 0},
	)
	InlineSimpleExpressions(root)

	sc := root.Root
	if diff := cmp.Diff(localRef(0), bindingFor(sc, 1).Expression); diff != "" {
		t.Errorf("an array literal must stay behind its property (-want +got):\n%s", diff)
	}
	if bindingFor(sc, 0).UseCount != 1 {
		t.Errorf("items use count = %d, want unchanged 1", bindingFor(sc, 0).UseCount)
	}
}

func TestSingleUseThresholdIsMoreGenerous(t *testing.T) {
	// Two string allocations plus a concatenation land between the two
	// thresholds of the default profile
	concat := func() llr.Expression {
		return &llr.BinaryExpression{
			Lhs: &llr.StringLiteral{Value: "a"},
			Rhs: &llr.StringLiteral{Value: "b"},
			Op:  '+',
		}
	}

	multi := fixture(
		[]string{"s", "p", "q"},
		[]langtype.Type{langtype.String(), langtype.String(), langtype.String()},
		[]llr.Expression{concat(), localRef(0), localRef(0)},
		[]int{2, 0, 0},
	)
	InlineSimpleExpressions(multi)
	if diff := cmp.Diff(localRef(0), bindingFor(multi.Root, 1).Expression); diff != "" {
		t.Errorf("a multi-use binding above the threshold must stay (-want +got):\n%s", diff)
	}

	single := fixture(
		[]string{"s", "p"},
		[]langtype.Type{langtype.String(), langtype.String()},
		[]llr.Expression{concat(), localRef(0)},
		[]int{1, 0},
	)
	InlineSimpleExpressions(single)
	if diff := cmp.Diff(concat(), bindingFor(single.Root, 1).Expression); diff != "" {
		t.Errorf("the same binding with one reader must be folded (-want +got):\n%s", diff)
	}
}

func TestSetPropertiesAreNotInlined(t *testing.T) {
	root := fixture(
		[]string{"x", "probe"},
		floats(2),
		[]llr.Expression{number(5), localRef(0)},
		[]int{1, 0},
	)
	key := llr.LocalPropertyReference{PropertyIndex: 0}.String()
	root.Root.PropAnalysis[key] = objecttree.PropertyAnalysis{IsSet: true}

	InlineSimpleExpressions(root)

	if diff := cmp.Diff(localRef(0), bindingFor(root.Root, 1).Expression); diff != "" {
		t.Errorf("a set property's value is not its binding (-want +got):\n%s", diff)
	}
}

func TestAnimatedBindingsAreNotInlined(t *testing.T) {
	root := fixture(
		[]string{"x", "probe"},
		floats(2),
		[]llr.Expression{number(5), localRef(0)},
		[]int{1, 0},
	)
	bindingFor(root.Root, 0).Animation = &llr.Animation{
		Kind:       llr.AnimationStatic,
		Expression: &llr.Struct{},
	}

	InlineSimpleExpressions(root)

	if diff := cmp.Diff(localRef(0), bindingFor(root.Root, 1).Expression); diff != "" {
		t.Errorf("an animated binding must stay observable (-want +got):\n%s", diff)
	}
}

func TestInlineAcrossRepeaterMapsReferencesThroughParent(t *testing.T) {
	outer := &llr.SubComponent{Name: "outer", PropAnalysis: map[string]objecttree.PropertyAnalysis{}}
	outer.Properties = []*llr.Property{
		{Name: "cnt", Ty: langtype.Float32(), UseCount: 1},
		{Name: "base", Ty: langtype.Model(langtype.Float32()), UseCount: 1},
	}
	outer.PropertyInit = []llr.PropertyInit{
		{
			Property: llr.LocalPropertyReference{PropertyIndex: 0},
			Binding:  &llr.BindingExpression{Expression: localRef(1), UseCount: 1},
		},
		{
			Property: llr.LocalPropertyReference{PropertyIndex: 1},
			Binding: &llr.BindingExpression{
				Expression: &llr.Array{ElementTy: langtype.Float32()},
				UseCount:   1,
			},
		},
	}

	inner := &llr.SubComponent{Name: "inner", PropAnalysis: map[string]objecttree.PropertyAnalysis{}}
	inner.Properties = []*llr.Property{{Name: "p", Ty: langtype.Float32()}}
	inner.PropertyInit = []llr.PropertyInit{{
		Property: llr.LocalPropertyReference{PropertyIndex: 0},
		Binding: &llr.BindingExpression{
			Expression: &llr.PropertyReferenceExpr{Reference: llr.ParentPropertyReference{
				Level:  1,
				Parent: llr.LocalPropertyReference{PropertyIndex: 0},
			}},
			UseCount: 0,
		},
	}}
	outer.Repeated = []*llr.RepeatedElement{{Root: inner, IndexProp: 0, DataProp: 1}}

	root := &llr.PublicComponent{Root: outer}
	InlineSimpleExpressions(root)

	want := &llr.PropertyReferenceExpr{Reference: llr.ParentPropertyReference{
		Level:  1,
		Parent: llr.LocalPropertyReference{PropertyIndex: 1},
	}}
	if diff := cmp.Diff(want, inner.PropertyInit[0].Binding.Expression); diff != "" {
		t.Errorf("the inlined reference must be re-mapped through the repeater (-want +got):\n%s", diff)
	}
	if cb, ok := outer.PropertyInit[0].Binding.Expression.(*llr.CodeBlock); !ok || !cb.IsEmpty() {
		t.Errorf("cnt lost its only reader and must be emptied")
	}
	if got := outer.PropertyInit[1].Binding.UseCount; got != 1 {
		t.Errorf("base use count = %d, want 1 (the reference moved, it did not multiply)", got)
	}
}

func TestGlobalConstantIsInlined(t *testing.T) {
	g := &llr.GlobalComponent{
		Name:         "Theme",
		Properties:   []*llr.Property{{Name: "spacing", Ty: langtype.Float32(), UseCount: 1}},
		InitValues:   []*llr.BindingExpression{{Expression: number(8), IsConstant: true, UseCount: 1}},
		PropAnalysis: []objecttree.PropertyAnalysis{{}},
	}
	sc := &llr.SubComponent{Name: "main", PropAnalysis: map[string]objecttree.PropertyAnalysis{}}
	sc.Properties = []*llr.Property{{Name: "gap", Ty: langtype.Float32()}}
	sc.PropertyInit = []llr.PropertyInit{{
		Property: llr.LocalPropertyReference{PropertyIndex: 0},
		Binding: &llr.BindingExpression{
			Expression: &llr.PropertyReferenceExpr{Reference: llr.GlobalPropertyReference{GlobalIndex: 0, PropertyIndex: 0}},
		},
	}}
	root := &llr.PublicComponent{Globals: []*llr.GlobalComponent{g}, Root: sc}

	InlineSimpleExpressions(root)

	if diff := cmp.Diff(number(8), sc.PropertyInit[0].Binding.Expression); diff != "" {
		t.Errorf("a cheap global binding inlines like a local one (-want +got):\n%s", diff)
	}
	if g.Properties[0].UseCount != 0 {
		t.Errorf("spacing use count = %d, want 0", g.Properties[0].UseCount)
	}
}

func TestExpressionCostConditionChargesWorstBranchPlusMargin(t *testing.T) {
	profile := costmodel.Default()
	cond := &llr.Condition{
		Condition: localRef(0),
		TrueExpr:  &llr.StringLiteral{Value: "yes"},
		FalseExpr: number(0),
	}
	want := profile.PropertyAccess + profile.Alloc + profile.ConditionMargin
	if got := expressionCost(cond, profile); got != want {
		t.Errorf("cost = %d, want condition + worst branch + margin = %d", got, want)
	}
}

func TestExpressionCostNeverInlineClasses(t *testing.T) {
	cases := map[string]llr.Expression{
		"function parameter": &llr.FunctionParameterReference{},
		"callback call":      &llr.CallbackCall{Callback: llr.LocalPropertyReference{}},
		"assignment":         &llr.PropertyAssignment{Property: llr.LocalPropertyReference{}, Value: number(1)},
		"array literal":      &llr.Array{},
		"return":             &llr.ReturnStatement{},
		"on-demand image":    &llr.ImageReference{Resource: "big.png"},
		"impure builtin":     &llr.BuiltinFunctionCall{Function: objecttree.BuiltinDebug},
	}
	for name, expr := range cases {
		if got := expressionCost(expr, costmodel.Default()); got != costmodel.NeverInline {
			t.Errorf("%s: cost = %d, want NeverInline", name, got)
		}
	}
}
