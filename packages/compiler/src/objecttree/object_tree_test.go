package objecttree

import (
	"testing"

	"slintc-go/packages/compiler/src/langtype"
)

func testComponent(id string) *Component {
	c := &Component{ID: id}
	c.RootElement = NewElement(id+"-root", BaseType{Kind: BaseNone}, c)
	return c
}

func TestNamedReferenceConstantnessWalksTheInheritanceChain(t *testing.T) {
	base := testComponent("Base")
	base.RootElement.PropertyDeclarations["width"] = &PropertyDeclaration{Name: "width", Ty: langtype.Float32()}
	b := NewBinding(&NumberLiteralExpr{Value: 10})
	b.Analysis = &BindingAnalysis{IsConst: true}
	base.RootElement.Bindings["width"] = b

	main := testComponent("main")
	derived := NewElement("derived", BaseType{Kind: BaseComponent, Component: base}, main)

	nr := NewNamedReference(derived, "width")
	if !nr.IsConstant() {
		t.Error("a property with only a constant base binding is constant")
	}

	base.RootElement.EnsurePropertyAnalysis("width").IsSet = true
	if nr.IsConstant() {
		t.Error("a set property is never constant")
	}
}

func TestPublicInOutPropertyIsNotConstant(t *testing.T) {
	c := testComponent("main")
	c.RootElement.PropertyDeclarations["value"] = &PropertyDeclaration{
		Name:              "value",
		Ty:                langtype.Float32(),
		ExposeInPublicAPI: true,
		Visibility:        VisibilityInOut,
	}
	if NewNamedReference(c.RootElement, "value").IsConstant() {
		t.Error("an in-out public property can be written by the application")
	}
}

func TestPublicInputPropertyCanStillBeConstant(t *testing.T) {
	c := testComponent("main")
	c.RootElement.PropertyDeclarations["value"] = &PropertyDeclaration{
		Name:              "value",
		Ty:                langtype.Float32(),
		ExposeInPublicAPI: true,
		Visibility:        VisibilityInput,
	}
	b := NewBinding(&NumberLiteralExpr{Value: 1})
	b.Analysis = &BindingAnalysis{IsConst: true}
	c.RootElement.Bindings["value"] = b
	if !NewNamedReference(c.RootElement, "value").IsConstant() {
		t.Error("input visibility does not allow external writes")
	}
}

func TestNativeOutputPropertyIsNeverConstant(t *testing.T) {
	c := testComponent("main")
	touch := NewElement("touch", BaseType{Kind: BaseBuiltin, Builtin: "TouchArea"}, c)
	if NewNamedReference(touch, "pressed").IsConstant() {
		t.Error("TouchArea.pressed is written by the runtime")
	}
	if !NewNamedReference(touch, "x").IsConstant() {
		t.Error("ordinary builtin properties without writes are constant")
	}
}

func TestMarkPropertySetDerivedInBaseStopsAtFlaggedLevel(t *testing.T) {
	grandBase := testComponent("GrandBase")
	base := testComponent("Base")
	base.RootElement.Base = BaseType{Kind: BaseComponent, Component: grandBase}

	main := testComponent("main")
	derived := NewElement("derived", BaseType{Kind: BaseComponent, Component: base}, main)

	MarkPropertySetDerivedInBase(derived, "width")
	if !base.RootElement.PropertyAnalysis["width"].IsSetExternally {
		t.Error("the immediate base must be flagged")
	}
	if !grandBase.RootElement.PropertyAnalysis["width"].IsSetExternally {
		t.Error("the whole chain must be flagged")
	}

	// Clearing only the top flag and re-marking must not touch it: the walk
	// stops at the first level that is already flagged
	grandBase.RootElement.PropertyAnalysis["width"].IsSetExternally = false
	MarkPropertySetDerivedInBase(derived, "width")
	if grandBase.RootElement.PropertyAnalysis["width"].IsSetExternally {
		t.Error("the walk should have stopped at the already-flagged base")
	}
}

func TestBumpUseCountPanicsWhenGoingNegative(t *testing.T) {
	b := NewBinding(&NumberLiteralExpr{Value: 1})
	defer func() {
		if recover() == nil {
			t.Error("a negative use count is an internal invariant violation")
		}
	}()
	b.BumpUseCount(-1)
}

func TestBindingHasBinding(t *testing.T) {
	if NewBinding(nil).HasBinding() {
		t.Error("an empty binding computes nothing")
	}
	if !NewBinding(&NumberLiteralExpr{Value: 1}).HasBinding() {
		t.Error("an expression is a binding")
	}
	b := NewBinding(nil)
	b.TwoWayBindings = []NamedReference{{Element: testComponent("x").RootElement, Name: "p"}}
	if !b.HasBinding() {
		t.Error("a two-way alias alone is a binding")
	}
}

func TestRecurseElemIncludingSubComponentsDescendsIntoRepeaters(t *testing.T) {
	content := testComponent("content")
	inner := NewElement("inner", BaseType{Kind: BaseBuiltin, Builtin: "Rectangle"}, content)
	content.RootElement.Children = append(content.RootElement.Children, inner)

	main := testComponent("main")
	repeated := NewElement("repeated", BaseType{Kind: BaseComponent, Component: content}, main)
	repeated.Repeated = true
	content.ParentElement = repeated
	main.RootElement.Children = append(main.RootElement.Children, repeated)

	var visited []string
	RecurseElemIncludingSubComponents(main, func(e *Element) {
		visited = append(visited, e.ID)
	})

	want := []string{"main-root", "repeated", "content-root", "inner"}
	if len(visited) != len(want) {
		t.Fatalf("visited %v, want %v", visited, want)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Fatalf("visited %v, want %v", visited, want)
		}
	}
}
