package llr

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"slintc-go/packages/compiler/src/langtype"
	"slintc-go/packages/compiler/src/objecttree"
)

func analyzedBinding(expr objecttree.Expression) *objecttree.Binding {
	b := objecttree.NewBinding(expr)
	b.Analysis = &objecttree.BindingAnalysis{IsConst: expr.IsConstant()}
	return b
}

func TestLoweringRecordsAnalysisForUnboundDeclarations(t *testing.T) {
	c := fixtureComponent("main")
	root := c.RootElement
	root.PropertyDeclarations["w"] = &objecttree.PropertyDeclaration{Name: "w", Ty: langtype.Float32()}
	root.EnsurePropertyAnalysis("w").IsSet = true

	pub := LowerToItemTree(&objecttree.Document{RootComponent: c})

	a, ok := pub.Root.PropAnalysis[LocalPropertyReference{PropertyIndex: 0}.String()]
	if !ok {
		t.Fatal("unbound declaration has no analysis record")
	}
	if !a.IsSet {
		t.Error("the runtime assignment must survive lowering")
	}
}

func TestRepeaterContentMarksPseudoPropertiesSet(t *testing.T) {
	content := &objecttree.Component{ID: "row"}
	content.RootElement = objecttree.NewElement("row-root", objecttree.BaseType{Kind: objecttree.BaseBuiltin, Builtin: "Rectangle"}, content)

	c := fixtureComponent("main")
	rep := objecttree.NewElement("rep", objecttree.BaseType{Kind: objecttree.BaseComponent, Component: content}, c)
	rep.Repeated = true
	content.ParentElement = rep
	rep.Bindings["model"] = analyzedBinding(&objecttree.ArrayExpr{
		ElementTy: langtype.Float32(),
		Values:    []objecttree.Expression{&objecttree.NumberLiteralExpr{Value: 1}},
	})
	c.RootElement.Children = append(c.RootElement.Children, rep)

	pub := LowerToItemTree(&objecttree.Document{RootComponent: c})

	repSC := pub.Root.Repeated[0].Root
	if repSC.Properties[0].Name != "index" || repSC.Properties[1].Name != "model-data" {
		t.Fatalf("pseudo property slots misplaced: %#v", repSC.Properties)
	}
	for _, slot := range []int{repeaterIndexPropertySlot, repeaterModelPropertySlot} {
		a := repSC.PropAnalysis[LocalPropertyReference{PropertyIndex: slot}.String()]
		if !a.IsSet {
			t.Errorf("pseudo property %d is written by the repeater and must be marked set", slot)
		}
	}
}

func TestInstanceReboundPropertyCarriesBaseAnalysis(t *testing.T) {
	sub := &objecttree.Component{ID: "button"}
	sub.RootElement = objecttree.NewElement("button-root", objecttree.BaseType{Kind: objecttree.BaseNone}, sub)
	sub.RootElement.PropertyDeclarations["width"] = &objecttree.PropertyDeclaration{Name: "width", Ty: langtype.Float32()}

	c := fixtureComponent("main")
	c.UsedSubComponents = []*objecttree.Component{sub}
	btn := objecttree.NewElement("btn", objecttree.BaseType{Kind: objecttree.BaseComponent, Component: sub}, c)
	btn.Bindings["width"] = analyzedBinding(&objecttree.NumberLiteralExpr{Value: 42})
	c.RootElement.Children = append(c.RootElement.Children, btn)
	objecttree.MarkPropertySetDerivedInBase(btn, "width")

	pub := LowerToItemTree(&objecttree.Document{RootComponent: c})

	ref := LocalPropertyReference{SubComponentPath: []int{0}, PropertyIndex: 0}
	if pub.Root.BindingIndex(ref) < 0 {
		t.Fatalf("the instance binding must target the nested slot, inits: %#v", pub.Root.PropertyInit)
	}
	if a := pub.Root.PropAnalysis[ref.String()]; !a.IsSetExternally {
		t.Error("the rebinding marks the base property set externally")
	}
	buttonSC := pub.UsedSubComponents[0]
	if a := buttonSC.PropAnalysis[LocalPropertyReference{PropertyIndex: 0}.String()]; !a.IsSetExternally {
		t.Error("the base component's own record must carry the external set")
	}
}

func TestAnalysisMergesNativeOutputsAndAliases(t *testing.T) {
	c := fixtureComponent("main")
	area := objecttree.NewElement("area", objecttree.BaseType{Kind: objecttree.BaseBuiltin, Builtin: "TouchArea"}, c)
	if a := analysisFor(area, "pressed"); !a.IsSet {
		t.Error("a native output property is written by the runtime")
	}
	if a := analysisFor(area, "x"); a.IsSet {
		t.Error("a plain native property is not written by the runtime")
	}

	target := c.RootElement
	target.PropertyDeclarations["value"] = &objecttree.PropertyDeclaration{Name: "value", Ty: langtype.Float32()}
	target.EnsurePropertyAnalysis("value").IsSet = true
	alias := objecttree.NewNamedReference(target, "value")
	proxy := objecttree.NewElement("proxy", objecttree.BaseType{Kind: objecttree.BaseNone}, c)
	proxy.PropertyDeclarations["mirror"] = &objecttree.PropertyDeclaration{Name: "mirror", Ty: langtype.Float32(), IsAlias: &alias}
	if a := analysisFor(proxy, "mirror"); !a.IsSet {
		t.Error("an aliased declaration carries its target's analysis")
	}
}

func TestMapPropertyReferenceIsPure(t *testing.T) {
	state := NewLoweringState()
	outer := fixtureComponent("outer")
	outerCtx := fixtureContext(outer, state, nil, "count")
	inner := fixtureComponent("inner")
	innerCtx := fixtureContext(inner, state, outerCtx, "own")

	nr := objecttree.NewNamedReference(outer.RootElement, "count")
	first := innerCtx.MapPropertyReference(nr)
	second := innerCtx.MapPropertyReference(nr)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("mapping the same reference twice must agree (-first +second):\n%s", diff)
	}
}

func TestLoweringIsDeterministic(t *testing.T) {
	build := func() *objecttree.Document {
		sub := &objecttree.Component{ID: "button"}
		sub.RootElement = objecttree.NewElement("button-root", objecttree.BaseType{Kind: objecttree.BaseNone}, sub)
		sub.RootElement.PropertyDeclarations["width"] = &objecttree.PropertyDeclaration{Name: "width", Ty: langtype.Float32()}

		c := fixtureComponent("main")
		c.UsedSubComponents = []*objecttree.Component{sub}
		root := c.RootElement
		root.PropertyDeclarations["a"] = &objecttree.PropertyDeclaration{Name: "a", Ty: langtype.Float32()}
		root.PropertyDeclarations["b"] = &objecttree.PropertyDeclaration{Name: "b", Ty: langtype.Float32()}
		root.Bindings["b"] = analyzedBinding(&objecttree.BinaryExpr{
			Lhs: &objecttree.PropertyReferenceExpr{Reference: objecttree.NewNamedReference(root, "a")},
			Rhs: &objecttree.NumberLiteralExpr{Value: 1},
			Op:  '+',
		})
		btn := objecttree.NewElement("btn", objecttree.BaseType{Kind: objecttree.BaseComponent, Component: sub}, c)
		btn.Bindings["width"] = analyzedBinding(&objecttree.NumberLiteralExpr{Value: 42})
		root.Children = append(root.Children, btn)
		return &objecttree.Document{RootComponent: c}
	}

	first := LowerToItemTree(build())
	second := LowerToItemTree(build())
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("two lowerings of the same document differ (-first +second):\n%s", diff)
	}
}
