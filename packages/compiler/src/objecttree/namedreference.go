package objecttree

import "fmt"

// NamedReference identifies one property or callback anywhere in the
// document. It is a comparable value type so it can key maps and ordered
// sets directly.
type NamedReference struct {
	Element *Element
	Name    string
}

// NewNamedReference creates a reference to element.name
func NewNamedReference(element *Element, name string) NamedReference {
	return NamedReference{Element: element, Name: name}
}

// String renders the reference for debug output and diagnostics
func (nr NamedReference) String() string {
	return fmt.Sprintf("%s.%s", nr.Element.ID, nr.Name)
}

// IsConstant reports whether the property has a constant value for the
// lifetime of the program
func (nr NamedReference) IsConstant() bool {
	return nr.isConstantImpl(true)
}

// IsExternallyModified reports whether the property is known to be changed
// by other means than its own binding
func (nr NamedReference) IsExternallyModified() bool {
	return !nr.isConstantImpl(false)
}

// isConstantImpl walks the inheritance chain the property may be declared
// on. checkBinding requires the binding itself to have been proven constant
// by analysis; IsExternallyModified skips that part since it only asks about
// writes from the outside.
func (nr NamedReference) isConstantImpl(checkBinding bool) bool {
	elem := nr.Element
	if decl, ok := elem.PropertyDeclarations[nr.Name]; ok {
		if decl.ExposeInPublicAPI && decl.Visibility != VisibilityInput {
			// could be set by the public API
			return false
		}
	}
	if a, ok := elem.PropertyAnalysis[nr.Name]; ok && a.IsSetExternally {
		return false
	}

	for {
		if a, ok := elem.PropertyAnalysis[nr.Name]; ok && a.IsSet {
			// set somewhere, so not constant
			return false
		}

		if b, ok := elem.Bindings[nr.Name]; ok {
			if checkBinding && (b.Analysis == nil || !b.Analysis.IsConst) {
				return false
			}
			for _, alias := range b.TwoWayBindings {
				if !alias.IsConstant() {
					return false
				}
			}
			checkBinding = false
		}

		if decl, ok := elem.PropertyDeclarations[nr.Name]; ok {
			if decl.IsAlias != nil {
				return decl.IsAlias.IsConstant()
			}
			return true
		}

		switch elem.Base.Kind {
		case BaseComponent:
			elem = elem.Base.Component.RootElement
		case BaseBuiltin:
			return !nativeOutputProperties[elem.Base.Builtin][nr.Name]
		default:
			return true
		}
	}
}

// MarkAsSet records that the property is assigned somewhere in the code,
// and propagates the external-set flag into every base the property is
// inherited from
func (nr NamedReference) MarkAsSet() {
	nr.Element.EnsurePropertyAnalysis(nr.Name).IsSet = true
	MarkPropertySetDerivedInBase(nr.Element, nr.Name)
}

// BumpUseCount adjusts the use count of the binding (and mirroring
// declaration) defining this property, walking the inheritance chain to the
// element that actually carries it. Panics if a count would go negative.
func (nr NamedReference) BumpUseCount(delta int) {
	elem := nr.Element
	for {
		if b, ok := elem.Bindings[nr.Name]; ok {
			b.BumpUseCount(delta)
			if decl, ok := elem.PropertyDeclarations[nr.Name]; ok {
				bumpDeclUseCount(decl, delta)
			}
			return
		}
		if decl, ok := elem.PropertyDeclarations[nr.Name]; ok {
			bumpDeclUseCount(decl, delta)
			return
		}
		if elem.Base.Kind != BaseComponent {
			return
		}
		elem = elem.Base.Component.RootElement
	}
}

func bumpDeclUseCount(decl *PropertyDeclaration, delta int) {
	decl.UseCount += delta
	if decl.UseCount < 0 {
		panic(fmt.Sprintf("AssertionError: declaration use count went negative for '%s'", decl.Name))
	}
}

// MarkPropertySetDerivedInBase marks the property as set-externally in every
// base component that declares it. The walk stops as soon as a level already
// carries the flag; the chain above it was marked by a previous call.
func MarkPropertySetDerivedInBase(elem *Element, name string) {
	for {
		if elem.Base.Kind != BaseComponent {
			return
		}
		next := elem.Base.Component.RootElement
		a := next.EnsurePropertyAnalysis(name)
		if a.IsSetExternally {
			return
		}
		a.IsSetExternally = true
		elem = next
	}
}

// MarkPropertyReadDerivedInBase marks the property as read-externally in
// every base component that declares it
func MarkPropertyReadDerivedInBase(elem *Element, name string) {
	for {
		if elem.Base.Kind != BaseComponent {
			return
		}
		next := elem.Base.Component.RootElement
		a := next.EnsurePropertyAnalysis(name)
		if a.IsReadExternally {
			return
		}
		a.IsReadExternally = true
		elem = next
	}
}
