// Package langtype holds the static type representation attached to
// expressions and property declarations by the (out of scope) type checker.
// The middle-end only queries it: for default values when the inliner
// replaces a binding-less property reference, and to carry target types
// through casts and struct construction into the lowered representation.
package langtype

// TypeKind discriminates the closed Type variant
type TypeKind int

const (
	TypeInvalid TypeKind = iota
	TypeVoid
	TypeFloat32
	TypeInt32
	TypeString
	TypeBool
	TypeColor
	TypeDuration
	TypeAngle
	TypeLength
	TypeLogicalLength
	TypePercent
	TypeImage
	TypeEasing
	TypeModel
	TypeStruct
	TypeEnumeration
	TypeLayoutCache
	TypePathData
	TypeCallback
)

// Type is a resolved static type. The zero value is TypeInvalid.
type Type struct {
	Kind TypeKind

	// ElemType is set for TypeModel
	ElemType *Type

	// Fields and Name are set for TypeStruct. Field order is not
	// significant; lookups go through the map.
	Fields map[string]Type
	Name   string

	// Enum is set for TypeEnumeration
	Enum *Enumeration
}

// Enumeration is a named, closed set of values
type Enumeration struct {
	Name         string
	Values       []string
	DefaultValue int
}

// Float32 is a convenience constructor
func Float32() Type { return Type{Kind: TypeFloat32} }

// Int32 is a convenience constructor
func Int32() Type { return Type{Kind: TypeInt32} }

// String is a convenience constructor
func String() Type { return Type{Kind: TypeString} }

// Bool is a convenience constructor
func Bool() Type { return Type{Kind: TypeBool} }

// Model returns a model (array) type over elem
func Model(elem Type) Type {
	return Type{Kind: TypeModel, ElemType: &elem}
}

// Struct returns a struct type with the given name and fields
func Struct(name string, fields map[string]Type) Type {
	return Type{Kind: TypeStruct, Name: name, Fields: fields}
}

// HasDefaultValue reports whether a well-defined zero value exists for this
// type. Only such types may substitute a reference to a property without a
// binding during inlining.
func (t Type) HasDefaultValue() bool {
	switch t.Kind {
	case TypeFloat32, TypeInt32, TypeString, TypeBool, TypeColor,
		TypeDuration, TypeAngle, TypeLength, TypeLogicalLength, TypePercent,
		TypeEasing, TypeEnumeration:
		return true
	case TypeStruct:
		for _, f := range t.Fields {
			if !f.HasDefaultValue() {
				return false
			}
		}
		return true
	default:
		return false
	}
}
