// Package dom holds the in-memory instance tree: the Variant value model,
// Instance/Snapshot types, per-node Metadata, and the Tree store itself.
package dom

import "github.com/rojosync/rojo/pkg/comparison"

// VariantKind tags the concrete shape held by a Variant. Variant is a
// closed sum type over Roblox's property value shapes; the tag is never
// erased, per spec §9.
type VariantKind uint8

const (
	VariantKindNil VariantKind = iota
	VariantKindBool
	VariantKindInt64
	VariantKindFloat64
	VariantKindString
	VariantKindVector3
	VariantKindColor3
	VariantKindUDim2
	VariantKindRef
	VariantKindAttributes
	VariantKindStringArray
)

// Vector3 is a three-component scalar composite.
type Vector3 struct{ X, Y, Z float64 }

// Color3 is an RGB composite in the [0, 1] range per channel.
type Color3 struct{ R, G, B float64 }

// UDim2 is Roblox's two-axis scale+offset composite.
type UDim2 struct {
	XScale, YScale   float64
	XOffset, YOffset int64
}

// Variant is a tagged union over the property value shapes this
// implementation supports. Exactly one of the typed fields is meaningful,
// selected by Kind.
type Variant struct {
	Kind       VariantKind
	Bool       bool
	Int64      int64
	Float64    float64
	String     string
	Vector3    Vector3
	Color3     Color3
	UDim2      UDim2
	Ref        Referent
	Attributes map[string]Variant
	StringList []string
}

// Nil is the zero-value Variant, used for properties with no value.
var Nil = Variant{Kind: VariantKindNil}

// NewBool constructs a boolean Variant.
func NewBool(v bool) Variant { return Variant{Kind: VariantKindBool, Bool: v} }

// NewInt64 constructs an integer Variant.
func NewInt64(v int64) Variant { return Variant{Kind: VariantKindInt64, Int64: v} }

// NewFloat64 constructs a floating-point Variant.
func NewFloat64(v float64) Variant { return Variant{Kind: VariantKindFloat64, Float64: v} }

// NewString constructs a string Variant.
func NewString(v string) Variant { return Variant{Kind: VariantKindString, String: v} }

// NewRef constructs a reference Variant pointing at the given referent.
func NewRef(v Referent) Variant { return Variant{Kind: VariantKindRef, Ref: v} }

// NewAttributes constructs an Attributes-kind Variant from a map of
// sub-values. The map is copied defensively.
func NewAttributes(v map[string]Variant) Variant {
	copied := make(map[string]Variant, len(v))
	for k, val := range v {
		copied[k] = val
	}
	return Variant{Kind: VariantKindAttributes, Attributes: copied}
}

// NewStringList constructs a string-array Variant (used for Tags).
func NewStringList(v []string) Variant {
	list := make([]string, len(v))
	copy(list, v)
	return Variant{Kind: VariantKindStringArray, StringList: list}
}

// Equal performs structural equality, matching both Kind and value.
func (v Variant) Equal(other Variant) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case VariantKindNil:
		return true
	case VariantKindBool:
		return v.Bool == other.Bool
	case VariantKindInt64:
		return v.Int64 == other.Int64
	case VariantKindFloat64:
		return v.Float64 == other.Float64
	case VariantKindString:
		return v.String == other.String
	case VariantKindVector3:
		return v.Vector3 == other.Vector3
	case VariantKindColor3:
		return v.Color3 == other.Color3
	case VariantKindUDim2:
		return v.UDim2 == other.UDim2
	case VariantKindRef:
		return v.Ref == other.Ref
	case VariantKindStringArray:
		return comparison.StringSlicesEqual(v.StringList, other.StringList)
	case VariantKindAttributes:
		if len(v.Attributes) != len(other.Attributes) {
			return false
		}
		for key, value := range v.Attributes {
			otherValue, ok := other.Attributes[key]
			if !ok || !value.Equal(otherValue) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
