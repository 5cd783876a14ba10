package dom

import "github.com/google/uuid"

// Referent is a 128-bit opaque identity for an instance within a tree, per
// spec §3. It's backed by a UUID the same way the teacher's session
// identifiers are (pkg/session/controller.go), generalized from session
// identity to instance identity.
type Referent [16]byte

// NilReferent is the zero referent, used to mean "no reference".
var NilReferent Referent

// NewReferent allocates a fresh, random referent.
func NewReferent() Referent {
	return Referent(uuid.New())
}

// String renders the referent in canonical UUID form.
func (r Referent) String() string {
	return uuid.UUID(r).String()
}

// ParseReferent parses a canonical UUID string into a Referent.
func ParseReferent(s string) (Referent, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return Referent{}, err
	}
	return Referent(id), nil
}

// Instance is one node in the Roblox-style tree: a class name, a display
// name, a property map, and an ordered list of child referents. Identity
// lives outside the Instance itself, in the Tree's node table, per the
// arena-style storage design called for in spec §9.
type Instance struct {
	ClassName string
	Name      string
	Properties map[string]Variant
	Children  []Referent
}

// NewInstance constructs an empty Instance of the given class and name.
func NewInstance(className, name string) *Instance {
	return &Instance{
		ClassName:  className,
		Name:       name,
		Properties: make(map[string]Variant),
	}
}

// Clone produces a deep copy of the instance's own properties and child
// list (but not the subtree the children point to — that lives in the
// Tree, not the Instance).
func (i *Instance) Clone() *Instance {
	props := make(map[string]Variant, len(i.Properties))
	for k, v := range i.Properties {
		props[k] = v
	}
	children := make([]Referent, len(i.Children))
	copy(children, i.Children)
	return &Instance{
		ClassName:  i.ClassName,
		Name:       i.Name,
		Properties: props,
		Children:   children,
	}
}

// PropertiesEqual reports whether two instances have the same class, name,
// and property map (but says nothing about children).
func (i *Instance) PropertiesEqual(other *Instance) bool {
	if i.ClassName != other.ClassName || i.Name != other.Name {
		return false
	}
	if len(i.Properties) != len(other.Properties) {
		return false
	}
	for key, value := range i.Properties {
		otherValue, ok := other.Properties[key]
		if !ok || !value.Equal(otherValue) {
			return false
		}
	}
	return true
}

// Snapshot is a value describing an instance and its subtree, unbound from
// any tree store. Middlewares produce and consume Snapshots; the Tree turns
// a Snapshot into live, addressable nodes via InsertInstance.
type Snapshot struct {
	ClassName  string
	Name       string
	Properties map[string]Variant
	Children   []*Snapshot
	Metadata   Metadata
}

// NewSnapshot constructs an empty Snapshot of the given class and name.
func NewSnapshot(className, name string) *Snapshot {
	return &Snapshot{
		ClassName:  className,
		Name:       name,
		Properties: make(map[string]Variant),
	}
}
