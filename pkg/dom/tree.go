package dom

import (
	"fmt"
	"strings"

	"github.com/rojosync/rojo/pkg/logging"
	"github.com/rojosync/rojo/pkg/rojoerrors"
)

// node is the Tree's internal storage unit: an Instance plus its Metadata,
// plus a parent pointer for ancestor walks (diff's mark_ancestors, syncback
// root pruning). Arena-style storage per spec §9: nodes are addressed by
// Referent through the Tree's map, never through owning pointers between
// nodes.
type node struct {
	instance *Instance
	metadata Metadata
	parent   Referent
	hasParent bool
}

// ReservedIDAttribute is the attribute name the ref-linker and the tree
// store's user-id map treat as a stable, user- or syncback-assigned
// instance identifier (spec §6 "Reserved attribute names").
const ReservedIDAttribute = "id"

// Tree is the instance graph with per-node Metadata, a path→ids multimap,
// and a user-id→id map, per spec §3's Tree store invariants.
type Tree struct {
	logger *logging.Logger

	root Referent

	nodes map[Referent]*node

	pathToIDs map[string]map[Referent]struct{}

	userIDsToIDs map[string]Referent
}

// NewTree constructs an empty Tree. SetRoot must be called once before any
// other tree operation.
func NewTree(logger *logging.Logger) *Tree {
	return &Tree{
		logger:       logger,
		nodes:        make(map[Referent]*node),
		pathToIDs:    make(map[string]map[Referent]struct{}),
		userIDsToIDs: make(map[string]Referent),
	}
}

// SetRoot installs snapshot as the tree's single root, per the "a single
// root exists" invariant. It must be called exactly once, before any other
// insertion.
func (t *Tree) SetRoot(snapshot *Snapshot) Referent {
	id := t.InsertInstance(Referent{}, false, snapshot)
	t.root = id
	t.ResolveReferences(id)
	return id
}

// Root returns the tree's root referent.
func (t *Tree) Root() Referent { return t.root }

// Get returns the instance and metadata for id, or ok=false if id isn't
// (or is no longer) present in the tree.
func (t *Tree) Get(id Referent) (*Instance, Metadata, bool) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, Metadata{}, false
	}
	return n.instance, n.metadata, true
}

// Parent returns id's parent referent, or ok=false for the root (which has
// no parent) or an absent id.
func (t *Tree) Parent(id Referent) (Referent, bool) {
	n, ok := t.nodes[id]
	if !ok || !n.hasParent {
		return Referent{}, false
	}
	return n.parent, true
}

// InsertInstance allocates a fresh referent for snapshot, records its
// metadata, populates the path index, binds any user-assigned reference id
// found in its Attributes property, and recurses depth-first over its
// children (spec §4.7). hasParent is false only for the tree's root.
func (t *Tree) InsertInstance(parent Referent, hasParent bool, snapshot *Snapshot) Referent {
	id := NewReferent()

	instance := &Instance{
		ClassName:  snapshot.ClassName,
		Name:       snapshot.Name,
		Properties: make(map[string]Variant, len(snapshot.Properties)),
	}
	for k, v := range snapshot.Properties {
		instance.Properties[k] = v
	}

	t.nodes[id] = &node{instance: instance, metadata: snapshot.Metadata, parent: parent, hasParent: hasParent}

	t.indexPaths(id, snapshot.Metadata.RelevantPaths)
	t.bindUserID(id, instance)

	for _, child := range snapshot.Children {
		childID := t.InsertInstance(id, true, child)
		instance.Children = append(instance.Children, childID)
	}

	return id
}

// bindUserID looks for the reserved id attribute inside instance's
// Attributes property and, if present, binds it in the user-id map,
// warning (rather than rejecting) on collision per the Open Question
// decision recorded in SPEC_FULL.md.
func (t *Tree) bindUserID(id Referent, instance *Instance) {
	attrs, ok := instance.Properties["Attributes"]
	if !ok || attrs.Kind != VariantKindAttributes {
		return
	}
	idValue, ok := attrs.Attributes[ReservedIDAttribute]
	if !ok || idValue.Kind != VariantKindString {
		return
	}
	if existing, exists := t.userIDsToIDs[idValue.String]; exists && existing != id {
		if t.logger != nil {
			t.logger.Warn(fmt.Errorf("duplicate user-assigned id %q; keeping most recent binding", idValue.String))
		}
	}
	t.userIDsToIDs[idValue.String] = id
}

func (t *Tree) indexPaths(id Referent, paths []string) {
	for _, path := range paths {
		bucket, ok := t.pathToIDs[path]
		if !ok {
			bucket = make(map[Referent]struct{})
			t.pathToIDs[path] = bucket
		}
		bucket[id] = struct{}{}
	}
}

func (t *Tree) unindexPaths(id Referent, paths []string) {
	for _, path := range paths {
		bucket, ok := t.pathToIDs[path]
		if !ok {
			continue
		}
		delete(bucket, id)
		if len(bucket) == 0 {
			delete(t.pathToIDs, path)
		}
	}
}

// IDsForPath returns every node id whose relevant_paths includes path.
func (t *Tree) IDsForPath(path string) []Referent {
	bucket, ok := t.pathToIDs[path]
	if !ok {
		return nil
	}
	ids := make([]Referent, 0, len(bucket))
	for id := range bucket {
		ids = append(ids, id)
	}
	return ids
}

// IDForUserID resolves a user-assigned reference id to a node id.
func (t *Tree) IDForUserID(userID string) (Referent, bool) {
	id, ok := t.userIDsToIDs[userID]
	return id, ok
}

// RefToAttributePrefix names the sibling attribute the ref-linker writes
// for every Ref property, recording the target's reserved id attribute
// value, per spec §4.9 step 1 / §6's "Reserved attribute names". Codecs
// that can't carry a live Referent across a tree boundary (the binary/XML
// model codecs serialize whatever raw referent bytes a Ref property held,
// which are meaningless once reinserted into a different tree) rely on
// this attribute, together with ResolveReferences, to recover the
// reference after a round trip.
const RefToAttributePrefix = "ref-to:"

// StampReferentLinks walks id's subtree, ensuring every node's Attributes
// carries the reserved id attribute and that every Ref property has a
// sibling RefToAttributePrefix+propertyName attribute recording the
// target's id. Mutates node properties in place since Get returns the live
// *Instance, not a copy.
func (t *Tree) StampReferentLinks(id Referent) {
	instance, _, ok := t.Get(id)
	if !ok {
		return
	}

	attributes := map[string]Variant{}
	if existing, ok := instance.Properties["Attributes"]; ok && existing.Kind == VariantKindAttributes {
		for k, v := range existing.Attributes {
			attributes[k] = v
		}
	}
	if _, ok := attributes[ReservedIDAttribute]; !ok {
		attributes[ReservedIDAttribute] = NewString(id.String())
	}
	for propertyName, value := range instance.Properties {
		if value.Kind != VariantKindRef {
			continue
		}
		targetID := value.Ref.String()
		if target, _, ok := t.Get(value.Ref); ok {
			if targetAttrs, ok := target.Properties["Attributes"]; ok && targetAttrs.Kind == VariantKindAttributes {
				if existingID, ok := targetAttrs.Attributes[ReservedIDAttribute]; ok && existingID.Kind == VariantKindString {
					targetID = existingID.String
				}
			}
		}
		attributes[RefToAttributePrefix+propertyName] = NewString(targetID)
	}
	instance.Properties["Attributes"] = NewAttributes(attributes)

	for _, childID := range instance.Children {
		t.StampReferentLinks(childID)
	}
}

// ResolveReferences walks id's subtree and, for every
// RefToAttributePrefix-named attribute, resolves the recorded id through
// the user-id map and restores a live Ref property pointing at this tree's
// referent for that target — the "subsequent in-memory link step" spec §8
// scenario F names. A target id absent from this tree (spec §7's
// broken-ref kind) is logged as a warning, not treated as fatal, and the
// property is left as whatever the codec happened to decode.
func (t *Tree) ResolveReferences(id Referent) {
	instance, _, ok := t.Get(id)
	if !ok {
		return
	}

	if attrs, ok := instance.Properties["Attributes"]; ok && attrs.Kind == VariantKindAttributes {
		for key, value := range attrs.Attributes {
			propertyName, isRefTo := strings.CutPrefix(key, RefToAttributePrefix)
			if !isRefTo || value.Kind != VariantKindString {
				continue
			}
			target, found := t.IDForUserID(value.String)
			if !found {
				if t.logger != nil {
					t.logger.Warn(fmt.Errorf("%w: %s.%s targets unresolved id %q", rojoerrors.ErrBrokenRef, instance.Name, propertyName, value.String))
				}
				continue
			}
			instance.Properties[propertyName] = NewRef(target)
		}
	}

	for _, childID := range instance.Children {
		t.ResolveReferences(childID)
	}
}

// Remove destroys id and every descendant, depth-first with each node's
// children removed before the node itself, purging each from the path
// multimap as it goes (spec §4.7).
func (t *Tree) Remove(id Referent) error {
	n, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("remove: node %s not present", id)
	}

	for _, child := range n.instance.Children {
		if err := t.Remove(child); err != nil {
			return err
		}
	}

	t.unindexPaths(id, n.metadata.RelevantPaths)
	for userID, mapped := range t.userIDsToIDs {
		if mapped == id {
			delete(t.userIDsToIDs, userID)
		}
	}
	delete(t.nodes, id)

	return nil
}

// UpdateMetadata replaces id's metadata, recomputing the path index delta
// so it stays exact (spec §4.7).
func (t *Tree) UpdateMetadata(id Referent, meta Metadata) error {
	n, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("update_metadata: node %s not present", id)
	}
	t.unindexPaths(id, n.metadata.RelevantPaths)
	n.metadata = meta
	t.indexPaths(id, meta.RelevantPaths)
	return nil
}

// Snapshot converts the live node id (and its subtree) into a detached
// Snapshot value, the shape middlewares and whole-tree codecs operate on
// rather than tree-bound referents. Returns nil if id isn't present.
func (t *Tree) Snapshot(id Referent) *Snapshot {
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}
	snap := &Snapshot{
		ClassName:  n.instance.ClassName,
		Name:       n.instance.Name,
		Properties: n.instance.Properties,
		Metadata:   n.metadata,
	}
	for _, childID := range n.instance.Children {
		if childSnap := t.Snapshot(childID); childSnap != nil {
			snap.Children = append(snap.Children, childSnap)
		}
	}
	return snap
}

// Walk performs a depth-first traversal starting at id, invoking visit for
// id and every descendant. A parent is always visited before its children
// (there is no post-order callback); if reverse is true, each node's
// children are walked in reverse order, matching the teacher's entry.go
// walk's reverse flag.
func (t *Tree) Walk(id Referent, reverse bool, visit func(Referent, *Instance, Metadata) error) error {
	n, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("walk: node %s not present", id)
	}
	if err := visit(id, n.instance, n.metadata); err != nil {
		return err
	}
	children := n.instance.Children
	if reverse {
		for i := len(children) - 1; i >= 0; i-- {
			if err := t.Walk(children[i], reverse, visit); err != nil {
				return err
			}
		}
	} else {
		for _, child := range children {
			if err := t.Walk(child, reverse, visit); err != nil {
				return err
			}
		}
	}
	return nil
}
