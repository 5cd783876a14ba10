// Package modelbinary implements the model-binary middleware from spec
// §4.6: X.rbxm maps to exactly one top-level instance via a binary codec.
// The real Roblox binary format (RBXM/RBXL) is one of the spec's explicitly
// named excluded collaborators — a third-party codec fabricated for this
// exercise would violate the "never fabricate dependencies" rule — so this
// package implements a placeholder codec over stdlib encoding/gob,
// documented in DESIGN.md, that preserves this middleware's contract
// (single top-level instance, decode-error and unsupported-shape failure
// modes) without claiming binary compatibility with Roblox's own format.
package modelbinary

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"path"
	"strings"

	"github.com/rojosync/rojo/pkg/dom"
	"github.com/rojosync/rojo/pkg/middleware"
	"github.com/rojosync/rojo/pkg/rojoerrors"
)

// ID is this middleware's stable identifier.
const ID = "modelbinary"

// wireVariant and wireNode mirror dom.Variant/dom.Snapshot in a
// gob-friendly shape (gob can't encode the unexported internals of a
// recursive pointer tree without a flat field list).
type wireVariant struct {
	Kind       dom.VariantKind
	Bool       bool
	Int64      int64
	Float64    float64
	String     string
	Vector3    dom.Vector3
	Color3     dom.Color3
	UDim2      dom.UDim2
	Ref        [16]byte
	Attributes map[string]wireVariant
	StringList []string
}

type wireNode struct {
	ClassName  string
	Name       string
	Properties map[string]wireVariant
	Children   []wireNode
}

// New constructs the model-binary middleware.
func New() *middleware.Middleware {
	return &middleware.Middleware{
		ID:           ID,
		IncludeGlobs: []string{"**/*.rbxm"},
		FilesOnly:    true,
		Snapshot:     snapshot,
		Priority: func(className string, hasDescendants bool) (int, bool) {
			return middleware.PriorityModelBinary, true
		},
		SyncbackCreate: syncback,
		SyncbackUpdate: func(ctx middleware.SyncbackContext, previous, snap *dom.Snapshot) (middleware.SyncbackResult, error) {
			return syncback(ctx, snap)
		},
		SyncbackDestroy: func(ctx middleware.SyncbackContext) error { return nil },
	}
}

// EncodeSnapshot serializes snap (and its whole subtree) using this
// package's placeholder binary codec. Used directly by the build command
// for the monolithic place/model output file (spec §4's top-level
// fs→binary direction), which encodes a single root instance exactly the
// way this middleware encodes a single embedded .rbxm — a place file is
// just that root happening to be a DataModel with every service as a
// child, not a structurally different container.
func EncodeSnapshot(snap *dom.Snapshot) ([]byte, error) {
	var buffer bytes.Buffer
	if err := gob.NewEncoder(&buffer).Encode(snapshotToWire(snap)); err != nil {
		return nil, fmt.Errorf("%w: %v", rojoerrors.ErrDecode, err)
	}
	return buffer.Bytes(), nil
}

// DecodeSnapshot parses data produced by EncodeSnapshot back into a
// detached Snapshot tree.
func DecodeSnapshot(data []byte) (*dom.Snapshot, error) {
	var wire wireNode
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: %v", rojoerrors.ErrDecode, err)
	}
	return wireToSnapshot(wire), nil
}

func snapshot(ctx middleware.SnapshotContext, filePath string) (*dom.Snapshot, error) {
	if !strings.HasSuffix(strings.ToLower(filePath), ".rbxm") {
		return nil, nil
	}
	content, err := ctx.FS.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", rojoerrors.ErrIO, filePath, err)
	}

	var wire wireNode
	if err := gob.NewDecoder(bytes.NewReader(content)).Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", rojoerrors.ErrDecode, filePath, err)
	}

	name := strings.TrimSuffix(path.Base(filePath), ".rbxm")
	wire.Name = name
	snap := wireToSnapshot(wire)
	snap.Metadata.MiddlewareID = ID
	snap.Metadata.RelevantPaths = []string{filePath}
	return snap, nil
}

func wireToSnapshot(wire wireNode) *dom.Snapshot {
	snap := dom.NewSnapshot(wire.ClassName, wire.Name)
	for key, value := range wire.Properties {
		snap.Properties[key] = wireToVariant(value)
	}
	for _, child := range wire.Children {
		snap.Children = append(snap.Children, wireToSnapshot(child))
	}
	return snap
}

func wireToVariant(w wireVariant) dom.Variant {
	v := dom.Variant{
		Kind:       w.Kind,
		Bool:       w.Bool,
		Int64:      w.Int64,
		Float64:    w.Float64,
		String:     w.String,
		Vector3:    w.Vector3,
		Color3:     w.Color3,
		UDim2:      w.UDim2,
		Ref:        dom.Referent(w.Ref),
		StringList: w.StringList,
	}
	if w.Attributes != nil {
		v.Attributes = make(map[string]dom.Variant, len(w.Attributes))
		for key, value := range w.Attributes {
			v.Attributes[key] = wireToVariant(value)
		}
	}
	return v
}

func variantToWire(v dom.Variant) wireVariant {
	w := wireVariant{
		Kind:       v.Kind,
		Bool:       v.Bool,
		Int64:      v.Int64,
		Float64:    v.Float64,
		String:     v.String,
		Vector3:    v.Vector3,
		Color3:     v.Color3,
		UDim2:      v.UDim2,
		Ref:        [16]byte(v.Ref),
		StringList: v.StringList,
	}
	if v.Attributes != nil {
		w.Attributes = make(map[string]wireVariant, len(v.Attributes))
		for key, value := range v.Attributes {
			w.Attributes[key] = variantToWire(value)
		}
	}
	return w
}

func snapshotToWire(snap *dom.Snapshot) wireNode {
	wire := wireNode{ClassName: snap.ClassName, Name: snap.Name, Properties: make(map[string]wireVariant, len(snap.Properties))}
	for key, value := range snap.Properties {
		wire.Properties[key] = variantToWire(value)
	}
	for _, child := range snap.Children {
		wire.Children = append(wire.Children, snapshotToWire(child))
	}
	return wire
}

func syncback(ctx middleware.SyncbackContext, snap *dom.Snapshot) (middleware.SyncbackResult, error) {
	var buffer bytes.Buffer
	if err := gob.NewEncoder(&buffer).Encode(snapshotToWire(snap)); err != nil {
		return middleware.SyncbackResult{}, fmt.Errorf("%w: %v", rojoerrors.ErrDecode, err)
	}
	filePath := path.Join(ctx.Path, snap.Name+".rbxm")
	ctx.Builder.SetFile(filePath, buffer.Bytes())
	snap.Metadata.MiddlewareID = ID
	return middleware.SyncbackResult{Snapshot: snap}, nil
}
