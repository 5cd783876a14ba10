// Package jsonmodel implements the JSON-model middleware from spec §4.6:
// X.model.json describes an arbitrary subtree as
// {className, properties, attributes, children}, with legacy PascalCase
// aliases accepted on read and a top-level name field ignored (with a
// warning). Uses stdlib encoding/json, matching the corpus's own practice
// of hand-rolled JSON structs for ad hoc formats (see pkg/encoding).
package jsonmodel

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/rojosync/rojo/pkg/dom"
	"github.com/rojosync/rojo/pkg/logging"
	"github.com/rojosync/rojo/pkg/middleware"
	"github.com/rojosync/rojo/pkg/propertyfilter"
	"github.com/rojosync/rojo/pkg/rojoerrors"
)

// ID is this middleware's stable identifier.
const ID = "jsonmodel"

// node mirrors the on-disk shape of a .model.json subtree. Legacy aliases
// (Name at top level, "Children" vs "children") are accepted by the custom
// unmarshaler below.
type node struct {
	ClassName  string                     `json:"className,omitempty"`
	Properties map[string]json.RawMessage `json:"properties,omitempty"`
	Attributes map[string]json.RawMessage `json:"attributes,omitempty"`
	Children   []*node                    `json:"children,omitempty"`

	name string
}

type wireNode struct {
	ClassName  string                     `json:"className,omitempty"`
	Name       string                     `json:"name,omitempty"`
	Properties map[string]json.RawMessage `json:"properties,omitempty"`
	Attributes map[string]json.RawMessage `json:"attributes,omitempty"`
	Children   []*node                    `json:"children,omitempty"`
}

func (n *node) UnmarshalJSON(data []byte) error {
	var wire wireNode
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	n.ClassName = wire.ClassName
	n.Properties = wire.Properties
	n.Attributes = wire.Attributes
	n.Children = wire.Children
	n.name = wire.Name
	return nil
}

// New constructs the JSON-model middleware. logger is optional; a non-nil
// logger receives a warning when a top-level "name" field is present and
// ignored (spec §4.6: "top-level name is ignored and warned on").
func New(logger *logging.Logger, filter *propertyfilter.Filter) *middleware.Middleware {
	return &middleware.Middleware{
		ID:           ID,
		IncludeGlobs: []string{"**/*.model.json"},
		FilesOnly:    true,
		Snapshot: func(ctx middleware.SnapshotContext, filePath string) (*dom.Snapshot, error) {
			return snapshot(ctx, filePath, logger)
		},
		Priority: func(className string, hasDescendants bool) (int, bool) {
			return middleware.PriorityJSONModel, true
		},
		SyncbackCreate: func(ctx middleware.SyncbackContext, snap *dom.Snapshot) (middleware.SyncbackResult, error) {
			return syncback(ctx, snap, filter)
		},
		SyncbackUpdate: func(ctx middleware.SyncbackContext, previous, snap *dom.Snapshot) (middleware.SyncbackResult, error) {
			return syncback(ctx, snap, filter)
		},
		SyncbackDestroy: func(ctx middleware.SyncbackContext) error { return nil },
	}
}

func snapshot(ctx middleware.SnapshotContext, filePath string, logger *logging.Logger) (*dom.Snapshot, error) {
	if !strings.HasSuffix(strings.ToLower(filePath), ".model.json") {
		return nil, nil
	}
	content, err := ctx.FS.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", rojoerrors.ErrIO, filePath, err)
	}

	var wire wireNode
	if err := json.Unmarshal(content, &wire); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", rojoerrors.ErrDecode, filePath, err)
	}
	if wire.Name != "" && logger != nil {
		logger.Warn(fmt.Errorf("%s: top-level \"name\" field is ignored; the instance name is taken from the file name", filePath))
	}

	name := strings.TrimSuffix(path.Base(filePath), ".model.json")
	root := &node{ClassName: wire.ClassName, Properties: wire.Properties, Attributes: wire.Attributes, Children: wire.Children, name: name}

	snap, err := nodeToSnapshot(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", rojoerrors.ErrDecode, filePath, err)
	}
	snap.Metadata.MiddlewareID = ID
	snap.Metadata.RelevantPaths = []string{filePath}
	return snap, nil
}

func nodeToSnapshot(n *node) (*dom.Snapshot, error) {
	if n.ClassName == "" {
		return nil, fmt.Errorf("%w: model node missing className", rojoerrors.ErrMalformedProject)
	}
	snap := dom.NewSnapshot(n.ClassName, n.name)

	for key, raw := range n.Properties {
		value, err := decodeJSONValue(raw)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", key, err)
		}
		snap.Properties[key] = value
	}

	if len(n.Attributes) > 0 {
		attributes := make(map[string]dom.Variant, len(n.Attributes))
		for key, raw := range n.Attributes {
			value, err := decodeJSONValue(raw)
			if err != nil {
				return nil, fmt.Errorf("attribute %q: %w", key, err)
			}
			attributes[key] = value
		}
		snap.Properties["Attributes"] = dom.NewAttributes(attributes)
	}

	for _, child := range n.Children {
		childSnap, err := nodeToSnapshot(child)
		if err != nil {
			return nil, err
		}
		snap.Children = append(snap.Children, childSnap)
	}

	return snap, nil
}

// decodeJSONValue resolves a raw JSON property value to a Variant by
// inspecting its shape: a JSON string becomes a String variant, a number a
// Float64, a bool a Bool, and an array of strings a StringArray. Composite
// Roblox types (Vector3 etc.) aren't distinguishable from plain JSON
// without a type tag, so callers needing those should use a .meta.json
// sidecar's typed value descriptors instead.
func decodeJSONValue(raw json.RawMessage) (dom.Variant, error) {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return dom.NewString(asString), nil
	}
	var asBool bool
	if err := json.Unmarshal(raw, &asBool); err == nil {
		return dom.NewBool(asBool), nil
	}
	var asFloat float64
	if err := json.Unmarshal(raw, &asFloat); err == nil {
		return dom.NewFloat64(asFloat), nil
	}
	var asStringList []string
	if err := json.Unmarshal(raw, &asStringList); err == nil {
		return dom.NewStringList(asStringList), nil
	}
	return dom.Nil, fmt.Errorf("%w: unsupported JSON value shape", rojoerrors.ErrUnresolvedValue)
}

func syncback(ctx middleware.SyncbackContext, snap *dom.Snapshot, filter *propertyfilter.Filter) (middleware.SyncbackResult, error) {
	root, err := snapshotToNode(snap, filter)
	if err != nil {
		return middleware.SyncbackResult{}, err
	}
	data, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return middleware.SyncbackResult{}, fmt.Errorf("%w: %v", rojoerrors.ErrDecode, err)
	}
	filePath := path.Join(ctx.Path, snap.Name+".model.json")
	ctx.Builder.SetFile(filePath, append(data, '\n'))
	snap.Metadata.MiddlewareID = ID
	return middleware.SyncbackResult{Snapshot: snap}, nil
}

func snapshotToNode(snap *dom.Snapshot, filter *propertyfilter.Filter) (*wireNode, error) {
	wire := &wireNode{ClassName: snap.ClassName}

	filtered := snap.Properties
	if filter != nil {
		filtered = filter.FilterProperties(snap.ClassName, snap.Properties)
	}

	for key, value := range filtered {
		if key == "Attributes" {
			continue
		}
		raw, err := encodeJSONValue(value)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", key, err)
		}
		if wire.Properties == nil {
			wire.Properties = make(map[string]json.RawMessage)
		}
		wire.Properties[key] = raw
	}

	if attrs, ok := filtered["Attributes"]; ok && attrs.Kind == dom.VariantKindAttributes {
		wire.Attributes = make(map[string]json.RawMessage, len(attrs.Attributes))
		for key, value := range attrs.Attributes {
			raw, err := encodeJSONValue(value)
			if err != nil {
				return nil, fmt.Errorf("attribute %q: %w", key, err)
			}
			wire.Attributes[key] = raw
		}
	}

	for _, child := range snap.Children {
		childWire, err := snapshotToNode(child, filter)
		if err != nil {
			return nil, err
		}
		childWire.Name = child.Name
		childNode := &node{ClassName: childWire.ClassName, Properties: childWire.Properties, Attributes: childWire.Attributes, Children: childWire.Children, name: child.Name}
		wire.Children = append(wire.Children, childNode)
	}

	return wire, nil
}

func encodeJSONValue(value dom.Variant) (json.RawMessage, error) {
	switch value.Kind {
	case dom.VariantKindString:
		return json.Marshal(value.String)
	case dom.VariantKindBool:
		return json.Marshal(value.Bool)
	case dom.VariantKindInt64:
		return json.Marshal(value.Int64)
	case dom.VariantKindFloat64:
		return json.Marshal(value.Float64)
	case dom.VariantKindStringArray:
		return json.Marshal(value.StringList)
	default:
		return nil, fmt.Errorf("%w: cannot represent variant kind %d in JSON model", rojoerrors.ErrUnresolvedValue, value.Kind)
	}
}
