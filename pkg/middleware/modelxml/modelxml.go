// Package modelxml implements the model-XML middleware from spec §4.6:
// X.rbxmx maps to exactly one top-level instance via an XML codec. As with
// modelbinary, the real Roblox XML schema is an excluded named
// collaborator; this package implements a plausible, internally consistent
// XML tree using github.com/beevik/etree (the pack's own XML library,
// grounded via its use in cs3org-reva's WOPI lock provider) rather than
// claiming compatibility with Roblox's actual RBXMX schema.
package modelxml

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/rojosync/rojo/pkg/dom"
	"github.com/rojosync/rojo/pkg/middleware"
	"github.com/rojosync/rojo/pkg/rojoerrors"
)

// ID is this middleware's stable identifier.
const ID = "modelxml"

// New constructs the model-XML middleware.
func New() *middleware.Middleware {
	return &middleware.Middleware{
		ID:           ID,
		IncludeGlobs: []string{"**/*.rbxmx"},
		FilesOnly:    true,
		Snapshot:     snapshot,
		Priority: func(className string, hasDescendants bool) (int, bool) {
			return middleware.PriorityModelXML, true
		},
		SyncbackCreate: syncback,
		SyncbackUpdate: func(ctx middleware.SyncbackContext, previous, snap *dom.Snapshot) (middleware.SyncbackResult, error) {
			return syncback(ctx, snap)
		},
		SyncbackDestroy: func(ctx middleware.SyncbackContext) error { return nil },
	}
}

// EncodeSnapshot serializes snap (and its whole subtree) as a
// "<roblox>"-rooted XML document with a single top-level Item, the same
// shape this middleware writes for an embedded .rbxmx. Used directly by
// the build command for the monolithic place/model output file: a place
// file's root Item simply happens to be a DataModel with every service
// nested as a child Item, not a structurally different document.
func EncodeSnapshot(snap *dom.Snapshot) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	root := doc.CreateElement("roblox")
	root.CreateAttr("version", "4")

	if err := snapshotToElement(root, snap); err != nil {
		return nil, err
	}

	doc.Indent(2)
	data, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rojoerrors.ErrDecode, err)
	}
	return data, nil
}

// DecodeSnapshot parses data produced by EncodeSnapshot back into a
// detached Snapshot tree.
func DecodeSnapshot(data []byte) (*dom.Snapshot, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %v", rojoerrors.ErrDecode, err)
	}
	root := doc.SelectElement("roblox")
	if root == nil {
		return nil, fmt.Errorf("%w: missing root <roblox> element", rojoerrors.ErrDecode)
	}
	items := root.SelectElements("Item")
	if len(items) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one top-level instance, found %d", rojoerrors.ErrUnresolvedValue, len(items))
	}
	return elementToSnapshot(items[0])
}

func snapshot(ctx middleware.SnapshotContext, filePath string) (*dom.Snapshot, error) {
	if !strings.HasSuffix(strings.ToLower(filePath), ".rbxmx") {
		return nil, nil
	}
	content, err := ctx.FS.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", rojoerrors.ErrIO, filePath, err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(content); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", rojoerrors.ErrDecode, filePath, err)
	}

	root := doc.SelectElement("roblox")
	if root == nil {
		return nil, fmt.Errorf("%w: %s: missing root <roblox> element", rojoerrors.ErrDecode, filePath)
	}
	items := root.SelectElements("Item")
	if len(items) != 1 {
		return nil, fmt.Errorf("%w: %s: expected exactly one top-level instance, found %d", rojoerrors.ErrUnresolvedValue, filePath, len(items))
	}

	name := strings.TrimSuffix(path.Base(filePath), ".rbxmx")
	snap, err := elementToSnapshot(items[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", rojoerrors.ErrDecode, filePath, err)
	}
	snap.Name = name
	snap.Metadata.MiddlewareID = ID
	snap.Metadata.RelevantPaths = []string{filePath}
	return snap, nil
}

func elementToSnapshot(item *etree.Element) (*dom.Snapshot, error) {
	className := item.SelectAttrValue("class", "")
	if className == "" {
		return nil, fmt.Errorf("%w: Item element missing class attribute", rojoerrors.ErrDecode)
	}

	snap := dom.NewSnapshot(className, "")
	if properties := item.SelectElement("Properties"); properties != nil {
		for _, child := range properties.ChildElements() {
			name := child.SelectAttrValue("name", "")
			if name == "" {
				continue
			}
			value, err := elementToVariant(child)
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", name, err)
			}
			if name == "Name" {
				snap.Name = value.String
				continue
			}
			snap.Properties[name] = value
		}
	}

	for _, childItem := range item.SelectElements("Item") {
		childSnap, err := elementToSnapshot(childItem)
		if err != nil {
			return nil, err
		}
		snap.Children = append(snap.Children, childSnap)
	}

	return snap, nil
}

func elementToVariant(el *etree.Element) (dom.Variant, error) {
	switch el.Tag {
	case "string", "ProtectedString":
		return dom.NewString(el.Text()), nil
	case "bool":
		return dom.NewBool(el.Text() == "true"), nil
	case "int", "int64":
		n, err := strconv.ParseInt(el.Text(), 10, 64)
		if err != nil {
			return dom.Nil, err
		}
		return dom.NewInt64(n), nil
	case "float", "double":
		f, err := strconv.ParseFloat(el.Text(), 64)
		if err != nil {
			return dom.Nil, err
		}
		return dom.NewFloat64(f), nil
	default:
		return dom.NewString(el.Text()), nil
	}
}

func syncback(ctx middleware.SyncbackContext, snap *dom.Snapshot) (middleware.SyncbackResult, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	root := doc.CreateElement("roblox")
	root.CreateAttr("version", "4")

	if err := snapshotToElement(root, snap); err != nil {
		return middleware.SyncbackResult{}, err
	}

	doc.Indent(2)
	data, err := doc.WriteToBytes()
	if err != nil {
		return middleware.SyncbackResult{}, fmt.Errorf("%w: %v", rojoerrors.ErrDecode, err)
	}

	filePath := path.Join(ctx.Path, snap.Name+".rbxmx")
	ctx.Builder.SetFile(filePath, data)
	snap.Metadata.MiddlewareID = ID
	return middleware.SyncbackResult{Snapshot: snap}, nil
}

func snapshotToElement(parent *etree.Element, snap *dom.Snapshot) error {
	item := parent.CreateElement("Item")
	item.CreateAttr("class", snap.ClassName)

	properties := item.CreateElement("Properties")
	nameEl := properties.CreateElement("string")
	nameEl.CreateAttr("name", "Name")
	nameEl.SetText(snap.Name)

	for key, value := range snap.Properties {
		if err := variantToElement(properties, key, value); err != nil {
			return fmt.Errorf("property %q: %w", key, err)
		}
	}

	for _, child := range snap.Children {
		if err := snapshotToElement(item, child); err != nil {
			return err
		}
	}

	return nil
}

func variantToElement(parent *etree.Element, name string, value dom.Variant) error {
	var tag, text string
	switch value.Kind {
	case dom.VariantKindString:
		tag, text = "string", value.String
	case dom.VariantKindBool:
		tag = "bool"
		if value.Bool {
			text = "true"
		} else {
			text = "false"
		}
	case dom.VariantKindInt64:
		tag, text = "int64", strconv.FormatInt(value.Int64, 10)
	case dom.VariantKindFloat64:
		tag, text = "double", strconv.FormatFloat(value.Float64, 'g', -1, 64)
	default:
		return fmt.Errorf("%w: cannot represent variant kind %d in XML model", rojoerrors.ErrUnresolvedValue, value.Kind)
	}
	el := parent.CreateElement(tag)
	el.CreateAttr("name", name)
	el.SetText(text)
	return nil
}
