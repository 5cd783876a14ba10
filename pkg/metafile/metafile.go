// Package metafile implements the .meta.json sidecar model described in
// spec §4.2: parse, write, merge onto a snapshot, and rebuild from a live
// instance on syncback. There's no teacher equivalent (mutagen has no
// sidecar-metadata concept); the shape follows the corpus's own practice of
// hand-rolled JSON structs with ordered-field concerns (see pkg/encoding's
// toml/yaml wrappers) plus the ordering and merge rules from spec.md.
package metafile

import (
	"encoding/json"
	"fmt"

	"github.com/rojosync/rojo/pkg/dom"
	"github.com/rojosync/rojo/pkg/propertyfilter"
	"github.com/rojosync/rojo/pkg/reflection"
	"github.com/rojosync/rojo/pkg/rojoerrors"
)

// File is the in-memory form of a .meta.json sidecar.
type File struct {
	IgnoreUnknownInstances bool
	ClassName              string
	Properties             *orderedValues
	Attributes             *orderedValues

	// SourcePath is carried in-memory only, for error messages; it is never
	// serialized (spec §3: "a path field is carried in-memory only").
	SourcePath string
}

// New constructs an empty sidecar.
func New() *File {
	return &File{Properties: newOrderedValues(), Attributes: newOrderedValues()}
}

// wireFile mirrors File's JSON shape, with empty fields omitted.
type wireFile struct {
	IgnoreUnknownInstances bool           `json:"ignoreUnknownInstances,omitempty"`
	ClassName              string         `json:"className,omitempty"`
	Properties             *orderedValues `json:"properties,omitempty"`
	Attributes             *orderedValues `json:"attributes,omitempty"`
}

// Parse decodes a .meta.json file's bytes, tagging errors with sourcePath
// for diagnostics.
func Parse(data []byte, sourcePath string) (*File, error) {
	var wire wireFile
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", rojoerrors.ErrDecode, sourcePath, err)
	}
	file := &File{
		IgnoreUnknownInstances: wire.IgnoreUnknownInstances,
		ClassName:              wire.ClassName,
		Properties:             wire.Properties,
		Attributes:             wire.Attributes,
		SourcePath:             sourcePath,
	}
	if file.Properties == nil {
		file.Properties = newOrderedValues()
	}
	if file.Attributes == nil {
		file.Attributes = newOrderedValues()
	}
	return file, nil
}

// Write pretty-prints the sidecar. An empty file (no flag, no class
// override, no properties, no attributes) should not be written at all;
// callers check IsEmpty first.
func (f *File) Write() ([]byte, error) {
	wire := wireFile{
		IgnoreUnknownInstances: f.IgnoreUnknownInstances,
		ClassName:              f.ClassName,
	}
	if f.Properties.Len() > 0 {
		wire.Properties = f.Properties
	}
	if f.Attributes.Len() > 0 {
		wire.Attributes = f.Attributes
	}
	data, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rojoerrors.ErrDecode, err)
	}
	return append(data, '\n'), nil
}

// IsEmpty reports whether the sidecar carries no information, per spec
// §4.2's "empty meta files are deleted on disk".
func (f *File) IsEmpty() bool {
	return !f.IgnoreUnknownInstances && f.ClassName == "" && f.Properties.Len() == 0 && f.Attributes.Len() == 0
}

// MergeOnto applies the sidecar's fields onto snapshot in place. className
// override is only legal when the snapshot's current class is the default
// folder class (spec §4.2). When the sidecar carries properties, the
// snapshot's class must be known to db or the merge fails as malformed; the
// property names themselves are not checked against db.
func MergeOnto(snapshot *dom.Snapshot, file *File, db *reflection.Database) error {
	snapshot.Metadata.IgnoreUnknownInstances = file.IgnoreUnknownInstances

	if file.ClassName != "" {
		if snapshot.ClassName != "Folder" {
			return fmt.Errorf("%w: %s: className override only permitted on Folder, instance is %s",
				rojoerrors.ErrForbiddenEdit, file.SourcePath, snapshot.ClassName)
		}
		snapshot.ClassName = file.ClassName
	}

	for _, key := range file.Properties.Keys() {
		value, _ := file.Properties.Get(key)
		if !db.IsKnownClass(snapshot.ClassName) {
			return fmt.Errorf("%w: %s: unknown class %q", rojoerrors.ErrMalformedProject, file.SourcePath, snapshot.ClassName)
		}
		snapshot.Properties[key] = value
	}

	if file.Attributes.Len() > 0 {
		attributes := make(map[string]dom.Variant, file.Attributes.Len())
		for _, key := range file.Attributes.Keys() {
			value, _ := file.Attributes.Get(key)
			attributes[key] = value
		}
		snapshot.Properties["Attributes"] = dom.NewAttributes(attributes)
	}

	return nil
}

// RebuildOptions configures Rebuild's output per spec §4.2: previous holds
// the file as it existed on disk before this syncback (for key ordering and
// minimize_diff), filter supplies the skip-set, and minimizeDiff enables
// dropping entries that match the previous resolved value.
type RebuildOptions struct {
	Previous     *File
	Filter       *propertyfilter.Filter
	MinimizeDiff bool
}

// Rebuild produces a fresh sidecar from a live instance's properties on
// syncback: (a) start from the previous file's key order, (b) append new
// keys in instance property-map order, (c) filter via the skip-set, (d)
// coerce wide string values that look like shared strings to plain binary
// strings (spec §4.2). className is populated only when the instance's
// produced class differs from the default folder class that the directory
// middleware would otherwise assume.
func Rebuild(className string, properties map[string]dom.Variant, classNameOverride bool, options RebuildOptions) *File {
	file := New()
	if classNameOverride {
		file.ClassName = className
	}

	ordered := orderedPropertyNames(properties, options.Previous)
	for _, name := range ordered {
		value, ok := properties[name]
		if !ok {
			continue
		}
		if options.Filter != nil && options.Filter.ShouldSkip(className, name, value) {
			continue
		}
		if options.MinimizeDiff && options.Previous != nil {
			if previousValue, ok := options.Previous.Properties.Get(name); ok && previousValue.Equal(value) {
				continue
			}
		}
		file.Properties.Set(name, coerceWideString(value))
	}

	return file
}

// orderedPropertyNames lists property keys starting from previous's
// recorded order, then appends any keys not seen there in map iteration
// order (the instance doesn't itself preserve insertion order, so new keys
// have no canonical order beyond "after the known ones").
func orderedPropertyNames(properties map[string]dom.Variant, previous *File) []string {
	seen := make(map[string]struct{}, len(properties))
	var ordered []string

	if previous != nil {
		for _, key := range previous.Properties.Keys() {
			if _, ok := properties[key]; !ok {
				continue
			}
			if _, already := seen[key]; already {
				continue
			}
			ordered = append(ordered, key)
			seen[key] = struct{}{}
		}
	}

	for key := range properties {
		if _, already := seen[key]; already {
			continue
		}
		ordered = append(ordered, key)
		seen[key] = struct{}{}
	}

	return ordered
}

// coerceWideString is a placeholder for the shared-string-to-binary-string
// coercion spec §4.2 calls for; this implementation's Variant model has no
// distinct shared-string kind, so it is the identity function, documented
// here so the rule isn't silently lost if that kind is added later.
func coerceWideString(value dom.Variant) dom.Variant {
	return value
}
