// Package project implements the project-file middleware from spec §4.6
// and the project-file schema described in spec §6: a *.project.json file
// describes a tree of named nodes, each optionally bound to a filesystem
// path handled by another middleware, with special services auto-inferred
// under DataModel/StarterPlayer/Workspace. Syncback never rewrites the
// project file itself: creating or removing a project node fails with a
// forbidden-edit error, and updating one only re-dispatches the descendants
// bound through a $path.
package project

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/rojosync/rojo/pkg/dom"
	"github.com/rojosync/rojo/pkg/encoding"
	"github.com/rojosync/rojo/pkg/logging"
	"github.com/rojosync/rojo/pkg/middleware"
	"github.com/rojosync/rojo/pkg/reflection"
	"github.com/rojosync/rojo/pkg/rojoerrors"
	"github.com/rojosync/rojo/pkg/vfs"
)

// ID is this middleware's stable identifier.
const ID = "project"

// legacyProjectYAMLSuffix is the extension used by the project file format
// that *.project.json replaced. It's no longer loadable, but a project
// directory that still carries one gets a migration warning.
const legacyProjectYAMLSuffix = ".project.yaml"

// legacyProjectFile is the handful of legacyProjectYAMLSuffix fields worth
// recovering for a migration warning; the rest of the old schema isn't
// reconstructable into a *.project.json tree and isn't attempted.
type legacyProjectFile struct {
	Name string `yaml:"name"`
}

// File is the parsed form of a *.project.json document.
type File struct {
	Name              string                 `json:"name"`
	Tree              Node                    `json:"tree"`
	GlobIgnorePaths   []string               `json:"globIgnorePaths,omitempty"`
	SyncRules         []SyncRuleEntry        `json:"syncRules,omitempty"`
	EmitLegacyScripts *bool                  `json:"emitLegacyScripts,omitempty"`
	SyncbackRules     SyncbackRules          `json:"syncbackRules,omitempty"`
}

// SyncRuleEntry mirrors middleware.SyncRule's wire shape.
type SyncRuleEntry struct {
	Pattern string `json:"pattern"`
	Use     string `json:"use"`
}

// SyncbackRules is the syncbackRules sub-object from spec §6.
type SyncbackRules struct {
	IgnoreTrees       []string `json:"ignoreTrees,omitempty"`
	IgnorePaths       []string `json:"ignorePaths,omitempty"`
	IgnoreProperties  map[string][]string `json:"ignoreProperties,omitempty"`
	SyncCurrentCamera bool     `json:"syncCurrentCamera,omitempty"`
	SyncUnscriptable  bool     `json:"syncUnscriptable,omitempty"`
}

// Node is one tree node in a project file.
type Node struct {
	ClassName              string                     `json:"$className,omitempty"`
	Path                   string                     `json:"$path,omitempty"`
	OptionalPath           string                     `json:"$optional,omitempty"`
	Properties             map[string]json.RawMessage `json:"$properties,omitempty"`
	Attributes             map[string]json.RawMessage `json:"$attributes,omitempty"`
	IgnoreUnknownInstances *bool                      `json:"$ignoreUnknownInstances,omitempty"`

	Children map[string]Node `json:"-"`
}

// UnmarshalJSON splits dollar-prefixed reserved keys from named child
// nodes, since a project node's children are arbitrary JSON object keys
// rather than a fixed field.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	type alias Node
	var base alias
	if err := json.Unmarshal(data, &base); err != nil {
		return err
	}
	*n = Node(base)
	n.Children = make(map[string]Node)

	for key, value := range raw {
		if strings.HasPrefix(key, "$") {
			continue
		}
		var child Node
		if err := json.Unmarshal(value, &child); err != nil {
			return fmt.Errorf("child %q: %w", key, err)
		}
		n.Children[key] = child
	}

	return nil
}

// Parse decodes a project file's bytes.
func Parse(data []byte, sourcePath string) (*File, error) {
	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", rojoerrors.ErrMalformedProject, sourcePath, err)
	}
	return &file, nil
}

// dispatcher is the subset of middleware.Registry's behavior project needs
// to resolve a $path entry, injected to avoid a hard dependency loop on any
// one middleware package.
type dispatcher interface {
	DispatchRead(path string, isDir bool) (*middleware.Middleware, error)
}

// New constructs the project middleware. registry resolves $path entries
// to the middleware that should snapshot them; db infers auto-service
// children. logger is optional; a non-nil logger receives a warning when a
// project directory still carries a legacyProjectYAMLSuffix file alongside
// (or instead of) its *.project.json.
func New(registry dispatcher, db *reflection.Database, logger *logging.Logger) *middleware.Middleware {
	return &middleware.Middleware{
		ID:           ID,
		IncludeGlobs: []string{"**/*.project.json"},
		FilesOnly:    true,
		Snapshot: func(ctx middleware.SnapshotContext, filePath string) (*dom.Snapshot, error) {
			return snapshot(ctx, filePath, registry, db, logger)
		},
		Priority: func(className string, hasDescendants bool) (int, bool) {
			return middleware.PriorityAlways, true
		},
		SyncbackCreate: func(ctx middleware.SyncbackContext, snap *dom.Snapshot) (middleware.SyncbackResult, error) {
			return middleware.SyncbackResult{}, fmt.Errorf("%w: project nodes cannot be created by syncback", rojoerrors.ErrForbiddenEdit)
		},
		SyncbackUpdate: func(ctx middleware.SyncbackContext, previous, snap *dom.Snapshot) (middleware.SyncbackResult, error) {
			snap.Metadata.MiddlewareID = ID
			var work []middleware.WorkItem
			collectPathBoundWork(snap, &work)
			return middleware.SyncbackResult{Snapshot: snap, Work: work}, nil
		},
		SyncbackDestroy: func(ctx middleware.SyncbackContext) error {
			return fmt.Errorf("%w: project nodes cannot be removed by syncback", rojoerrors.ErrForbiddenEdit)
		},
	}
}

func snapshot(ctx middleware.SnapshotContext, filePath string, registry dispatcher, db *reflection.Database, logger *logging.Logger) (*dom.Snapshot, error) {
	if !strings.HasSuffix(strings.ToLower(filePath), ".project.json") {
		return nil, nil
	}
	warnIfLegacyProjectYAML(ctx, filePath, logger)
	content, err := ctx.FS.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", rojoerrors.ErrIO, filePath, err)
	}

	file, err := Parse(content, filePath)
	if err != nil {
		return nil, err
	}

	name := file.Name
	if name == "" {
		name = strings.TrimSuffix(path.Base(filePath), ".project.json")
	}

	ctx.Context = refineContext(ctx.Context, file)

	snap, err := nodeToSnapshot(ctx, file.Tree, name, path.Dir(filePath), registry, db)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", rojoerrors.ErrMalformedProject, filePath, err)
	}
	snap.Metadata.MiddlewareID = ID
	snap.Metadata.RelevantPaths = []string{filePath}
	snap.Metadata.Context = ctx.Context
	addAutoServices(snap, db)
	return snap, nil
}

// warnIfLegacyProjectYAML checks for a legacyProjectYAMLSuffix file sitting
// alongside filePath's *.project.json and, if logger is non-nil and one is
// found, logs a migration warning. The legacy file's "name" field is
// recovered if it decodes cleanly, purely to make the warning more useful;
// a malformed legacy file still gets flagged.
func warnIfLegacyProjectYAML(ctx middleware.SnapshotContext, filePath string, logger *logging.Logger) {
	if logger == nil {
		return
	}
	legacyPath := filePath[:len(filePath)-len(".project.json")] + legacyProjectYAMLSuffix
	if _, err, exists := ctx.FS.Stat(legacyPath); err != nil || !exists {
		return
	}

	var legacy legacyProjectFile
	if err := encoding.LoadAndUnmarshalYAML(legacyPath, &legacy); err != nil {
		logger.Warn(fmt.Errorf("%s: legacy project file is no longer read and should be removed (unreadable as YAML: %v)", legacyPath, err))
		return
	}
	if legacy.Name != "" {
		logger.Warn(fmt.Errorf("%s: legacy project file for %q is no longer read; migrate its settings into %s and remove it", legacyPath, legacy.Name, filePath))
		return
	}
	logger.Warn(fmt.Errorf("%s: legacy project file is no longer read and should be removed", legacyPath))
}

// refineContext folds file's project-level settings onto the ambient
// context inherited from an enclosing project (spec §4.6 "refined at
// directory boundaries"): glob-ignore patterns accumulate and
// ignoreProperties rules are merged onto the ambient ones. emitLegacyScripts
// is overridden only when the file sets it; syncCurrentCamera and
// syncUnscriptable are always taken from this file, so an absent key reads
// as false.
func refineContext(ambient dom.Context, file *File) dom.Context {
	refined := ambient
	refined.GlobIgnorePaths = append(append([]string(nil), ambient.GlobIgnorePaths...), file.GlobIgnorePaths...)

	if file.EmitLegacyScripts != nil {
		refined.EmitLegacyScripts = *file.EmitLegacyScripts
	}

	refined.SyncCurrentCamera = file.SyncbackRules.SyncCurrentCamera
	refined.SyncUnscriptable = file.SyncbackRules.SyncUnscriptable

	if len(file.SyncbackRules.IgnoreProperties) > 0 {
		filters := make(map[string]map[string]dom.FilterRule, len(ambient.PropertyFilters)+len(file.SyncbackRules.IgnoreProperties))
		for class, rules := range ambient.PropertyFilters {
			filters[class] = rules
		}
		for class, properties := range file.SyncbackRules.IgnoreProperties {
			rules := make(map[string]dom.FilterRule, len(properties))
			for existingProperty, existingRule := range filters[class] {
				rules[existingProperty] = existingRule
			}
			for _, property := range properties {
				rules[property] = dom.FilterRule{Ignore: true}
			}
			filters[class] = rules
		}
		refined.PropertyFilters = filters
	}

	return refined
}

func nodeToSnapshot(ctx middleware.SnapshotContext, n Node, name, baseDir string, registry dispatcher, db *reflection.Database) (*dom.Snapshot, error) {
	var snap *dom.Snapshot

	if n.Path != "" {
		childPath := path.Join(baseDir, n.Path)
		isDir, err := isDirectory(ctx, childPath)
		if err != nil {
			return nil, err
		}
		childMiddleware, err := registry.DispatchRead(childPath, isDir)
		if err != nil {
			return nil, err
		}
		if childMiddleware == nil {
			return nil, fmt.Errorf("%w: no middleware matched $path %q", rojoerrors.ErrUnresolvedValue, n.Path)
		}
		snap, err = childMiddleware.Snapshot(ctx, childPath)
		if err != nil {
			return nil, err
		}
		if snap == nil {
			return nil, fmt.Errorf("%w: $path %q did not resolve to an instance", rojoerrors.ErrUnresolvedValue, n.Path)
		}
		snap.Metadata.InstigatingSource.ProjectPath = childPath
	} else {
		className := n.ClassName
		if className == "" {
			className = "Folder"
		}
		snap = dom.NewSnapshot(className, name)
	}

	snap.Name = name
	snap.Metadata.InstigatingSource.NodeName = name

	for key, raw := range n.Properties {
		value, err := decodeProjectValue(raw)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", key, err)
		}
		snap.Properties[key] = value
	}
	if len(n.Attributes) > 0 {
		attributes := make(map[string]dom.Variant, len(n.Attributes))
		for key, raw := range n.Attributes {
			value, err := decodeProjectValue(raw)
			if err != nil {
				return nil, fmt.Errorf("attribute %q: %w", key, err)
			}
			attributes[key] = value
		}
		snap.Properties["Attributes"] = dom.NewAttributes(attributes)
	}
	if n.IgnoreUnknownInstances != nil {
		snap.Metadata.IgnoreUnknownInstances = *n.IgnoreUnknownInstances
	}

	for childName, childNode := range n.Children {
		childSnap, err := nodeToSnapshot(ctx, childNode, childName, baseDir, registry, db)
		if err != nil {
			return nil, err
		}
		snap.Children = append(snap.Children, childSnap)
	}

	return snap, nil
}

func decodeProjectValue(raw json.RawMessage) (dom.Variant, error) {
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

func isDirectory(ctx middleware.SnapshotContext, p string) (bool, error) {
	kind, err, exists := ctx.FS.Stat(p)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", rojoerrors.ErrIO, p, err)
	}
	if !exists {
		return false, fmt.Errorf("%w: %s does not exist", rojoerrors.ErrIO, p)
	}
	return kind == vfs.EntryKindDirectory, nil
}

// addAutoServices inserts well-known service children under DataModel,
// StarterPlayer, and Workspace nodes that weren't already named explicitly
// in the project tree, per spec §6.
func addAutoServices(root *dom.Snapshot, db *reflection.Database) {
	var walk func(*dom.Snapshot)
	walk = func(snap *dom.Snapshot) {
		existing := make(map[string]bool, len(snap.Children))
		for _, child := range snap.Children {
			existing[child.Name] = true
		}

		switch snap.ClassName {
		case "DataModel":
			services := db.Services()
			sort.Strings(services)
			for _, serviceName := range services {
				ensureChild(snap, existing, serviceName)
			}
		case "StarterPlayer":
			ensureChild(snap, existing, "StarterPlayerScripts")
			ensureChild(snap, existing, "StarterCharacterScripts")
		case "Workspace":
			ensureChild(snap, existing, "Terrain")
		}

		for _, child := range snap.Children {
			walk(child)
		}
	}
	walk(root)
}

// collectPathBoundWork walks snap's subtree looking for nodes whose
// InstigatingSource names a $path (as opposed to a project-inline node
// with no filesystem counterpart of its own), queuing each as a work item
// rooted at that path's own parent directory so the reconciler's normal
// registry.DispatchWrite can pick the right middleware for it. A project
// node itself can't add or remove children, but everything reachable
// through a $path is free to change underneath it.
func collectPathBoundWork(snap *dom.Snapshot, work *[]middleware.WorkItem) {
	for _, child := range snap.Children {
		if child.Metadata.InstigatingSource.ProjectPath != "" {
			*work = append(*work, middleware.WorkItem{
				New:        child,
				ParentPath: path.Dir(child.Metadata.InstigatingSource.ProjectPath),
			})
			continue
		}
		collectPathBoundWork(child, work)
	}
}

func ensureChild(parent *dom.Snapshot, existing map[string]bool, className string) {
	if existing[className] {
		return
	}
	parent.Children = append(parent.Children, dom.NewSnapshot(className, className))
	existing[className] = true
}
