package dom

import "github.com/rojosync/rojo/pkg/fssnapshot"

// InstigatingSource identifies what produced a node's snapshot: either a
// bare filesystem path, or a project-node locator (project file path, node
// name, node value, and parent class), per spec §3.
type InstigatingSource struct {
	// Path is set when the node came directly from a filesystem artifact.
	Path string
	// ProjectPath, NodeName, and ParentClassName are set when the node came
	// from a project-file tree node instead.
	ProjectPath     string
	NodeName        string
	ParentClassName string
}

// IsProjectNode reports whether this source locates a project-tree node
// rather than a bare filesystem path.
func (s InstigatingSource) IsProjectNode() bool {
	return s.ProjectPath != ""
}

// FilterRule is one property-filter directive, per spec §4.8.
type FilterRule struct {
	// Ignore unconditionally skips the named property.
	Ignore bool
	// IgnoreWhenEqual skips the property only when its value matches one of
	// these values.
	IgnoreWhenEqual []Variant
}

// Context is the inheritable, per-node configuration a middleware consults:
// path-ignore rules, sync rules, the emit-legacy-scripts flag, syncback
// property filters, and transformer overrides. It's propagated down the
// tree from the project root and refined at directory boundaries.
type Context struct {
	// GlobIgnorePaths are doublestar glob patterns; matching paths are
	// skipped entirely during both snapshot and syncback.
	GlobIgnorePaths []string
	// EmitLegacyScripts enables classic Script/LocalScript naming without
	// client/server suffix disambiguation (see SPEC_FULL.md §3 addition).
	EmitLegacyScripts bool
	// PropertyFilters maps class name to the filter rules that apply to
	// instances of that class (and, by inheritance, its subclasses).
	PropertyFilters map[string]map[string]FilterRule
	// SyncCurrentCamera and SyncUnscriptable mirror the project file's
	// syncbackRules flags of the same name.
	SyncCurrentCamera bool
	SyncUnscriptable  bool
}

// MiddlewareContext is opaque per-middleware side data owned by a node's
// Metadata — for example a directory's chosen init-file kind and path. It's
// deliberately untyped at this layer; each middleware package defines and
// type-asserts its own concrete shape.
type MiddlewareContext interface {
	// MiddlewareContextID names the middleware this context belongs to, so
	// Tree code can sanity-check a reattachment without importing every
	// concrete middleware package.
	MiddlewareContextID() string
}

// Metadata is the per-node record the Tree keeps alongside (not inside) an
// Instance, per spec §3.
type Metadata struct {
	IgnoreUnknownInstances bool
	InstigatingSource      InstigatingSource
	RelevantPaths          []string
	Context                Context
	MiddlewareID           string
	MiddlewareContext      MiddlewareContext
	FsSnapshot             fssnapshot.Snapshot
}

// Clone produces a deep-enough copy of Metadata for use after a diff
// application: slices are copied, the MiddlewareContext value is shared
// (middlewares treat it as immutable once attached).
func (m Metadata) Clone() Metadata {
	clone := m
	clone.RelevantPaths = append([]string(nil), m.RelevantPaths...)
	clone.Context.GlobIgnorePaths = append([]string(nil), m.Context.GlobIgnorePaths...)
	clone.FsSnapshot = m.FsSnapshot.Clone()
	return clone
}
