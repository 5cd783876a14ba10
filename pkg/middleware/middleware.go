// Package middleware is the registry and dispatch core described in spec
// §4.5: an ordered list of middleware records, read dispatch by glob match,
// write dispatch by priority with previous-middleware stickiness. There's
// no direct teacher equivalent for a plugin-dispatch registry; the glob
// matching is grounded on teacher `pkg/synchronization/core/ignore.go`'s
// `defaultIgnorer`, which is itself built on
// `github.com/bmatcuk/doublestar/v4`.
package middleware

import (
	"github.com/rojosync/rojo/pkg/dom"
	"github.com/rojosync/rojo/pkg/fssnapshot"
	"github.com/rojosync/rojo/pkg/vfs"
)

// Priority ranks named in spec §4.5. Higher wins; ties break by
// registration order.
const (
	PriorityAlways           = 1000
	PriorityManyReadable     = 200
	PrioritySingleReadable   = 100
	PriorityDirectoryFallback = 99
	PriorityModelBinary      = 83
	PriorityModelXML         = 82
	PriorityJSONModel        = 81
	PriorityModelDirectory   = 80
)

// SnapshotContext carries what a middleware's Snapshot operation needs
// beyond the raw path: the filesystem to read from and the project-wide
// context (glob-ignore paths, emitLegacyScripts, property filters) that
// governs how nodes are interpreted.
type SnapshotContext struct {
	FS      vfs.FS
	Context dom.Context
}

// SyncbackContext carries what a middleware's syncback operations need: the
// filesystem path being written to, the FsSnapshot builder fragment to
// populate, and the project context.
type SyncbackContext struct {
	Path    string
	Builder *fssnapshot.Snapshot
	Context dom.Context
}

// SyncbackResult is what a middleware's syncback operation hands back to
// the reconciler per spec §4.9 step 7.
type SyncbackResult struct {
	Snapshot       *dom.Snapshot
	Work           []WorkItem
	RemovedChildren []string
}

// WorkItem is one pending child to be dispatched by the reconciler, per
// spec §4.9 step 5. Old carries the matched prior snapshot when one exists
// (nil for a newly added child); New is always present.
type WorkItem struct {
	Old             *dom.Snapshot
	New             *dom.Snapshot
	ParentPath      string
	MiddlewareID    string
	HasMiddlewareID bool
}

// Middleware is one registered record, per spec §4.5.
type Middleware struct {
	// ID is a stable identifier, persisted in a node's Metadata.MiddlewareID
	// so that syncback can prefer the middleware that produced a node.
	ID string

	IncludeGlobs []string
	ExcludeGlobs []string

	// DirectoriesOnly, when true, means this middleware only ever matches
	// directories; the zero value (false) does not mean "files only" — see
	// FilesOnly.
	DirectoriesOnly bool
	FilesOnly       bool

	// InitNames lists file names that, found inside a directory, re-type
	// that directory as this middleware's shape (e.g. "init.meta.json").
	InitNames []string

	// SerializesChildren marks a directory-like middleware that claims
	// ownership of its children; leaf middlewares leave this false.
	SerializesChildren bool

	// Snapshot attempts to read path as this middleware's shape. A nil
	// snapshot with a nil error means "not applicable" (distinct from a
	// decode failure).
	Snapshot func(ctx SnapshotContext, path string) (*dom.Snapshot, error)

	// Priority returns this middleware's syncback priority for className,
	// or ok=false if it cannot produce that class at all.
	Priority func(className string, hasDescendants bool) (rank int, ok bool)

	// SyncbackCreate, SyncbackUpdate, and SyncbackDestroy implement the
	// three syncback operations named in spec §4.5.
	SyncbackCreate  func(ctx SyncbackContext, snapshot *dom.Snapshot) (SyncbackResult, error)
	SyncbackUpdate  func(ctx SyncbackContext, previous *dom.Snapshot, snapshot *dom.Snapshot) (SyncbackResult, error)
	SyncbackDestroy func(ctx SyncbackContext) error
}
