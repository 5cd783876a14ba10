package main

import (
	"fmt"
	"path/filepath"

	"github.com/rojosync/rojo/pkg/dom"
	"github.com/rojosync/rojo/pkg/fssnapshot"
	"github.com/rojosync/rojo/pkg/logging"
	"github.com/rojosync/rojo/pkg/middleware"
	"github.com/rojosync/rojo/pkg/middleware/csv"
	"github.com/rojosync/rojo/pkg/middleware/dir"
	"github.com/rojosync/rojo/pkg/middleware/jsonmodel"
	"github.com/rojosync/rojo/pkg/middleware/modelbinary"
	"github.com/rojosync/rojo/pkg/middleware/modelxml"
	"github.com/rojosync/rojo/pkg/middleware/project"
	"github.com/rojosync/rojo/pkg/middleware/script"
	"github.com/rojosync/rojo/pkg/middleware/txt"
	"github.com/rojosync/rojo/pkg/propertyfilter"
	"github.com/rojosync/rojo/pkg/reflection"
	"github.com/rojosync/rojo/pkg/rojoerrors"
	"github.com/rojosync/rojo/pkg/vfs"
)

// newRegistry assembles the full middleware set in spec §4.5's dispatch
// order: the project file always wins (PriorityAlways, and it's the only
// middleware with IncludeGlobs narrow enough that ordering rarely matters),
// the single-purpose leaf middlewares follow, and dir is registered last so
// it only ever catches what nothing else claimed.
//
// The jsonmodel middleware's property filter is fixed at construction time
// to the global (non-project-scoped) rule set: a project's own
// syncbackRules.ignoreProperties aren't known until that project file is
// parsed, which happens inside project.snapshot during the walk this
// registry drives, so there's no earlier point to thread them through. Its
// effect is limited to jsonmodel's own minimize-diff step; the operational
// filter used for the actual tree diff and syncback reconciliation is
// rebuilt from the snapshotted root's resolved Context after the walk
// completes, in filterForRoot below.
func newRegistry(logger *logging.Logger) *middleware.Registry {
	registry := middleware.NewRegistry()

	registry.Register(project.New(registry, reflection.Default, logger))
	registry.Register(script.New())
	registry.Register(txt.New())
	registry.Register(csv.New(logger))
	registry.Register(jsonmodel.New(logger, propertyfilter.New(reflection.Default, nil)))
	registry.Register(modelbinary.New())
	registry.Register(modelxml.New())
	registry.Register(dir.New(registry))

	return registry
}

// snapshotRoot resolves rootPath (a project file or a plain directory) to
// the middleware that should read it and runs its Snapshot, producing the
// detached subtree a build or syncback invocation then loads into a
// dom.Tree.
func snapshotRoot(registry *middleware.Registry, fs vfs.FS, rootPath string) (*dom.Snapshot, error) {
	absRoot, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", rojoerrors.ErrIO, rootPath, err)
	}

	kind, statErr, exists := fs.Stat(absRoot)
	if statErr != nil {
		return nil, fmt.Errorf("%w: %s: %v", rojoerrors.ErrIO, absRoot, statErr)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s does not exist", rojoerrors.ErrIO, absRoot)
	}

	mw, err := registry.DispatchRead(absRoot, kind == vfs.EntryKindDirectory)
	if err != nil {
		return nil, err
	}
	if mw == nil {
		return nil, fmt.Errorf("%w: no middleware matched project path %q", rojoerrors.ErrUnresolvedValue, absRoot)
	}

	snap, err := mw.Snapshot(middleware.SnapshotContext{FS: fs}, absRoot)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: %s did not resolve to an instance", rojoerrors.ErrUnresolvedValue, absRoot)
	}
	return snap, nil
}

// loadTree snapshots rootPath and loads the result into a fresh dom.Tree,
// returning the tree and its root referent.
func loadTree(registry *middleware.Registry, fs vfs.FS, logger *logging.Logger, rootPath string) (*dom.Tree, dom.Referent, error) {
	snap, err := snapshotRoot(registry, fs, rootPath)
	if err != nil {
		return nil, dom.Referent{}, err
	}
	tree := dom.NewTree(logger)
	root := tree.SetRoot(snap)
	return tree, root, nil
}

// filterForRoot builds the operational property filter for diff/syncback
// from the project-supplied rules recorded on root's Metadata.Context by
// project.snapshot's context refinement (see pkg/middleware/project), per
// spec §4.8's "inherited project filters".
func filterForRoot(tree *dom.Tree, root dom.Referent) *propertyfilter.Filter {
	_, meta, _ := tree.Get(root)
	return propertyfilter.New(reflection.Default, meta.Context.PropertyFilters)
}

// globIgnorePathsForRoot reads back root's resolved glob-ignore patterns,
// used by pkg/syncback.Options (spec §4.9 step 5's path-ignore test).
func globIgnorePathsForRoot(tree *dom.Tree, root dom.Referent) []string {
	_, meta, _ := tree.Get(root)
	return meta.Context.GlobIgnorePaths
}

// oldFootprint walks tree and records every node's relevant filesystem
// paths into a Snapshot, to serve as fssnapshot.Reconcile's "old" state:
// without it, a path that disappears between the old and new trees would
// never actually be removed from disk. Metadata doesn't distinguish file
// from directory paths itself, so each recorded path is classified by
// statting it directly.
func oldFootprint(fs vfs.FS, tree *dom.Tree) fssnapshot.Snapshot {
	footprint := fssnapshot.New()
	tree.Walk(tree.Root(), false, func(_ dom.Referent, _ *dom.Instance, meta dom.Metadata) error {
		for _, p := range meta.RelevantPaths {
			kind, err, exists := fs.Stat(p)
			if err != nil || !exists {
				continue
			}
			if kind == vfs.EntryKindDirectory {
				footprint.EnsureDir(p)
			} else {
				footprint.MarkFileRelevant(p)
			}
		}
		return nil
	})
	return footprint
}
