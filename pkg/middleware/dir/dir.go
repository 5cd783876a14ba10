// Package dir implements the directory middleware from spec §4.6: a
// directory is a Folder by default, or re-typed by an "init" file inside
// it (an init source script or an init.meta.json class override). Its
// children are dispatched recursively through the owning registry, making
// this the one middleware with a genuine dependency on the registry
// itself (spec §4.5's "serializes children" case).
package dir

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/rojosync/rojo/pkg/dom"
	"github.com/rojosync/rojo/pkg/metafile"
	"github.com/rojosync/rojo/pkg/middleware"
	"github.com/rojosync/rojo/pkg/reflection"
	"github.com/rojosync/rojo/pkg/rojoerrors"
	"github.com/rojosync/rojo/pkg/vfs"
)

// ID is this middleware's stable identifier.
const ID = "dir"

var initScriptNames = map[string]string{
	"init.lua":        "ModuleScript",
	"init.luau":       "ModuleScript",
	"init.server.lua":  "Script",
	"init.server.luau": "Script",
	"init.client.lua":  "LocalScript",
	"init.client.luau": "LocalScript",
}

const initMetaName = "init.meta.json"

// New constructs the directory middleware. registry is used to dispatch
// read of each non-init child entry; it must already contain the other
// leaf middlewares by the time Snapshot is called.
func New(registry *middleware.Registry) *middleware.Middleware {
	return &middleware.Middleware{
		ID:                 ID,
		DirectoriesOnly:    true,
		SerializesChildren: true,
		Snapshot: func(ctx middleware.SnapshotContext, dirPath string) (*dom.Snapshot, error) {
			return snapshot(ctx, dirPath, registry)
		},
		Priority: func(className string, hasDescendants bool) (int, bool) {
			if className == "Folder" {
				return middleware.PriorityDirectoryFallback, true
			}
			if hasDescendants {
				return middleware.PriorityManyReadable, true
			}
			return 0, false
		},
		SyncbackCreate: func(ctx middleware.SyncbackContext, snap *dom.Snapshot) (middleware.SyncbackResult, error) {
			return syncback(ctx, snap)
		},
		SyncbackUpdate: func(ctx middleware.SyncbackContext, previous, snap *dom.Snapshot) (middleware.SyncbackResult, error) {
			return syncback(ctx, snap)
		},
		SyncbackDestroy: func(ctx middleware.SyncbackContext) error { return nil },
	}
}

func snapshot(ctx middleware.SnapshotContext, dirPath string, registry *middleware.Registry) (*dom.Snapshot, error) {
	entries, err := ctx.FS.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", rojoerrors.ErrIO, dirPath, err)
	}

	className := "Folder"
	var initSource string
	haveInitSource := false
	var initMetaFile *metafile.File
	consumed := make(map[string]bool)

	for _, entry := range entries {
		if entry.Kind != vfs.EntryKindFile {
			continue
		}
		if class, ok := initScriptNames[strings.ToLower(entry.Name)]; ok {
			content, err := ctx.FS.ReadFile(path.Join(dirPath, entry.Name))
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", rojoerrors.ErrIO, entry.Name, err)
			}
			className = class
			initSource = string(content)
			haveInitSource = true
			consumed[entry.Name] = true
		}
	}

	metaPath := path.Join(dirPath, initMetaName)
	if raw, err := ctx.FS.ReadFile(metaPath); err == nil {
		initMetaFile, err = metafile.Parse(raw, metaPath)
		if err != nil {
			return nil, err
		}
		consumed[initMetaName] = true
	}

	name := path.Base(dirPath)
	snap := dom.NewSnapshot(className, name)
	if haveInitSource {
		snap.Properties["Source"] = dom.NewString(initSource)
	}
	snap.Metadata.MiddlewareID = ID
	snap.Metadata.RelevantPaths = []string{dirPath}
	snap.Metadata.Context = ctx.Context

	if initMetaFile != nil {
		if err := metafile.MergeOnto(snap, initMetaFile, reflection.Default); err != nil {
			return nil, err
		}
	}

	var childNames []string
	for _, entry := range entries {
		if consumed[entry.Name] {
			continue
		}
		if entry.Name == initMetaName {
			continue
		}
		childNames = append(childNames, entry.Name)
	}
	sort.Strings(childNames)

	for _, childName := range childNames {
		childPath := path.Join(dirPath, childName)
		if matchesIgnoreGlob(childPath, ctx.Context.GlobIgnorePaths) {
			continue
		}
		isDir := entryIsDir(entries, childName)
		childMiddleware, err := registry.DispatchRead(childPath, isDir)
		if err != nil {
			return nil, err
		}
		if childMiddleware == nil {
			continue
		}
		childSnap, err := childMiddleware.Snapshot(ctx, childPath)
		if err != nil {
			return nil, err
		}
		if childSnap == nil {
			continue
		}
		snap.Children = append(snap.Children, childSnap)
	}

	return snap, nil
}

// matchesIgnoreGlob reports whether path matches any of patterns, per
// dom.Context.GlobIgnorePaths's "skipped entirely during both snapshot and
// syncback" contract. A malformed pattern is treated as a non-match rather
// than an error, since a project file supplies these, not this code.
func matchesIgnoreGlob(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}

func entryIsDir(entries []vfs.Entry, name string) bool {
	for _, entry := range entries {
		if entry.Name == name {
			return entry.Kind == vfs.EntryKindDirectory
		}
	}
	return false
}

// syncback writes the directory itself at ctx.Path/snap.Name, following the
// same "ctx.Path is the parent directory" convention every other middleware
// uses, and returns its children as further work items rooted at that path.
func syncback(ctx middleware.SyncbackContext, snap *dom.Snapshot) (middleware.SyncbackResult, error) {
	dirPath := path.Join(ctx.Path, snap.Name)
	ctx.Builder.EnsureDir(dirPath)

	if snap.ClassName != "Folder" {
		if source, ok := snap.Properties["Source"]; ok {
			var fileName string
			switch snap.ClassName {
			case "Script":
				fileName = "init.server.lua"
			case "LocalScript":
				fileName = "init.client.lua"
			default:
				fileName = "init.lua"
			}
			ctx.Builder.SetFile(path.Join(dirPath, fileName), []byte(source.String))
		} else {
			meta := metafile.New()
			meta.ClassName = snap.ClassName
			data, err := meta.Write()
			if err != nil {
				return middleware.SyncbackResult{}, err
			}
			ctx.Builder.SetFile(path.Join(dirPath, initMetaName), data)
		}
	}

	// Old is left nil here: a directory only has the new tree's children in
	// hand, not which old child (if any) each one matched. Every
	// middleware's SyncbackCreate and SyncbackUpdate write the same bytes
	// for the same snapshot (Update only additionally uses the old node to
	// minimize a meta-file diff), so dispatching these as creates is
	// correct, just slightly less diff-minimal than a full bijective match
	// would be.
	var work []middleware.WorkItem
	for _, child := range snap.Children {
		work = append(work, middleware.WorkItem{
			New:        child,
			ParentPath: dirPath,
		})
	}

	snap.Metadata.MiddlewareID = ID
	return middleware.SyncbackResult{Snapshot: snap, Work: work}, nil
}
