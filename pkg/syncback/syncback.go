// Package syncback implements the reconciler described in spec §4.9: given
// an old (filesystem-derived) tree and a new (file-derived) tree, it plans
// and merges the filesystem mutation set that converges the old tree's
// on-disk form to the new tree, by way of referent linking, root pruning,
// property pre-filtering, diff-driven pruning of untouched subtrees, and a
// middleware-dispatching work queue. Grounded in teacher `reconcile.go`'s
// step-ordered, heavily-commented reconciliation style as STYLE only — the
// three-way alpha/beta/ancestor merge algorithm itself isn't reused, since
// this reconciler is one-directional (old tree → new tree), not a
// three-way merge.
package syncback

import (
	"fmt"
	"os"
	"path"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/rojosync/rojo/pkg/diff"
	"github.com/rojosync/rojo/pkg/dom"
	"github.com/rojosync/rojo/pkg/fssnapshot"
	"github.com/rojosync/rojo/pkg/logging"
	"github.com/rojosync/rojo/pkg/middleware"
	"github.com/rojosync/rojo/pkg/middleware/dir"
	"github.com/rojosync/rojo/pkg/middleware/jsonmodel"
	"github.com/rojosync/rojo/pkg/middleware/modelbinary"
	"github.com/rojosync/rojo/pkg/middleware/modelxml"
	"github.com/rojosync/rojo/pkg/propertyfilter"
	"github.com/rojosync/rojo/pkg/rojoerrors"
)

// Options configures one Syncback invocation.
type Options struct {
	Registry        *middleware.Registry
	Filter          *propertyfilter.Filter
	RootPath        string
	GlobIgnorePaths []string
	Logger          *logging.Logger
}

// debugFallbackEnv is the environment variable named in spec §4.9 step 6,
// selecting the model-codec fallback chain for debugging directory-layout
// syncback failures.
const debugFallbackEnv = "ROJO_SYNCBACK_DEBUG"

// Syncback runs the full reconciliation pipeline and returns the merged
// FsSnapshot ready for fssnapshot.Reconcile.
func Syncback(oldTree, newTree *dom.Tree, opts Options) (fssnapshot.Snapshot, error) {
	newTree.StampReferentLinks(newTree.Root())
	pruneRoot(oldTree, newTree)

	result := diff.Diff(oldTree, newTree, oldTree.Root(), newTree.Root(), opts.Filter)

	final := fssnapshot.New()

	if subtreeUnchanged(result, oldTree.Root()) {
		return final, nil
	}

	oldRootSnap := oldTree.Snapshot(oldTree.Root())
	newRootSnap := newTree.Snapshot(newTree.Root())

	fragment, err := processNode(oldRootSnap, newRootSnap, path.Dir(opts.RootPath), result, oldTree, newTree, opts)
	if err != nil {
		return fssnapshot.Snapshot{}, err
	}
	final.Merge(fragment)

	for _, oldID := range result.Removed {
		removedSnap := oldTree.Snapshot(oldID)
		stageRemoval(&final, path.Dir(opts.RootPath), removedSnap)
	}

	return final, nil
}

// pruneRoot drops children of newTree's root whose (name, class) pair has
// no match among oldTree's root children, per spec §4.9 step 2.
func pruneRoot(oldTree, newTree *dom.Tree) {
	oldRoot, _, ok := oldTree.Get(oldTree.Root())
	if !ok {
		return
	}
	allowed := make(map[[2]string]bool, len(oldRoot.Children))
	for _, childID := range oldRoot.Children {
		child, _, ok := oldTree.Get(childID)
		if !ok {
			continue
		}
		allowed[[2]string{child.Name, child.ClassName}] = true
	}

	newRoot, _, ok := newTree.Get(newTree.Root())
	if !ok {
		return
	}
	var toRemove []dom.Referent
	for _, childID := range newRoot.Children {
		child, _, ok := newTree.Get(childID)
		if !ok {
			continue
		}
		if !allowed[[2]string{child.Name, child.ClassName}] {
			toRemove = append(toRemove, childID)
		}
	}
	for _, id := range toRemove {
		newTree.Remove(id)
	}
}

// processNode dispatches one (old?, new) pair to a middleware and
// recursively processes its returned work items, merging every FsSnapshot
// fragment along the way (spec §4.9 steps 5–8). parentPath is the
// filesystem directory the node should be written under.
func processNode(oldSnap, newSnap *dom.Snapshot, parentPath string, result diff.Result, oldTree, newTree *dom.Tree, opts Options) (fssnapshot.Snapshot, error) {
	fragment := fssnapshot.New()

	candidatePath := path.Join(parentPath, newSnap.Name)
	if ignoredByGlob(candidatePath, opts.GlobIgnorePaths) {
		return fragment, nil
	}

	hasDescendants := len(newSnap.Children) > 0

	var previous *middleware.Middleware
	if oldSnap != nil && oldSnap.Metadata.MiddlewareID != "" {
		previous, _ = opts.Registry.ByID(oldSnap.Metadata.MiddlewareID)
	}

	chosen, err := opts.Registry.DispatchWrite(newSnap.ClassName, hasDescendants, previous)
	if err != nil {
		return fragment, err
	}

	syncbackResult, err := invokeMiddleware(chosen, opts, parentPath, &fragment, oldSnap, newSnap)
	if err != nil && chosen.ID != dir.ID {
		return fragment, fmt.Errorf("%s: %w", candidatePath, err)
	}
	if err != nil {
		fallback, fallbackErr := retryAsFallback(opts, parentPath, &fragment, oldSnap, newSnap)
		if fallbackErr != nil {
			return fragment, fmt.Errorf("%s: %w", candidatePath, err)
		}
		syncbackResult = fallback
	}

	for _, work := range syncbackResult.Work {
		childFragment, err := processNode(work.Old, work.New, work.ParentPath, result, oldTree, newTree, opts)
		if err != nil {
			return fragment, err
		}
		fragment.Merge(childFragment)
	}

	for _, removedChildPath := range syncbackResult.RemovedChildren {
		fragment.MarkFileRelevant(removedChildPath)
	}

	return fragment, nil
}

func invokeMiddleware(m *middleware.Middleware, opts Options, parentPath string, fragment *fssnapshot.Snapshot, oldSnap, newSnap *dom.Snapshot) (middleware.SyncbackResult, error) {
	ctx := middleware.SyncbackContext{Path: parentPath, Builder: fragment}
	if oldSnap == nil {
		return m.SyncbackCreate(ctx, newSnap)
	}
	return m.SyncbackUpdate(ctx, oldSnap, newSnap)
}

// retryAsFallback implements spec §4.9 step 6: after the directory
// middleware failed, retry once as a model file. ROJO_SYNCBACK_DEBUG picks
// the format: "1" for model XML, "2" for JSON model, and model binary when
// unset or any other value. A second failure is a hard error scoped to that
// subtree; processNode then reports the directory middleware's error.
func retryAsFallback(opts Options, parentPath string, fragment *fssnapshot.Snapshot, oldSnap, newSnap *dom.Snapshot) (middleware.SyncbackResult, error) {
	fallbackID := modelbinary.ID
	switch os.Getenv(debugFallbackEnv) {
	case "1":
		fallbackID = modelxml.ID
	case "2":
		fallbackID = jsonmodel.ID
	}
	fallback, ok := opts.Registry.ByID(fallbackID)
	if !ok {
		return middleware.SyncbackResult{}, fmt.Errorf("%w: unknown fallback middleware %q", rojoerrors.ErrIO, fallbackID)
	}
	if opts.Logger != nil {
		opts.Logger.Warn(fmt.Errorf("retrying %s as %s after primary middleware failure", newSnap.Name, fallbackID))
	}
	return invokeMiddleware(fallback, opts, parentPath, fragment, oldSnap, newSnap)
}

// subtreeUnchanged reports whether oldID's whole subtree can be skipped:
// its own properties matched its new counterpart and no descendant
// changed either, per the diff-reuse decision recorded in DESIGN.md for
// spec §4.9 step 4's deterministic subtree hashing.
func subtreeUnchanged(result diff.Result, oldID dom.Referent) bool {
	if _, ok := result.Unchanged[oldID]; !ok {
		return false
	}
	_, hasChangedDescendant := result.ChangedDescendants[oldID]
	return !hasChangedDescendant
}

func ignoredByGlob(p string, globs []string) bool {
	for _, glob := range globs {
		if ok, _ := doublestar.Match(glob, p); ok {
			return true
		}
	}
	return false
}

// stageRemoval schedules deletion of a subtree that no longer exists in
// the new tree, inferring file vs. directory from its recorded relevant
// paths (spec §4.9 step 7: "removed children's paths are scheduled for
// deletion").
func stageRemoval(final *fssnapshot.Snapshot, parentPath string, snap *dom.Snapshot) {
	if snap == nil {
		return
	}
	sort.Strings(snap.Metadata.RelevantPaths)
	for _, p := range snap.Metadata.RelevantPaths {
		final.MarkFileRelevant(p)
	}
}
