// Package diffdisplay renders a diff.Result for human review before a
// syncback is applied, per spec §4.10: removed instances in red, added in
// green, changed in yellow with a per-property before/after, and unchanged
// instances summarized rather than listed. Grounded on the teacher's
// cmd/error.go fatih/color convention for colored terminal output and
// cmd/mutagen/sync/create.go's dustin/go-humanize use for human-readable
// counts.
package diffdisplay

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/rojosync/rojo/pkg/diff"
	"github.com/rojosync/rojo/pkg/dom"
	"github.com/rojosync/rojo/pkg/propertyfilter"
)

var (
	removedColor   = color.New(color.FgRed)
	addedColor     = color.New(color.FgGreen)
	changedColor   = color.New(color.FgYellow)
	unchangedColor = color.New(color.FgWhite)
)

// Options configures Render.
type Options struct {
	// Writer receives the rendered diff. Required.
	Writer io.Writer
	// Path is a dotted instance path (e.g. "ReplicatedStorage.Modules.Util")
	// scoping the rendered view to that instance's subtree. Empty renders
	// the whole tree.
	Path string
}

// Render writes a human-readable rendering of result, scoped by opts.Path,
// to opts.Writer. filter is the same normalizing filter used to produce
// result, so the properties shown as "changed" line up exactly with what
// the differ itself compared.
func Render(oldTree, newTree *dom.Tree, result diff.Result, filter *propertyfilter.Filter, opts Options) error {
	oldScope, oldScopeOK := resolvePath(oldTree, opts.Path)
	newScope, newScopeOK := resolvePath(newTree, opts.Path)

	var removed, added []dom.Referent
	changed := make(map[dom.Referent]dom.Referent)
	unchangedCount := 0

	if oldScopeOK {
		for _, id := range result.Removed {
			if isDescendantOrSelf(oldTree, id, oldScope) {
				removed = append(removed, id)
			}
		}
		for oldID, newID := range result.Changed {
			if isDescendantOrSelf(oldTree, oldID, oldScope) {
				changed[oldID] = newID
			}
		}
		for oldID := range result.Unchanged {
			if isDescendantOrSelf(oldTree, oldID, oldScope) {
				unchangedCount++
			}
		}
	}
	if newScopeOK {
		for _, id := range result.Added {
			if isDescendantOrSelf(newTree, id, newScope) {
				added = append(added, id)
			}
		}
	}

	sortByPath(oldTree, removed)
	sortByPath(newTree, added)
	changedOld := make([]dom.Referent, 0, len(changed))
	for oldID := range changed {
		changedOld = append(changedOld, oldID)
	}
	sortByPath(oldTree, changedOld)

	for _, id := range removed {
		removedColor.Fprintf(opts.Writer, "- %s\n", displayPath(oldTree, id))
	}
	for _, id := range added {
		addedColor.Fprintf(opts.Writer, "+ %s\n", displayPath(newTree, id))
	}
	for _, oldID := range changedOld {
		newID := changed[oldID]
		changedColor.Fprintf(opts.Writer, "~ %s\n", displayPath(oldTree, oldID))
		renderPropertyDiff(opts.Writer, oldTree, newTree, oldID, newID, filter)
	}

	if unchangedCount > 0 {
		unchangedColor.Fprintf(opts.Writer, "  %s unchanged\n", humanize.Comma(int64(unchangedCount)))
	}

	return nil
}

// renderPropertyDiff prints one indented line per filtered property whose
// value differs between the old and new instance.
func renderPropertyDiff(w io.Writer, oldTree, newTree *dom.Tree, oldID, newID dom.Referent, filter *propertyfilter.Filter) {
	oldInstance, _, _ := oldTree.Get(oldID)
	newInstance, _, _ := newTree.Get(newID)

	oldProps := filter.FilterProperties(oldInstance.ClassName, oldInstance.Properties)
	newProps := filter.FilterProperties(newInstance.ClassName, newInstance.Properties)

	names := make(map[string]struct{}, len(oldProps)+len(newProps))
	for name := range oldProps {
		names[name] = struct{}{}
	}
	for name := range newProps {
		names[name] = struct{}{}
	}
	ordered := make([]string, 0, len(names))
	for name := range names {
		ordered = append(ordered, name)
	}
	sort.Strings(ordered)

	if oldInstance.ClassName != newInstance.ClassName {
		fmt.Fprintf(w, "    ClassName: %s -> %s\n", oldInstance.ClassName, newInstance.ClassName)
	}
	if oldInstance.Name != newInstance.Name {
		fmt.Fprintf(w, "    Name: %s -> %s\n", oldInstance.Name, newInstance.Name)
	}
	for _, name := range ordered {
		before, beforeOK := oldProps[name]
		after, afterOK := newProps[name]
		if beforeOK && afterOK && before.Equal(after) {
			continue
		}
		fmt.Fprintf(w, "    %s: %s -> %s\n", name, renderVariant(before, beforeOK), renderVariant(after, afterOK))
	}
}

func renderVariant(v dom.Variant, present bool) string {
	if !present {
		return "<absent>"
	}
	switch v.Kind {
	case dom.VariantKindNil:
		return "nil"
	case dom.VariantKindBool:
		return fmt.Sprintf("%t", v.Bool)
	case dom.VariantKindInt64:
		return fmt.Sprintf("%d", v.Int64)
	case dom.VariantKindFloat64:
		return fmt.Sprintf("%g", v.Float64)
	case dom.VariantKindString:
		return v.String
	case dom.VariantKindVector3:
		return fmt.Sprintf("(%g, %g, %g)", v.Vector3.X, v.Vector3.Y, v.Vector3.Z)
	case dom.VariantKindColor3:
		return fmt.Sprintf("(%g, %g, %g)", v.Color3.R, v.Color3.G, v.Color3.B)
	case dom.VariantKindUDim2:
		return fmt.Sprintf("{%g, %d}, {%g, %d}", v.UDim2.XScale, v.UDim2.XOffset, v.UDim2.YScale, v.UDim2.YOffset)
	case dom.VariantKindRef:
		return v.Ref.String()
	case dom.VariantKindStringArray:
		return "[" + strings.Join(v.StringList, ", ") + "]"
	case dom.VariantKindAttributes:
		return fmt.Sprintf("%d attributes", len(v.Attributes))
	default:
		return "?"
	}
}

// resolvePath walks path's dot-separated segments from tree's root,
// matching each against a child's display name. An empty path resolves to
// the root itself.
func resolvePath(tree *dom.Tree, path string) (dom.Referent, bool) {
	current := tree.Root()
	if path == "" {
		return current, true
	}
	for _, segment := range strings.Split(path, ".") {
		instance, _, ok := tree.Get(current)
		if !ok {
			return dom.Referent{}, false
		}
		found := false
		for _, child := range instance.Children {
			childInstance, _, ok := tree.Get(child)
			if ok && childInstance.Name == segment {
				current = child
				found = true
				break
			}
		}
		if !found {
			return dom.Referent{}, false
		}
	}
	return current, true
}

// isDescendantOrSelf reports whether id is scope itself or a descendant of
// it, walking parent pointers upward.
func isDescendantOrSelf(tree *dom.Tree, id, scope dom.Referent) bool {
	current := id
	for {
		if current == scope {
			return true
		}
		parent, ok := tree.Parent(current)
		if !ok {
			return false
		}
		current = parent
	}
}

// displayPath renders id's dotted path from the root, for display purposes
// only (not a filesystem path).
func displayPath(tree *dom.Tree, id dom.Referent) string {
	var parts []string
	current := id
	for {
		instance, _, ok := tree.Get(current)
		if !ok {
			break
		}
		parts = append(parts, instance.Name)
		parent, ok := tree.Parent(current)
		if !ok {
			break
		}
		current = parent
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

func sortByPath(tree *dom.Tree, ids []dom.Referent) {
	sort.Slice(ids, func(i, j int) bool {
		return displayPath(tree, ids[i]) < displayPath(tree, ids[j])
	})
}
