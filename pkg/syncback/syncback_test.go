package syncback

import (
	"testing"

	"github.com/rojosync/rojo/pkg/dom"
	"github.com/rojosync/rojo/pkg/middleware"
	"github.com/rojosync/rojo/pkg/middleware/dir"
	"github.com/rojosync/rojo/pkg/middleware/txt"
	"github.com/rojosync/rojo/pkg/propertyfilter"
	"github.com/rojosync/rojo/pkg/reflection"
)

func newFixtureRegistry() *middleware.Registry {
	registry := middleware.NewRegistry()
	registry.Register(dir.New(registry))
	registry.Register(txt.New())
	return registry
}

func buildTree(root *dom.Snapshot) *dom.Tree {
	tree := dom.NewTree(nil)
	tree.SetRoot(root)
	return tree
}

func TestSyncbackNoChangesProducesEmptySnapshot(t *testing.T) {
	registry := newFixtureRegistry()
	filter := propertyfilter.New(reflection.Default, nil)

	root := dom.NewSnapshot("Folder", "Root")
	oldTree := buildTree(root)
	newTree := buildTree(dom.NewSnapshot("Folder", "Root"))

	opts := Options{Registry: registry, Filter: filter, RootPath: "/project/Root"}

	fragment, err := Syncback(oldTree, newTree, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fragment.Files()) != 0 || len(fragment.Dirs()) != 0 {
		t.Fatalf("expected no staged mutations for an unchanged tree, got files=%v dirs=%v", fragment.Files(), fragment.Dirs())
	}
}

func TestSyncbackChangedPropertyWritesFile(t *testing.T) {
	registry := newFixtureRegistry()
	filter := propertyfilter.New(reflection.Default, nil)

	oldChild := dom.NewSnapshot("StringValue", "Greeting")
	oldChild.Properties["Value"] = dom.NewString("old")
	oldRoot := dom.NewSnapshot("Folder", "Root")
	oldRoot.Children = append(oldRoot.Children, oldChild)

	newChild := dom.NewSnapshot("StringValue", "Greeting")
	newChild.Properties["Value"] = dom.NewString("new")
	newRoot := dom.NewSnapshot("Folder", "Root")
	newRoot.Children = append(newRoot.Children, newChild)

	oldTree := buildTree(oldRoot)
	newTree := buildTree(newRoot)

	opts := Options{Registry: registry, Filter: filter, RootPath: "/project/Root"}

	fragment, err := Syncback(oldTree, newTree, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found := false
	for _, entry := range fragment.Files() {
		if entry.Path == "/project/Root/Greeting.txt" {
			found = true
			if string(entry.Content) != "new" {
				t.Fatalf("expected updated content, got %q", entry.Content)
			}
		}
	}
	if !found {
		t.Fatalf("expected a staged write for Greeting.txt, got %v", fragment.Files())
	}
}

func TestSyncbackRootPruneRemovesUnmatchedNewChild(t *testing.T) {
	registry := newFixtureRegistry()
	filter := propertyfilter.New(reflection.Default, nil)

	oldRoot := dom.NewSnapshot("Folder", "Root")
	oldTree := buildTree(oldRoot)

	newRoot := dom.NewSnapshot("Folder", "Root")
	intruder := dom.NewSnapshot("StringValue", "Intruder")
	intruder.Properties["Value"] = dom.NewString("x")
	newRoot.Children = append(newRoot.Children, intruder)
	newTree := buildTree(newRoot)

	opts := Options{Registry: registry, Filter: filter, RootPath: "/project/Root"}

	fragment, err := Syncback(oldTree, newTree, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, entry := range fragment.Files() {
		if entry.Path == "/project/Root/Intruder.txt" {
			t.Fatalf("expected root pruning to drop the unmatched child, but it was staged: %v", entry)
		}
	}
}
