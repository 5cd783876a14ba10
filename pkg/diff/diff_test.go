package diff

import (
	"testing"

	"github.com/rojosync/rojo/pkg/dom"
	"github.com/rojosync/rojo/pkg/propertyfilter"
	"github.com/rojosync/rojo/pkg/reflection"
)

func buildTree(root *dom.Snapshot) (*dom.Tree, dom.Referent) {
	tree := dom.NewTree(nil)
	id := tree.SetRoot(root)
	return tree, id
}

func TestDiffUnchanged(t *testing.T) {
	filter := propertyfilter.New(reflection.Default, nil)

	oldRoot := dom.NewSnapshot("Folder", "Root")
	newRoot := dom.NewSnapshot("Folder", "Root")

	oldTree, oldID := buildTree(oldRoot)
	newTree, newID := buildTree(newRoot)

	result := Diff(oldTree, newTree, oldID, newID, filter)

	if len(result.Changed) != 0 {
		t.Fatalf("expected no changes, got %v", result.Changed)
	}
	if _, ok := result.Unchanged[oldID]; !ok {
		t.Fatal("expected root to be unchanged")
	}
}

func TestDiffChangedProperty(t *testing.T) {
	filter := propertyfilter.New(reflection.Default, nil)

	oldRoot := dom.NewSnapshot("StringValue", "Root")
	oldRoot.Properties["Value"] = dom.NewString("a")
	newRoot := dom.NewSnapshot("StringValue", "Root")
	newRoot.Properties["Value"] = dom.NewString("b")

	oldTree, oldID := buildTree(oldRoot)
	newTree, newID := buildTree(newRoot)

	result := Diff(oldTree, newTree, oldID, newID, filter)

	if _, ok := result.Changed[oldID]; !ok {
		t.Fatal("expected root to be changed")
	}
}

func TestDiffAddedAndRemovedChildren(t *testing.T) {
	filter := propertyfilter.New(reflection.Default, nil)

	oldRoot := dom.NewSnapshot("Folder", "Root")
	oldRoot.Children = append(oldRoot.Children, dom.NewSnapshot("Folder", "Gone"))
	newRoot := dom.NewSnapshot("Folder", "Root")
	newRoot.Children = append(newRoot.Children, dom.NewSnapshot("Folder", "New"))

	oldTree, oldID := buildTree(oldRoot)
	newTree, newID := buildTree(newRoot)

	result := Diff(oldTree, newTree, oldID, newID, filter)

	if len(result.Removed) != 1 {
		t.Fatalf("expected 1 removed, got %d", len(result.Removed))
	}
	if len(result.Added) != 1 {
		t.Fatalf("expected 1 added, got %d", len(result.Added))
	}
	if _, ok := result.ChangedDescendants[oldID]; !ok {
		t.Fatal("expected root to be marked as having changed descendants")
	}
}

func TestDiffChangedDescendantPropagation(t *testing.T) {
	filter := propertyfilter.New(reflection.Default, nil)

	oldChild := dom.NewSnapshot("StringValue", "Child")
	oldChild.Properties["Value"] = dom.NewString("a")
	oldRoot := dom.NewSnapshot("Folder", "Root")
	oldRoot.Children = append(oldRoot.Children, oldChild)

	newChild := dom.NewSnapshot("StringValue", "Child")
	newChild.Properties["Value"] = dom.NewString("b")
	newRoot := dom.NewSnapshot("Folder", "Root")
	newRoot.Children = append(newRoot.Children, newChild)

	oldTree, oldID := buildTree(oldRoot)
	newTree, newID := buildTree(newRoot)

	result := Diff(oldTree, newTree, oldID, newID, filter)

	if _, ok := result.Unchanged[oldID]; !ok {
		t.Fatal("expected root's own properties to be unchanged")
	}
	if _, ok := result.ChangedDescendants[oldID]; !ok {
		t.Fatal("expected root to be marked as having a changed descendant")
	}
}

func TestSimilarityScoreBySharedChildren(t *testing.T) {
	filter := propertyfilter.New(reflection.Default, nil)

	a := dom.NewSnapshot("Folder", "A")
	a.Children = append(a.Children, dom.NewSnapshot("Folder", "Shared"))
	b := dom.NewSnapshot("Folder", "B")
	b.Children = append(b.Children, dom.NewSnapshot("Folder", "Shared"))

	tree, aID := buildTree(a)
	otherTree, bID := buildTree(b)

	same, diffScore := SimilarityScore(tree, otherTree, aID, bID, filter)
	if same == 0 {
		t.Fatal("expected nonzero same_score from shared child bucket")
	}
	_ = diffScore
}
