package diffdisplay

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/rojosync/rojo/pkg/diff"
	"github.com/rojosync/rojo/pkg/dom"
	"github.com/rojosync/rojo/pkg/propertyfilter"
	"github.com/rojosync/rojo/pkg/reflection"
)

func init() {
	color.NoColor = true
}

func buildTree(root *dom.Snapshot) *dom.Tree {
	tree := dom.NewTree(nil)
	tree.SetRoot(root)
	return tree
}

func TestRenderListsAddedRemovedAndChanged(t *testing.T) {
	oldRoot := dom.NewSnapshot("Folder", "Root")
	oldRoot.Children = append(oldRoot.Children, dom.NewSnapshot("StringValue", "Keep"))
	removedChild := dom.NewSnapshot("StringValue", "Gone")
	oldRoot.Children = append(oldRoot.Children, removedChild)
	oldTree := buildTree(oldRoot)

	newRoot := dom.NewSnapshot("Folder", "Root")
	keepChanged := dom.NewSnapshot("StringValue", "Keep")
	keepChanged.Properties["Value"] = dom.NewString("changed")
	newRoot.Children = append(newRoot.Children, keepChanged)
	newRoot.Children = append(newRoot.Children, dom.NewSnapshot("StringValue", "New"))
	newTree := buildTree(newRoot)

	filter := propertyfilter.New(reflection.Default, nil)
	result := diff.Diff(oldTree, newTree, oldTree.Root(), newTree.Root(), filter)

	var buf bytes.Buffer
	if err := Render(oldTree, newTree, result, filter, Options{Writer: &buf}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "- Root.Gone") {
		t.Errorf("expected removed entry for Root.Gone, got:\n%s", out)
	}
	if !strings.Contains(out, "+ Root.New") {
		t.Errorf("expected added entry for Root.New, got:\n%s", out)
	}
	if !strings.Contains(out, "~ Root.Keep") {
		t.Errorf("expected changed entry for Root.Keep, got:\n%s", out)
	}
	if !strings.Contains(out, "Value:") {
		t.Errorf("expected a per-property diff line for Value, got:\n%s", out)
	}
}

func TestRenderScopesToPath(t *testing.T) {
	oldRoot := dom.NewSnapshot("Folder", "Root")
	insideOld := dom.NewSnapshot("Folder", "Inside")
	insideOld.Children = append(insideOld.Children, dom.NewSnapshot("StringValue", "Gone"))
	outsideOld := dom.NewSnapshot("StringValue", "OutsideGone")
	oldRoot.Children = append(oldRoot.Children, insideOld, outsideOld)
	oldTree := buildTree(oldRoot)

	newRoot := dom.NewSnapshot("Folder", "Root")
	insideNew := dom.NewSnapshot("Folder", "Inside")
	newRoot.Children = append(newRoot.Children, insideNew)
	newTree := buildTree(newRoot)

	filter := propertyfilter.New(reflection.Default, nil)
	result := diff.Diff(oldTree, newTree, oldTree.Root(), newTree.Root(), filter)

	var buf bytes.Buffer
	if err := Render(oldTree, newTree, result, filter, Options{Writer: &buf, Path: "Inside"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Root.Inside.Gone") {
		t.Errorf("expected in-scope removal to be listed, got:\n%s", out)
	}
	if strings.Contains(out, "OutsideGone") {
		t.Errorf("expected out-of-scope removal to be excluded, got:\n%s", out)
	}
}
