package metafile

import (
	"strings"
	"testing"

	"github.com/rojosync/rojo/pkg/dom"
	"github.com/rojosync/rojo/pkg/reflection"
)

func TestParseWriteRoundTrip(t *testing.T) {
	source := `{
  "ignoreUnknownInstances": true,
  "properties": {
    "Value": {"Type": "String", "Value": "hello"}
  }
}`
	file, err := Parse([]byte(source), "foo.meta.json")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if !file.IgnoreUnknownInstances {
		t.Fatal("expected ignoreUnknownInstances to be true")
	}
	value, ok := file.Properties.Get("Value")
	if !ok || value.String != "hello" {
		t.Fatalf("expected Value=hello, got %+v, ok=%v", value, ok)
	}

	written, err := file.Write()
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if !strings.Contains(string(written), "hello") {
		t.Fatalf("expected written output to contain hello, got %s", written)
	}
}

func TestMergeOntoForbidsClassOverrideOnNonFolder(t *testing.T) {
	snapshot := dom.NewSnapshot("ModuleScript", "foo")
	file := New()
	file.ClassName = "Folder"
	file.SourcePath = "foo.meta.json"

	err := MergeOnto(snapshot, file, reflection.Default)
	if err == nil {
		t.Fatal("expected forbidden-edit error for class override on non-Folder")
	}
}

func TestMergeOntoAllowsClassOverrideOnFolder(t *testing.T) {
	snapshot := dom.NewSnapshot("Folder", "foo")
	file := New()
	file.ClassName = "StringValue"

	if err := MergeOnto(snapshot, file, reflection.Default); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if snapshot.ClassName != "StringValue" {
		t.Fatalf("expected class override to apply, got %s", snapshot.ClassName)
	}
}

func TestIsEmpty(t *testing.T) {
	file := New()
	if !file.IsEmpty() {
		t.Fatal("expected fresh file to be empty")
	}
	file.ClassName = "Folder"
	if file.IsEmpty() {
		t.Fatal("expected file with className to not be empty")
	}
}

func TestRebuildMinimizesDiff(t *testing.T) {
	previous := New()
	previous.Properties.Set("Value", dom.NewString("same"))

	properties := map[string]dom.Variant{
		"Value": dom.NewString("same"),
		"Other": dom.NewString("new"),
	}

	rebuilt := Rebuild("StringValue", properties, false, RebuildOptions{
		Previous:     previous,
		MinimizeDiff: true,
	})

	if _, ok := rebuilt.Properties.Get("Value"); ok {
		t.Fatal("expected unchanged Value to be dropped by minimize_diff")
	}
	if _, ok := rebuilt.Properties.Get("Other"); !ok {
		t.Fatal("expected new Other property to be kept")
	}
}
