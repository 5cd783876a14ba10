package propertyfilter

import (
	"testing"

	"github.com/rojosync/rojo/pkg/dom"
	"github.com/rojosync/rojo/pkg/reflection"
)

func TestShouldSkipClassDefault(t *testing.T) {
	filter := New(reflection.Default, nil)
	if !filter.ShouldSkip("ModuleScript", "Source", dom.NewString("")) {
		t.Error("expected default-valued Source to be skipped")
	}
	if filter.ShouldSkip("ModuleScript", "Source", dom.NewString("print(1)")) {
		t.Error("expected non-default Source to not be skipped")
	}
}

func TestShouldSkipGlobalAlways(t *testing.T) {
	filter := New(reflection.Default, nil)
	if !filter.ShouldSkip("Folder", "UniqueId", dom.NewString("anything")) {
		t.Error("expected UniqueId to always be skipped")
	}
}

func TestShouldSkipProjectRuleInherited(t *testing.T) {
	rules := map[string]map[string]dom.FilterRule{
		"Instance": {
			"MyCustomProp": {Ignore: true},
		},
	}
	filter := New(reflection.Default, rules)
	if !filter.ShouldSkip("Folder", "MyCustomProp", dom.NewString("x")) {
		t.Error("expected inherited project rule to apply to Folder via Instance")
	}
}

func TestShouldSkipEmptyTags(t *testing.T) {
	filter := New(reflection.Default, nil)
	if !filter.ShouldSkip("Folder", "Tags", dom.NewStringList(nil)) {
		t.Error("expected empty Tags to be skipped")
	}
	if filter.ShouldSkip("Folder", "Tags", dom.NewStringList([]string{"a"})) {
		t.Error("expected non-empty Tags to not be skipped")
	}
}
