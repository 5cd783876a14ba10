// Package propertyfilter computes the effective skip-set for a class and
// instance, per spec §4.8: a property is skipped when it equals its class
// default, or when it matches a global or project-supplied filter rule.
// There's no teacher equivalent for this concern (the teacher's core has
// no notion of "default value"); it's built directly from spec.md's rules,
// structured the way the teacher structures small single-purpose predicate
// helpers (see pkg/synchronization/core/ignore.go's ignorer shape).
package propertyfilter

import (
	"github.com/rojosync/rojo/pkg/dom"
	"github.com/rojosync/rojo/pkg/reflection"
)

// globalIgnoreAlways is the baseline set of properties always ignored,
// regardless of value, per spec §4.8.
var globalIgnoreAlways = map[string]bool{
	"SourceAssetId": true,
	"UniqueId":      true,
	"ScriptGuid":    true,
	"HistoryId":     true,
}

// Filter computes, for a given class, whether a named property should be
// skipped when comparing, diffing, or writing out instances.
type Filter struct {
	reflection *reflection.Database
	// perClass maps class name to its own (non-inherited) filter rules.
	perClass map[string]map[string]dom.FilterRule
}

// New constructs a Filter backed by the given reflection database and
// project-supplied per-class rules (spec §4.8's "inherited project
// filters, which inherit along class hierarchy").
func New(db *reflection.Database, perClass map[string]map[string]dom.FilterRule) *Filter {
	return &Filter{reflection: db, perClass: perClass}
}

// ShouldSkip reports whether property on an instance of className holding
// value should be omitted from comparison/serialization.
func (f *Filter) ShouldSkip(className, property string, value dom.Variant) bool {
	if def, ok := f.reflection.DefaultValue(className, property); ok && def.Equal(value) {
		return true
	}

	if property == "Tags" && value.Kind == dom.VariantKindStringArray && len(value.StringList) == 0 {
		return true
	}
	if globalIgnoreAlways[property] {
		return true
	}

	for _, class := range f.reflection.Ancestry(className) {
		rules, ok := f.perClass[class]
		if !ok {
			continue
		}
		rule, ok := rules[property]
		if !ok {
			continue
		}
		if rule.Ignore {
			return true
		}
		for _, candidate := range rule.IgnoreWhenEqual {
			if candidate.Equal(value) {
				return true
			}
		}
	}

	return false
}

// FilterProperties returns a copy of properties with every property that
// ShouldSkip reports true for removed.
func (f *Filter) FilterProperties(className string, properties map[string]dom.Variant) map[string]dom.Variant {
	filtered := make(map[string]dom.Variant, len(properties))
	for name, value := range properties {
		if f.ShouldSkip(className, name, value) {
			continue
		}
		filtered[name] = value
	}
	return filtered
}
