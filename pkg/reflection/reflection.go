// Package reflection is the default implementation of the reflection
// database named as an excluded collaborator in spec §1: a table of known
// classes, their superclass, and their property default values. This is
// intentionally a small in-process table, not a reproduction of Roblox's
// actual class database — enough to exercise property-default suppression
// (spec §4.8) and $properties/$attributes resolution (spec §3 addition)
// end to end.
package reflection

import "github.com/rojosync/rojo/pkg/dom"

// ClassInfo describes one known class: its superclass (empty for a root
// class), its property defaults, and whether it's tagged as a service (one
// that DataModel auto-inserts by class name, per spec §6).
type ClassInfo struct {
	Superclass string
	Defaults   map[string]dom.Variant
	IsService  bool
}

// Database answers class-hierarchy and default-value questions. It's a
// read-only, process-wide registry per spec §9 — built once, never
// mutated.
type Database struct {
	classes map[string]ClassInfo
}

// Default is the process-wide default reflection database, built when the
// package is initialized.
var Default = New(builtinClasses())

// New constructs a Database from an explicit class table, primarily for
// tests that want to exercise default-suppression without depending on the
// builtin table's exact contents.
func New(classes map[string]ClassInfo) *Database {
	return &Database{classes: classes}
}

// IsKnownClass reports whether className appears in the database.
func (d *Database) IsKnownClass(className string) bool {
	_, ok := d.classes[className]
	return ok
}

// IsService reports whether className is tagged as a service, auto-inserted
// under DataModel per spec §6.
func (d *Database) IsService(className string) bool {
	info, ok := d.classes[className]
	return ok && info.IsService
}

// DefaultValue returns the default value of property for className,
// walking up the superclass chain if the property isn't declared directly
// on className.
func (d *Database) DefaultValue(className, property string) (dom.Variant, bool) {
	for current := className; current != ""; {
		info, ok := d.classes[current]
		if !ok {
			return dom.Nil, false
		}
		if value, ok := info.Defaults[property]; ok {
			return value, true
		}
		current = info.Superclass
	}
	return dom.Nil, false
}

// IsSubclassOf reports whether className is class or a descendant of class
// in the superclass chain.
func (d *Database) IsSubclassOf(className, class string) bool {
	for current := className; current != ""; {
		if current == class {
			return true
		}
		info, ok := d.classes[current]
		if !ok {
			return false
		}
		current = info.Superclass
	}
	return false
}

// Ancestry returns className and every superclass above it, root-first
// reversed (className first, then its superclass, and so on). Used by the
// property filter to walk inherited project filters.
func (d *Database) Ancestry(className string) []string {
	var chain []string
	for current := className; current != ""; {
		chain = append(chain, current)
		info, ok := d.classes[current]
		if !ok {
			break
		}
		current = info.Superclass
	}
	return chain
}

// Services returns the class names tagged IsService, in no particular
// order; used to auto-infer DataModel's standard children per spec §6.
func (d *Database) Services() []string {
	var names []string
	for name, info := range d.classes {
		if info.IsService {
			names = append(names, name)
		}
	}
	return names
}

// builtinClasses is a minimal class table covering the instance types this
// repo's middlewares and tests produce: enough to demonstrate default-value
// suppression and service auto-inference (spec §6), not a full Roblox
// class database.
func builtinClasses() map[string]ClassInfo {
	boolFalse := dom.NewBool(false)
	boolTrue := dom.NewBool(true)
	emptyString := dom.NewString("")

	return map[string]ClassInfo{
		"Instance": {
			Defaults: map[string]dom.Variant{
				"Name": emptyString,
			},
		},
		"ServiceProvider": {Superclass: "Instance"},
		"DataModel":       {Superclass: "ServiceProvider"},
		"Folder":          {Superclass: "Instance"},
		"Workspace": {
			Superclass: "Instance",
			IsService:  true,
			Defaults: map[string]dom.Variant{
				"FilteringEnabled": boolTrue,
			},
		},
		"Terrain":                 {Superclass: "Instance"},
		"Lighting":                {Superclass: "Instance", IsService: true},
		"ReplicatedStorage":       {Superclass: "Instance", IsService: true},
		"ServerScriptService":     {Superclass: "Instance", IsService: true},
		"ServerStorage":           {Superclass: "Instance", IsService: true},
		"StarterGui":              {Superclass: "Instance", IsService: true},
		"StarterPack":             {Superclass: "Instance", IsService: true},
		"StarterPlayer":           {Superclass: "Instance", IsService: true},
		"StarterPlayerScripts":    {Superclass: "Instance"},
		"StarterCharacterScripts": {Superclass: "Instance"},
		"SoundService":            {Superclass: "Instance", IsService: true},
		"LuaSourceContainer": {Superclass: "Instance"},
		"BaseScript": {
			Superclass: "LuaSourceContainer",
			Defaults: map[string]dom.Variant{
				"Source":   emptyString,
				"Disabled": boolFalse,
			},
		},
		"Script":       {Superclass: "BaseScript"},
		"LocalScript":  {Superclass: "BaseScript"},
		"ModuleScript": {
			Superclass: "LuaSourceContainer",
			Defaults: map[string]dom.Variant{
				"Source": emptyString,
			},
		},
		"StringValue": {
			Superclass: "Instance",
			Defaults: map[string]dom.Variant{
				"Value": emptyString,
			},
		},
		"LocalizationTable": {
			Superclass: "Instance",
			Defaults: map[string]dom.Variant{
				"Contents": emptyString,
			},
		},
	}
}
