package object

import (
	"ember/internal/class"
	"ember/internal/gc"
)

// builtinClasses maps each built-in Kind to the singleton Class the runtime bootstrap
// registers for it, so operator dispatch can treat a built-in the same way it treats
// a user-defined instance: look up Class.Operator(op) regardless of which produced the
// Class.
var builtinClasses [KindObject + 1]*class.Class

// RegisterBuiltinClass installs the Class backing a built-in Kind. Called once during
// runtime bootstrap (see cmd/ember's wiring) for every metatype in the Metatype table.
func RegisterBuiltinClass(k Kind, c *class.Class) { builtinClasses[k] = c }

// ClassOf returns the Class associated with d's runtime representation: the instance's
// own Class for a user-defined object, or the registered singleton Class for a
// built-in Kind.
func ClassOf(d gc.Data) *class.Class {
	if inst, ok := d.(*InstanceData); ok {
		return inst.Class
	}
	return builtinClasses[KindOf(d)]
}
