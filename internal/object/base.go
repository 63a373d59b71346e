// Package object implements every built-in Data representation the runtime uses to
// back a value.WeakReference: the None/Null singletons, Number, Boolean, String,
// Regex, Array, Hash, Iterator, Function, Package, Library, LibObject, and the
// general class-instance Object. Each type satisfies gc.Data directly and, where it
// holds other references, value.Cloneable so the value package's Reference.Clone can
// deep-copy it without importing this package.
package object

import "ember/internal/gc"

// Base embeds into every concrete Data type here, giving it the gc.Info block the
// runtime needs to track refcount, reachability, and allocation sequence. Types with
// no outgoing references (Number, Boolean, the singletons) use it unmodified; types
// that hold other references override Mark.
type Base struct {
	info gc.Info
}

// Info implements gc.Data.
func (b *Base) Info() *gc.Info { return &b.info }

// Mark implements gc.Data's no-op default; types holding references override this.
func (b *Base) Mark(rt *gc.Runtime) {}

// Finalize implements gc.Data's no-op default; types needing cleanup (LibObject)
// override this.
func (b *Base) Finalize() {}
