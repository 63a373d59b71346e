// Package plugin implements the dynamic-library half of the Ember plugin ABI: a
// plugin is a Go plugin.Plugin exporting C-linkage-equivalent symbols named
// "<name>_<arity>" (an exact-arity export) or "<name>_v<n>" (variadic, n or more
// args). Each export has the shape func(*cursor.Cursor) — it pulls its own arguments
// off the cursor's stack and pushes its own result, the same convention a built-in
// method's NativeFunc follows, just without the argc parameter (the symbol name
// already encodes it).
//
// No third-party dlopen wrapper in the example corpus improves on the standard
// library's plugin package for this exact shape, so this one piece is grounded on
// the standard library rather than a pack dependency.
package plugin

import (
	"fmt"
	"plugin"

	"ember/internal/cursor"
)

// Func is the exported symbol shape every plugin entry point must satisfy.
type Func func(*cursor.Cursor)

// Handle is an opened plugin, cached for repeated symbol lookups against the same
// library. object.LibraryData.Handle holds one of these as an interface{} value —
// object cannot import this package without an import cycle, since plugin depends on
// cursor which depends on object.
type Handle struct {
	path string
	lib  *plugin.Plugin
}

// Open loads the shared object at path. Subsequent Opens of the same path within one
// process return distinct Handles wrapping the same *plugin.Plugin, since the standard
// library's own plugin.Open memoizes by path at the runtime level.
func Open(path string) (*Handle, error) {
	lib, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("plugin: open %s: %w", path, err)
	}
	return &Handle{path: path, lib: lib}, nil
}

// Path returns the filesystem path this Handle was opened from.
func (h *Handle) Path() string { return h.path }

// Resolve implements the ABI's call-site symbol search: try the exact-arity export
// first, then the variadic exports from the narrowest (name_v1) to the widest
// allowed (name_v<argc>) fixed-argument count, returning the first symbol found.
func (h *Handle) Resolve(name string, argc int) (Func, bool) {
	if fn, ok := h.lookup(fmt.Sprintf("%s_%d", name, argc)); ok {
		return fn, true
	}
	for n := 1; n <= argc; n++ {
		if fn, ok := h.lookup(fmt.Sprintf("%s_v%d", name, n)); ok {
			return fn, true
		}
	}
	return nil, false
}

func (h *Handle) lookup(symbol string) (Func, bool) {
	sym, err := h.lib.Lookup(symbol)
	if err != nil {
		return nil, false
	}
	fn, ok := sym.(func(*cursor.Cursor))
	if !ok {
		return nil, false
	}
	return fn, true
}
