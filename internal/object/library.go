package object

import "ember/internal/gc"

// LibraryData backs a loaded plugin's package-level handle: an opaque back-pointer to
// the dynamic library, kept as interface{} here so object does not import package
// plugin (which itself depends on object for the values it marshals). internal/plugin
// type-asserts this back to its own *plugin.Handle.
type LibraryData struct {
	Base
	Name   string
	Handle interface{}
}

func NewLibrary(rt *gc.Runtime, name string, handle interface{}) *LibraryData {
	d := &LibraryData{Name: name, Handle: handle}
	rt.Register(d)
	return d
}

func (l *LibraryData) CloneData(rt *gc.Runtime) gc.Data { return l }

// LibObjectData is a raw back-pointer to plugin-allocated data: an open *sql.DB
// (dblib) or wslib's wrapper around a *websocket.Conn, depending on which binding
// produced it. Per the data
// model it is never collected by the GC in the ordinary mark-sweep sense — the
// owning plugin controls its lifetime — so Finalize only runs an explicit close
// callback if the binding installed one, rather than freeing memory itself.
type LibObjectData struct {
	Base
	Payload interface{}
	closeFn func()
}

func NewLibObject(rt *gc.Runtime, payload interface{}, closeFn func()) *LibObjectData {
	d := &LibObjectData{Payload: payload, closeFn: closeFn}
	rt.Register(d)
	return d
}

func (o *LibObjectData) Finalize() {
	if o.closeFn != nil {
		o.closeFn()
	}
}

func (o *LibObjectData) CloneData(rt *gc.Runtime) gc.Data { return o }
