package value

import (
	"errors"

	"ember/internal/gc"
)

// ErrInvalidModification is raised (as the runtime exception kind of the same name,
// see internal/errors) when a write targets a const-value reference.
var ErrInvalidModification = errors.New("invalid modification of const reference")

// Cloneable is implemented by every gc.Data the object package defines; it lets this
// package perform a type-specific deep copy (Reference.clone / copy_data) without
// importing package object and creating a cycle.
type Cloneable interface {
	gc.Data
	CloneData(rt *gc.Runtime) gc.Data
}

// cell is the shared info block a Reference cell is built from: flags plus a datum
// pointer. Reference.share aliases this same block (shareCount++); Reference.copy and
// Reference.clone allocate a fresh block. The datum is nil when the cell was built
// with a nil datum or after its last alias is released; this package does not
// substitute None for it.
type cell struct {
	rt         *gc.Runtime
	flags      Flags
	datum      gc.Data
	shareCount int
}

// WeakReference is a scoped, non-owning front-end onto a cell: stack slots and member
// slots are WeakReferences. It does not register as a GC root — its datum survives
// only because some other owner (a StrongReference, a class default, another cell's
// refcount) keeps it alive.
type WeakReference struct {
	c *cell
}

// NewWeakReference allocates a fresh cell holding datum and returns a handle aliasing
// it. A nil datum is stored as nil (no None singleton is substituted here; readers
// such as object.Display treat nil as none).
func NewWeakReference(rt *gc.Runtime, flags Flags, datum gc.Data) WeakReference {
	c := &cell{rt: rt, flags: flags, datum: datum, shareCount: 1}
	if datum != nil {
		rt.Use(datum)
	}
	return WeakReference{c: c}
}

// Share aliases this reference's cell: the returned handle and the receiver observe
// the same flags and datum, and a flag change through one is visible through the
// other. This is the "shared info block" reference kind from the data model.
func (w WeakReference) Share() WeakReference {
	w.c.shareCount++
	return WeakReference{c: w.c}
}

// Copy allocates a new cell with the same flags and datum as w (datum refcount++).
// Unlike Share, flag changes on the copy are not visible through w.
func (w WeakReference) Copy() WeakReference {
	nc := &cell{rt: w.c.rt, flags: w.c.flags, datum: w.c.datum, shareCount: 1}
	if nc.datum != nil {
		w.c.rt.Use(nc.datum)
	}
	return WeakReference{c: nc}
}

// Clone allocates a new cell whose datum is a deep, type-specific copy of w's datum.
func (w WeakReference) Clone() WeakReference {
	nc := &cell{rt: w.c.rt, flags: w.c.flags, shareCount: 1}
	if w.c.datum != nil {
		cloneable, ok := w.c.datum.(Cloneable)
		if !ok {
			nc.datum = w.c.datum
			w.c.rt.Use(nc.datum)
		} else {
			nc.datum = cloneable.CloneData(w.c.rt)
			w.c.rt.Use(nc.datum)
		}
	}
	return WeakReference{c: nc}
}

// CopyData replaces this cell's datum with a deep clone of other's datum, failing if
// this cell is const-value. The new datum is used (refcount++) before the old one is
// released, so a self-referential copy can never drop to zero prematurely.
func (w WeakReference) CopyData(other WeakReference) error {
	if w.c.flags.Has(ConstValue) {
		return ErrInvalidModification
	}
	var cloned gc.Data
	if other.c.datum != nil {
		if cloneable, ok := other.c.datum.(Cloneable); ok {
			cloned = cloneable.CloneData(w.c.rt)
		} else {
			cloned = other.c.datum
		}
	}
	if cloned != nil {
		w.c.rt.Use(cloned)
	}
	old := w.c.datum
	w.c.datum = cloned
	if old != nil {
		w.c.rt.Release(old)
	}
	return nil
}

// MoveData rebinds this cell's datum pointer to other's datum, with refcount
// adjusted accordingly. Used by move-optimized assignment.
func (w WeakReference) MoveData(other WeakReference) {
	newDatum := other.c.datum
	if newDatum != nil {
		w.c.rt.Use(newDatum)
	}
	old := w.c.datum
	w.c.datum = newDatum
	if old != nil {
		w.c.rt.Release(old)
	}
}

// Data returns the datum this reference's cell currently holds.
func (w WeakReference) Data() gc.Data { return w.c.datum }

// SetData installs datum directly, adjusting refcounts, bypassing CopyData's
// const-value check. Used by construction paths that are not language-visible
// assignment (e.g. seeding a fresh frame's parameter slots).
func (w WeakReference) SetData(datum gc.Data) {
	if datum != nil {
		w.c.rt.Use(datum)
	}
	old := w.c.datum
	w.c.datum = datum
	if old != nil {
		w.c.rt.Release(old)
	}
}

// Flags returns this cell's flag bitfield.
func (w WeakReference) Flags() Flags { return w.c.flags }

// SetFlags replaces this cell's flag bitfield. Because Share aliases the same cell,
// this is visible through every aliasing handle.
func (w WeakReference) SetFlags(f Flags) { w.c.flags = f }

// Valid reports whether this WeakReference has been initialized (as opposed to the
// Go zero value, which has a nil cell and must never be dereferenced).
func (w WeakReference) Valid() bool { return w.c != nil }

// Release drops one alias of this cell's handle; when the last alias is released the
// underlying datum's refcount is released too. Call sites correspond to the dispatch
// loop's UNLOAD_REFERENCE and to any stack slot going out of scope.
func (w WeakReference) Release() {
	if w.c == nil {
		return
	}
	w.c.shareCount--
	if w.c.shareCount <= 0 && w.c.datum != nil {
		w.c.rt.Release(w.c.datum)
		w.c.datum = nil
	}
}

// mark implements the traversal used by StrongReference.Mark and by any container
// (Array, Hash, Object slots) that holds WeakReferences and must propagate
// reachability through them during a Collect pass.
func (w WeakReference) mark(rt *gc.Runtime) {
	if w.c != nil && w.c.datum != nil {
		rt.Mark(w.c.datum)
	}
}

// Mark lets a bare WeakReference slice satisfy part of gc.MemoryRoot-shaped marking
// without registering as an actual root; containers call this from their own Mark.
func (w WeakReference) Mark(rt *gc.Runtime) { w.mark(rt) }

// StrongReference additionally registers itself as a gc.MemoryRoot for as long as it
// is alive, so its datum survives a Collect pass even with no other refcounted
// owners. Long-lived holders (module constants, class static members, a cursor's
// local-variable table) use StrongReference; everything transient uses WeakReference.
type StrongReference struct {
	WeakReference
	rt *gc.Runtime
}

// NewStrongReference allocates a cell like NewWeakReference and registers it as a
// root with rt.
func NewStrongReference(rt *gc.Runtime, flags Flags, datum gc.Data) *StrongReference {
	sr := &StrongReference{WeakReference: NewWeakReference(rt, flags, datum), rt: rt}
	rt.RegisterRoot(sr)
	return sr
}

// Mark implements gc.MemoryRoot.
func (sr *StrongReference) Mark(rt *gc.Runtime) { sr.WeakReference.mark(rt) }

// Release unregisters this reference as a root in addition to releasing its datum.
func (sr *StrongReference) Release() {
	sr.rt.UnregisterRoot(sr)
	sr.WeakReference.Release()
}
