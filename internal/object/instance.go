package object

import (
	"ember/internal/class"
	"ember/internal/gc"
	"ember/internal/value"
)

// InstanceData backs both a user-defined class's instances and the class object
// itself (the metaclass handle bound to the class's own name). Slots == nil
// unambiguously marks a class object; an instance with zero declared members still
// gets a non-nil zero-length slice so the two cases never collide, per
// Class.MakeInstanceSlots's contract.
type InstanceData struct {
	Base
	Class *class.Class
	Slots []value.WeakReference
}

// NewInstance allocates slots from cls's linearized member layout.
func NewInstance(rt *gc.Runtime, cls *class.Class) *InstanceData {
	d := &InstanceData{Class: cls, Slots: cls.MakeInstanceSlots(rt)}
	rt.Register(d)
	return d
}

// NewClassObject builds the metaclass handle value for cls (Slots left nil).
func NewClassObject(rt *gc.Runtime, cls *class.Class) *InstanceData {
	d := &InstanceData{Class: cls}
	rt.Register(d)
	return d
}

// IsClassObject reports whether this Data represents the class itself rather than an
// instance.
func (o *InstanceData) IsClassObject() bool { return o.Slots == nil }

func (o *InstanceData) Mark(rt *gc.Runtime) {
	for _, s := range o.Slots {
		s.Mark(rt)
	}
}

// Slot resolves a member by offset, following the class's linearized layout.
func (o *InstanceData) Slot(offset uint) (value.WeakReference, bool) {
	if offset == class.InvalidOffset || int(offset) >= len(o.Slots) {
		return value.WeakReference{}, false
	}
	return o.Slots[offset], true
}

func (o *InstanceData) CloneData(rt *gc.Runtime) gc.Data {
	if o.IsClassObject() || !o.Class.IsCopyable() {
		return o
	}
	clone := &InstanceData{Class: o.Class, Slots: make([]value.WeakReference, len(o.Slots))}
	for i, s := range o.Slots {
		clone.Slots[i] = s.Clone()
	}
	rt.Register(clone)
	return clone
}
