package object

import (
	"ember/internal/gc"
	"ember/internal/value"
)

// ArrayData is a vector of WeakReference, index-checked with negative (Python-style)
// indices counting from the end.
type ArrayData struct {
	Base
	rt    *gc.Runtime
	Items []value.WeakReference
}

func NewArray(rt *gc.Runtime) *ArrayData {
	d := &ArrayData{rt: rt}
	rt.Register(d)
	return d
}

// Mark propagates reachability to every element, implementing gc.Data.
func (a *ArrayData) Mark(rt *gc.Runtime) {
	for _, item := range a.Items {
		item.Mark(rt)
	}
}

func (a *ArrayData) Len() int { return len(a.Items) }

// resolveIndex converts a possibly-negative index into [0, len), or reports false.
func (a *ArrayData) resolveIndex(i int) (int, bool) {
	n := len(a.Items)
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, false
	}
	return i, true
}

func (a *ArrayData) At(i int) (value.WeakReference, bool) {
	idx, ok := a.resolveIndex(i)
	if !ok {
		return value.WeakReference{}, false
	}
	return a.Items[idx], true
}

// Set overwrites the element at a possibly-negative index in place, reporting false
// if the index is out of range.
func (a *ArrayData) Set(i int, ref value.WeakReference) bool {
	idx, ok := a.resolveIndex(i)
	if !ok {
		return false
	}
	a.Items[idx].MoveData(ref)
	return true
}

// Push appends a reference, sharing it (the caller retains its own handle).
func (a *ArrayData) Push(ref value.WeakReference) {
	a.Items = append(a.Items, ref.Share())
}

// Pop removes and returns the last element.
func (a *ArrayData) Pop() (value.WeakReference, bool) {
	n := len(a.Items)
	if n == 0 {
		return value.WeakReference{}, false
	}
	last := a.Items[n-1]
	a.Items = a.Items[:n-1]
	return last, true
}

// Slice returns the elements in [begin, end), clamped, as a new Array, sharing each
// element rather than cloning it — matching Push/At's share-not-copy convention.
func (a *ArrayData) Slice(rt *gc.Runtime, begin, end int) *ArrayData {
	n := len(a.Items)
	begin = clampIndex(begin, n)
	end = clampIndex(end, n)
	if end < begin {
		end = begin
	}
	out := NewArray(rt)
	for _, item := range a.Items[begin:end] {
		out.Push(item)
	}
	return out
}

func (a *ArrayData) CloneData(rt *gc.Runtime) gc.Data {
	clone := NewArray(rt)
	clone.Items = make([]value.WeakReference, len(a.Items))
	for i, item := range a.Items {
		clone.Items[i] = item.Clone()
	}
	return clone
}
