package object

import (
	"ember/internal/gc"
	"ember/internal/value"
)

// IteratorBackend tags which of the three iterator representations an IteratorData
// holds.
type IteratorBackend int

const (
	BackendItems IteratorBackend = iota
	BackendRange
	BackendGenerator
)

// GeneratorState is the suspension handle a Generator-backed iterator drives. The
// dispatch package supplies the concrete implementation, wrapping a private cursor;
// kept as an interface here (rather than importing package dispatch directly) to avoid
// an import cycle, since dispatch depends on object for the values it manipulates.
type GeneratorState interface {
	// Resume drives the suspended cursor until it yields again or finishes, returning
	// the yielded reference and whether one was produced.
	Resume() (value.WeakReference, bool, error)
	// Close forces the generator to completion under single-pass mode, honoring no
	// further yields.
	Close()
}

// IteratorData is the tagged-variant iterator: Items (materialized deque), Range
// (numeric, ascending or descending), or Generator (wraps a suspended Cursor).
type IteratorData struct {
	Base

	Backend IteratorBackend

	// Items backend.
	items []value.WeakReference
	front int

	// Range backend.
	cur, end   int
	descending bool

	// Generator backend.
	gen    GeneratorState
	closed bool
}

func newIterator(rt *gc.Runtime) *IteratorData {
	d := &IteratorData{}
	rt.Register(d)
	return d
}

// NewItemsIterator builds an Items-backend iterator over a snapshot of refs (each
// shared, not moved).
func NewItemsIterator(rt *gc.Runtime, refs []value.WeakReference) *IteratorData {
	d := newIterator(rt)
	d.Backend = BackendItems
	d.items = make([]value.WeakReference, len(refs))
	for i, r := range refs {
		d.items[i] = r.Share()
	}
	return d
}

// NewRangeIterator builds a Range-backend iterator over [begin, end), ascending if
// begin <= end, descending otherwise.
func NewRangeIterator(rt *gc.Runtime, begin, end int) *IteratorData {
	d := newIterator(rt)
	d.Backend = BackendRange
	d.cur = begin
	d.end = end
	d.descending = end < begin
	return d
}

// NewGeneratorIterator builds a Generator-backend iterator driving state.
func NewGeneratorIterator(rt *gc.Runtime, state GeneratorState) *IteratorData {
	d := newIterator(rt)
	d.Backend = BackendGenerator
	d.gen = state
	return d
}

func (it *IteratorData) Mark(rt *gc.Runtime) {
	for _, r := range it.items {
		r.Mark(rt)
	}
}

func (it *IteratorData) Finalize() {
	if it.Backend == BackendGenerator && it.gen != nil && !it.closed {
		it.gen.Close()
		it.closed = true
	}
}

// Empty reports whether Next would currently report exhaustion. For a Generator
// backend it only reports whether the generator has already been seen to finish; it
// does not drive the state — call sites that need precise lookahead use Next directly.
func (it *IteratorData) Empty() bool {
	switch it.Backend {
	case BackendItems:
		return it.front >= len(it.items)
	case BackendRange:
		if it.descending {
			return it.cur <= it.end
		}
		return it.cur >= it.end
	default:
		return it.closed
	}
}

// RangeBounds reports a Range-backend iterator's current position and exclusive end
// (the same [begin, end) shape NewRangeIterator takes), for callers like subscript
// slicing that need the bounds without driving the iterator. ok is false for any other
// backend.
func (it *IteratorData) RangeBounds() (begin, end int, ok bool) {
	if it.Backend != BackendRange {
		return 0, 0, false
	}
	return it.cur, it.end, true
}

// Next returns the next value and advances, or reports exhaustion.
func (it *IteratorData) Next(rt *gc.Runtime) (value.WeakReference, bool, error) {
	switch it.Backend {
	case BackendItems:
		if it.front >= len(it.items) {
			return value.WeakReference{}, false, nil
		}
		v := it.items[it.front]
		it.front++
		return v, true, nil
	case BackendRange:
		if it.Empty() {
			return value.WeakReference{}, false, nil
		}
		cur := it.cur
		if it.descending {
			it.cur--
		} else {
			it.cur++
		}
		return value.NewWeakReference(rt, value.Default, NewNumber(rt, float64(cur))), true, nil
	default:
		if it.closed {
			return value.WeakReference{}, false, nil
		}
		v, ok, err := it.gen.Resume()
		if err != nil {
			return value.WeakReference{}, false, err
		}
		if !ok {
			it.closed = true
		}
		return v, ok, err
	}
}

// Emplace appends to an Items-backend iterator; used by generator yield to push a
// value onto the consuming iterator's buffer, and by array/hash iterator
// construction.
func (it *IteratorData) Emplace(ref value.WeakReference) {
	it.items = append(it.items, ref.Share())
}

func (it *IteratorData) CloneData(rt *gc.Runtime) gc.Data {
	switch it.Backend {
	case BackendItems:
		return NewItemsIterator(rt, it.items[it.front:])
	case BackendRange:
		return NewRangeIterator(rt, it.cur, it.end)
	default:
		// Generator state is inherently single-owner; cloning aliases the same
		// suspended state rather than duplicating it, matching move-only generator
		// semantics.
		d := newIterator(rt)
		d.Backend = BackendGenerator
		d.gen = it.gen
		return d
	}
}
