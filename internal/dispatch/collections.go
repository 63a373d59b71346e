package dispatch

import (
	"ember/internal/builtin"
	"ember/internal/bytecode"
	"ember/internal/class"
	"ember/internal/cursor"
	"ember/internal/errors"
	"ember/internal/gc"
	"ember/internal/object"
	"ember/internal/value"
)

// initIterator pops n values (reverse order, since they were pushed left-to-right)
// and installs them into the Items-backend iterator Alloc_Iterator already pushed,
// preserving that placeholder's identity rather than replacing it with a new value.
func (d *Dispatcher) initIterator(c *cursor.Cursor, n int) (bool, error) {
	items := make([]value.WeakReference, n)
	for i := n - 1; i >= 0; i-- {
		v, ok := c.Pop()
		if !ok {
			return false, cursor.ErrStackUnderflow
		}
		items[i] = v
	}
	top, ok := c.Peek()
	if !ok {
		return false, cursor.ErrStackUnderflow
	}
	it, ok := top.Data().(*object.IteratorData)
	if !ok {
		return false, errors.New(errors.InvalidCast, "INIT_ITERATOR on a non-iterator")
	}
	for _, v := range items {
		it.Emplace(v)
	}
	return true, nil
}

// initArray pops n values and appends them, in order, to the Array placeholder
// Alloc_Array already pushed.
func (d *Dispatcher) initArray(c *cursor.Cursor, n int) (bool, error) {
	items := make([]value.WeakReference, n)
	for i := n - 1; i >= 0; i-- {
		v, ok := c.Pop()
		if !ok {
			return false, cursor.ErrStackUnderflow
		}
		items[i] = v
	}
	top, ok := c.Peek()
	if !ok {
		return false, cursor.ErrStackUnderflow
	}
	arr, ok := top.Data().(*object.ArrayData)
	if !ok {
		return false, errors.New(errors.InvalidCast, "INIT_ARRAY on a non-array")
	}
	for _, v := range items {
		arr.Push(v)
	}
	return true, nil
}

// initHash pops 2n values (each popped pair is val, key, in reverse order) and installs
// them into the Hash placeholder Alloc_Hash already pushed.
func (d *Dispatcher) initHash(c *cursor.Cursor, n int) (bool, error) {
	type pair struct{ key, val value.WeakReference }
	pairs := make([]pair, n)
	for i := n - 1; i >= 0; i-- {
		v, ok := c.Pop()
		if !ok {
			return false, cursor.ErrStackUnderflow
		}
		k, ok := c.Pop()
		if !ok {
			return false, cursor.ErrStackUnderflow
		}
		pairs[i] = pair{key: k, val: v}
	}
	top, ok := c.Peek()
	if !ok {
		return false, cursor.ErrStackUnderflow
	}
	h, ok := top.Data().(*object.HashData)
	if !ok {
		return false, errors.New(errors.InvalidCast, "INIT_HASH on a non-hash")
	}
	for _, p := range pairs {
		h.Set(p.key, p.val)
	}
	return true, nil
}

// rangeOp builds a Range iterator directly from two numeric operands, adjusting the
// exclusive bound by one for INCLUSIVE_RANGE_OP in whichever direction the range runs.
func (d *Dispatcher) rangeOp(c *cursor.Cursor, op bytecode.Op) (bool, error) {
	right, ok := c.Pop()
	if !ok {
		return false, cursor.ErrStackUnderflow
	}
	left, ok := c.Pop()
	if !ok {
		return false, cursor.ErrStackUnderflow
	}
	begin, ok := numberOf(left.Data())
	if !ok {
		return false, errors.New(errors.InvalidCast, "range operand is not a number")
	}
	end, ok := numberOf(right.Data())
	if !ok {
		return false, errors.New(errors.InvalidCast, "range operand is not a number")
	}
	bi, ei := int(begin), int(end)
	if op == bytecode.InclusiveRangeOp {
		if ei >= bi {
			ei++
		} else {
			ei--
		}
	}
	it := object.NewRangeIterator(d.RT, bi, ei)
	c.Push(value.NewWeakReference(d.RT, value.Default, it))
	return true, nil
}

// rangeNextOrJump implements FIND_NEXT: pop the search iterator, peek the target
// beneath it, advance the iterator, and jump to node.Parameter if the advanced value
// doesn't match target — using the built-in total order, not a re-invoked `==`
// overload, since a single dispatch step can't spawn and await an intervening call.
func (d *Dispatcher) rangeNextOrJump(c *cursor.Cursor, node *bytecode.Node) (bool, error) {
	itRef, ok := c.Pop()
	if !ok {
		return false, cursor.ErrStackUnderflow
	}
	target, ok := c.Peek()
	if !ok {
		return false, cursor.ErrStackUnderflow
	}
	it, ok := itRef.Data().(*object.IteratorData)
	if !ok {
		return false, errors.New(errors.InvalidCast, "FIND_NEXT on a non-iterator")
	}
	v, produced, err := builtin.IteratorNext(d.RT, it)
	if err != nil {
		return false, err
	}
	c.Push(itRef)
	if !produced || object.CompareTo(target.Data(), v.Data()) != 0 {
		c.Jmp(node.Parameter)
	}
	return true, nil
}

// indexOf extracts an int index from a Number datum.
func indexOf(d gc.Data) (int, bool) {
	n, ok := d.(*object.NumberData)
	if !ok {
		return 0, false
	}
	return int(n.Value), true
}

// rangeBoundsOf recognizes a Range-backend iterator used as a subscript (array/string
// slicing via `a[1..2]`), returning its bounds normalized to ascending [begin, end)
// regardless of which direction the range itself runs.
func rangeBoundsOf(d gc.Data) (begin, end int, ok bool) {
	it, isIter := d.(*object.IteratorData)
	if !isIter {
		return 0, 0, false
	}
	cur, stop, isRange := it.RangeBounds()
	if !isRange {
		return 0, 0, false
	}
	if cur <= stop {
		return cur, stop, true
	}
	return stop + 1, cur + 1, true
}

// subscript implements both SUBSCRIPT_OP (read) and SUBSCRIPT_MOVE_OP (assign),
// special-casing the three built-in indexable types before falling back to the
// receiver's class OpSubscript/OpSubscriptMove overload.
func (d *Dispatcher) subscript(c *cursor.Cursor, op bytecode.Op) (bool, error) {
	if op == bytecode.SubscriptOp {
		idxRef, ok := c.Pop()
		if !ok {
			return false, cursor.ErrStackUnderflow
		}
		recvRef, ok := c.Pop()
		if !ok {
			return false, cursor.ErrStackUnderflow
		}
		switch recv := recvRef.Data().(type) {
		case *object.ArrayData:
			if begin, end, ok := rangeBoundsOf(idxRef.Data()); ok {
				c.Push(value.NewWeakReference(d.RT, value.Default, recv.Slice(d.RT, begin, end)))
				return true, nil
			}
			idx, ok := indexOf(idxRef.Data())
			if !ok {
				return false, errors.New(errors.InvalidCast, "array index is not a number")
			}
			v, ok := recv.At(idx)
			if !ok {
				return false, errors.New(errors.InvalidCast, "array index out of range")
			}
			c.Push(v.Share())
			return true, nil
		case *object.StringData:
			if begin, end, ok := rangeBoundsOf(idxRef.Data()); ok {
				c.Push(value.NewWeakReference(d.RT, value.Default, recv.Slice(d.RT, begin, end)))
				return true, nil
			}
			idx, ok := indexOf(idxRef.Data())
			if !ok {
				return false, errors.New(errors.InvalidCast, "string index is not a number")
			}
			r, ok := recv.At(idx)
			if !ok {
				return false, errors.New(errors.InvalidCast, "string index out of range")
			}
			c.Push(value.NewWeakReference(d.RT, value.Default, object.NewString(d.RT, string(r))))
			return true, nil
		case *object.HashData:
			v, ok := recv.Get(idxRef)
			if !ok {
				c.Push(value.NewWeakReference(d.RT, value.Default, d.Singletons.NoneValue))
				return true, nil
			}
			c.Push(v.Share())
			return true, nil
		default:
			ov, ok := builtin.CallOverload(c, recvRef, class.OpSubscript, 1)
			if !ok {
				return false, errors.New(errors.NoSuchOperator, "no such operator: []")
			}
			c.Push(idxRef)
			return d.invoke(c, recvRef, true, ov, 1)
		}
	}

	valRef, ok := c.Pop()
	if !ok {
		return false, cursor.ErrStackUnderflow
	}
	idxRef, ok := c.Pop()
	if !ok {
		return false, cursor.ErrStackUnderflow
	}
	recvRef, ok := c.Pop()
	if !ok {
		return false, cursor.ErrStackUnderflow
	}
	switch recv := recvRef.Data().(type) {
	case *object.ArrayData:
		idx, ok := indexOf(idxRef.Data())
		if !ok {
			return false, errors.New(errors.InvalidCast, "array index is not a number")
		}
		if !recv.Set(idx, valRef) {
			return false, errors.New(errors.InvalidCast, "array index out of range")
		}
		c.Push(valRef)
		return true, nil
	case *object.HashData:
		recv.Set(idxRef, valRef)
		c.Push(valRef)
		return true, nil
	default:
		ov, ok := builtin.CallOverload(c, recvRef, class.OpSubscriptMove, 2)
		if !ok {
			return false, errors.New(errors.NoSuchOperator, "no such operator: []=")
		}
		c.Push(idxRef)
		c.Push(valRef)
		return d.invoke(c, recvRef, true, ov, 2)
	}
}

// membersOf implements MEMBERSOF_OP: pop a receiver and push an Array of its member
// names, for reflection.
func (d *Dispatcher) membersOf(c *cursor.Cursor) (bool, error) {
	recv, ok := c.Pop()
	if !ok {
		return false, cursor.ErrStackUnderflow
	}
	cls := object.ClassOf(recv.Data())
	arr := object.NewArray(d.RT)
	if cls != nil {
		for name := range cls.Members() {
			arr.Push(value.NewWeakReference(d.RT, value.Default, object.NewString(d.RT, name)))
		}
	}
	c.Push(value.NewWeakReference(d.RT, value.Default, arr))
	return true, nil
}
