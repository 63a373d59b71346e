package dispatch

import (
	"strings"

	"ember/internal/builtin"
	"ember/internal/cursor"
	"ember/internal/errors"
	"ember/internal/object"
	"ember/internal/value"
)

// BuiltinMethod is one entry of the global, directly-indexed builtin-method table
// CALL_BUILTIN dispatches into. Unlike object.NativeFunc (which has no separate
// receiver parameter), Fn always sees argc including a receiver, if callBuiltin pushed
// one — CALL_BUILTIN is only ever emitted for a statically-known built-in method, so
// the compiler and this table agree on shape ahead of time.
type BuiltinMethod struct {
	Name string
	Fn   func(d *Dispatcher, c *cursor.Cursor, argc int) error
}

// Index constants into newBuiltinTable's slice, referenced by a CALL_BUILTIN node's
// Parameter.
const (
	BuiltinArrayPush = iota
	BuiltinArrayPop
	BuiltinArrayLen
	BuiltinStringLen
	BuiltinStringUpper
	BuiltinStringLower
	BuiltinHashLen
	BuiltinHashKeys
	BuiltinHashValues
	BuiltinIteratorNext
	BuiltinIteratorHasNext
)

func newBuiltinTable() []BuiltinMethod {
	return []BuiltinMethod{
		BuiltinArrayPush:       {Name: "push", Fn: biArrayPush},
		BuiltinArrayPop:        {Name: "pop", Fn: biArrayPop},
		BuiltinArrayLen:        {Name: "len", Fn: biArrayLen},
		BuiltinStringLen:       {Name: "len", Fn: biStringLen},
		BuiltinStringUpper:     {Name: "upper", Fn: biStringUpper},
		BuiltinStringLower:     {Name: "lower", Fn: biStringLower},
		BuiltinHashLen:         {Name: "len", Fn: biHashLen},
		BuiltinHashKeys:        {Name: "keys", Fn: biHashKeys},
		BuiltinHashValues:      {Name: "values", Fn: biHashValues},
		BuiltinIteratorNext:    {Name: "next", Fn: biIteratorNext},
		BuiltinIteratorHasNext: {Name: "hasNext", Fn: biIteratorHasNext},
	}
}

func biArrayPush(d *Dispatcher, c *cursor.Cursor, argc int) error {
	recv, ok := c.Pop()
	if !ok {
		return cursor.ErrStackUnderflow
	}
	val, ok := c.Pop()
	if !ok {
		return cursor.ErrStackUnderflow
	}
	arr, ok := recv.Data().(*object.ArrayData)
	if !ok {
		return errors.New(errors.InvalidCast, "push receiver is not an array")
	}
	arr.Push(val)
	c.Push(d.number(float64(arr.Len())))
	return nil
}

func biArrayPop(d *Dispatcher, c *cursor.Cursor, argc int) error {
	recv, ok := c.Pop()
	if !ok {
		return cursor.ErrStackUnderflow
	}
	arr, ok := recv.Data().(*object.ArrayData)
	if !ok {
		return errors.New(errors.InvalidCast, "pop receiver is not an array")
	}
	v, ok := arr.Pop()
	if !ok {
		c.Push(value.NewWeakReference(d.RT, value.Default, d.Singletons.NoneValue))
		return nil
	}
	c.Push(v)
	return nil
}

func biArrayLen(d *Dispatcher, c *cursor.Cursor, argc int) error {
	recv, ok := c.Pop()
	if !ok {
		return cursor.ErrStackUnderflow
	}
	arr, ok := recv.Data().(*object.ArrayData)
	if !ok {
		return errors.New(errors.InvalidCast, "len receiver is not an array")
	}
	c.Push(d.number(float64(arr.Len())))
	return nil
}

func biStringLen(d *Dispatcher, c *cursor.Cursor, argc int) error {
	recv, ok := c.Pop()
	if !ok {
		return cursor.ErrStackUnderflow
	}
	s, ok := recv.Data().(*object.StringData)
	if !ok {
		return errors.New(errors.InvalidCast, "len receiver is not a string")
	}
	c.Push(d.number(float64(s.Len())))
	return nil
}

func biStringUpper(d *Dispatcher, c *cursor.Cursor, argc int) error {
	recv, ok := c.Pop()
	if !ok {
		return cursor.ErrStackUnderflow
	}
	s, ok := recv.Data().(*object.StringData)
	if !ok {
		return errors.New(errors.InvalidCast, "upper receiver is not a string")
	}
	c.Push(d.string(object.NewString(d.RT, strings.ToUpper(s.String()))))
	return nil
}

func biStringLower(d *Dispatcher, c *cursor.Cursor, argc int) error {
	recv, ok := c.Pop()
	if !ok {
		return cursor.ErrStackUnderflow
	}
	s, ok := recv.Data().(*object.StringData)
	if !ok {
		return errors.New(errors.InvalidCast, "lower receiver is not a string")
	}
	c.Push(d.string(object.NewString(d.RT, strings.ToLower(s.String()))))
	return nil
}

func biHashLen(d *Dispatcher, c *cursor.Cursor, argc int) error {
	recv, ok := c.Pop()
	if !ok {
		return cursor.ErrStackUnderflow
	}
	h, ok := recv.Data().(*object.HashData)
	if !ok {
		return errors.New(errors.InvalidCast, "len receiver is not a hash")
	}
	c.Push(d.number(float64(h.Len())))
	return nil
}

func biHashKeys(d *Dispatcher, c *cursor.Cursor, argc int) error {
	recv, ok := c.Pop()
	if !ok {
		return cursor.ErrStackUnderflow
	}
	h, ok := recv.Data().(*object.HashData)
	if !ok {
		return errors.New(errors.InvalidCast, "keys receiver is not a hash")
	}
	arr := object.NewArray(d.RT)
	h.Range(func(key, val value.WeakReference) bool {
		arr.Push(key)
		return true
	})
	c.Push(value.NewWeakReference(d.RT, value.Default, arr))
	return nil
}

func biHashValues(d *Dispatcher, c *cursor.Cursor, argc int) error {
	recv, ok := c.Pop()
	if !ok {
		return cursor.ErrStackUnderflow
	}
	h, ok := recv.Data().(*object.HashData)
	if !ok {
		return errors.New(errors.InvalidCast, "values receiver is not a hash")
	}
	arr := object.NewArray(d.RT)
	h.Range(func(key, val value.WeakReference) bool {
		arr.Push(val)
		return true
	})
	c.Push(value.NewWeakReference(d.RT, value.Default, arr))
	return nil
}

func biIteratorNext(d *Dispatcher, c *cursor.Cursor, argc int) error {
	recv, ok := c.Pop()
	if !ok {
		return cursor.ErrStackUnderflow
	}
	it, ok := recv.Data().(*object.IteratorData)
	if !ok {
		return errors.New(errors.InvalidCast, "next receiver is not an iterator")
	}
	v, produced, err := builtin.IteratorNext(d.RT, it)
	if err != nil {
		return err
	}
	if !produced {
		c.Push(value.NewWeakReference(d.RT, value.Default, d.Singletons.NoneValue))
		return nil
	}
	c.Push(v)
	return nil
}

func biIteratorHasNext(d *Dispatcher, c *cursor.Cursor, argc int) error {
	recv, ok := c.Pop()
	if !ok {
		return cursor.ErrStackUnderflow
	}
	it, ok := recv.Data().(*object.IteratorData)
	if !ok {
		return errors.New(errors.InvalidCast, "hasNext receiver is not an iterator")
	}
	c.Push(d.boolean(!it.Empty()))
	return nil
}
