package builtin

import (
	"strings"

	"ember/internal/class"
	"ember/internal/cursor"
	"ember/internal/errors"
	"ember/internal/gc"
	"ember/internal/object"
	"ember/internal/value"
)

// RegisterBuiltinClasses builds the Class backing each built-in container Kind and
// installs it via object.RegisterBuiltinClass, so CALL_MEMBER's ordinary class-member
// resolution (object.ClassOf -> Class.Member) reaches array/string/hash/iterator
// methods the same way it reaches a user class's — no CALL_BUILTIN required. The
// CALL_BUILTIN table in package dispatch remains a legitimate, faster path a
// type-aware compiler could target; this registration step is what a front end that
// always emits CALL_MEMBER needs instead.
func RegisterBuiltinClasses(rt *gc.Runtime, singletons *object.Singletons) {
	arr := class.NewClass(nil, "Array", class.Array)
	method(rt, arr, "push", 1, arrayPush)
	method(rt, arr, "pop", 0, arrayPop(singletons))
	method(rt, arr, "len", 0, arrayLen)
	object.RegisterBuiltinClass(object.KindArray, arr)

	str := class.NewClass(nil, "String", class.String)
	method(rt, str, "len", 0, stringLen)
	method(rt, str, "upper", 0, stringUpper)
	method(rt, str, "lower", 0, stringLower)
	object.RegisterBuiltinClass(object.KindString, str)

	hash := class.NewClass(nil, "Hash", class.Hash)
	method(rt, hash, "len", 0, hashLen)
	method(rt, hash, "keys", 0, hashKeys)
	method(rt, hash, "values", 0, hashValues)
	object.RegisterBuiltinClass(object.KindHash, hash)

	it := class.NewClass(nil, "Iterator", class.Iterator)
	method(rt, it, "next", 0, iteratorNext(singletons))
	method(rt, it, "hasNext", 0, iteratorHasNext)
	object.RegisterBuiltinClass(object.KindIterator, it)
}

// method installs a single-overload native member: arity excludes the implicit
// receiver, matching object.Overload.Arity's contract for a bound call.
func method(rt *gc.Runtime, cls *class.Class, name string, arity int, fn object.NativeFunc) {
	f := object.NewFunction(rt, name)
	f = f.WithOverload(rt, &object.Overload{Native: fn, Arity: arity})
	cls.AddMember(name, &class.MemberInfo{Offset: class.InvalidOffset, Owner: cls,
		Default: value.NewWeakReference(rt, value.Default, f)})
}

// popArgs pops n explicit arguments (pushed left-to-right) followed by the receiver,
// the stack order invoke() leaves behind for every native member call, and returns
// them in declaration order plus the receiver.
func popArgs(ctx object.NativeContext, n int) ([]value.WeakReference, value.WeakReference, bool) {
	args := make([]value.WeakReference, n)
	for i := n - 1; i >= 0; i-- {
		v, ok := ctx.Pop()
		if !ok {
			return nil, value.WeakReference{}, false
		}
		args[i] = v
	}
	recv, ok := ctx.Pop()
	if !ok {
		return nil, value.WeakReference{}, false
	}
	return args, recv, true
}

func arrayPush(ctx object.NativeContext, argc int) error {
	args, recv, ok := popArgs(ctx, argc-1)
	if !ok {
		return cursor.ErrStackUnderflow
	}
	arr, ok := recv.Data().(*object.ArrayData)
	if !ok {
		return errors.New(errors.InvalidCast, "push receiver is not an array")
	}
	arr.Push(args[0])
	ctx.Push(value.NewWeakReference(ctx.Runtime(), value.Default, object.NewNumber(ctx.Runtime(), float64(arr.Len()))))
	return nil
}

func arrayPop(singletons *object.Singletons) object.NativeFunc {
	return func(ctx object.NativeContext, argc int) error {
		_, recv, ok := popArgs(ctx, argc-1)
		if !ok {
			return cursor.ErrStackUnderflow
		}
		arr, ok := recv.Data().(*object.ArrayData)
		if !ok {
			return errors.New(errors.InvalidCast, "pop receiver is not an array")
		}
		v, ok := arr.Pop()
		if !ok {
			ctx.Push(value.NewWeakReference(ctx.Runtime(), value.Default, singletons.NoneValue))
			return nil
		}
		ctx.Push(v)
		return nil
	}
}

func arrayLen(ctx object.NativeContext, argc int) error {
	_, recv, ok := popArgs(ctx, argc-1)
	if !ok {
		return cursor.ErrStackUnderflow
	}
	arr, ok := recv.Data().(*object.ArrayData)
	if !ok {
		return errors.New(errors.InvalidCast, "len receiver is not an array")
	}
	ctx.Push(value.NewWeakReference(ctx.Runtime(), value.Default, object.NewNumber(ctx.Runtime(), float64(arr.Len()))))
	return nil
}

func stringLen(ctx object.NativeContext, argc int) error {
	_, recv, ok := popArgs(ctx, argc-1)
	if !ok {
		return cursor.ErrStackUnderflow
	}
	s, ok := recv.Data().(*object.StringData)
	if !ok {
		return errors.New(errors.InvalidCast, "len receiver is not a string")
	}
	ctx.Push(value.NewWeakReference(ctx.Runtime(), value.Default, object.NewNumber(ctx.Runtime(), float64(s.Len()))))
	return nil
}

func stringUpper(ctx object.NativeContext, argc int) error {
	_, recv, ok := popArgs(ctx, argc-1)
	if !ok {
		return cursor.ErrStackUnderflow
	}
	s, ok := recv.Data().(*object.StringData)
	if !ok {
		return errors.New(errors.InvalidCast, "upper receiver is not a string")
	}
	ctx.Push(value.NewWeakReference(ctx.Runtime(), value.Default, object.NewString(ctx.Runtime(), strings.ToUpper(s.String()))))
	return nil
}

func stringLower(ctx object.NativeContext, argc int) error {
	_, recv, ok := popArgs(ctx, argc-1)
	if !ok {
		return cursor.ErrStackUnderflow
	}
	s, ok := recv.Data().(*object.StringData)
	if !ok {
		return errors.New(errors.InvalidCast, "lower receiver is not a string")
	}
	ctx.Push(value.NewWeakReference(ctx.Runtime(), value.Default, object.NewString(ctx.Runtime(), strings.ToLower(s.String()))))
	return nil
}

func hashLen(ctx object.NativeContext, argc int) error {
	_, recv, ok := popArgs(ctx, argc-1)
	if !ok {
		return cursor.ErrStackUnderflow
	}
	h, ok := recv.Data().(*object.HashData)
	if !ok {
		return errors.New(errors.InvalidCast, "len receiver is not a hash")
	}
	ctx.Push(value.NewWeakReference(ctx.Runtime(), value.Default, object.NewNumber(ctx.Runtime(), float64(h.Len()))))
	return nil
}

func hashKeys(ctx object.NativeContext, argc int) error {
	_, recv, ok := popArgs(ctx, argc-1)
	if !ok {
		return cursor.ErrStackUnderflow
	}
	h, ok := recv.Data().(*object.HashData)
	if !ok {
		return errors.New(errors.InvalidCast, "keys receiver is not a hash")
	}
	rt := ctx.Runtime()
	out := object.NewArray(rt)
	h.Range(func(key, val value.WeakReference) bool {
		out.Push(key)
		return true
	})
	ctx.Push(value.NewWeakReference(rt, value.Default, out))
	return nil
}

func hashValues(ctx object.NativeContext, argc int) error {
	_, recv, ok := popArgs(ctx, argc-1)
	if !ok {
		return cursor.ErrStackUnderflow
	}
	h, ok := recv.Data().(*object.HashData)
	if !ok {
		return errors.New(errors.InvalidCast, "values receiver is not a hash")
	}
	rt := ctx.Runtime()
	out := object.NewArray(rt)
	h.Range(func(key, val value.WeakReference) bool {
		out.Push(val)
		return true
	})
	ctx.Push(value.NewWeakReference(rt, value.Default, out))
	return nil
}

func iteratorNext(singletons *object.Singletons) object.NativeFunc {
	return func(ctx object.NativeContext, argc int) error {
		_, recv, ok := popArgs(ctx, argc-1)
		if !ok {
			return cursor.ErrStackUnderflow
		}
		it, ok := recv.Data().(*object.IteratorData)
		if !ok {
			return errors.New(errors.InvalidCast, "next receiver is not an iterator")
		}
		v, produced, err := IteratorNext(ctx.Runtime(), it)
		if err != nil {
			return err
		}
		if !produced {
			ctx.Push(value.NewWeakReference(ctx.Runtime(), value.Default, singletons.NoneValue))
			return nil
		}
		ctx.Push(v)
		return nil
	}
}

func iteratorHasNext(ctx object.NativeContext, argc int) error {
	_, recv, ok := popArgs(ctx, argc-1)
	if !ok {
		return cursor.ErrStackUnderflow
	}
	it, ok := recv.Data().(*object.IteratorData)
	if !ok {
		return errors.New(errors.InvalidCast, "hasNext receiver is not an iterator")
	}
	ctx.Push(value.NewWeakReference(ctx.Runtime(), value.Default, object.NewBoolean(ctx.Runtime(), !it.Empty())))
	return nil
}
