package dispatch

import (
	"ember/internal/bytecode"
	"ember/internal/class"
	"ember/internal/cursor"
	"ember/internal/errors"
	"ember/internal/object"
	"ember/internal/value"
)

// initMemberCall resolves a CALL_MEMBER's receiver and callee at INIT time: pop the
// receiver, stash it, look up sym against it (raw, unbound — the waiting call already
// tracks the receiver separately from the Function it resolved to).
func (d *Dispatcher) initMemberCall(c *cursor.Cursor, sym *bytecode.Symbol) (bool, error) {
	c.BeginCall()
	recv, ok := c.Pop()
	if !ok {
		return false, cursor.ErrStackUnderflow
	}
	c.SetWaitingReceiver(recv)
	v, ok := d.resolveMember(recv, sym.Name)
	if !ok {
		return false, errors.Newf(errors.NoSuchMember, "no such member: %s", sym.Name)
	}
	c.SetWaitingFunction(v)
	return true, nil
}

// initOperatorCall resolves an operator-call's receiver and callee at INIT time,
// mirroring initMemberCall but looking the callee up through the class operator table.
func (d *Dispatcher) initOperatorCall(c *cursor.Cursor, op class.Operator) (bool, error) {
	c.BeginCall()
	recv, ok := c.Pop()
	if !ok {
		return false, cursor.ErrStackUnderflow
	}
	c.SetWaitingReceiver(recv)
	cls := object.ClassOf(recv.Data())
	if cls == nil {
		return false, errors.New(errors.NoSuchOperator, "receiver has no class")
	}
	info := cls.Operator(op)
	if info == nil {
		return false, errors.New(errors.NoSuchOperator, "operator not implemented")
	}
	c.SetWaitingFunction(info.Default)
	return true, nil
}

// call implements CALL (isMember false) and CALL_MEMBER (isMember true). argc is the
// call's authoritative explicit-argument count, carried directly on the CALL/
// CALL_MEMBER node; the waiting-call accumulator INIT_CALL/INIT_PARAM built up is
// still balanced here via EndCall so CallBuiltin's own bookkeeping (which does read
// WaitingArgCount) never sees a stale frame.
func (d *Dispatcher) call(c *cursor.Cursor, argc int, isMember bool) (bool, error) {
	defer c.EndCall()

	if !isMember {
		fnRef, ok := c.Pop()
		if !ok {
			return false, cursor.ErrStackUnderflow
		}
		switch v := fnRef.Data().(type) {
		case *object.FunctionData:
			ov, ok := v.Resolve(argc)
			if !ok {
				return false, errors.Newf(errors.ArityMismatch, "no overload of %s for %d arguments", v.Name, argc)
			}
			return d.invoke(c, value.WeakReference{}, false, ov, argc)
		case *object.ArrayData:
			if v.Len() != 2 {
				return false, errors.New(errors.InvalidCast, "value is not callable")
			}
			recv, _ := v.At(0)
			fnv, _ := v.At(1)
			fn, ok := fnv.Data().(*object.FunctionData)
			if !ok {
				return false, errors.New(errors.InvalidCast, "value is not callable")
			}
			ov, ok := fn.Resolve(argc)
			if !ok {
				return false, errors.Newf(errors.ArityMismatch, "no overload of %s for %d arguments", fn.Name, argc)
			}
			return d.invoke(c, recv, true, ov, argc)
		default:
			return false, errors.New(errors.InvalidCast, "value is not callable")
		}
	}

	recv, hasRecv := c.WaitingReceiver()
	fnRef, hasFn := c.WaitingFunction()
	if !hasFn {
		return false, errors.New(errors.NoSuchMember, "call has no resolved function")
	}
	fn, ok := fnRef.Data().(*object.FunctionData)
	if !ok {
		return false, errors.New(errors.InvalidCast, "member is not callable")
	}
	ov, ok := fn.Resolve(argc)
	if !ok {
		return false, errors.Newf(errors.ArityMismatch, "no overload of %s for %d arguments", fn.Name, argc)
	}
	return d.invoke(c, recv, hasRecv, ov, argc)
}

// invoke performs the actual call described by ov against argc explicit operands
// already on the stack (popped here) plus an optional receiver: a Native overload runs
// immediately against a NativeContext; a generator Handle spawns a private cursor and
// pushes a Generator-backed iterator instead of running anything now; an ordinary
// Handle pushes a new bytecode frame via Cursor.Call. For a bytecode Handle, the
// receiver (if any) must occupy the bottom of the pushed window, since Call copies the
// window bottom-to-top into Fast[0..] and `self` is always Fast[0].
func (d *Dispatcher) invoke(c *cursor.Cursor, receiver value.WeakReference, hasReceiver bool, ov *object.Overload, argc int) (bool, error) {
	explicit := make([]value.WeakReference, argc)
	for i := argc - 1; i >= 0; i-- {
		v, ok := c.Pop()
		if !ok {
			return false, cursor.ErrStackUnderflow
		}
		explicit[i] = v
	}
	total := argc
	if hasReceiver {
		total++
	}

	if ov.Native != nil {
		if hasReceiver {
			c.Push(receiver)
		}
		for _, v := range explicit {
			c.Push(v)
		}
		if err := ov.Native(c, total); err != nil {
			return false, err
		}
		return true, nil
	}

	if ov.Handle == nil {
		return false, errors.New(errors.Unhandled, "overload has neither handle nor native implementation")
	}

	if ov.Handle.IsGenerator {
		args := explicit
		if hasReceiver {
			args = append([]value.WeakReference{receiver}, explicit...)
		}
		gen := d.newGenerator(ov.Handle, args)
		it := object.NewGeneratorIterator(d.RT, gen)
		c.Push(value.NewWeakReference(d.RT, value.Default, it))
		return true, nil
	}

	if hasReceiver {
		c.Push(receiver)
	}
	for _, v := range explicit {
		c.Push(v)
	}
	if err := c.Call(ov.Handle, total, nil, false); err != nil {
		return false, err
	}
	return true, nil
}

// callBuiltin implements CALL_BUILTIN: it reuses CALL_MEMBER's waiting-call receiver
// bookkeeping (a statically-known built-in method is compiled the same way as a user
// member call, just skipping class/Function resolution) but pushes the receiver on top
// of the already-pushed arguments (args-then-receiver), the reverse of invoke's Native
// path — each BuiltinMethod.Fn pops the receiver first, then its explicit arguments in
// reverse, which is the convention builtins.go's helpers are written against.
func (d *Dispatcher) callBuiltin(c *cursor.Cursor, idx int) (bool, error) {
	argc := c.WaitingArgCount()
	recv, hasRecv := c.WaitingReceiver()
	c.EndCall()
	total := argc
	if hasRecv {
		c.Push(recv)
		total++
	}
	if idx < 0 || idx >= len(d.Builtins) {
		return false, errors.Newf(errors.NoSuchMember, "builtin method index %d out of range", idx)
	}
	if err := d.Builtins[idx].Fn(d, c, total); err != nil {
		return false, err
	}
	return true, nil
}
