package dispatch

import (
	"path/filepath"

	"ember/internal/builtin"
	"ember/internal/bytecode"
	"ember/internal/class"
	"ember/internal/cursor"
	"ember/internal/errors"
	"ember/internal/object"
	"ember/internal/value"
)

// loadModule resolves and loads the module named by node's constant (a path string),
// pushing its package object. The first load of a path then calls into the module's
// top-level Handle, whose EXIT_MODULE returns here. Re-importing an already-loaded path
// is free — Cache.Load returns the cached Module without repeating its top-level side
// effects. A name found
// in BuiltinPackages (dblib, wslib) is pushed directly, bypassing the file-backed
// module cache entirely — these packages have no source file to resolve.
func (d *Dispatcher) loadModule(c *cursor.Cursor, node *bytecode.Node) (bool, error) {
	ref := node.Constant
	s, ok := ref.Data().(*object.StringData)
	if !ok {
		return false, errors.New(errors.InvalidCast, "LOAD_MODULE constant is not a string")
	}
	if pkg, ok := d.BuiltinPackages[s.String()]; ok {
		c.Push(value.NewWeakReference(d.RT, value.Default, object.NewPackageObject(d.RT, pkg)))
		return true, nil
	}
	abs, err := d.ModuleCache.Resolve(s.String())
	if err != nil {
		if filepath.IsAbs(s.String()) {
			abs = s.String()
		} else {
			return false, err
		}
	}
	_, cached := d.ModuleCache.Get(abs)
	m, err := d.ModuleCache.Load(abs, d.Loader)
	if err != nil {
		return false, err
	}
	c.Push(value.NewWeakReference(d.RT, value.Default, object.NewPackageObject(d.RT, m.Package)))
	if !cached && len(m.Handles) > 0 {
		if err := c.Call(m.Handles[0], 0, nil, false); err != nil {
			return false, err
		}
	}
	return true, nil
}

// resolveMember resolves name against receiver's raw value, unbound, following the
// three shapes a receiver can take: a package object (a module's top-level globals),
// an instance or class object (its linearized member map), or a built-in value (its
// metaclass's members).
func (d *Dispatcher) resolveMember(receiver value.WeakReference, name string) (value.WeakReference, bool) {
	switch recv := receiver.Data().(type) {
	case *object.PackageObjectData:
		g, ok := recv.Meta.Global(name)
		if !ok {
			return value.WeakReference{}, false
		}
		return g.Share(), true

	case *object.InstanceData:
		var info *class.MemberInfo
		var ok bool
		if recv.IsClassObject() {
			info, ok = recv.Class.GlobalMembers()[name]
		} else {
			info, ok = recv.Class.Member(name)
		}
		if !ok {
			return value.WeakReference{}, false
		}
		if !recv.IsClassObject() && info.Offset != class.InvalidOffset {
			if v, ok := recv.Slot(info.Offset); ok {
				return v, true
			}
		}
		return info.Default, true

	default:
		cls := object.ClassOf(receiver.Data())
		if cls == nil {
			return value.WeakReference{}, false
		}
		info, ok := cls.Member(name)
		if !ok {
			return value.WeakReference{}, false
		}
		return info.Default, true
	}
}

// memberLookup resolves name against receiver and binds a Function-typed result to
// receiver via ReduceMember, so loading a member without immediately calling it still
// yields a usable callable (LOAD_MEMBER's contract, as opposed to INIT_MEMBER_CALL's,
// which keeps the raw Function and tracks the receiver separately).
func (d *Dispatcher) memberLookup(receiver value.WeakReference, name string) (value.WeakReference, bool) {
	v, ok := d.resolveMember(receiver, name)
	if !ok {
		return value.WeakReference{}, false
	}
	return d.bindIfFunction(receiver, v), true
}

// bindIfFunction wraps a Function-typed member value as a bound method paired with
// receiver; any other value passes through unchanged.
func (d *Dispatcher) bindIfFunction(receiver, v value.WeakReference) value.WeakReference {
	if fn, ok := v.Data().(*object.FunctionData); ok {
		return value.NewWeakReference(d.RT, value.Default, builtin.ReduceMember(d.RT, receiver, fn))
	}
	return v
}

// loadMember pops a receiver and pushes its named member's value.
func (d *Dispatcher) loadMember(c *cursor.Cursor, sym *bytecode.Symbol) (bool, error) {
	recv, ok := c.Pop()
	if !ok {
		return false, cursor.ErrStackUnderflow
	}
	v, ok := d.memberLookup(recv, sym.Name)
	if !ok {
		return false, errors.Newf(errors.NoSuchMember, "no such member: %s", sym.Name)
	}
	c.Push(v)
	return true, nil
}

// loadOperator pops a receiver and pushes its class's handler for op as a bound
// callable, supporting metaprogramming that treats an operator as an ordinary value.
func (d *Dispatcher) loadOperator(c *cursor.Cursor, op class.Operator) (bool, error) {
	recv, ok := c.Pop()
	if !ok {
		return false, cursor.ErrStackUnderflow
	}
	cls := object.ClassOf(recv.Data())
	if cls == nil {
		return false, errors.New(errors.NoSuchOperator, "receiver has no class")
	}
	info := cls.Operator(op)
	if info == nil {
		return false, errors.New(errors.NoSuchOperator, "operator not implemented")
	}
	c.Push(d.bindIfFunction(recv, info.Default))
	return true, nil
}

// functionOverload installs the Parameter-indexed module Handle as one more signature
// of the symbol's Function value, implementing overload merge at DECLARE_FUNCTION /
// FUNCTION_OVERLOAD pairs.
func (d *Dispatcher) functionOverload(c *cursor.Cursor, node *bytecode.Node) (bool, error) {
	ctx := c.Current()
	ref, ok := ctx.Symbols[node.Symbol]
	if !ok {
		return false, errors.Newf(errors.NoSuchSymbol, "no such function: %s", node.Symbol.Name)
	}
	fn, ok := ref.Data().(*object.FunctionData)
	if !ok {
		return false, errors.New(errors.InvalidCast, "FUNCTION_OVERLOAD on a non-function symbol")
	}
	idx := int(node.Parameter)
	if idx < 0 || idx >= len(ctx.Module.Handles) {
		return false, errors.Newf(errors.NoSuchSymbol, "handle index %d out of range", idx)
	}
	handle := ctx.Module.Handles[idx]
	ov := &object.Overload{Handle: handle, Arity: handle.ParameterCount, Variadic: handle.Variadic}
	merged := fn.WithOverload(d.RT, ov)
	ctx.Symbols[node.Symbol] = value.NewWeakReference(d.RT, value.Default, merged)
	return true, nil
}
