// Package builtin implements the shared operator-dispatch and iteration primitives
// the dispatch loop's opcodes are built out of: operator overload lookup, the three
// iterator backends' uniform Init/Next contract, generator yield, bound-method
// packaging, and symbol-table helpers.
package builtin

import (
	"ember/internal/bytecode"
	"ember/internal/class"
	"ember/internal/cursor"
	"ember/internal/gc"
	"ember/internal/object"
	"ember/internal/value"
)

// CallOverload looks up op's handler on receiver's metaclass and resolves the
// overload matching argc explicit operands (1 for the binary arithmetic/comparison
// operators, 0 for unary operators, 2 for the assignable subscript operator). It does
// not itself invoke the call, since only the dispatch loop knows how to run bytecode
// versus a NativeFunc. ok is false if no such operator is defined anywhere in the
// operand's class hierarchy, or no overload matches argc.
func CallOverload(c *cursor.Cursor, receiver value.WeakReference, op class.Operator, argc int) (*object.Overload, bool) {
	d := receiver.Data()
	if d == nil {
		return nil, false
	}
	cls := object.ClassOf(d)
	if cls == nil {
		return nil, false
	}
	info := cls.Operator(op)
	if info == nil {
		return nil, false
	}
	fn, ok := info.Default.Data().(*object.FunctionData)
	if !ok {
		return nil, false
	}
	return fn.Resolve(argc)
}

// IteratorInit produces an Iterator whose backend matches ref's runtime kind: String
// iterates code points, Array iterates elements, Hash iterates {key, value} pair
// arrays, an existing Iterator moves as-is, and anything else becomes a single-item
// Items iterator.
func IteratorInit(rt *gc.Runtime, ref value.WeakReference) *object.IteratorData {
	d := ref.Data()
	switch v := d.(type) {
	case *object.StringData:
		items := make([]value.WeakReference, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			r, _ := v.At(i)
			items = append(items, value.NewWeakReference(rt, value.Default, object.NewString(rt, string(r))))
		}
		return object.NewItemsIterator(rt, items)
	case *object.ArrayData:
		return object.NewItemsIterator(rt, v.Items)
	case *object.HashData:
		items := make([]value.WeakReference, 0, v.Len())
		v.Range(func(key, val value.WeakReference) bool {
			pair := object.NewArray(rt)
			pair.Push(key)
			pair.Push(val)
			items = append(items, value.NewWeakReference(rt, value.Default, pair))
			return true
		})
		return object.NewItemsIterator(rt, items)
	case *object.IteratorData:
		return v
	default:
		return object.NewItemsIterator(rt, []value.WeakReference{ref})
	}
}

// IteratorNext advances it, returning the next value or reporting exhaustion. For a
// Generator-backed iterator this drives the suspended cursor until the next yield.
func IteratorNext(rt *gc.Runtime, it *object.IteratorData) (value.WeakReference, bool, error) {
	return it.Next(rt)
}

// Yield emplaces the top-of-stack value into generator's target iterator and
// interrupts c, parking the generator's cursor until IteratorNext resumes it. The
// parent cursor (whoever called IteratorNext) regains control once Interrupt
// completes.
func Yield(c *cursor.Cursor, target *object.IteratorData) (*cursor.SavedState, error) {
	v, ok := c.Pop()
	if !ok {
		return nil, cursor.ErrStackUnderflow
	}
	target.Emplace(v)
	return c.Interrupt(), nil
}

// ReduceMember packages a receiver and a member function together, emulating
// bound-method dispatch: the returned array's first element is the receiver, second
// is the function, the bound-method shape a plain CALL accepts as its callee.
func ReduceMember(rt *gc.Runtime, receiver value.WeakReference, fn *object.FunctionData) *object.ArrayData {
	bound := object.NewArray(rt)
	bound.Push(receiver)
	bound.Push(value.NewWeakReference(rt, value.Default, fn))
	return bound
}

// GetSymbolReference looks up sym in table, creating a new default-visibility slot
// bound to the runtime's None singleton if absent.
func GetSymbolReference(rt *gc.Runtime, none gc.Data, table map[*bytecode.Symbol]value.WeakReference, sym *bytecode.Symbol) value.WeakReference {
	if ref, ok := table[sym]; ok {
		return ref
	}
	ref := value.NewWeakReference(rt, value.Default, none)
	table[sym] = ref
	return ref
}

// VarSymbol pops a string value off c's stack and interns it against symbols,
// implementing the dynamic-symbol-name opcodes (LoadVarSymbol and friends).
func VarSymbol(c *cursor.Cursor, symbols interface{ Intern(string) *bytecode.Symbol }) (*bytecode.Symbol, error) {
	ref, ok := c.Pop()
	if !ok {
		return nil, cursor.ErrStackUnderflow
	}
	s, ok := ref.Data().(*object.StringData)
	if !ok {
		return nil, ErrNotAString
	}
	return symbols.Intern(s.String()), nil
}
