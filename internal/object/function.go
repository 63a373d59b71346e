package object

import (
	"ember/internal/gc"
	"ember/internal/module"
	"ember/internal/value"
)

// NativeContext is the minimal surface a NativeFunc needs from the executing cursor,
// kept as an interface here (rather than importing package cursor) so object stays
// beneath cursor in the dependency layering.
type NativeContext interface {
	Runtime() *gc.Runtime
	Push(ref value.WeakReference)
	Pop() (value.WeakReference, bool)
}

// NativeFunc is a builtin's Go implementation, dispatched by CallBuiltin.
type NativeFunc func(ctx NativeContext, argc int) error

// Overload is one callable signature of a Function: either a bytecode Handle or a
// NativeFunc, never both.
type Overload struct {
	Handle   *module.Handle
	Native   NativeFunc
	Arity    int
	Variadic bool // true: Arity is the minimum fixed argument count
}

// FunctionData maps call signatures (exact arity, or the best variadic fit) to
// Overloads. The map is never mutated in place after construction — FUNCTION_OVERLOAD
// (Merge) builds a new map reusing the old entries' pointers, which is what lets
// Share/Copy pass a FunctionData around cheaply ("copy-on-write shared" in the data
// model) without ever observing a partially-updated overload set.
type FunctionData struct {
	Base
	Name      string
	overloads map[int]*Overload
	variadic  []*Overload // sorted descending by Arity, most specific first
}

func NewFunction(rt *gc.Runtime, name string) *FunctionData {
	d := &FunctionData{Name: name, overloads: make(map[int]*Overload)}
	rt.Register(d)
	return d
}

// WithOverload returns a new FunctionData with ov installed at its signature,
// sharing every other overload with f. This is FUNCTION_OVERLOAD's merge step.
func (f *FunctionData) WithOverload(rt *gc.Runtime, ov *Overload) *FunctionData {
	merged := &FunctionData{Name: f.Name, overloads: make(map[int]*Overload, len(f.overloads)+1)}
	for k, v := range f.overloads {
		merged.overloads[k] = v
	}
	if ov.Variadic {
		merged.overloads[-(ov.Arity + 1)] = ov
	} else {
		merged.overloads[ov.Arity] = ov
	}
	merged.rebuildVariadic()
	rt.Register(merged)
	return merged
}

func (f *FunctionData) rebuildVariadic() {
	f.variadic = f.variadic[:0]
	for k, ov := range f.overloads {
		if k < 0 {
			f.variadic = append(f.variadic, ov)
		}
	}
	for i := 0; i < len(f.variadic); i++ {
		for j := i + 1; j < len(f.variadic); j++ {
			if f.variadic[j].Arity > f.variadic[i].Arity {
				f.variadic[i], f.variadic[j] = f.variadic[j], f.variadic[i]
			}
		}
	}
}

// Resolve finds the best-matching overload for a call of argc arguments: an exact
// arity match first, otherwise the most specific variadic overload whose minimum
// fixed-argument count is satisfied.
func (f *FunctionData) Resolve(argc int) (*Overload, bool) {
	if ov, ok := f.overloads[argc]; ok {
		return ov, true
	}
	for _, ov := range f.variadic {
		if argc >= ov.Arity {
			return ov, true
		}
	}
	return nil, false
}

func (f *FunctionData) CloneData(rt *gc.Runtime) gc.Data { return f }
