package object

import "ember/internal/gc"

// NoneData backs the language's "no value" singleton — the datum a freshly declared,
// unassigned reference holds. There is exactly one NoneData per gc.Runtime; Runtime
// owners obtain it via object.None(rt).
type NoneData struct{ Base }

// NullData backs the explicit "null object" singleton, distinct from None: None means
// "never assigned", Null means "deliberately empty".
type NullData struct{ Base }

func (n *NoneData) CloneData(rt *gc.Runtime) gc.Data { return n }
func (n *NullData) CloneData(rt *gc.Runtime) gc.Data { return n }

// BooleanData wraps a bool. Booleans promote to Number under arithmetic (true == 1),
// implemented in internal/dispatch, not here.
type BooleanData struct {
	Base
	Value bool
}

func NewBoolean(rt *gc.Runtime, v bool) *BooleanData {
	d := &BooleanData{Value: v}
	rt.Register(d)
	return d
}

func (b *BooleanData) CloneData(rt *gc.Runtime) gc.Data { return NewBoolean(rt, b.Value) }

// NumberData wraps an IEEE-754 float64, the language's sole numeric representation.
type NumberData struct {
	Base
	Value float64
}

func NewNumber(rt *gc.Runtime, v float64) *NumberData {
	d := &NumberData{Value: v}
	rt.Register(d)
	return d
}

func (n *NumberData) CloneData(rt *gc.Runtime) gc.Data { return NewNumber(rt, n.Value) }

// Singletons holds the per-runtime None and Null data so every reference to "no
// value" or "null" shares one Data instance, matching the data model's "singleton Data
// values" note.
type Singletons struct {
	NoneValue *NoneData
	NullValue *NullData
}

// NewSingletons registers the two singleton data values against rt.
func NewSingletons(rt *gc.Runtime) *Singletons {
	n := &NoneData{}
	u := &NullData{}
	rt.Register(n)
	rt.Register(u)
	return &Singletons{NoneValue: n, NullValue: u}
}
