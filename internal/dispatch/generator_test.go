package dispatch

import (
	"testing"

	"ember/internal/bytecode"
	"ember/internal/builtin"
	"ember/internal/module"
	"ember/internal/object"
)

// The minimal front end has no `def`/`yield` syntax, so this drives the generator
// machinery the way a compiled `def gen() { yield 1; yield 2; }` body would: a hand
// assembled generator Handle run through Dispatcher.newGenerator and wrapped in the
// same object.NewGeneratorIterator a real CALL against a generator function builds,
// then pumped through builtin.IteratorNext exactly as the Iterator class's "next"
// method does.
func TestGeneratorYieldsThenNone(t *testing.T) {
	h := newHarness()

	m := module.NewModule("<test>", h.symbols, h.pkg)
	handle := m.DeclareHandle("gen", 0, false, true)
	m.PushNode(bytecode.Node{Command: bytecode.LoadConstant, Constant: constRef(h, object.NewNumber(h.rt, 1))})
	m.PushNode(bytecode.CommandNode(bytecode.Yield))
	m.PushNode(bytecode.Node{Command: bytecode.LoadConstant, Constant: constRef(h, object.NewNumber(h.rt, 2))})
	m.PushNode(bytecode.CommandNode(bytecode.Yield))
	m.PushNode(bytecode.CommandNode(bytecode.ExitGenerator))
	handle.End = m.End()

	gen := h.d.newGenerator(handle, nil)
	it := object.NewGeneratorIterator(h.rt, gen)

	v, ok, err := builtin.IteratorNext(h.rt, it)
	if err != nil {
		t.Fatalf("first next: %v", err)
	}
	if !ok || object.Display(v.Data()) != "1" {
		t.Fatalf("first next: got (%v, %v), want (1, true)", object.Display(v.Data()), ok)
	}

	v, ok, err = builtin.IteratorNext(h.rt, it)
	if err != nil {
		t.Fatalf("second next: %v", err)
	}
	if !ok || object.Display(v.Data()) != "2" {
		t.Fatalf("second next: got (%v, %v), want (2, true)", object.Display(v.Data()), ok)
	}

	_, ok, err = builtin.IteratorNext(h.rt, it)
	if err != nil {
		t.Fatalf("third next: %v", err)
	}
	if ok {
		t.Fatalf("third next: expected exhaustion, got a value")
	}
}
