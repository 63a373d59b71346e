package dispatch

import (
	"testing"

	"ember/internal/bytecode"
	"ember/internal/cursor"
	"ember/internal/module"
	"ember/internal/object"
	"ember/internal/value"
)

// The minimal front end has no `try`/`catch`/`raise` syntax, so these drive
// SET_RETRIEVE_POINT/RAISE directly, exactly as a compiled try/catch block would: a
// retrieve point installed before the guarded code, a RAISE unwinding the value/call
// stacks back to it and jumping to the catch body, or — with no retrieve point
// installed — escalating to onUnhandled exactly as RunStep's Escalate callback does.

func runToCompletion(t *testing.T, d *Dispatcher, c *cursor.Cursor) (unhandled value.WeakReference, wasUnhandled bool) {
	t.Helper()
	onUnhandled := func(exc value.WeakReference) {
		unhandled = exc
		wasUnhandled = true
	}
	for !c.Finished() {
		cont, susp, err := d.step(c, onUnhandled, false)
		if err != nil {
			t.Fatalf("step: %v", err)
		}
		if susp != nil {
			t.Fatalf("unexpected suspension outside a generator body")
		}
		if !cont {
			return
		}
	}
	return
}

func TestExceptionCaughtByRetrievePoint(t *testing.T) {
	h := newHarness()

	m := module.NewModule("<test>", h.symbols, h.pkg)
	handle := m.DeclareHandle("", 0, false, false)
	m.PushNode(bytecode.Node{Command: bytecode.SetRetrievePoint, Parameter: 3})
	m.PushNode(bytecode.Node{Command: bytecode.LoadConstant, Constant: constRef(h, object.NewString(h.rt, "boom"))})
	m.PushNode(bytecode.CommandNode(bytecode.Raise))
	m.PushNode(bytecode.CommandNode(bytecode.Print)) // catch body: prints the raised value
	m.PushNode(bytecode.Node{Command: bytecode.LoadConstant, Constant: constRef(h, object.NewString(h.rt, "handled"))})
	m.PushNode(bytecode.CommandNode(bytecode.Print))
	m.PushNode(bytecode.CommandNode(bytecode.ExitModule))
	handle.End = m.End()

	c := cursor.NewCursor(h.rt, handle)
	_, wasUnhandled := runToCompletion(t, h.d, c)
	if wasUnhandled {
		t.Fatalf("expected the retrieve point to catch the exception")
	}
	if got, want := h.out.String(), "boom\nhandled\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestExceptionUncaughtWithNoRetrievePoint(t *testing.T) {
	h := newHarness()

	m := module.NewModule("<test>", h.symbols, h.pkg)
	handle := m.DeclareHandle("", 0, false, false)
	m.PushNode(bytecode.Node{Command: bytecode.LoadConstant, Constant: constRef(h, object.NewString(h.rt, "boom"))})
	m.PushNode(bytecode.CommandNode(bytecode.Raise))
	m.PushNode(bytecode.CommandNode(bytecode.ExitModule))
	handle.End = m.End()

	c := cursor.NewCursor(h.rt, handle)
	exc, wasUnhandled := runToCompletion(t, h.d, c)
	if !wasUnhandled {
		t.Fatalf("expected an unhandled exception with no retrieve point installed")
	}
	if got := object.Display(exc.Data()); got != "boom" {
		t.Fatalf("unhandled exception value: got %q, want %q", got, "boom")
	}
	if h.out.String() != "" {
		t.Fatalf("catch body must not have run, got stdout %q", h.out.String())
	}
}
