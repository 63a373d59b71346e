package dispatch

import (
	"errors"
	"testing"

	"ember/internal/bytecode"
	"ember/internal/class"
	"ember/internal/cursor"
	"ember/internal/module"
	"ember/internal/object"
	"ember/internal/scheduler"
)

// The minimal front end has no `class`/`:` inheritance syntax, so these drive the
// same runtime machinery a real `class C : A, B { mbr = 3 }` declaration would: a
// class.ClassDescription per declared class, Generate()'d against a resolver mapping
// base paths to already-generated classes, then an instance loaded through LOAD_MEMBER
// exactly as CALL_MEMBER's receiver resolution would.

func TestClassMultipleInheritanceOverrideWins(t *testing.T) {
	h := newHarness()

	a := mustGenerate(t, h, &class.ClassDescription{
		Name: "A", Pkg: h.pkg, Metatype: class.Object,
		Members: []class.DescribedMember{{Name: "mbr", Value: object.NewNumber(h.rt, 1)}},
	}, nil)
	b := mustGenerate(t, h, &class.ClassDescription{
		Name: "B", Pkg: h.pkg, Metatype: class.Object,
		Members: []class.DescribedMember{{Name: "mbr", Value: object.NewNumber(h.rt, 2)}},
	}, nil)
	resolve := func(path string) (*class.Class, bool) {
		switch path {
		case "A":
			return a, true
		case "B":
			return b, true
		}
		return nil, false
	}
	c := mustGenerate(t, h, &class.ClassDescription{
		Name: "C", Pkg: h.pkg, Metatype: class.Object, BasePaths: []string{"A", "B"},
		Members: []class.DescribedMember{{Name: "mbr", Value: object.NewNumber(h.rt, 3)}},
	}, resolve)

	inst := object.NewInstance(h.rt, c)
	out := h.runMember(t, inst, "mbr")
	if out != "3\n" {
		t.Fatalf("got %q, want %q", out, "3\n")
	}
}

func TestClassMultipleInheritanceAmbiguousWithoutOverride(t *testing.T) {
	h := newHarness()

	a := mustGenerate(t, h, &class.ClassDescription{
		Name: "A", Pkg: h.pkg, Metatype: class.Object,
		Members: []class.DescribedMember{{Name: "mbr", Value: object.NewNumber(h.rt, 1)}},
	}, nil)
	b := mustGenerate(t, h, &class.ClassDescription{
		Name: "B", Pkg: h.pkg, Metatype: class.Object,
		Members: []class.DescribedMember{{Name: "mbr", Value: object.NewNumber(h.rt, 2)}},
	}, nil)
	resolve := func(path string) (*class.Class, bool) {
		switch path {
		case "A":
			return a, true
		case "B":
			return b, true
		}
		return nil, false
	}
	d := &class.ClassDescription{
		Name: "D", Pkg: h.pkg, Metatype: class.Object, BasePaths: []string{"A", "B"},
	}
	_, err := d.Generate(h.rt, resolve)
	var ambiguous *class.ErrAmbiguousInheritance
	if !errors.As(err, &ambiguous) {
		t.Fatalf("expected ErrAmbiguousInheritance, got %v", err)
	}
}

func mustGenerate(t *testing.T, h *harness, d *class.ClassDescription, resolve class.BaseResolver) *class.Class {
	t.Helper()
	if resolve == nil {
		resolve = func(string) (*class.Class, bool) { return nil, false }
	}
	c, err := d.Generate(h.rt, resolve)
	if err != nil {
		t.Fatalf("Generate(%s): %v", d.Name, err)
	}
	return c
}

// runMember loads member off inst through the real LOAD_MEMBER dispatch path (the
// same one CALL_MEMBER's receiver resolution and an ordinary `obj.field` expression
// use) and prints it, returning captured stdout.
func (h *harness) runMember(t *testing.T, inst *object.InstanceData, member string) string {
	t.Helper()
	m := module.NewModule("<test>", h.symbols, h.pkg)
	sym := h.symbols.Intern(member)
	handle := m.DeclareHandle("", 0, false, false)
	m.PushNode(bytecode.Node{Command: bytecode.LoadConstant, Constant: constRef(h, inst)})
	m.PushNode(bytecode.Node{Command: bytecode.LoadMember, Symbol: sym})
	m.PushNode(bytecode.CommandNode(bytecode.Print))
	m.PushNode(bytecode.CommandNode(bytecode.ExitModule))
	handle.End = m.End()

	c := cursor.NewCursor(h.rt, handle)
	h.sched.Spawn(scheduler.RoleMain, c)
	if status := h.sched.Run(); status != 0 {
		t.Fatalf("run exited %d, output so far: %q", status, h.out.String())
	}
	return h.out.String()
}
