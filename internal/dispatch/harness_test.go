package dispatch

import (
	"bytes"
	"testing"

	"ember/internal/builtin"
	"ember/internal/class"
	"ember/internal/cursor"
	"ember/internal/frontend"
	"ember/internal/gc"
	"ember/internal/module"
	"ember/internal/object"
	"ember/internal/scheduler"
	"ember/internal/value"
)

// harness bundles the same pieces cmd/ember's newRuntime wires together, sized down
// for a single test: one Runtime, one Dispatcher, one Scheduler, and a buffer standing
// in for stdout so PRINT output can be asserted on directly.
type harness struct {
	rt      *gc.Runtime
	sing    *object.Singletons
	symbols *module.SymbolTable
	pkg     *class.PackageData
	cache   *module.Cache
	d       *Dispatcher
	sched   *scheduler.Scheduler
	out     *bytes.Buffer
}

func newHarness() *harness {
	rt := gc.NewRuntime()
	sing := object.NewSingletons(rt)
	symbols := module.NewSymbolTable()
	pkg := class.NewPackageData("", nil)
	builtin.RegisterBuiltinClasses(rt, sing)
	cache := module.NewCache()
	loader := frontend.Loader(rt, symbols, sing, pkg)
	d := New(rt, sing, cache, loader)
	var out bytes.Buffer
	d.Stdout = &out
	sched := scheduler.New(d.RunStep, nil)
	return &harness{rt: rt, sing: sing, symbols: symbols, pkg: pkg, cache: cache, d: d, sched: sched, out: &out}
}

// run compiles src as a fresh top-level module and drives it to completion through the
// same Spawn/Run path cmd/ember uses for a script, returning everything PRINT wrote.
func (h *harness) run(t *testing.T, src string) string {
	t.Helper()
	m, err := frontend.Compile(h.rt, "<test>", src, h.symbols, h.sing, h.pkg)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	c := cursor.NewCursor(h.rt, m.Handles[0])
	h.sched.Spawn(scheduler.RoleMain, c)
	if status := h.sched.Run(); status != 0 {
		t.Fatalf("script exited %d, output so far: %q", status, h.out.String())
	}
	return h.out.String()
}

// constRef wraps d as a LOAD_CONSTANT operand, the same value.NewStrongReference call
// the compiler's own constant() helper makes.
func constRef(h *harness, d gc.Data) *value.StrongReference {
	return value.NewStrongReference(h.rt, value.Default, d)
}
