package frontend

import (
	"testing"

	"github.com/kr/pretty"

	"ember/internal/bytecode"
	"ember/internal/class"
	"ember/internal/gc"
	"ember/internal/module"
	"ember/internal/object"
)

func compile(t *testing.T, src string) *module.Module {
	t.Helper()
	rt := gc.NewRuntime()
	singletons := object.NewSingletons(rt)
	symbols := module.NewSymbolTable()
	pkg := class.NewPackageData("", nil)
	m, err := Compile(rt, "<test>", src, symbols, singletons, pkg)
	if err != nil {
		t.Fatalf("compile %q: %v", src, err)
	}
	return m
}

func ops(m *module.Module) []bytecode.Op {
	out := make([]bytecode.Op, len(m.Nodes))
	for i, n := range m.Nodes {
		out[i] = n.Command
	}
	return out
}

func assertOps(t *testing.T, src string, want []bytecode.Op) {
	t.Helper()
	got := ops(compile(t, src))
	if diff := pretty.Diff(got, want); len(diff) > 0 {
		t.Fatalf("opcode sequence for %q mismatch:\n%s", src, diff)
	}
}

func TestCompileLetAndPrint(t *testing.T) {
	assertOps(t, `let x = 1 + 2; print x;`, []bytecode.Op{
		bytecode.LoadConstant, bytecode.LoadConstant, bytecode.Add, bytecode.DeclareSymbol,
		bytecode.LoadSymbol, bytecode.Print,
		bytecode.ExitModule,
	})
}

func TestCompileExprStatementDiscards(t *testing.T) {
	// Two bare expression statements must each clear the stack on their own, or the
	// second DECLARE_SYMBOL would pop the first statement's leftover value.
	assertOps(t, `1 + 1; 2 + 2;`, []bytecode.Op{
		bytecode.LoadConstant, bytecode.LoadConstant, bytecode.Add, bytecode.DeclareSymbol,
		bytecode.LoadConstant, bytecode.LoadConstant, bytecode.Add, bytecode.DeclareSymbol,
		bytecode.ExitModule,
	})
}

func TestCompileDiscardSymbolsAreDistinct(t *testing.T) {
	m := compile(t, `1; 2; 3;`)
	seen := map[*bytecode.Symbol]bool{}
	for _, n := range m.Nodes {
		if n.Command == bytecode.DeclareSymbol {
			if seen[n.Symbol] {
				t.Fatalf("discard symbol reused across statements: %v", n.Symbol)
			}
			seen[n.Symbol] = true
		}
	}
	if len(seen) != 3 {
		t.Fatalf("expected 3 distinct discard symbols, got %d", len(seen))
	}
}

func TestCompileIfElse(t *testing.T) {
	m := compile(t, `if 1 { print 2; } else { print 3; }`)
	got := ops(m)
	want := []bytecode.Op{
		bytecode.LoadConstant, bytecode.JumpZero,
		bytecode.LoadConstant, bytecode.Print, bytecode.Jump,
		bytecode.LoadConstant, bytecode.Print,
		bytecode.ExitModule,
	}
	if diff := pretty.Diff(got, want); len(diff) > 0 {
		t.Fatalf("if/else opcode sequence mismatch:\n%s", diff)
	}

	// The JumpZero must land on the else branch's first node, and the trailing Jump
	// must land just past the else branch (on ExitModule).
	jz := m.Nodes[1]
	if jz.Parameter != 5 {
		t.Fatalf("JumpZero target = %d, want 5 (else branch start)", jz.Parameter)
	}
	jEnd := m.Nodes[4]
	if jEnd.Parameter != 7 {
		t.Fatalf("Jump target = %d, want 7 (past else branch)", jEnd.Parameter)
	}
}

func TestCompileWhileLoopsBack(t *testing.T) {
	m := compile(t, `while 1 { print 2; }`)
	got := ops(m)
	want := []bytecode.Op{
		bytecode.LoadConstant, bytecode.JumpZero,
		bytecode.LoadConstant, bytecode.Print,
		bytecode.Jump,
		bytecode.ExitModule,
	}
	if diff := pretty.Diff(got, want); len(diff) > 0 {
		t.Fatalf("while opcode sequence mismatch:\n%s", diff)
	}
	back := m.Nodes[4]
	if back.Parameter != 0 {
		t.Fatalf("loop-back Jump target = %d, want 0 (condition)", back.Parameter)
	}
	jz := m.Nodes[1]
	if jz.Parameter != 5 {
		t.Fatalf("JumpZero target = %d, want 5 (past the loop)", jz.Parameter)
	}
}

func TestCompileShortCircuitAnd(t *testing.T) {
	m := compile(t, `1 && 2;`)
	got := ops(m)
	want := []bytecode.Op{
		bytecode.LoadConstant, bytecode.AndPreCheck, bytecode.LoadConstant,
		bytecode.DeclareSymbol, bytecode.ExitModule,
	}
	if diff := pretty.Diff(got, want); len(diff) > 0 {
		t.Fatalf("&& opcode sequence mismatch:\n%s", diff)
	}
	pre := m.Nodes[1]
	if pre.Parameter != 3 {
		t.Fatalf("AndPreCheck target = %d, want 3 (join point after right operand)", pre.Parameter)
	}
}

func TestCompilePlainCallArgsBeforeCallee(t *testing.T) {
	m := compile(t, `let f = 1; f(2, 3);`)
	got := ops(m)
	want := []bytecode.Op{
		bytecode.LoadConstant, bytecode.DeclareSymbol,
		bytecode.InitCall, bytecode.LoadConstant, bytecode.LoadConstant, bytecode.LoadSymbol,
		bytecode.Call,
		bytecode.DeclareSymbol,
		bytecode.ExitModule,
	}
	if diff := pretty.Diff(got, want); len(diff) > 0 {
		t.Fatalf("call opcode sequence mismatch:\n%s", diff)
	}
	callNode := m.Nodes[6]
	if callNode.Parameter != 2 {
		t.Fatalf("Call argc = %d, want 2", callNode.Parameter)
	}
}

func TestCompileMemberCallReceiverBeforeInit(t *testing.T) {
	m := compile(t, `let a = 1; a.push(2);`)
	got := ops(m)
	want := []bytecode.Op{
		bytecode.LoadConstant, bytecode.DeclareSymbol,
		bytecode.LoadSymbol, bytecode.InitMemberCall, bytecode.LoadConstant,
		bytecode.CallMember,
		bytecode.DeclareSymbol,
		bytecode.ExitModule,
	}
	if diff := pretty.Diff(got, want); len(diff) > 0 {
		t.Fatalf("member call opcode sequence mismatch:\n%s", diff)
	}
	callNode := m.Nodes[5]
	if callNode.Parameter != 1 {
		t.Fatalf("CallMember argc = %d, want 1", callNode.Parameter)
	}
}

func TestCompileLoadStatement(t *testing.T) {
	m := compile(t, `load "other.ember" as o;`)
	got := ops(m)
	want := []bytecode.Op{bytecode.LoadModule, bytecode.DeclareSymbol, bytecode.ExitModule}
	if diff := pretty.Diff(got, want); len(diff) > 0 {
		t.Fatalf("load opcode sequence mismatch:\n%s", diff)
	}
}

func TestCompileUnsupportedTokenErrors(t *testing.T) {
	rt := gc.NewRuntime()
	singletons := object.NewSingletons(rt)
	symbols := module.NewSymbolTable()
	pkg := class.NewPackageData("", nil)
	if _, err := Compile(rt, "<test>", `let x = ;`, symbols, singletons, pkg); err == nil {
		t.Fatalf("expected a parse error for a missing expression")
	}
}
