package frontend

import (
	"fmt"
	"os"

	"ember/internal/bytecode"
	"ember/internal/class"
	"ember/internal/gc"
	"ember/internal/module"
	"ember/internal/object"
	"ember/internal/value"
)

// compiler lowers a parsed statement list directly to bytecode.Node, skipping an
// intermediate IR. Every local binding compiles to a DECLARE_SYMBOL/LOAD_SYMBOL pair
// against the top-level Handle's dynamic symbol map — this front end never allocates
// Fast slots or emits user-defined function Handles, since the scripts it targets are
// single top-level bodies exercising the runtime, not whole programs with their own
// function declarations.
type compiler struct {
	rt         *gc.Runtime
	mod        *module.Module
	symbols    *module.SymbolTable
	singletons *object.Singletons
	discards   int
	temps      int
}

// Compile lexes, parses, and compiles source into a fresh Module whose top-level
// Handle (Name == "") runs source's statements in order, ending in EXIT_MODULE.
func Compile(rt *gc.Runtime, path, source string, symbols *module.SymbolTable, singletons *object.Singletons, pkg *class.PackageData) (*module.Module, error) {
	toks, err := newLexer(source).tokenize()
	if err != nil {
		return nil, err
	}
	stmts, err := parseProgram(toks)
	if err != nil {
		return nil, err
	}
	m := module.NewModule(path, symbols, pkg)
	c := &compiler{rt: rt, mod: m, symbols: symbols, singletons: singletons}
	h := m.DeclareHandle("", 0, false, false)
	for _, s := range stmts {
		if err := c.stmt(s); err != nil {
			return nil, err
		}
	}
	m.PushNode(bytecode.CommandNode(bytecode.ExitModule))
	h.End = m.End()
	return m, nil
}

// Loader adapts Compile to module.Loader's absPath-only signature, reading the source
// file at absPath and compiling it against a shared runtime, symbol table, singleton
// set, and root package — the compile-time state every import must agree on.
func Loader(rt *gc.Runtime, symbols *module.SymbolTable, singletons *object.Singletons, pkg *class.PackageData) module.Loader {
	return func(absPath string) (*module.Module, error) {
		src, err := os.ReadFile(absPath)
		if err != nil {
			return nil, err
		}
		return Compile(rt, absPath, string(src), symbols, singletons, pkg)
	}
}

func (c *compiler) emit(n bytecode.Node) int32 { return c.mod.PushNode(n) }

func (c *compiler) op(o bytecode.Op) int32 { return c.emit(bytecode.CommandNode(o)) }

func (c *compiler) jump(o bytecode.Op, target int32) int32 {
	return c.emit(bytecode.Node{Command: o, Parameter: target})
}

func (c *compiler) patch(offset int32, o bytecode.Op, target int32) {
	c.mod.ReplaceNode(offset, bytecode.Node{Command: o, Parameter: target})
}

func (c *compiler) here() int32 { return c.mod.NextNodeOffset() }

func (c *compiler) sym(name string) *bytecode.Symbol { return c.symbols.Intern(name) }

func (c *compiler) stmt(s Stmt) error {
	switch st := s.(type) {
	case LetStmt:
		if err := c.expr(st.Value); err != nil {
			return err
		}
		c.emit(bytecode.Node{Command: bytecode.DeclareSymbol, Symbol: c.sym(st.Name)})
		return nil

	case PrintStmt:
		if err := c.expr(st.Value); err != nil {
			return err
		}
		c.op(bytecode.Print)
		return nil

	case ExprStmt:
		if err := c.expr(st.X); err != nil {
			return err
		}
		return c.discard()

	case LoadStmt:
		c.emit(bytecode.Node{Command: bytecode.LoadModule, Constant: c.constant(object.NewString(c.rt, st.Path))})
		c.emit(bytecode.Node{Command: bytecode.DeclareSymbol, Symbol: c.sym(st.As)})
		return nil

	case IfStmt:
		return c.ifStmt(st)

	case WhileStmt:
		return c.whileStmt(st)

	case ForInStmt:
		return c.forInStmt(st)

	case AssignStmt:
		return c.assignStmt(st)

	default:
		return fmt.Errorf("frontend: unhandled statement %T", s)
	}
}

// discard drops an expression statement's pushed value by binding it to a symbol no
// script source can ever name, reusing DECLARE_SYMBOL's pop as the only stack-clearing
// primitive this instruction set exposes.
func (c *compiler) discard() error {
	name := fmt.Sprintf(" $%d", c.discards)
	c.discards++
	c.emit(bytecode.Node{Command: bytecode.DeclareSymbol, Symbol: c.sym(name)})
	return nil
}

func (c *compiler) ifStmt(st IfStmt) error {
	if err := c.expr(st.Cond); err != nil {
		return err
	}
	jz := c.jump(bytecode.JumpZero, 0)
	for _, s := range st.Then {
		if err := c.stmt(s); err != nil {
			return err
		}
	}
	if st.Else == nil {
		c.patch(jz, bytecode.JumpZero, c.here())
		return nil
	}
	jEnd := c.jump(bytecode.Jump, 0)
	c.patch(jz, bytecode.JumpZero, c.here())
	for _, s := range st.Else {
		if err := c.stmt(s); err != nil {
			return err
		}
	}
	c.patch(jEnd, bytecode.Jump, c.here())
	return nil
}

// assignStmt compiles `target = value`. An Ident target never needs a prior `let` —
// DECLARE_SYMBOL overwrites the dynamic symbol map entry whether or not it already
// holds a binding. A Subscript target lowers to SUBSCRIPT_MOVE_OP, which (unlike
// DECLARE_SYMBOL) pushes the assigned value back as its own result, so the statement
// discards it same as any other expression statement would.
func (c *compiler) assignStmt(st AssignStmt) error {
	switch target := st.Target.(type) {
	case Ident:
		if err := c.expr(st.Value); err != nil {
			return err
		}
		c.emit(bytecode.Node{Command: bytecode.DeclareSymbol, Symbol: c.sym(target.Name)})
		return nil
	case Subscript:
		if err := c.expr(target.Recv); err != nil {
			return err
		}
		if err := c.expr(target.Index); err != nil {
			return err
		}
		if err := c.expr(st.Value); err != nil {
			return err
		}
		c.op(bytecode.SubscriptMoveOp)
		return c.discard()
	default:
		return fmt.Errorf("frontend: invalid assignment target %T", st.Target)
	}
}

// tempSym mints a symbol no script source can ever name, for compiler-internal
// bindings like a for-in loop's destructured hash pair.
func (c *compiler) tempSym() *bytecode.Symbol {
	name := fmt.Sprintf(" t%d", c.temps)
	c.temps++
	return c.sym(name)
}

// forInStmt compiles `for v in iterable` / `for k, v in iterable` against the
// RANGE_INIT/RANGE_CHECK/RANGE_NEXT loop protocol: RANGE_INIT consumes the iterable and
// leaves an iterator on the stack for the loop's duration; RANGE_CHECK only peeks it, so
// the iterator is still there to discard once the loop exits. A two-variable loop
// destructures each iteration's value (a two-element Array, for hash iteration) through
// a temporary binding and two SUBSCRIPT_OP reads.
func (c *compiler) forInStmt(st ForInStmt) error {
	if err := c.expr(st.Iterable); err != nil {
		return err
	}
	c.op(bytecode.RangeInit)
	top := c.here()
	jCheck := c.jump(bytecode.RangeCheck, 0)
	c.op(bytecode.RangeNext)

	if len(st.Vars) == 1 {
		c.emit(bytecode.Node{Command: bytecode.DeclareSymbol, Symbol: c.sym(st.Vars[0])})
	} else {
		tmp := c.tempSym()
		c.emit(bytecode.Node{Command: bytecode.DeclareSymbol, Symbol: tmp})
		for i, name := range st.Vars {
			c.emit(bytecode.Node{Command: bytecode.LoadSymbol, Symbol: tmp})
			c.emit(bytecode.Node{Command: bytecode.LoadConstant, Constant: c.constant(object.NewNumber(c.rt, float64(i)))})
			c.op(bytecode.SubscriptOp)
			c.emit(bytecode.Node{Command: bytecode.DeclareSymbol, Symbol: c.sym(name)})
		}
	}

	for _, s := range st.Body {
		if err := c.stmt(s); err != nil {
			return err
		}
	}
	c.jump(bytecode.Jump, top)
	c.patch(jCheck, bytecode.RangeCheck, c.here())
	return c.discard()
}

func (c *compiler) whileStmt(st WhileStmt) error {
	top := c.here()
	if err := c.expr(st.Cond); err != nil {
		return err
	}
	jz := c.jump(bytecode.JumpZero, 0)
	for _, s := range st.Body {
		if err := c.stmt(s); err != nil {
			return err
		}
	}
	c.jump(bytecode.Jump, top)
	c.patch(jz, bytecode.JumpZero, c.here())
	return nil
}

func (c *compiler) constant(d gc.Data) *value.StrongReference {
	return value.NewStrongReference(c.rt, value.Default, d)
}

var binaryOps = map[tokenKind]bytecode.Op{
	tokPlus: bytecode.Add, tokMinus: bytecode.Sub, tokStar: bytecode.Mul,
	tokSlash: bytecode.Div, tokPercent: bytecode.Mod,
	tokEqEq: bytecode.Eq, tokBangEq: bytecode.Ne,
	tokLt: bytecode.Lt, tokGt: bytecode.Gt, tokLe: bytecode.Le, tokGe: bytecode.Ge,
}

func (c *compiler) expr(e Expr) error {
	switch x := e.(type) {
	case NumberLit:
		c.emit(bytecode.Node{Command: bytecode.LoadConstant, Constant: c.constant(object.NewNumber(c.rt, x.Value))})
		return nil

	case StringLit:
		c.emit(bytecode.Node{Command: bytecode.LoadConstant, Constant: c.constant(object.NewString(c.rt, x.Value))})
		return nil

	case BoolLit:
		c.emit(bytecode.Node{Command: bytecode.LoadConstant, Constant: c.constant(object.NewBoolean(c.rt, x.Value))})
		return nil

	case NoneLit:
		c.emit(bytecode.Node{Command: bytecode.LoadConstant, Constant: c.constant(c.singletons.NoneValue)})
		return nil

	case NullLit:
		c.emit(bytecode.Node{Command: bytecode.LoadConstant, Constant: c.constant(c.singletons.NullValue)})
		return nil

	case Ident:
		c.emit(bytecode.Node{Command: bytecode.LoadSymbol, Symbol: c.sym(x.Name)})
		return nil

	case Binary:
		if err := c.expr(x.L); err != nil {
			return err
		}
		if err := c.expr(x.R); err != nil {
			return err
		}
		op, ok := binaryOps[x.Op]
		if !ok {
			return fmt.Errorf("frontend: unsupported binary operator")
		}
		c.op(op)
		return nil

	case Logical:
		if err := c.expr(x.L); err != nil {
			return err
		}
		pre := bytecode.OrPreCheck
		if x.Op == tokAndAnd {
			pre = bytecode.AndPreCheck
		}
		j := c.jump(pre, 0)
		if err := c.expr(x.R); err != nil {
			return err
		}
		c.patch(j, pre, c.here())
		return nil

	case Unary:
		if err := c.expr(x.X); err != nil {
			return err
		}
		if x.Op == tokMinus {
			c.op(bytecode.Neg)
		} else {
			c.op(bytecode.Not)
		}
		return nil

	case Member:
		if err := c.expr(x.Recv); err != nil {
			return err
		}
		c.emit(bytecode.Node{Command: bytecode.LoadMember, Symbol: c.sym(x.Name)})
		return nil

	case Call:
		return c.call(x)

	case RangeExpr:
		if err := c.expr(x.L); err != nil {
			return err
		}
		if err := c.expr(x.R); err != nil {
			return err
		}
		c.op(bytecode.InclusiveRangeOp)
		return nil

	case Subscript:
		if err := c.expr(x.Recv); err != nil {
			return err
		}
		if err := c.expr(x.Index); err != nil {
			return err
		}
		c.op(bytecode.SubscriptOp)
		return nil

	case ArrayLit:
		c.op(bytecode.AllocArray)
		for _, el := range x.Elems {
			if err := c.expr(el); err != nil {
				return err
			}
		}
		c.jump(bytecode.InitArray, int32(len(x.Elems)))
		return nil

	case HashLit:
		c.op(bytecode.AllocHash)
		for i := range x.Keys {
			if err := c.expr(x.Keys[i]); err != nil {
				return err
			}
			if err := c.expr(x.Values[i]); err != nil {
				return err
			}
		}
		c.jump(bytecode.InitHash, int32(len(x.Keys)))
		return nil

	default:
		return fmt.Errorf("frontend: unhandled expression %T", e)
	}
}

// call compiles a Call node. A Member callee (pkg.fn(...), conn.query(...)) lowers to
// INIT_MEMBER_CALL/CALL_MEMBER, which resolves the callee against the receiver at INIT
// time. Any other callee lowers to plain CALL: args are pushed first, the callee
// expression last, since CALL pops the function reference off the top of the stack
// before reading back its argc explicit operands below it.
func (c *compiler) call(x Call) error {
	if m, ok := x.Callee.(Member); ok {
		if err := c.expr(m.Recv); err != nil {
			return err
		}
		c.emit(bytecode.Node{Command: bytecode.InitMemberCall, Symbol: c.sym(m.Name)})
		for _, a := range x.Args {
			if err := c.expr(a); err != nil {
				return err
			}
		}
		c.jump(bytecode.CallMember, int32(len(x.Args)))
		return nil
	}

	c.op(bytecode.InitCall)
	for _, a := range x.Args {
		if err := c.expr(a); err != nil {
			return err
		}
	}
	if err := c.expr(x.Callee); err != nil {
		return err
	}
	c.jump(bytecode.Call, int32(len(x.Args)))
	return nil
}
