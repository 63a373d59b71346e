// Package dispatch implements the single-instruction interpreter the scheduler
// drives: it reads one Node from a cursor and executes it, covering every
// bytecode.Op named in the instruction set. RunStep is the scheduler-facing entry
// point; step is the inner loop reused by generator resumption, which must drive a
// cursor without a Process or Scheduler at hand.
package dispatch

import (
	"io"
	"os"

	"ember/internal/bytecode"
	"ember/internal/builtin"
	"ember/internal/class"
	"ember/internal/cursor"
	"ember/internal/errors"
	"ember/internal/gc"
	"ember/internal/module"
	"ember/internal/object"
	"ember/internal/scheduler"
	"ember/internal/value"
)

// Dispatcher bundles the shared state a step needs beyond the cursor it is running:
// the GC runtime, the None/Null singletons, the module cache and loader used by
// LoadModule, the default output sink for Print, and the builtin-method table
// CallBuiltin indexes into.
type Dispatcher struct {
	RT              *gc.Runtime
	Singletons      *object.Singletons
	ModuleCache     *module.Cache
	Loader          module.Loader
	Stdout          io.Writer
	Builtins        []BuiltinMethod
	BuiltinPackages map[string]*class.PackageData
}

// New constructs a Dispatcher with os.Stdout as the default printer and the built-in
// method table populated.
func New(rt *gc.Runtime, singletons *object.Singletons, cache *module.Cache, loader module.Loader) *Dispatcher {
	return &Dispatcher{
		RT: rt, Singletons: singletons, ModuleCache: cache, Loader: loader,
		Stdout: os.Stdout, Builtins: newBuiltinTable(),
		BuiltinPackages: make(map[string]*class.PackageData),
	}
}

// suspension is produced when step encounters a Yield that parks its cursor: Value is
// the yielded reference, State the detached frame to Restore on the next Resume, or
// nil if the generator body also exited in the same instruction (YieldExitGenerator).
type suspension struct {
	Value value.WeakReference
	State *cursor.SavedState
}

// exitThreadSignal and exitExecSignal let step report the two process-lifecycle
// opcodes through its ordinary error return; RunStep recognizes them and acts on the
// Process/Scheduler it has (and step does not). A generator body should never
// execute either — Resume would simply surface them as an unexpected error.
type exitThreadSignal struct{}

func (*exitThreadSignal) Error() string { return "exit-thread" }

type exitExecSignal struct{ status int }

func (*exitExecSignal) Error() string { return "exit-exec" }

// RunStep satisfies scheduler.StepFunc: it executes exactly one instruction of p's
// cursor, returning false when the process should give up its quantum.
func (d *Dispatcher) RunStep(s *scheduler.Scheduler, p *scheduler.Process) (bool, error) {
	cont, susp, err := d.step(p.Cursor, func(exc value.WeakReference) {
		s.Escalate(p, exc)
	}, false)
	if susp != nil {
		return false, errors.New(errors.Unhandled, "YIELD outside a generator body")
	}
	if err != nil {
		switch e := err.(type) {
		case *exitThreadSignal:
			_ = e
			p.Status = scheduler.StatusDone
			return false, nil
		case *exitExecSignal:
			s.Exit(e.status)
			return false, nil
		}
	}
	return cont, err
}

// step executes exactly one instruction of c. onUnhandled is called, instead of
// escalating directly, when a Raise finds no retrieve point — RunStep's caller owns
// what "unhandled" means (spawn an Exception process); a generator's Resume instead
// turns it into a Go error. When closing is true (single-pass generator
// finalization), a Yield no longer suspends: it behaves like Abort, unconditionally
// unwinding instead of producing a suspension, so any cleanup between the resume
// point and the next yield still runs exactly once before the body is torn down.
func (d *Dispatcher) step(c *cursor.Cursor, onUnhandled func(exc value.WeakReference), closing bool) (cont bool, susp *suspension, err error) {
	if c.Finished() {
		return false, nil, nil
	}
	node, err := c.Next()
	if err != nil {
		return false, nil, err
	}

	switch node.Command {

	case bytecode.ExitModule:
		c.ExitCall()
		return !c.Finished(), nil, nil

	case bytecode.LoadModule:
		cont, err := d.loadModule(c, node)
		return cont, nil, err

	case bytecode.LoadFast:
		ctx := c.Current()
		idx := int(node.Parameter)
		if idx < 0 || idx >= len(ctx.Fast) {
			return false, nil, errors.Newf(errors.NoSuchSymbol, "fast slot %d out of range", idx)
		}
		c.Push(ctx.Fast[idx].Share())
		return true, nil, nil

	case bytecode.LoadSymbol:
		ctx := c.Current()
		ref := builtin.GetSymbolReference(d.RT, d.Singletons.NoneValue, ctx.Symbols, node.Symbol)
		c.Push(ref.Share())
		return true, nil, nil

	case bytecode.LoadMember:
		cont, err := d.loadMember(c, node.Symbol)
		return cont, nil, err

	case bytecode.LoadOperator:
		cont, err := d.loadOperator(c, class.Operator(node.Parameter))
		return cont, nil, err

	case bytecode.LoadConstant:
		c.Push(node.Constant.Share())
		return true, nil, nil

	case bytecode.LoadVarSymbol:
		ctx := c.Current()
		sym, err := builtin.VarSymbol(c, ctx.Module.Symbols)
		if err != nil {
			return false, nil, err
		}
		ref := builtin.GetSymbolReference(d.RT, d.Singletons.NoneValue, ctx.Symbols, sym)
		c.Push(ref.Share())
		return true, nil, nil

	case bytecode.LoadVarMember:
		ctx := c.Current()
		sym, err := builtin.VarSymbol(c, ctx.Module.Symbols)
		if err != nil {
			return false, nil, err
		}
		cont, err := d.loadMember(c, sym)
		return cont, nil, err

	case bytecode.CloneReference:
		top, ok := c.Pop()
		if !ok {
			return false, nil, cursor.ErrStackUnderflow
		}
		c.Push(top.Clone())
		return true, nil, nil

	case bytecode.ReloadReference:
		top, ok := c.Pop()
		if !ok {
			return false, nil, cursor.ErrStackUnderflow
		}
		c.Push(top.Share())
		c.Push(top.Share())
		return true, nil, nil

	case bytecode.UnloadReference:
		top, ok := c.Pop()
		if !ok {
			return false, nil, cursor.ErrStackUnderflow
		}
		top.Release()
		return true, nil, nil

	case bytecode.LoadExtraArguments:
		ctx := c.Current()
		arr := object.NewArray(d.RT)
		for _, a := range ctx.ExtraArgs {
			arr.Push(a)
		}
		c.Push(value.NewWeakReference(d.RT, value.Default, arr))
		return true, nil, nil

	case bytecode.DeclareFast:
		ctx := c.Current()
		v, ok := c.Pop()
		if !ok {
			return false, nil, cursor.ErrStackUnderflow
		}
		idx := int(node.Parameter)
		if idx >= 0 && idx < len(ctx.Fast) {
			ctx.Fast[idx] = v
		}
		return true, nil, nil

	case bytecode.DeclareSymbol:
		ctx := c.Current()
		v, ok := c.Pop()
		if !ok {
			return false, nil, cursor.ErrStackUnderflow
		}
		ctx.Symbols[node.Symbol] = v
		return true, nil, nil

	case bytecode.DeclareFunction:
		ctx := c.Current()
		ctx.Symbols[node.Symbol] = value.NewWeakReference(d.RT, value.Default, object.NewFunction(d.RT, node.Symbol.Name))
		return true, nil, nil

	case bytecode.FunctionOverload:
		cont, err := d.functionOverload(c, node)
		return cont, nil, err

	case bytecode.ResetSymbol:
		ctx := c.Current()
		delete(ctx.Symbols, node.Symbol)
		return true, nil, nil

	case bytecode.ResetFast:
		ctx := c.Current()
		idx := int(node.Parameter)
		if idx >= 0 && idx < len(ctx.Fast) {
			ctx.Fast[idx] = value.WeakReference{}
		}
		return true, nil, nil

	case bytecode.AllocIterator:
		c.Push(value.NewWeakReference(d.RT, value.Default, object.NewItemsIterator(d.RT, nil)))
		return true, nil, nil

	case bytecode.InitIterator:
		cont, err := d.initIterator(c, int(node.Parameter))
		return cont, nil, err

	case bytecode.AllocArray:
		c.Push(value.NewWeakReference(d.RT, value.Default, object.NewArray(d.RT)))
		return true, nil, nil

	case bytecode.InitArray:
		cont, err := d.initArray(c, int(node.Parameter))
		return cont, nil, err

	case bytecode.AllocHash:
		c.Push(value.NewWeakReference(d.RT, value.Default, object.NewHash(d.RT)))
		return true, nil, nil

	case bytecode.InitHash:
		cont, err := d.initHash(c, int(node.Parameter))
		return cont, nil, err

	case bytecode.CreateLib:
		// Library construction is driven by internal/library/* bindings directly
		// against a *class.Class they register; the opcode itself is a no-op
		// placeholder left for a loader that wires a plugin path to a CREATE_LIB
		// node, matching the plugin ABI.
		return true, nil, nil

	case bytecode.Add, bytecode.Sub, bytecode.Mul, bytecode.Div, bytecode.Mod, bytecode.Pow,
		bytecode.Eq, bytecode.Ne, bytecode.Lt, bytecode.Gt, bytecode.Le, bytecode.Ge,
		bytecode.StrictEq, bytecode.StrictNe,
		bytecode.Band, bytecode.Bor, bytecode.Xor, bytecode.ShiftLeft, bytecode.ShiftRight:
		cont, err := d.binaryOp(c, node.Command)
		return cont, nil, err

	case bytecode.Neg, bytecode.Pos, bytecode.Not, bytecode.Compl, bytecode.Inc, bytecode.Dec:
		cont, err := d.unaryOp(c, node.Command)
		return cont, nil, err

	case bytecode.And, bytecode.Or:
		cont, err := d.logicalOp(c, node.Command)
		return cont, nil, err

	case bytecode.AndPreCheck, bytecode.OrPreCheck:
		cont, err := d.shortCircuit(c, node.Command, node.Parameter)
		return cont, nil, err

	case bytecode.InclusiveRangeOp, bytecode.ExclusiveRangeOp:
		cont, err := d.rangeOp(c, node.Command)
		return cont, nil, err

	case bytecode.RangeInit:
		top, ok := c.Pop()
		if !ok {
			return false, nil, cursor.ErrStackUnderflow
		}
		it := builtin.IteratorInit(d.RT, top)
		c.Push(value.NewWeakReference(d.RT, value.Default, it))
		return true, nil, nil

	case bytecode.RangeNext:
		top, ok := c.Peek()
		if !ok {
			return false, nil, cursor.ErrStackUnderflow
		}
		it, ok := top.Data().(*object.IteratorData)
		if !ok {
			return false, nil, errors.New(errors.InvalidCast, "RANGE_NEXT on a non-iterator")
		}
		v, ok, err := builtin.IteratorNext(d.RT, it)
		if err != nil {
			return false, nil, err
		}
		if ok {
			c.Push(v)
		} else {
			c.Push(value.NewWeakReference(d.RT, value.Default, d.Singletons.NoneValue))
		}
		return true, nil, nil

	case bytecode.RangeCheck, bytecode.RangeIteratorCheck:
		top, ok := c.Peek()
		if !ok {
			return false, nil, cursor.ErrStackUnderflow
		}
		it, ok := top.Data().(*object.IteratorData)
		if ok && it.Empty() {
			c.Jmp(node.Parameter)
		}
		return true, nil, nil

	case bytecode.FindInit:
		top, ok := c.Pop()
		if !ok {
			return false, nil, cursor.ErrStackUnderflow
		}
		it := builtin.IteratorInit(d.RT, top)
		c.Push(value.NewWeakReference(d.RT, value.Default, it))
		return true, nil, nil

	case bytecode.FindNext:
		cont, err := d.rangeNextOrJump(c, node)
		return cont, nil, err

	case bytecode.FindCheck:
		top, ok := c.Peek()
		if !ok {
			return false, nil, cursor.ErrStackUnderflow
		}
		it, ok := top.Data().(*object.IteratorData)
		if ok && it.Empty() {
			c.Jmp(node.Parameter)
		}
		return true, nil, nil

	case bytecode.SubscriptOp, bytecode.SubscriptMoveOp:
		cont, err := d.subscript(c, node.Command)
		return cont, nil, err

	case bytecode.TypeofOp:
		top, ok := c.Pop()
		if !ok {
			return false, nil, cursor.ErrStackUnderflow
		}
		c.Push(value.NewWeakReference(d.RT, value.Default, object.NewString(d.RT, object.KindOf(top.Data()).String())))
		return true, nil, nil

	case bytecode.MembersofOp:
		cont, err := d.membersOf(c)
		return cont, nil, err

	case bytecode.FindDefinedSymbol, bytecode.FindDefinedVarSymbol:
		ctx := c.Current()
		sym := node.Symbol
		if node.Command == bytecode.FindDefinedVarSymbol {
			var err error
			sym, err = builtin.VarSymbol(c, ctx.Module.Symbols)
			if err != nil {
				return false, nil, err
			}
		}
		_, found := ctx.Symbols[sym]
		c.Push(d.boolean(found))
		return true, nil, nil

	case bytecode.FindDefinedMember, bytecode.FindDefinedVarMember:
		ctx := c.Current()
		sym := node.Symbol
		if node.Command == bytecode.FindDefinedVarMember {
			var err error
			sym, err = builtin.VarSymbol(c, ctx.Module.Symbols)
			if err != nil {
				return false, nil, err
			}
		}
		top, ok := c.Pop()
		if !ok {
			return false, nil, cursor.ErrStackUnderflow
		}
		cls := object.ClassOf(top.Data())
		found := false
		if cls != nil {
			_, found = cls.Member(sym.Name)
		}
		c.Push(d.boolean(found))
		return true, nil, nil

	case bytecode.CheckDefined:
		top, ok := c.Pop()
		if !ok {
			return false, nil, cursor.ErrStackUnderflow
		}
		_, isNone := top.Data().(*object.NoneData)
		c.Push(d.boolean(!isNone))
		return true, nil, nil

	case bytecode.Jump:
		c.Jmp(node.Parameter)
		return true, nil, nil

	case bytecode.JumpZero:
		top, ok := c.Pop()
		if !ok {
			return false, nil, cursor.ErrStackUnderflow
		}
		if !truthy(top) {
			c.Jmp(node.Parameter)
		}
		return true, nil, nil

	case bytecode.CaseJump:
		top, ok := c.Pop()
		if !ok {
			return false, nil, cursor.ErrStackUnderflow
		}
		if truthy(top) {
			c.Jmp(node.Parameter)
		}
		return true, nil, nil

	case bytecode.SetRetrievePoint:
		c.SetRetrievePoint(node.Parameter)
		return true, nil, nil

	case bytecode.UnsetRetrievePoint:
		c.UnsetRetrievePoint()
		return true, nil, nil

	case bytecode.Raise:
		exc, ok := c.Pop()
		if !ok {
			return false, nil, cursor.ErrStackUnderflow
		}
		if !c.Raise(exc) {
			onUnhandled(exc)
			return false, nil, nil
		}
		return true, nil, nil

	case bytecode.InitCall:
		c.BeginCall()
		return true, nil, nil

	case bytecode.InitMemberCall:
		cont, err := d.initMemberCall(c, node.Symbol)
		return cont, nil, err

	case bytecode.InitOperatorCall:
		cont, err := d.initOperatorCall(c, class.Operator(node.Parameter))
		return cont, nil, err

	case bytecode.InitVarMemberCall:
		ctx := c.Current()
		sym, err := builtin.VarSymbol(c, ctx.Module.Symbols)
		if err != nil {
			return false, nil, err
		}
		cont, err := d.initMemberCall(c, sym)
		return cont, nil, err

	case bytecode.InitParam:
		c.AddParam()
		return true, nil, nil

	case bytecode.Call:
		cont, err := d.call(c, int(node.Parameter), false)
		return cont, nil, err

	case bytecode.CallMember:
		cont, err := d.call(c, int(node.Parameter), true)
		return cont, nil, err

	case bytecode.CallBuiltin:
		cont, err := d.callBuiltin(c, int(node.Parameter))
		return cont, nil, err

	case bytecode.ExitCall:
		c.ExitCall()
		return true, nil, nil

	case bytecode.Yield:
		if closing {
			c.Abort()
			return false, nil, nil
		}
		v, ok := c.Pop()
		if !ok {
			return false, nil, cursor.ErrStackUnderflow
		}
		return true, &suspension{Value: v, State: c.Interrupt()}, nil

	case bytecode.YieldExitGenerator:
		v, ok := c.Pop()
		if !ok {
			return false, nil, cursor.ErrStackUnderflow
		}
		c.ExitCall()
		return true, &suspension{Value: v, State: nil}, nil

	case bytecode.ExitGenerator:
		c.ExitCall()
		return !c.Finished(), nil, nil

	case bytecode.BeginGeneratorExpression:
		ctx := c.Current()
		it := object.NewItemsIterator(d.RT, nil)
		ctx.GeneratorStack = append(ctx.GeneratorStack, value.NewWeakReference(d.RT, value.Default, it))
		return true, nil, nil

	case bytecode.EndGeneratorExpression:
		ctx := c.Current()
		if n := len(ctx.GeneratorStack); n > 0 {
			c.Push(ctx.GeneratorStack[n-1].Share())
			ctx.GeneratorStack = ctx.GeneratorStack[:n-1]
		}
		return true, nil, nil

	case bytecode.YieldExpression:
		ctx := c.Current()
		v, ok := c.Pop()
		if !ok {
			return false, nil, cursor.ErrStackUnderflow
		}
		if n := len(ctx.GeneratorStack); n > 0 {
			if it, ok := ctx.GeneratorStack[n-1].Data().(*object.IteratorData); ok {
				it.Emplace(v)
			}
		}
		return true, nil, nil

	case bytecode.InitCapture:
		ctx := c.Current()
		ctx.Captured = make(map[*bytecode.Symbol]value.WeakReference)
		return true, nil, nil

	case bytecode.CaptureSymbol:
		ctx := c.Current()
		if ref, ok := ctx.Symbols[node.Symbol]; ok {
			ctx.Captured[node.Symbol] = ref.Share()
		}
		return true, nil, nil

	case bytecode.CaptureAs:
		ctx := c.Current()
		v, ok := c.Pop()
		if !ok {
			return false, nil, cursor.ErrStackUnderflow
		}
		ctx.Captured[node.Symbol] = v
		return true, nil, nil

	case bytecode.CaptureAll:
		ctx := c.Current()
		for sym, ref := range ctx.Symbols {
			ctx.Captured[sym] = ref.Share()
		}
		return true, nil, nil

	case bytecode.ExitThread:
		return false, nil, &exitThreadSignal{}

	case bytecode.ExitExec:
		return false, nil, &exitExecSignal{status: int(node.Parameter)}

	case bytecode.OpenPrinter:
		ctx := c.Current()
		top, ok := c.Pop()
		if !ok {
			return false, nil, cursor.ErrStackUnderflow
		}
		ctx.PrinterStack = append(ctx.PrinterStack, top)
		return true, nil, nil

	case bytecode.ClosePrinter:
		ctx := c.Current()
		if n := len(ctx.PrinterStack); n > 0 {
			ctx.PrinterStack[n-1].Release()
			ctx.PrinterStack = ctx.PrinterStack[:n-1]
		}
		return true, nil, nil

	case bytecode.Print:
		cont, err := d.print(c)
		return cont, nil, err

	case bytecode.OpenPackage, bytecode.ClosePackage:
		// Package scoping is tracked by the compiler boundary that resolves
		// class/base paths; the dispatch loop has nothing further to do at these
		// boundaries for an already-resolved module.
		return true, nil, nil

	case bytecode.RegisterClass:
		// Class descriptions are resolved ahead of dispatch via
		// class.ClassDescription.Generate, keyed by the same Parameter index a
		// REGISTER_CLASS node names; the loader performs this before a module's
		// body starts running, so by dispatch time the class already exists.
		return true, nil, nil

	case bytecode.RegexMatch, bytecode.RegexUnmatch:
		cont, err := d.regexMatch(c, node.Command == bytecode.RegexUnmatch)
		return cont, nil, err

	default:
		return false, nil, errors.Newf(errors.Unhandled, "unimplemented opcode %s", node.Command)
	}
}

func truthy(ref value.WeakReference) bool {
	switch v := ref.Data().(type) {
	case *object.BooleanData:
		return v.Value
	case *object.NumberData:
		return v.Value != 0
	case *object.NoneData, *object.NullData:
		return false
	default:
		return true
	}
}

func (d *Dispatcher) boolean(v bool) value.WeakReference {
	return value.NewWeakReference(d.RT, value.Default, object.NewBoolean(d.RT, v))
}

func (d *Dispatcher) number(v float64) value.WeakReference {
	return value.NewWeakReference(d.RT, value.Default, object.NewNumber(d.RT, v))
}

func (d *Dispatcher) string(s *object.StringData) value.WeakReference {
	return value.NewWeakReference(d.RT, value.Default, s)
}

// BuildExceptionCursor satisfies scheduler.ExceptionCursorBuilder: it resolves exc's
// `show` member and, if present, returns a fresh Cursor ready to run it with exc bound
// as the receiver.
func (d *Dispatcher) BuildExceptionCursor(exc value.WeakReference) (*cursor.Cursor, bool) {
	inst, ok := exc.Data().(*object.InstanceData)
	if !ok || inst.IsClassObject() {
		return nil, false
	}
	m, ok := inst.Class.Member("show")
	if !ok {
		return nil, false
	}
	fd, ok := m.Default.Data().(*object.FunctionData)
	if !ok {
		return nil, false
	}
	ov, ok := fd.Resolve(0)
	if !ok || ov.Handle == nil {
		return nil, false
	}
	c := cursor.NewCursor(d.RT, ov.Handle)
	c.Seed([]value.WeakReference{exc})
	return c, true
}
