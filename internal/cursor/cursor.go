// Package cursor implements the unit of sequential execution: a call-frame stack
// (Context), a value stack, the retrieve-point stack used for exception unwind, and
// the waiting-call bookkeeping INIT_CALL/INIT_PARAM/CALL builds up before a dispatch.
package cursor

import (
	"errors"

	"ember/internal/bytecode"
	"ember/internal/gc"
	"ember/internal/module"
	"ember/internal/value"
)

// ErrIPtrOutOfRange is raised when a frame's instruction pointer runs past its
// module's node vector — a malformed jump target or a truncated module.
var ErrIPtrOutOfRange = errors.New("cursor: instruction pointer out of range")

// ErrStackUnderflow is raised when a pop or call finds fewer operands than it needs.
var ErrStackUnderflow = errors.New("cursor: value stack underflow")

// Context is one call frame: the module and instruction pointer it is executing
// against, its local (fast) slot array, and its symbol table. A handle declared
// `!symbols` shares its caller's table instead of allocating a fresh one (Shared
// becomes true and Symbols aliases the caller's map).
type Context struct {
	Module *module.Module
	Handle *module.Handle
	IPtr   int32

	Fast    []value.WeakReference
	Symbols map[*bytecode.Symbol]value.WeakReference
	Shared  bool

	Captured map[*bytecode.Symbol]value.WeakReference

	GeneratorStack []value.WeakReference // BEGIN/END_GENERATOR_EXPRESSION nesting
	PrinterStack   []value.WeakReference // nested `print <expr> { }` redirections

	ExtraArgs []value.WeakReference // argv tail beyond the handle's declared parameters
}

// waitingCall accumulates INIT_CALL/INIT_MEMBER_CALL/INIT_PARAM state until the
// matching CALL/CALL_MEMBER/CALL_BUILTIN opcode fires. A member or operator call
// resolves its receiver and callee off the value stack at INIT time rather than
// threading them through explicit argument slots, so the argument count (taken from
// the CALL/CALL_MEMBER node's Parameter; InitParam's ArgCount is not consulted by
// those opcodes) only ever covers the call's explicit parameters.
type waitingCall struct {
	ArgCount    int
	Receiver    value.WeakReference
	HasReceiver bool
	Function    value.WeakReference
	HasFunction bool
}

// RetrievePoint is a saved unwind target: sizes to truncate the value/call/waiting-
// call stacks to, plus the node offset to jump to, installed by SET_RETRIEVE_POINT and
// consumed by Raise.
type RetrievePoint struct {
	StackSize         int
	CallStackSize     int
	WaitingCallsCount int
	RetrieveOffset    int32
}

// LineInfo is one frame of a Dump() trace. Without a compiled-in source-line table
// (this repository's bytecode is produced either by a hand-assembling test fixture or
// internal/frontend's compiler, neither of which emits one) a frame is identified by its
// module path, handle name, and raw instruction offset rather than a source line.
type LineInfo struct {
	ModulePath string
	Handle     string
	IPtr       int32
}

// Cursor is the unit of sequential execution: exactly the four stacks named above.
type Cursor struct {
	rt *gc.Runtime

	stack          []value.WeakReference
	calls          []*Context
	waitingCalls   []waitingCall
	retrievePoints []RetrievePoint

	cancelled bool
}

// NewCursor creates a cursor with a single root frame executing handle from its
// declared entry offset.
func NewCursor(rt *gc.Runtime, handle *module.Handle) *Cursor {
	c := &Cursor{rt: rt}
	c.calls = []*Context{{
		Module:  handle.Module,
		Handle:  handle,
		IPtr:    handle.Offset,
		Fast:    make([]value.WeakReference, handle.FastSlotCount),
		Symbols: make(map[*bytecode.Symbol]value.WeakReference),
	}}
	return c
}

// Seed binds args into this cursor's root frame's fast slots, overflow going to
// ExtraArgs exactly as Call would. Used once, immediately after NewCursor, to start a
// generator body's dedicated cursor already "inside" its call rather than pushing a
// second frame for it.
func (c *Cursor) Seed(args []value.WeakReference) {
	ctx := c.Current()
	if ctx == nil {
		return
	}
	n := copy(ctx.Fast, args)
	if n < len(args) {
		ctx.ExtraArgs = args[n:]
	}
}

// Runtime implements object.NativeContext.
func (c *Cursor) Runtime() *gc.Runtime { return c.rt }

// Push implements object.NativeContext and is also the operand-stack push used by the
// dispatch loop.
func (c *Cursor) Push(ref value.WeakReference) { c.stack = append(c.stack, ref) }

// Pop implements object.NativeContext and the dispatch loop's operand pop.
func (c *Cursor) Pop() (value.WeakReference, bool) {
	n := len(c.stack)
	if n == 0 {
		return value.WeakReference{}, false
	}
	v := c.stack[n-1]
	c.stack = c.stack[:n-1]
	return v, true
}

// Peek returns the top of the value stack without popping it.
func (c *Cursor) Peek() (value.WeakReference, bool) {
	n := len(c.stack)
	if n == 0 {
		return value.WeakReference{}, false
	}
	return c.stack[n-1], true
}

// StackDepth reports the current value stack depth, used by the stack-depth-after-call
// testable property.
func (c *Cursor) StackDepth() int { return len(c.stack) }

// Current returns the active call frame.
func (c *Cursor) Current() *Context {
	if len(c.calls) == 0 {
		return nil
	}
	return c.calls[len(c.calls)-1]
}

// CallDepth reports the current call-frame stack depth.
func (c *Cursor) CallDepth() int { return len(c.calls) }

// Finished reports whether the cursor has unwound its last frame.
func (c *Cursor) Finished() bool { return len(c.calls) == 0 }

// Cancelled reports whether Cancel has been called; RunStep checks this between
// instructions to honor cooperative cancellation.
func (c *Cursor) Cancelled() bool { return c.cancelled }

// Cancel requests this cursor stop at its next instruction boundary.
func (c *Cursor) Cancel() { c.cancelled = true }

// Next reads the current frame's node and advances its instruction pointer.
func (c *Cursor) Next() (*bytecode.Node, error) {
	ctx := c.Current()
	if ctx == nil {
		return nil, ErrIPtrOutOfRange
	}
	node, ok := ctx.Module.At(ctx.IPtr)
	if !ok {
		return nil, ErrIPtrOutOfRange
	}
	ctx.IPtr++
	return &node, nil
}

// Jmp sets the current frame's instruction pointer directly.
func (c *Cursor) Jmp(pos int32) {
	if ctx := c.Current(); ctx != nil {
		ctx.IPtr = pos
	}
}

// BeginCall opens a new waiting-call accumulator, pushed by INIT_CALL and its variants.
func (c *Cursor) BeginCall() { c.waitingCalls = append(c.waitingCalls, waitingCall{}) }

// AddParam records one more argument pushed for the in-progress waiting call.
func (c *Cursor) AddParam() {
	if n := len(c.waitingCalls); n > 0 {
		c.waitingCalls[n-1].ArgCount++
	}
}

// WaitingArgCount returns the argument count accumulated by the top waiting call.
func (c *Cursor) WaitingArgCount() int {
	if n := len(c.waitingCalls); n > 0 {
		return c.waitingCalls[n-1].ArgCount
	}
	return 0
}

// EndCall pops the top waiting-call accumulator once CALL has consumed it.
func (c *Cursor) EndCall() {
	if n := len(c.waitingCalls); n > 0 {
		c.waitingCalls = c.waitingCalls[:n-1]
	}
}

// SetWaitingReceiver records the implicit receiver a member or operator call resolves
// at INIT time, consumed by Call when it assembles the final argument list.
func (c *Cursor) SetWaitingReceiver(ref value.WeakReference) {
	if n := len(c.waitingCalls); n > 0 {
		c.waitingCalls[n-1].Receiver = ref
		c.waitingCalls[n-1].HasReceiver = true
	}
}

// WaitingReceiver returns the top waiting call's recorded receiver, if any.
func (c *Cursor) WaitingReceiver() (value.WeakReference, bool) {
	if n := len(c.waitingCalls); n > 0 {
		return c.waitingCalls[n-1].Receiver, c.waitingCalls[n-1].HasReceiver
	}
	return value.WeakReference{}, false
}

// SetWaitingFunction records the callee a member or operator call resolved at INIT
// time.
func (c *Cursor) SetWaitingFunction(ref value.WeakReference) {
	if n := len(c.waitingCalls); n > 0 {
		c.waitingCalls[n-1].Function = ref
		c.waitingCalls[n-1].HasFunction = true
	}
}

// WaitingFunction returns the top waiting call's recorded callee, if any.
func (c *Cursor) WaitingFunction() (value.WeakReference, bool) {
	if n := len(c.waitingCalls); n > 0 {
		return c.waitingCalls[n-1].Function, c.waitingCalls[n-1].HasFunction
	}
	return value.WeakReference{}, false
}

// Call pushes a new frame executing handle, popping argc operands off the value stack
// into its fast-slot array (slot 0 receives the first-pushed argument). If capture is
// non-nil the new frame's symbol table is seeded from it; if shareSymbols is true the
// new frame's Symbols aliases the caller's table instead of a fresh one.
func (c *Cursor) Call(handle *module.Handle, argc int, capture map[*bytecode.Symbol]value.WeakReference, shareSymbols bool) error {
	if argc > len(c.stack) {
		return ErrStackUnderflow
	}
	args := make([]value.WeakReference, argc)
	copy(args, c.stack[len(c.stack)-argc:])
	c.stack = c.stack[:len(c.stack)-argc]

	ctx := &Context{Module: handle.Module, Handle: handle, IPtr: handle.Offset,
		Fast: make([]value.WeakReference, handle.FastSlotCount), Captured: capture}
	switch {
	case shareSymbols && len(c.calls) > 0:
		ctx.Symbols = c.Current().Symbols
		ctx.Shared = true
	default:
		ctx.Symbols = make(map[*bytecode.Symbol]value.WeakReference)
	}
	for sym, ref := range capture {
		ctx.Symbols[sym] = ref
	}
	n := copy(ctx.Fast, args)
	if n < len(args) {
		ctx.ExtraArgs = args[n:]
	}
	c.calls = append(c.calls, ctx)
	return nil
}

// ExitCall pops the current frame. The call's result reference, if any, is left on
// the value stack by whatever instruction produced it before ExitCall runs.
func (c *Cursor) ExitCall() {
	if len(c.calls) > 0 {
		c.calls = c.calls[:len(c.calls)-1]
	}
}

// Abort immediately unwinds every remaining frame, as though ExitCall had been called
// until Finished. Used by generator finalization to force a suspended body to a
// terminal state once it declines to honor any further yields.
func (c *Cursor) Abort() {
	c.calls = nil
}

// IsInGenerator reports whether the current frame's handle is a generator body.
func (c *Cursor) IsInGenerator() bool {
	ctx := c.Current()
	return ctx != nil && ctx.Handle != nil && ctx.Handle.IsGenerator
}

// IsInBuiltin reports whether the current frame has no bytecode handle (a native
// implementation is executing in its place).
func (c *Cursor) IsInBuiltin() bool {
	ctx := c.Current()
	return ctx != nil && ctx.Handle == nil
}

// SetRetrievePoint installs a new unwind target at offset, recording the stacks'
// current sizes.
func (c *Cursor) SetRetrievePoint(offset int32) {
	c.retrievePoints = append(c.retrievePoints, RetrievePoint{
		StackSize: len(c.stack), CallStackSize: len(c.calls),
		WaitingCallsCount: len(c.waitingCalls), RetrieveOffset: offset,
	})
}

// UnsetRetrievePoint pops the top retrieve point without acting on it (the guarded
// block completed normally).
func (c *Cursor) UnsetRetrievePoint() {
	if n := len(c.retrievePoints); n > 0 {
		c.retrievePoints = c.retrievePoints[:n-1]
	}
}

// HasRetrievePoint reports whether any unwind target remains installed.
func (c *Cursor) HasRetrievePoint() bool { return len(c.retrievePoints) > 0 }

// Raise unwinds to the top retrieve point, truncating the value/call/waiting-call
// stacks to its recorded sizes, pushing exc, and jumping to its target. It reports
// false if no retrieve point was available, in which case the caller (the scheduler)
// must escalate to an Exception process.
func (c *Cursor) Raise(exc value.WeakReference) bool {
	n := len(c.retrievePoints)
	if n == 0 {
		return false
	}
	rp := c.retrievePoints[n-1]
	c.retrievePoints = c.retrievePoints[:n-1]
	if rp.StackSize <= len(c.stack) {
		c.stack = c.stack[:rp.StackSize]
	}
	if rp.CallStackSize <= len(c.calls) {
		c.calls = c.calls[:rp.CallStackSize]
	}
	if rp.WaitingCallsCount <= len(c.waitingCalls) {
		c.waitingCalls = c.waitingCalls[:rp.WaitingCallsCount]
	}
	c.Push(exc)
	c.Jmp(rp.RetrieveOffset)
	return true
}

// Dump walks the call stack from innermost to outermost frame, producing a line trace
// for diagnostics and for an uncaught exception's display.
func (c *Cursor) Dump() []LineInfo {
	out := make([]LineInfo, 0, len(c.calls))
	for i := len(c.calls) - 1; i >= 0; i-- {
		ctx := c.calls[i]
		name := ""
		path := ""
		if ctx.Handle != nil {
			name = ctx.Handle.Name
		}
		if ctx.Module != nil {
			path = ctx.Module.Path
		}
		out = append(out, LineInfo{ModulePath: path, Handle: name, IPtr: ctx.IPtr})
	}
	return out
}
