// Package errors defines the language-visible exception kinds raised by dispatch and
// class registration, plus an EmberError shape carrying source location and call-stack
// context for diagnostics. Internal invariant violations (bugs, not language-catchable
// conditions) are separately wrapped with github.com/pkg/errors for stack-trace-carrying
// Wrap/Cause chains.
package errors

import (
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// ErrorType enumerates the language's exception kinds.
type ErrorType string

const (
	CompileError         ErrorType = "CompileError"
	NoSuchSymbol         ErrorType = "NoSuchSymbol"
	NoSuchMember         ErrorType = "NoSuchMember"
	NoSuchOperator       ErrorType = "NoSuchOperator"
	InvalidModification  ErrorType = "InvalidModification"
	AmbiguousInheritance ErrorType = "AmbiguousInheritance"
	ArityMismatch        ErrorType = "ArityMismatch"
	InvalidCast          ErrorType = "InvalidCast"
	DivisionByZero       ErrorType = "DivisionByZero"
	GeneratorClosed      ErrorType = "GeneratorClosed"
	Unhandled            ErrorType = "Unhandled"
)

// SourceLocation identifies where an error originated. The front end records no source
// positions, so File/Line/Column stay zero and callers fill in Handle/IPtr instead.
type SourceLocation struct {
	File   string
	Line   int
	Column int
	Handle string
	IPtr   int32
}

// StackFrame is one frame of an EmberError's captured call trace.
type StackFrame struct {
	Function string
	Module   string
	IPtr     int32
}

// EmberError is the language-visible exception shape: a Kind from the table above, a
// message, and optional location/stack context attached by the builder methods.
type EmberError struct {
	Kind      ErrorType
	Message   string
	Location  SourceLocation
	CallStack []StackFrame
}

func (e *EmberError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: %s", e.Kind, e.Message))
	if e.Location.Handle != "" {
		sb.WriteString(fmt.Sprintf(" (in %s at %d)", e.Location.Handle, e.Location.IPtr))
	}
	for _, f := range e.CallStack {
		sb.WriteString(fmt.Sprintf("\n  at %s (%s:%d)", f.Function, f.Module, f.IPtr))
	}
	return sb.String()
}

// New creates an EmberError of the given kind with a plain message.
func New(kind ErrorType, message string) *EmberError {
	return &EmberError{Kind: kind, Message: message}
}

// Newf creates an EmberError of the given kind with a formatted message.
func Newf(kind ErrorType, format string, args ...interface{}) *EmberError {
	return &EmberError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithLocation attaches a source/handle location to the error.
func (e *EmberError) WithLocation(loc SourceLocation) *EmberError {
	e.Location = loc
	return e
}

// WithStack replaces the error's captured call stack.
func (e *EmberError) WithStack(stack []StackFrame) *EmberError {
	e.CallStack = stack
	return e
}

// AddStackFrame appends a single frame to the error's call stack.
func (e *EmberError) AddStackFrame(function, module string, iptr int32) *EmberError {
	e.CallStack = append(e.CallStack, StackFrame{Function: function, Module: module, IPtr: iptr})
	return e
}

// Wrap annotates an internal (non-language-visible) error with a message and stack
// trace, for invariant violations that indicate a bug rather than a catchable
// condition — e.g. a malformed module or a GC consistency check.
func Wrap(err error, message string) error {
	return pkgerrors.Wrap(err, message)
}

// Cause unwraps a Wrap chain to its root error.
func Cause(err error) error {
	return pkgerrors.Cause(err)
}
