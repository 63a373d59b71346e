package builtin

import "errors"

// ErrNotAString is returned by VarSymbol when the popped operand is not a String.
var ErrNotAString = errors.New("builtin: expected string operand for dynamic symbol name")
