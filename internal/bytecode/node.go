package bytecode

import "ember/internal/value"

// Symbol is an interned identifier name. Two Symbols with the same Name are the same
// pointer — the module's symbol intern table (package module) guarantees this, so
// symbol-table lookups can compare pointers instead of strings.
type Symbol struct {
	Name string
}

// Node is one element of a Module's flat, append-only instruction stream: one whole
// instruction. Command is always meaningful; of the operand fields, the ones the
// Command reads are meaningful (most opcodes read one, FunctionOverload reads both
// Symbol and Parameter) — see the per-opcode comments in opcodes.go.
type Node struct {
	Command   Op
	Parameter int32
	Symbol    *Symbol
	Constant  *value.StrongReference
}

// CommandNode builds a bare opcode node (no operand).
func CommandNode(op Op) Node { return Node{Command: op} }

// ParameterNode builds a Node with only Parameter set (a jump target, argument count,
// or similar integer); its Command is the zero Op, LoadModule.
func ParameterNode(p int32) Node { return Node{Parameter: p} }

// SymbolNode builds a Node with only Symbol set; its Command is the zero Op.
func SymbolNode(s *Symbol) Node { return Node{Symbol: s} }

// ConstantNode builds a Node with only Constant set; its Command is the zero Op.
func ConstantNode(c *value.StrongReference) Node { return Node{Constant: c} }
