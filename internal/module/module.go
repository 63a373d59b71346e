package module

import (
	"ember/internal/bytecode"
	"ember/internal/class"
)

// Handle is a named, callable entry point into a Module's Node vector: a function or
// method overload, a generator body, or the module's top-level script body (Name ==
// ""). The dispatch loop's INIT_CALL/CALL pair pushes a new Context's instruction
// pointer to Offset and allocates FastSlotCount local slots.
type Handle struct {
	Name           string
	Module         *Module
	Offset         int32
	End            int32 // first offset past this handle's body, for bounds checks
	ParameterCount int
	FastSlotCount  int
	IsGenerator    bool
	Variadic       bool // ParameterCount is the minimum fixed argument count
	Package        *class.PackageData
}

// Module is one loaded compilation unit: the flat instruction stream every Cursor
// created against it shares read-only, plus the callable Handles discovered within it.
// Modules are immutable once loaded — Cache is what guards the load itself.
type Module struct {
	Path    string
	Nodes   []bytecode.Node
	Handles []*Handle
	Package *class.PackageData

	Symbols *SymbolTable
}

// NewModule constructs an empty module against the given path and symbol table. The
// loader (compiler boundary, or a test fixture hand-assembling bytecode) appends to
// Nodes and Handles directly before the Module is published into a Cache.
func NewModule(path string, symbols *SymbolTable, pkg *class.PackageData) *Module {
	return &Module{Path: path, Symbols: symbols, Package: pkg}
}

// PushNode appends a node to the instruction stream and returns its offset.
func (m *Module) PushNode(n bytecode.Node) int32 {
	off := int32(len(m.Nodes))
	m.Nodes = append(m.Nodes, n)
	return off
}

// ReplaceNode patches an already-emitted node, used to back-patch a forward jump
// placeholder once its target offset is known.
func (m *Module) ReplaceNode(offset int32, n bytecode.Node) {
	m.Nodes[offset] = n
}

// NextNodeOffset returns the offset PushNode would assign to the next appended node.
func (m *Module) NextNodeOffset() int32 { return int32(len(m.Nodes)) }

// At returns the node at offset, and whether offset is in bounds. The dispatch loop
// uses this rather than direct indexing so a malformed jump target raises a runtime
// error instead of panicking.
func (m *Module) At(offset int32) (bytecode.Node, bool) {
	if offset < 0 || int(offset) >= len(m.Nodes) {
		return bytecode.Node{}, false
	}
	return m.Nodes[offset], true
}

// End returns the offset one past the last node, i.e. the module's iptr upper bound.
func (m *Module) End() int32 { return int32(len(m.Nodes)) }

// DeclareHandle registers a new callable unit starting at the current end of the node
// stream and returns it so the loader can append its body and then set End.
func (m *Module) DeclareHandle(name string, paramCount int, variadic, generator bool) *Handle {
	h := &Handle{Name: name, Module: m, Offset: m.End(), ParameterCount: paramCount,
		Variadic: variadic, IsGenerator: generator, Package: m.Package}
	m.Handles = append(m.Handles, h)
	return h
}
