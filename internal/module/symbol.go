// Package module implements the loaded-unit container: a flat Node vector, a
// per-runtime interned symbol table, callable Handles into the Node vector, and the
// path-keyed Cache that loaders populate.
package module

import (
	"sync"

	"ember/internal/bytecode"
)

// SymbolTable interns bytecode.Symbol values by name so that two occurrences of the
// same identifier anywhere in a loaded program share one *bytecode.Symbol pointer,
// letting the dispatch loop's symbol-table lookups compare pointers instead of
// strings.
type SymbolTable struct {
	mu     sync.Mutex
	byName map[string]*bytecode.Symbol
}

// NewSymbolTable constructs an empty interning table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{byName: make(map[string]*bytecode.Symbol)}
}

// Intern returns the canonical *bytecode.Symbol for name, creating it on first use.
func (t *SymbolTable) Intern(name string) *bytecode.Symbol {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.byName[name]; ok {
		return s
	}
	s := &bytecode.Symbol{Name: name}
	t.byName[name] = s
	return s
}
