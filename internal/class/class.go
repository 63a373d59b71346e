// Package class implements class metadata: the operator table, member slot mapping,
// base-class linearization, and the compile-time ClassDescription -> runtime Class
// generation step.
package class

import (
	"fmt"
	"sync"

	"ember/internal/gc"
	"ember/internal/value"
)

// Metatype tags which built-in representation a Class backs. User-defined classes
// use Object; every other tag identifies one of the language's built-in container
// types, per the data model's Object table.
type Metatype int

const (
	Object Metatype = iota
	String
	Regex
	Array
	Hash
	Iterator
	Library
	LibObject
)

// Operator enumerates the overloadable operators, used to index a Class's fixed-size
// operator table. Declared once here so the dispatch loop's operator-dispatch
// contract (look up the operand's metaclass operator table before falling back to a
// symbol-map lookup) stays a single array index rather than a map probe — this is
// the hot path the Design Notes call out explicitly.
type Operator int

const (
	OpAdd Operator = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpNeg
	OpPos
	OpInc
	OpDec
	OpEq
	OpNe
	OpLt
	OpGt
	OpLe
	OpGe
	OpAnd
	OpOr
	OpNot
	OpBand
	OpBor
	OpXor
	OpCompl
	OpShl
	OpShr
	OpSubscript
	OpSubscriptMove
	OpInclusiveRange
	OpExclusiveRange
	OpDelete // destructor
	operatorCount
)

// InvalidOffset marks a MemberInfo as statically shared on the class (functions and
// constants) rather than occupying a per-instance slot.
const InvalidOffset = ^uint(0)

// PackageData is the runtime metadata for a package: its name, parent (nil at global
// scope), and the classes/globals it declares. Packages live for the process
// lifetime, same as classes.
type PackageData struct {
	mu      sync.RWMutex
	Name    string
	Parent  *PackageData
	classes map[string]*Class
	globals map[string]*value.StrongReference
}

// NewPackageData constructs a package with the given name and optional parent.
func NewPackageData(name string, parent *PackageData) *PackageData {
	return &PackageData{Name: name, Parent: parent, classes: make(map[string]*Class), globals: make(map[string]*value.StrongReference)}
}

// FullName returns the dotted package path from the root to this package.
func (p *PackageData) FullName() string {
	if p.Parent == nil || p.Parent.Name == "" {
		return p.Name
	}
	return p.Parent.FullName() + "." + p.Name
}

func (p *PackageData) registerClass(c *Class) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.classes[c.Name()] = c
}

// GetClass looks up a class declared directly in this package.
func (p *PackageData) GetClass(name string) (*Class, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.classes[name]
	return c, ok
}

// Global looks up a package-level variable declared directly in this package.
func (p *PackageData) Global(name string) (*value.StrongReference, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	g, ok := p.globals[name]
	return g, ok
}

// SetGlobal declares or replaces a package-level variable.
func (p *PackageData) SetGlobal(name string, ref *value.StrongReference) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.globals[name] = ref
}

// MemberInfo describes one member of a class: its slot offset (or InvalidOffset for
// statically-shared functions/constants), the class that originally declared it, and
// its default value.
type MemberInfo struct {
	Offset  uint
	Owner   *Class
	Default value.WeakReference
	Flags   value.Flags
}

// Class is the runtime, generated form of a class: resolved bases, a flattened slot
// layout, a member map, and a fixed-size operator table.
type Class struct {
	mu sync.RWMutex

	name     string
	pkg      *PackageData
	metatype Metatype

	bases []*Class // declaration order, already generated

	members       map[string]*MemberInfo
	globalMembers map[string]*MemberInfo
	slotCount     uint

	operators [operatorCount]*MemberInfo

	copyable bool
}

// NewClass constructs an empty, already-"generated" Class for a built-in metatype
// (String, Array, Hash, Iterator, ...). Built-in classes have no bases and are
// populated directly by the object package, not through ClassDescription.Generate.
func NewClass(pkg *PackageData, name string, metatype Metatype) *Class {
	c := &Class{name: name, pkg: pkg, metatype: metatype,
		members: make(map[string]*MemberInfo), globalMembers: make(map[string]*MemberInfo),
		copyable: true}
	if pkg != nil {
		pkg.registerClass(c)
	}
	return c
}

func (c *Class) Name() string         { return c.name }
func (c *Class) Package() *PackageData { return c.pkg }
func (c *Class) Metatype() Metatype    { return c.metatype }
func (c *Class) SlotCount() uint       { return c.slotCount }
func (c *Class) IsCopyable() bool      { return c.copyable }
func (c *Class) DisableCopy()          { c.copyable = false }
func (c *Class) Bases() []*Class       { return c.bases }

// Members returns the per-instance-and-static member map.
func (c *Class) Members() map[string]*MemberInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.members
}

// GlobalMembers returns the class-level (non-instance, e.g. static) member map.
func (c *Class) GlobalMembers() map[string]*MemberInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.globalMembers
}

// Member looks up a member by name, searching this class only (not bases — bases
// contribute through the linearized member map built at Generate time).
func (c *Class) Member(name string) (*MemberInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.members[name]
	return m, ok
}

// Operator returns the operator table entry for op, or nil if unimplemented.
func (c *Class) Operator(op Operator) *MemberInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.operators[op]
}

// SetOperator installs an operator shortcut directly; used both by Generate's
// inheritance step and by built-in classes wiring their native operator handlers.
func (c *Class) SetOperator(op Operator, m *MemberInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.operators[op] = m
}

// AddMember installs a member with an explicit slot offset (InvalidOffset for
// statically-shared members). Used both by Generate and directly by built-in class
// construction.
func (c *Class) AddMember(name string, m *MemberInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m.Offset != InvalidOffset && m.Offset >= c.slotCount {
		c.slotCount = m.Offset + 1
	}
	c.members[name] = m
}

// AddGlobalMember installs a class-level (non-instance) member.
func (c *Class) AddGlobalMember(name string, m *MemberInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.globalMembers[name] = m
}

// IsDirectBaseOrSame reports whether other is c itself or one of c's immediate bases.
func (c *Class) IsDirectBaseOrSame(other *Class) bool {
	if c == other {
		return true
	}
	for _, b := range c.bases {
		if b == other {
			return true
		}
	}
	return false
}

// IsBaseOf reports whether c is a (possibly transitive) base of other.
func (c *Class) IsBaseOf(other *Class) bool {
	if other == nil {
		return false
	}
	for _, b := range other.bases {
		if b == c || c.IsBaseOf(b) {
			return true
		}
	}
	return false
}

// IsBaseOrSame reports whether c equals other or is a transitive base of it.
func (c *Class) IsBaseOrSame(other *Class) bool {
	return c == other || c.IsBaseOf(other)
}

// MakeInstanceSlots allocates a slot array sized for this class and populates it by
// cloning each member's default value into a fresh WeakReference. The caller (package
// object's Object constructor) wraps the returned slots in an Object value; a class
// object (metaclass handle) is represented by passing nil slots, never a zero-length
// populated slice, so `data == nil` unambiguously distinguishes a class object from
// an instance with no per-instance members.
func (c *Class) MakeInstanceSlots(rt *gc.Runtime) []value.WeakReference {
	slots := make([]value.WeakReference, c.slotCount)
	for name, m := range c.members {
		if m.Offset == InvalidOffset {
			continue
		}
		_ = name
		slots[m.Offset] = m.Default.Clone()
	}
	return slots
}

func (c *Class) String() string {
	return fmt.Sprintf("Class(%s)", c.name)
}
