package class

import (
	"fmt"

	"ember/internal/gc"
	"ember/internal/value"
)

// ErrUnresolvedBase is returned when a ClassDescription names a base path that has no
// corresponding generated Class yet.
type ErrUnresolvedBase struct{ Path string }

func (e *ErrUnresolvedBase) Error() string { return "unresolved base class: " + e.Path }

// ErrAmbiguousInheritance is the fatal class-registration error (§7) raised when a
// member appears in two unrelated bases with no overriding declaration in the
// derived class to resolve the ambiguity.
type ErrAmbiguousInheritance struct {
	Class  string
	Member string
	Bases  []string
}

func (e *ErrAmbiguousInheritance) Error() string {
	return fmt.Sprintf("class %q: member %q is ambiguous between bases %v", e.Class, e.Member, e.Bases)
}

// DescribedMember is one member as written at compile time: either an operator slot
// or a plain symbol, with its initial value and declared flags.
type DescribedMember struct {
	Name     string // empty if this member is an operator shortcut
	Operator Operator
	IsOp     bool
	Value    gc.Data
	Flags    value.Flags
	IsGlobal bool // static / class-level member rather than per-instance
}

// ClassDescription is the compile-time description a ClassDescription opcode
// (REGISTER_CLASS) names: not yet linearized against its bases, not yet installed
// into a package. Generate() produces the runtime Class exactly once and memoizes it.
type ClassDescription struct {
	Name      string
	Pkg       *PackageData
	BasePaths []string
	Members   []DescribedMember
	Metatype  Metatype

	resolved *Class
}

// BaseResolver looks up an already-generated Class by its dotted path, searching
// whatever package scope is active. The compiler boundary supplies this; tests use a
// simple map-backed resolver.
type BaseResolver func(path string) (*Class, bool)

// Generate lazily produces the runtime Class for this description, linearizing bases,
// resolving operator inheritance, and installing members with computed slot offsets.
// Calling Generate more than once returns the same Class.
func (d *ClassDescription) Generate(rt *gc.Runtime, resolve BaseResolver) (*Class, error) {
	if d.resolved != nil {
		return d.resolved, nil
	}

	bases := make([]*Class, 0, len(d.BasePaths))
	for _, path := range d.BasePaths {
		base, ok := resolve(path)
		if !ok {
			return nil, &ErrUnresolvedBase{Path: path}
		}
		bases = append(bases, base)
	}

	c := NewClass(d.Pkg, d.Name, d.Metatype)
	c.bases = bases

	// Step 2: linearize slots. Base order is declaration order; each base
	// contributes its own already-computed slots, offset by however many slots
	// have been claimed so far. A member declared directly on d that shares a
	// base's member name preserves that base's offset (override); everything else
	// appends a new slot.
	baseMemberOwner := make(map[string]*Class) // name -> the one base that defines it, or nil if ambiguous
	baseMemberInfo := make(map[string]*MemberInfo)

	for _, base := range bases {
		for name, info := range base.Members() {
			if info.Offset == InvalidOffset {
				continue // statically-shared members are not part of instance layout
			}
			if existingOwner, seen := baseMemberOwner[name]; seen {
				if existingOwner != nil && existingOwner != info.Owner {
					baseMemberOwner[name] = nil // mark ambiguous unless overridden below
				}
				continue
			}
			baseMemberOwner[name] = info.Owner
			baseMemberInfo[name] = info
		}
	}

	// Compute contiguous offsets in base-declaration order (first base wins the
	// earliest slot for any member name it's the first to declare).
	order := make([]string, 0, len(baseMemberInfo))
	seen := make(map[string]bool)
	nextOffset := uint(0)
	offsetOf := make(map[string]uint)
	for _, base := range bases {
		for name, info := range base.Members() {
			if info.Offset == InvalidOffset || seen[name] {
				continue
			}
			seen[name] = true
			order = append(order, name)
			offsetOf[name] = nextOffset
			nextOffset++
		}
	}

	declaredNames := make(map[string]bool)
	for _, m := range d.Members {
		if !m.IsOp && !m.IsGlobal {
			declaredNames[m.Name] = true
		}
	}

	// Ambiguity check: any base-inherited, non-overridden member whose owner is
	// unclear across bases is a fatal error.
	for _, name := range order {
		if declaredNames[name] {
			continue // resolved by the derived class's own declaration
		}
		if baseMemberOwner[name] == nil {
			var owners []string
			for _, base := range bases {
				if _, ok := base.Member(name); ok {
					owners = append(owners, base.Name())
				}
			}
			return nil, &ErrAmbiguousInheritance{Class: d.Name, Member: name, Bases: owners}
		}
		info := baseMemberInfo[name]
		c.AddMember(name, &MemberInfo{Offset: offsetOf[name], Owner: info.Owner, Default: info.Default, Flags: info.Flags})
	}

	// Step 3: inherit operators defined in exactly one base and not overridden here.
	declaredOps := make(map[Operator]bool)
	for _, m := range d.Members {
		if m.IsOp {
			declaredOps[m.Operator] = true
		}
	}
	for op := Operator(0); op < operatorCount; op++ {
		if declaredOps[op] {
			continue
		}
		var found *MemberInfo
		ambiguous := false
		for _, base := range bases {
			if entry := base.Operator(op); entry != nil {
				if found != nil && found.Owner != entry.Owner {
					ambiguous = true
				}
				found = entry
			}
		}
		if found != nil && !ambiguous {
			c.SetOperator(op, found)
		}
	}

	// Step 4: install this class's own declared members (operator shortcuts,
	// instance members appended after inherited slots, and static members with
	// InvalidOffset).
	for _, m := range d.Members {
		ref := value.NewWeakReference(rt, m.Flags, m.Value)
		if m.IsOp {
			info := &MemberInfo{Offset: InvalidOffset, Owner: c, Default: ref, Flags: m.Flags}
			c.SetOperator(m.Operator, info)
			continue
		}
		if m.IsGlobal {
			c.AddGlobalMember(m.Name, &MemberInfo{Offset: InvalidOffset, Owner: c, Default: ref, Flags: m.Flags})
			continue
		}
		if existing, ok := offsetOf[m.Name]; ok {
			c.AddMember(m.Name, &MemberInfo{Offset: existing, Owner: c, Default: ref, Flags: m.Flags})
			continue
		}
		offset := nextOffset
		nextOffset++
		c.AddMember(m.Name, &MemberInfo{Offset: offset, Owner: c, Default: ref, Flags: m.Flags})
	}

	d.resolved = c
	return c, nil
}
