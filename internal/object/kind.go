package object

import "ember/internal/gc"

// Kind tags the built-in representation of a gc.Data, used both for display (Typeof)
// and as the primary sort key of CompareTo's total order across mixed types (Open
// Question 2 of the Design Notes: format-tag first, then type-specific comparison,
// then a GC-assigned sequence number tiebreaker for otherwise-equal user objects).
type Kind int

const (
	KindNone Kind = iota
	KindNull
	KindBoolean
	KindNumber
	KindString
	KindRegex
	KindArray
	KindHash
	KindIterator
	KindFunction
	KindPackage
	KindLibrary
	KindLibObject
	KindObject
)

// KindOf classifies d by its concrete Data implementation.
func KindOf(d gc.Data) Kind {
	switch d.(type) {
	case *NoneData:
		return KindNone
	case *NullData:
		return KindNull
	case *BooleanData:
		return KindBoolean
	case *NumberData:
		return KindNumber
	case *StringData:
		return KindString
	case *RegexData:
		return KindRegex
	case *ArrayData:
		return KindArray
	case *HashData:
		return KindHash
	case *IteratorData:
		return KindIterator
	case *FunctionData:
		return KindFunction
	case *PackageObjectData:
		return KindPackage
	case *LibraryData:
		return KindLibrary
	case *LibObjectData:
		return KindLibObject
	default:
		return KindObject
	}
}

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindRegex:
		return "regex"
	case KindArray:
		return "array"
	case KindHash:
		return "hash"
	case KindIterator:
		return "iterator"
	case KindFunction:
		return "function"
	case KindPackage:
		return "package"
	case KindLibrary:
		return "library"
	case KindLibObject:
		return "libobject"
	default:
		return "object"
	}
}
