package object

import (
	"bytes"
	"encoding/binary"
	"math"

	"golang.org/x/crypto/blake2b"

	"ember/internal/gc"
	"ember/internal/value"
)

// hashEntry is one insertion-order-preserving slot: key and value are both shared
// WeakReferences, plus the key's digest for O(1) bucket lookup.
type hashEntry struct {
	key   value.WeakReference
	val   value.WeakReference
	digest [32]byte
}

// HashData is an insertion-order-preserving map keyed by the language's `==` operator
// over a blake2b digest of the key datum's format and content, per the data model.
type HashData struct {
	Base
	rt      *gc.Runtime
	entries []hashEntry
	index   map[[32]byte][]int // digest -> candidate entry indices (collisions possible)
}

func NewHash(rt *gc.Runtime) *HashData {
	d := &HashData{rt: rt, index: make(map[[32]byte][]int)}
	rt.Register(d)
	return d
}

func (h *HashData) Mark(rt *gc.Runtime) {
	for _, e := range h.entries {
		e.key.Mark(rt)
		e.val.Mark(rt)
	}
}

func (h *HashData) Len() int { return len(h.entries) }

// digestOf computes a stable content hash for a reference's datum, used as the bucket
// key. Two data that equalData treats as equal always produce equal digests.
func digestOf(d gc.Data) [32]byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(KindOf(d)))
	switch v := d.(type) {
	case *NoneData, *NullData:
	case *BooleanData:
		if v.Value {
			buf.WriteByte(1)
		}
	case *NumberData:
		f := v.Value
		if f == 0 {
			f = 0 // -0 and +0 are equal keys, so they share one digest
		}
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], math.Float64bits(f))
		buf.Write(b[:])
	case *StringData:
		buf.WriteString(v.String())
	case *RegexData:
		buf.WriteString(v.Source)
	default:
		// Arrays, Hashes, and user objects hash by identity: stable across the
		// object's lifetime (its GC sequence number never changes) even though it is
		// mutable, matching reference-type equality semantics for container keys.
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], d.Info().Seq())
		buf.Write(b[:])
	}
	return blake2b.Sum256(buf.Bytes())
}

// equalData implements the key-equality contract: built-ins compare by value, every
// other Data compares by identity. The full `==` operator overload (user-defined
// classes may override it) is applied by internal/dispatch before insertion; this is
// the fallback used when no override is present.
func equalData(a, b gc.Data) bool {
	if a == b {
		return true
	}
	ka, kb := KindOf(a), KindOf(b)
	if ka != kb {
		return false
	}
	switch av := a.(type) {
	case *NoneData, *NullData:
		return true
	case *BooleanData:
		return av.Value == b.(*BooleanData).Value
	case *NumberData:
		return av.Value == b.(*NumberData).Value
	case *StringData:
		return av.String() == b.(*StringData).String()
	case *RegexData:
		return av.Source == b.(*RegexData).Source
	default:
		return false
	}
}

// StrictEqual implements the `===` operator: built-ins compare by value, everything
// else by identity, bypassing any user-defined `==` overload entirely.
func StrictEqual(a, b gc.Data) bool { return equalData(a, b) }

// Get looks up key's value by content/identity equality.
func (h *HashData) Get(key value.WeakReference) (value.WeakReference, bool) {
	d := key.Data()
	if d == nil {
		return value.WeakReference{}, false
	}
	digest := digestOf(d)
	for _, idx := range h.index[digest] {
		if equalData(h.entries[idx].key.Data(), d) {
			return h.entries[idx].val, true
		}
	}
	return value.WeakReference{}, false
}

// Set inserts or updates key -> val, preserving first-insertion order for existing
// keys (matching insertion-order iteration).
func (h *HashData) Set(key, val value.WeakReference) {
	d := key.Data()
	digest := digestOf(d)
	for _, idx := range h.index[digest] {
		if equalData(h.entries[idx].key.Data(), d) {
			h.entries[idx].val = val.Share()
			return
		}
	}
	h.index[digest] = append(h.index[digest], len(h.entries))
	h.entries = append(h.entries, hashEntry{key: key.Share(), val: val.Share(), digest: digest})
}

// Delete removes key if present, reporting whether it was found. The removed entry's
// index is dropped from its bucket and every index above it, in every bucket, is
// shifted down by one so the buckets keep pointing at the surviving entries.
func (h *HashData) Delete(key value.WeakReference) bool {
	d := key.Data()
	digest := digestOf(d)
	for i, idx := range h.index[digest] {
		if equalData(h.entries[idx].key.Data(), d) {
			h.entries = append(h.entries[:idx], h.entries[idx+1:]...)
			h.index[digest] = append(h.index[digest][:i], h.index[digest][i+1:]...)
			for k := range h.index {
				for j, v := range h.index[k] {
					if v > idx {
						h.index[k][j] = v - 1
					}
				}
			}
			return true
		}
	}
	return false
}

// Range iterates entries in insertion order.
func (h *HashData) Range(fn func(key, val value.WeakReference) bool) {
	for _, e := range h.entries {
		if !fn(e.key, e.val) {
			return
		}
	}
}

func (h *HashData) CloneData(rt *gc.Runtime) gc.Data {
	clone := NewHash(rt)
	for _, e := range h.entries {
		clone.Set(e.key.Clone(), e.val.Clone())
	}
	return clone
}

// CompareTo establishes the total order hash keys rely on for deterministic
// disambiguation: format tag first, then a type-specific comparison, then the GC's
// monotonic allocation sequence number as the final tiebreaker for data that compares
// equal by neither of the first two (distinct user objects of the same class with no
// ordering overload, for instance).
func CompareTo(a, b gc.Data) int {
	ka, kb := KindOf(a), KindOf(b)
	if ka != kb {
		if ka < kb {
			return -1
		}
		return 1
	}
	switch av := a.(type) {
	case *NumberData:
		bv := b.(*NumberData)
		switch {
		case av.Value < bv.Value:
			return -1
		case av.Value > bv.Value:
			return 1
		default:
			return 0
		}
	case *StringData:
		as, bs := av.String(), b.(*StringData).String()
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		default:
			return 0
		}
	case *BooleanData:
		bv := b.(*BooleanData)
		switch {
		case !av.Value && bv.Value:
			return -1
		case av.Value && !bv.Value:
			return 1
		default:
			return 0
		}
	}
	seqA, seqB := a.Info().Seq(), b.Info().Seq()
	switch {
	case seqA < seqB:
		return -1
	case seqA > seqB:
		return 1
	default:
		return 0
	}
}
