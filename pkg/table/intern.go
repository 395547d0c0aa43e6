package table

import "github.com/roselang/rose/pkg/value"

// tombstoneString is a sentinel used to mark deleted slots in the
// interner's probe sequence, distinct from nil (empty).
var tombstoneString = &value.String{}

// Interner is the string interning table (spec.md §4.2): a table from
// string contents to the single canonical *value.String object for
// those contents. FindString is the operation every string
// construction site must consult before allocating a new String; if
// it returns a hit, the caller discards its candidate buffer (in Go
// terms: never allocates the *value.String) and reuses the canonical
// one. Add registers a newly allocated canonical String.
type Interner struct {
	entries []*value.String
	count   int
	live    int
}

// NewInterner returns an empty interning table.
func NewInterner() *Interner {
	return &Interner{}
}

// FindString looks for a canonical string equal to the given bytes
// with the already-computed hash, by (length, hash, byte-compare) as
// spec.md §4.2 specifies, returning it or (nil, false).
func (in *Interner) FindString(s string, hash uint32) (*value.String, bool) {
	if len(in.entries) == 0 {
		return nil, false
	}
	capMask := uint32(len(in.entries) - 1)
	idx := hash & capMask
	for {
		e := in.entries[idx]
		if e == nil {
			return nil, false
		}
		if e != tombstoneString && e.Hash == hash && e.Value == s {
			return e, true
		}
		idx = (idx + 1) & capMask
	}
}

// Add registers str (which must not already be present — callers
// always pair a failed FindString with Add) as a canonical interned
// string.
func (in *Interner) Add(str *value.String) {
	if float64(in.count+1) > float64(len(in.entries))*maxLoad {
		in.grow()
	}
	idx := in.insertIndex(str.Value, str.Hash)
	if in.entries[idx] == nil {
		in.count++
	}
	in.entries[idx] = str
	in.live++
}

// Delete removes str from the interner, leaving a tombstone. Called
// when the collector is about to free an unmarked String, per the
// weak-set discipline in spec.md §3 and §4.5 step 3.
func (in *Interner) Delete(str *value.String) {
	if len(in.entries) == 0 {
		return
	}
	capMask := uint32(len(in.entries) - 1)
	idx := str.Hash & capMask
	for {
		e := in.entries[idx]
		if e == nil {
			return
		}
		if e == str {
			in.entries[idx] = tombstoneString
			in.live--
			return
		}
		idx = (idx + 1) & capMask
	}
}

// Len reports the number of live interned strings.
func (in *Interner) Len() int { return in.live }

func (in *Interner) insertIndex(s string, hash uint32) uint32 {
	capMask := uint32(len(in.entries) - 1)
	idx := hash & capMask
	var tombstoneIdx int32 = -1
	for {
		e := in.entries[idx]
		if e == nil {
			if tombstoneIdx >= 0 {
				return uint32(tombstoneIdx)
			}
			return idx
		}
		if e == tombstoneString {
			if tombstoneIdx < 0 {
				tombstoneIdx = int32(idx)
			}
		} else if e.Hash == hash && e.Value == s {
			return idx
		}
		idx = (idx + 1) & capMask
	}
}

func (in *Interner) grow() {
	old := in.entries
	newCap := 8
	if len(old) > 0 {
		newCap = len(old) * 2
	}
	in.entries = make([]*value.String, newCap)
	in.count = 0
	in.live = 0
	for _, e := range old {
		if e != nil && e != tombstoneString {
			idx := in.insertIndex(e.Value, e.Hash)
			in.entries[idx] = e
			in.count++
			in.live++
		}
	}
}

// FNV1a32 is the 32-bit string hash used to key every String object
// (spec.md §9: "FNV-1a is a reasonable default"). Computed once at
// construction and cached on the String.
func FNV1a32(s string) uint32 {
	const offsetBasis uint32 = 2166136261
	const prime uint32 = 16777619
	h := offsetBasis
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}
