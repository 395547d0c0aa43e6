// Package table implements the open-addressed hash table used for
// globals, instance fields, class method tables, and the string
// interning table (spec.md §4.2, §4.3).
//
// Both uses share one representation: linear-probing, tombstone
// deletion, and growth to double capacity once the load factor
// exceeds 0.75. The string interning table is keyed by raw byte
// content (find by hash+length+bytes, before a *value.String even
// exists); the generic table is keyed by the identity of an already-
// interned *value.String. Both live here — rather than splitting a
// "string table" and a "generic table" into separate packages — since
// the only difference is the lookup key, and spec.md §4.3 explicitly
// notes the generic table has "identical representation" to the
// string table.
package table

import "github.com/roselang/rose/pkg/value"

type entryState uint8

const (
	stateEmpty entryState = iota
	stateLive
	stateTombstone
)

type entry struct {
	key   *value.String
	val   value.Value
	state entryState
}

// Table is the generic map from an interned *value.String key to a
// value.Value, used for globals, instance fields, and class method
// tables (where the stored Value wraps a *value.Closure).
type Table struct {
	entries []entry
	count   int // live entries + tombstones, drives the load-factor check
	live    int
}

// New returns an empty table. Capacity grows lazily on first insert.
func New() *Table {
	return &Table{}
}

const maxLoad = 0.75

// Get looks up name, returning (value, true) if present.
func (t *Table) Get(name *value.String) (value.Value, bool) {
	if len(t.entries) == 0 {
		return value.Nil, false
	}
	e := t.find(name)
	if e.state != stateLive {
		return value.Nil, false
	}
	return e.val, true
}

// Set stores val under name, returning true if this created a new
// entry (as opposed to overwriting an existing one).
func (t *Table) Set(name *value.String, val value.Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*maxLoad {
		t.grow()
	}
	e := t.find(name)
	isNew := e.state != stateLive
	if isNew && e.state == stateEmpty {
		t.count++
	}
	if isNew {
		t.live++
	}
	e.key = name
	e.val = val
	e.state = stateLive
	return isNew
}

// Delete removes name, leaving a tombstone behind so later linear
// probes over the slot it occupied keep finding entries placed after
// it. Returns whether the key existed.
func (t *Table) Delete(name *value.String) bool {
	if len(t.entries) == 0 {
		return false
	}
	e := t.find(name)
	if e.state != stateLive {
		return false
	}
	e.state = stateTombstone
	e.key = nil
	e.val = value.Nil
	t.live--
	return true
}

// Len reports the number of live (non-tombstone) entries.
func (t *Table) Len() int { return t.live }

// AddAll copies every live entry from src into t, used by the
// INHERIT opcode to seed a subclass's method table from its
// superclass's at inheritance time. Entries added to src afterward
// are not reflected in t (spec.md §8 "Inheritance" testable property).
func AddAll(src, dst *Table) {
	for _, e := range src.entries {
		if e.state == stateLive {
			dst.Set(e.key, e.val)
		}
	}
}

// Each calls fn for every live entry. Iteration order is unspecified.
func (t *Table) Each(fn func(key *value.String, val value.Value)) {
	for _, e := range t.entries {
		if e.state == stateLive {
			fn(e.key, e.val)
		}
	}
}

// find returns the entry name should occupy: the live entry if
// present, else the first tombstone seen (so a subsequent Set reuses
// it) — falling back to the first empty slot if no tombstone was
// seen along the probe sequence. This matches the standard linear-
// probing-with-tombstones algorithm (Crafting Interpreters' table.c,
// which spec.md's §4.2/§4.3 describe in prose).
func (t *Table) find(name *value.String) *entry {
	capMask := uint32(len(t.entries) - 1)
	idx := name.Hash & capMask
	var tombstone *entry
	for {
		e := &t.entries[idx]
		switch e.state {
		case stateEmpty:
			if tombstone != nil {
				return tombstone
			}
			return e
		case stateTombstone:
			if tombstone == nil {
				tombstone = e
			}
		case stateLive:
			if e.key == name {
				return e
			}
		}
		idx = (idx + 1) & capMask
	}
}

func (t *Table) grow() {
	oldEntries := t.entries
	newCap := 8
	if len(oldEntries) > 0 {
		newCap = len(oldEntries) * 2
	}
	t.entries = make([]entry, newCap)
	t.count = 0
	t.live = 0
	for _, e := range oldEntries {
		if e.state == stateLive {
			dst := t.find(e.key)
			dst.key = e.key
			dst.val = e.val
			dst.state = stateLive
			t.count++
			t.live++
		}
	}
}
