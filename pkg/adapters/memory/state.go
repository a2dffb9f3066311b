package memory

import (
	"github.com/geonotes98/geonotes/pkg/core"
)

// table is an insertion-ordered collection with a key index.
// Tables reachable from a published State are never mutated; writers clone first.
type table struct {
	recs  []core.Record
	index map[string]int
}

func newTable() *table {
	return &table{index: make(map[string]int)}
}

func (t *table) clone() *table {
	c := &table{
		recs:  make([]core.Record, len(t.recs)),
		index: make(map[string]int, len(t.index)),
	}
	copy(c.recs, t.recs)
	for k, v := range t.index {
		c.index[k] = v
	}
	return c
}

func (t *table) get(key string) (core.Record, bool) {
	i, ok := t.index[key]
	if !ok {
		return core.Record{}, false
	}
	return t.recs[i], true
}

// put replaces in place or appends. It reports whether the key was new.
func (t *table) put(rec core.Record) bool {
	if i, ok := t.index[rec.Key]; ok {
		t.recs[i] = rec
		return false
	}
	t.index[rec.Key] = len(t.recs)
	t.recs = append(t.recs, rec)
	return true
}

func (t *table) delete(key string) bool {
	i, ok := t.index[key]
	if !ok {
		return false
	}
	t.recs = append(t.recs[:i], t.recs[i+1:]...)
	delete(t.index, key)
	for j := i; j < len(t.recs); j++ {
		t.index[t.recs[j].Key] = j
	}
	return true
}

func (t *table) records() []core.Record {
	out := make([]core.Record, len(t.recs))
	copy(out, t.recs)
	return out
}

// State is a complete snapshot of the three desk collections.
// A State is treated as immutable once published by a Store.
type State struct {
	tables map[core.Collection]*table
}

// NewState returns an empty snapshot.
func NewState() *State {
	s := &State{tables: make(map[core.Collection]*table, len(core.Collections))}
	for _, c := range core.Collections {
		s.tables[c] = newTable()
	}
	return s
}

// StateFrom builds a snapshot from ordered record lists.
// Later records with a repeated key replace earlier ones in place.
func StateFrom(data map[core.Collection][]core.Record) *State {
	s := NewState()
	for c, recs := range data {
		t, ok := s.tables[c]
		if !ok {
			continue
		}
		for _, rec := range recs {
			t.put(rec)
		}
	}
	return s
}

// Get returns a record of collection c.
func (s *State) Get(c core.Collection, key string) (core.Record, bool) {
	t, ok := s.tables[c]
	if !ok {
		return core.Record{}, false
	}
	return t.get(key)
}

// Records returns a copy of the ordered records of collection c.
func (s *State) Records(c core.Collection) []core.Record {
	t, ok := s.tables[c]
	if !ok {
		return nil
	}
	return t.records()
}

// Len returns the number of records in collection c.
func (s *State) Len(c core.Collection) int {
	t, ok := s.tables[c]
	if !ok {
		return 0
	}
	return len(t.recs)
}

// with returns a new State sharing every table except the replaced ones.
func (s *State) with(replaced map[core.Collection]*table) *State {
	next := &State{tables: make(map[core.Collection]*table, len(s.tables))}
	for c, t := range s.tables {
		next.tables[c] = t
	}
	for c, t := range replaced {
		next.tables[c] = t
	}
	return next
}
