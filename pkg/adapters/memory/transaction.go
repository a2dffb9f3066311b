package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/geonotes98/geonotes/pkg/core"
)

// Transaction implements core.Tx on top of a base snapshot.
// Writes clone the touched collection once and are only published on commit.
type Transaction struct {
	base   *State
	scope  map[core.Collection]bool
	staged map[core.Collection]*table
	events []core.Event
	mu     sync.Mutex
	closed bool
}

// NewTransaction stages changes against base, limited to scope.
func NewTransaction(base *State, scope []core.Collection) (*Transaction, error) {
	set := make(map[core.Collection]bool, len(scope))
	for _, c := range scope {
		if !c.Valid() {
			return nil, fmt.Errorf("%w: %q", core.ErrUnknownCollection, c)
		}
		set[c] = true
	}
	return &Transaction{
		base:   base,
		scope:  set,
		staged: make(map[core.Collection]*table),
	}, nil
}

func (t *Transaction) check(c core.Collection) error {
	if t.closed {
		return core.ErrTxClosed
	}
	if !c.Valid() {
		return fmt.Errorf("%w: %q", core.ErrUnknownCollection, c)
	}
	if !t.scope[c] {
		return fmt.Errorf("%w: %s", core.ErrOutOfScope, c)
	}
	return nil
}

// view returns the staged table if any, else the base one.
func (t *Transaction) view(c core.Collection) *table {
	if st, ok := t.staged[c]; ok {
		return st
	}
	return t.base.tables[c]
}

// writable returns the staged table, cloning the base on first write.
func (t *Transaction) writable(c core.Collection) *table {
	if st, ok := t.staged[c]; ok {
		return st
	}
	st := t.base.tables[c].clone()
	t.staged[c] = st
	return st
}

func (t *Transaction) record(typ core.EventType, c core.Collection, key string) {
	t.events = append(t.events, core.Event{
		Type:       typ,
		Collection: c,
		Key:        key,
		Timestamp:  core.Millis(time.Now()),
	})
}

// Get retrieves a record, favoring staged changes.
func (t *Transaction) Get(ctx context.Context, c core.Collection, key string) (core.Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.check(c); err != nil {
		return core.Record{}, err
	}
	rec, ok := t.view(c).get(key)
	if !ok {
		return core.Record{}, fmt.Errorf("%w: %s/%s", core.ErrNotFound, c, key)
	}
	return rec, nil
}

// ToArray returns the staged view of a collection.
func (t *Transaction) ToArray(ctx context.Context, c core.Collection) ([]core.Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.check(c); err != nil {
		return nil, err
	}
	return t.view(c).records(), nil
}

// Put stages a record for saving.
func (t *Transaction) Put(ctx context.Context, c core.Collection, rec core.Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.check(c); err != nil {
		return err
	}
	if rec.Key == "" {
		return core.ErrEmptyKey
	}
	if t.writable(c).put(rec) {
		t.record(core.EventCreate, c, rec.Key)
	} else {
		t.record(core.EventModify, c, rec.Key)
	}
	return nil
}

// BulkAdd stages new records; any conflicting key rejects the whole batch.
func (t *Transaction) BulkAdd(ctx context.Context, c core.Collection, recs []core.Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.check(c); err != nil {
		return err
	}

	current := t.view(c)
	seen := make(map[string]bool, len(recs))
	for _, rec := range recs {
		if rec.Key == "" {
			return core.ErrEmptyKey
		}
		if _, exists := current.get(rec.Key); exists || seen[rec.Key] {
			return fmt.Errorf("%w: %s/%s", core.ErrKeyExists, c, rec.Key)
		}
		seen[rec.Key] = true
	}

	if len(recs) == 0 {
		return nil
	}
	st := t.writable(c)
	for _, rec := range recs {
		st.put(rec)
		t.record(core.EventCreate, c, rec.Key)
	}
	return nil
}

// Delete stages a record for removal.
func (t *Transaction) Delete(ctx context.Context, c core.Collection, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.check(c); err != nil {
		return err
	}
	if _, ok := t.view(c).get(key); !ok {
		return nil
	}
	t.writable(c).delete(key)
	t.record(core.EventDelete, c, key)
	return nil
}

// Clear stages the removal of every record of a collection.
func (t *Transaction) Clear(ctx context.Context, c core.Collection) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.check(c); err != nil {
		return err
	}
	for _, rec := range t.view(c).recs {
		t.record(core.EventDelete, c, rec.Key)
	}
	t.staged[c] = newTable()
	return nil
}

// Changed lists the collections written by the transaction, in canonical order.
func (t *Transaction) Changed() []core.Collection {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []core.Collection
	for _, c := range core.Collections {
		if _, ok := t.staged[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Result closes the transaction and returns the snapshot it would publish,
// plus the events describing its writes.
func (t *Transaction) Result() (*State, []core.Event, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, nil, core.ErrTxClosed
	}
	t.closed = true
	if len(t.staged) == 0 {
		return t.base, nil, nil
	}
	return t.base.with(t.staged), t.events, nil
}

// Rollback discards all staged changes.
func (t *Transaction) Rollback() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.staged = nil
	t.events = nil
	t.closed = true
}
