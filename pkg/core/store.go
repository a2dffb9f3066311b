package core

import "context"

// Reader is the read half of the collection API.
type Reader interface {
	// Get retrieves a record by key. It returns ErrNotFound if absent.
	Get(ctx context.Context, c Collection, key string) (Record, error)

	// ToArray returns every record of the collection in iteration order.
	// Iteration order is insertion order; replacing a record keeps its slot.
	ToArray(ctx context.Context, c Collection) ([]Record, error)
}

// Writer is the write half of the collection API.
type Writer interface {
	// Put creates or replaces a record.
	Put(ctx context.Context, c Collection, rec Record) error

	// BulkAdd inserts new records. It fails with ErrKeyExists if any key is
	// already present (or repeated in recs), and then inserts none of them.
	BulkAdd(ctx context.Context, c Collection, recs []Record) error

	// Delete removes a record. Deleting a missing key is not an error.
	Delete(ctx context.Context, c Collection, key string) error

	// Clear removes every record of the collection.
	Clear(ctx context.Context, c Collection) error
}

// Tx is the view of the store inside a transaction body.
// Reads observe the transaction's own staged writes.
type Tx interface {
	Reader
	Writer
}

// Store defines the contract for the desk persistence collaborator.
// Adhering to this interface keeps the capsule core independent of the
// storage mechanism (memory, filesystem, ...).
type Store interface {
	Reader
	Writer

	// Transaction runs fn against a staged view limited to scope.
	// If fn returns an error, or the commit fails, no change is visible to
	// subsequent reads. Readers never observe a partially applied body.
	Transaction(ctx context.Context, scope []Collection, fn func(tx Tx) error) error

	// Initialize ensures the underlying storage is ready (e.g. create directories, load state).
	Initialize(ctx context.Context) error
}

// Watchable defines an interface for stores that publish change events.
type Watchable interface {
	// Watch emits events for changes to collections whose name matches
	// pattern (a doublestar glob such as "{notes,stickers}"; empty means all).
	// The channel is closed when ctx is done.
	Watch(ctx context.Context, pattern string) (<-chan Event, error)
}
