/*
store.go - Persistence port for the document collection

PURPOSE:
  Defines the interface between the engine and whatever holds the data
  at rest. The engine is the single owner of the in-memory collection;
  the Store is its commit target. Different implementations can use
  SQLite, PostgreSQL, or in-memory storage.

COMMIT ORDERING:
  Every mutating engine operation commits to the Store FIRST and applies
  the change to the in-memory collection only after the commit succeeds.
  A failed commit therefore leaves engine state untouched; there is no
  optimistic update to roll back and no window where reads observe
  uncommitted state.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - ledger/store/memory.go: In-memory for testing/dev

SEE ALSO:
  - engine.go: Calls the Store on every mutation
*/
package ledger

import "context"

// Store handles persistence of documents and counterparties.
// SaveDocument is an upsert: the same id overwrites the previous record.
type Store interface {
	// LoadDocuments returns all persisted documents, most recent first.
	LoadDocuments(ctx context.Context) ([]Document, error)

	// SaveDocument persists a document, inserting or replacing by id.
	SaveDocument(ctx context.Context, doc Document) error

	// DeleteDocument removes a document. Deleting an absent id is not an error.
	DeleteDocument(ctx context.Context, id DocumentID) error

	// LoadCounterparties returns the counterparty registry.
	LoadCounterparties(ctx context.Context) ([]Counterparty, error)

	// SaveCounterparty persists a counterparty, inserting or replacing by id.
	SaveCounterparty(ctx context.Context, cp Counterparty) error
}
