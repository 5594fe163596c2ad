/*
Package sqlite provides a SQLite-backed implementation of ledger.Store.

PURPOSE:
  Persists the document collection and counterparty registry. In
  production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  documents:       One row per financial document. Line items and the
                   append-only payment history are stored as JSON side
                   columns; the engine is the source of truth for the
                   derived money fields, the store just round-trips them.
  counterparties:  The lookup registry (customers, vendors, employees).

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  st, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

  engine := ledger.New(st)
  err = engine.Load(ctx)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go: Interface definition
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/ledger-engine/ledger"
)

// Store implements ledger.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		document_number TEXT NOT NULL,
		kind TEXT NOT NULL,
		counterparty_id TEXT,
		counterparty_name TEXT,
		counterparty_email TEXT,
		category TEXT,
		issue_date TEXT NOT NULL,
		due_date TEXT NOT NULL,
		currency TEXT NOT NULL,
		line_items_json TEXT NOT NULL,
		subtotal TEXT NOT NULL,
		tax_amount TEXT NOT NULL,
		discount_amount TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		paid_amount TEXT NOT NULL,
		balance_amount TEXT NOT NULL,
		status TEXT NOT NULL,
		payments_json TEXT NOT NULL,
		notes TEXT,
		rejection_reason TEXT,
		paid_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_kind_number
		ON documents(kind, document_number);
	CREATE INDEX IF NOT EXISTS idx_documents_counterparty
		ON documents(counterparty_id);
	CREATE INDEX IF NOT EXISTS idx_documents_created_at
		ON documents(created_at);

	CREATE TABLE IF NOT EXISTS counterparties (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		role TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// DOCUMENTS
// =============================================================================

func (s *Store) LoadDocuments(ctx context.Context) ([]ledger.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_number, kind, counterparty_id, counterparty_name,
		       counterparty_email, category, issue_date, due_date, currency,
		       line_items_json, subtotal, tax_amount, discount_amount,
		       total_amount, paid_amount, balance_amount, status, payments_json,
		       notes, rejection_reason, paid_at, created_at, updated_at
		FROM documents
		ORDER BY created_at DESC, document_number DESC`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []ledger.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *Store) SaveDocument(ctx context.Context, doc ledger.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lineItems, err := json.Marshal(doc.LineItems)
	if err != nil {
		return fmt.Errorf("marshal line items: %w", err)
	}
	payments, err := json.Marshal(doc.Payments)
	if err != nil {
		return fmt.Errorf("marshal payments: %w", err)
	}

	var paidAt sql.NullString
	if doc.PaidAt != nil {
		paidAt = sql.NullString{String: doc.PaidAt.Format(time.RFC3339Nano), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO documents
			(id, document_number, kind, counterparty_id, counterparty_name,
			 counterparty_email, category, issue_date, due_date, currency,
			 line_items_json, subtotal, tax_amount, discount_amount,
			 total_amount, paid_amount, balance_amount, status, payments_json,
			 notes, rejection_reason, paid_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(doc.ID), doc.DocumentNumber, string(doc.Kind),
		string(doc.CounterpartyID), doc.CounterpartyName, doc.CounterpartyEmail,
		doc.Category,
		doc.IssueDate.Format(time.RFC3339Nano), doc.DueDate.Format(time.RFC3339Nano),
		doc.Currency, string(lineItems),
		doc.Subtotal.String(), doc.TaxAmount.String(), doc.DiscountAmount.String(),
		doc.TotalAmount.String(), doc.PaidAmount.String(), doc.BalanceAmount.String(),
		string(doc.Status), string(payments),
		doc.Notes, doc.RejectionReason, paidAt,
		doc.CreatedAt.Format(time.RFC3339Nano), doc.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save document %s: %w", doc.ID, err)
	}
	return nil
}

func (s *Store) DeleteDocument(ctx context.Context, id ledger.DocumentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

// =============================================================================
// COUNTERPARTIES
// =============================================================================

func (s *Store) LoadCounterparties(ctx context.Context) ([]ledger.Counterparty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, COALESCE(email, ''), COALESCE(role, '') FROM counterparties ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query counterparties: %w", err)
	}
	defer rows.Close()

	var cps []ledger.Counterparty
	for rows.Next() {
		var cp ledger.Counterparty
		var id string
		if err := rows.Scan(&id, &cp.Name, &cp.Email, &cp.Role); err != nil {
			return nil, fmt.Errorf("scan counterparty: %w", err)
		}
		cp.ID = ledger.CounterpartyID(id)
		cps = append(cps, cp)
	}
	return cps, rows.Err()
}

func (s *Store) SaveCounterparty(ctx context.Context, cp ledger.Counterparty) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO counterparties (id, name, email, role)
		VALUES (?, ?, ?, ?)`,
		string(cp.ID), cp.Name, cp.Email, cp.Role)
	if err != nil {
		return fmt.Errorf("save counterparty %s: %w", cp.ID, err)
	}
	return nil
}

// =============================================================================
// SCANNING
// =============================================================================

func scanDocument(rows *sql.Rows) (ledger.Document, error) {
	var (
		doc                                        ledger.Document
		id, kind, cpID, status                     string
		lineItemsJSON, paymentsJSON                string
		issueDate, dueDate, createdAt, updatedAt   string
		subtotal, tax, discount, total, paid, bal  string
		paidAt                                     sql.NullString
		cpName, cpEmail, category, notes, rejected sql.NullString
	)

	err := rows.Scan(&id, &doc.DocumentNumber, &kind, &cpID, &cpName, &cpEmail,
		&category, &issueDate, &dueDate, &doc.Currency, &lineItemsJSON,
		&subtotal, &tax, &discount, &total, &paid, &bal, &status,
		&paymentsJSON, &notes, &rejected, &paidAt, &createdAt, &updatedAt)
	if err != nil {
		return doc, fmt.Errorf("scan document: %w", err)
	}

	doc.ID = ledger.DocumentID(id)
	doc.Kind = ledger.Kind(kind)
	doc.CounterpartyID = ledger.CounterpartyID(cpID)
	doc.CounterpartyName = cpName.String
	doc.CounterpartyEmail = cpEmail.String
	doc.Category = category.String
	doc.Status = ledger.Status(status)
	doc.Notes = notes.String
	doc.RejectionReason = rejected.String

	if err := json.Unmarshal([]byte(lineItemsJSON), &doc.LineItems); err != nil {
		return doc, fmt.Errorf("unmarshal line items for %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(paymentsJSON), &doc.Payments); err != nil {
		return doc, fmt.Errorf("unmarshal payments for %s: %w", id, err)
	}

	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&doc.Subtotal, subtotal}, {&doc.TaxAmount, tax},
		{&doc.DiscountAmount, discount}, {&doc.TotalAmount, total},
		{&doc.PaidAmount, paid}, {&doc.BalanceAmount, bal},
	} {
		d, err := decimal.NewFromString(f.src)
		if err != nil {
			return doc, fmt.Errorf("parse amount %q for %s: %w", f.src, id, err)
		}
		*f.dst = d
	}

	for _, f := range []struct {
		dst *time.Time
		src string
	}{
		{&doc.IssueDate, issueDate}, {&doc.DueDate, dueDate},
		{&doc.CreatedAt, createdAt}, {&doc.UpdatedAt, updatedAt},
	} {
		t, err := time.Parse(time.RFC3339Nano, f.src)
		if err != nil {
			return doc, fmt.Errorf("parse time %q for %s: %w", f.src, id, err)
		}
		*f.dst = t
	}
	if paidAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, paidAt.String)
		if err != nil {
			return doc, fmt.Errorf("parse paid_at for %s: %w", id, err)
		}
		doc.PaidAt = &t
	}

	return doc, nil
}
