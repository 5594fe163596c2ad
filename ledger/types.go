/*
Package ledger provides the core document aggregation engine.

PURPOSE:
  This package contains the types and algorithms for managing collections
  of financial documents. Whether the document is a customer invoice, a
  vendor bill, or an employee reimbursement, the same engine handles total
  computation, payment application, status transitions, summaries, and
  filtered views.

KEY CONCEPTS IN THIS FILE (types.go):
  - Document: A financial document with line items and a payment history
  - LineItem: A single billable/expense entry contributing to totals
  - Payment: An immutable record of money applied against a document
  - Kind: Tagged variant discriminating invoice/bill/reimbursement
  - Counterparty: The external party a document is issued to or from

DESIGN PRINCIPLES:
  1. Derivation: Subtotal, tax, discount, total, and balance are always
     computed from line items and payments, never set directly
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Append-only payments: Payments are recorded, never edited or removed;
     corrections go through an explicit credit path outside this engine
  4. One shape: Kind-specific differences (customer vs vendor vs employee)
     collapse into the common counterparty fields

USAGE:
  draft := ledger.Draft{
      CounterpartyID:   "cp-1",
      CounterpartyName: "Acme Corp",
      IssueDate:        issue,
      DueDate:          due,
      Currency:         "USD",
      LineItems:        []ledger.LineItem{{Description: "Consulting", Quantity: dec(2), UnitPrice: dec(100)}},
  }
  doc, err := engine.Create(ctx, ledger.KindInvoice, draft)

SEE ALSO:
  - document.go: Total computation and validation
  - engine.go: The Engine owning the document collection
  - status.go: Status transition rules
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type DocumentID string
type CounterpartyID string

// =============================================================================
// KIND - Tagged variant for the three document families
// =============================================================================

type Kind string

const (
	KindInvoice       Kind = "invoice"
	KindBill          Kind = "bill"
	KindReimbursement Kind = "reimbursement"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindInvoice, KindBill, KindReimbursement:
		return true
	}
	return false
}

// NumberPrefix returns the document-number prefix for this kind.
func (k Kind) NumberPrefix() string {
	switch k {
	case KindInvoice:
		return "INV"
	case KindBill:
		return "BILL"
	case KindReimbursement:
		return "RMB"
	}
	return "DOC"
}

// CounterpartyRole names what the counterparty is for this kind.
// Invoices bill customers, bills come from vendors, reimbursements go to employees.
func (k Kind) CounterpartyRole() string {
	switch k {
	case KindInvoice:
		return "customer"
	case KindBill:
		return "vendor"
	case KindReimbursement:
		return "employee"
	}
	return "counterparty"
}

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusPaid      Status = "paid"
	StatusOverdue   Status = "overdue" // derived, never stored; see status.go
	StatusCancelled Status = "cancelled"
	StatusRejected  Status = "rejected"
)

// Terminal reports whether no further transition is permitted from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusPaid, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// =============================================================================
// LINE ITEM
// =============================================================================

// LineItem is a single billable/expense entry. TaxRate and DiscountRate are
// decimal fractions (0.10 = 10%) applied per line, not on the document subtotal.
type LineItem struct {
	Description  string          `json:"description"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	DiscountRate decimal.Decimal `json:"discount_rate"`
	LineTotal    decimal.Decimal `json:"line_total"` // computed, see computeTotals
}

// =============================================================================
// PAYMENT - Append-only record of money applied to a document
// =============================================================================

type PaymentMethod string

const (
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCard         PaymentMethod = "card"
	MethodCash         PaymentMethod = "cash"
	MethodCheck        PaymentMethod = "check"
	MethodOther        PaymentMethod = "other"
)

type Payment struct {
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"date"`
	Method    PaymentMethod   `json:"method"`
	Reference string          `json:"reference,omitempty"`
}

// =============================================================================
// DOCUMENT
// =============================================================================

// Document is the unified shape for invoices, bills, and reimbursements.
// Subtotal/TaxAmount/DiscountAmount/TotalAmount derive from line items;
// PaidAmount derives from payments; BalanceAmount is always Total - Paid.
type Document struct {
	ID             DocumentID `json:"id"`
	DocumentNumber string     `json:"document_number"`
	Kind           Kind       `json:"kind"`

	CounterpartyID    CounterpartyID `json:"counterparty_id"`
	CounterpartyName  string         `json:"counterparty_name"`
	CounterpartyEmail string         `json:"counterparty_email,omitempty"`

	// Category is the department/category bucket used in summaries.
	Category string `json:"category,omitempty"`

	IssueDate time.Time `json:"issue_date"`
	DueDate   time.Time `json:"due_date"`
	Currency  string    `json:"currency"`

	LineItems []LineItem `json:"line_items"`

	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	BalanceAmount  decimal.Decimal `json:"balance_amount"`

	Status   Status    `json:"status"`
	Payments []Payment `json:"payments"`

	Notes           string     `json:"notes,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy. The engine hands out clones so callers can
// never mutate the canonical collection.
func (d *Document) Clone() *Document {
	c := *d
	c.LineItems = append([]LineItem(nil), d.LineItems...)
	c.Payments = append([]Payment(nil), d.Payments...)
	if d.PaidAt != nil {
		t := *d.PaidAt
		c.PaidAt = &t
	}
	return &c
}

// =============================================================================
// COUNTERPARTY - Non-owning back-reference; the engine only looks these up
// =============================================================================

type Counterparty struct {
	ID    CounterpartyID `json:"id"`
	Name  string         `json:"name"`
	Email string         `json:"email,omitempty"`
	Role  string         `json:"role,omitempty"` // customer, vendor, employee
}
