/*
document.go - Total computation, draft validation, and patch application

PURPOSE:
  Everything that derives a document's money fields from its line items
  lives here, along with the validation applied before a document enters
  the collection and the patch rules applied on update.

TOTAL COMPUTATION:
  Tax and discount are per-line, not applied to the document subtotal:

    base      = quantity * unitPrice
    tax       = base * taxRate
    discount  = base * discountRate
    lineTotal = base + tax - discount

  Document totals are the sums of the per-line values, and
  TotalAmount = Subtotal + TaxAmount - DiscountAmount.

PATCH RULES:
  A patch may change counterparty fields, category, dates, line items,
  and notes. Everything computed (totals, balance, paid), everything
  identity-bearing (id, number, kind), the payment history, the status,
  and the currency are immutable; ParsePatch rejects them by name so the
  HTTP layer reports exactly which field was refused.

SEE ALSO:
  - engine.go: Calls validateDraft/computeTotals/apply on mutations
*/
package ledger

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DRAFT - Input to Create
// =============================================================================

// Draft carries the caller-supplied fields for a new document.
type Draft struct {
	CounterpartyID    CounterpartyID `json:"counterparty_id"`
	CounterpartyName  string         `json:"counterparty_name"`
	CounterpartyEmail string         `json:"counterparty_email"`
	Category          string         `json:"category"`
	IssueDate         time.Time      `json:"issue_date"`
	DueDate           time.Time      `json:"due_date"`
	Currency          string         `json:"currency"`
	LineItems         []LineItem     `json:"line_items"`
	Notes             string         `json:"notes"`
}

func validateDraft(kind Kind, d Draft) error {
	if !kind.Valid() {
		return &ValidationError{Field: "kind", Reason: "unknown kind " + string(kind)}
	}
	if d.CounterpartyID == "" && d.CounterpartyName == "" {
		return &ValidationError{Field: "counterparty", Reason: kind.CounterpartyRole() + " is required"}
	}
	if d.IssueDate.IsZero() {
		return &ValidationError{Field: "issue_date", Reason: "issue date is required"}
	}
	if d.DueDate.IsZero() {
		return &ValidationError{Field: "due_date", Reason: "due date is required"}
	}
	if d.DueDate.Before(d.IssueDate) {
		return &ValidationError{Field: "due_date", Reason: "due date before issue date"}
	}
	return validateLineItems(d.LineItems)
}

func validateLineItems(items []LineItem) error {
	if len(items) == 0 {
		return &ValidationError{Field: "line_items", Reason: "at least one line item is required"}
	}
	for _, li := range items {
		if li.Quantity.IsNegative() {
			return &ValidationError{Field: "line_items", Reason: "negative quantity"}
		}
		if li.UnitPrice.IsNegative() {
			return &ValidationError{Field: "line_items", Reason: "negative unit price"}
		}
		if li.TaxRate.IsNegative() {
			return &ValidationError{Field: "line_items", Reason: "negative tax rate"}
		}
		if li.DiscountRate.IsNegative() {
			return &ValidationError{Field: "line_items", Reason: "negative discount rate"}
		}
	}
	return nil
}

// =============================================================================
// TOTAL COMPUTATION
// =============================================================================

// computeTotals fills each line's LineTotal and the document's derived money
// fields from its line items, then re-derives the balance from PaidAmount.
// Returns a ValidationError if the total computes negative.
func computeTotals(d *Document) error {
	subtotal := decimal.Zero
	tax := decimal.Zero
	discount := decimal.Zero

	for i := range d.LineItems {
		li := &d.LineItems[i]
		base := li.Quantity.Mul(li.UnitPrice)
		lineTax := base.Mul(li.TaxRate)
		lineDiscount := base.Mul(li.DiscountRate)
		li.LineTotal = base.Add(lineTax).Sub(lineDiscount)

		subtotal = subtotal.Add(base)
		tax = tax.Add(lineTax)
		discount = discount.Add(lineDiscount)
	}

	total := subtotal.Add(tax).Sub(discount)
	if total.IsNegative() {
		return &ValidationError{Field: "line_items", Reason: "total amount computes negative"}
	}

	d.Subtotal = subtotal
	d.TaxAmount = tax
	d.DiscountAmount = discount
	d.TotalAmount = total
	d.BalanceAmount = total.Sub(d.PaidAmount)
	return nil
}

// =============================================================================
// PATCH - Input to Update
// =============================================================================

// Patch holds the optional fields Update may change. Nil means "leave as is".
type Patch struct {
	CounterpartyID    *CounterpartyID
	CounterpartyName  *string
	CounterpartyEmail *string
	Category          *string
	IssueDate         *time.Time
	DueDate           *time.Time
	LineItems         *[]LineItem
	Notes             *string
}

// immutableFields are the wire names ParsePatch refuses. Totals and balance
// are derived, payments are append-only, status moves only via Transition,
// and currency is fixed at creation.
var immutableFields = map[string]bool{
	"id":              true,
	"document_number": true,
	"kind":            true,
	"currency":        true,
	"payments":        true,
	"paid_amount":     true,
	"balance_amount":  true,
	"subtotal":        true,
	"tax_amount":      true,
	"discount_amount": true,
	"total_amount":    true,
	"status":          true,
	"paid_at":         true,
	"created_at":      true,
	"updated_at":      true,
}

// ParsePatch converts raw JSON fields into a Patch, rejecting immutable and
// unknown field names. The raw-map form lets the API distinguish "field
// absent" from "field set to zero value".
func ParsePatch(fields map[string]json.RawMessage) (Patch, error) {
	var p Patch
	for name, raw := range fields {
		if immutableFields[name] {
			return Patch{}, &ImmutableFieldError{Field: name}
		}
		var err error
		switch name {
		case "counterparty_id":
			var v CounterpartyID
			if err = json.Unmarshal(raw, &v); err == nil {
				p.CounterpartyID = &v
			}
		case "counterparty_name":
			var v string
			if err = json.Unmarshal(raw, &v); err == nil {
				p.CounterpartyName = &v
			}
		case "counterparty_email":
			var v string
			if err = json.Unmarshal(raw, &v); err == nil {
				p.CounterpartyEmail = &v
			}
		case "category":
			var v string
			if err = json.Unmarshal(raw, &v); err == nil {
				p.Category = &v
			}
		case "issue_date":
			var v time.Time
			if v, err = parseDate(raw); err == nil {
				p.IssueDate = &v
			}
		case "due_date":
			var v time.Time
			if v, err = parseDate(raw); err == nil {
				p.DueDate = &v
			}
		case "line_items":
			var v []LineItem
			if err = json.Unmarshal(raw, &v); err == nil {
				p.LineItems = &v
			}
		case "notes":
			var v string
			if err = json.Unmarshal(raw, &v); err == nil {
				p.Notes = &v
			}
		default:
			return Patch{}, &ValidationError{Field: name, Reason: "unknown field"}
		}
		if err != nil {
			return Patch{}, &ValidationError{Field: name, Reason: "malformed value"}
		}
	}
	return p, nil
}

// parseDate accepts RFC3339 timestamps and bare calendar dates.
func parseDate(raw json.RawMessage) (time.Time, error) {
	var t time.Time
	if err := json.Unmarshal(raw, &t); err == nil {
		return t, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, err
	}
	return time.Parse("2006-01-02", s)
}

// apply copies the patch onto d. Dates and line items are validated and
// totals recomputed by the caller.
func (p Patch) apply(d *Document) {
	if p.CounterpartyID != nil {
		d.CounterpartyID = *p.CounterpartyID
	}
	if p.CounterpartyName != nil {
		d.CounterpartyName = *p.CounterpartyName
	}
	if p.CounterpartyEmail != nil {
		d.CounterpartyEmail = *p.CounterpartyEmail
	}
	if p.Category != nil {
		d.Category = *p.Category
	}
	if p.IssueDate != nil {
		d.IssueDate = *p.IssueDate
	}
	if p.DueDate != nil {
		d.DueDate = *p.DueDate
	}
	if p.LineItems != nil {
		d.LineItems = append([]LineItem(nil), (*p.LineItems)...)
	}
	if p.Notes != nil {
		d.Notes = *p.Notes
	}
}
