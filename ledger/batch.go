/*
batch.go - Bulk operations with per-item outcomes

PURPOSE:
  Bulk payment runs and bulk status changes are sequential loops of
  single-document operations, each independently fallible. A failure on
  item k never rolls back items 1..k-1; callers receive one outcome per
  item and report partial success.
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// PaymentInstruction is one item of a bulk payment run.
type PaymentInstruction struct {
	ID        DocumentID      `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    PaymentMethod   `json:"method"`
	Reference string          `json:"reference,omitempty"`
}

// BatchResult is the outcome for a single item of a bulk operation.
type BatchResult struct {
	ID  DocumentID
	Err error
}

// OK reports whether the item succeeded.
func (r BatchResult) OK() bool { return r.Err == nil }

// RecordPayments applies each instruction in order and never stops early.
func (e *Engine) RecordPayments(ctx context.Context, items []PaymentInstruction) []BatchResult {
	results := make([]BatchResult, 0, len(items))
	for _, item := range items {
		_, err := e.RecordPayment(ctx, item.ID, item.Amount, item.Method, item.Reference)
		results = append(results, BatchResult{ID: item.ID, Err: err})
	}
	return results
}

// TransitionAll applies the same action to each document in order.
func (e *Engine) TransitionAll(ctx context.Context, ids []DocumentID, action Action, reason string) []BatchResult {
	results := make([]BatchResult, 0, len(ids))
	for _, id := range ids {
		_, err := e.Transition(ctx, id, action, reason)
		results = append(results, BatchResult{ID: id, Err: err})
	}
	return results
}
