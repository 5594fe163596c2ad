/*
summary.go - Fresh aggregate statistics over the collection

PURPOSE:
  Summarize walks the collection and recomputes every aggregate from
  scratch on each call. There is no incremental or cached aggregate
  state to go stale; O(n) per call is the accepted cost for collections
  of hundreds to low thousands of documents.

CLASSIFICATION:
  Status counts and OverdueAmount use the same derivedStatus predicate
  as Query, so the summary can never disagree with a filtered view.
*/
package ledger

import "github.com/shopspring/decimal"

// Summary is the aggregate view over one kind (or all kinds).
type Summary struct {
	Kind  Kind `json:"kind,omitempty"` // "" when summarizing all kinds
	Count int  `json:"count"`

	ByStatus map[Status]int `json:"by_status"`

	TotalAmount       decimal.Decimal `json:"total_amount"`
	PaidAmount        decimal.Decimal `json:"paid_amount"`
	OutstandingAmount decimal.Decimal `json:"outstanding_amount"`
	OverdueAmount     decimal.Decimal `json:"overdue_amount"`

	// Breakdowns sum TotalAmount per counterparty name and per category.
	ByCounterparty map[string]decimal.Decimal `json:"by_counterparty"`
	ByCategory     map[string]decimal.Decimal `json:"by_category"`
}

// Summarize computes a fresh Summary over the documents of kind, or over
// the whole collection when kind is "".
func (e *Engine) Summarize(kind Kind) Summary {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	s := Summary{
		Kind:              kind,
		ByStatus:          make(map[Status]int),
		TotalAmount:       decimal.Zero,
		PaidAmount:        decimal.Zero,
		OutstandingAmount: decimal.Zero,
		OverdueAmount:     decimal.Zero,
		ByCounterparty:    make(map[string]decimal.Decimal),
		ByCategory:        make(map[string]decimal.Decimal),
	}

	for _, d := range e.docs {
		if kind != "" && d.Kind != kind {
			continue
		}
		s.Count++

		status := derivedStatus(d, now)
		s.ByStatus[status]++

		s.TotalAmount = s.TotalAmount.Add(d.TotalAmount)
		s.PaidAmount = s.PaidAmount.Add(d.PaidAmount)
		s.OutstandingAmount = s.OutstandingAmount.Add(d.BalanceAmount)
		if status == StatusOverdue {
			s.OverdueAmount = s.OverdueAmount.Add(d.BalanceAmount)
		}

		if d.CounterpartyName != "" {
			s.ByCounterparty[d.CounterpartyName] = s.ByCounterparty[d.CounterpartyName].Add(d.TotalAmount)
		}
		if d.Category != "" {
			s.ByCategory[d.Category] = s.ByCategory[d.Category].Add(d.TotalAmount)
		}
	}
	return s
}
