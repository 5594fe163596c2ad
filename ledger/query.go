/*
query.go - Filtered, stably sorted views of the collection

PURPOSE:
  Query narrows the collection with ANDed filters and orders the result
  with a stable sort. Stability is a contract: documents equal under the
  sort key keep their insertion (most-recent-first) order, so re-sorting
  the same input always yields the same output.

FILTERS:
  - Search:        case-insensitive substring over document number and
                   counterparty name; for invoices also counterparty email
  - Status:        exact match against the derived status ("" or "all" = off)
  - CounterpartyID exact match
  - Kind:          exact match
  - From/To:       inclusive window over the issue date for invoices and
                   the due date for bills and reimbursements (payables are
                   managed by when they fall due)

The returned slice holds fresh clones; the collection order is never mutated.
*/
package ledger

import (
	"sort"
	"strings"
	"time"
)

// =============================================================================
// FILTER & SORT SPECS
// =============================================================================

type Filter struct {
	Search         string
	Status         Status // "" or "all" disables the filter
	CounterpartyID CounterpartyID
	Kind           Kind
	From           *time.Time
	To             *time.Time
}

type SortKey string

const (
	SortByAmount       SortKey = "amount"
	SortByDueDate      SortKey = "due_date"
	SortByCounterparty SortKey = "counterparty"
	SortByNumber       SortKey = "number"
)

type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

type Sort struct {
	Key SortKey
	Dir SortDir
}

// =============================================================================
// QUERY
// =============================================================================

// Query returns the documents matching every filter, ordered by the sort
// spec. A zero Sort leaves insertion order untouched.
func (e *Engine) Query(f Filter, s Sort) []*Document {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	var out []*Document
	for _, d := range e.docs {
		status := derivedStatus(d, now)
		if !matches(d, status, f) {
			continue
		}
		c := d.Clone()
		c.Status = status
		out = append(out, c)
	}

	if s.Key != "" {
		less := lessFunc(s.Key)
		desc := s.Dir == SortDesc
		sort.SliceStable(out, func(i, j int) bool {
			if desc {
				i, j = j, i
			}
			return less(out[i], out[j])
		})
	}
	return out
}

func matches(d *Document, status Status, f Filter) bool {
	if f.Kind != "" && d.Kind != f.Kind {
		return false
	}
	if f.Status != "" && f.Status != "all" && status != f.Status {
		return false
	}
	if f.CounterpartyID != "" && d.CounterpartyID != f.CounterpartyID {
		return false
	}
	if f.Search != "" && !matchesSearch(d, f.Search) {
		return false
	}
	if f.From != nil || f.To != nil {
		at := d.DueDate
		if d.Kind == KindInvoice {
			at = d.IssueDate
		}
		if f.From != nil && at.Before(*f.From) {
			return false
		}
		if f.To != nil && at.After(*f.To) {
			return false
		}
	}
	return true
}

func matchesSearch(d *Document, search string) bool {
	q := strings.ToLower(search)
	if strings.Contains(strings.ToLower(d.DocumentNumber), q) {
		return true
	}
	if strings.Contains(strings.ToLower(d.CounterpartyName), q) {
		return true
	}
	if d.Kind == KindInvoice && strings.Contains(strings.ToLower(d.CounterpartyEmail), q) {
		return true
	}
	return false
}

// lessFunc returns the ascending comparison for key. Equal elements fall
// through to sort.SliceStable's stability guarantee.
func lessFunc(key SortKey) func(a, b *Document) bool {
	switch key {
	case SortByAmount:
		return func(a, b *Document) bool { return a.TotalAmount.LessThan(b.TotalAmount) }
	case SortByDueDate:
		return func(a, b *Document) bool { return a.DueDate.Before(b.DueDate) }
	case SortByCounterparty:
		return func(a, b *Document) bool {
			return strings.ToLower(a.CounterpartyName) < strings.ToLower(b.CounterpartyName)
		}
	case SortByNumber:
		return func(a, b *Document) bool { return a.DocumentNumber < b.DocumentNumber }
	default:
		return func(a, b *Document) bool { return false }
	}
}
