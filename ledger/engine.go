/*
engine.go - The document aggregation engine

PURPOSE:
  The Engine owns the canonical in-memory collection of financial
  documents and is the only code allowed to mutate it. It exposes the
  full document lifecycle:

    Create ──▶ draft ──Transition──▶ pending/approved ──RecordPayment──▶ paid
                                          │
                                          └─ reject / cancel (terminal)

  plus Delete, read access, and (in summary.go/query.go) the derived
  aggregate and filtered views.

OWNERSHIP & CONCURRENCY:
  All state behind one mutex. Operations on the same collection are
  totally ordered; Summarize/Query always observe the most recently
  completed mutation. Callers receive clones, never internal pointers.

COMMIT ORDERING:
  Every mutation commits to the Store before touching in-memory state.
  If the Store rejects the commit, the error is returned wrapped in
  ErrStoreFailed and the collection is unchanged - including the
  document-number sequence, so a failed Create does not burn a number.

SEE ALSO:
  - document.go: Validation and total computation
  - status.go: Transition rules
  - summary.go, query.go: Read models
  - batch.go: Per-item bulk operations
*/
package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	mu    sync.Mutex
	store Store

	// docs is most-recent-first; byID indexes the same pointers.
	docs []*Document
	byID map[DocumentID]*Document

	counterparties map[CounterpartyID]Counterparty

	seq    *sequence
	now    func() time.Time
	nextID func() DocumentID
}

type Option func(*Engine)

// WithClock overrides the engine's time source. Used by tests and by
// callers that need deterministic overdue classification.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides document id generation.
func WithIDGenerator(gen func() DocumentID) Option {
	return func(e *Engine) { e.nextID = gen }
}

// New creates an engine backed by store. Call Load before serving reads.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:          store,
		byID:           make(map[DocumentID]*Document),
		counterparties: make(map[CounterpartyID]Counterparty),
		seq:            newSequence(),
		now:            time.Now,
	}
	var created uint64
	e.nextID = func() DocumentID {
		created++
		return DocumentID(fmt.Sprintf("doc-%d-%d", e.now().UnixNano(), created))
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load pulls the persisted collection and counterparty registry into memory
// and seeds the document-number sequences from the highest suffix per kind.
func (e *Engine) Load(ctx context.Context) error {
	docs, err := e.store.LoadDocuments(ctx)
	if err != nil {
		return fmt.Errorf("load documents: %w", err)
	}
	cps, err := e.store.LoadCounterparties(ctx)
	if err != nil {
		return fmt.Errorf("load counterparties: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.docs = e.docs[:0]
	e.byID = make(map[DocumentID]*Document, len(docs))
	e.seq = newSequence()
	for i := range docs {
		d := docs[i].Clone()
		e.docs = append(e.docs, d)
		e.byID[d.ID] = d
		e.seq.seed(d.Kind, d.DocumentNumber)
	}

	e.counterparties = make(map[CounterpartyID]Counterparty, len(cps))
	for _, cp := range cps {
		e.counterparties[cp.ID] = cp
	}
	return nil
}

// =============================================================================
// CREATE
// =============================================================================

// Create validates the draft, computes totals, assigns the next document
// number, and inserts the new document at the head of the collection.
func (e *Engine) Create(ctx context.Context, kind Kind, draft Draft) (*Document, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := validateDraft(kind, draft); err != nil {
		return nil, err
	}

	// Resolve counterparty details from the registry when only an id is given.
	name, email := draft.CounterpartyName, draft.CounterpartyEmail
	if cp, ok := e.counterparties[draft.CounterpartyID]; ok {
		if name == "" {
			name = cp.Name
		}
		if email == "" {
			email = cp.Email
		}
	}

	currency := draft.Currency
	if currency == "" {
		currency = "USD"
	}

	now := e.now()
	doc := &Document{
		ID:                e.nextID(),
		Kind:              kind,
		CounterpartyID:    draft.CounterpartyID,
		CounterpartyName:  name,
		CounterpartyEmail: email,
		Category:          draft.Category,
		IssueDate:         draft.IssueDate,
		DueDate:           draft.DueDate,
		Currency:          currency,
		LineItems:         append([]LineItem(nil), draft.LineItems...),
		Status:            StatusDraft,
		Notes:             draft.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := computeTotals(doc); err != nil {
		return nil, err
	}
	doc.DocumentNumber = e.seq.peek(kind, now.Year())

	if err := e.store.SaveDocument(ctx, *doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}

	e.seq.issue(kind)
	e.docs = append([]*Document{doc}, e.docs...)
	e.byID[doc.ID] = doc
	return doc.Clone(), nil
}

// =============================================================================
// UPDATE
// =============================================================================

// Update applies a patch and recomputes totals. A document cannot be
// re-billed below what has already been paid, and cancelled/rejected
// documents are frozen. Paid status is re-derived in both directions.
func (e *Engine) Update(ctx context.Context, id DocumentID, patch Patch) (*Document, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	current, ok := e.byID[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	if current.Status == StatusCancelled || current.Status == StatusRejected {
		return nil, &InvalidTransitionError{ID: id, From: current.Status, Action: "update"}
	}

	doc := current.Clone()
	patch.apply(doc)

	if doc.DueDate.Before(doc.IssueDate) {
		return nil, &ValidationError{Field: "due_date", Reason: "due date before issue date"}
	}
	if err := validateLineItems(doc.LineItems); err != nil {
		return nil, err
	}
	if err := computeTotals(doc); err != nil {
		return nil, err
	}
	if doc.BalanceAmount.IsNegative() {
		return nil, &InconsistentStateError{
			ID:     id,
			Total:  doc.TotalAmount,
			Paid:   doc.PaidAmount,
			Reason: "update would reduce total below amount already paid",
		}
	}

	now := e.now()
	// Re-derive paid status: an update can close out a balance or re-open
	// a previously paid document.
	if doc.BalanceAmount.IsZero() && doc.PaidAmount.IsPositive() {
		if doc.Status != StatusPaid {
			doc.Status = StatusPaid
			doc.PaidAt = &now
		}
	} else if doc.Status == StatusPaid {
		doc.Status = StatusApproved
		doc.PaidAt = nil
	}
	doc.UpdatedAt = now

	if err := e.store.SaveDocument(ctx, *doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}

	e.replace(doc)
	return doc.Clone(), nil
}

// =============================================================================
// TRANSITION
// =============================================================================

// Transition applies a lifecycle action (send, approve, reject, cancel).
// Paid is never reachable here; only RecordPayment sets it.
func (e *Engine) Transition(ctx context.Context, id DocumentID, action Action, reason string) (*Document, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	current, ok := e.byID[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}

	next := nextStatus(current.Status, action)
	if next == "" {
		return nil, &InvalidTransitionError{ID: id, From: current.Status, Action: action}
	}

	doc := current.Clone()
	doc.Status = next
	if action == ActionReject {
		doc.RejectionReason = reason
	}
	doc.UpdatedAt = e.now()

	if err := e.store.SaveDocument(ctx, *doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}

	e.replace(doc)
	return doc.Clone(), nil
}

// =============================================================================
// RECORD PAYMENT
// =============================================================================

// RecordPayment appends a payment and recomputes paid/balance. Strict
// overpayment guard: a payment may never drive the balance negative.
// This is the only path by which a document becomes paid.
func (e *Engine) RecordPayment(ctx context.Context, id DocumentID, amount decimal.Decimal, method PaymentMethod, reference string) (*Document, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !amount.IsPositive() {
		return nil, &ValidationError{Field: "amount", Reason: "payment amount must be positive"}
	}
	current, ok := e.byID[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	if current.Status.Terminal() {
		return nil, &InvalidTransitionError{ID: id, From: current.Status, Action: "pay"}
	}
	if amount.GreaterThan(current.BalanceAmount) {
		return nil, &OverpaymentError{ID: id, Balance: current.BalanceAmount, Requested: amount}
	}

	now := e.now()
	if method == "" {
		method = MethodOther
	}

	doc := current.Clone()
	doc.Payments = append(doc.Payments, Payment{
		Amount:    amount,
		Date:      now,
		Method:    method,
		Reference: reference,
	})
	doc.PaidAmount = doc.PaidAmount.Add(amount)
	doc.BalanceAmount = doc.TotalAmount.Sub(doc.PaidAmount)
	if doc.BalanceAmount.IsZero() {
		doc.Status = StatusPaid
		doc.PaidAt = &now
	}
	doc.UpdatedAt = now

	if err := e.store.SaveDocument(ctx, *doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}

	e.replace(doc)
	return doc.Clone(), nil
}

// =============================================================================
// DELETE
// =============================================================================

// Delete removes a document permanently. Documents with recorded payments
// cannot be deleted; received money must be reversed through an explicit
// credit path first. Remaining documents are never renumbered.
func (e *Engine) Delete(ctx context.Context, id DocumentID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	current, ok := e.byID[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	if current.PaidAmount.IsPositive() {
		return &InconsistentStateError{
			ID:     id,
			Total:  current.TotalAmount,
			Paid:   current.PaidAmount,
			Reason: "cannot delete a document with recorded payments",
		}
	}

	if err := e.store.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}

	delete(e.byID, id)
	for i, d := range e.docs {
		if d.ID == id {
			e.docs = append(e.docs[:i], e.docs[i+1:]...)
			break
		}
	}
	return nil
}

// =============================================================================
// READ ACCESS
// =============================================================================

// Get returns a clone of the document, with overdue classification applied.
func (e *Engine) Get(id DocumentID) (*Document, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, ok := e.byID[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	c := d.Clone()
	c.Status = derivedStatus(d, e.now())
	return c, nil
}

// Documents returns clones of the whole collection, most recent first.
func (e *Engine) Documents() []*Document {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	out := make([]*Document, 0, len(e.docs))
	for _, d := range e.docs {
		c := d.Clone()
		c.Status = derivedStatus(d, now)
		out = append(out, c)
	}
	return out
}

// =============================================================================
// COUNTERPARTIES
// =============================================================================

// AddCounterparty registers a counterparty for lookups. The engine does not
// own counterparty lifecycle beyond this registry.
func (e *Engine) AddCounterparty(ctx context.Context, cp Counterparty) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cp.ID == "" {
		return &ValidationError{Field: "id", Reason: "counterparty id is required"}
	}
	if cp.Name == "" {
		return &ValidationError{Field: "name", Reason: "counterparty name is required"}
	}
	if err := e.store.SaveCounterparty(ctx, cp); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}
	e.counterparties[cp.ID] = cp
	return nil
}

// Counterparty looks up a registered counterparty.
func (e *Engine) Counterparty(id CounterpartyID) (Counterparty, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp, ok := e.counterparties[id]
	return cp, ok
}

// Counterparties returns the registry sorted by name.
func (e *Engine) Counterparties() []Counterparty {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Counterparty, 0, len(e.counterparties))
	for _, cp := range e.counterparties {
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// replace swaps the canonical pointer for doc.ID, preserving collection order.
func (e *Engine) replace(doc *Document) {
	e.byID[doc.ID] = doc
	for i, d := range e.docs {
		if d.ID == doc.ID {
			e.docs[i] = doc
			return
		}
	}
}
