package ledger_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/ledger/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var testNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// newTestEngine returns an engine on a fresh memory store with a fixed clock
// and deterministic ids (doc-1, doc-2, ...).
func newTestEngine(t *testing.T) *ledger.Engine {
	t.Helper()
	var n int
	e := ledger.New(store.NewMemory(),
		ledger.WithClock(func() time.Time { return testNow }),
		ledger.WithIDGenerator(func() ledger.DocumentID {
			n++
			return ledger.DocumentID(fmt.Sprintf("doc-%d", n))
		}),
	)
	require.NoError(t, e.Load(context.Background()))
	return e
}

func item(qty, price float64) ledger.LineItem {
	return ledger.LineItem{Description: "work", Quantity: dec(qty), UnitPrice: dec(price)}
}

func invoiceDraft(name string, total float64) ledger.Draft {
	return ledger.Draft{
		CounterpartyID:   ledger.CounterpartyID("cp-" + name),
		CounterpartyName: name,
		IssueDate:        date(2026, time.March, 1),
		DueDate:          date(2026, time.April, 1),
		Currency:         "USD",
		LineItems:        []ledger.LineItem{item(1, total)},
	}
}

func mustCreate(t *testing.T, e *ledger.Engine, kind ledger.Kind, d ledger.Draft) *ledger.Document {
	t.Helper()
	doc, err := e.Create(context.Background(), kind, d)
	require.NoError(t, err)
	return doc
}

// =============================================================================
// CREATE
// =============================================================================

func TestCreate_RoundTrip(t *testing.T) {
	// GIVEN: An empty engine
	// WHEN: Creating an invoice and querying with no filters
	// THEN: The collection contains the created document with computed totals

	e := newTestEngine(t)
	created := mustCreate(t, e, ledger.KindInvoice, invoiceDraft("Acme Corp", 150))

	docs := e.Query(ledger.Filter{}, ledger.Sort{})
	require.Len(t, docs, 1)
	got := docs[0]

	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Acme Corp", got.CounterpartyName)
	assert.Equal(t, ledger.StatusDraft, got.Status)
	assert.True(t, got.TotalAmount.Equal(dec(150)), "total %s", got.TotalAmount)
	assert.True(t, got.BalanceAmount.Equal(dec(150)))
	assert.True(t, got.PaidAmount.IsZero())
	assert.Empty(t, got.Payments)
}

func TestCreate_DocumentNumbersIncreasePerKind(t *testing.T) {
	// GIVEN: Three invoices and a bill created in sequence
	// WHEN: Inspecting document numbers
	// THEN: Invoice suffixes strictly increase and the bill has its own sequence

	e := newTestEngine(t)
	a := mustCreate(t, e, ledger.KindInvoice, invoiceDraft("A", 10))
	b := mustCreate(t, e, ledger.KindInvoice, invoiceDraft("B", 20))
	c := mustCreate(t, e, ledger.KindInvoice, invoiceDraft("C", 30))
	bill := mustCreate(t, e, ledger.KindBill, invoiceDraft("V", 40))

	assert.Equal(t, "INV-2026-001", a.DocumentNumber)
	assert.Equal(t, "INV-2026-002", b.DocumentNumber)
	assert.Equal(t, "INV-2026-003", c.DocumentNumber)
	assert.Equal(t, "BILL-2026-001", bill.DocumentNumber)
}

func TestCreate_NumbersNotReusedAfterDelete(t *testing.T) {
	// GIVEN: Two invoices, the most recent deleted
	// WHEN: Creating another invoice
	// THEN: The deleted number is not reused

	e := newTestEngine(t)
	ctx := context.Background()

	mustCreate(t, e, ledger.KindInvoice, invoiceDraft("A", 10))
	b := mustCreate(t, e, ledger.KindInvoice, invoiceDraft("B", 20))
	require.NoError(t, e.Delete(ctx, b.ID))

	c := mustCreate(t, e, ledger.KindInvoice, invoiceDraft("C", 30))
	assert.Equal(t, "INV-2026-003", c.DocumentNumber)
}

func TestCreate_ValidationErrors(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		draft ledger.Draft
	}{
		{"due before issue", func() ledger.Draft {
			d := invoiceDraft("A", 10)
			d.DueDate = d.IssueDate.AddDate(0, 0, -1)
			return d
		}()},
		{"no line items", func() ledger.Draft {
			d := invoiceDraft("A", 10)
			d.LineItems = nil
			return d
		}()},
		{"negative quantity", func() ledger.Draft {
			d := invoiceDraft("A", 10)
			d.LineItems = []ledger.LineItem{item(-1, 10)}
			return d
		}()},
		{"negative price", func() ledger.Draft {
			d := invoiceDraft("A", 10)
			d.LineItems = []ledger.LineItem{item(1, -10)}
			return d
		}()},
		{"missing counterparty", func() ledger.Draft {
			d := invoiceDraft("A", 10)
			d.CounterpartyID = ""
			d.CounterpartyName = ""
			return d
		}()},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Create(ctx, ledger.KindInvoice, tc.draft)
			assert.ErrorIs(t, err, ledger.ErrValidation)
		})
	}

	// Nothing was inserted
	assert.Empty(t, e.Query(ledger.Filter{}, ledger.Sort{}))
}

func TestCreate_ResolvesCounterpartyFromRegistry(t *testing.T) {
	// GIVEN: A registered counterparty
	// WHEN: Creating a document with only the counterparty id
	// THEN: Name and email come from the registry

	e := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, e.AddCounterparty(ctx, ledger.Counterparty{
		ID: "cp-1", Name: "Acme Corp", Email: "billing@acme.test", Role: "customer",
	}))

	d := invoiceDraft("", 10)
	d.CounterpartyID = "cp-1"
	d.CounterpartyName = ""
	doc := mustCreate(t, e, ledger.KindInvoice, d)

	assert.Equal(t, "Acme Corp", doc.CounterpartyName)
	assert.Equal(t, "billing@acme.test", doc.CounterpartyEmail)
}

// =============================================================================
// STORE COMMIT ORDERING
// =============================================================================

// failingStore rejects every write.
type failingStore struct{ *store.Memory }

var errBoom = errors.New("boom")

func (f failingStore) SaveDocument(context.Context, ledger.Document) error { return errBoom }
func (f failingStore) DeleteDocument(context.Context, ledger.DocumentID) error {
	return errBoom
}

func TestCreate_FailedCommitLeavesStateUnchanged(t *testing.T) {
	// GIVEN: A store that rejects all writes
	// WHEN: Create fails
	// THEN: The collection is empty and the document number is not burned

	fs := failingStore{store.NewMemory()}
	e := ledger.New(fs, ledger.WithClock(func() time.Time { return testNow }))
	require.NoError(t, e.Load(context.Background()))

	_, err := e.Create(context.Background(), ledger.KindInvoice, invoiceDraft("A", 10))
	require.ErrorIs(t, err, ledger.ErrStoreFailed)
	assert.Empty(t, e.Query(ledger.Filter{}, ledger.Sort{}))
}

func TestLoad_SeedsSequenceFromHighestSuffix(t *testing.T) {
	// GIVEN: A store holding INV-2025-007 only
	// WHEN: A fresh engine loads and creates an invoice
	// THEN: The new suffix continues past 007 even though only one doc exists

	mem := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.SaveDocument(ctx, ledger.Document{
		ID:             "doc-old",
		DocumentNumber: "INV-2025-007",
		Kind:           ledger.KindInvoice,
		Status:         ledger.StatusPaid,
		IssueDate:      date(2025, time.June, 1),
		DueDate:        date(2025, time.July, 1),
		CreatedAt:      date(2025, time.June, 1),
		UpdatedAt:      date(2025, time.June, 1),
	}))

	e := ledger.New(mem, ledger.WithClock(func() time.Time { return testNow }))
	require.NoError(t, e.Load(ctx))

	doc := mustCreate(t, e, ledger.KindInvoice, invoiceDraft("A", 10))
	assert.Equal(t, "INV-2026-008", doc.DocumentNumber)
}

// =============================================================================
// UPDATE
// =============================================================================

func TestUpdate_RecomputesTotals(t *testing.T) {
	// GIVEN: An invoice for 100
	// WHEN: Patching line items to 2 x 100
	// THEN: Totals and balance recompute

	e := newTestEngine(t)
	doc := mustCreate(t, e, ledger.KindInvoice, invoiceDraft("A", 100))

	items := []ledger.LineItem{item(2, 100)}
	updated, err := e.Update(context.Background(), doc.ID, ledger.Patch{LineItems: &items})
	require.NoError(t, err)

	assert.True(t, updated.TotalAmount.Equal(dec(200)), "total %s", updated.TotalAmount)
	assert.True(t, updated.BalanceAmount.Equal(dec(200)))
}

func TestUpdate_NotFound(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Update(context.Background(), "missing", ledger.Patch{})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	var nf *ledger.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestUpdate_RejectsUnderBillingBelowPaid(t *testing.T) {
	// GIVEN: An invoice for 200 with 150 already paid
	// WHEN: Patching line items down to a 100 total
	// THEN: InconsistentStateError, document unchanged

	e := newTestEngine(t)
	ctx := context.Background()
	doc := mustCreate(t, e, ledger.KindInvoice, invoiceDraft("A", 200))
	_, err := e.RecordPayment(ctx, doc.ID, dec(150), ledger.MethodBankTransfer, "")
	require.NoError(t, err)

	items := []ledger.LineItem{item(1, 100)}
	_, err = e.Update(ctx, doc.ID, ledger.Patch{LineItems: &items})
	assert.ErrorIs(t, err, ledger.ErrInconsistentState)

	got, err := e.Get(doc.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalAmount.Equal(dec(200)))
	assert.True(t, got.PaidAmount.Equal(dec(150)))
}

func TestUpdate_RederivesPaidStatusBothWays(t *testing.T) {
	// GIVEN: A fully paid invoice for 100
	// WHEN: Raising the total to 150, then lowering it back to 100
	// THEN: Status leaves paid when a balance re-opens and returns when it closes

	e := newTestEngine(t)
	ctx := context.Background()
	doc := mustCreate(t, e, ledger.KindInvoice, invoiceDraft("A", 100))
	paid, err := e.RecordPayment(ctx, doc.ID, dec(100), ledger.MethodCard, "")
	require.NoError(t, err)
	require.Equal(t, ledger.StatusPaid, paid.Status)

	items := []ledger.LineItem{item(1, 150)}
	reopened, err := e.Update(ctx, doc.ID, ledger.Patch{LineItems: &items})
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusApproved, reopened.Status)
	assert.True(t, reopened.BalanceAmount.Equal(dec(50)))
	assert.Nil(t, reopened.PaidAt)

	items = []ledger.LineItem{item(1, 100)}
	closed, err := e.Update(ctx, doc.ID, ledger.Patch{LineItems: &items})
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPaid, closed.Status)
	assert.True(t, closed.BalanceAmount.IsZero())
	assert.NotNil(t, closed.PaidAt)
}

func TestUpdate_FrozenTerminalStates(t *testing.T) {
	// GIVEN: A cancelled invoice
	// WHEN: Patching it
	// THEN: InvalidTransitionError

	e := newTestEngine(t)
	ctx := context.Background()
	doc := mustCreate(t, e, ledger.KindInvoice, invoiceDraft("A", 100))
	_, err := e.Transition(ctx, doc.ID, ledger.ActionCancel, "")
	require.NoError(t, err)

	notes := "late"
	_, err = e.Update(ctx, doc.ID, ledger.Patch{Notes: &notes})
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)
}

// =============================================================================
// DELETE
// =============================================================================

func TestDelete_RemovesDocument(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	doc := mustCreate(t, e, ledger.KindInvoice, invoiceDraft("A", 100))

	require.NoError(t, e.Delete(ctx, doc.ID))
	_, err := e.Get(doc.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	assert.ErrorIs(t, e.Delete(ctx, doc.ID), ledger.ErrNotFound)
}

func TestDelete_ForbiddenAfterPartialPayment(t *testing.T) {
	// GIVEN: An invoice with a partial payment
	// WHEN: Deleting it
	// THEN: InconsistentStateError; received money needs an explicit credit path

	e := newTestEngine(t)
	ctx := context.Background()
	doc := mustCreate(t, e, ledger.KindInvoice, invoiceDraft("A", 100))
	_, err := e.RecordPayment(ctx, doc.ID, dec(40), ledger.MethodCash, "")
	require.NoError(t, err)

	err = e.Delete(ctx, doc.ID)
	assert.ErrorIs(t, err, ledger.ErrInconsistentState)

	got, err := e.Get(doc.ID)
	require.NoError(t, err)
	assert.True(t, got.PaidAmount.Equal(dec(40)))
}

// =============================================================================
// PATCH PARSING
// =============================================================================

func TestParsePatch_RejectsImmutableFields(t *testing.T) {
	for _, field := range []string{
		"id", "document_number", "kind", "currency", "payments",
		"paid_amount", "balance_amount", "total_amount", "status",
	} {
		t.Run(field, func(t *testing.T) {
			_, err := ledger.ParsePatch(map[string]json.RawMessage{field: json.RawMessage(`"x"`)})
			assert.ErrorIs(t, err, ledger.ErrImmutableField)
			var ife *ledger.ImmutableFieldError
			require.ErrorAs(t, err, &ife)
			assert.Equal(t, field, ife.Field)
		})
	}
}

func TestParsePatch_AcceptsMutableFields(t *testing.T) {
	p, err := ledger.ParsePatch(map[string]json.RawMessage{
		"counterparty_name": json.RawMessage(`"Acme"`),
		"due_date":          json.RawMessage(`"2026-05-01"`),
		"notes":             json.RawMessage(`"net 30"`),
	})
	require.NoError(t, err)
	require.NotNil(t, p.CounterpartyName)
	assert.Equal(t, "Acme", *p.CounterpartyName)
	require.NotNil(t, p.DueDate)
	assert.Equal(t, date(2026, time.May, 1), *p.DueDate)
	require.NotNil(t, p.Notes)
}

func TestParsePatch_UnknownField(t *testing.T) {
	_, err := ledger.ParsePatch(map[string]json.RawMessage{"colour": json.RawMessage(`"red"`)})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}
