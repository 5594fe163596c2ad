package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/ledger-engine/ledger"
)

// =============================================================================
// TRANSITIONS
// =============================================================================

func TestTransition_HappyPath(t *testing.T) {
	// draft -> send -> pending -> approve -> approved

	e := newTestEngine(t)
	ctx := context.Background()
	doc := mustCreate(t, e, ledger.KindInvoice, invoiceDraft("A", 100))

	sent, err := e.Transition(ctx, doc.ID, ledger.ActionSend, "")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPending, sent.Status)

	approved, err := e.Transition(ctx, doc.ID, ledger.ActionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusApproved, approved.Status)
}

func TestTransition_RejectRecordsReason(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	doc := mustCreate(t, e, ledger.KindReimbursement, invoiceDraft("Jo", 40))
	_, err := e.Transition(ctx, doc.ID, ledger.ActionSend, "")
	require.NoError(t, err)

	rejected, err := e.Transition(ctx, doc.ID, ledger.ActionReject, "missing receipt")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusRejected, rejected.Status)
	assert.Equal(t, "missing receipt", rejected.RejectionReason)
}

func TestTransition_CancelFromAnyNonTerminal(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	for _, setup := range []struct {
		name    string
		actions []ledger.Action
	}{
		{"from draft", nil},
		{"from pending", []ledger.Action{ledger.ActionSend}},
		{"from approved", []ledger.Action{ledger.ActionSend, ledger.ActionApprove}},
	} {
		t.Run(setup.name, func(t *testing.T) {
			doc := mustCreate(t, e, ledger.KindBill, invoiceDraft("V", 10))
			for _, a := range setup.actions {
				_, err := e.Transition(ctx, doc.ID, a, "")
				require.NoError(t, err)
			}
			cancelled, err := e.Transition(ctx, doc.ID, ledger.ActionCancel, "")
			require.NoError(t, err)
			assert.Equal(t, ledger.StatusCancelled, cancelled.Status)
		})
	}
}

func TestTransition_InvalidMovesRejected(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	// Approve straight from draft
	doc := mustCreate(t, e, ledger.KindInvoice, invoiceDraft("A", 10))
	_, err := e.Transition(ctx, doc.ID, ledger.ActionApprove, "")
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)

	var ite *ledger.InvalidTransitionError
	require.ErrorAs(t, err, &ite)
	assert.Equal(t, ledger.StatusDraft, ite.From)
	assert.Equal(t, ledger.ActionApprove, ite.Action)

	// Send twice
	_, err = e.Transition(ctx, doc.ID, ledger.ActionSend, "")
	require.NoError(t, err)
	_, err = e.Transition(ctx, doc.ID, ledger.ActionSend, "")
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)
}

func TestTransition_TerminalStatesAcceptNothing(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	// Paid via payment
	paidDoc := mustCreate(t, e, ledger.KindInvoice, invoiceDraft("A", 10))
	_, err := e.RecordPayment(ctx, paidDoc.ID, dec(10), ledger.MethodCash, "")
	require.NoError(t, err)

	// Cancelled
	cancelledDoc := mustCreate(t, e, ledger.KindInvoice, invoiceDraft("B", 10))
	_, err = e.Transition(ctx, cancelledDoc.ID, ledger.ActionCancel, "")
	require.NoError(t, err)

	for _, id := range []ledger.DocumentID{paidDoc.ID, cancelledDoc.ID} {
		for _, a := range []ledger.Action{
			ledger.ActionSend, ledger.ActionApprove, ledger.ActionReject, ledger.ActionCancel,
		} {
			_, err := e.Transition(ctx, id, a, "")
			assert.ErrorIs(t, err, ledger.ErrInvalidTransition, "%s from terminal", a)
		}
	}
}

func TestTransition_PaidNeverReachableByAction(t *testing.T) {
	// The automaton has no action that yields paid; only RecordPayment does.
	e := newTestEngine(t)
	ctx := context.Background()
	doc := mustCreate(t, e, ledger.KindInvoice, invoiceDraft("A", 10))

	for _, a := range []ledger.Action{"pay", "paid", "mark_paid"} {
		_, err := e.Transition(ctx, doc.ID, a, "")
		assert.ErrorIs(t, err, ledger.ErrInvalidTransition)
	}
}

// =============================================================================
// DERIVED OVERDUE
// =============================================================================

func TestOverdue_DerivedFromDueDateAndBalance(t *testing.T) {
	// GIVEN: A pending invoice due before the engine clock with open balance
	// WHEN: Reading it back
	// THEN: Status reads overdue, while a paid-off or future-due one does not

	e := newTestEngine(t)
	ctx := context.Background()

	overdueDraft := invoiceDraft("Late Co", 100)
	overdueDraft.IssueDate = date(2026, time.January, 1)
	overdueDraft.DueDate = date(2026, time.February, 1) // before testNow (Mar 15)
	lateDoc := mustCreate(t, e, ledger.KindInvoice, overdueDraft)
	_, err := e.Transition(ctx, lateDoc.ID, ledger.ActionSend, "")
	require.NoError(t, err)

	onTime := mustCreate(t, e, ledger.KindInvoice, invoiceDraft("Prompt Co", 100))
	_, err = e.Transition(ctx, onTime.ID, ledger.ActionSend, "")
	require.NoError(t, err)

	gotLate, err := e.Get(lateDoc.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusOverdue, gotLate.Status)

	gotOnTime, err := e.Get(onTime.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPending, gotOnTime.Status)
}

func TestOverdue_ClearedByPayment(t *testing.T) {
	// GIVEN: An overdue invoice
	// WHEN: Paying it in full
	// THEN: It reads paid, not overdue

	e := newTestEngine(t)
	ctx := context.Background()

	draft := invoiceDraft("Late Co", 100)
	draft.IssueDate = date(2026, time.January, 1)
	draft.DueDate = date(2026, time.February, 1)
	doc := mustCreate(t, e, ledger.KindInvoice, draft)
	_, err := e.Transition(ctx, doc.ID, ledger.ActionSend, "")
	require.NoError(t, err)

	got, err := e.Get(doc.ID)
	require.NoError(t, err)
	require.Equal(t, ledger.StatusOverdue, got.Status)

	// Overdue documents still accept payments; the stored status is pending.
	paid, err := e.RecordPayment(ctx, doc.ID, dec(100), ledger.MethodBankTransfer, "")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPaid, paid.Status)
}

func TestOverdue_DraftsNeverOverdue(t *testing.T) {
	// A draft past its due date is stale, not overdue; it was never sent.
	e := newTestEngine(t)

	draft := invoiceDraft("Sleepy Co", 100)
	draft.IssueDate = date(2026, time.January, 1)
	draft.DueDate = date(2026, time.February, 1)
	doc := mustCreate(t, e, ledger.KindInvoice, draft)

	got, err := e.Get(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusDraft, got.Status)
}
