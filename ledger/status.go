/*
status.go - Document status transitions and overdue classification

PURPOSE:
  One generic automaton covers all three document kinds:

    draft ──send──▶ pending ──approve──▶ approved ──(payments)──▶ paid
                       │
                       └──reject(reason)──▶ rejected      (terminal)

    any non-terminal ──cancel──▶ cancelled                (terminal)

  Paid is reached only through RecordPayment (engine.go), never through
  Transition. Terminal statuses (paid, cancelled, rejected) accept no
  further transitions.

OVERDUE:
  Overdue is a derived status, never stored. A pending or approved
  document with a positive balance and a due date in the past classifies
  as overdue at read time. Summarize and Query both go through
  derivedStatus so the two surfaces always agree.

SEE ALSO:
  - engine.go: Transition and RecordPayment entry points
*/
package ledger

import "time"

// =============================================================================
// ACTIONS
// =============================================================================

type Action string

const (
	ActionSend    Action = "send"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionCancel  Action = "cancel"
)

// nextStatus returns the status reached by applying action from current,
// or "" if the transition is not permitted.
func nextStatus(current Status, action Action) Status {
	if current.Terminal() {
		return ""
	}
	switch action {
	case ActionSend:
		if current == StatusDraft {
			return StatusPending
		}
	case ActionApprove:
		if current == StatusPending {
			return StatusApproved
		}
	case ActionReject:
		if current == StatusPending {
			return StatusRejected
		}
	case ActionCancel:
		return StatusCancelled
	}
	return ""
}

// =============================================================================
// DERIVED STATUS
// =============================================================================

// derivedStatus returns the status a reader should see at time now.
// Stored statuses pass through except where the overdue predicate applies.
func derivedStatus(d *Document, now time.Time) Status {
	if overdue(d, now) {
		return StatusOverdue
	}
	return d.Status
}

// overdue is the single overdue predicate: unpaid balance, due date passed,
// and the document is in a payable (non-draft, non-terminal) status.
func overdue(d *Document, now time.Time) bool {
	if d.Status != StatusPending && d.Status != StatusApproved {
		return false
	}
	return d.BalanceAmount.IsPositive() && d.DueDate.Before(now)
}
