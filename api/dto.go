/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

DATES:
  Request dates are calendar dates ("2006-01-02"). Response dates echo
  the same format; timestamps are RFC3339.

VALIDATION:
  Structural validation (parseable dates, known kind) happens in the
  handlers; business validation lives in the ledger package.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/ledger-engine/ledger"
)

const dateLayout = "2006-01-02"

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateDocumentRequest creates a document of the given kind.
type CreateDocumentRequest struct {
	Kind              string            `json:"kind"`
	CounterpartyID    string            `json:"counterparty_id"`
	CounterpartyName  string            `json:"counterparty_name"`
	CounterpartyEmail string            `json:"counterparty_email"`
	Category          string            `json:"category"`
	IssueDate         string            `json:"issue_date"`
	DueDate           string            `json:"due_date"`
	Currency          string            `json:"currency"`
	LineItems         []ledger.LineItem `json:"line_items"`
	Notes             string            `json:"notes"`
}

// RecordPaymentRequest applies a payment to a document.
type RecordPaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Reference string          `json:"reference"`
}

// TransitionRequest applies a lifecycle action.
type TransitionRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// BatchPaymentsRequest is a bulk payment run.
type BatchPaymentsRequest struct {
	Payments []ledger.PaymentInstruction `json:"payments"`
}

// BatchTransitionRequest applies one action to many documents.
type BatchTransitionRequest struct {
	IDs    []string `json:"ids"`
	Action string   `json:"action"`
	Reason string   `json:"reason"`
}

// CreateCounterpartyRequest registers a counterparty.
type CreateCounterpartyRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// DocumentDTO represents a document in API responses.
type DocumentDTO struct {
	ID                string            `json:"id"`
	DocumentNumber    string            `json:"document_number"`
	Kind              string            `json:"kind"`
	CounterpartyID    string            `json:"counterparty_id"`
	CounterpartyName  string            `json:"counterparty_name"`
	CounterpartyEmail string            `json:"counterparty_email,omitempty"`
	Category          string            `json:"category,omitempty"`
	IssueDate         string            `json:"issue_date"`
	DueDate           string            `json:"due_date"`
	Currency          string            `json:"currency"`
	LineItems         []ledger.LineItem `json:"line_items"`
	Subtotal          string            `json:"subtotal"`
	TaxAmount         string            `json:"tax_amount"`
	DiscountAmount    string            `json:"discount_amount"`
	TotalAmount       string            `json:"total_amount"`
	PaidAmount        string            `json:"paid_amount"`
	BalanceAmount     string            `json:"balance_amount"`
	Status            string            `json:"status"`
	Payments          []PaymentDTO      `json:"payments"`
	Notes             string            `json:"notes,omitempty"`
	RejectionReason   string            `json:"rejection_reason,omitempty"`
	PaidAt            string            `json:"paid_at,omitempty"`
	CreatedAt         string            `json:"created_at"`
	UpdatedAt         string            `json:"updated_at"`
}

// PaymentDTO represents one applied payment.
type PaymentDTO struct {
	Amount    string `json:"amount"`
	Date      string `json:"date"`
	Method    string `json:"method"`
	Reference string `json:"reference,omitempty"`
}

// BatchResultDTO is the per-item outcome of a bulk operation.
type BatchResultDTO struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// CounterpartyDTO represents a counterparty in API responses.
type CounterpartyDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// =============================================================================
// MAPPING
// =============================================================================

func toDocumentDTO(d *ledger.Document) DocumentDTO {
	dto := DocumentDTO{
		ID:                string(d.ID),
		DocumentNumber:    d.DocumentNumber,
		Kind:              string(d.Kind),
		CounterpartyID:    string(d.CounterpartyID),
		CounterpartyName:  d.CounterpartyName,
		CounterpartyEmail: d.CounterpartyEmail,
		Category:          d.Category,
		IssueDate:         d.IssueDate.Format(dateLayout),
		DueDate:           d.DueDate.Format(dateLayout),
		Currency:          d.Currency,
		LineItems:         d.LineItems,
		Subtotal:          d.Subtotal.StringFixed(2),
		TaxAmount:         d.TaxAmount.StringFixed(2),
		DiscountAmount:    d.DiscountAmount.StringFixed(2),
		TotalAmount:       d.TotalAmount.StringFixed(2),
		PaidAmount:        d.PaidAmount.StringFixed(2),
		BalanceAmount:     d.BalanceAmount.StringFixed(2),
		Status:            string(d.Status),
		Payments:          make([]PaymentDTO, 0, len(d.Payments)),
		Notes:             d.Notes,
		RejectionReason:   d.RejectionReason,
		CreatedAt:         d.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         d.UpdatedAt.Format(time.RFC3339),
	}
	for _, p := range d.Payments {
		dto.Payments = append(dto.Payments, PaymentDTO{
			Amount:    p.Amount.StringFixed(2),
			Date:      p.Date.Format(time.RFC3339),
			Method:    string(p.Method),
			Reference: p.Reference,
		})
	}
	if d.PaidAt != nil {
		dto.PaidAt = d.PaidAt.Format(time.RFC3339)
	}
	return dto
}

func toDocumentDTOs(docs []*ledger.Document) []DocumentDTO {
	out := make([]DocumentDTO, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentDTO(d))
	}
	return out
}

func toBatchResultDTOs(results []ledger.BatchResult) []BatchResultDTO {
	out := make([]BatchResultDTO, 0, len(results))
	for _, r := range results {
		dto := BatchResultDTO{ID: string(r.ID), OK: r.OK()}
		if r.Err != nil {
			dto.Error = r.Err.Error()
		}
		out = append(out, dto)
	}
	return out
}
