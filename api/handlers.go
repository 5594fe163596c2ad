/*
handlers.go - HTTP API handlers for the ledger engine

PURPOSE:
  Exposes the document aggregation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates everything else
  to the ledger package.

ENDPOINTS:
  Documents:
    GET    /api/documents                  Filtered/sorted list
    POST   /api/documents                  Create (kind in body)
    GET    /api/documents/{id}             Get one
    PUT    /api/documents/{id}             Patch mutable fields
    DELETE /api/documents/{id}             Hard delete
    POST   /api/documents/{id}/payments    Record a payment
    POST   /api/documents/{id}/transitions Apply send/approve/reject/cancel
    POST   /api/documents/payments/batch   Bulk payments, per-item outcomes
    POST   /api/documents/transitions/batch

  Aggregates:
    GET    /api/summary                    Summary (?kind=)
    GET    /api/export/csv                 CSV of the current view

  Counterparties:
    GET    /api/counterparties
    POST   /api/counterparties

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, immutable fields, malformed input
  - 404: Document not found
  - 409: Conflict (overpayment, invalid transition, balance invariant)
  - 500: Store failures, internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/warp/ledger-engine/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *ledger.Engine
	Log    zerolog.Logger
}

// NewHandler creates a new handler around the engine.
func NewHandler(engine *ledger.Engine, log zerolog.Logger) *Handler {
	return &Handler{Engine: engine, Log: log}
}

// =============================================================================
// DOCUMENT HANDLERS
// =============================================================================

func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	filter, sortSpec, err := parseQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	docs := h.Engine.Query(filter, sortSpec)
	respondJSON(w, http.StatusOK, toDocumentDTOs(docs))
}

func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	issue, err := time.Parse(dateLayout, req.IssueDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "issue_date must be YYYY-MM-DD")
		return
	}
	due, err := time.Parse(dateLayout, req.DueDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "due_date must be YYYY-MM-DD")
		return
	}

	doc, err := h.Engine.Create(r.Context(), ledger.Kind(req.Kind), ledger.Draft{
		CounterpartyID:    ledger.CounterpartyID(req.CounterpartyID),
		CounterpartyName:  req.CounterpartyName,
		CounterpartyEmail: req.CounterpartyEmail,
		Category:          req.Category,
		IssueDate:         issue,
		DueDate:           due,
		Currency:          req.Currency,
		LineItems:         req.LineItems,
		Notes:             req.Notes,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toDocumentDTO(doc))
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := ledger.DocumentID(chi.URLParam(r, "id"))
	doc, err := h.Engine.Get(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toDocumentDTO(doc))
}

func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	id := ledger.DocumentID(chi.URLParam(r, "id"))

	var fields map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	patch, err := ledger.ParsePatch(fields)
	if err != nil {
		h.writeError(w, err)
		return
	}

	doc, err := h.Engine.Update(r.Context(), id, patch)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toDocumentDTO(doc))
}

func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := ledger.DocumentID(chi.URLParam(r, "id"))
	if err := h.Engine.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PAYMENT & TRANSITION HANDLERS
// =============================================================================

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id := ledger.DocumentID(chi.URLParam(r, "id"))

	var req RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	doc, err := h.Engine.RecordPayment(r.Context(), id, req.Amount,
		ledger.PaymentMethod(req.Method), req.Reference)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toDocumentDTO(doc))
}

func (h *Handler) TransitionDocument(w http.ResponseWriter, r *http.Request) {
	id := ledger.DocumentID(chi.URLParam(r, "id"))

	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	doc, err := h.Engine.Transition(r.Context(), id, ledger.Action(req.Action), req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toDocumentDTO(doc))
}

func (h *Handler) BatchPayments(w http.ResponseWriter, r *http.Request) {
	var req BatchPaymentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	results := h.Engine.RecordPayments(r.Context(), req.Payments)
	respondJSON(w, http.StatusOK, toBatchResultDTOs(results))
}

func (h *Handler) BatchTransitions(w http.ResponseWriter, r *http.Request) {
	var req BatchTransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	ids := make([]ledger.DocumentID, 0, len(req.IDs))
	for _, id := range req.IDs {
		ids = append(ids, ledger.DocumentID(id))
	}
	results := h.Engine.TransitionAll(r.Context(), ids, ledger.Action(req.Action), req.Reason)
	respondJSON(w, http.StatusOK, toBatchResultDTOs(results))
}

// =============================================================================
// AGGREGATE HANDLERS
// =============================================================================

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	kind := ledger.Kind(r.URL.Query().Get("kind"))
	if kind != "" && !kind.Valid() {
		respondError(w, http.StatusBadRequest, "unknown kind "+string(kind))
		return
	}
	respondJSON(w, http.StatusOK, h.Engine.Summarize(kind))
}

func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	filter, sortSpec, err := parseQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	docs := h.Engine.Query(filter, sortSpec)

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="documents.csv"`)
	if err := ledger.WriteCSV(w, docs); err != nil {
		h.Log.Error().Err(err).Msg("csv export failed")
	}
}

// =============================================================================
// COUNTERPARTY HANDLERS
// =============================================================================

func (h *Handler) ListCounterparties(w http.ResponseWriter, _ *http.Request) {
	cps := h.Engine.Counterparties()
	out := make([]CounterpartyDTO, 0, len(cps))
	for _, cp := range cps {
		out = append(out, CounterpartyDTO{
			ID: string(cp.ID), Name: cp.Name, Email: cp.Email, Role: cp.Role,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateCounterparty(w http.ResponseWriter, r *http.Request) {
	var req CreateCounterpartyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	cp := ledger.Counterparty{
		ID: ledger.CounterpartyID(req.ID), Name: req.Name, Email: req.Email, Role: req.Role,
	}
	if err := h.Engine.AddCounterparty(r.Context(), cp); err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, CounterpartyDTO(req))
}

// =============================================================================
// HELPERS
// =============================================================================

// parseQuery builds the ledger filter/sort from URL query parameters.
func parseQuery(r *http.Request) (ledger.Filter, ledger.Sort, error) {
	q := r.URL.Query()

	f := ledger.Filter{
		Search:         q.Get("search"),
		Status:         ledger.Status(q.Get("status")),
		CounterpartyID: ledger.CounterpartyID(q.Get("counterparty")),
		Kind:           ledger.Kind(q.Get("kind")),
	}
	if f.Kind != "" && !f.Kind.Valid() {
		return f, ledger.Sort{}, errors.New("unknown kind " + string(f.Kind))
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return f, ledger.Sort{}, errors.New("from must be YYYY-MM-DD")
		}
		f.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return f, ledger.Sort{}, errors.New("to must be YYYY-MM-DD")
		}
		f.To = &t
	}

	s := ledger.Sort{Key: ledger.SortKey(q.Get("sort")), Dir: ledger.SortAsc}
	if q.Get("dir") == "desc" {
		s.Dir = ledger.SortDesc
	}
	return f, s, nil
}

// writeError maps ledger errors to HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case ledger.IsNotFound(err):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrValidation), errors.Is(err, ledger.ErrImmutableField):
		respondError(w, http.StatusBadRequest, err.Error())
	case ledger.IsClientError(err):
		// Overpayment, invalid transition, balance invariant: state conflicts.
		respondError(w, http.StatusConflict, err.Error())
	default:
		h.Log.Error().Err(err).Msg("internal error")
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
