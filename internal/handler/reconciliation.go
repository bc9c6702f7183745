package handler

import (
	"net/http"
	"strconv"

	"github.com/attaboy/walletcenter/internal/auth"
	"github.com/attaboy/walletcenter/internal/domain"
	"github.com/attaboy/walletcenter/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ReconciliationHandler handles the operator /admin/reconciliation routes.
type ReconciliationHandler struct {
	svc *service.ReconciliationService
}

// NewReconciliationHandler creates a new ReconciliationHandler.
func NewReconciliationHandler(svc *service.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{svc: svc}
}

// List handles GET /admin/reconciliation?kind=&status=&limit=.
func (h *ReconciliationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.ReconciliationFilter{
		Kind:   domain.ReconciliationKind(q.Get("kind")),
		Status: domain.ReconciliationStatus(q.Get("status")),
	}
	switch filter.Kind {
	case "", domain.KindDualFailure, domain.KindDeferredWin:
	default:
		RespondError(w, domain.ErrValidation("unknown kind: "+string(filter.Kind)))
		return
	}
	switch filter.Status {
	case "", domain.ReconciliationPending, domain.ReconciliationResolved:
	default:
		RespondError(w, domain.ErrValidation("unknown status: "+string(filter.Status)))
		return
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			RespondError(w, domain.ErrValidation("limit must be a positive integer"))
			return
		}
		filter.Limit = n
	}

	items, err := h.svc.List(r.Context(), filter)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondOK(w, map[string]interface{}{"items": items})
}

// Get handles GET /admin/reconciliation/{id}.
func (h *ReconciliationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid id"))
		return
	}

	detail, err := h.svc.Get(r.Context(), id)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondOK(w, detail)
}

// Resolve handles POST /admin/reconciliation/{id}/resolve.
func (h *ReconciliationHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid id"))
		return
	}

	operator := "operator"
	if claims := auth.ClaimsFromContext(r.Context()); claims != nil && claims.Email != "" {
		operator = claims.Email
	}

	item, err := h.svc.Resolve(r.Context(), id, operator)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondOK(w, item)
}
