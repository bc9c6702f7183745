package handler

import (
	"net/http"

	"github.com/attaboy/walletcenter/internal/domain"
	"github.com/attaboy/walletcenter/internal/ledger"
	"github.com/go-chi/chi/v5"
)

// AuditHandler serves ledger parity audits to operators.
type AuditHandler struct {
	auditor *ledger.Auditor
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(auditor *ledger.Auditor) *AuditHandler {
	return &AuditHandler{auditor: auditor}
}

// Audit handles GET /admin/wallets/{kind}/{key}/audit.
func (h *AuditHandler) Audit(w http.ResponseWriter, r *http.Request) {
	kind := domain.EntityKind(chi.URLParam(r, "kind"))
	if kind != domain.EntityAgent && kind != domain.EntityPlayer {
		RespondError(w, domain.ErrValidation("kind must be agent or player"))
		return
	}
	key := chi.URLParam(r, "key")
	if key == "" {
		RespondError(w, domain.ErrValidation("wallet key is required"))
		return
	}

	res, err := h.auditor.Audit(r.Context(), domain.EntityKey{Kind: kind, ID: key})
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondOK(w, res)
}
