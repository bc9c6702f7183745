package handler

import (
	"net/http"

	"github.com/attaboy/walletcenter/internal/domain"
	"github.com/attaboy/walletcenter/internal/infra"
)

// HealthHandler returns a health check endpoint.
func HealthHandler(pool infra.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := infra.HealthCheck(r.Context(), pool); err != nil {
			RespondJSON(w, http.StatusServiceUnavailable, Envelope{
				Code:     domain.DatabaseConnectionError,
				Data:     map[string]string{"status": "unhealthy"},
				ErrorMsg: err.Error(),
			})
			return
		}
		RespondOK(w, map[string]string{"status": "healthy"})
	}
}
