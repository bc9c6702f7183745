package handler

import (
	"net/http"

	"github.com/attaboy/walletcenter/internal/service"
)

// GameHandler handles the /api/game routes used by the game client and server.
type GameHandler struct {
	svc *service.GameService
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(svc *service.GameService) *GameHandler {
	return &GameHandler{svc: svc}
}

type checkTokenRequest struct {
	Token string `json:"token"`
}

// CheckUserToken handles POST /api/game/checkUserToken.
func (h *GameHandler) CheckUserToken(w http.ResponseWriter, r *http.Request) {
	var req checkTokenRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, err)
		return
	}

	id, err := h.svc.CheckUserToken(req.Token)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondOK(w, id)
}

type gameBalanceRequest struct {
	PlayerName string `json:"userId"`
	AgentID    int64  `json:"agentId"`
	Currency   string `json:"currency"`
}

// GetBalance handles POST /api/game/getBalance.
func (h *GameHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	var req gameBalanceRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, err)
		return
	}

	res, err := h.svc.Balance(r.Context(), req.AgentID, req.PlayerName, req.Currency)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondOK(w, res)
}

// BetAndSettle handles POST /api/game/betAndSettle.
func (h *GameHandler) BetAndSettle(w http.ResponseWriter, r *http.Request) {
	var in service.BetInput
	if err := DecodeJSON(r, &in); err != nil {
		RespondError(w, err)
		return
	}

	res, err := h.svc.BetAndSettle(r.Context(), in)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondOK(w, res)
}

// CreateTestToken handles GET /api/game/createTestToken (development only).
func (h *GameHandler) CreateTestToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.svc.IssueTestToken()
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondOK(w, map[string]string{"token": token})
}
