package handler

import (
	"net/http"

	"github.com/attaboy/walletcenter/internal/auth"
	"github.com/attaboy/walletcenter/internal/domain"
	"github.com/attaboy/walletcenter/internal/service"
)

// AgentHandler handles the agent-authenticated /api/agent routes.
type AgentHandler struct {
	svc *service.AgentService
}

// NewAgentHandler creates a new AgentHandler.
func NewAgentHandler(svc *service.AgentService) *AgentHandler {
	return &AgentHandler{svc: svc}
}

func agentFrom(r *http.Request) (*domain.Agent, error) {
	agent := auth.AgentFromContext(r.Context())
	if agent == nil {
		return nil, domain.ErrUnauthorized(domain.AuthenticationFailed, "agent not authenticated")
	}
	return agent, nil
}

// Login handles POST /api/agent/login.
func (h *AgentHandler) Login(w http.ResponseWriter, r *http.Request) {
	agent, err := agentFrom(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	var in service.LoginInput
	if err := DecodeJSON(r, &in); err != nil {
		RespondError(w, err)
		return
	}

	res, err := h.svc.Login(r.Context(), agent, in)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondOK(w, res)
}

// Deposit handles POST /api/agent/deposit.
func (h *AgentHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	agent, err := agentFrom(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	var in service.TransferInput
	if err := DecodeJSON(r, &in); err != nil {
		RespondError(w, err)
		return
	}

	res, err := h.svc.Deposit(r.Context(), agent, in)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondOK(w, res)
}

// Withdraw handles POST /api/agent/withdraw.
func (h *AgentHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	agent, err := agentFrom(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	var in service.TransferInput
	if err := DecodeJSON(r, &in); err != nil {
		RespondError(w, err)
		return
	}

	res, err := h.svc.Withdraw(r.Context(), agent, in)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondOK(w, res)
}

type agentBalanceRequest struct {
	PlayerName string `json:"acc"`
	Currency   string `json:"currency"`
}

// Balance handles POST /api/agent/balance.
func (h *AgentHandler) Balance(w http.ResponseWriter, r *http.Request) {
	agent, err := agentFrom(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	var req agentBalanceRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, err)
		return
	}

	res, err := h.svc.PlayerBalance(r.Context(), agent, req.PlayerName, req.Currency)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondOK(w, res)
}
