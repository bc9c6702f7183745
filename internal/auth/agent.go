package auth

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/attaboy/walletcenter/internal/domain"
	"github.com/attaboy/walletcenter/internal/guard"
)

const (
	HeaderAgentID   = "X-Agent-Id"
	HeaderSignature = "X-Signature"

	maxSignedBody = 1 << 20
)

// AgentLookup resolves an agent by id. A missing agent returns (nil, nil).
type AgentLookup interface {
	FindAgent(ctx context.Context, agentID int64) (*domain.Agent, error)
}

// AgentAuthenticator verifies agent API calls: status, IP whitelist, then body HMAC.
type AgentAuthenticator struct {
	agents  AgentLookup
	lockout *guard.Lockout
	logger  *slog.Logger
}

// NewAgentAuthenticator creates an authenticator backed by agents.
func NewAgentAuthenticator(agents AgentLookup, logger *slog.Logger) *AgentAuthenticator {
	return &AgentAuthenticator{agents: agents, logger: logger}
}

// WithLockout blocks an agent id after repeated signature failures.
func (a *AgentAuthenticator) WithLockout(l *guard.Lockout) *AgentAuthenticator {
	a.lockout = l
	return a
}

// Middleware attaches the verified agent to the request context.
func (a *AgentAuthenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxSignedBody))
		if err != nil {
			writeAuthError(w, http.StatusBadRequest, domain.InvalidParameter, "unreadable body")
			return
		}
		r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		agent, err := a.Authenticate(r.Context(), r.Header.Get(HeaderAgentID), clientIP(r), r.Header.Get(HeaderSignature), body)
		if err != nil {
			if appErr, ok := domain.AsAppError(err); ok {
				a.logger.Warn("agent request rejected",
					"agent_id", r.Header.Get(HeaderAgentID),
					"code", int(appErr.Code),
					"path", r.URL.Path,
				)
				writeAuthError(w, appErr.Status, appErr.Code, appErr.Message)
				return
			}
			a.logger.Error("agent lookup failed", "error", err)
			writeAuthError(w, http.StatusInternalServerError, domain.DatabaseExecutionError, domain.Message(domain.DatabaseExecutionError))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithAgent(r.Context(), agent)))
	})
}

// Authenticate runs the checks in order and returns the agent on success.
func (a *AgentAuthenticator) Authenticate(ctx context.Context, rawID, ip, signature string, body []byte) (*domain.Agent, error) {
	agentID, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
	if err != nil || agentID <= 0 {
		return nil, domain.ErrUnauthorized(domain.AuthenticationFailed, "missing or invalid agent id")
	}

	agent, err := a.agents.FindAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, domain.ErrUnauthorized(domain.AuthenticationFailed, "unknown agent")
	}
	if !agent.Active() {
		return nil, domain.ErrForbidden(domain.AgentStatusInvalid, "agent is disabled")
	}
	if !agent.AllowsIP(ip) {
		return nil, domain.ErrForbidden(domain.IPNotAllowed, "ip "+ip+" not allowed")
	}

	lockKey := strconv.FormatInt(agentID, 10)
	if a.lockout != nil {
		if res := a.lockout.Check(lockKey); !res.Allowed {
			return nil, domain.ErrForbidden(domain.AccessDenied, res.Reason)
		}
	}
	if !VerifyBodySignature(agent.HMACKey, body, signature) {
		if a.lockout != nil {
			a.lockout.RecordFailure(lockKey)
		}
		return nil, domain.ErrUnauthorized(domain.InvalidSignature, "body signature mismatch")
	}
	if a.lockout != nil {
		a.lockout.Reset(lockKey)
	}
	return agent, nil
}

// SignBody returns the hex HMAC-SHA256 of body under key.
func SignBody(key string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyBodySignature compares signature against SignBody in constant time.
func VerifyBodySignature(key string, body []byte, signature string) bool {
	if key == "" || signature == "" {
		return false
	}
	got, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(signature)))
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(SignBody(key, body))
	return hmac.Equal(got, want)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
