package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/attaboy/walletcenter/internal/domain"
	"github.com/attaboy/walletcenter/internal/guard"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAgents struct {
	agents map[int64]*domain.Agent
	err    error
}

func (s *stubAgents) FindAgent(_ context.Context, id int64) (*domain.Agent, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.agents[id], nil
}

func newTestAuthenticator() *AgentAuthenticator {
	agents := &stubAgents{agents: map[int64]*domain.Agent{
		7: {ID: 7, HMACKey: "agent-7-key", Status: domain.AgentActive},
		8: {ID: 8, HMACKey: "agent-8-key", Status: domain.AgentDisabled},
		9: {ID: 9, HMACKey: "agent-9-key", Status: domain.AgentActive, WhiteIPs: []string{"10.0.0.1"}},
	}}
	return NewAgentAuthenticator(agents, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAgentAuthenticate(t *testing.T) {
	a := newTestAuthenticator()
	body := []byte(`{"playerName":"alice"}`)

	tests := []struct {
		name string
		id   string
		ip   string
		sig  string
		code domain.ErrorCode
	}{
		{"valid", "7", "203.0.113.1", SignBody("agent-7-key", body), domain.Success},
		{"missing id", "", "203.0.113.1", "", domain.AuthenticationFailed},
		{"unknown agent", "99", "203.0.113.1", "", domain.AuthenticationFailed},
		{"disabled agent", "8", "203.0.113.1", SignBody("agent-8-key", body), domain.AgentStatusInvalid},
		{"ip not whitelisted", "9", "203.0.113.1", SignBody("agent-9-key", body), domain.IPNotAllowed},
		{"whitelisted ip", "9", "10.0.0.1", SignBody("agent-9-key", body), domain.Success},
		{"wrong key", "7", "203.0.113.1", SignBody("agent-8-key", body), domain.InvalidSignature},
		{"not hex", "7", "203.0.113.1", "zz", domain.InvalidSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent, err := a.Authenticate(context.Background(), tt.id, tt.ip, tt.sig, body)
			if tt.code == domain.Success {
				require.NoError(t, err)
				assert.NotNil(t, agent)
				return
			}
			appErr, ok := domain.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, appErr.Code)
		})
	}
}

func TestAgentAuthenticate_LockoutAfterSignatureFailures(t *testing.T) {
	a := newTestAuthenticator().WithLockout(guard.NewLockout(2, time.Minute, nil))
	ctx := context.Background()
	body := []byte(`{"amount":"1"}`)

	for i := 0; i < 2; i++ {
		_, err := a.Authenticate(ctx, "7", "127.0.0.1", "deadbeef", body)
		requireCode(t, err, domain.InvalidSignature)
	}

	_, err := a.Authenticate(ctx, "7", "127.0.0.1", SignBody("agent-7-key", body), body)
	requireCode(t, err, domain.AccessDenied)

	agent, err := a.Authenticate(ctx, "9", "10.0.0.1", SignBody("agent-9-key", body), body)
	require.NoError(t, err)
	assert.Equal(t, int64(9), agent.ID)
}

func TestAgentMiddleware(t *testing.T) {
	a := newTestAuthenticator()
	body := `{"playerName":"alice"}`

	var seenBody string
	var seenAgent *domain.Agent
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		seenBody = string(b)
		seenAgent = AgentFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	h := a.Middleware(next)

	t.Run("passes verified agent and body through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/agent/login", strings.NewReader(body))
		req.Header.Set(HeaderAgentID, "7")
		req.Header.Set(HeaderSignature, SignBody("agent-7-key", []byte(body)))
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, body, seenBody)
		require.NotNil(t, seenAgent)
		assert.Equal(t, int64(7), seenAgent.ID)
	})

	t.Run("rejects with envelope", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/agent/login", strings.NewReader(body))
		req.Header.Set(HeaderAgentID, "7")
		req.Header.Set(HeaderSignature, "00")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		var env map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.Equal(t, float64(domain.InvalidSignature), env["code"])
	})

	t.Run("lookup failure is a system error", func(t *testing.T) {
		failing := NewAgentAuthenticator(&stubAgents{err: errors.New("db down")}, slog.New(slog.NewTextHandler(io.Discard, nil)))
		req := httptest.NewRequest(http.MethodPost, "/api/agent/login", strings.NewReader(body))
		req.Header.Set(HeaderAgentID, "7")
		rec := httptest.NewRecorder()

		failing.Middleware(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestRequireRole(t *testing.T) {
	mgr := newTestJWTManager()
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := AuthenticateOperator(mgr)(RequireRole(ResolveRoles()...)(ok))

	viewerToken, err := mgr.GenerateToken(RealmOperator, uuid.New(), "", RoleViewer)
	require.NoError(t, err)
	reconcilerToken, err := mgr.GenerateToken(RealmOperator, uuid.New(), "", RoleReconciler)
	require.NoError(t, err)

	for _, tc := range []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"bad scheme", "Basic abc", http.StatusUnauthorized},
		{"viewer forbidden", "Bearer " + viewerToken, http.StatusForbidden},
		{"reconciler allowed", "Bearer " + reconcilerToken, http.StatusNoContent},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin/reconciliation/x/resolve", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}
