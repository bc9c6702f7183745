package app

import (
	"log/slog"
	"time"

	"github.com/attaboy/walletcenter/internal/auth"
	"github.com/attaboy/walletcenter/internal/currency"
	"github.com/attaboy/walletcenter/internal/guard"
	"github.com/attaboy/walletcenter/internal/handler"
	"github.com/attaboy/walletcenter/internal/infra"
	"github.com/attaboy/walletcenter/internal/ledger"
	"github.com/attaboy/walletcenter/internal/repository"
	"github.com/attaboy/walletcenter/internal/service"
	"github.com/attaboy/walletcenter/internal/transfer"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps holds all dependencies needed by NewRouter.
type RouterDeps struct {
	Pool   *pgxpool.Pool
	Store  repository.WalletStore
	Config *infra.Config
	JWTMgr *auth.JWTManager
	Tokens *auth.TokenSigner
	Rates  *currency.Converter
	// Orders is nil when the idempotency guard is disabled.
	Orders *guard.IdempotencyGuard
	Logger *slog.Logger
}

// NewRouter assembles the chi.Router with all routes and middleware.
func NewRouter(deps RouterDeps) chi.Router {
	pool := deps.Pool
	cfg := deps.Config
	logger := deps.Logger

	// Repositories
	agentRepo := repository.NewAgentRepository()
	playerRepo := repository.NewPlayerRepository()
	ledgerRepo := repository.NewLedgerRepository()
	outboxRepo := repository.NewOutboxRepository()
	reconRepo := repository.NewReconciliationRepository()
	agents := repository.NewAgentLookup(agentRepo, pool)

	// Orchestrator
	orch := transfer.NewOrchestrator(
		deps.Store,
		transfer.NewPgRecorder(pool, reconRepo, outboxRepo),
		transfer.NewPgAccounts(pool, playerRepo, outboxRepo),
		logger,
	)
	if deps.Orders != nil {
		orch = orch.WithIdempotencyGuard(deps.Orders)
	}

	// Services
	agentSvc := service.NewAgentService(orch, deps.Store, deps.Rates, deps.Tokens, cfg.GameURL, logger)
	gameSvc := service.NewGameService(orch, deps.Store, agents, deps.Rates, deps.Tokens, logger)
	reconSvc := service.NewReconciliationService(pool, reconRepo, ledgerRepo, outboxRepo, logger)

	// Agent request guards
	lockout := guard.NewLockout(cfg.SignatureMaxFailure, cfg.SignatureLockout, time.Now)
	agentAuth := auth.NewAgentAuthenticator(agents, logger).WithLockout(lockout)
	limiter := guard.NewRateLimiter(cfg.AgentRateLimit, cfg.AgentRateWindow, time.Now)

	// Handlers
	agentHandler := handler.NewAgentHandler(agentSvc)
	gameHandler := handler.NewGameHandler(gameSvc)
	reconHandler := handler.NewReconciliationHandler(reconSvc)
	auditHandler := handler.NewAuditHandler(ledger.NewAuditor(pool, ledgerRepo, deps.Store))

	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORS)

	// No auth
	r.Get("/health", handler.HealthHandler(pool))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(handler.JSONContentType)

		// Agent-signed routes
		r.Route("/api/agent", func(r chi.Router) {
			r.Use(agentAuth.Middleware)
			r.Use(handler.AgentRateLimit(limiter))

			r.Post("/login", agentHandler.Login)
			r.Post("/deposit", agentHandler.Deposit)
			r.Post("/withdraw", agentHandler.Withdraw)
			r.Post("/balance", agentHandler.Balance)
		})

		// Game client and game server routes; the launch token is the credential.
		r.Route("/api/game", func(r chi.Router) {
			r.Post("/checkUserToken", gameHandler.CheckUserToken)
			r.Post("/getBalance", gameHandler.GetBalance)
			r.Post("/betAndSettle", gameHandler.BetAndSettle)
			if cfg.AllowInsecureDefaults {
				r.Get("/createTestToken", gameHandler.CreateTestToken)
			}
		})

		// Operator routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.AuthenticateOperator(deps.JWTMgr))
			r.Use(auth.RequireRole(auth.AllOperatorRoles()...))

			r.Route("/reconciliation", func(r chi.Router) {
				r.Get("/", reconHandler.List)
				r.Get("/{id}", reconHandler.Get)
				r.With(auth.RequireRole(auth.ResolveRoles()...)).Post("/{id}/resolve", reconHandler.Resolve)
			})
			r.Get("/wallets/{kind}/{key}/audit", auditHandler.Audit)
		})
	})

	return r
}
