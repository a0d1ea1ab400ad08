// Package handler provides the HTTP transport for the betting ledger.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"worldcup-betting/internal/config"
	"worldcup-betting/internal/metrics"
	"worldcup-betting/internal/model"
	"worldcup-betting/internal/service"
)

// Accounts resolves and manages logins.
type Accounts interface {
	Login(ctx context.Context, credential string) (*service.LoginResult, error)
	CurrentUser(ctx context.Context, sessionID string) (*model.User, error)
	Logout(ctx context.Context, sessionID string) error
}

// Wagers places bets.
type Wagers interface {
	PlaceBet(ctx context.Context, userID, matchID, teamCode string) (service.PlaceResult, error)
}

// Settler settles one match on demand.
type Settler interface {
	Settle(ctx context.Context, matchID string) (*service.SettlementOutcome, error)
}

// Syncer triggers a feed sync on demand.
type Syncer interface {
	Trigger(ctx context.Context) (*service.SyncReport, error)
}

// Bootstrapper builds the initial client payload.
type Bootstrapper interface {
	Bootstrap(ctx context.Context, user *model.User) (*service.Bootstrap, error)
}

// History lists a user's ledger entries.
type History interface {
	History(ctx context.Context, userID string, limit int) ([]*model.LedgerEntry, error)
}

// Rankings builds the leaderboard.
type Rankings interface {
	GetLeaderboard(ctx context.Context, limit int) (*service.Leaderboard, error)
}

// HealthChecker reports whether the store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps are the collaborators the HTTP layer calls into.
type Deps struct {
	Accounts  Accounts
	Wagers    Wagers
	Settler   Settler
	Syncer    Syncer
	Bootstrap Bootstrapper
	History   History
	Rankings  Rankings
	Health    HealthChecker
}

// API holds the HTTP handlers.
type API struct {
	deps Deps
	cfg  *config.Config
}

// NewAPI creates a new API.
func NewAPI(deps Deps, cfg *config.Config) *API {
	return &API{deps: deps, cfg: cfg}
}

// Router returns the HTTP router with every endpoint mounted.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(a.sessionUser)

	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Get("/health", a.health)
		r.Get("/bootstrap", a.bootstrap)
		r.Post("/auth/google", a.login)
		r.Post("/logout", a.logout)
		r.Post("/sync", a.sync)
		r.Get("/leaderboard", a.leaderboard)

		r.Group(func(r chi.Router) {
			r.Use(requireUser)
			r.Post("/bets", a.placeBet)
			r.Get("/me/transactions", a.transactions)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireUser)
			r.Use(a.requireAdmin)
			r.Post("/admin/matches/{matchID}/settle", a.settle)
		})
	})
	return r
}
