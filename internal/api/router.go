// Package api exposes the recommendation service over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"investai/internal/auth"
	"investai/internal/metrics"
	"investai/internal/model"
)

// Authenticator is the account surface the handlers need.
// Implemented by *auth.Service.
type Authenticator interface {
	Register(ctx context.Context, email, password string) (string, *model.User, error)
	Login(ctx context.Context, email, password, code string) (string, error)
	Authenticate(ctx context.Context, token string) (*auth.Principal, error)
	Logout(ctx context.Context, p *auth.Principal) error
	Me(ctx context.Context, userID string) (*model.User, error)
	EnrollTOTP(ctx context.Context, userID string) (secret, url string, err error)
	ConfirmTOTP(ctx context.Context, userID, code string) error
}

// Recommender produces and records one recommendation.
// Implemented by *recommend.Service.
type Recommender interface {
	Recommend(ctx context.Context, userID, symbol string) (model.Recommendation, error)
}

// Deps are the collaborators injected into the router.
type Deps struct {
	Auth        Authenticator
	Recommender Recommender
	Favorites   model.FavoriteStore
	History     model.RecommendationReader

	Health   http.Handler        // GET /api/health; defaults to a static ok
	Metrics  *metrics.Metrics    // optional
	Gatherer prometheus.Gatherer // serves /metrics when set
}

// NewRouter builds the HTTP handler with all routes and middleware.
func NewRouter(d Deps) http.Handler {
	h := &handlers{deps: d}
	mux := http.NewServeMux()

	route := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, instrument(d.Metrics, pattern, fn))
	}
	private := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, instrument(d.Metrics, pattern, requireAuth(d.Auth, fn)))
	}

	health := d.Health
	if health == nil {
		health = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	}
	route("GET /api/health", health.ServeHTTP)

	route("POST /api/register", h.register)
	route("POST /api/login", h.login)
	private("POST /api/logout", h.logout)
	private("GET /api/me", h.me)
	private("POST /api/totp/enroll", h.enrollTOTP)
	private("POST /api/totp/confirm", h.confirmTOTP)

	private("POST /api/favorite", h.addFavorite)
	private("DELETE /api/favorite", h.removeFavorite)
	private("GET /api/favorites", h.listFavorites)

	private("GET /api/recommend", h.recommend)
	private("GET /api/recommendations", h.history)

	if d.Gatherer != nil {
		mux.Handle("GET /metrics", metrics.Handler(d.Gatherer))
	}

	return withCORS(withRequestID(mux))
}
