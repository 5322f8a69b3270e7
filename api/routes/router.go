package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paymint-app/paymint-backend/api/controllers"
	"github.com/paymint-app/paymint-backend/api/middleware"
	"github.com/paymint-app/paymint-backend/internal/accounts"
	"github.com/paymint-app/paymint-backend/internal/funds"
	"github.com/paymint-app/paymint-backend/internal/ledger"
	"github.com/paymint-app/paymint-backend/internal/users"
	"github.com/paymint-app/paymint-backend/pkg/config"
	"github.com/paymint-app/paymint-backend/pkg/db"
	"github.com/paymint-app/paymint-backend/pkg/logger"
	"github.com/paymint-app/paymint-backend/pkg/redis"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    *redis.Client
	Users    users.Service
	Accounts accounts.Service
	Ledger   ledger.Service
	Funds    funds.Service
	Metrics  prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	signupPolicy := middleware.NewAuthRateLimitPolicy(
		"signup",
		cfg.AuthRateLimit.SignupWindow,
		cfg.AuthRateLimit.SignupIPLimit,
		cfg.AuthRateLimit.SignupEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(signupPolicy, deps.Redis, logg)).
			Post("/signup", controllers.AuthSignup(deps.Users, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).
			Post("/login", controllers.AuthLogin(deps.Users, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Route("/users", func(r chi.Router) {
			r.Get("/", controllers.UsersList(deps.Users, logg))
			r.Get("/me", controllers.UsersMe(deps.Users, logg))
		})

		r.Get("/wallet/balance", controllers.WalletBalance(deps.Accounts, logg))

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", controllers.TransactionList(deps.Accounts, deps.Ledger, logg))
			r.Post("/transfer", controllers.TransactionTransfer(deps.Funds, logg))
			r.Post("/deposit", controllers.TransactionDeposit(deps.Funds, logg))
			r.Get("/{entryId}", controllers.TransactionDetail(deps.Accounts, deps.Ledger, logg))
			r.Delete("/{entryId}", controllers.TransactionDelete(deps.Accounts, deps.Ledger, logg))
		})
	})

	return r
}
