package routes

import (
	"net/http"
	"time"

	"challenge/controllers/admins"
	"challenge/middleware"

	"github.com/gorilla/mux"
)

func SetAdminRoutes(api *mux.Router) {
	// Rate limiter for admin login: 5 attempts per IP per minute
	adminLoginLimiter := middleware.NewIPRateLimiter(5, time.Minute)

	// Public admin routes
	api.Handle("/admins/login", adminLoginLimiter.Middleware(http.HandlerFunc(admins.Login))).Methods(http.MethodPost)

	// Protected admin routes
	adminRouter := api.PathPrefix("/admins").Subrouter()
	adminRouter.Use(middleware.AdminAuthMiddleware)

	// Audit & backfill
	adminRouter.Handle("/audit/dry-run", http.HandlerFunc(admins.AuditDryRunHandler)).Methods(http.MethodPost)
	adminRouter.Handle("/audit/apply", http.HandlerFunc(admins.AuditApplyHandler)).Methods(http.MethodPost)

	// Program configuration
	adminRouter.Handle("/challenge-config", http.HandlerFunc(admins.GetChallengeConfigHandler)).Methods(http.MethodGet)
	adminRouter.Handle("/challenge-config", http.HandlerFunc(admins.UpdateChallengeConfigHandler)).Methods(http.MethodPut)

	// Progress cache rebuild
	adminRouter.Handle("/progress/rebuild", http.HandlerFunc(admins.RebuildProgressHandler)).Methods(http.MethodPost)
}
