package routes

import (
	"net/http"
	"time"

	"challenge/controllers/auth"
	"challenge/controllers/users"
	"challenge/middleware"

	"github.com/gorilla/mux"
)

// UsersRoutes registers the auth and participant-facing routes.
func UsersRoutes(api *mux.Router) {
	// login/register limiter: 60 per IP per 5 minutes
	loginLimiter := middleware.NewIPRateLimiter(60, 5*time.Minute)
	// session limiter: 120 reads / 60 writes per user per minute
	userLimiter := middleware.NewUserRateLimiter(120, 60, 60)

	// Register & Login
	api.Handle("/register", loginLimiter.Middleware(http.HandlerFunc(auth.RegisterHandler))).Methods(http.MethodPost)
	api.Handle("/login", loginLimiter.Middleware(http.HandlerFunc(auth.LoginHandler))).Methods(http.MethodPost)
	api.Handle("/refresh", loginLimiter.Middleware(http.HandlerFunc(auth.RefreshHandler))).Methods(http.MethodPost)
	api.Handle("/logout", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(auth.LogoutHandler)))).Methods(http.MethodPost)

	// Daily checklist (list materializes missing instances first)
	api.Handle("/users/tasks", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(users.TaskListHandler)))).Methods(http.MethodGet)
	api.Handle("/users/tasks/{day:[0-9]+}", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(users.TaskListHandler)))).Methods(http.MethodGet)
	api.Handle("/users/tasks/toggle", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(users.ToggleTaskHandler)))).Methods(http.MethodPost)

	// Outreach activity log
	api.Handle("/users/outreach", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(users.LogOutreachHandler)))).Methods(http.MethodPost)
	api.Handle("/users/outreach", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(users.OutreachListHandler)))).Methods(http.MethodGet)

	// Progress / streak snapshot
	api.Handle("/users/progress", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(users.ProgressHandler)))).Methods(http.MethodGet)
}
