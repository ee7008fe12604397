package middleware

import (
	"context"
	"net/http"
	"strings"

	"challenge/utils"
)

// AuthMiddleware validates the bearer token and injects the participant id
// into the request context. Admin tokens are rejected here: operators use the
// admin surface, participants use this one.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := utils.ClaimsFromRequest(r)
		if err != nil {
			if strings.Contains(err.Error(), "expired") {
				utils.WriteError(w, http.StatusUnauthorized, "Session expired, please log in again")
				return
			}
			utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		role, _ := claims["role"].(string)
		if role == "admin" {
			utils.WriteError(w, http.StatusForbidden, "Access denied")
			return
		}

		userID := utils.ClaimUserID(claims)
		if userID == 0 {
			utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), utils.UserIDKey, userID)
		ctx = context.WithValue(ctx, utils.UserRoleKey, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
