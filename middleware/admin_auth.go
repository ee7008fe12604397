package middleware

import (
	"net/http"

	"challenge/database"
	"challenge/models"
	"challenge/utils"
)

// AdminAuthMiddleware verifies that the request is from an authenticated,
// active admin. Audit and config mutations sit behind this: authorization is
// checked before any read or write happens.
func AdminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := utils.ClaimsFromRequest(r)
		if err != nil {
			utils.WriteError(w, http.StatusUnauthorized, "Unauthorized: Invalid token")
			return
		}

		role, ok := claims["role"].(string)
		if !ok || role != "admin" {
			utils.WriteError(w, http.StatusForbidden, "Forbidden: Admin access required")
			return
		}

		adminID := utils.ClaimUserID(claims)
		var admin models.Admin
		if err := database.DB.First(&admin, adminID).Error; err != nil {
			utils.WriteError(w, http.StatusUnauthorized, "Unauthorized: Admin not found")
			return
		}
		if !admin.IsActive {
			utils.WriteError(w, http.StatusForbidden, "Forbidden")
			return
		}

		next.ServeHTTP(w, r)
	})
}
