//go:build !nogin
// +build !nogin

package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GinAdapter converts an http.Handler middleware into a gin.HandlerFunc so
// the ops console server can reuse the same middleware chain as the API.
func GinAdapter(mw func(http.Handler) http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.Request = r.WithContext(r.Context())
			c.Next()
		})
		mw(next).ServeHTTP(c.Writer, c.Request)
	}
}
