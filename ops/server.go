// Package ops hosts a small operator console on a separate port. It exposes
// the two audit actions and a health probe, intended to sit behind an internal
// network boundary and a shared key rather than the public API's JWT auth.
package ops

import (
	"log"
	"net/http"
	"os"
	"time"

	"challenge/challenge"
	"challenge/database"
	"challenge/middleware"

	"github.com/gin-gonic/gin"
)

// Serve blocks running the ops console on the given port.
func Serve(port string) {
	if os.Getenv("ENV") != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.GinAdapter(middleware.RequestLogMiddleware))
	r.Use(middleware.GinAdapter(middleware.RequestIDMiddleware))
	r.Use(opsKeyRequired())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now().Unix(), "service": "challenge-ops"})
	})

	r.POST("/audit/dry-run", func(c *gin.Context) {
		svc := challenge.NewService(database.DB)
		report, err := svc.RunAudit(true, false)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": report})
	})

	r.POST("/audit/apply", func(c *gin.Context) {
		var body struct {
			EnrollMissing bool `json:"enroll_missing"`
		}
		_ = c.ShouldBindJSON(&body)

		svc := challenge.NewService(database.DB)
		report, err := svc.RunAudit(false, body.EnrollMissing)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": report})
	})

	log.Printf("Ops console starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Printf("[ops] server stopped: %v", err)
	}
}

// opsKeyRequired gates every route except /health behind X-OPS-KEY.
func opsKeyRequired() gin.HandlerFunc {
	key := os.Getenv("OPS_KEY")
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}
		if key == "" || c.GetHeader("X-OPS-KEY") != key {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
			return
		}
		c.Next()
	}
}
