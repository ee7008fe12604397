package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"challenge/challenge"
	"challenge/database"
	"challenge/middleware"
	"challenge/models"
	"challenge/ops"
	"challenge/routes"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

func main() {
	// Load .env if present (do not overwrite already-set environment variables).
	if envMap, err := godotenv.Read(); err == nil {
		for k, v := range envMap {
			if os.Getenv(k) == "" {
				os.Setenv(k, v)
			}
		}
	}

	// Validate required environment variables
	requiredEnvVars := []string{"DB_HOST", "DB_USER", "DB_PASS", "DB_NAME", "JWT_SECRET"}
	for _, envVar := range requiredEnvVars {
		if os.Getenv(envVar) == "" {
			log.Fatalf("Required environment variable %s is not set", envVar)
		}
	}

	db, err := database.Connect()
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	// Auto-migrate only in development to avoid accidental production schema changes
	if strings.ToLower(os.Getenv("ENV")) == "development" {
		log.Println("Running in development mode - performing auto-migration")
		if err := database.RunMigrationsWithBackup(db,
			&models.Admin{},
			&models.RefreshToken{},
			&models.User{},
			&models.ChallengeConfig{},
			&models.TaskDefinition{},
			&models.TaskInstance{},
			&models.PointsLedgerEntry{},
			&models.UserChallengeProgress{},
			&models.OutreachActivityRecord{},
		); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
		// revocation fallback table, used only when Redis is unavailable
		if err := db.Exec("CREATE TABLE IF NOT EXISTS revoked_tokens (id VARCHAR(64) PRIMARY KEY, revoked_at DATETIME NOT NULL)").Error; err != nil {
			log.Printf("[warn] revoked_tokens table: %v", err)
		}
		log.Println("Auto-migration completed successfully")
	} else {
		log.Println("Running in production mode - skipping auto-migration")
	}

	router := routes.InitRouter()

	// Global middleware, outermost first:
	// Logging -> Security headers -> Request ID -> Max Body -> Timeout -> Recovery
	handler := middleware.RequestLogMiddleware(
		middleware.SecurityHeadersMiddleware(
			middleware.RequestIDMiddleware(
				middleware.MaxBodyMiddleware(
					middleware.TimeoutMiddleware(
						middleware.RecoveryMiddleware(router),
					),
				),
			),
		),
	)

	// Optional in-process audit schedule (AUDIT_CRON, standard cron spec)
	var scheduler *cron.Cron
	if spec := os.Getenv("AUDIT_CRON"); spec != "" {
		scheduler = cron.New()
		if _, err := scheduler.AddFunc(spec, func() {
			svc := challenge.NewService(database.DB)
			report, err := svc.RunAudit(false, false)
			if err != nil {
				log.Printf("[cron] scheduled audit failed: %v", err)
				return
			}
			log.Printf("[cron] scheduled audit: backfilled=%d created=%d completed=%d bonuses=%d errors=%d",
				report.TasksBackfilled, report.TasksCreated, report.TasksCompleted,
				report.BonusesAwarded, len(report.Errors))
		}); err != nil {
			log.Fatalf("invalid AUDIT_CRON %q: %v", spec, err)
		}
		scheduler.Start()
		log.Printf("Audit scheduler started with spec %q", spec)
	}

	// Optional gin-based ops console
	if opsPort := os.Getenv("OPS_PORT"); opsPort != "" {
		go ops.Serve(opsPort)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // audit apply can run long
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	if scheduler != nil {
		scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited")
}
