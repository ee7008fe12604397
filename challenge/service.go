// Package challenge implements the engine that keeps per-user, per-day task
// state consistent with user actions, logged outreach activity and
// operator-run audits. All correctness rests on storage-level constraints
// (the composite unique index on task_instances and the unique
// (user_id, source_tag) index on points_ledger), so every operation here is
// safe to re-invoke concurrently and converges instead of duplicating.
package challenge

import (
	"errors"
	"os"
	"strconv"
	"time"

	"challenge/models"

	"gorm.io/gorm"
)

const (
	defaultTaskPoints  = 10
	defaultBonusPoints = 50
	defaultLookback    = 7
	defaultConcurrency = 4

	retryAttempts = 3
	retryBase     = 100 * time.Millisecond
)

// Service owns the challenge engine: instance materialization, completion
// toggling, outreach reconciliation, progress aggregation and audits.
type Service struct {
	db *gorm.DB

	taskPoints   int
	bonusPoints  int
	lookbackDays int
	concurrency  int
}

func NewService(db *gorm.DB) *Service {
	return &Service{
		db:           db,
		taskPoints:   envInt("POINTS_PER_TASK", defaultTaskPoints),
		bonusPoints:  envInt("POINTS_WEEKLY_BONUS", defaultBonusPoints),
		lookbackDays: envInt("RECONCILE_LOOKBACK_DAYS", defaultLookback),
		concurrency:  envInt("AUDIT_CONCURRENCY", defaultConcurrency),
	}
}

// Config reads the singleton program configuration. Always a fresh read: an
// administrator can advance current_day mid-run and a cached copy would
// reintroduce the stale-day bugs this engine exists to prevent.
func (s *Service) Config() (*models.ChallengeConfig, error) {
	var cfg models.ChallengeConfig
	if err := s.db.First(&cfg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ValidationError{Reason: "challenge is not configured"}
		}
		return nil, err
	}
	return &cfg, nil
}

func (s *Service) validDay(cfg *models.ChallengeConfig, day int) error {
	if day < 1 || day > cfg.TotalDays {
		return &ValidationError{Reason: "challenge day out of range"}
	}
	return nil
}

// withRetry runs fn up to retryAttempts times with exponential backoff,
// retrying only transient store failures.
func withRetry(fn func() error) error {
	backoff := retryBase
	var err error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		err = fn()
		if err == nil || !isTransient(err) {
			return err
		}
		time.Sleep(backoff)
		backoff *= 2
	}
	return err
}

func envInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
	}
	return def
}
