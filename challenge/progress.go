package challenge

import (
	"errors"
	"time"

	"challenge/models"
	"challenge/utils"

	"gorm.io/gorm"
)

// daySummary buckets one challenge day's instance rows.
type daySummary struct {
	instances int
	completed int
}

func (d daySummary) complete() bool {
	return d.instances > 0 && d.completed == d.instances
}

// SummarizeInstances computes (total_days_completed, current_streak) from an
// instance history. Pure function, no queries.
//
// A day counts as complete when it has at least one recorded instance and
// every recorded instance is completed. The streak runs backward from the
// most recent day (≤ currentDay) that has any recorded instance; a past day
// left incomplete — including a day with no rows at all — breaks the run.
func SummarizeInstances(instances []models.TaskInstance, currentDay int) (totalDays, streak int) {
	days := make(map[int]daySummary)
	last := 0
	for i := range instances {
		inst := instances[i]
		if inst.ChallengeDay > currentDay {
			continue
		}
		d := days[inst.ChallengeDay]
		d.instances++
		if inst.Completed {
			d.completed++
		}
		days[inst.ChallengeDay] = d
		if inst.ChallengeDay > last {
			last = inst.ChallengeDay
		}
	}

	for _, d := range days {
		if d.complete() {
			totalDays++
		}
	}
	for day := last; day >= 1; day-- {
		if !days[day].complete() {
			break
		}
		streak++
	}
	return totalDays, streak
}

// UpdateProgress rebuilds the denormalized UserChallengeProgress cache for
// one user from instance history. No other side effects.
func (s *Service) UpdateProgress(userID uint) (*models.UserChallengeProgress, error) {
	cfg, err := s.Config()
	if err != nil {
		return nil, err
	}

	var instances []models.TaskInstance
	if err := s.db.Where("user_id = ? AND challenge_day <= ?", userID, cfg.CurrentDay).
		Find(&instances).Error; err != nil {
		return nil, err
	}
	totalDays, streak := SummarizeInstances(instances, cfg.CurrentDay)

	var progress models.UserChallengeProgress
	err = s.db.Where("user_id = ?", userID).First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		progress = models.UserChallengeProgress{
			UserID:   userID,
			IsActive: true,
			JoinedAt: time.Now(),
		}
		if err := s.db.Create(&progress).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if err := s.db.Model(&progress).Updates(map[string]interface{}{
		"total_days_completed": totalDays,
		"current_streak":       streak,
	}).Error; err != nil {
		return nil, err
	}
	progress.TotalDaysCompleted = totalDays
	progress.CurrentStreak = streak
	return &progress, nil
}

// PointsTotal sums a user's lifetime ledger.
func (s *Service) PointsTotal(userID uint) (int64, error) {
	var total int64
	err := s.db.Model(&models.PointsLedgerEntry{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").Scan(&total).Error
	return total, err
}

// PointsBreakdown sums the ledger split by grant origin: bonus-rule grants
// versus task completions.
func (s *Service) PointsBreakdown(userID uint) (total, bonus int64, err error) {
	var entries []models.PointsLedgerEntry
	if err = s.db.Where("user_id = ?", userID).Find(&entries).Error; err != nil {
		return 0, 0, err
	}
	for i := range entries {
		total += int64(entries[i].Amount)
		if utils.IsBonusTag(entries[i].SourceTag) {
			bonus += int64(entries[i].Amount)
		}
	}
	return total, bonus, nil
}
