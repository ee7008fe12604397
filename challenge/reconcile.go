package challenge

import (
	"log"

	"challenge/models"
)

// ReconcileOutreach derives task completions from logged outreach activity.
// For every count-based definition whose aggregated count for a day reaches
// its threshold, the matching instance is forced complete through the toggle
// service. Completion is sticky: a later recount below the threshold never
// un-completes a task, so re-running with unchanged data is a no-op and the
// call is safe on every page load or after every manual log entry.
//
// targetDay 0 means the current challenge day. The scan covers the
// configured lookback window ending at targetDay.
func (s *Service) ReconcileOutreach(userID uint, targetDay int) error {
	cfg, err := s.Config()
	if err != nil {
		return err
	}
	if targetDay == 0 {
		targetDay = cfg.CurrentDay
	}
	if err := s.validDay(cfg, targetDay); err != nil {
		return err
	}
	fromDay := targetDay - s.lookbackDays + 1
	if fromDay < 1 {
		fromDay = 1
	}
	_, err = s.reconcileRange(cfg, userID, fromDay, targetDay)
	return err
}

// reconcileRange runs reconciliation over an inclusive day range and returns
// how many tasks it newly completed. Best-effort: individual failures are
// logged and skipped so one bad definition cannot starve the rest.
func (s *Service) reconcileRange(cfg *models.ChallengeConfig, userID uint, fromDay, toDay int) (int, error) {
	var defs []models.TaskDefinition
	if err := s.db.Where("is_active = ? AND outreach_type <> '' AND count_required > 0", true).
		Find(&defs).Error; err != nil {
		return 0, err
	}
	if len(defs) == 0 {
		return 0, nil
	}

	// Aggregate logged activity into counts per (type, challenge day). The
	// records themselves are owned elsewhere; only the sums matter here.
	fromDate := cfg.DayDate(fromDay)
	endDate := cfg.DayDate(toDay).AddDate(0, 0, 1)
	var records []models.OutreachActivityRecord
	if err := s.db.Where("user_id = ? AND date >= ? AND date < ?", userID, fromDate, endDate).
		Find(&records).Error; err != nil {
		return 0, err
	}
	counts := make(map[string]map[int]int)
	for i := range records {
		rec := records[i]
		day := cfg.DayOfDate(rec.Date)
		if day < fromDay || day > toDay {
			continue
		}
		if counts[rec.Type] == nil {
			counts[rec.Type] = make(map[int]int)
		}
		counts[rec.Type][day] += rec.Count
	}
	if len(counts) == 0 {
		return 0, nil
	}

	completed := 0
	for day := fromDay; day <= toDay; day++ {
		ensured := false
		for i := range defs {
			def := defs[i]
			if !def.AppliesToDay(day) {
				continue
			}
			if counts[def.OutreachType][day] < def.CountRequired {
				continue
			}

			// Threshold met. Skip if the instance is already complete so that
			// a no-change re-run stays a true no-op.
			var inst models.TaskInstance
			found := s.db.Where("user_id = ? AND task_definition_id = ? AND challenge_day = ?",
				userID, def.ID, day).First(&inst).Error == nil
			if found && inst.Completed {
				continue
			}
			if !found && !ensured {
				if _, err := s.EnsureDailyTasksExist(userID, day); err != nil {
					log.Printf("[reconcile] user=%d day=%d materialize failed: %v", userID, day, err)
					continue
				}
				ensured = true
			}
			if _, err := s.ToggleTask(userID, def.ID, day, true); err != nil {
				log.Printf("[reconcile] user=%d day=%d def=%d force-complete failed: %v", userID, day, def.ID, err)
				continue
			}
			completed++
		}
	}
	return completed, nil
}
