package challenge

import (
	"fmt"
	"log"
	"sync"
	"time"

	"challenge/models"
	"challenge/utils"

	"gorm.io/gorm/clause"
)

// AuditReport is returned by RunAudit in both modes. Errors holds one entry
// per participant whose processing failed; Success distinguishes a clean run
// from completion-with-errors.
type AuditReport struct {
	CurrentDay                  int      `json:"currentDay"`
	ActiveParticipants          int      `json:"activeParticipants"`
	MissingDailyTasks           int      `json:"missingDailyTasks"`
	ParticipantsWithZeroPoints  int      `json:"participantsWithZeroPoints"`
	ParticipantsWithoutAnyTasks int      `json:"participantsWithoutAnyTasks"`
	ParticipantsMissingDay1     int      `json:"participantsMissingDay1"`
	MissingDay1Sample           []uint   `json:"missingDay1Sample,omitempty"`
	TasksBackfilled             int      `json:"tasksBackfilled"`
	TasksCreated                int      `json:"tasksCreated"`
	TasksCompleted              int      `json:"tasksCompleted"`
	BonusesAwarded              int      `json:"bonusesAwarded"`
	EligibleNotEnrolled         int      `json:"eligibleNotEnrolled"`
	EnrolledByAudit             int      `json:"enrolledByAudit"`
	Errors                      []string `json:"errors"`
	Success                     bool     `json:"success"`
	DryRun                      bool     `json:"dryRun"`
}

const missingDay1SampleSize = 10

var zeroPointsGrace = 48 * time.Hour

func init() {
	if h := envInt("AUDIT_ZERO_POINTS_GRACE_HOURS", 0); h > 0 {
		zeroPointsGrace = time.Duration(h) * time.Hour
	}
}

// RunAudit inspects (dry-run) or repairs (apply) the whole active cohort.
//
// Dry-run is read-only and recomputes fresh numbers on every call. Apply runs,
// per participant and in order: backfill every day up to current_day through
// the guarantor, reconcile outreach across the same range, evaluate the
// weekly bonus rule, then rebuild the progress cache. Participants are
// processed with bounded concurrency; one participant's failure is recorded
// and skipped, never aborting the batch. Because every sub-step is
// constraint-idempotent, a second apply run over an already-fixed cohort
// converges to zero additional changes.
func (s *Service) RunAudit(dryRun, enrollMissing bool) (*AuditReport, error) {
	cfg, err := s.Config()
	if err != nil {
		return nil, err
	}

	report := &AuditReport{
		CurrentDay: cfg.CurrentDay,
		DryRun:     dryRun,
		Errors:     []string{},
	}

	var participants []models.UserChallengeProgress
	if err := s.db.Where("is_active = ?", true).Order("user_id ASC").Find(&participants).Error; err != nil {
		return nil, err
	}
	report.ActiveParticipants = len(participants)

	if err := s.analyzeCohort(cfg, participants, report); err != nil {
		return nil, err
	}
	if dryRun {
		report.Success = true
		return report, nil
	}

	if enrollMissing {
		enrolled, err := s.enrollEligible(report)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("enroll: %v", err))
		} else {
			participants = append(participants, enrolled...)
		}
	}

	// Participants are independent; fan out with a bounded worker count. The
	// sub-steps for one participant stay serialized inside auditParticipant.
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, s.concurrency)
	)
	for i := range participants {
		p := participants[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			s.auditParticipant(cfg, p.UserID, report, &mu)
		}()
	}
	wg.Wait()

	report.Success = len(report.Errors) == 0
	return report, nil
}

// analyzeCohort fills the read-only report counters shared by both modes.
func (s *Service) analyzeCohort(cfg *models.ChallengeConfig, participants []models.UserChallengeProgress, report *AuditReport) error {
	if len(participants) > 0 {
		ids := make([]uint, 0, len(participants))
		for i := range participants {
			ids = append(ids, participants[i].UserID)
		}

		instanceCounts, err := s.countByUser(&models.TaskInstance{}, "user_id IN ?", ids)
		if err != nil {
			return err
		}
		day1Counts, err := s.countByUser(&models.TaskInstance{}, "challenge_day = 1 AND user_id IN ?", ids)
		if err != nil {
			return err
		}
		todayCounts, err := s.countByUser(&models.TaskInstance{}, "challenge_day = ? AND user_id IN ?", cfg.CurrentDay, ids)
		if err != nil {
			return err
		}
		pointsTotals, err := s.sumPointsByUser(ids)
		if err != nil {
			return err
		}

		var defs []models.TaskDefinition
		if err := s.db.Where("is_active = ?", true).Find(&defs).Error; err != nil {
			return err
		}
		expectedToday := 0
		for i := range defs {
			if defs[i].AppliesToDay(cfg.CurrentDay) {
				expectedToday++
			}
		}

		now := time.Now()
		for i := range participants {
			p := participants[i]
			if instanceCounts[p.UserID] == 0 {
				report.ParticipantsWithoutAnyTasks++
			}
			// Enrollment completed but day-1 materialization never ran: a
			// correctness signal, not merely missing data.
			if day1Counts[p.UserID] == 0 {
				report.ParticipantsMissingDay1++
				if len(report.MissingDay1Sample) < missingDay1SampleSize {
					report.MissingDay1Sample = append(report.MissingDay1Sample, p.UserID)
				}
			}
			if missing := expectedToday - int(todayCounts[p.UserID]); missing > 0 {
				report.MissingDailyTasks += missing
			}
			if pointsTotals[p.UserID] == 0 && now.Sub(p.JoinedAt) > zeroPointsGrace {
				report.ParticipantsWithZeroPoints++
			}
		}
	}

	var eligible int64
	if err := s.db.Model(&models.User{}).
		Where("status = ? AND id NOT IN (?)", "Active",
			s.db.Model(&models.UserChallengeProgress{}).Select("user_id")).
		Count(&eligible).Error; err != nil {
		return err
	}
	report.EligibleNotEnrolled = int(eligible)
	return nil
}

// auditParticipant runs the apply-mode steps for one participant. Failures
// are recorded on the shared report and never propagate to the batch.
func (s *Service) auditParticipant(cfg *models.ChallengeConfig, userID uint, report *AuditReport, mu *sync.Mutex) {
	fail := func(step string, err error) {
		log.Printf("[audit] user=%d %s failed: %v", userID, step, err)
		mu.Lock()
		report.Errors = append(report.Errors, fmt.Sprintf("user %d: %s: %v", userID, step, err))
		mu.Unlock()
	}

	backfilled, createdToday := 0, 0
	err := withRetry(func() error {
		backfilled, createdToday = 0, 0
		for day := 1; day <= cfg.CurrentDay; day++ {
			n, err := s.EnsureDailyTasksExist(userID, day)
			if err != nil {
				return classifyStoreErr(err)
			}
			if day < cfg.CurrentDay {
				backfilled += n
			} else {
				createdToday += n
			}
		}
		return nil
	})
	if err != nil {
		fail("backfill", err)
		return
	}

	completed := 0
	err = withRetry(func() error {
		var rerr error
		completed, rerr = s.reconcileRange(cfg, userID, 1, cfg.CurrentDay)
		return classifyStoreErr(rerr)
	})
	if err != nil {
		fail("reconcile", err)
		return
	}

	bonus, err := s.evaluateWeeklyBonus(cfg, userID)
	if err != nil {
		fail("bonus", err)
		return
	}

	if _, err := s.UpdateProgress(userID); err != nil {
		fail("progress", err)
		return
	}

	mu.Lock()
	report.TasksBackfilled += backfilled
	report.TasksCreated += createdToday
	report.TasksCompleted += completed
	if bonus {
		report.BonusesAwarded++
	}
	mu.Unlock()
}

// evaluateWeeklyBonus grants the cohort bonus when the most recent fully
// elapsed week is complete end to end. The ledger's unique tag makes the
// grant at-most-once across any number of audit runs.
func (s *Service) evaluateWeeklyBonus(cfg *models.ChallengeConfig, userID uint) (bool, error) {
	week := (cfg.CurrentDay - 1) / 7
	if week < 1 {
		return false, nil
	}
	firstDay := (week-1)*7 + 1
	lastDay := week * 7

	var instances []models.TaskInstance
	if err := s.db.Where("user_id = ? AND challenge_day BETWEEN ? AND ?", userID, firstDay, lastDay).
		Find(&instances).Error; err != nil {
		return false, err
	}
	days := make(map[int]daySummary)
	for i := range instances {
		inst := instances[i]
		d := days[inst.ChallengeDay]
		d.instances++
		if inst.Completed {
			d.completed++
		}
		days[inst.ChallengeDay] = d
	}
	for day := firstDay; day <= lastDay; day++ {
		if !days[day].complete() {
			return false, nil
		}
	}

	entry := models.PointsLedgerEntry{
		UserID:    userID,
		Amount:    s.bonusPoints,
		SourceTag: utils.WeeklyBonusTag(week),
	}
	res := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// enrollEligible creates progress rows for active users who never enrolled,
// returning the new participants so the caller can process them in the same
// pass.
func (s *Service) enrollEligible(report *AuditReport) ([]models.UserChallengeProgress, error) {
	var users []models.User
	if err := s.db.Where("status = ? AND id NOT IN (?)", "Active",
		s.db.Model(&models.UserChallengeProgress{}).Select("user_id")).
		Find(&users).Error; err != nil {
		return nil, err
	}
	enrolled := make([]models.UserChallengeProgress, 0, len(users))
	for i := range users {
		p := models.UserChallengeProgress{
			UserID:   users[i].ID,
			IsActive: true,
			JoinedAt: time.Now(),
		}
		res := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&p)
		if res.Error != nil {
			log.Printf("[audit] enroll user=%d failed: %v", users[i].ID, res.Error)
			continue
		}
		if res.RowsAffected > 0 {
			report.EnrolledByAudit++
			enrolled = append(enrolled, p)
		}
	}
	return enrolled, nil
}

func (s *Service) countByUser(model interface{}, query string, args ...interface{}) (map[uint]int64, error) {
	rows, err := s.db.Model(model).
		Select("user_id, COUNT(*) as count").
		Where(query, args...).
		Group("user_id").Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint]int64)
	for rows.Next() {
		var userID uint
		var count int64
		if scanErr := rows.Scan(&userID, &count); scanErr == nil {
			out[userID] = count
		}
	}
	return out, rows.Err()
}

func (s *Service) sumPointsByUser(ids []uint) (map[uint]int64, error) {
	rows, err := s.db.Model(&models.PointsLedgerEntry{}).
		Select("user_id, COALESCE(SUM(amount), 0) as total").
		Where("user_id IN ?", ids).
		Group("user_id").Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint]int64)
	for rows.Next() {
		var userID uint
		var total int64
		if scanErr := rows.Scan(&userID, &total); scanErr == nil {
			out[userID] = total
		}
	}
	return out, rows.Err()
}
