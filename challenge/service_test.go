package challenge

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"challenge/models"
	"challenge/utils"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	// one connection so every query sees the same in-memory database
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.User{},
		&models.ChallengeConfig{},
		&models.TaskDefinition{},
		&models.TaskInstance{},
		&models.PointsLedgerEntry{},
		&models.UserChallengeProgress{},
		&models.OutreachActivityRecord{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// seedConfig creates the singleton config so that today maps to currentDay.
func seedConfig(t *testing.T, db *gorm.DB, currentDay int) *models.ChallengeConfig {
	t.Helper()
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).
		AddDate(0, 0, -(currentDay - 1))
	cfg := models.ChallengeConfig{
		TotalDays:  75,
		StartDate:  start,
		EndDate:    start.AddDate(0, 0, 74),
		CurrentDay: currentDay,
		IsActive:   true,
	}
	if err := db.Create(&cfg).Error; err != nil {
		t.Fatalf("seed config: %v", err)
	}
	return &cfg
}

func seedDefinition(t *testing.T, db *gorm.DB, def models.TaskDefinition) models.TaskDefinition {
	t.Helper()
	def.IsActive = true
	if err := db.Create(&def).Error; err != nil {
		t.Fatalf("seed definition: %v", err)
	}
	return def
}

func seedParticipant(t *testing.T, db *gorm.DB, userID uint) {
	t.Helper()
	user := models.User{ID: userID, Name: "Test User", Email: fmt.Sprintf("user%d@example.test", userID), Password: "x", Status: "Active"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	p := models.UserChallengeProgress{UserID: userID, IsActive: true, JoinedAt: time.Now().Add(-72 * time.Hour)}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed progress: %v", err)
	}
}

func countRows(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Where(query, args...).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestEnsureDailyTasksIdempotent(t *testing.T) {
	db := newTestDB(t)
	seedConfig(t, db, 1)
	seedDefinition(t, db, models.TaskDefinition{Name: "Read 10 pages"})
	seedDefinition(t, db, models.TaskDefinition{Name: "Workout"})
	seedDefinition(t, db, models.TaskDefinition{Name: "Drink water"})
	svc := NewService(db)

	created, err := svc.EnsureDailyTasksExist(7, 1)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if created != 3 {
		t.Fatalf("expected 3 created, got %d", created)
	}

	created, err = svc.EnsureDailyTasksExist(7, 1)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if created != 0 {
		t.Fatalf("second call should create nothing, got %d", created)
	}
	if n := countRows(t, db, &models.TaskInstance{}, "user_id = ?", 7); n != 3 {
		t.Fatalf("expected 3 instance rows, got %d", n)
	}
}

func TestEnsureDailyTasksWeekRestriction(t *testing.T) {
	db := newTestDB(t)
	seedConfig(t, db, 1)
	seedDefinition(t, db, models.TaskDefinition{Name: "Every week"})
	seedDefinition(t, db, models.TaskDefinition{Name: "Week 2 only", WeekNumbers: "2"})
	svc := NewService(db)

	created, err := svc.EnsureDailyTasksExist(1, 3) // day 3 is week 1
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if created != 1 {
		t.Fatalf("expected only the unrestricted definition, got %d", created)
	}

	created, err = svc.EnsureDailyTasksExist(1, 10) // day 10 is week 2
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if created != 2 {
		t.Fatalf("expected both definitions on a week-2 day, got %d", created)
	}
}

func TestEnsureDailyTasksRejectsBadDay(t *testing.T) {
	db := newTestDB(t)
	seedConfig(t, db, 1)
	svc := NewService(db)

	if _, err := svc.EnsureDailyTasksExist(1, 0); !IsValidation(err) {
		t.Fatalf("expected validation error for day 0, got %v", err)
	}
	if _, err := svc.EnsureDailyTasksExist(1, 76); !IsValidation(err) {
		t.Fatalf("expected validation error for day 76, got %v", err)
	}
}

func TestToggleAwardsAtMostOnce(t *testing.T) {
	db := newTestDB(t)
	seedConfig(t, db, 1)
	def := seedDefinition(t, db, models.TaskDefinition{Name: "Workout"})
	svc := NewService(db)
	const uid = 42

	if _, err := svc.EnsureDailyTasksExist(uid, 1); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	res, err := svc.ToggleTask(uid, def.ID, 1, true)
	if err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	if !res.PointsAwarded {
		t.Fatal("first completion should award points")
	}

	// uncheck: state flips back, ledger untouched
	if _, err := svc.ToggleTask(uid, def.ID, 1, false); err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	var inst models.TaskInstance
	if err := db.Where("user_id = ? AND task_definition_id = ?", uid, def.ID).First(&inst).Error; err != nil {
		t.Fatalf("fetch instance: %v", err)
	}
	if inst.Completed || inst.CompletedAt != nil {
		t.Fatal("uncheck should clear completed state")
	}
	if n := countRows(t, db, &models.PointsLedgerEntry{}, "user_id = ?", uid); n != 1 {
		t.Fatalf("uncheck must not retract the grant, ledger rows = %d", n)
	}

	// re-check: no second grant
	res, err = svc.ToggleTask(uid, def.ID, 1, true)
	if err != nil {
		t.Fatalf("toggle on again: %v", err)
	}
	if res.PointsAwarded {
		t.Fatal("re-completion must not award a second time")
	}
	if n := countRows(t, db, &models.PointsLedgerEntry{}, "user_id = ?", uid); n != 1 {
		t.Fatalf("expected exactly one ledger row, got %d", n)
	}

	total, err := svc.PointsTotal(uid)
	if err != nil {
		t.Fatalf("points total: %v", err)
	}
	if total != defaultTaskPoints {
		t.Fatalf("expected %d points, got %d", defaultTaskPoints, total)
	}
}

func TestToggleMissingInstance(t *testing.T) {
	db := newTestDB(t)
	seedConfig(t, db, 1)
	def := seedDefinition(t, db, models.TaskDefinition{Name: "Workout"})
	svc := NewService(db)

	_, err := svc.ToggleTask(5, def.ID, 1, true)
	if !IsValidation(err) {
		t.Fatalf("expected validation error for missing instance, got %v", err)
	}
	if n := countRows(t, db, &models.PointsLedgerEntry{}, "user_id = ?", 5); n != 0 {
		t.Fatal("failed toggle must not write to the ledger")
	}
}

func TestReconcileCompletesAtThreshold(t *testing.T) {
	db := newTestDB(t)
	cfg := seedConfig(t, db, 2)
	def := seedDefinition(t, db, models.TaskDefinition{
		Name: "Make 5 calls", OutreachType: "call", CountRequired: 5,
	})
	svc := NewService(db)
	const uid = 3

	// 3 + 2 logged calls on day 2 cross the threshold together
	for _, n := range []int{3, 2} {
		rec := models.OutreachActivityRecord{UserID: uid, Type: "call", Count: n, Date: cfg.DayDate(2)}
		if err := db.Create(&rec).Error; err != nil {
			t.Fatalf("seed record: %v", err)
		}
	}

	if err := svc.ReconcileOutreach(uid, 2); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	var inst models.TaskInstance
	if err := db.Where("user_id = ? AND task_definition_id = ? AND challenge_day = 2", uid, def.ID).
		First(&inst).Error; err != nil {
		t.Fatalf("instance should have been materialized: %v", err)
	}
	if !inst.Completed {
		t.Fatal("threshold met, instance should be completed")
	}
	if n := countRows(t, db, &models.PointsLedgerEntry{}, "user_id = ?", uid); n != 1 {
		t.Fatalf("expected one grant from reconciliation, got %d", n)
	}

	// re-run with unchanged data: a true no-op
	if err := svc.ReconcileOutreach(uid, 2); err != nil {
		t.Fatalf("re-run: %v", err)
	}
	if n := countRows(t, db, &models.PointsLedgerEntry{}, "user_id = ?", uid); n != 1 {
		t.Fatalf("re-run must not grant again, got %d rows", n)
	}
}

func TestReconcileBelowThresholdAndSticky(t *testing.T) {
	db := newTestDB(t)
	cfg := seedConfig(t, db, 1)
	def := seedDefinition(t, db, models.TaskDefinition{
		Name: "Send 10 messages", OutreachType: "message", CountRequired: 10,
	})
	svc := NewService(db)
	const uid = 9

	rec := models.OutreachActivityRecord{UserID: uid, Type: "message", Count: 4, Date: cfg.DayDate(1)}
	if err := db.Create(&rec).Error; err != nil {
		t.Fatalf("seed record: %v", err)
	}
	if err := svc.ReconcileOutreach(uid, 1); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if n := countRows(t, db, &models.TaskInstance{}, "user_id = ? AND completed = ?", uid, true); n != 0 {
		t.Fatal("below threshold, nothing should be completed")
	}

	// manually completed stays completed even though the count is below the bar
	if _, err := svc.EnsureDailyTasksExist(uid, 1); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, err := svc.ToggleTask(uid, def.ID, 1, true); err != nil {
		t.Fatalf("manual toggle: %v", err)
	}
	if err := svc.ReconcileOutreach(uid, 1); err != nil {
		t.Fatalf("reconcile after manual: %v", err)
	}
	var inst models.TaskInstance
	if err := db.Where("user_id = ? AND task_definition_id = ?", uid, def.ID).First(&inst).Error; err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !inst.Completed {
		t.Fatal("reconciliation must never un-complete a task")
	}
}

func TestAuditDryRunMakesNoWrites(t *testing.T) {
	db := newTestDB(t)
	seedConfig(t, db, 3)
	seedDefinition(t, db, models.TaskDefinition{Name: "Workout"})
	seedParticipant(t, db, 1)
	svc := NewService(db)

	report, err := svc.RunAudit(true, false)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if !report.DryRun || !report.Success {
		t.Fatalf("unexpected report flags: %+v", report)
	}
	if report.ActiveParticipants != 1 {
		t.Fatalf("expected 1 participant, got %d", report.ActiveParticipants)
	}
	if report.ParticipantsMissingDay1 != 1 {
		t.Fatalf("expected day-1 gap to be reported, got %d", report.ParticipantsMissingDay1)
	}
	if n := countRows(t, db, &models.TaskInstance{}, "1 = 1"); n != 0 {
		t.Fatalf("dry run wrote %d instance rows", n)
	}
}

func TestAuditApplyBackfillsAndConverges(t *testing.T) {
	db := newTestDB(t)
	seedConfig(t, db, 3)
	seedDefinition(t, db, models.TaskDefinition{Name: "Workout"})
	seedDefinition(t, db, models.TaskDefinition{Name: "Read"})
	seedParticipant(t, db, 11)
	svc := NewService(db)

	report, err := svc.RunAudit(false, false)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !report.Success {
		t.Fatalf("clean apply should succeed: %+v", report.Errors)
	}
	// 2 defs × days 1-2 backfilled, 2 created for day 3
	if report.TasksBackfilled != 4 {
		t.Fatalf("expected 4 backfilled, got %d", report.TasksBackfilled)
	}
	if report.TasksCreated != 2 {
		t.Fatalf("expected 2 created for the current day, got %d", report.TasksCreated)
	}

	// a second pass over the repaired cohort changes nothing
	report, err = svc.RunAudit(false, false)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if report.TasksBackfilled != 0 || report.TasksCreated != 0 || report.TasksCompleted != 0 {
		t.Fatalf("second apply should converge to zero changes: %+v", report)
	}
	if n := countRows(t, db, &models.TaskInstance{}, "user_id = ?", 11); n != 6 {
		t.Fatalf("expected 6 instance rows after both runs, got %d", n)
	}
}

func TestAuditAwardsWeeklyBonusOnce(t *testing.T) {
	db := newTestDB(t)
	seedConfig(t, db, 8)
	def := seedDefinition(t, db, models.TaskDefinition{Name: "Workout"})
	seedParticipant(t, db, 21)
	svc := NewService(db)

	for day := 1; day <= 7; day++ {
		if _, err := svc.EnsureDailyTasksExist(21, day); err != nil {
			t.Fatalf("ensure day %d: %v", day, err)
		}
		if _, err := svc.ToggleTask(21, def.ID, day, true); err != nil {
			t.Fatalf("toggle day %d: %v", day, err)
		}
	}

	report, err := svc.RunAudit(false, false)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if report.BonusesAwarded != 1 {
		t.Fatalf("expected one weekly bonus, got %d", report.BonusesAwarded)
	}
	if n := countRows(t, db, &models.PointsLedgerEntry{}, "user_id = ? AND source_tag = ?", 21, utils.WeeklyBonusTag(1)); n != 1 {
		t.Fatalf("expected one bonus ledger row, got %d", n)
	}
	total, bonus, err := svc.PointsBreakdown(21)
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	if bonus != defaultBonusPoints {
		t.Fatalf("expected %d bonus points, got %d", defaultBonusPoints, bonus)
	}
	if total != 7*defaultTaskPoints+defaultBonusPoints {
		t.Fatalf("expected %d total points, got %d", 7*defaultTaskPoints+defaultBonusPoints, total)
	}

	report, err = svc.RunAudit(false, false)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if report.BonusesAwarded != 0 {
		t.Fatalf("bonus must be at-most-once, got %d on re-run", report.BonusesAwarded)
	}
}

func TestAuditApplyIsolatesParticipantFailures(t *testing.T) {
	db := newTestDB(t)
	seedConfig(t, db, 3)
	seedDefinition(t, db, models.TaskDefinition{Name: "Workout"})
	seedParticipant(t, db, 1)
	seedParticipant(t, db, 2)
	seedParticipant(t, db, 3)
	svc := NewService(db)

	// every instance read for user 2 fails; the other participants are untouched
	err := db.Callback().Query().After("gorm:query").Register("user_two_fault", func(tx *gorm.DB) {
		if tx.Statement.Table != "task_instances" {
			return
		}
		for _, v := range tx.Statement.Vars {
			if id, ok := v.(uint); ok && id == 2 {
				_ = tx.AddError(errors.New("injected storage fault"))
				return
			}
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
	defer func() {
		if err := db.Callback().Query().Remove("user_two_fault"); err != nil {
			t.Fatalf("remove callback: %v", err)
		}
	}()

	report, err := svc.RunAudit(false, false)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if report.Success {
		t.Fatal("a run with a failed participant must not report success")
	}
	if len(report.Errors) != 1 || !strings.Contains(report.Errors[0], "user 2") {
		t.Fatalf("expected exactly one error naming user 2, got %v", report.Errors)
	}
	for _, uid := range []uint{1, 3} {
		if n := countRows(t, db, &models.TaskInstance{}, "user_id = ?", uid); n != 3 {
			t.Fatalf("user %d should be fully backfilled, got %d rows", uid, n)
		}
		if n := countRows(t, db, &models.UserChallengeProgress{}, "user_id = ? AND current_streak >= 0", uid); n != 1 {
			t.Fatalf("user %d should keep a progress row", uid)
		}
	}
}

func TestAuditEnrollsEligibleUsers(t *testing.T) {
	db := newTestDB(t)
	seedConfig(t, db, 3)
	seedDefinition(t, db, models.TaskDefinition{Name: "Workout"})

	// active user who registered mid-program but never enrolled
	user := models.User{ID: 30, Name: "Late Joiner", Email: "late@example.test", Password: "x", Status: "Active"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	svc := NewService(db)

	report, err := svc.RunAudit(true, false)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if report.EligibleNotEnrolled != 1 {
		t.Fatalf("expected 1 eligible-not-enrolled, got %d", report.EligibleNotEnrolled)
	}

	report, err = svc.RunAudit(false, true)
	if err != nil {
		t.Fatalf("apply with enroll: %v", err)
	}
	if report.EnrolledByAudit != 1 {
		t.Fatalf("expected 1 enrolled, got %d", report.EnrolledByAudit)
	}
	// the new participant is processed in the same pass: full backfill 1..3
	if n := countRows(t, db, &models.TaskInstance{}, "user_id = ?", 30); n != 3 {
		t.Fatalf("expected days 1-3 materialized for the new participant, got %d rows", n)
	}
	if n := countRows(t, db, &models.UserChallengeProgress{}, "user_id = ?", 30); n != 1 {
		t.Fatal("expected a progress row for the enrolled user")
	}
}
