package challenge

import (
	"testing"

	"challenge/models"
)

func instance(day int, completed bool) models.TaskInstance {
	return models.TaskInstance{ChallengeDay: day, Completed: completed}
}

func TestSummarizeInstances(t *testing.T) {
	tests := []struct {
		name       string
		instances  []models.TaskInstance
		currentDay int
		wantTotal  int
		wantStreak int
	}{
		{
			name:       "empty history",
			instances:  nil,
			currentDay: 5,
		},
		{
			// days 1,2,3,5 complete with day 4 skipped: the gap caps the
			// streak at the most recent run
			name: "gap breaks streak",
			instances: []models.TaskInstance{
				instance(1, true), instance(2, true), instance(3, true), instance(5, true),
			},
			currentDay: 5,
			wantTotal:  4,
			wantStreak: 1,
		},
		{
			name: "unbroken run",
			instances: []models.TaskInstance{
				instance(1, true), instance(2, true), instance(3, true),
			},
			currentDay: 3,
			wantTotal:  3,
			wantStreak: 3,
		},
		{
			// a day with one of two instances done is not complete
			name: "partial day not complete",
			instances: []models.TaskInstance{
				instance(1, true), instance(1, false), instance(2, true),
			},
			currentDay: 2,
			wantTotal:  1,
			wantStreak: 1,
		},
		{
			name: "incomplete latest day zeroes streak",
			instances: []models.TaskInstance{
				instance(1, true), instance(2, false),
			},
			currentDay: 2,
			wantTotal:  1,
			wantStreak: 0,
		},
		{
			// rows past current_day (clock moved back by an admin) are ignored
			name: "future days ignored",
			instances: []models.TaskInstance{
				instance(1, true), instance(2, true), instance(3, true),
			},
			currentDay: 2,
			wantTotal:  2,
			wantStreak: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, streak := SummarizeInstances(tt.instances, tt.currentDay)
			if total != tt.wantTotal {
				t.Errorf("total = %d, want %d", total, tt.wantTotal)
			}
			if streak != tt.wantStreak {
				t.Errorf("streak = %d, want %d", streak, tt.wantStreak)
			}
		})
	}
}

func TestUpdateProgressCreatesAndRefreshes(t *testing.T) {
	db := newTestDB(t)
	seedConfig(t, db, 2)
	def := seedDefinition(t, db, models.TaskDefinition{Name: "Workout"})
	svc := NewService(db)
	const uid = 4

	// first call enrolls on the fly
	progress, err := svc.UpdateProgress(uid)
	if err != nil {
		t.Fatalf("initial update: %v", err)
	}
	if progress.TotalDaysCompleted != 0 || progress.CurrentStreak != 0 {
		t.Fatalf("fresh progress should be zero: %+v", progress)
	}

	if _, err := svc.EnsureDailyTasksExist(uid, 1); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, err := svc.ToggleTask(uid, def.ID, 1, true); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	progress, err = svc.UpdateProgress(uid)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if progress.TotalDaysCompleted != 1 {
		t.Fatalf("expected 1 day completed, got %d", progress.TotalDaysCompleted)
	}

	// only one progress row regardless of how many times this runs
	if n := countRows(t, db, &models.UserChallengeProgress{}, "user_id = ?", uid); n != 1 {
		t.Fatalf("expected one progress row, got %d", n)
	}
}
