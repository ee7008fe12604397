package challenge

import (
	"log"

	"challenge/models"

	"gorm.io/gorm/clause"
)

// EnsureDailyTasksExist materializes the missing TaskInstance rows for one
// user and challenge day, one per active definition in scope for that day.
// Each insert is a single constraint-enforced upsert (never check-then-insert):
// two concurrent callers for the same user/day race harmlessly, the loser's
// insert resolving to a no-op on the composite unique index. Existing rows,
// completed ones included, are left untouched.
//
// Best-effort by design: a failed insert for one definition is logged and
// skipped, since the next call will retry it. Returns the number of rows
// actually created.
func (s *Service) EnsureDailyTasksExist(userID uint, day int) (int, error) {
	cfg, err := s.Config()
	if err != nil {
		return 0, err
	}
	if err := s.validDay(cfg, day); err != nil {
		return 0, err
	}

	var defs []models.TaskDefinition
	if err := s.db.Where("is_active = ?", true).Order("sort_order ASC, id ASC").Find(&defs).Error; err != nil {
		return 0, err
	}

	created := 0
	for i := range defs {
		def := defs[i]
		if !def.AppliesToDay(day) {
			continue
		}
		inst := models.TaskInstance{
			UserID:           userID,
			TaskDefinitionID: def.ID,
			ChallengeDay:     day,
			Completed:        false,
		}
		res := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&inst)
		if res.Error != nil {
			log.Printf("[guarantor] user=%d day=%d def=%d insert skipped: %v", userID, day, def.ID, res.Error)
			continue
		}
		if res.RowsAffected > 0 {
			created++
		}
	}
	return created, nil
}
